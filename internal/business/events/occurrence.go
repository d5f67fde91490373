package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/kalendo/calendar-backend/internal/model"
	"github.com/kalendo/calendar-backend/internal/recurrence"
)

// ErrNotRecurring is returned when a per-occurrence operation targets a
// single event.
var ErrNotRecurring = errors.New("event is not recurring")

// ModifyOccurrence records a field-replacement override for one occurrence
// of a recurring series. Nil fields keep the series template values.
func (s *Service) ModifyOccurrence(ctx context.Context, eventID int64, index int, fields recurrence.OverrideFields) error {
	if fields.Start != nil && fields.End != nil && !fields.Start.Before(*fields.End) {
		return fmt.Errorf("%w: end must be after start", model.ErrConflict)
	}

	return s.putOverride(ctx, &model.Override{
		EventID: eventID,
		Index:   index,
		Fields:  fields,
	})
}

// CancelOccurrence removes one occurrence from materialized output. The
// index stays burned: cancelling never renumbers the rest of the series.
func (s *Service) CancelOccurrence(ctx context.Context, eventID int64, index int) error {
	return s.putOverride(ctx, &model.Override{
		EventID:   eventID,
		Index:     index,
		Cancelled: true,
	})
}

func (s *Service) putOverride(ctx context.Context, override *model.Override) error {
	event, err := s.events.GetEventByID(ctx, s.db, override.EventID)
	if err != nil {
		return fmt.Errorf("eventsRepository.GetEventByID: %w", err)
	}
	if !event.Recurring() {
		return ErrNotRecurring
	}

	cal, err := s.calendars.GetCalendarByID(ctx, s.db, event.CalendarID)
	if err != nil {
		return fmt.Errorf("calendarsRepository.GetCalendarByID: %w", err)
	}
	loc, err := cal.Location()
	if err != nil {
		return fmt.Errorf("calendar %d timezone: %w", cal.ID, err)
	}

	sched, err := newSchedule(event, loc)
	if err != nil {
		return err
	}
	if override.Index < 0 || override.Index >= sched.Total() {
		return fmt.Errorf("%w: index %d, series has %d occurrences", ErrIndexOutOfRange, override.Index, sched.Total())
	}

	// An override with a moved start or end can fall outside the series'
	// stored window, so the bounds are recomputed over every override
	// after this write and persisted in the same transaction.
	stored, err := s.overrides.GetOverrides(ctx, s.db, override.EventID)
	if err != nil {
		return fmt.Errorf("overridesRepository.GetOverrides: %w", err)
	}
	merged := make([]*model.Override, 0, len(stored)+1)
	for _, o := range stored {
		if o.Index != override.Index {
			merged = append(merged, o)
		}
	}
	merged = append(merged, override)
	windowStart, windowEnd := seriesWindow(sched, loc, merged)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.overrides.UpsertOverride(ctx, tx, override); err != nil {
		return fmt.Errorf("overridesRepository.UpsertOverride: %w", err)
	}

	if err := s.events.UpdateWindow(ctx, tx, override.EventID, windowStart, windowEnd); err != nil {
		return fmt.Errorf("eventsRepository.UpdateWindow: %w", err)
	}

	if _, err := s.events.IncrementVersion(ctx, tx, override.EventID); err != nil {
		return fmt.Errorf("eventsRepository.IncrementVersion: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}
