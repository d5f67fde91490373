package events

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kalendo/calendar-backend/internal/model"
)

// UpdateEvent rewrites the series master. The recurrence rule and anchor are
// immutable in place: changing either (or the pattern of weekdays, interval,
// termination) recreates the series under a fresh SeriesID and discards every
// override, since their indices no longer name the occurrences they meant.
func (s *Service) UpdateEvent(ctx context.Context, id int64, info *model.EventCreate) (*model.Event, error) {
	old, err := s.events.GetEventByID(ctx, s.db, id)
	if err != nil {
		return nil, fmt.Errorf("eventsRepository.GetEventByID: %w", err)
	}

	// An event never moves between calendars; its civil times are anchored
	// to the owning calendar's timezone.
	info.CalendarID = old.CalendarID

	cal, err := s.calendars.GetCalendarByID(ctx, s.db, old.CalendarID)
	if err != nil {
		return nil, fmt.Errorf("calendarsRepository.GetCalendarByID: %w", err)
	}
	loc, err := cal.Location()
	if err != nil {
		return nil, fmt.Errorf("calendar %d timezone: %w", cal.ID, err)
	}

	event := &model.Event{
		ID:          old.ID,
		SeriesID:    old.SeriesID,
		EventCreate: *info,
	}

	scheduleChanged := !sameRule(old.Recurrence, info.Recurrence) ||
		old.Start != info.Start || old.End != info.End

	switch {
	case event.Recurring():
		sched, err := newSchedule(event, loc)
		if err != nil {
			return nil, err
		}
		if scheduleChanged {
			// Overrides are dropped below, the window is the bare span.
			event.SeriesID = uuid.NewString()
			event.WindowStart = sched.InstantAt(0).Start
			event.WindowEnd = sched.InstantAt(sched.Total() - 1).End
		} else {
			// Surviving overrides may have moved occurrences outside the
			// schedule's span; keep the window wide enough to find them.
			stored, err := s.overrides.GetOverrides(ctx, s.db, event.ID)
			if err != nil {
				return nil, fmt.Errorf("overridesRepository.GetOverrides: %w", err)
			}
			event.WindowStart, event.WindowEnd = seriesWindow(sched, loc, stored)
		}
	default:
		if !info.Start.Before(info.End) {
			return nil, fmt.Errorf("%w: end must be after start", model.ErrConflict)
		}
		event.SeriesID = ""
		event.WindowStart = info.Start.In(loc)
		event.WindowEnd = info.End.In(loc)
		if err := s.checkConflicts(ctx, event); err != nil {
			return nil, err
		}
	}

	dropOverrides := old.Recurring() && scheduleChanged

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.events.UpdateEvent(ctx, tx, event); err != nil {
		return nil, fmt.Errorf("eventsRepository.UpdateEvent: %w", err)
	}

	if dropOverrides {
		if err := s.overrides.DeleteOverrides(ctx, tx, event.ID); err != nil {
			return nil, fmt.Errorf("overridesRepository.DeleteOverrides: %w", err)
		}
	}

	version, err := s.events.IncrementVersion(ctx, tx, event.ID)
	if err != nil {
		return nil, fmt.Errorf("eventsRepository.IncrementVersion: %w", err)
	}
	event.Version = version

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return event, nil
}
