package events

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kalendo/calendar-backend/internal/model"
)

func (s *Service) CreateEvent(ctx context.Context, info *model.EventCreate) (*model.Event, error) {
	cal, err := s.calendars.GetCalendarByID(ctx, s.db, info.CalendarID)
	if err != nil {
		return nil, fmt.Errorf("calendarsRepository.GetCalendarByID: %w", err)
	}
	loc, err := cal.Location()
	if err != nil {
		return nil, fmt.Errorf("calendar %d timezone: %w", cal.ID, err)
	}

	event := &model.Event{EventCreate: *info}

	if event.Recurring() {
		sched, err := newSchedule(event, loc)
		if err != nil {
			return nil, err
		}
		event.SeriesID = uuid.NewString()
		event.WindowStart = sched.InstantAt(0).Start
		event.WindowEnd = sched.InstantAt(sched.Total() - 1).End
	} else {
		if !info.Start.Before(info.End) {
			return nil, fmt.Errorf("%w: end must be after start", model.ErrConflict)
		}
		event.WindowStart = info.Start.In(loc)
		event.WindowEnd = info.End.In(loc)

		if err := s.checkConflicts(ctx, event); err != nil {
			return nil, err
		}
	}

	id, err := s.events.CreateEvent(ctx, s.db, event)
	if err != nil {
		return nil, fmt.Errorf("eventsRepository.CreateEvent: %w", err)
	}
	event.ID = id

	return event, nil
}

// checkConflicts rejects a single event that overlaps any live occurrence in
// the same calendar. Recurring events are exempt: a long series overlapping
// itself or an old one-off is routine, not an authoring mistake.
func (s *Service) checkConflicts(ctx context.Context, event *model.Event) error {
	existing, err := s.events.GetEvents(ctx, s.db, model.EventsFilter{
		From:        event.WindowStart,
		To:          event.WindowEnd,
		CalendarIDs: []int64{event.CalendarID},
	})
	if err != nil {
		return fmt.Errorf("eventsRepository.GetEvents: %w", err)
	}

	for _, e := range existing {
		if e.ID == event.ID || e.Status == model.StatusCancelled {
			continue
		}
		occurrences, err := s.occurrencesForEvent(ctx, s.db, e, event.WindowStart, event.WindowEnd)
		if err != nil {
			return err
		}
		for _, occ := range occurrences {
			if occ.Start.Before(event.WindowEnd) && occ.End.After(event.WindowStart) {
				return fmt.Errorf("%w: event %d occurrence at %v", model.ErrConflict, e.ID, occ.Start)
			}
		}
	}

	return nil
}
