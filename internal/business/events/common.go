package events

import (
	"context"
	"fmt"
	"time"

	"github.com/kalendo/calendar-backend/internal/database"
	"github.com/kalendo/calendar-backend/internal/model"
	"github.com/kalendo/calendar-backend/internal/recurrence"
)

// newSchedule binds a recurring event's rule and anchor to its calendar's
// location. The caller guarantees event.Recurring().
func newSchedule(event *model.Event, loc *time.Location) (*recurrence.Schedule, error) {
	s, err := recurrence.NewSchedule(*event.Recurrence, event.Start, event.End, loc)
	if err != nil {
		return nil, fmt.Errorf("build schedule: %w", err)
	}
	return s, nil
}

func template(event *model.Event) recurrence.Template {
	return recurrence.Template{
		Subject:     event.Subject,
		Description: event.Description,
		Location:    event.Location,
		AllDay:      event.AllDay,
	}
}

func toRecurrenceOverrides(overrides []*model.Override) []recurrence.Override {
	res := make([]recurrence.Override, 0, len(overrides))
	for _, o := range overrides {
		action := recurrence.Modified
		if o.Cancelled {
			action = recurrence.Cancelled
		}
		res = append(res, recurrence.Override{
			Index:  o.Index,
			Action: action,
			Fields: o.Fields,
		})
	}
	return res
}

func toModelOccurrence(event *model.Event, occ recurrence.Occurrence) model.Occurrence {
	return model.Occurrence{
		EventID:     event.ID,
		SeriesID:    event.SeriesID,
		Recurring:   true,
		Index:       occ.Index,
		Subject:     occ.Subject,
		Description: occ.Description,
		Location:    occ.Location,
		Status:      event.Status,
		AllDay:      occ.AllDay,
		Start:       occ.Start,
		End:         occ.End,
		Modified:    occ.Modified,
	}
}

func singleOccurrence(event *model.Event, loc *time.Location) model.Occurrence {
	return model.Occurrence{
		EventID:     event.ID,
		Recurring:   false,
		Subject:     event.Subject,
		Description: event.Description,
		Location:    event.Location,
		Status:      event.Status,
		AllDay:      event.AllDay,
		Start:       event.Start.In(loc),
		End:         event.End.In(loc),
	}
}

// seriesWindow computes the absolute bounds stored on the master row for the
// SQL window prefilter: the schedule's own span, widened by any override that
// moves an occurrence outside it. Without the widening the prefilter would
// drop the master row and a moved occurrence would never materialize.
// Cancelled and stale overrides move nothing.
func seriesWindow(sched *recurrence.Schedule, loc *time.Location, overrides []*model.Override) (time.Time, time.Time) {
	start := sched.InstantAt(0).Start
	end := sched.InstantAt(sched.Total() - 1).End

	widen := func(t time.Time) {
		if t.Before(start) {
			start = t
		}
		if t.After(end) {
			end = t
		}
	}

	for _, o := range overrides {
		if o.Cancelled || o.Index < 0 || o.Index >= sched.Total() {
			continue
		}
		if f := o.Fields.Start; f != nil {
			widen(f.In(loc))
		}
		if f := o.Fields.End; f != nil {
			widen(f.In(loc))
		}
	}

	return start, end
}

func sameRule(a, b *recurrence.Rule) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// occurrencesForEvent materializes one stored event inside [from, to],
// bypassing the cache. Stale overrides are reported, never applied.
func (s *Service) occurrencesForEvent(ctx context.Context, q database.Queryable, event *model.Event, from, to time.Time) ([]model.Occurrence, error) {
	cal, err := s.calendars.GetCalendarByID(ctx, q, event.CalendarID)
	if err != nil {
		return nil, fmt.Errorf("calendarsRepository.GetCalendarByID: %w", err)
	}
	loc, err := cal.Location()
	if err != nil {
		return nil, fmt.Errorf("calendar %d timezone: %w", cal.ID, err)
	}

	if !event.Recurring() {
		occ := singleOccurrence(event, loc)
		if occ.Start.After(to) || occ.End.Before(from) {
			return nil, nil
		}
		return []model.Occurrence{occ}, nil
	}

	sched, err := newSchedule(event, loc)
	if err != nil {
		return nil, err
	}

	stored, err := s.overrides.GetOverrides(ctx, q, event.ID)
	if err != nil {
		return nil, fmt.Errorf("overridesRepository.GetOverrides: %w", err)
	}
	overrides := toRecurrenceOverrides(stored)

	if stale := recurrence.StaleOverrides(sched, overrides); len(stale) != 0 {
		indices := make([]int, 0, len(stale))
		for _, o := range stale {
			indices = append(indices, o.Index)
		}
		s.logger.Warnw("Ignoring stale overrides", "event_id", event.ID, "indices", indices)
	}

	materialized := recurrence.Materialize(sched, template(event), overrides, from, to)

	res := make([]model.Occurrence, 0, len(materialized))
	for _, occ := range materialized {
		res = append(res, toModelOccurrence(event, occ))
	}
	return res, nil
}
