package calendars

import (
	"context"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/kalendo/calendar-backend/internal/model"
	"github.com/kalendo/calendar-backend/internal/recurrence"
)

const icsStamp = "20060102T150405Z"

// ExportICS renders the calendar as an iCalendar document. Each series
// exports one master VEVENT carrying the RRULE, an EXDATE per cancelled
// occurrence, and one extra VEVENT with a RECURRENCE-ID per modified
// occurrence.
func (s *Service) ExportICS(ctx context.Context, calendarID int64) ([]byte, error) {
	cal, err := s.calendars.GetCalendarByID(ctx, s.db, calendarID)
	if err != nil {
		return nil, fmt.Errorf("calendarsRepository.GetCalendarByID: %w", err)
	}
	loc, err := cal.Location()
	if err != nil {
		return nil, fmt.Errorf("calendar %d timezone: %w", cal.ID, err)
	}

	events, err := s.events.GetEventsByCalendar(ctx, s.db, calendarID)
	if err != nil {
		return nil, fmt.Errorf("eventsRepository.GetEventsByCalendar: %w", err)
	}

	doc := ics.NewCalendar()
	doc.SetProductId("-//Kalendo//Calendar//EN")
	doc.SetXWRTimezone(cal.Timezone)

	for _, event := range events {
		if err := s.exportEvent(ctx, doc, event, loc); err != nil {
			return nil, err
		}
	}

	return []byte(doc.Serialize()), nil
}

func (s *Service) exportEvent(ctx context.Context, doc *ics.Calendar, event *model.Event, loc *time.Location) error {
	uid := fmt.Sprintf("event-%d@kalendo", event.ID)

	master := doc.AddEvent(uid)
	master.SetSummary(event.Subject)
	if event.Description != "" {
		master.SetDescription(event.Description)
	}
	if event.Location != "" {
		master.SetLocation(event.Location)
	}
	master.SetStartAt(event.Start.In(loc))
	master.SetEndAt(event.End.In(loc))

	if !event.Recurring() {
		return nil
	}

	ruleStr, err := recurrence.EncodeRRule(*event.Recurrence, event.WindowStart)
	if err != nil {
		return fmt.Errorf("encode rule for event %d: %w", event.ID, err)
	}
	master.AddRrule(rruleValue(ruleStr))

	sched, err := recurrence.NewSchedule(*event.Recurrence, event.Start, event.End, loc)
	if err != nil {
		return fmt.Errorf("build schedule for event %d: %w", event.ID, err)
	}

	stored, err := s.overrides.GetOverrides(ctx, s.db, event.ID)
	if err != nil {
		return fmt.Errorf("overridesRepository.GetOverrides: %w", err)
	}

	var modified []recurrence.Override
	for _, o := range stored {
		if o.Index < 0 || o.Index >= sched.Total() {
			continue // stale, the series shrank underneath it
		}
		if o.Cancelled {
			master.AddExdate(sched.InstantAt(o.Index).Start.UTC().Format(icsStamp))
			continue
		}
		modified = append(modified, recurrence.Override{
			Index:  o.Index,
			Action: recurrence.Modified,
			Fields: o.Fields,
		})
	}

	if len(modified) == 0 {
		return nil
	}

	tpl := recurrence.Template{
		Subject:     event.Subject,
		Description: event.Description,
		Location:    event.Location,
		AllDay:      event.AllDay,
	}

	// An unbounded window keeps modifications that were moved outside the
	// series' own span.
	occurrences := recurrence.Materialize(sched, tpl, modified,
		time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC))

	for _, occ := range occurrences {
		if !occ.Modified {
			continue
		}
		ve := doc.AddEvent(uid)
		ve.SetProperty(ics.ComponentProperty(ics.PropertyRecurrenceId),
			sched.InstantAt(occ.Index).Start.UTC().Format(icsStamp))
		ve.SetSummary(occ.Subject)
		if occ.Description != "" {
			ve.SetDescription(occ.Description)
		}
		if occ.Location != "" {
			ve.SetLocation(occ.Location)
		}
		ve.SetStartAt(occ.Start)
		ve.SetEndAt(occ.End)
	}

	return nil
}

// rruleValue strips the DTSTART line rrule-go prepends; ICS carries DTSTART
// as its own component property.
func rruleValue(s string) string {
	if i := strings.LastIndex(s, "RRULE:"); i >= 0 {
		return strings.TrimSpace(s[i+len("RRULE:"):])
	}
	return s
}
