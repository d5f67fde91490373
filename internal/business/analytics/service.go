// Package analytics aggregates a user's calendars into the dashboard
// summary: totals, week/month/upcoming counts, breakdowns by status, subject
// and weekday, and the share of online meetings.
package analytics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kalendo/calendar-backend/internal/model"
)

// weekdays in Monday-first order; breakdown keys and tie-breaking for the
// busiest/least busy day follow it.
var weekdays = [7]time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

type Service struct {
	calendars   calendarsProvider
	occurrences occurrencesProvider
	now         func() time.Time
}

type calendarsProvider interface {
	GetCalendars(ctx context.Context, userID int64) ([]*model.Calendar, error)
}

type occurrencesProvider interface {
	GetOccurrences(ctx context.Context, filter model.EventsFilter) ([]model.Occurrence, error)
}

func NewService(calendars calendarsProvider, occurrences occurrencesProvider) *Service {
	return &Service{
		calendars:   calendars,
		occurrences: occurrences,
		now:         time.Now,
	}
}

func (s *Service) GetUserAnalytics(ctx context.Context, userID int64) (*model.Analytics, error) {
	calendars, err := s.calendars.GetCalendars(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("calendars.GetCalendars: %w", err)
	}

	res := &model.Analytics{
		TotalCalendars:     int64(len(calendars)),
		BusiestDayOfWeek:   strings.ToUpper(time.Monday.String()),
		LeastBusyDayOfWeek: strings.ToUpper(time.Sunday.String()),
		EventsByStatus:     map[string]int64{},
		EventsBySubject:    map[string]int64{},
		EventsByWeekday:    map[string]int64{},
	}
	for _, d := range weekdays {
		res.EventsByWeekday[strings.ToUpper(d.String())] = 0
	}
	if len(calendars) == 0 {
		return res, nil
	}

	ids := make([]int64, 0, len(calendars))
	for _, c := range calendars {
		ids = append(ids, c.ID)
	}

	now := s.now()
	// Every rule terminates, so a generous fixed horizon covers all series.
	occurrences, err := s.occurrences.GetOccurrences(ctx, model.EventsFilter{
		From:        now.AddDate(-10, 0, 0),
		To:          now.AddDate(10, 0, 0),
		CalendarIDs: ids,
	})
	if err != nil {
		return nil, fmt.Errorf("occurrences.GetOccurrences: %w", err)
	}

	daysSinceMonday := (int(now.Weekday()) + 6) % 7
	weekStart := now.AddDate(0, 0, -daysSinceMonday)
	monthStart := now.AddDate(0, 0, 1-now.Day())

	var last30Days, online int64
	for _, occ := range occurrences {
		res.TotalEvents++

		if occ.Start.After(weekStart) && occ.Start.Before(weekStart.AddDate(0, 0, 7)) {
			res.WeekEvents++
		}
		if occ.Start.After(monthStart) && occ.Start.Before(monthStart.AddDate(0, 1, 0)) {
			res.MonthEvents++
		}
		if occ.Start.After(now) {
			res.UpcomingEvents++
		}
		if occ.Start.After(now.AddDate(0, 0, -30)) && !occ.Start.After(now) {
			last30Days++
		}

		status := occ.Status
		if status == "" {
			status = model.StatusConfirmed
		}
		res.EventsByStatus[status]++
		res.EventsBySubject[occ.Subject]++
		res.EventsByWeekday[strings.ToUpper(occ.Start.Weekday().String())]++

		if isOnline(occ.Location) {
			online++
		}
	}

	res.AverageEventsPerDay = float64(last30Days) / 30.0
	if res.TotalEvents > 0 {
		res.OnlinePercentage = float64(online) / float64(res.TotalEvents) * 100
	}

	busiest, least := weekdays[0], weekdays[6]
	for _, d := range weekdays {
		key := strings.ToUpper(d.String())
		if res.EventsByWeekday[key] > res.EventsByWeekday[strings.ToUpper(busiest.String())] {
			busiest = d
		}
		if res.EventsByWeekday[key] < res.EventsByWeekday[strings.ToUpper(least.String())] {
			least = d
		}
	}
	res.BusiestDayOfWeek = strings.ToUpper(busiest.String())
	res.LeastBusyDayOfWeek = strings.ToUpper(least.String())

	return res, nil
}

func isOnline(location string) bool {
	l := strings.ToLower(location)
	for _, marker := range []string{"zoom", "meet", "online", "teams"} {
		if strings.Contains(l, marker) {
			return true
		}
	}
	return false
}
