package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/kalendo/calendar-backend/internal/model"
	"github.com/kalendo/calendar-backend/internal/recurrence"
)

// civilTime is the wire form of a calendar-local date-time: no zone, no
// offset. The owning calendar's timezone supplies the projection.
type civilTime civil.DateTime

func (t civilTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(civil.DateTime(t).String())
}

func (t *civilTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	dt, err := civil.ParseDateTime(s)
	if err != nil {
		return fmt.Errorf("invalid date-time %q, want YYYY-MM-DDTHH:MM:SS", s)
	}
	*t = civilTime(dt)
	return nil
}

func (t civilTime) IsZero() bool {
	return civil.DateTime(t) == civil.DateTime{}
}

type ruleJSON struct {
	Pattern  string   `json:"pattern"`
	Interval int      `json:"interval"`
	Days     []string `json:"days,omitempty"`
	Count    *int     `json:"count,omitempty"`
	Until    *string  `json:"until,omitempty"`
}

func mapToRule(req *ruleJSON) (*recurrence.Rule, error) {
	if req == nil {
		return nil, nil
	}

	pattern, err := recurrence.ParsePattern(req.Pattern)
	if err != nil {
		return nil, err
	}

	days, err := recurrence.ParseWeekdays(req.Days)
	if err != nil {
		return nil, err
	}

	rule := &recurrence.Rule{
		Pattern:  pattern,
		Interval: req.Interval,
		Days:     days,
	}

	switch {
	case req.Count != nil && req.Until != nil:
		return nil, errors.New("recurrence must end by count or by date, not both")
	case req.Count != nil:
		rule.Termination = recurrence.EndAfter(*req.Count)
	case req.Until != nil:
		until, err := civil.ParseDate(*req.Until)
		if err != nil {
			return nil, fmt.Errorf("invalid until date %q, want YYYY-MM-DD", *req.Until)
		}
		rule.Termination = recurrence.EndOnDate(until)
	default:
		return nil, errors.New("recurrence must end by count or by date")
	}

	return rule, nil
}

func mapFromRule(rule *recurrence.Rule) *ruleJSON {
	if rule == nil {
		return nil
	}

	res := &ruleJSON{
		Pattern:  rule.Pattern.String(),
		Interval: rule.Interval,
	}

	for _, d := range rule.Days.Days() {
		res.Days = append(res.Days, weekdayName(d))
	}

	if count, ok := rule.Termination.Count(); ok {
		res.Count = &count
	}
	if until, ok := rule.Termination.Until(); ok {
		s := until.String()
		res.Until = &s
	}

	return res
}

func weekdayName(d time.Weekday) string {
	names := [...]string{"SUNDAY", "MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY", "SATURDAY"}
	return names[d]
}

type userResp struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func mapToUserResp(user *model.User) *userResp {
	return &userResp{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
	}
}

type calendarResp struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
	Color    string `json:"color,omitempty"`
}

func mapToCalendarResp(cal *model.Calendar) (*calendarResp, error) {
	return &calendarResp{
		ID:       cal.ID,
		Name:     cal.Name,
		Timezone: cal.Timezone,
		Color:    cal.Color,
	}, nil
}

type eventResp struct {
	ID          int64     `json:"id"`
	CalendarID  int64     `json:"calendar_id"`
	SeriesID    string    `json:"series_id,omitempty"`
	Version     int64     `json:"version"`
	Subject     string    `json:"subject"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Status      string    `json:"status"`
	AllDay      bool      `json:"all_day"`
	Start       civilTime `json:"start"`
	End         civilTime `json:"end"`
	Recurrence  *ruleJSON `json:"recurrence,omitempty"`
}

func mapToEventResp(event *model.Event) *eventResp {
	return &eventResp{
		ID:          event.ID,
		CalendarID:  event.CalendarID,
		SeriesID:    event.SeriesID,
		Version:     event.Version,
		Subject:     event.Subject,
		Description: event.Description,
		Location:    event.Location,
		Status:      event.Status,
		AllDay:      event.AllDay,
		Start:       civilTime(event.Start),
		End:         civilTime(event.End),
		Recurrence:  mapFromRule(event.Recurrence),
	}
}

type occurrenceResp struct {
	EventID     int64     `json:"event_id"`
	SeriesID    string    `json:"series_id,omitempty"`
	Recurring   bool      `json:"recurring"`
	Index       int       `json:"index"`
	Subject     string    `json:"subject"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Status      string    `json:"status"`
	AllDay      bool      `json:"all_day"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Modified    bool      `json:"modified"`
}

func mapToOccurrenceResp(occ model.Occurrence) (*occurrenceResp, error) {
	return &occurrenceResp{
		EventID:     occ.EventID,
		SeriesID:    occ.SeriesID,
		Recurring:   occ.Recurring,
		Index:       occ.Index,
		Subject:     occ.Subject,
		Description: occ.Description,
		Location:    occ.Location,
		Status:      occ.Status,
		AllDay:      occ.AllDay,
		Start:       occ.Start,
		End:         occ.End,
		Modified:    occ.Modified,
	}, nil
}

type analyticsResp struct {
	TotalEvents         int64            `json:"total_events"`
	WeekEvents          int64            `json:"week_events"`
	MonthEvents         int64            `json:"month_events"`
	UpcomingEvents      int64            `json:"upcoming_events"`
	TotalCalendars      int64            `json:"total_calendars"`
	AverageEventsPerDay float64          `json:"average_events_per_day"`
	BusiestDayOfWeek    string           `json:"busiest_day_of_week"`
	LeastBusyDayOfWeek  string           `json:"least_busy_day_of_week"`
	EventsByStatus      map[string]int64 `json:"events_by_status"`
	EventsBySubject     map[string]int64 `json:"events_by_subject"`
	EventsByWeekday     map[string]int64 `json:"events_by_weekday"`
	OnlinePercentage    float64          `json:"online_percentage"`
}

func mapToAnalyticsResp(a *model.Analytics) *analyticsResp {
	return &analyticsResp{
		TotalEvents:         a.TotalEvents,
		WeekEvents:          a.WeekEvents,
		MonthEvents:         a.MonthEvents,
		UpcomingEvents:      a.UpcomingEvents,
		TotalCalendars:      a.TotalCalendars,
		AverageEventsPerDay: a.AverageEventsPerDay,
		BusiestDayOfWeek:    a.BusiestDayOfWeek,
		LeastBusyDayOfWeek:  a.LeastBusyDayOfWeek,
		EventsByStatus:      a.EventsByStatus,
		EventsBySubject:     a.EventsBySubject,
		EventsByWeekday:     a.EventsByWeekday,
		OnlinePercentage:    a.OnlinePercentage,
	}
}
