package model

// Analytics is the per-user usage summary. Counts are over materialized
// occurrences, so a six-occurrence series contributes six, not one.
type Analytics struct {
	TotalEvents         int64
	WeekEvents          int64
	MonthEvents         int64
	UpcomingEvents      int64
	TotalCalendars      int64
	AverageEventsPerDay float64
	BusiestDayOfWeek    string
	LeastBusyDayOfWeek  string
	EventsByStatus      map[string]int64
	EventsBySubject     map[string]int64
	EventsByWeekday     map[string]int64
	OnlinePercentage    float64
}
