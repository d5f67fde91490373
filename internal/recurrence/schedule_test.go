package recurrence

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func datetime(y int, m time.Month, d, hh, mm int) civil.DateTime {
	return civil.DateTime{
		Date: date(y, m, d),
		Time: civil.Time{Hour: hh, Minute: mm},
	}
}

func mustSchedule(t *testing.T, rule Rule, start, end civil.DateTime, loc *time.Location) *Schedule {
	t.Helper()
	s, err := NewSchedule(rule, start, end, loc)
	require.NoError(t, err)
	return s
}

func dates(instants []Instant) []civil.Date {
	res := make([]civil.Date, len(instants))
	for i, in := range instants {
		res[i] = civil.DateOf(in.Start)
	}
	return res
}

func TestScheduleWeeklyMWF(t *testing.T) {
	// Monday 2024-01-01 09:00-10:00, weekly on Mon/Wed/Fri, 6 occurrences.
	rule := Rule{
		Pattern:     Weekly,
		Interval:    1,
		Days:        Weekdays(time.Monday, time.Wednesday, time.Friday),
		Termination: EndAfter(6),
	}
	s := mustSchedule(t, rule, datetime(2024, 1, 1, 9, 0), datetime(2024, 1, 1, 10, 0), time.UTC)

	instants := s.All()
	require.Len(t, instants, 6)

	want := []civil.Date{
		date(2024, 1, 1), date(2024, 1, 3), date(2024, 1, 5),
		date(2024, 1, 8), date(2024, 1, 10), date(2024, 1, 12),
	}
	assert.Equal(t, want, dates(instants))

	for _, in := range instants {
		assert.Equal(t, 9, in.Start.Hour())
		assert.Equal(t, 10, in.End.Hour())
		assert.Equal(t, time.Hour, in.End.Sub(in.Start))
	}

	// Nothing on 2024-01-15: the series ended at count 6.
	for _, in := range instants {
		assert.NotEqual(t, date(2024, 1, 15), civil.DateOf(in.Start))
	}
}

func TestScheduleDaily(t *testing.T) {
	rule := Rule{Pattern: Daily, Interval: 3, Termination: EndAfter(4)}
	s := mustSchedule(t, rule, datetime(2024, 6, 1, 12, 0), datetime(2024, 6, 1, 13, 30), time.UTC)

	want := []civil.Date{
		date(2024, 6, 1), date(2024, 6, 4), date(2024, 6, 7), date(2024, 6, 10),
	}
	assert.Equal(t, want, dates(s.All()))
}

func TestScheduleMonthlyClampsShortMonths(t *testing.T) {
	rule := Rule{Pattern: Monthly, Interval: 1, Termination: EndAfter(5)}

	// Leap year: Jan 31 -> Feb 29.
	s := mustSchedule(t, rule, datetime(2024, 1, 31, 9, 0), datetime(2024, 1, 31, 10, 0), time.UTC)
	want := []civil.Date{
		date(2024, 1, 31), date(2024, 2, 29), date(2024, 3, 31),
		date(2024, 4, 30), date(2024, 5, 31),
	}
	assert.Equal(t, want, dates(s.All()))

	// Non-leap year: Jan 31 -> Feb 28.
	s = mustSchedule(t, rule, datetime(2023, 1, 31, 9, 0), datetime(2023, 1, 31, 10, 0), time.UTC)
	assert.Equal(t, date(2023, 2, 28), s.DateAt(1))
}

func TestScheduleYearlyFeb29Clamps(t *testing.T) {
	rule := Rule{Pattern: Yearly, Interval: 1, Termination: EndAfter(3)}
	s := mustSchedule(t, rule, datetime(2024, 2, 29, 8, 0), datetime(2024, 2, 29, 9, 0), time.UTC)

	want := []civil.Date{date(2024, 2, 29), date(2025, 2, 28), date(2026, 2, 28)}
	assert.Equal(t, want, dates(s.All()))
}

func TestScheduleCountIsExact(t *testing.T) {
	for _, rule := range []Rule{
		{Pattern: Daily, Interval: 1, Termination: EndAfter(7)},
		{Pattern: Weekly, Interval: 2, Days: Weekdays(time.Tuesday, time.Thursday), Termination: EndAfter(7)},
		{Pattern: Monthly, Interval: 1, Termination: EndAfter(7)},
	} {
		s := mustSchedule(t, rule, datetime(2024, 1, 2, 9, 0), datetime(2024, 1, 2, 10, 0), time.UTC)
		assert.Equal(t, 7, s.Total(), "rule %v", rule)
		assert.Len(t, s.All(), 7, "rule %v", rule)
	}
}

func TestScheduleUntilIsInclusive(t *testing.T) {
	rule := Rule{Pattern: Daily, Interval: 2, Termination: EndOnDate(date(2024, 1, 9))}
	s := mustSchedule(t, rule, datetime(2024, 1, 1, 9, 0), datetime(2024, 1, 1, 10, 0), time.UTC)

	// 1, 3, 5, 7, 9 — the occurrence on the until date itself is emitted,
	// the first one past it (Jan 11) never is.
	got := dates(s.All())
	require.Len(t, got, 5)
	assert.Equal(t, date(2024, 1, 9), got[4])

	rule.Termination = EndOnDate(date(2024, 1, 8))
	s = mustSchedule(t, rule, datetime(2024, 1, 1, 9, 0), datetime(2024, 1, 1, 10, 0), time.UTC)
	got = dates(s.All())
	require.Len(t, got, 4)
	assert.Equal(t, date(2024, 1, 7), got[3])
}

func TestScheduleStrictlyIncreasingNoDuplicates(t *testing.T) {
	rules := []Rule{
		{Pattern: Daily, Interval: 1, Termination: EndAfter(30)},
		{Pattern: Weekly, Interval: 1, Days: Weekdays(time.Sunday, time.Wednesday, time.Saturday), Termination: EndAfter(30)},
		{Pattern: Weekly, Interval: 3, Days: Weekdays(time.Monday), Termination: EndAfter(30)},
		{Pattern: Monthly, Interval: 2, Termination: EndAfter(30)},
		{Pattern: Yearly, Interval: 1, Termination: EndAfter(30)},
	}

	for _, rule := range rules {
		s := mustSchedule(t, rule, datetime(2024, 1, 4, 15, 0), datetime(2024, 1, 4, 16, 0), time.UTC)
		instants := s.All()
		for i := 1; i < len(instants); i++ {
			assert.True(t, instants[i-1].Start.Before(instants[i].Start),
				"rule %v: occurrence %d not after %d", rule, i, i-1)
			assert.Equal(t, i, instants[i].Index)
		}
	}
}

func TestScheduleDeterministic(t *testing.T) {
	rule := Rule{
		Pattern:     Weekly,
		Interval:    2,
		Days:        Weekdays(time.Monday, time.Friday),
		Termination: EndOnDate(date(2024, 6, 1)),
	}

	a := mustSchedule(t, rule, datetime(2024, 1, 1, 9, 0), datetime(2024, 1, 1, 10, 0), time.UTC)
	b := mustSchedule(t, rule, datetime(2024, 1, 1, 9, 0), datetime(2024, 1, 1, 10, 0), time.UTC)

	assert.Equal(t, a.Total(), b.Total())
	assert.Equal(t, a.All(), b.All())
}

func TestScheduleAnchorWeekdayNotInSetIsDropped(t *testing.T) {
	// Anchor is a Monday but the set is Tue/Thu: the anchor occurrence is
	// dropped and enumeration starts on the first set day after it.
	rule := Rule{
		Pattern:     Weekly,
		Interval:    1,
		Days:        Weekdays(time.Tuesday, time.Thursday),
		Termination: EndAfter(4),
	}
	s := mustSchedule(t, rule, datetime(2024, 1, 1, 9, 0), datetime(2024, 1, 1, 10, 0), time.UTC)

	want := []civil.Date{
		date(2024, 1, 2), date(2024, 1, 4), date(2024, 1, 9), date(2024, 1, 11),
	}
	assert.Equal(t, want, dates(s.All()))
}

func TestScheduleWeeklyIntervalSkipsWeeks(t *testing.T) {
	// Every 2 weeks on Mon/Wed from Monday 2024-01-01: week of Jan 1,
	// skip week of Jan 8, week of Jan 15, ...
	rule := Rule{
		Pattern:     Weekly,
		Interval:    2,
		Days:        Weekdays(time.Monday, time.Wednesday),
		Termination: EndAfter(5),
	}
	s := mustSchedule(t, rule, datetime(2024, 1, 1, 9, 0), datetime(2024, 1, 1, 10, 0), time.UTC)

	want := []civil.Date{
		date(2024, 1, 1), date(2024, 1, 3),
		date(2024, 1, 15), date(2024, 1, 17),
		date(2024, 1, 29),
	}
	assert.Equal(t, want, dates(s.All()))
}

func TestScheduleDSTKeepsWallClockTime(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// Daily 09:00-10:00 across the 2024-03-10 spring-forward transition.
	rule := Rule{Pattern: Daily, Interval: 1, Termination: EndAfter(3)}
	s := mustSchedule(t, rule, datetime(2024, 3, 9, 9, 0), datetime(2024, 3, 9, 10, 0), loc)

	for _, in := range s.All() {
		assert.Equal(t, 9, in.Start.Hour(), "start wall-clock time must not shift")
		assert.Equal(t, 10, in.End.Hour(), "end wall-clock time must not shift")
	}

	// The absolute gap between the Mar 9 and Mar 10 starts is 23h, not 24h.
	instants := s.All()
	assert.Equal(t, 23*time.Hour, instants[1].Start.Sub(instants[0].Start))
}

func TestScheduleMultiDayEventKeepsSpan(t *testing.T) {
	// An event running 22:00 to 02:00 the next day.
	rule := Rule{Pattern: Daily, Interval: 7, Termination: EndAfter(2)}
	s := mustSchedule(t, rule, datetime(2024, 5, 3, 22, 0), datetime(2024, 5, 4, 2, 0), time.UTC)

	in := s.InstantAt(1)
	assert.Equal(t, date(2024, 5, 10), civil.DateOf(in.Start))
	assert.Equal(t, date(2024, 5, 11), civil.DateOf(in.End))
	assert.Equal(t, 4*time.Hour, in.End.Sub(in.Start))
}

func TestScheduleRejectsRuleOverLimit(t *testing.T) {
	_, err := NewSchedule(
		Rule{Pattern: Daily, Interval: 1, Termination: EndAfter(MaxOccurrences + 1)},
		datetime(2024, 1, 1, 9, 0), datetime(2024, 1, 1, 10, 0), time.UTC,
	)
	require.ErrorIs(t, err, ErrTooManyOccurrences)

	// A far-future until date is equally pathological.
	_, err = NewSchedule(
		Rule{Pattern: Daily, Interval: 1, Termination: EndOnDate(date(2100, 1, 1))},
		datetime(2024, 1, 1, 9, 0), datetime(2024, 1, 1, 10, 0), time.UTC,
	)
	require.ErrorIs(t, err, ErrTooManyOccurrences)
}

func TestScheduleRejectsInvertedAnchor(t *testing.T) {
	_, err := NewSchedule(
		Rule{Pattern: Daily, Interval: 1, Termination: EndAfter(1)},
		datetime(2024, 1, 1, 10, 0), datetime(2024, 1, 1, 9, 0), time.UTC,
	)
	require.Error(t, err)
}
