package recurrence

import (
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/civil"
)

// Instant is one generated occurrence of a schedule: the k-th repetition of
// the anchor, projected to absolute time through the calendar's location.
type Instant struct {
	Index int
	Start time.Time
	End   time.Time
}

// Schedule binds a validated rule to its anchor occurrence and location. It
// enumerates occurrence instants deterministically: the date of occurrence k
// is a pure function of rule and anchor, never of wall-clock now or of
// previously generated output, so override indices stay valid across process
// restarts.
//
// Civil dates advance per pattern; the anchor's wall-clock start and end
// times are kept for every occurrence, so a DST transition shifts the
// absolute duration, never the local meeting time.
type Schedule struct {
	rule       Rule
	anchorDate civil.Date
	startTime  civil.Time
	endTime    civil.Time
	endOffset  int // whole days between anchor start and end dates
	loc        *time.Location

	// weekly enumeration state, precomputed from the anchor
	weekStart civil.Date   // Sunday of the anchor's week
	weekDays  []civil.Date // in-set dates of the anchor week, on or after the anchor
	setDays   []time.Weekday

	total int
}

// NewSchedule validates the rule against the anchor and precomputes the
// schedule's total length. The anchor is the first authored occurrence in the
// calendar's local civil time; loc is the calendar's IANA location.
func NewSchedule(rule Rule, anchorStart, anchorEnd civil.DateTime, loc *time.Location) (*Schedule, error) {
	if loc == nil {
		loc = time.UTC
	}
	if !anchorStart.Date.IsValid() || !anchorEnd.Date.IsValid() {
		return nil, fmt.Errorf("recurrence: invalid anchor date")
	}
	if !anchorStart.Before(anchorEnd) {
		return nil, fmt.Errorf("recurrence: anchor end must be after anchor start")
	}
	if err := rule.Validate(anchorStart.Date); err != nil {
		return nil, err
	}

	s := &Schedule{
		rule:       rule,
		anchorDate: anchorStart.Date,
		startTime:  anchorStart.Time,
		endTime:    anchorEnd.Time,
		endOffset:  anchorEnd.Date.DaysSince(anchorStart.Date),
		loc:        loc,
	}

	if rule.Pattern == Weekly {
		s.weekStart = anchorStart.Date.AddDays(-int(weekdayOf(anchorStart.Date)))
		s.setDays = rule.Days.Days()
		for _, d := range s.setDays {
			date := s.weekStart.AddDays(int(d))
			if !date.Before(s.anchorDate) {
				s.weekDays = append(s.weekDays, date)
			}
		}
	}

	if err := s.computeTotal(); err != nil {
		return nil, err
	}

	return s, nil
}

// Total is the number of instants the schedule produces. Always finite: COUNT
// bounds it directly, UNTIL is resolved to a length at construction time.
func (s *Schedule) Total() int {
	return s.total
}

func (s *Schedule) computeTotal() error {
	if count, ok := s.rule.Termination.Count(); ok {
		s.total = count
		return nil
	}

	until, _ := s.rule.Termination.Until()

	// Occurrence dates increase strictly with the index, so the length is
	// the first index whose date passes the until date.
	total := sort.Search(MaxOccurrences+1, func(k int) bool {
		return s.DateAt(k).After(until)
	})
	if total > MaxOccurrences {
		return fmt.Errorf("%w: until %s spans more than %d occurrences",
			ErrTooManyOccurrences, until, MaxOccurrences)
	}

	s.total = total
	return nil
}

// DateAt returns the civil date of occurrence k, ignoring termination. It is
// strictly increasing in k.
func (s *Schedule) DateAt(k int) civil.Date {
	switch s.rule.Pattern {
	case Daily:
		return s.anchorDate.AddDays(k * s.rule.Interval)

	case Weekly:
		// The anchor week may contribute fewer days than the full set:
		// in-set days before the anchor are skipped, and when the set
		// excludes the anchor's own weekday the anchor occurrence is
		// dropped entirely and enumeration starts at the next set day.
		if k < len(s.weekDays) {
			return s.weekDays[k]
		}
		j := k - len(s.weekDays)
		week := 1 + j/len(s.setDays)
		day := s.setDays[j%len(s.setDays)]
		return s.weekStart.AddDays(week*s.rule.Interval*7 + int(day))

	case Monthly:
		return addMonthsClamped(s.anchorDate, k*s.rule.Interval)

	case Yearly:
		return addMonthsClamped(s.anchorDate, k*s.rule.Interval*12)

	default:
		panic(fmt.Sprintf("recurrence: unknown pattern %v", s.rule.Pattern))
	}
}

// InstantAt projects occurrence k to absolute start and end instants.
func (s *Schedule) InstantAt(k int) Instant {
	date := s.DateAt(k)
	return Instant{
		Index: k,
		Start: civil.DateTime{Date: date, Time: s.startTime}.In(s.loc),
		End:   civil.DateTime{Date: date.AddDays(s.endOffset), Time: s.endTime}.In(s.loc),
	}
}

// Instants returns occurrences with indices in [lo, hi), clipped to the
// schedule's bounds.
func (s *Schedule) Instants(lo, hi int) []Instant {
	if lo < 0 {
		lo = 0
	}
	if hi > s.total {
		hi = s.total
	}
	if lo >= hi {
		return nil
	}

	res := make([]Instant, 0, hi-lo)
	for k := lo; k < hi; k++ {
		res = append(res, s.InstantAt(k))
	}
	return res
}

// All enumerates the whole schedule from index 0.
func (s *Schedule) All() []Instant {
	return s.Instants(0, s.total)
}

// indexRange bounds the indices whose instants can overlap [from, to],
// inclusive on both ends. Start and end instants are monotonic in the index,
// so both bounds are found by binary search instead of walking from index 0.
func (s *Schedule) indexRange(from, to time.Time) (lo, hi int) {
	lo = sort.Search(s.total, func(k int) bool {
		return !s.InstantAt(k).End.Before(from)
	})
	hi = sort.Search(s.total, func(k int) bool {
		return s.InstantAt(k).Start.After(to)
	})
	return lo, hi
}

func weekdayOf(d civil.Date) time.Weekday {
	return d.In(time.UTC).Weekday()
}

// addMonthsClamped advances a date by whole months, clamping the day to the
// target month's length: an anchor on Jan 31 lands on Feb 28 (or 29), not on
// Mar 2. This is the calendar-UI convention, not the RFC 5545 one, which
// would skip the short month.
func addMonthsClamped(d civil.Date, months int) civil.Date {
	m := int(d.Month) - 1 + months
	year := d.Year + m/12
	month := time.Month(m%12 + 1)

	day := d.Day
	if last := daysIn(year, month); day > last {
		day = last
	}

	return civil.Date{Year: year, Month: month, Day: day}
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
