// Package recurrence implements the recurring-event model and the
// occurrence-expansion engine: a typed recurrence rule, a deterministic
// timezone-aware generator, a per-index exception overlay and a windowed
// materializer. The package is pure: no I/O, no clocks, no shared state.
//
// All rule arithmetic operates on civil (wall-clock) dates and times;
// projection to absolute instants happens only at the output boundary,
// through the owning calendar's location.
package recurrence

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// Pattern is the repetition unit of a rule.
type Pattern int

const (
	Daily Pattern = iota
	Weekly
	Monthly
	Yearly
)

func (p Pattern) String() string {
	switch p {
	case Daily:
		return "DAILY"
	case Weekly:
		return "WEEKLY"
	case Monthly:
		return "MONTHLY"
	case Yearly:
		return "YEARLY"
	default:
		return fmt.Sprintf("Pattern(%d)", int(p))
	}
}

// ParsePattern maps the wire names (DAILY, WEEKLY, MONTHLY, YEARLY) to a Pattern.
func ParsePattern(s string) (Pattern, error) {
	switch strings.ToUpper(s) {
	case "DAILY":
		return Daily, nil
	case "WEEKLY":
		return Weekly, nil
	case "MONTHLY":
		return Monthly, nil
	case "YEARLY":
		return Yearly, nil
	default:
		return 0, fmt.Errorf("unknown pattern: %q", s)
	}
}

// WeekdaySet is a set of weekdays, stored as a bitmask over time.Weekday.
// Enumeration order is always Sunday through Saturday.
type WeekdaySet uint8

// Weekdays builds a set from the given days.
func Weekdays(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s |= 1 << uint(d)
	}
	return s
}

func (s WeekdaySet) Has(d time.Weekday) bool {
	return s&(1<<uint(d)) != 0
}

func (s WeekdaySet) IsEmpty() bool {
	return s == 0
}

// Days returns the set's members ordered Sunday through Saturday.
func (s WeekdaySet) Days() []time.Weekday {
	days := make([]time.Weekday, 0, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Has(d) {
			days = append(days, d)
		}
	}
	return days
}

func (s WeekdaySet) Len() int {
	return len(s.Days())
}

func (s WeekdaySet) String() string {
	names, _ := mapSlice(s.Days(), func(d time.Weekday) (string, error) {
		return strings.ToUpper(d.String()), nil
	})
	return strings.Join(names, ",")
}

// ParseWeekdays maps wire names (MONDAY, TUESDAY, ...) to a WeekdaySet.
func ParseWeekdays(names []string) (WeekdaySet, error) {
	var s WeekdaySet
	for _, n := range names {
		found := false
		for d := time.Sunday; d <= time.Saturday; d++ {
			if strings.EqualFold(n, d.String()) {
				s |= 1 << uint(d)
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown weekday: %q", n)
		}
	}
	return s, nil
}

type terminationKind int

const (
	terminationNone terminationKind = iota
	terminationCount
	terminationUntil
)

// Termination bounds a rule either by an occurrence count or by an inclusive
// end date. The zero value is unset and fails validation; values are built
// only through EndAfter and EndOnDate, so count and until can never both be
// present.
type Termination struct {
	kind  terminationKind
	count int
	until civil.Date
}

// EndAfter terminates a series after n occurrences.
func EndAfter(n int) Termination {
	return Termination{kind: terminationCount, count: n}
}

// EndOnDate terminates a series on the given civil date, inclusive.
func EndOnDate(d civil.Date) Termination {
	return Termination{kind: terminationUntil, until: d}
}

// Count reports the occurrence bound, if the termination is count-based.
func (t Termination) Count() (int, bool) {
	return t.count, t.kind == terminationCount
}

// Until reports the inclusive end date, if the termination is date-based.
func (t Termination) Until() (civil.Date, bool) {
	return t.until, t.kind == terminationUntil
}

func (t Termination) String() string {
	switch t.kind {
	case terminationCount:
		return fmt.Sprintf("COUNT=%d", t.count)
	case terminationUntil:
		return fmt.Sprintf("UNTIL=%s", t.until)
	default:
		return "UNSET"
	}
}

// Rule describes how a series repeats. A rule is immutable once attached to
// a series: changing the recurrence of an event creates a logically new
// series with a fresh series id, and existing overrides do not carry over.
type Rule struct {
	Pattern  Pattern
	Interval int
	// Days is meaningful only for Weekly rules; for other patterns it is
	// deliberately ignored rather than rejected, because the authoring UI
	// always submits the field.
	Days        WeekdaySet
	Termination Termination
}

func (r Rule) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s/%d", r.Pattern, r.Interval)
	if r.Pattern == Weekly {
		fmt.Fprintf(&b, " on %s", r.Days)
	}
	fmt.Fprintf(&b, " %s", r.Termination)
	return b.String()
}

func mapSlice[A any, B any](from []A, mapFn func(A) (B, error)) ([]B, error) {
	res := make([]B, len(from))
	for i, el := range from {
		var err error
		res[i], err = mapFn(el)
		if err != nil {
			return nil, err
		}
	}

	return res, nil
}
