package recurrence

import (
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
)

// MaxOccurrences caps how many instants a single series may produce. A rule
// that would exceed it is rejected up front instead of letting a pathological
// COUNT or a far-future UNTIL hang a windowed query.
const MaxOccurrences = 1000

var (
	ErrInvalidInterval      = errors.New("recurrence: interval must be at least 1")
	ErrMissingWeekdays      = errors.New("recurrence: weekly rule requires at least one weekday")
	ErrAmbiguousTermination = errors.New("recurrence: exactly one of count or until date must be set")
	ErrNonPositiveCount     = errors.New("recurrence: occurrence count must be positive")
	ErrUntilBeforeAnchor    = errors.New("recurrence: until date is before the first occurrence")
	ErrTooManyOccurrences   = errors.New("recurrence: rule exceeds the occurrence limit")
)

// Validate checks a rule against the anchor's civil date. It is pure and has
// no side effects; a rule that passes here never makes the generator fail.
func (r Rule) Validate(anchor civil.Date) error {
	if r.Interval < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidInterval, r.Interval)
	}

	if r.Pattern == Weekly && r.Days.IsEmpty() {
		return ErrMissingWeekdays
	}

	count, hasCount := r.Termination.Count()
	until, hasUntil := r.Termination.Until()

	switch {
	case !hasCount && !hasUntil:
		return ErrAmbiguousTermination
	case hasCount && count <= 0:
		return fmt.Errorf("%w: got %d", ErrNonPositiveCount, count)
	case hasCount && count > MaxOccurrences:
		return fmt.Errorf("%w: count %d > %d", ErrTooManyOccurrences, count, MaxOccurrences)
	case hasUntil && until.Before(anchor):
		return fmt.Errorf("%w: until %s, anchor %s", ErrUntilBeforeAnchor, until, anchor)
	}

	return nil
}
