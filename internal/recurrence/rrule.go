package recurrence

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/teambition/rrule-go"
)

// Rules are persisted and exported as RRULE strings (FREQ/INTERVAL/BYDAY plus
// COUNT or UNTIL), the lingua franca of calendar interchange. Expansion never
// goes through rrule-go: RFC 5545 semantics skip a Jan 31 monthly occurrence
// in a short February where this engine clamps to the month's last day, and
// overrides are keyed by the engine's own occurrence indices.

var rruleWeekdays = [7]rrule.Weekday{
	rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA,
}

// EncodeRRule renders the rule as an RRULE string. The anchor instant becomes
// DTSTART, which keeps the string self-contained for export consumers.
func EncodeRRule(r Rule, anchor time.Time) (string, error) {
	opt := rrule.ROption{
		Interval: r.Interval,
		Dtstart:  anchor.UTC(),
	}

	switch r.Pattern {
	case Daily:
		opt.Freq = rrule.DAILY
	case Weekly:
		opt.Freq = rrule.WEEKLY
	case Monthly:
		opt.Freq = rrule.MONTHLY
	case Yearly:
		opt.Freq = rrule.YEARLY
	default:
		return "", fmt.Errorf("unknown pattern: %v", r.Pattern)
	}

	if r.Pattern == Weekly {
		for _, d := range r.Days.Days() {
			opt.Byweekday = append(opt.Byweekday, rruleWeekdays[d])
		}
	}

	if count, ok := r.Termination.Count(); ok {
		opt.Count = count
	}
	if until, ok := r.Termination.Until(); ok {
		// UNTIL is inclusive of its civil date. Encode the day's last
		// second: RFC 5545 consumers compare against occurrence start
		// instants and would drop a final occurrence starting after a
		// midnight UNTIL.
		opt.Until = time.Date(until.Year, until.Month, until.Day, 23, 59, 59, 0, time.UTC)
	}

	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return "", fmt.Errorf("creating rule: %w", err)
	}

	return rule.String(), nil
}

// DecodeRRule parses a stored RRULE string back into a Rule. DTSTART inside
// the string is ignored; the anchor is kept alongside the rule.
func DecodeRRule(s string) (Rule, error) {
	opt, err := rrule.StrToROption(s)
	if err != nil {
		return Rule{}, fmt.Errorf("parse repeat rule %q: %w", s, err)
	}

	r := Rule{Interval: opt.Interval}
	if r.Interval == 0 {
		r.Interval = 1
	}

	switch opt.Freq {
	case rrule.DAILY:
		r.Pattern = Daily
	case rrule.WEEKLY:
		r.Pattern = Weekly
	case rrule.MONTHLY:
		r.Pattern = Monthly
	case rrule.YEARLY:
		r.Pattern = Yearly
	default:
		return Rule{}, fmt.Errorf("unsupported frequency in %q", s)
	}

	for _, wd := range opt.Byweekday {
		// rrule-go numbers weekdays from Monday.
		r.Days |= 1 << uint((wd.Day()+1)%7)
	}

	switch {
	case opt.Count > 0:
		r.Termination = EndAfter(opt.Count)
	case !opt.Until.IsZero():
		r.Termination = EndOnDate(civil.DateOf(opt.Until.UTC()))
	default:
		return Rule{}, fmt.Errorf("rule %q has no termination", s)
	}

	return r, nil
}
