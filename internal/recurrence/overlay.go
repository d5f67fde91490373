package recurrence

import (
	"time"

	"cloud.google.com/go/civil"
)

// OverrideAction says what an override does to its occurrence.
type OverrideAction int

const (
	// Cancelled removes the occurrence from materialized output entirely.
	Cancelled OverrideAction = iota
	// Modified replaces the generated defaults with the override's fields.
	Modified
)

// OverrideFields is the replacement field set of a Modified override. A nil
// field falls back to the series template, never to an adjacent occurrence.
// Start and End are civil date-times in the calendar's location.
type OverrideFields struct {
	Subject     *string
	Description *string
	Location    *string
	AllDay      *bool
	Start       *civil.DateTime
	End         *civil.DateTime
}

// Override is a per-occurrence exception, keyed by the occurrence's index in
// the generator's enumeration. Indices are stable under the immutable rule;
// they lose meaning on a series-level rule edit, which is why such an edit
// recreates the series and discards its overrides.
type Override struct {
	Index  int
	Action OverrideAction
	Fields OverrideFields
}

// Template carries the series master fields copied onto every occurrence
// that no override replaces.
type Template struct {
	Subject     string
	Description string
	Location    string
	AllDay      bool
}

// Occurrence is one materialized calendar entry. Transient: recomputed on
// every query, never persisted.
type Occurrence struct {
	Index       int
	Subject     string
	Description string
	Location    string
	AllDay      bool
	Start       time.Time
	End         time.Time
	Modified    bool
}

// resolve applies an override (possibly nil) on top of a generated instant.
// The second return is false when the occurrence is cancelled.
func resolve(s *Schedule, tpl Template, in Instant, ov *Override) (Occurrence, bool) {
	occ := Occurrence{
		Index:       in.Index,
		Subject:     tpl.Subject,
		Description: tpl.Description,
		Location:    tpl.Location,
		AllDay:      tpl.AllDay,
		Start:       in.Start,
		End:         in.End,
	}

	if ov == nil {
		return occ, true
	}
	if ov.Action == Cancelled {
		return Occurrence{}, false
	}

	occ.Modified = true
	if f := ov.Fields.Subject; f != nil {
		occ.Subject = *f
	}
	if f := ov.Fields.Description; f != nil {
		occ.Description = *f
	}
	if f := ov.Fields.Location; f != nil {
		occ.Location = *f
	}
	if f := ov.Fields.AllDay; f != nil {
		occ.AllDay = *f
	}
	if f := ov.Fields.Start; f != nil {
		occ.Start = f.In(s.loc)
	}
	if f := ov.Fields.End; f != nil {
		occ.End = f.In(s.loc)
	}

	return occ, true
}

// StaleOverrides returns the overrides whose indices lie at or beyond the
// schedule's total, e.g. after an edit shortened the series. They are inert
// during materialization — dropped, not an error — and are reported here so
// callers can log them.
func StaleOverrides(s *Schedule, overrides []Override) []Override {
	var stale []Override
	for _, ov := range overrides {
		if ov.Index < 0 || ov.Index >= s.total {
			stale = append(stale, ov)
		}
	}
	return stale
}

func overrideIndex(overrides []Override) map[int]*Override {
	byIndex := make(map[int]*Override, len(overrides))
	for i := range overrides {
		byIndex[overrides[i].Index] = &overrides[i]
	}
	return byIndex
}
