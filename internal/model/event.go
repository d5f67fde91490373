package model

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/kalendo/calendar-backend/internal/recurrence"
)

const (
	StatusConfirmed = "CONFIRMED"
	StatusTentative = "TENTATIVE"
	StatusCancelled = "CANCELLED"
)

type EventCreate struct {
	CalendarID  int64
	Subject     string
	Description string
	Location    string
	Status      string
	AllDay      bool
	// Start and End are the anchor occurrence in the owning calendar's
	// local civil time; the calendar's timezone supplies the offset.
	Start      civil.DateTime
	End        civil.DateTime
	Recurrence *recurrence.Rule
}

// Event is a stored row: a single event, or the master of a recurring series.
// The recurrence rule is immutable once attached — editing it recreates the
// series under a fresh SeriesID and drops its overrides.
type Event struct {
	ID       int64
	SeriesID string // uuid, empty for non-recurring events
	// Version is bumped on every rule or override mutation, in the same
	// transaction, so cached materializations invalidate atomically.
	Version int64
	// WindowStart and WindowEnd are the absolute bounds of the whole
	// series (first occurrence start, last occurrence end), precomputed at
	// write time so windowed queries filter in SQL. Always finite: every
	// rule terminates by count or date.
	WindowStart time.Time
	WindowEnd   time.Time
	EventCreate
}

func (e *Event) Recurring() bool {
	return e.Recurrence != nil
}

// Override is a stored per-occurrence exception, keyed by the occurrence's
// index in the series' enumeration.
type Override struct {
	EventID   int64
	Index     int
	Cancelled bool
	Fields    recurrence.OverrideFields
}

// Occurrence is one materialized calendar entry. Transient: owned by the
// caller of the materializer and recomputed on every query.
type Occurrence struct {
	EventID     int64
	SeriesID    string
	Recurring   bool
	Index       int
	Subject     string
	Description string
	Location    string
	Status      string
	AllDay      bool
	Start       time.Time
	End         time.Time
	Modified    bool
}

type EventsFilter struct {
	From        time.Time
	To          time.Time
	CalendarIDs []int64
}
