package model

import "time"

type CalendarCreate struct {
	UserID   int64
	Name     string
	Timezone string
	Color    string
}

type Calendar struct {
	ID int64
	CalendarCreate
}

// Location resolves the calendar's IANA timezone identifier. Every civil
// date-time owned by the calendar is projected to instants through it.
func (c *Calendar) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}
