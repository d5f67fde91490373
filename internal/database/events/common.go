package events

import "github.com/kalendo/calendar-backend/internal/database"

type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

var baseQuery = database.PSQL.
	Select("id",
		"calendar_id",
		"series_id",
		"version",
		"subject",
		"description",
		"location",
		"status",
		"all_day",
		"start_local",
		"end_local",
		"recurrence_rule",
		"window_start",
		"window_end",
	).
	From(database.EventsTable)
