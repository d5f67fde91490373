package overrides

import "github.com/kalendo/calendar-backend/internal/database"

type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

var baseQuery = database.PSQL.
	Select("event_id",
		"occurrence_index",
		"cancelled",
		"subject",
		"description",
		"location",
		"all_day",
		"start_local",
		"end_local",
	).
	From(database.OverridesTable)
