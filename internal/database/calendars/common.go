package calendars

import "github.com/kalendo/calendar-backend/internal/database"

type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

var baseQuery = database.PSQL.
	Select("id",
		"user_id",
		"name",
		"timezone",
		"color",
	).
	From(database.CalendarsTable)
