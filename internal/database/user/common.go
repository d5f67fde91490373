package user

import "github.com/kalendo/calendar-backend/internal/database"

type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

var baseQuery = database.PSQL.
	Select(
		"id",
		"username",
		"email",
		"password_hash",
	).
	From(database.UsersTable)
