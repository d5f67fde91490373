package user

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/kalendo/calendar-backend/internal/database"
	"github.com/kalendo/calendar-backend/internal/model"
)

type userDTO struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
}

func mapToUser(dto *userDTO) *model.User {
	return &model.User{
		ID: dto.ID,
		UserCreate: model.UserCreate{
			Username:     dto.Username,
			Email:        dto.Email,
			PasswordHash: dto.PasswordHash,
		},
	}
}

func (*Repository) CreateUser(ctx context.Context, q database.Queryable, user *model.UserCreate) (int64, error) {
	qb := database.PSQL.
		Insert(database.UsersTable).
		Columns("username", "email", "password_hash").
		Values(user.Username, user.Email, user.PasswordHash).
		Suffix("returning id")

	var id int64
	if err := q.Get(ctx, &id, qb); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, model.ErrAlreadyExists
		}
		return 0, fmt.Errorf("SQL request: %w", err)
	}

	return id, nil
}

func (*Repository) GetUserByID(ctx context.Context, q database.Queryable, id int64) (*model.User, error) {
	return getOne(ctx, q, sq.Eq{"id": id})
}

func (*Repository) GetUserByEmail(ctx context.Context, q database.Queryable, email string) (*model.User, error) {
	return getOne(ctx, q, sq.Eq{"email": email})
}

func (*Repository) GetUserByUsername(ctx context.Context, q database.Queryable, username string) (*model.User, error) {
	return getOne(ctx, q, sq.Eq{"username": username})
}

func getOne(ctx context.Context, q database.Queryable, where sq.Eq) (*model.User, error) {
	dto := &userDTO{}
	if err := q.Get(ctx, dto, baseQuery.Where(where)); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNoRecord
		}
		return nil, fmt.Errorf("SQL request: %w", err)
	}

	return mapToUser(dto), nil
}
