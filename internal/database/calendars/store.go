package calendars

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4"
	"github.com/kalendo/calendar-backend/internal/database"
	"github.com/kalendo/calendar-backend/internal/model"
)

type calendarDTO struct {
	ID       int64
	UserID   int64
	Name     string
	Timezone string
	Color    string
}

func mapToCalendar(dto *calendarDTO) *model.Calendar {
	return &model.Calendar{
		ID: dto.ID,
		CalendarCreate: model.CalendarCreate{
			UserID:   dto.UserID,
			Name:     dto.Name,
			Timezone: dto.Timezone,
			Color:    dto.Color,
		},
	}
}

func (*Repository) CreateCalendar(ctx context.Context, q database.Queryable, cal *model.CalendarCreate) (int64, error) {
	qb := database.PSQL.
		Insert(database.CalendarsTable).
		Columns("user_id", "name", "timezone", "color").
		Values(cal.UserID, cal.Name, cal.Timezone, cal.Color).
		Suffix("returning id")

	var id int64
	if err := q.Get(ctx, &id, qb); err != nil {
		return 0, fmt.Errorf("SQL request: %w", err)
	}

	return id, nil
}

func (*Repository) GetCalendarByID(ctx context.Context, q database.Queryable, id int64) (*model.Calendar, error) {
	qb := baseQuery.
		Where(sq.Eq{"id": id})

	dto := &calendarDTO{}
	if err := q.Get(ctx, dto, qb); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNoRecord
		}
		return nil, fmt.Errorf("SQL request: %w", err)
	}

	return mapToCalendar(dto), nil
}

func (*Repository) GetCalendarsByUser(ctx context.Context, q database.Queryable, userID int64) ([]*model.Calendar, error) {
	qb := baseQuery.
		Where(sq.Eq{"user_id": userID}).
		OrderBy("id")

	var dtos []*calendarDTO
	if err := q.Select(ctx, &dtos, qb); err != nil {
		return nil, fmt.Errorf("SQL request: %w", err)
	}

	res := make([]*model.Calendar, len(dtos))
	for i, d := range dtos {
		res[i] = mapToCalendar(d)
	}

	return res, nil
}

func (*Repository) DeleteCalendar(ctx context.Context, q database.Queryable, id int64) error {
	qb := database.PSQL.
		Delete(database.CalendarsTable).
		Where(sq.Eq{"id": id})

	if _, err := q.Exec(ctx, qb); err != nil {
		return fmt.Errorf("SQL request: %w", err)
	}

	return nil
}
