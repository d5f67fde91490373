package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4"
	"github.com/kalendo/calendar-backend/internal/database"
	"github.com/kalendo/calendar-backend/internal/model"
)

// UpdateEvent rewrites every column except version, which only moves through
// IncrementVersion.
func (*Repository) UpdateEvent(ctx context.Context, q database.Queryable, event *model.Event) error {
	rule, err := ruleColumn(event)
	if err != nil {
		return err
	}

	qb := database.PSQL.
		Update(database.EventsTable).
		SetMap(map[string]interface{}{
			"calendar_id":     event.CalendarID,
			"series_id":       seriesColumn(event),
			"subject":         event.Subject,
			"description":     event.Description,
			"location":        event.Location,
			"status":          event.Status,
			"all_day":         event.AllDay,
			"start_local":     localTime(event.Start),
			"end_local":       localTime(event.End),
			"recurrence_rule": rule,
			"window_start":    event.WindowStart,
			"window_end":      event.WindowEnd,
		}).
		Where(sq.Eq{"id": event.ID})

	if _, err := q.Exec(ctx, qb); err != nil {
		return fmt.Errorf("SQL request: %w", err)
	}

	return nil
}

// UpdateWindow rewrites the precomputed series bounds. Override writes call
// it when a moved occurrence falls outside the schedule's own span, so the
// windowed SQL prefilter keeps matching the master row.
func (*Repository) UpdateWindow(ctx context.Context, q database.Queryable, id int64, start, end time.Time) error {
	qb := database.PSQL.
		Update(database.EventsTable).
		SetMap(map[string]interface{}{
			"window_start": start,
			"window_end":   end,
		}).
		Where(sq.Eq{"id": id})

	if _, err := q.Exec(ctx, qb); err != nil {
		return fmt.Errorf("SQL request: %w", err)
	}

	return nil
}

// IncrementVersion bumps the event's version and returns the new value. Rule
// and override mutations call it inside their transaction so concurrent
// readers never pair a new rule with stale overrides.
func (*Repository) IncrementVersion(ctx context.Context, q database.Queryable, id int64) (int64, error) {
	qb := database.PSQL.
		Update(database.EventsTable).
		Set("version", sq.Expr("version + 1")).
		Where(sq.Eq{"id": id}).
		Suffix("returning version")

	var version int64
	if err := q.Get(ctx, &version, qb); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, model.ErrNoRecord
		}
		return 0, fmt.Errorf("SQL request: %w", err)
	}

	return version, nil
}
