package events

import (
	"context"
	"fmt"

	"github.com/kalendo/calendar-backend/internal/database"
	"github.com/kalendo/calendar-backend/internal/model"
)

func (*Repository) CreateEvent(ctx context.Context, q database.Queryable, event *model.Event) (int64, error) {
	rule, err := ruleColumn(event)
	if err != nil {
		return 0, err
	}

	qb := database.PSQL.
		Insert(database.EventsTable).
		Columns(
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
		Values(
			event.CalendarID,
			seriesColumn(event),
			event.Version,
			event.Subject,
			event.Description,
			event.Location,
			event.Status,
			event.AllDay,
			localTime(event.Start),
			localTime(event.End),
			rule,
			event.WindowStart,
			event.WindowEnd,
		).
		Suffix("returning id")

	var id int64
	if err := q.Get(ctx, &id, qb); err != nil {
		return 0, fmt.Errorf("SQL request: %w", err)
	}

	return id, nil
}
