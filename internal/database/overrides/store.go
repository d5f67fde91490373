package overrides

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/kalendo/calendar-backend/internal/database"
	"github.com/kalendo/calendar-backend/internal/model"
)

// UpsertOverride writes an exception for one occurrence: a later write for
// the same (event, index) fully replaces the earlier one.
func (*Repository) UpsertOverride(ctx context.Context, q database.Queryable, o *model.Override) error {
	start, end := localTimes(o)

	qb := database.PSQL.
		Insert(database.OverridesTable).
		Columns(
			"event_id",
			"occurrence_index",
			"cancelled",
			"subject",
			"description",
			"location",
			"all_day",
			"start_local",
			"end_local",
		).
		Values(
			o.EventID,
			o.Index,
			o.Cancelled,
			o.Fields.Subject,
			o.Fields.Description,
			o.Fields.Location,
			o.Fields.AllDay,
			start,
			end,
		).
		Suffix(`on conflict (event_id, occurrence_index) do update set
			cancelled = excluded.cancelled,
			subject = excluded.subject,
			description = excluded.description,
			location = excluded.location,
			all_day = excluded.all_day,
			start_local = excluded.start_local,
			end_local = excluded.end_local`)

	if _, err := q.Exec(ctx, qb); err != nil {
		return fmt.Errorf("SQL request: %w", err)
	}

	return nil
}

func (*Repository) GetOverrides(ctx context.Context, q database.Queryable, eventID int64) ([]*model.Override, error) {
	qb := baseQuery.
		Where(sq.Eq{"event_id": eventID}).
		OrderBy("occurrence_index")

	var dtos []*overrideDTO
	if err := q.Select(ctx, &dtos, qb); err != nil {
		return nil, fmt.Errorf("SQL request: %w", err)
	}

	res := make([]*model.Override, len(dtos))
	for i, d := range dtos {
		res[i] = mapToOverride(d)
	}

	return res, nil
}

// DeleteOverrides drops every exception of a series, used when a rule edit
// recreates the series and the old indices lose meaning.
func (*Repository) DeleteOverrides(ctx context.Context, q database.Queryable, eventID int64) error {
	qb := database.PSQL.
		Delete(database.OverridesTable).
		Where(sq.Eq{"event_id": eventID})

	if _, err := q.Exec(ctx, qb); err != nil {
		return fmt.Errorf("SQL request: %w", err)
	}

	return nil
}
