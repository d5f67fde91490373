package events

import (
	"context"
	"errors"
	"time"

	"github.com/kalendo/calendar-backend/internal/database"
	"github.com/kalendo/calendar-backend/internal/model"
	"go.uber.org/zap"
)

// ErrIndexOutOfRange is returned when an occurrence operation targets an
// index the series never generates.
var ErrIndexOutOfRange = errors.New("occurrence index out of range")

type Service struct {
	db        database.PGX
	logger    *zap.SugaredLogger
	events    eventsRepository
	overrides overridesRepository
	calendars calendarsRepository
	cache     occurrenceCache
}

type eventsRepository interface {
	CreateEvent(ctx context.Context, q database.Queryable, event *model.Event) (int64, error)
	GetEventByID(ctx context.Context, q database.Queryable, id int64) (*model.Event, error)
	GetEvents(ctx context.Context, q database.Queryable, filter model.EventsFilter) ([]*model.Event, error)
	UpdateEvent(ctx context.Context, q database.Queryable, event *model.Event) error
	UpdateWindow(ctx context.Context, q database.Queryable, id int64, start, end time.Time) error
	DeleteEvent(ctx context.Context, q database.Queryable, id int64) error
	IncrementVersion(ctx context.Context, q database.Queryable, id int64) (int64, error)
}

type overridesRepository interface {
	UpsertOverride(ctx context.Context, q database.Queryable, o *model.Override) error
	GetOverrides(ctx context.Context, q database.Queryable, eventID int64) ([]*model.Override, error)
	DeleteOverrides(ctx context.Context, q database.Queryable, eventID int64) error
}

type calendarsRepository interface {
	GetCalendarByID(ctx context.Context, q database.Queryable, id int64) (*model.Calendar, error)
}

type occurrenceCache interface {
	Get(ctx context.Context, eventID, version int64, from, to time.Time) ([]model.Occurrence, error)
	Set(ctx context.Context, eventID, version int64, from, to time.Time, occurrences []model.Occurrence) error
}

func NewService(
	db database.PGX,
	logger *zap.SugaredLogger,
	events eventsRepository,
	overrides overridesRepository,
	calendars calendarsRepository,
	cache occurrenceCache,
) *Service {
	return &Service{
		db:        db,
		logger:    logger,
		events:    events,
		overrides: overrides,
		calendars: calendars,
		cache:     cache,
	}
}
