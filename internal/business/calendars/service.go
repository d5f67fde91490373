package calendars

import (
	"context"
	"errors"
	"fmt"

	"github.com/kalendo/calendar-backend/internal/database"
	"github.com/kalendo/calendar-backend/internal/model"
	"github.com/kalendo/calendar-backend/internal/pkg/timezone"
)

// ErrInvalidTimezone is returned when a calendar names a timezone the host
// tz database cannot resolve.
var ErrInvalidTimezone = errors.New("unknown timezone")

type Service struct {
	db        database.PGX
	calendars calendarsRepository
	events    eventsRepository
	overrides overridesRepository
}

type calendarsRepository interface {
	CreateCalendar(ctx context.Context, q database.Queryable, cal *model.CalendarCreate) (int64, error)
	GetCalendarByID(ctx context.Context, q database.Queryable, id int64) (*model.Calendar, error)
	GetCalendarsByUser(ctx context.Context, q database.Queryable, userID int64) ([]*model.Calendar, error)
	DeleteCalendar(ctx context.Context, q database.Queryable, id int64) error
}

type eventsRepository interface {
	GetEventsByCalendar(ctx context.Context, q database.Queryable, calendarID int64) ([]*model.Event, error)
	DeleteEventsByCalendar(ctx context.Context, q database.Queryable, calendarID int64) error
}

type overridesRepository interface {
	GetOverrides(ctx context.Context, q database.Queryable, eventID int64) ([]*model.Override, error)
	DeleteOverrides(ctx context.Context, q database.Queryable, eventID int64) error
}

func NewService(db database.PGX, calendars calendarsRepository, events eventsRepository, overrides overridesRepository) *Service {
	return &Service{
		db:        db,
		calendars: calendars,
		events:    events,
		overrides: overrides,
	}
}

func (s *Service) CreateCalendar(ctx context.Context, info *model.CalendarCreate) (*model.Calendar, error) {
	if !timezone.Valid(info.Timezone) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, info.Timezone)
	}

	id, err := s.calendars.CreateCalendar(ctx, s.db, info)
	if err != nil {
		return nil, fmt.Errorf("calendarsRepository.CreateCalendar: %w", err)
	}

	return &model.Calendar{ID: id, CalendarCreate: *info}, nil
}

func (s *Service) GetCalendarByID(ctx context.Context, id int64) (*model.Calendar, error) {
	cal, err := s.calendars.GetCalendarByID(ctx, s.db, id)
	if err != nil {
		return nil, fmt.Errorf("calendarsRepository.GetCalendarByID: %w", err)
	}
	return cal, nil
}

func (s *Service) GetCalendars(ctx context.Context, userID int64) ([]*model.Calendar, error) {
	cals, err := s.calendars.GetCalendarsByUser(ctx, s.db, userID)
	if err != nil {
		return nil, fmt.Errorf("calendarsRepository.GetCalendarsByUser: %w", err)
	}
	return cals, nil
}

// DeleteCalendar removes the calendar with all its events and their
// overrides in one transaction.
func (s *Service) DeleteCalendar(ctx context.Context, id int64) error {
	events, err := s.events.GetEventsByCalendar(ctx, s.db, id)
	if err != nil {
		return fmt.Errorf("eventsRepository.GetEventsByCalendar: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range events {
		if err := s.overrides.DeleteOverrides(ctx, tx, e.ID); err != nil {
			return fmt.Errorf("overridesRepository.DeleteOverrides: %w", err)
		}
	}

	if err := s.events.DeleteEventsByCalendar(ctx, tx, id); err != nil {
		return fmt.Errorf("eventsRepository.DeleteEventsByCalendar: %w", err)
	}

	if err := s.calendars.DeleteCalendar(ctx, tx, id); err != nil {
		return fmt.Errorf("calendarsRepository.DeleteCalendar: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}
