// Package google imports a user's Google Calendar into a local calendar.
// Google expands recurrences server-side, so every imported item lands as a
// single event; local series stay the engine's business.
package google

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/kalendo/calendar-backend/internal/model"
	"github.com/kalendo/calendar-backend/internal/pkg/gcal"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

type Service struct {
	logger    *zap.SugaredLogger
	client    gcalClient
	tokens    tokenRepository
	events    eventsService
	calendars calendarsService
}

type gcalClient interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, authCode string) (*oauth2.Token, error)
	Events(ctx context.Context, token *oauth2.Token, from, to time.Time) ([]*gcal.RemoteEvent, error)
}

type tokenRepository interface {
	Add(ctx context.Context, userID int64, token []byte) error
	Get(ctx context.Context, userID int64) ([]byte, error)
}

type eventsService interface {
	CreateEvent(ctx context.Context, info *model.EventCreate) (*model.Event, error)
}

type calendarsService interface {
	GetCalendarByID(ctx context.Context, id int64) (*model.Calendar, error)
}

func NewService(logger *zap.SugaredLogger, client gcalClient, tokens tokenRepository, events eventsService, calendars calendarsService) *Service {
	return &Service{
		logger:    logger,
		client:    client,
		tokens:    tokens,
		events:    events,
		calendars: calendars,
	}
}

func (s *Service) AuthURL(state string) string {
	return s.client.AuthURL(state)
}

// Connect exchanges the consent code and stores the user's token.
func (s *Service) Connect(ctx context.Context, userID int64, authCode string) error {
	token, err := s.client.Exchange(ctx, authCode)
	if err != nil {
		return fmt.Errorf("exchange auth code: %w", err)
	}

	raw, err := gcal.MarshalToken(token)
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}

	if err := s.tokens.Add(ctx, userID, []byte(raw)); err != nil {
		return fmt.Errorf("tokenRepository.Add: %w", err)
	}

	return nil
}

// Sync imports the user's primary Google calendar into calendarID. Items
// that collide with an existing occurrence are skipped, not errors: re-running
// a sync must not duplicate what the previous run brought in.
func (s *Service) Sync(ctx context.Context, userID, calendarID int64, from, to time.Time) (int, error) {
	raw, err := s.tokens.Get(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("tokenRepository.Get: %w", err)
	}
	token, err := gcal.UnmarshalToken(string(raw))
	if err != nil {
		return 0, fmt.Errorf("unmarshal token: %w", err)
	}

	cal, err := s.calendars.GetCalendarByID(ctx, calendarID)
	if err != nil {
		return 0, fmt.Errorf("calendars.GetCalendarByID: %w", err)
	}
	loc, err := cal.Location()
	if err != nil {
		return 0, fmt.Errorf("calendar %d timezone: %w", cal.ID, err)
	}

	remote, err := s.client.Events(ctx, token, from, to)
	if err != nil {
		return 0, fmt.Errorf("list remote events: %w", err)
	}

	imported := 0
	for _, re := range remote {
		_, err := s.events.CreateEvent(ctx, &model.EventCreate{
			CalendarID:  calendarID,
			Subject:     re.Summary,
			Description: re.Description,
			Location:    re.Location,
			Status:      model.StatusConfirmed,
			AllDay:      re.AllDay,
			Start:       civil.DateTimeOf(re.Start.In(loc)),
			End:         civil.DateTimeOf(re.End.In(loc)),
		})
		switch {
		case errors.Is(err, model.ErrConflict):
			s.logger.Infow("Skipping conflicting remote event", "subject", re.Summary, "start", re.Start)
		case err != nil:
			return imported, fmt.Errorf("import %q: %w", re.Summary, err)
		default:
			imported++
		}
	}

	return imported, nil
}
