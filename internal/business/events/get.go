package events

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/kalendo/calendar-backend/internal/model"
)

func (s *Service) GetEventByID(ctx context.Context, id int64) (*model.Event, error) {
	event, err := s.events.GetEventByID(ctx, s.db, id)
	if err != nil {
		return nil, fmt.Errorf("eventsRepository.GetEventByID: %w", err)
	}
	return event, nil
}

// GetOccurrences materializes every occurrence intersecting [filter.From,
// filter.To] across the filter's calendars. Recurring series go through the
// per-event window cache; its entries are keyed by event version, so a
// mutation never serves stale output.
func (s *Service) GetOccurrences(ctx context.Context, filter model.EventsFilter) ([]model.Occurrence, error) {
	baseEvents, err := s.events.GetEvents(ctx, s.db, filter)
	if err != nil {
		return nil, fmt.Errorf("eventsRepository.GetEvents: %w", err)
	}

	var res []model.Occurrence
	for _, e := range baseEvents {
		occurrences, err := s.eventOccurrences(ctx, e, filter)
		if err != nil {
			return nil, err
		}
		res = append(res, occurrences...)
	}

	sort.SliceStable(res, func(i, j int) bool {
		return res[i].Start.Before(res[j].Start)
	})

	return res, nil
}

func (s *Service) eventOccurrences(ctx context.Context, event *model.Event, filter model.EventsFilter) ([]model.Occurrence, error) {
	if !event.Recurring() {
		return s.occurrencesForEvent(ctx, s.db, event, filter.From, filter.To)
	}

	cached, err := s.cache.Get(ctx, event.ID, event.Version, filter.From, filter.To)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, model.ErrNoRecord) {
		s.logger.Warnw("Occurrence cache lookup failed", "event_id", event.ID, "err", err)
	}

	occurrences, err := s.occurrencesForEvent(ctx, s.db, event, filter.From, filter.To)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, event.ID, event.Version, filter.From, filter.To, occurrences); err != nil {
		s.logger.Warnw("Occurrence cache write failed", "event_id", event.ID, "err", err)
	}

	return occurrences, nil
}
