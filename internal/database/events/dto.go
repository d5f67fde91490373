package events

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/kalendo/calendar-backend/internal/model"
	"github.com/kalendo/calendar-backend/internal/recurrence"
)

type eventDTO struct {
	ID             int64
	CalendarID     int64
	SeriesID       *string
	Version        int64
	Subject        string
	Description    string
	Location       string
	Status         string
	AllDay         bool
	StartLocal     time.Time // civil time, stored without offset
	EndLocal       time.Time
	RecurrenceRule *string
	WindowStart    time.Time
	WindowEnd      time.Time
}

func mapToEvent(dto *eventDTO) (*model.Event, error) {
	var rule *recurrence.Rule
	if dto.RecurrenceRule != nil && *dto.RecurrenceRule != "" {
		r, err := recurrence.DecodeRRule(*dto.RecurrenceRule)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", dto.ID, err)
		}
		rule = &r
	}

	seriesID := ""
	if dto.SeriesID != nil {
		seriesID = *dto.SeriesID
	}

	return &model.Event{
		ID:          dto.ID,
		SeriesID:    seriesID,
		Version:     dto.Version,
		WindowStart: dto.WindowStart,
		WindowEnd:   dto.WindowEnd,
		EventCreate: model.EventCreate{
			CalendarID:  dto.CalendarID,
			Subject:     dto.Subject,
			Description: dto.Description,
			Location:    dto.Location,
			Status:      dto.Status,
			AllDay:      dto.AllDay,
			Start:       civil.DateTimeOf(dto.StartLocal),
			End:         civil.DateTimeOf(dto.EndLocal),
			Recurrence:  rule,
		},
	}, nil
}

func ruleColumn(event *model.Event) (*string, error) {
	if event.Recurrence == nil {
		return nil, nil
	}

	encoded, err := recurrence.EncodeRRule(*event.Recurrence, event.WindowStart)
	if err != nil {
		return nil, fmt.Errorf("encode rule: %w", err)
	}
	return &encoded, nil
}

func seriesColumn(event *model.Event) *string {
	if event.SeriesID == "" {
		return nil
	}
	s := event.SeriesID
	return &s
}

func localTime(dt civil.DateTime) time.Time {
	return dt.In(time.UTC)
}
