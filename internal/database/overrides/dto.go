package overrides

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/kalendo/calendar-backend/internal/model"
	"github.com/kalendo/calendar-backend/internal/recurrence"
)

type overrideDTO struct {
	EventID         int64
	OccurrenceIndex int
	Cancelled       bool
	Subject         *string
	Description     *string
	Location        *string
	AllDay          *bool
	StartLocal      *time.Time
	EndLocal        *time.Time
}

func mapToOverride(dto *overrideDTO) *model.Override {
	fields := recurrence.OverrideFields{
		Subject:     dto.Subject,
		Description: dto.Description,
		Location:    dto.Location,
		AllDay:      dto.AllDay,
	}
	if dto.StartLocal != nil {
		dt := civil.DateTimeOf(*dto.StartLocal)
		fields.Start = &dt
	}
	if dto.EndLocal != nil {
		dt := civil.DateTimeOf(*dto.EndLocal)
		fields.End = &dt
	}

	return &model.Override{
		EventID:   dto.EventID,
		Index:     dto.OccurrenceIndex,
		Cancelled: dto.Cancelled,
		Fields:    fields,
	}
}

func localTimes(o *model.Override) (start, end *time.Time) {
	if o.Fields.Start != nil {
		t := o.Fields.Start.In(time.UTC)
		start = &t
	}
	if o.Fields.End != nil {
		t := o.Fields.End.In(time.UTC)
		end = &t
	}
	return start, end
}
