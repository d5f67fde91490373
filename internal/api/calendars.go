package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/kalendo/calendar-backend/internal/business/calendars"
	"github.com/kalendo/calendar-backend/internal/model"
	"github.com/kalendo/calendar-backend/internal/pkg/timezone"
	"github.com/kalendo/calendar-backend/internal/pkg/validator"
)

var errCantRetrieveCalendar = errors.New("can't retrieve calendar from context")

func (a *Api) createCalendarHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(contextKeyID).(int64)
	if !ok {
		a.serverErrorResponse(w, r, errCantRetrieveID)
		return
	}

	req := &struct {
		Name     string `json:"name"`
		Timezone string `json:"timezone"`
		Color    string `json:"color"`
	}{}

	if err := a.readJSON(w, r, req); err != nil {
		a.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	v.Check(len(req.Name) != 0, "name", "name must be provided")
	v.Check(timezone.Valid(req.Timezone), "timezone", "must be a valid IANA timezone")

	if !v.Valid() {
		a.failedValidationResponse(w, r, v.Errors)
		return
	}

	cal, err := a.calendars.CreateCalendar(r.Context(), &model.CalendarCreate{
		UserID:   userID,
		Name:     req.Name,
		Timezone: req.Timezone,
		Color:    req.Color,
	})
	if err != nil {
		switch {
		case errors.Is(err, calendars.ErrInvalidTimezone):
			a.unprocessableResponse(w, r, err)
		default:
			a.serverErrorResponse(w, r, fmt.Errorf("create calendar: %w", err))
		}
		return
	}

	resp, _ := mapToCalendarResp(cal)
	if err := a.writeJSON(w, http.StatusCreated, resp, nil); err != nil {
		a.serverErrorResponse(w, r, err)
	}
}

func (a *Api) getCalendarsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(contextKeyID).(int64)
	if !ok {
		a.serverErrorResponse(w, r, errCantRetrieveID)
		return
	}

	cals, err := a.calendars.GetCalendars(r.Context(), userID)
	if err != nil {
		a.serverErrorResponse(w, r, fmt.Errorf("get calendars: %w", err))
		return
	}

	resp, _ := mapSlice(cals, mapToCalendarResp)
	if err := a.writeJSON(w, http.StatusOK, resp, nil); err != nil {
		a.serverErrorResponse(w, r, err)
	}
}

func (a *Api) deleteCalendarHandler(w http.ResponseWriter, r *http.Request) {
	cal, ok := r.Context().Value(contextKeyCalendar).(*model.Calendar)
	if !ok {
		a.serverErrorResponse(w, r, errCantRetrieveCalendar)
		return
	}

	if err := a.calendars.DeleteCalendar(r.Context(), cal.ID); err != nil {
		a.serverErrorResponse(w, r, fmt.Errorf("delete calendar: %w", err))
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (a *Api) exportCalendarHandler(w http.ResponseWriter, r *http.Request) {
	cal, ok := r.Context().Value(contextKeyCalendar).(*model.Calendar)
	if !ok {
		a.serverErrorResponse(w, r, errCantRetrieveCalendar)
		return
	}

	ics, err := a.calendars.ExportICS(r.Context(), cal.ID)
	if err != nil {
		a.serverErrorResponse(w, r, fmt.Errorf("export calendar: %w", err))
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", cal.Name+".ics"))
	w.WriteHeader(http.StatusOK)
	w.Write(ics)
}

func (a *Api) getTimezonesHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.writeJSON(w, http.StatusOK, timezone.Available(), nil); err != nil {
		a.serverErrorResponse(w, r, err)
	}
}
