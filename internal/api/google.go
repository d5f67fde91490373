package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kalendo/calendar-backend/internal/model"
	"github.com/kalendo/calendar-backend/internal/pkg/validator"
)

func (a *Api) googleAuthURLHandler(w http.ResponseWriter, r *http.Request) {
	state, err := a.generateRandomString(16)
	if err != nil {
		a.serverErrorResponse(w, r, err)
		return
	}

	resp := &struct {
		URL   string `json:"url"`
		State string `json:"state"`
	}{
		URL:   a.google.AuthURL(state),
		State: state,
	}

	if err := a.writeJSON(w, http.StatusOK, resp, nil); err != nil {
		a.serverErrorResponse(w, r, err)
	}
}

func (a *Api) googleConnectHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(contextKeyID).(int64)
	if !ok {
		a.serverErrorResponse(w, r, errCantRetrieveID)
		return
	}

	req := &struct {
		AuthCode string `json:"auth_code"`
	}{}

	if err := a.readJSON(w, r, req); err != nil {
		a.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	v.Check(len(req.AuthCode) != 0, "auth_code", "auth_code must be provided")
	if !v.Valid() {
		a.failedValidationResponse(w, r, v.Errors)
		return
	}

	if err := a.google.Connect(r.Context(), userID, req.AuthCode); err != nil {
		a.serverErrorResponse(w, r, fmt.Errorf("connect google account: %w", err))
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (a *Api) googleSyncHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(contextKeyID).(int64)
	if !ok {
		a.serverErrorResponse(w, r, errCantRetrieveID)
		return
	}

	req := &struct {
		CalendarID int64     `json:"calendar_id"`
		From       time.Time `json:"from"`
		To         time.Time `json:"to"`
	}{}

	if err := a.readJSON(w, r, req); err != nil {
		a.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	v.Check(req.CalendarID != 0, "calendar_id", "calendar_id must be provided")
	v.Check(!req.From.IsZero(), "from", "from must be provided")
	v.Check(!req.To.IsZero(), "to", "to must be provided")
	v.Check(!req.To.Before(req.From), "to", "to must not be before from")
	if !v.Valid() {
		a.failedValidationResponse(w, r, v.Errors)
		return
	}

	cal, err := a.calendars.GetCalendarByID(r.Context(), req.CalendarID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrNoRecord):
			a.notFoundResponse(w, r)
		default:
			a.serverErrorResponse(w, r, err)
		}
		return
	}
	if cal.UserID != userID {
		a.notFoundResponse(w, r)
		return
	}

	imported, err := a.google.Sync(r.Context(), userID, req.CalendarID, req.From, req.To)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrNoRecord):
			a.unprocessableResponse(w, r, errors.New("google account is not connected"))
		default:
			a.serverErrorResponse(w, r, fmt.Errorf("sync google calendar: %w", err))
		}
		return
	}

	resp := &struct {
		Imported int `json:"imported"`
	}{Imported: imported}

	if err := a.writeJSON(w, http.StatusOK, resp, nil); err != nil {
		a.serverErrorResponse(w, r, err)
	}
}
