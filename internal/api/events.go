package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-chi/chi/v5"
	"github.com/kalendo/calendar-backend/internal/business/events"
	"github.com/kalendo/calendar-backend/internal/model"
	"github.com/kalendo/calendar-backend/internal/pkg/validator"
	"github.com/kalendo/calendar-backend/internal/recurrence"
)

var errCantRetrieveEvent = errors.New("can't retrieve event from context")

type eventReq struct {
	Subject     string    `json:"subject"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Status      string    `json:"status"`
	AllDay      bool      `json:"all_day"`
	Start       civilTime `json:"start"`
	End         civilTime `json:"end"`
	Recurrence  *ruleJSON `json:"recurrence"`
}

func (a *Api) parseEventReq(w http.ResponseWriter, r *http.Request) (*model.EventCreate, bool) {
	req := &eventReq{}
	if err := a.readJSON(w, r, req); err != nil {
		a.badRequestResponse(w, r, err)
		return nil, false
	}

	if req.Status == "" {
		req.Status = model.StatusConfirmed
	}

	v := validator.New()
	v.Check(len(req.Subject) != 0, "subject", "subject must be provided")
	v.Check(!req.Start.IsZero(), "start", "start must be provided")
	v.Check(!req.End.IsZero(), "end", "end must be provided")
	v.Check(req.Status == model.StatusConfirmed ||
		req.Status == model.StatusTentative ||
		req.Status == model.StatusCancelled,
		"status", "must be one of CONFIRMED, TENTATIVE, CANCELLED")

	rule, err := mapToRule(req.Recurrence)
	if err != nil {
		v.AddError("recurrence", err.Error())
	}

	if !v.Valid() {
		a.failedValidationResponse(w, r, v.Errors)
		return nil, false
	}

	return &model.EventCreate{
		Subject:     req.Subject,
		Description: req.Description,
		Location:    req.Location,
		Status:      req.Status,
		AllDay:      req.AllDay,
		Start:       civil.DateTime(req.Start),
		End:         civil.DateTime(req.End),
		Recurrence:  rule,
	}, true
}

func (a *Api) createEventHandler(w http.ResponseWriter, r *http.Request) {
	cal, ok := r.Context().Value(contextKeyCalendar).(*model.Calendar)
	if !ok {
		a.serverErrorResponse(w, r, errCantRetrieveCalendar)
		return
	}

	info, ok := a.parseEventReq(w, r)
	if !ok {
		return
	}
	info.CalendarID = cal.ID

	event, err := a.events.CreateEvent(r.Context(), info)
	if err != nil {
		a.eventErrorResponse(w, r, fmt.Errorf("create event: %w", err))
		return
	}

	if err := a.writeJSON(w, http.StatusCreated, mapToEventResp(event), nil); err != nil {
		a.serverErrorResponse(w, r, err)
	}
}

func (a *Api) updateEventHandler(w http.ResponseWriter, r *http.Request) {
	event, ok := r.Context().Value(contextKeyEvent).(*model.Event)
	if !ok {
		a.serverErrorResponse(w, r, errCantRetrieveEvent)
		return
	}

	info, ok := a.parseEventReq(w, r)
	if !ok {
		return
	}
	info.CalendarID = event.CalendarID

	updated, err := a.events.UpdateEvent(r.Context(), event.ID, info)
	if err != nil {
		a.eventErrorResponse(w, r, fmt.Errorf("update event: %w", err))
		return
	}

	if err := a.writeJSON(w, http.StatusOK, mapToEventResp(updated), nil); err != nil {
		a.serverErrorResponse(w, r, err)
	}
}

func (a *Api) deleteEventHandler(w http.ResponseWriter, r *http.Request) {
	event, ok := r.Context().Value(contextKeyEvent).(*model.Event)
	if !ok {
		a.serverErrorResponse(w, r, errCantRetrieveEvent)
		return
	}

	if err := a.events.DeleteEvent(r.Context(), event.ID); err != nil {
		a.serverErrorResponse(w, r, fmt.Errorf("delete event: %w", err))
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (a *Api) getOccurrencesHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(contextKeyID).(int64)
	if !ok {
		a.serverErrorResponse(w, r, errCantRetrieveID)
		return
	}

	filter, err := parseOccurrencesQuery(r)
	if err != nil {
		a.badRequestResponse(w, r, err)
		return
	}

	cals, err := a.calendars.GetCalendars(r.Context(), userID)
	if err != nil {
		a.serverErrorResponse(w, r, fmt.Errorf("get calendars: %w", err))
		return
	}

	owned := make(map[int64]struct{}, len(cals))
	for _, c := range cals {
		owned[c.ID] = struct{}{}
	}

	if len(filter.CalendarIDs) == 0 {
		for _, c := range cals {
			filter.CalendarIDs = append(filter.CalendarIDs, c.ID)
		}
		if len(filter.CalendarIDs) == 0 {
			a.writeOccurrences(w, r, nil)
			return
		}
	} else {
		for _, id := range filter.CalendarIDs {
			if _, ok := owned[id]; !ok {
				a.forbiddenResponse(w, r, fmt.Sprintf("no access to calendar %v", id))
				return
			}
		}
	}

	occurrences, err := a.events.GetOccurrences(r.Context(), *filter)
	if err != nil {
		a.serverErrorResponse(w, r, fmt.Errorf("get occurrences: %w", err))
		return
	}

	a.writeOccurrences(w, r, occurrences)
}

func (a *Api) getCalendarOccurrencesHandler(w http.ResponseWriter, r *http.Request) {
	cal, ok := r.Context().Value(contextKeyCalendar).(*model.Calendar)
	if !ok {
		a.serverErrorResponse(w, r, errCantRetrieveCalendar)
		return
	}

	filter, err := parseOccurrencesQuery(r)
	if err != nil {
		a.badRequestResponse(w, r, err)
		return
	}
	filter.CalendarIDs = []int64{cal.ID}

	occurrences, err := a.events.GetOccurrences(r.Context(), *filter)
	if err != nil {
		a.serverErrorResponse(w, r, fmt.Errorf("get occurrences: %w", err))
		return
	}

	a.writeOccurrences(w, r, occurrences)
}

func (a *Api) writeOccurrences(w http.ResponseWriter, r *http.Request, occurrences []model.Occurrence) {
	resp, _ := mapSlice(occurrences, mapToOccurrenceResp)
	if resp == nil {
		resp = []*occurrenceResp{}
	}
	if err := a.writeJSON(w, http.StatusOK, resp, nil); err != nil {
		a.serverErrorResponse(w, r, err)
	}
}

func (a *Api) modifyOccurrenceHandler(w http.ResponseWriter, r *http.Request) {
	event, ok := r.Context().Value(contextKeyEvent).(*model.Event)
	if !ok {
		a.serverErrorResponse(w, r, errCantRetrieveEvent)
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		a.notFoundResponse(w, r)
		return
	}

	req := &struct {
		Subject     *string    `json:"subject"`
		Description *string    `json:"description"`
		Location    *string    `json:"location"`
		AllDay      *bool      `json:"all_day"`
		Start       *civilTime `json:"start"`
		End         *civilTime `json:"end"`
	}{}

	if err := a.readJSON(w, r, req); err != nil {
		a.badRequestResponse(w, r, err)
		return
	}

	fields := recurrence.OverrideFields{
		Subject:     req.Subject,
		Description: req.Description,
		Location:    req.Location,
		AllDay:      req.AllDay,
	}
	if req.Start != nil {
		start := civil.DateTime(*req.Start)
		fields.Start = &start
	}
	if req.End != nil {
		end := civil.DateTime(*req.End)
		fields.End = &end
	}

	if err := a.events.ModifyOccurrence(r.Context(), event.ID, index, fields); err != nil {
		a.eventErrorResponse(w, r, fmt.Errorf("modify occurrence: %w", err))
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (a *Api) cancelOccurrenceHandler(w http.ResponseWriter, r *http.Request) {
	event, ok := r.Context().Value(contextKeyEvent).(*model.Event)
	if !ok {
		a.serverErrorResponse(w, r, errCantRetrieveEvent)
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		a.notFoundResponse(w, r)
		return
	}

	if err := a.events.CancelOccurrence(r.Context(), event.ID, index); err != nil {
		a.eventErrorResponse(w, r, fmt.Errorf("cancel occurrence: %w", err))
		return
	}

	w.WriteHeader(http.StatusOK)
}

// eventErrorResponse maps the event service's failure modes onto statuses:
// overlaps are conflicts, rule and index problems are unprocessable, missing
// rows are not found.
func (a *Api) eventErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrConflict):
		a.conflictResponse(w, r, err)
	case errors.Is(err, model.ErrNoRecord):
		a.notFoundResponse(w, r)
	case errors.Is(err, events.ErrIndexOutOfRange),
		errors.Is(err, events.ErrNotRecurring),
		isRuleError(err):
		a.unprocessableResponse(w, r, err)
	default:
		a.serverErrorResponse(w, r, err)
	}
}

func isRuleError(err error) bool {
	for _, target := range []error{
		recurrence.ErrInvalidInterval,
		recurrence.ErrMissingWeekdays,
		recurrence.ErrAmbiguousTermination,
		recurrence.ErrNonPositiveCount,
		recurrence.ErrUntilBeforeAnchor,
		recurrence.ErrTooManyOccurrences,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func parseOccurrencesQuery(r *http.Request) (*model.EventsFilter, error) {
	var err error

	res := &model.EventsFilter{}

	v := r.URL.Query().Get("from")
	if v == "" {
		return nil, fmt.Errorf("from must be provided")
	}
	res.From, err = time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, fmt.Errorf("invalid time format: %w", err)
	}

	v = r.URL.Query().Get("to")
	if v == "" {
		return nil, fmt.Errorf("to must be provided")
	}
	res.To, err = time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, fmt.Errorf("invalid time format: %w", err)
	}

	if res.To.Before(res.From) {
		return nil, fmt.Errorf("to must not be before from")
	}

	vals := r.URL.Query()["calendar_ids"]
	res.CalendarIDs = make([]int64, len(vals))
	for i, v := range vals {
		res.CalendarIDs[i], err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid calendar id %v", v)
		}
	}

	return res, nil
}
