package api

import (
	"fmt"
	"net/http"
)

func (a *Api) getAnalyticsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(contextKeyID).(int64)
	if !ok {
		a.serverErrorResponse(w, r, errCantRetrieveID)
		return
	}

	analytics, err := a.analytics.GetUserAnalytics(r.Context(), userID)
	if err != nil {
		a.serverErrorResponse(w, r, fmt.Errorf("get analytics: %w", err))
		return
	}

	if err := a.writeJSON(w, http.StatusOK, mapToAnalyticsResp(analytics), nil); err != nil {
		a.serverErrorResponse(w, r, err)
	}
}
