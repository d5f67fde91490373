package api

import (
	"errors"
	"net/http"

	"github.com/kalendo/calendar-backend/internal/model"
)

var errCantRetrieveUser = errors.New("can't retrieve user from context")

func (a *Api) getUserHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(contextKeyUser).(*model.User)
	if !ok {
		a.serverErrorResponse(w, r, errCantRetrieveUser)
		return
	}

	if err := a.writeJSON(w, http.StatusOK, mapToUserResp(user), nil); err != nil {
		a.serverErrorResponse(w, r, err)
	}
}
