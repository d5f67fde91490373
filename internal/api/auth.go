package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/kalendo/calendar-backend/internal/config"
	"github.com/kalendo/calendar-backend/internal/model"
	"github.com/kalendo/calendar-backend/internal/pkg/password"
	"github.com/kalendo/calendar-backend/internal/pkg/validator"
)

func (a *Api) registerUserHandler(w http.ResponseWriter, r *http.Request) {
	req := &struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}{}

	if err := a.readJSON(w, r, req); err != nil {
		a.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	v.Check(len(req.Username) >= 3, "username", "must be at least 3 characters")
	v.Check(strings.Contains(req.Email, "@"), "email", "must be a valid email address")
	v.Check(len(req.Password) >= 8, "password", "must be at least 8 characters")

	if !v.Valid() {
		a.failedValidationResponse(w, r, v.Errors)
		return
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		a.serverErrorResponse(w, r, err)
		return
	}

	userCreate := &model.UserCreate{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	}

	id, err := a.users.CreateUser(r.Context(), a.db, userCreate)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrAlreadyExists):
			a.conflictResponse(w, r, errors.New("username or email already taken"))
		default:
			a.serverErrorResponse(w, r, err)
		}
		return
	}

	tokens, err := a.generateTokens(r.Context(), id)
	if err != nil {
		a.serverErrorResponse(w, r, err)
		return
	}

	if err := a.writeJSON(w, http.StatusCreated, tokens, nil); err != nil {
		a.serverErrorResponse(w, r, err)
	}
}

func (a *Api) loginUserHandler(w http.ResponseWriter, r *http.Request) {
	req := &struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{}

	if err := a.readJSON(w, r, req); err != nil {
		a.badRequestResponse(w, r, err)
		return
	}

	user, err := a.users.GetUserByEmail(r.Context(), a.db, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrNoRecord):
			a.unauthorizedResponse(w, r, errors.New("invalid credentials"))
		default:
			a.serverErrorResponse(w, r, err)
		}
		return
	}

	matches, err := password.Matches(req.Password, user.PasswordHash)
	if err != nil {
		a.serverErrorResponse(w, r, err)
		return
	}
	if !matches {
		a.unauthorizedResponse(w, r, errors.New("invalid credentials"))
		return
	}

	tokens, err := a.generateTokens(r.Context(), user.ID)
	if err != nil {
		a.serverErrorResponse(w, r, err)
		return
	}

	if err := a.writeJSON(w, http.StatusOK, tokens, nil); err != nil {
		a.serverErrorResponse(w, r, err)
	}
}

func (a *Api) refreshTokenHandler(w http.ResponseWriter, r *http.Request) {
	input := &struct {
		RefreshToken string `json:"refresh_token"`
	}{}

	if err := a.readJSON(w, r, input); err != nil {
		a.badRequestResponse(w, r, err)
		return
	}

	id, err := a.refreshTokens.Get(r.Context(), input.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrNoRecord):
			a.unauthorizedResponse(w, r, errors.New("no such session"))
		default:
			a.serverErrorResponse(w, r, err)
		}
		return
	}

	accessToken, err := a.jwts.CreateToken(id)
	if err != nil {
		a.serverErrorResponse(w, r, err)
		return
	}

	newRefreshToken := ""
	for {
		newRefreshToken, err = a.generateRandomString(config.SessionTokenLength())
		if err != nil {
			a.serverErrorResponse(w, r, err)
			return
		}

		if err := a.refreshTokens.Refresh(r.Context(), input.RefreshToken, newRefreshToken); err != nil {
			if errors.Is(err, model.ErrAlreadyExists) {
				continue
			}
			a.serverErrorResponse(w, r, err)
			return
		}

		break
	}

	response := &tokens{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
	}

	if err := a.writeJSON(w, http.StatusOK, response, nil); err != nil {
		a.serverErrorResponse(w, r, err)
	}
}

func (a *Api) logoutUserHandler(w http.ResponseWriter, r *http.Request) {
	input := &struct {
		RefreshToken string `json:"refresh_token"`
	}{}

	if err := a.readJSON(w, r, input); err != nil {
		a.badRequestResponse(w, r, err)
		return
	}

	if err := a.refreshTokens.Delete(r.Context(), input.RefreshToken); err != nil {
		switch {
		case errors.Is(err, model.ErrNoRecord):
			a.unauthorizedResponse(w, r, errors.New("no such session"))
		default:
			a.serverErrorResponse(w, r, err)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}
