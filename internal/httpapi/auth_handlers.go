package httpapi

import (
	"errors"
	"net/http"

	"bankrest.org/internal/auth"
	"bankrest.org/internal/obs"
)

type credentialsRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Name         string `json:"name"`
	RefreshToken string `json:"refresh_token"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, err := a.auth.Register(r.Context(), req.Name, req.Password)
	if err != nil {
		handleAuthError(w, err)
		return
	}
	obs.LogEvent("auth.user.registered", map[string]any{"user": user.Name})
	writeJSON(w, http.StatusCreated, user)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	pair, err := a.auth.Login(r.Context(), req.Name, req.Password)
	if err != nil {
		handleAuthError(w, err)
		return
	}
	obs.LogEvent("auth.token.issued", map[string]any{"user": req.Name})
	writeJSON(w, http.StatusOK, pair)
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	pair, err := a.auth.Refresh(r.Context(), req.Name, req.RefreshToken)
	if err != nil {
		handleAuthError(w, err)
		return
	}
	obs.LogEvent("auth.token.refreshed", map[string]any{"user": req.Name})
	writeJSON(w, http.StatusOK, pair)
}

func (a *API) handleRevoke(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.auth.Revoke(r.Context(), req.Name, req.RefreshToken); err != nil {
		handleAuthError(w, err)
		return
	}
	obs.LogEvent("auth.token.revoked", map[string]any{"user": req.Name})
	w.WriteHeader(http.StatusNoContent)
}

func handleAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrInvalidInput), errors.Is(err, auth.ErrAlreadyExists):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
