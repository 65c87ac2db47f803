package httpapi

import (
	"net/http"

	"github.com/lordvorath/chirpy/internal/audit"
	"github.com/lordvorath/chirpy/internal/auth"
	"github.com/lordvorath/chirpy/internal/session"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	session.PublicUser
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	Token string `json:"token"`
}

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createUser(w, r)
	case http.MethodPut:
		a.updateUser(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodPut)
	}
}

func (a *API) createUser(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user, err := a.sessions.CreateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		handleSessionError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "user.created", map[string]any{"email": user.Email})
	writeJSON(w, http.StatusCreated, user)
}

func (a *API) updateUser(w http.ResponseWriter, r *http.Request) {
	userID, err := a.authenticate(r)
	if err != nil {
		handleSessionError(w, r, err)
		return
	}
	ctx := auth.ContextWithUserID(r.Context(), userID)

	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user, err := a.sessions.UpdateCredentials(ctx, userID, req.Email, req.Password)
	if err != nil {
		handleSessionError(w, r, err)
		return
	}

	_ = audit.LogEvent(ctx, "user.credentials_updated", nil)
	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := a.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleSessionError(w, r, err)
		return
	}

	ctx := auth.ContextWithUserID(r.Context(), result.User.ID)
	_ = audit.LogEvent(ctx, "session.login", map[string]any{"email": result.User.Email})

	writeJSON(w, http.StatusOK, loginResponse{
		PublicUser:   result.User,
		Token:        result.Token,
		RefreshToken: result.RefreshToken,
	})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	refreshToken, err := auth.GetBearerToken(r.Header)
	if err != nil {
		handleSessionError(w, r, session.Unauthorized("missing or malformed bearer token"))
		return
	}

	token, err := a.sessions.Refresh(r.Context(), refreshToken)
	if err != nil {
		handleSessionError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "session.refresh", nil)
	writeJSON(w, http.StatusOK, refreshResponse{Token: token})
}

func (a *API) handleRevoke(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	refreshToken, err := auth.GetBearerToken(r.Header)
	if err != nil {
		handleSessionError(w, r, session.Unauthorized("missing or malformed bearer token"))
		return
	}

	if err := a.sessions.Revoke(r.Context(), refreshToken); err != nil {
		handleSessionError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "session.revoke", nil)
	w.WriteHeader(http.StatusNoContent)
}
