package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/lordvorath/chirpy/internal/audit"
	"github.com/lordvorath/chirpy/internal/auth"
	"github.com/lordvorath/chirpy/internal/content"
	"github.com/lordvorath/chirpy/internal/session"
)

type createPostRequest struct {
	Body string `json:"body"`
}

func (a *API) handlePostsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createPost(w, r)
	case http.MethodGet:
		a.listPosts(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodGet)
	}
}

func (a *API) handlePostResource(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/posts/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getPost(w, r, id)
	case http.MethodDelete:
		a.deletePost(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
	}
}

func (a *API) createPost(w http.ResponseWriter, r *http.Request) {
	userID, err := a.authenticate(r)
	if err != nil {
		handleSessionError(w, r, err)
		return
	}

	var req createPostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	body, err := content.ValidateBody(req.Body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	post := &content.Post{Body: body, UserID: userID}
	if err := a.posts.Create(r.Context(), post); err != nil {
		handleContentError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (a *API) listPosts(w http.ResponseWriter, r *http.Request) {
	authorID := strings.TrimSpace(r.URL.Query().Get("author_id"))
	sort := r.URL.Query().Get("sort")
	if sort != "" && sort != "asc" && sort != "desc" {
		writeError(w, r, http.StatusBadRequest, "sort must be asc or desc")
		return
	}

	posts, err := a.posts.List(r.Context(), authorID, sort == "desc")
	if err != nil {
		handleContentError(w, r, err)
		return
	}
	if posts == nil {
		posts = []content.Post{}
	}
	writeJSON(w, http.StatusOK, posts)
}

func (a *API) getPost(w http.ResponseWriter, r *http.Request, id string) {
	post, err := a.posts.Get(r.Context(), id)
	if err != nil {
		handleContentError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (a *API) deletePost(w http.ResponseWriter, r *http.Request, id string) {
	userID, err := a.authenticate(r)
	if err != nil {
		handleSessionError(w, r, err)
		return
	}

	post, err := a.posts.Get(r.Context(), id)
	if err != nil {
		handleContentError(w, r, err)
		return
	}
	if post.UserID != userID {
		writeError(w, r, http.StatusForbidden, "you can only delete your own posts")
		return
	}

	if err := a.posts.Delete(r.Context(), id); err != nil {
		handleContentError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func handleContentError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, content.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "post not found")
	default:
		logInternalError(r, err)
		writeError(w, r, http.StatusInternalServerError, "something went wrong")
	}
}

type polkaWebhookRequest struct {
	Event string `json:"event"`
	Data  struct {
		UserID string `json:"user_id"`
	} `json:"data"`
}

func (a *API) handlePolkaWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	key, err := auth.GetAPIKey(r.Header)
	if err != nil || key != a.polkaKey {
		handleSessionError(w, r, session.Unauthorized("invalid api key"))
		return
	}

	var req polkaWebhookRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	// Only the upgrade event is of interest; everything else is acknowledged
	// so the provider stops retrying.
	if req.Event != "user.upgraded" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := a.sessions.UpgradeToRed(r.Context(), req.Data.UserID); err != nil {
		handleSessionError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "user.upgraded", map[string]any{"user_id": req.Data.UserID})
	w.WriteHeader(http.StatusNoContent)
}
