package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lordvorath/chirpy/internal/obs"
	"github.com/lordvorath/chirpy/internal/session"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// handleSessionError is the single boundary between the session taxonomy and
// HTTP. Every kind maps to its fixed status; anything unclassified becomes a
// 500 whose detail stays in the server log.
func handleSessionError(w http.ResponseWriter, r *http.Request, err error) {
	var serr *session.Error
	if errors.As(err, &serr) {
		if serr.Kind == session.KindInternal {
			logInternalError(r, serr)
		}
		writeError(w, r, serr.Kind.HTTPStatus(), serr.Message)
		return
	}
	logInternalError(r, err)
	writeError(w, r, http.StatusInternalServerError, "something went wrong")
}

func logInternalError(r *http.Request, err error) {
	obs.LogRequest(map[string]any{
		"ts":         time.Now().UTC().Format(time.RFC3339Nano),
		"level":      "error",
		"msg":        "request_failed",
		"request_id": RequestIDFromContext(r.Context()),
		"method":     r.Method,
		"path":       r.URL.Path,
		"error":      err.Error(),
	})
}
