package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/lordvorath/chirpy/internal/obs"
)

func TestRequestIDAssignsAndEchoes(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" {
		t.Fatal("expected a generated request id")
	}
	if rec.Header().Get("X-Request-Id") != seen {
		t.Fatalf("header mismatch: %q vs %q", rec.Header().Get("X-Request-Id"), seen)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "client-id")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != "client-id" {
		t.Fatalf("expected client-supplied id, got %q", seen)
	}
}

func TestLoggingJSONOnlyLogsFailures(t *testing.T) {
	var buf bytes.Buffer
	obs.Logger().SetOutput(&buf)
	t.Cleanup(func() { obs.Logger().SetOutput(os.Stdout) })

	handler := func(code int) http.Handler {
		return LoggingJSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}))
	}

	handler(http.StatusOK).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	if buf.Len() != 0 {
		t.Fatalf("expected no log for 2xx, got: %s", buf.String())
	}

	handler(http.StatusNotFound).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))
	line := buf.Bytes()
	if len(line) == 0 {
		t.Fatal("expected a log line for 404")
	}
	var entry map[string]any
	if err := json.Unmarshal(line, &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "request_complete" || entry["path"] != "/missing" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if entry["status"] != float64(http.StatusNotFound) {
		t.Fatalf("unexpected status in entry: %v", entry["status"])
	}
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("missing nosniff header")
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatal("missing frame options header")
	}
}

func TestCORSPreflight(t *testing.T) {
	h := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("preflight should not reach the handler")
	}))
	req := httptest.NewRequest(http.MethodOptions, "/api/login", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Fatalf("unexpected allow-origin: %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}
