package httpapi

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/lordvorath/chirpy/internal/auth"
	"github.com/lordvorath/chirpy/internal/content"
	"github.com/lordvorath/chirpy/internal/obs"
	"github.com/lordvorath/chirpy/internal/session"
)

// ReadyProbe answers the readiness check, pinging the database when one is
// configured.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Config carries the deployment knobs the HTTP layer needs.
type Config struct {
	Version   string
	Platform  string
	PolkaKey  string
	StaticDir string
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string
	platform   string
	polkaKey   string

	sessions *session.Service
	posts    content.Store
}

func New(rp ReadyProbe, sessions *session.Service, posts content.Store, cfg Config) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    cfg.Version,
		platform:   cfg.Platform,
		polkaKey:   cfg.PolkaKey,
		sessions:   sessions,
		posts:      posts,
	}

	// session and user lifecycle
	a.mux.HandleFunc("/api/users", a.handleUsers)
	a.mux.HandleFunc("/api/login", a.handleLogin)
	a.mux.HandleFunc("/api/refresh", a.handleRefresh)
	a.mux.HandleFunc("/api/revoke", a.handleRevoke)

	// posts
	a.mux.HandleFunc("/api/posts", a.handlePostsCollection)
	a.mux.HandleFunc("/api/posts/", a.handlePostResource)

	// payment provider webhook
	a.mux.HandleFunc("/api/webhooks/polka", a.handlePolkaWebhook)

	// health/ready
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// admin surface
	a.mux.HandleFunc("/admin/metrics", a.AdminMetrics)
	a.mux.HandleFunc("/admin/reset", a.AdminReset)

	// static app, counted into the visit metric
	if cfg.StaticDir != "" {
		fileserver := http.StripPrefix("/app", http.FileServer(http.Dir(cfg.StaticDir)))
		a.mux.Handle("/app/", countFileserverHits(fileserver))
		a.mux.Handle("/app", http.RedirectHandler("/app/", http.StatusMovedPermanently))
	}

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "resource not found")
	})

	return a
}

// Handler returns the fully assembled http.Handler for the server.
func (a *API) Handler() http.Handler {
	return obs.Instrument(RequestID(LoggingJSON(SecurityHeaders(CORS(a.mux)))))
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ready",
		"version": a.version,
	})
}

// authenticate resolves the acting user from the bearer access token.
func (a *API) authenticate(r *http.Request) (string, error) {
	token, err := auth.GetBearerToken(r.Header)
	if err != nil {
		return "", session.Unauthorized("missing or malformed bearer token")
	}
	return a.sessions.Authenticate(token)
}
