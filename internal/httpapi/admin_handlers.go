package httpapi

import (
	"fmt"
	"net/http"

	"github.com/lordvorath/chirpy/internal/obs"
)

const adminMetricsPage = `<html>
<body>
<h1>Welcome, Chirpy Admin</h1>
<p>Chirpy has been visited %d times!</p>
</body>
</html>`

func (a *API) AdminMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, adminMetricsPage, obs.FileserverHitCount())
}

// AdminReset wipes all state. Guarded to the dev platform so it can never
// fire in production.
func (a *API) AdminReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if a.platform != "dev" {
		writeError(w, r, http.StatusForbidden, "reset is only allowed on the dev platform")
		return
	}

	if err := a.sessions.Reset(r.Context()); err != nil {
		handleSessionError(w, r, err)
		return
	}
	if err := a.posts.DeleteAll(r.Context()); err != nil {
		handleContentError(w, r, err)
		return
	}
	obs.ResetFileserverHits()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
