package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lordvorath/chirpy/internal/content"
	"github.com/lordvorath/chirpy/internal/obs"
	"github.com/lordvorath/chirpy/internal/session"
)

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T
}

func newTestAPI(t *testing.T, platform string) *apiClient {
	t.Helper()

	store := session.NewInMemory()
	sessions, err := session.NewService(store.Users(), store.RefreshTokens(), "test-secret")
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	posts := content.NewInMemory()

	api := New(ReadyProbe{}, sessions, posts, Config{
		Version:  "test",
		Platform: platform,
		PolkaKey: "test-polka-key",
	})

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		t:       t,
	}
}

func (c *apiClient) do(method, path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) post(path string, body any, headers map[string]string) *http.Response {
	return c.do(http.MethodPost, path, body, headers)
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func errorMessage(t *testing.T, r *http.Response) string {
	t.Helper()
	body := decode[map[string]any](t, r)
	msg, _ := body["error"].(string)
	if msg == "" {
		t.Fatalf("expected error message in body: %v", body)
	}
	return msg
}

func (c *apiClient) register(email, password string) session.PublicUser {
	c.t.Helper()
	resp := c.post("/api/users", map[string]string{"email": email, "password": password}, nil)
	if resp.StatusCode != http.StatusCreated {
		c.t.Fatalf("register: unexpected status %d", resp.StatusCode)
	}
	return decode[session.PublicUser](c.t, resp)
}

func (c *apiClient) login(email, password string) loginResponse {
	c.t.Helper()
	resp := c.post("/api/login", map[string]string{"email": email, "password": password}, nil)
	if resp.StatusCode != http.StatusOK {
		c.t.Fatalf("login: unexpected status %d", resp.StatusCode)
	}
	return decode[loginResponse](c.t, resp)
}

func TestSessionLifecycleScenario(t *testing.T) {
	c := newTestAPI(t, "dev")

	user := c.register("a@b.com", "Secret123!")
	if user.ID == "" || user.Email != "a@b.com" {
		t.Fatalf("unexpected user: %+v", user)
	}

	login := c.login("a@b.com", "Secret123!")
	if login.Token == "" || login.RefreshToken == "" {
		t.Fatal("expected token and refresh token")
	}
	if login.ID != user.ID {
		t.Fatalf("login user mismatch: %s != %s", login.ID, user.ID)
	}

	resp := c.post("/api/refresh", nil, bearer(login.RefreshToken))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh: unexpected status %d", resp.StatusCode)
	}
	refreshed := decode[refreshResponse](t, resp)
	if refreshed.Token == "" || refreshed.Token == login.Token {
		t.Fatal("expected a fresh, distinct access token")
	}

	resp = c.post("/api/revoke", nil, bearer(login.RefreshToken))
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("revoke: unexpected status %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Revoking twice is not an error.
	resp = c.post("/api/revoke", nil, bearer(login.RefreshToken))
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("second revoke: unexpected status %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = c.post("/api/refresh", nil, bearer(login.RefreshToken))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("refresh after revoke: expected 401, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestLoginFailuresDoNotLeakAccounts(t *testing.T) {
	c := newTestAPI(t, "dev")
	c.register("a@b.com", "Secret123!")

	unknown := c.post("/api/login", map[string]string{"email": "ghost@b.com", "password": "Secret123!"}, nil)
	if unknown.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", unknown.StatusCode)
	}
	unknownMsg := errorMessage(t, unknown)

	wrong := c.post("/api/login", map[string]string{"email": "a@b.com", "password": "nope"}, nil)
	if wrong.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", wrong.StatusCode)
	}
	wrongMsg := errorMessage(t, wrong)

	if unknownMsg != wrongMsg {
		t.Fatalf("messages differ: %q vs %q", unknownMsg, wrongMsg)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	c := newTestAPI(t, "dev")
	c.register("a@b.com", "Secret123!")

	resp := c.post("/api/users", map[string]string{"email": "a@b.com", "password": "Other456!"}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRefreshRequiresBearerToken(t *testing.T) {
	c := newTestAPI(t, "dev")

	resp := c.post("/api/refresh", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = c.post("/api/refresh", nil, bearer("never-issued"))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown token, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestUpdateUserCredentials(t *testing.T) {
	c := newTestAPI(t, "dev")
	c.register("a@b.com", "Secret123!")
	login := c.login("a@b.com", "Secret123!")

	resp := c.do(http.MethodPut, "/api/users", map[string]string{"email": "new@b.com", "password": "NewPass456!"}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = c.do(http.MethodPut, "/api/users", map[string]string{"email": "", "password": "NewPass456!"}, bearer(login.Token))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing email, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = c.do(http.MethodPut, "/api/users", map[string]string{"email": "new@b.com", "password": "NewPass456!"}, bearer(login.Token))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	updated := decode[session.PublicUser](t, resp)
	if updated.Email != "new@b.com" {
		t.Fatalf("unexpected email: %s", updated.Email)
	}

	c.login("new@b.com", "NewPass456!")
}

func TestPostsFlow(t *testing.T) {
	c := newTestAPI(t, "dev")
	c.register("a@b.com", "Secret123!")
	c.register("other@b.com", "Secret123!")
	author := c.login("a@b.com", "Secret123!")
	other := c.login("other@b.com", "Secret123!")

	resp := c.post("/api/posts", map[string]string{"body": "hello"}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = c.post("/api/posts", map[string]string{"body": strings.Repeat("a", 141)}, bearer(author.Token))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for long post, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = c.post("/api/posts", map[string]string{"body": "what a kerfuffle today"}, bearer(author.Token))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	post := decode[content.Post](t, resp)
	if post.Body != "what a **** today" {
		t.Fatalf("expected masked body, got %q", post.Body)
	}
	if post.UserID != author.ID {
		t.Fatalf("post owner mismatch: %s", post.UserID)
	}

	resp = c.do(http.MethodGet, "/api/posts", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: unexpected status %d", resp.StatusCode)
	}
	posts := decode[[]content.Post](t, resp)
	if len(posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(posts))
	}

	params := url.Values{"author_id": {other.ID}}
	resp = c.do(http.MethodGet, "/api/posts?"+params.Encode(), nil, nil)
	filtered := decode[[]content.Post](t, resp)
	if len(filtered) != 0 {
		t.Fatalf("expected no posts for other author, got %d", len(filtered))
	}

	resp = c.do(http.MethodGet, "/api/posts/"+post.ID, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: unexpected status %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = c.do(http.MethodGet, "/api/posts/does-not-exist", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = c.do(http.MethodDelete, "/api/posts/"+post.ID, nil, bearer(other.Token))
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign delete, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = c.do(http.MethodDelete, "/api/posts/"+post.ID, nil, bearer(author.Token))
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestPolkaWebhook(t *testing.T) {
	c := newTestAPI(t, "dev")
	user := c.register("a@b.com", "Secret123!")

	upgrade := map[string]any{
		"event": "user.upgraded",
		"data":  map[string]string{"user_id": user.ID},
	}

	resp := c.post("/api/webhooks/polka", upgrade, map[string]string{"Authorization": "ApiKey wrong-key"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad key, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	key := map[string]string{"Authorization": "ApiKey test-polka-key"}

	resp = c.post("/api/webhooks/polka", map[string]any{"event": "user.payment_failed", "data": map[string]string{"user_id": user.ID}}, key)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204 for ignored event, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = c.post("/api/webhooks/polka", map[string]any{"event": "user.upgraded", "data": map[string]string{"user_id": "missing"}}, key)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = c.post("/api/webhooks/polka", upgrade, key)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	login := c.login("a@b.com", "Secret123!")
	if !login.IsChirpyRed {
		t.Fatal("expected upgraded membership after webhook")
	}
}

func TestAdminResetPlatformGuard(t *testing.T) {
	c := newTestAPI(t, "prod")
	resp := c.post("/admin/reset", nil, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 outside dev, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestAdminResetWipesState(t *testing.T) {
	c := newTestAPI(t, "dev")
	c.register("a@b.com", "Secret123!")

	resp := c.post("/admin/reset", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reset: unexpected status %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = c.post("/api/login", map[string]string{"email": "a@b.com", "password": "Secret123!"}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 after reset, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestHealthz(t *testing.T) {
	c := newTestAPI(t, "dev")
	resp := c.do(http.MethodGet, "/healthz", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "OK" {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	c := newTestAPI(t, "dev")
	resp := c.do(http.MethodGet, "/api/login", nil, nil)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Allow") != "POST" {
		t.Fatalf("unexpected Allow header: %q", resp.Header.Get("Allow"))
	}
	resp.Body.Close()
}

func TestFileserverCountsHits(t *testing.T) {
	obs.ResetFileserverHits()

	staticDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(staticDir, "index.html"), []byte("<html></html>"), 0o644); err != nil {
		t.Fatalf("write index: %v", err)
	}

	store := session.NewInMemory()
	sessions, err := session.NewService(store.Users(), store.RefreshTokens(), "test-secret")
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	api := New(ReadyProbe{}, sessions, content.NewInMemory(), Config{
		Version:   "test",
		Platform:  "dev",
		StaticDir: staticDir,
	})
	srv := httptest.NewServer(api.Handler())
	defer srv.Close()

	for i := 0; i < 2; i++ {
		resp, err := srv.Client().Get(srv.URL + "/app/")
		if err != nil {
			t.Fatalf("get static: %v", err)
		}
		resp.Body.Close()
	}

	resp, err := srv.Client().Get(srv.URL + "/admin/metrics")
	if err != nil {
		t.Fatalf("get admin metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "visited 2 times") {
		t.Fatalf("expected hit count in page, got: %s", body)
	}
}
