package daemon

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soleren/tempo/internal/aggregate"
	"github.com/soleren/tempo/internal/auth"
	"github.com/soleren/tempo/internal/config"
	"github.com/soleren/tempo/internal/retry"
	"github.com/soleren/tempo/internal/session"
	"github.com/soleren/tempo/internal/storage"
)

type testServer struct {
	srv   *Server
	agg   *aggregate.Aggregator
	store *storage.SQLiteStore
	http  *httptest.Server
}

// newTestServer wires a full daemon against an in-memory database, with
// the tracker loop running.
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	runner := storage.NewMigrationRunner(db)
	require.NoError(t, runner.Run())

	store, err := storage.NewSQLiteStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	agg := aggregate.New(store)

	opts := session.Options{
		MinSessionSeconds: 1,
		Heartbeat:         time.Minute,
		FaviconRetry:      retry.Policy{MaxAttempts: 1, Delay: time.Millisecond},
	}
	ignore := config.NewIgnoreMatcher(config.IgnoreConfig{Domains: config.DefaultIgnoreDomains()})
	tracker := session.New(opts, ignore, agg, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go tracker.Run(ctx)

	authsvc := auth.NewService(store, "test-secret", time.Hour, 4)

	cfg := config.DefaultConfig().Daemon
	srv := NewServer(cfg, tracker, agg, store, authsvc, nil, "test")

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)

	return &testServer{srv: srv, agg: agg, store: store, http: ts}
}

func (ts *testServer) post(t *testing.T, path string, body interface{}, headers map[string]string) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, ts.http.URL+path, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (ts *testServer) get(t *testing.T, path string, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, ts.http.URL+path, nil)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func (ts *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	resp := ts.post(t, "/api/auth/register", credentialsRequest{Username: username, Password: password}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = ts.post(t, "/api/auth/login", credentialsRequest{Username: username, Password: password}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Data string `json:"data"`
	}
	decode(t, resp, &out)
	require.NotEmpty(t, out.Data)
	return out.Data
}

func TestStatusEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.get(t, "/status", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]string
	decode(t, resp, &out)
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, "test", out["version"])
}

func TestRegisterLoginValidateFlow(t *testing.T) {
	ts := newTestServer(t)

	token := ts.login(t, "alice", "s3cret")

	resp := ts.post(t, "/api/auth/validateToken", tokenRequest{Token: token}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Valid bool `json:"valid"`
		User  struct {
			Username string `json:"username"`
		} `json:"user"`
	}
	decode(t, resp, &out)
	assert.True(t, out.Valid)
	assert.Equal(t, "alice", out.User.Username)
}

func TestRegister_DuplicateIsBadRequest(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.post(t, "/api/auth/register", credentialsRequest{Username: "alice", Password: "pw"}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = ts.post(t, "/api/auth/register", credentialsRequest{Username: "alice", Password: "pw"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogin_BadCredentials(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.post(t, "/api/auth/register", credentialsRequest{Username: "alice", Password: "right"}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = ts.post(t, "/api/auth/login", credentialsRequest{Username: "alice", Password: "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ts.post(t, "/api/auth/login", credentialsRequest{Username: "nobody", Password: "pw"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestValidateToken_Garbage(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.post(t, "/api/auth/validateToken", tokenRequest{Token: "garbage"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMe_RequiresToken(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.get(t, "/api/auth/me", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.get(t, "/api/auth/me", map[string]string{"Authorization": "Bearer nonsense"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token := ts.login(t, "alice", "pw")
	resp = ts.get(t, "/api/auth/me", map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]string
	decode(t, resp, &out)
	assert.Equal(t, "alice", out["username"])
}

func TestEvents_AcceptsBatchAndTracks(t *testing.T) {
	ts := newTestServer(t)

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.Local)
	batch := eventBatch{Events: []wireEvent{
		{Type: "navigate", URL: "https://news.example/", TabID: 1, TimestampMs: base.UnixMilli()},
		{Type: "navigate", URL: "https://shop.example/", TabID: 1, TimestampMs: base.Add(12 * time.Second).UnixMilli()},
		{Type: "tab_removed", TabID: 1, TimestampMs: base.Add(20 * time.Second).UnixMilli()},
	}}

	resp := ts.post(t, "/api/events", batch, nil)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	var out eventsResponse
	decode(t, resp, &out)
	assert.Equal(t, 3, out.Accepted)
	assert.Empty(t, out.CloseTabs)

	// The tracker loop applies the close-outs asynchronously.
	require.Eventually(t, func() bool {
		store, err := ts.agg.Load(context.Background())
		if err != nil {
			return false
		}
		day := store.Day("2024-01-01")
		return day != nil && day["news.example"] != nil && day["shop.example"] != nil
	}, 2*time.Second, 10*time.Millisecond)

	store, err := ts.agg.Load(context.Background())
	require.NoError(t, err)
	day := store.Day("2024-01-01")
	assert.Equal(t, 12, day["news.example"].AccumulatedSeconds)
	assert.Equal(t, 8, day["shop.example"].AccumulatedSeconds)
}

func TestEvents_BlockedDomainReportsCloseTab(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, ts.store.AddBlockedDomain(context.Background(), "youtube.com"))

	batch := eventBatch{Events: []wireEvent{
		{Type: "navigate", URL: "https://youtube.com/watch", TabID: 7},
	}}

	resp := ts.post(t, "/api/events", batch, nil)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	var out eventsResponse
	decode(t, resp, &out)
	assert.Equal(t, []int{7}, out.CloseTabs)
}

func TestEvents_InvalidBody(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, ts.http.URL+"/api/events", strings.NewReader("{broken"))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEvents_UnknownTypeSkipped(t *testing.T) {
	ts := newTestServer(t)

	batch := eventBatch{Events: []wireEvent{
		{Type: "mystery"},
		{Type: "suspend"},
	}}

	resp := ts.post(t, "/api/events", batch, nil)
	var out eventsResponse
	decode(t, resp, &out)
	assert.Equal(t, 1, out.Accepted)
}

func TestEvents_OversizeBodyRejected(t *testing.T) {
	ts := newTestServer(t)
	ts.srv.cfg.MaxRequestSize = 64

	big := eventBatch{Events: []wireEvent{
		{Type: "navigate", URL: "https://example.com/" + strings.Repeat("x", 256)},
	}}
	data, err := json.Marshal(big)
	require.NoError(t, err)

	resp, err := http.Post(ts.http.URL+"/api/events", "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestScreenTime_RequiresAuth(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.get(t, "/api/screentime", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestScreenTime_ReturnsStore(t *testing.T) {
	ts := newTestServer(t)

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.Local)
	require.NoError(t, ts.agg.Apply(context.Background(),
		aggregate.Record{Domain: "news.example", Seconds: 42, Favicon: "n.ico"}, now))

	token := ts.login(t, "alice", "pw")
	resp := ts.get(t, "/api/screentime", map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var store aggregate.Store
	decode(t, resp, &store)
	entry := store["2024_01"]["2024-01-01"]["news.example"]
	require.NotNil(t, entry)
	assert.Equal(t, 42, entry.AccumulatedSeconds)
	assert.Equal(t, "n.ico", entry.Favicon)
}
