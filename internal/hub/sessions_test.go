package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Ezyrone/TP-Final-2/internal/infrastructure/persistence/memory"
	"github.com/Ezyrone/TP-Final-2/internal/observability"
	"github.com/Ezyrone/TP-Final-2/internal/ratelimit"
	"github.com/Ezyrone/TP-Final-2/internal/session"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newHookEnv(t *testing.T, secret string) *testEnv {
	t.Helper()

	registry := session.NewRegistry(memory.NewSessionStore(), zap.NewNop())
	collector := observability.NewCollector("test")
	h := NewHub(memory.NewItemStore(), ratelimit.NewSlidingWindow(ratelimit.DefaultLimit, ratelimit.DefaultWindow), collector, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	srv := NewServer(h, registry, nil, collector, DefaultServerConfig(), zap.NewNop()).
		WithSessionRecorder(registry, secret)
	ts := httptest.NewServer(NewRouter(srv, collector, []string{"*"}, zap.NewNop()))

	t.Cleanup(func() {
		cancel()
		<-h.Done()
		ts.Close()
	})
	return &testEnv{server: ts, hub: h}
}

func postSession(t *testing.T, env *testEnv, auth, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/internal/sessions", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRecordSession_TokenOpensSocket(t *testing.T) {
	env := newHookEnv(t, "")

	resp := postSession(t, env, "", `{"userId":"u7","pseudo":" carol ","token":"fresh-token"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body recordSessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "u7", body.UserID)
	assert.Equal(t, "carol", body.Pseudo)
	assert.NotEmpty(t, body.ID)

	_, initial := env.join(t, "fresh-token")
	require.Len(t, initial.Users, 1)
	assert.Equal(t, "carol", initial.Users[0].Pseudo)
}

func TestRecordSession_RequiresSecret(t *testing.T) {
	env := newHookEnv(t, "hook-secret")

	resp := postSession(t, env, "", `{"userId":"u7","pseudo":"carol","token":"t"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = postSession(t, env, "Bearer wrong", `{"userId":"u7","pseudo":"carol","token":"t"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = postSession(t, env, "Bearer hook-secret", `{"userId":"u7","pseudo":"carol","token":"t"}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestRecordSession_BadPayload(t *testing.T) {
	env := newHookEnv(t, "")

	tests := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"missing token", `{"userId":"u7","pseudo":"carol"}`},
		{"missing user", `{"pseudo":"carol","token":"t"}`},
		{"blank pseudo", `{"userId":"u7","pseudo":"   ","token":"t"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postSession(t, env, "", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestRecordSession_RouteAbsentWithoutRecorder(t *testing.T) {
	env := newTestEnv(t, memory.NewItemStore())

	resp := postSession(t, env, "", `{"userId":"u7","pseudo":"carol","token":"t"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAttach_StoppedHubStartsNoPumps(t *testing.T) {
	h := NewHub(memory.NewItemStore(), ratelimit.NewSlidingWindow(ratelimit.DefaultLimit, ratelimit.DefaultWindow), observability.NewCollector("test"), zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h.Run(ctx)

	srv := NewServer(h, nil, nil, observability.NewCollector("test"), DefaultServerConfig(), zap.NewNop())

	// the client has no socket: a started pump would panic on it
	client := testClient("c1", "u1", "alice", 4)
	assert.ErrorIs(t, srv.attach(client), ErrStopped)
	assert.Empty(t, client.send)
}

func TestHandshake_StoppedHubClosesGoingAway(t *testing.T) {
	registry := session.NewRegistry(memory.NewSessionStore(), zap.NewNop())
	_, err := registry.Record(context.Background(), "u1", "alice", "tok-alice")
	require.NoError(t, err)

	collector := observability.NewCollector("test")
	h := NewHub(memory.NewItemStore(), ratelimit.NewSlidingWindow(ratelimit.DefaultLimit, ratelimit.DefaultWindow), collector, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h.Run(ctx)

	srv := NewServer(h, registry, nil, collector, DefaultServerConfig(), zap.NewNop())
	ts := httptest.NewServer(NewRouter(srv, collector, []string{"*"}, zap.NewNop()))
	defer ts.Close()

	env := &testEnv{server: ts, hub: h}
	conn := env.dial(t, "tok-alice")
	expectClose(t, conn, websocket.CloseGoingAway)
}
