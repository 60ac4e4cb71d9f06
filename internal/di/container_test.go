package di

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Ezyrone/TP-Final-2/pkg/protocol"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryEnv(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("SESSION_STORE_DRIVER", "memory")
	t.Setenv("ENABLE_TRACING", "false")
	t.Setenv("MONITOR_URL", "")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("SESSION_HOOK_SECRET", "")
}

func TestInitializeContainer_Memory(t *testing.T) {
	memoryEnv(t)

	container, cleanup, err := InitializeContainer(context.Background())
	require.NoError(t, err)
	defer cleanup()

	assert.Nil(t, container.Reporter)
	assert.NotNil(t, container.IPLimiter)

	ctx, cancel := context.WithCancel(context.Background())
	container.Start(ctx)

	ts := httptest.NewServer(container.Router)
	defer ts.Close()

	require.Eventually(t, func() bool {
		resp, err := http.Get(ts.URL + "/ready")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
	defer stop()
	assert.NoError(t, container.Shutdown(shutdownCtx))
	assert.False(t, container.Hub.Running())
}

func TestInitializeContainer_WithReporter(t *testing.T) {
	memoryEnv(t)
	t.Setenv("MONITOR_URL", "http://127.0.0.1:4001")

	container, cleanup, err := InitializeContainer(context.Background())
	require.NoError(t, err)
	defer cleanup()
	assert.NotNil(t, container.Reporter)
}

func TestInitializeContainer_InvalidConfig(t *testing.T) {
	memoryEnv(t)
	t.Setenv("STORE_DRIVER", "sqlite")

	_, _, err := InitializeContainer(context.Background())
	assert.Error(t, err)
}

func TestCheckOrigin(t *testing.T) {
	check := checkOrigin([]string{"https://lists.example.com/"})

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://lists.example.com")
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, check(req))

	assert.True(t, checkOrigin([]string{"*"})(req))
}

func TestShutdownRunsHooksInReverse(t *testing.T) {
	memoryEnv(t)
	container, cleanup, err := InitializeContainer(context.Background())
	require.NoError(t, err)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	container.Start(ctx)
	cancel()

	var order []int
	container.AddShutdown(func() error { order = append(order, 1); return nil })
	container.AddShutdown(func() error { order = append(order, 2); return nil })

	require.NoError(t, container.Shutdown(context.Background()))
	assert.Equal(t, []int{2, 1}, order)
}

func TestInitializeContainer_RecordedTokenOpensSocket(t *testing.T) {
	memoryEnv(t)
	t.Setenv("SESSION_HOOK_SECRET", "hook-secret")

	container, cleanup, err := InitializeContainer(context.Background())
	require.NoError(t, err)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	container.Start(ctx)

	ts := httptest.NewServer(container.Router)
	defer ts.Close()

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/internal/sessions",
		strings.NewReader(`{"userId":"u1","pseudo":"alice","token":"minted-token"}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer hook-secret")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?token=minted-token"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	ev, err := protocol.DecodeEvent(data)
	require.NoError(t, err)

	initial, ok := ev.(protocol.InitialState)
	require.True(t, ok, "unexpected frame %T", ev)
	require.Len(t, initial.Users, 1)
	assert.Equal(t, "alice", initial.Users[0].Pseudo)
}
