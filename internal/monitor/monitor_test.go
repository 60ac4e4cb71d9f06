package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Ezyrone/TP-Final-2/internal/observability"
	"github.com/Ezyrone/TP-Final-2/pkg/protocol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func getSnapshot(t *testing.T, url string) protocol.Snapshot {
	t.Helper()
	resp, err := http.Get(url + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap protocol.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	return snap
}

func TestService_EmptyState(t *testing.T) {
	ts := httptest.NewServer(NewService(zap.NewNop()).Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	var raw map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.JSONEq(t, `[]`, string(raw["users"]))
	assert.JSONEq(t, `[]`, string(raw["logs"]))
	assert.JSONEq(t, `0`, string(raw["connections"]))
}

func TestService_Routes(t *testing.T) {
	ts := httptest.NewServer(NewService(zap.NewNop()).Router())
	defer ts.Close()

	resp := post(t, ts.URL+"/presence", `{"connections":3,"users":[{"userId":"u1","pseudo":"alice","connections":2},{"userId":"u2","pseudo":"bob","connections":1}]}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = post(t, ts.URL+"/metrics/messages", `{"delta":0}`)
	var metrics protocol.Metrics
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&metrics))
	assert.Equal(t, int64(1), metrics.TotalMessagesProcessed)
	post(t, ts.URL+"/metrics/messages", `{"delta":4}`)

	post(t, ts.URL+"/logs", `{"message":"Connexion de alice","timestamp":"2024-05-01T12:00:00Z"}`)
	post(t, ts.URL+"/logs", `{"message":"alice a ajouté un item"}`)

	snap := getSnapshot(t, ts.URL)
	assert.Equal(t, 3, snap.Connections)
	assert.Len(t, snap.Users, 2)
	assert.Equal(t, int64(5), snap.Metrics.TotalMessagesProcessed)
	require.Len(t, snap.Logs, 2)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), snap.Logs[0].Timestamp.UTC())
	assert.False(t, snap.Logs[1].Timestamp.IsZero())
}

func TestService_RejectsBadRequests(t *testing.T) {
	ts := httptest.NewServer(NewService(zap.NewNop()).Router())
	defer ts.Close()

	tests := []struct {
		path string
		body string
	}{
		{"/presence", `{`},
		{"/metrics/messages", `nope`},
		{"/logs", `{"timestamp":"2024-05-01T12:00:00Z"}`},
	}
	for _, tt := range tests {
		resp := post(t, ts.URL+tt.path, tt.body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, tt.path)
	}

	resp, err := http.Get(ts.URL + "/presence")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestService_KeepsLastFiftyLogs(t *testing.T) {
	svc := NewService(zap.NewNop())
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < MaxLogs+5; i++ {
		svc.AppendLog(string(rune('a'+i%26)), base.Add(time.Duration(i)*time.Second))
	}

	logs := svc.Snapshot().Logs
	require.Len(t, logs, MaxLogs)
	assert.Equal(t, base.Add(5*time.Second), logs[0].Timestamp)
}

func TestService_CORS(t *testing.T) {
	ts := httptest.NewServer(NewService(zap.NewNop()).Router())
	defer ts.Close()

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/logs", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestReporter_DeliversToService(t *testing.T) {
	svc := NewService(zap.NewNop())
	ts := httptest.NewServer(svc.Router())
	defer ts.Close()

	reporter := NewReporter(ts.URL+"/", 16, observability.NewCollector("test"), zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go reporter.Run(ctx)

	reporter.ReportPresence(1, []protocol.User{{UserID: "u1", Pseudo: "alice", Connections: 1}})
	reporter.ReportMessages(1)
	reporter.ReportLog(protocol.LogEntry{Message: "alice a ajouté un item", Timestamp: time.Now()})

	require.Eventually(t, func() bool {
		snap := svc.Snapshot()
		return snap.Connections == 1 && snap.Metrics.TotalMessagesProcessed == 1 && len(snap.Logs) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "alice", svc.Snapshot().Users[0].Pseudo)
}

func TestReporter_DropsWhenQueueFull(t *testing.T) {
	collector := observability.NewCollector("test")
	reporter := NewReporter("http://127.0.0.1:1", 1, collector, zap.NewNop())

	// nothing drains the queue, so the second report is dropped
	reporter.ReportMessages(1)
	reporter.ReportMessages(1)

	assert.Len(t, reporter.queue, 1)
}

func TestReporter_SurvivesUnavailableMonitor(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	reporter := NewReporter(ts.URL, 16, observability.NewCollector("test"), zap.NewNop())
	for i := 0; i < 10; i++ {
		reporter.ReportMessages(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		reporter.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(reporter.queue) == 0 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done

	// the breaker opens after three failures and refuses the rest
	assert.Equal(t, int32(3), hits.Load())
}
