package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Ezyrone/TP-Final-2/pkg/breaker"
	"github.com/Ezyrone/TP-Final-2/pkg/protocol"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// SnapshotFetcher reads the monitoring view used to reconcile presence and
// logs after a reconnect. The monitoring host is tried first, behind a
// circuit breaker; the hub's own /api/metrics is the fallback.
type SnapshotFetcher struct {
	monitorURL string
	serverURL  string
	client     *http.Client
	cb         *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

// NewSnapshotFetcher creates a fetcher. monitorURL may be empty.
func NewSnapshotFetcher(monitorURL, serverURL string, httpClient *http.Client, logger *zap.Logger) *SnapshotFetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotFetcher{
		monitorURL: strings.TrimRight(monitorURL, "/"),
		serverURL:  strings.TrimRight(serverURL, "/"),
		client:     httpClient,
		cb:         breaker.New(breaker.DefaultConfig("monitor-snapshot"), logger),
		logger:     logger,
	}
}

// Fetch returns the first snapshot available.
func (f *SnapshotFetcher) Fetch(ctx context.Context) (protocol.Snapshot, error) {
	if f.monitorURL != "" {
		result, err := f.cb.Execute(func() (interface{}, error) {
			return f.get(ctx, f.monitorURL+"/metrics")
		})
		if err == nil {
			return result.(protocol.Snapshot), nil
		}
		f.logger.Warn("Monitoring service unavailable, falling back to hub", zap.Error(err))
	}

	snap, err := f.get(ctx, f.serverURL+"/api/metrics")
	if err != nil {
		return protocol.Snapshot{}, fmt.Errorf("fetch snapshot: %w", err)
	}
	return snap, nil
}

func (f *SnapshotFetcher) get(ctx context.Context, url string) (protocol.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return protocol.Snapshot{}, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return protocol.Snapshot{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return protocol.Snapshot{}, fmt.Errorf("%s: status %d", url, resp.StatusCode)
	}
	var snap protocol.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return protocol.Snapshot{}, fmt.Errorf("%s: %w", url, err)
	}
	return snap.Normalize(), nil
}
