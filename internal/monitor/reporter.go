package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Ezyrone/TP-Final-2/internal/observability"
	"github.com/Ezyrone/TP-Final-2/pkg/breaker"
	"github.com/Ezyrone/TP-Final-2/pkg/protocol"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// DefaultQueueSize bounds the reports waiting to be sent.
const DefaultQueueSize = 256

type report struct {
	path string
	body interface{}
}

// Reporter pushes hub activity to the monitoring service from a background
// goroutine. Reports are dropped when the queue is full or the breaker is
// open; the hub never waits on the monitoring service.
type Reporter struct {
	baseURL   string
	client    *http.Client
	queue     chan report
	cb        *gobreaker.CircuitBreaker
	collector *observability.Collector
	logger    *zap.Logger
}

// NewReporter creates a reporter for the service at baseURL. Call Run to
// start delivering.
func NewReporter(baseURL string, queueSize int, collector *observability.Collector, logger *zap.Logger) *Reporter {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Reporter{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: 3 * time.Second},
		queue:     make(chan report, queueSize),
		cb:        breaker.New(breaker.DefaultConfig("monitor-reporter"), logger),
		collector: collector,
		logger:    logger,
	}
}

// ReportPresence queues the current presence.
func (r *Reporter) ReportPresence(connections int, users []protocol.User) {
	r.enqueue("/presence", presenceRequest{Connections: connections, Users: users})
}

// ReportMessages queues a counter increment.
func (r *Reporter) ReportMessages(delta int) {
	r.enqueue("/metrics/messages", messagesRequest{Delta: int64(delta)})
}

// ReportLog queues an activity log entry.
func (r *Reporter) ReportLog(entry protocol.LogEntry) {
	r.enqueue("/logs", logRequest{
		Message:   entry.Message,
		Timestamp: entry.Timestamp.UTC().Format(time.RFC3339Nano),
	})
}

func (r *Reporter) enqueue(path string, body interface{}) {
	select {
	case r.queue <- report{path: path, body: body}:
	default:
		r.collector.ReportsDropped.Inc()
		r.logger.Debug("Monitor queue full, report dropped", zap.String("path", path))
	}
}

// Run delivers queued reports in order until ctx is cancelled.
func (r *Reporter) Run(ctx context.Context) {
	r.logger.Info("Monitor reporter started", zap.String("url", r.baseURL))
	for {
		select {
		case <-ctx.Done():
			return
		case rep := <-r.queue:
			if err := r.send(ctx, rep); err != nil {
				r.collector.ReportsDropped.Inc()
				if breaker.Open(err) {
					r.logger.Debug("Monitor unavailable, report dropped", zap.String("path", rep.path))
				} else {
					r.logger.Warn("Failed to report to monitor", zap.String("path", rep.path), zap.Error(err))
				}
			}
		}
	}
}

func (r *Reporter) send(ctx context.Context, rep report) error {
	_, err := r.cb.Execute(func() (interface{}, error) {
		body, err := json.Marshal(rep.body)
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+rep.path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := r.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		if resp.StatusCode >= http.StatusMultipleChoices {
			return nil, fmt.Errorf("monitor responded %d", resp.StatusCode)
		}
		return nil, nil
	})
	return err
}
