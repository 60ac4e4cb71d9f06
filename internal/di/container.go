// Package di assembles the sync hub from configuration. Providers live in
// providers.go, provider sets in wire_sets.go, and the injector in wire.go.
package di

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Ezyrone/TP-Final-2/internal/config"
	"github.com/Ezyrone/TP-Final-2/internal/hub"
	"github.com/Ezyrone/TP-Final-2/internal/monitor"
	"github.com/Ezyrone/TP-Final-2/internal/observability"
	"github.com/Ezyrone/TP-Final-2/internal/ratelimit"
	"github.com/Ezyrone/TP-Final-2/internal/repository"

	"go.uber.org/zap"
)

// Container holds the wired components of the hub process.
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	LogLevel  zap.AtomicLevel
	Collector *observability.Collector
	Tracing   *observability.TracerProvider

	Items     repository.ItemStore
	Sessions  repository.SessionStore
	IPLimiter *ratelimit.IPLimiter
	Reporter  *monitor.Reporter
	Hub       *hub.Hub
	Server    *hub.Server
	Router    http.Handler

	mu                sync.Mutex
	shutdownFunctions []func() error
}

func newContainer(
	cfg *config.Config,
	logger *zap.Logger,
	level zap.AtomicLevel,
	collector *observability.Collector,
	tracing *observability.TracerProvider,
	items repository.ItemStore,
	sessions repository.SessionStore,
	ipLimiter *ratelimit.IPLimiter,
	reporter *monitor.Reporter,
	h *hub.Hub,
	server *hub.Server,
	router http.Handler,
) *Container {
	return &Container{
		Config:    cfg,
		Logger:    logger,
		LogLevel:  level,
		Collector: collector,
		Tracing:   tracing,
		Items:     items,
		Sessions:  sessions,
		IPLimiter: ipLimiter,
		Reporter:  reporter,
		Hub:       h,
		Server:    server,
		Router:    router,
	}
}

// Start launches the background loops: the hub, the monitor reporter and
// the periodic cleanup of idle handshake limiters.
func (c *Container) Start(ctx context.Context) {
	go c.Hub.Run(ctx)
	if c.Reporter != nil {
		go c.Reporter.Run(ctx)
	}
	if c.IPLimiter != nil {
		go c.cleanupLimiters(ctx)
	}
}

func (c *Container) cleanupLimiters(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.IPLimiter.Cleanup(); n > 0 {
				c.Logger.Debug("Removed idle handshake limiters", zap.Int("count", n))
			}
		}
	}
}

// AddShutdown registers fn to run on Shutdown, in reverse order.
func (c *Container) AddShutdown(fn func() error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shutdownFunctions = append(c.shutdownFunctions, fn)
}

// Shutdown waits for the hub loop to exit, then releases resources.
func (c *Container) Shutdown(ctx context.Context) error {
	select {
	case <-c.Hub.Done():
	case <-ctx.Done():
		c.Logger.Warn("Hub did not stop before the shutdown deadline")
	}

	c.mu.Lock()
	fns := c.shutdownFunctions
	c.shutdownFunctions = nil
	c.mu.Unlock()

	var firstErr error
	for i := len(fns) - 1; i >= 0; i-- {
		if err := fns[i](); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("shutdown: %w", err)
		}
	}
	if c.Tracing != nil {
		if err := c.Tracing.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.Logger.Sync()
	return firstErr
}
