package di

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Ezyrone/TP-Final-2/internal/config"
	"github.com/Ezyrone/TP-Final-2/internal/hub"
	infradynamodb "github.com/Ezyrone/TP-Final-2/internal/infrastructure/persistence/dynamodb"
	"github.com/Ezyrone/TP-Final-2/internal/infrastructure/persistence/memory"
	infraredis "github.com/Ezyrone/TP-Final-2/internal/infrastructure/persistence/redis"
	"github.com/Ezyrone/TP-Final-2/internal/monitor"
	"github.com/Ezyrone/TP-Final-2/internal/observability"
	"github.com/Ezyrone/TP-Final-2/internal/ratelimit"
	"github.com/Ezyrone/TP-Final-2/internal/repository"
	"github.com/Ezyrone/TP-Final-2/internal/session"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Configuration Providers

func provideConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loggerBundle carries the logger and the level handle the config watcher
// adjusts at runtime.
type loggerBundle struct {
	logger *zap.Logger
	level  zap.AtomicLevel
}

func provideLoggerBundle(cfg *config.Config) (loggerBundle, error) {
	logger, level, err := observability.NewLogger(cfg.Logging.Level, cfg.Environment)
	if err != nil {
		return loggerBundle{}, fmt.Errorf("failed to create logger: %w", err)
	}
	return loggerBundle{logger: logger, level: level}, nil
}

func provideLogger(b loggerBundle) *zap.Logger { return b.logger }

func provideLogLevel(b loggerBundle) zap.AtomicLevel { return b.level }

// Observability Providers

func provideCollector() *observability.Collector {
	return observability.NewCollector("syncboard")
}

func provideTracing(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*observability.TracerProvider, error) {
	tp, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "syncboard-hub",
		Environment: cfg.Environment,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if cfg.Tracing.Enabled {
		logger.Info("Tracing enabled", zap.String("endpoint", cfg.Tracing.Endpoint))
	}
	return tp, nil
}

// Storage Providers

// provideDynamoDBAPI returns nil unless a store uses DynamoDB.
func provideDynamoDBAPI(ctx context.Context, cfg *config.Config, logger *zap.Logger) (infradynamodb.API, error) {
	if cfg.Store.Driver != config.DriverDynamoDB && cfg.Store.SessionDriver != config.DriverDynamoDB {
		return nil, nil
	}
	client, err := infradynamodb.NewClient(ctx, cfg.Store.AWSRegion, cfg.Store.DynamoDBEndpoint)
	if err != nil {
		return nil, err
	}
	if err := infradynamodb.EnsureTable(ctx, client, cfg.Store.DynamoDBTable, logger); err != nil {
		return nil, err
	}
	return client, nil
}

// provideRedisClient returns nil unless sessions are kept in Redis.
func provideRedisClient(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*goredis.Client, func(), error) {
	if cfg.Store.SessionDriver != config.DriverRedis {
		return nil, func() {}, nil
	}
	rdb, err := infraredis.NewClient(ctx, cfg.Store.RedisAddr)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("Failed to close redis client", zap.Error(err))
		}
	}
	return rdb, cleanup, nil
}

func provideItemStore(cfg *config.Config, api infradynamodb.API, logger *zap.Logger) (repository.ItemStore, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		logger.Warn("Using in-memory item store; items are lost on restart")
		return memory.NewItemStore(), nil
	case config.DriverDynamoDB:
		return infradynamodb.NewItemStore(api, cfg.Store.DynamoDBTable, logger), nil
	default:
		return nil, fmt.Errorf("unsupported item store driver %q", cfg.Store.Driver)
	}
}

func provideSessionStore(cfg *config.Config, api infradynamodb.API, rdb *goredis.Client, logger *zap.Logger) (repository.SessionStore, error) {
	switch cfg.Store.SessionDriver {
	case config.DriverMemory:
		return memory.NewSessionStore(), nil
	case config.DriverDynamoDB:
		return infradynamodb.NewSessionStore(api, cfg.Store.DynamoDBTable, logger), nil
	case config.DriverRedis:
		return infraredis.NewSessionStore(rdb), nil
	default:
		return nil, fmt.Errorf("unsupported session store driver %q", cfg.Store.SessionDriver)
	}
}

// Hub Providers

func provideRegistry(store repository.SessionStore, logger *zap.Logger) *session.Registry {
	return session.NewRegistry(store, logger)
}

func provideCommandLimiter(cfg *config.Config) *ratelimit.SlidingWindow {
	return ratelimit.NewSlidingWindow(cfg.Hub.RateLimitMax, cfg.Hub.RateLimitWindow)
}

// provideIPLimiter returns nil when handshake limiting is disabled.
func provideIPLimiter(cfg *config.Config) *ratelimit.IPLimiter {
	if cfg.Server.HandshakeRPS <= 0 {
		return nil
	}
	return ratelimit.NewIPLimiter(cfg.Server.HandshakeRPS, cfg.Server.HandshakeBurst, 10*time.Minute)
}

// provideMonitorReporter returns nil when no monitoring URL is configured.
func provideMonitorReporter(cfg *config.Config, collector *observability.Collector, logger *zap.Logger) *monitor.Reporter {
	if cfg.Monitor.URL == "" {
		return nil
	}
	return monitor.NewReporter(cfg.Monitor.URL, cfg.Monitor.QueueSize, collector, logger)
}

func provideHub(
	cfg *config.Config,
	store repository.ItemStore,
	limiter *ratelimit.SlidingWindow,
	collector *observability.Collector,
	tracing *observability.TracerProvider,
	reporter *monitor.Reporter,
	logger *zap.Logger,
) *hub.Hub {
	opts := []hub.Option{
		hub.WithTracer(tracing.Tracer()),
		hub.WithLogCapacity(cfg.Hub.LogCapacity),
	}
	if reporter != nil {
		opts = append(opts, hub.WithReporter(reporter))
	}
	return hub.NewHub(store, limiter, collector, logger, opts...)
}

func provideServer(
	cfg *config.Config,
	h *hub.Hub,
	registry *session.Registry,
	ipLimiter *ratelimit.IPLimiter,
	collector *observability.Collector,
	logger *zap.Logger,
) *hub.Server {
	serverCfg := hub.DefaultServerConfig()
	serverCfg.SendBufferSize = cfg.Hub.SendBufferSize
	serverCfg.MaxMessageSize = cfg.Hub.MaxMessageSize
	serverCfg.CheckOrigin = checkOrigin(cfg.Server.AllowedOrigins)
	if cfg.Server.SessionHookSecret == "" {
		logger.Warn("SESSION_HOOK_SECRET is empty; POST /internal/sessions accepts any caller")
	}
	return hub.NewServer(h, registry, ipLimiter, collector, serverCfg, logger).
		WithSessionRecorder(registry, cfg.Server.SessionHookSecret)
}

func provideRouter(cfg *config.Config, srv *hub.Server, collector *observability.Collector, logger *zap.Logger) http.Handler {
	return hub.NewRouter(srv, collector, cfg.Server.AllowedOrigins, logger)
}

// checkOrigin accepts requests without an Origin header (non-browser
// clients) and origins present in the allow list.
func checkOrigin(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.TrimRight(origin, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
