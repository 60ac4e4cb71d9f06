package hub

import (
	"net/http"

	"github.com/Ezyrone/TP-Final-2/internal/middleware"
	"github.com/Ezyrone/TP-Final-2/internal/observability"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// NewRouter wires the hub's HTTP surface.
func NewRouter(srv *Server, collector *observability.Collector, allowedOrigins []string, logger *zap.Logger) http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(logger))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	router.Get("/health", srv.HandleHealth)
	router.Get("/ready", srv.HandleReady)
	router.Get("/ws", srv.HandleWebSocket)
	router.Get("/api/metrics", srv.HandleSnapshot)
	router.Method(http.MethodGet, "/internal/metrics", collector.Handler())
	if srv.recorder != nil {
		router.Post("/internal/sessions", srv.HandleRecordSession)
	}

	return router
}
