package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_Levels(t *testing.T) {
	logger, atom, err := NewLogger("debug", "development")
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.Equal(t, zapcore.DebugLevel, atom.Level())

	require.NoError(t, SetLevel(atom, "warn"))
	assert.Equal(t, zapcore.WarnLevel, atom.Level())
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))

	require.NoError(t, SetLevel(atom, ""))
	assert.Equal(t, zapcore.InfoLevel, atom.Level())

	_, _, err = NewLogger("loud", "production")
	assert.Error(t, err)
}

func TestCollector_IndependentRegistries(t *testing.T) {
	a := NewCollector("syncboard")
	b := NewCollector("syncboard")

	a.BroadcastDropped.Inc()
	a.Commands.WithLabelValues("create_item", "ok").Inc()

	assert.Contains(t, scrape(t, a), "syncboard_broadcast_dropped_total 1")
	assert.Contains(t, scrape(t, a), `syncboard_commands_total{outcome="ok",type="create_item"} 1`)
	assert.Contains(t, scrape(t, b), "syncboard_broadcast_dropped_total 0")
}

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/internal/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("syncboard")
	c.Connections.Set(3)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/internal/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "syncboard_connections 3")
}

func TestInitTracing_Disabled(t *testing.T) {
	tp, err := InitTracing(context.Background(), TracingConfig{Enabled: false})
	require.NoError(t, err)

	_, span := tp.Tracer().Start(context.Background(), "noop")
	span.End()
	assert.NoError(t, tp.Shutdown(context.Background()))
}
