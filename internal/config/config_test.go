package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("MONITOR_PORT", "")
	t.Setenv("MONITOR_ADDRESS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.Server.Address)
	assert.Equal(t, ":4001", cfg.Monitor.Address)
	assert.Equal(t, 15, cfg.Hub.RateLimitMax)
	assert.Equal(t, 10*time.Second, cfg.Hub.RateLimitWindow)
	assert.Equal(t, 50, cfg.Hub.LogCapacity)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Empty(t, cfg.Monitor.URL)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hub.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  address: ":9000"
  allowed_origins: ["https://list.example"]
hub:
  rate_limit_window: 5s
logging:
  level: debug
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("MONITOR_URL", "http://localhost:4001")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Address)
	assert.Equal(t, 5*time.Second, cfg.Hub.RateLimitWindow)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "http://localhost:4001", cfg.Monitor.URL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, path, cfg.File)
}

func TestLoad_MonitorPort(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("MONITOR_ADDRESS", "")
	t.Setenv("MONITOR_PORT", "4100")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":4100", cfg.Monitor.Address)

	t.Setenv("MONITOR_ADDRESS", "127.0.0.1:4200")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:4200", cfg.Monitor.Address)
}

func TestLoad_BadFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"unknown driver", func(c *Config) { c.Store.Driver = "postgres" }, true},
		{"redis sessions need an address", func(c *Config) {
			c.Store.SessionDriver = DriverRedis
			c.Store.RedisAddr = ""
		}, true},
		{"dynamodb needs a table", func(c *Config) {
			c.Store.Driver = DriverDynamoDB
			c.Store.DynamoDBTable = ""
		}, true},
		{"memory store refused in production", func(c *Config) { c.Environment = Production }, true},
		{"production on dynamodb", func(c *Config) {
			c.Environment = Production
			c.Store.Driver = DriverDynamoDB
			c.Server.SessionHookSecret = "hook"
		}, false},
		{"production needs a session hook secret", func(c *Config) {
			c.Environment = Production
			c.Store.Driver = DriverDynamoDB
		}, true},
		{"zero rate limit", func(c *Config) { c.Hub.RateLimitMax = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hub.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: info\n"), 0o600))
	t.Setenv("LOG_LEVEL", "")

	w, err := NewWatcher(path, zap.NewNop())
	require.NoError(t, err)
	defer w.Close()

	var level atomic.Value
	w.OnChange(func(cfg *Config) { level.Store(cfg.Logging.Level) })

	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o600))

	assert.Eventually(t, func() bool {
		v, _ := level.Load().(string)
		return v == "debug"
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatcher_RunsEveryCallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hub.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0o600))
	t.Setenv("LOG_LEVEL", "")

	w, err := NewWatcher(path, zap.NewNop())
	require.NoError(t, err)
	defer w.Close()

	var got []string
	w.OnChange(func(cfg *Config) { got = append(got, "first:"+cfg.Logging.Level) })
	w.OnChange(func(cfg *Config) {
		got = append(got, "second:"+cfg.Logging.Level)
		// registering from inside a callback must not deadlock
		w.OnChange(func(*Config) {})
	})

	w.reload()
	assert.Equal(t, []string{"first:warn", "second:warn"}, got)
}
