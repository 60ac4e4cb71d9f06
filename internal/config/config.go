// Package config loads the configuration of the sync hub and the monitoring
// service: defaults, then an optional YAML file named by CONFIG_FILE, then
// environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment names
const (
	Development = "development"
	Production  = "production"
)

// Store drivers
const (
	DriverMemory   = "memory"
	DriverDynamoDB = "dynamodb"
	DriverRedis    = "redis"
)

// Config holds all application configuration
type Config struct {
	Environment string        `yaml:"environment"`
	Server      ServerConfig  `yaml:"server"`
	Hub         HubConfig     `yaml:"hub"`
	Store       StoreConfig   `yaml:"store"`
	Monitor     MonitorConfig `yaml:"monitor"`
	Tracing     TracingConfig `yaml:"tracing"`
	Logging     LoggingConfig `yaml:"logging"`

	// path of the YAML file this config was read from, if any
	File string `yaml:"-"`
}

// ServerConfig configures the HTTP listener of the hub.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	HandshakeRPS    float64       `yaml:"handshake_rps"`
	HandshakeBurst  int           `yaml:"handshake_burst"`
	// SessionHookSecret is the bearer token the login service presents on
	// POST /internal/sessions. Empty leaves the route open.
	SessionHookSecret string `yaml:"session_hook_secret"`
}

// HubConfig configures the connection hub.
type HubConfig struct {
	SendBufferSize  int           `yaml:"send_buffer_size"`
	MaxMessageSize  int64         `yaml:"max_message_size"`
	RateLimitWindow time.Duration `yaml:"rate_limit_window"`
	RateLimitMax    int           `yaml:"rate_limit_max"`
	LogCapacity     int           `yaml:"log_capacity"`
}

// StoreConfig selects and configures the persistence adapters.
type StoreConfig struct {
	Driver           string `yaml:"driver"`
	SessionDriver    string `yaml:"session_driver"`
	DynamoDBTable    string `yaml:"dynamodb_table"`
	DynamoDBEndpoint string `yaml:"dynamodb_endpoint"`
	AWSRegion        string `yaml:"aws_region"`
	RedisAddr        string `yaml:"redis_addr"`
}

// MonitorConfig configures the monitoring service and the hub's reporter.
type MonitorConfig struct {
	// URL of the monitoring service the hub reports to; empty disables reporting.
	URL       string `yaml:"url"`
	Address   string `yaml:"address"`
	QueueSize int    `yaml:"queue_size"`
}

// TracingConfig configures OTLP trace export.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Endpoint   string  `yaml:"endpoint"`
	SampleRate float64 `yaml:"sample_rate"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Environment: Development,
		Server: ServerConfig{
			Address:         ":3000",
			AllowedOrigins:  []string{"*"},
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			HandshakeRPS:    5,
			HandshakeBurst:  20,
		},
		Hub: HubConfig{
			SendBufferSize:  256,
			MaxMessageSize:  4096,
			RateLimitWindow: 10 * time.Second,
			RateLimitMax:    15,
			LogCapacity:     50,
		},
		Store: StoreConfig{
			Driver:        DriverMemory,
			SessionDriver: DriverMemory,
			DynamoDBTable: "syncboard",
			AWSRegion:     "eu-west-3",
			RedisAddr:     "localhost:6379",
		},
		Monitor: MonitorConfig{
			Address:   ":4001",
			QueueSize: 256,
		},
		Tracing: TracingConfig{
			Endpoint: "localhost:4317",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load builds the configuration and validates it.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFile overlays the YAML file at path onto cfg.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	c.File = path
	return nil
}

func (c *Config) applyEnv() {
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.Server.Address = getEnv("SERVER_ADDRESS", c.Server.Address)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		c.Server.AllowedOrigins = splitList(origins)
	}
	c.Server.SessionHookSecret = getEnv("SESSION_HOOK_SECRET", c.Server.SessionHookSecret)
	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)

	c.Store.Driver = getEnv("STORE_DRIVER", c.Store.Driver)
	c.Store.SessionDriver = getEnv("SESSION_STORE_DRIVER", c.Store.SessionDriver)
	c.Store.DynamoDBTable = getEnv("DYNAMODB_TABLE", c.Store.DynamoDBTable)
	c.Store.DynamoDBEndpoint = getEnv("DYNAMODB_ENDPOINT", c.Store.DynamoDBEndpoint)
	c.Store.AWSRegion = getEnv("AWS_REGION", c.Store.AWSRegion)
	c.Store.RedisAddr = getEnv("REDIS_ADDR", c.Store.RedisAddr)

	c.Monitor.URL = getEnv("MONITOR_URL", c.Monitor.URL)
	if port := os.Getenv("MONITOR_PORT"); port != "" {
		c.Monitor.Address = ":" + port
	}
	c.Monitor.Address = getEnv("MONITOR_ADDRESS", c.Monitor.Address)

	c.Tracing.Enabled = getEnvBool("ENABLE_TRACING", c.Tracing.Enabled)
	c.Tracing.Endpoint = getEnv("OTLP_ENDPOINT", c.Tracing.Endpoint)

	c.Hub.RateLimitMax = getEnvInt("RATE_LIMIT_MAX", c.Hub.RateLimitMax)
}

// Validate checks if the configuration is usable
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("SERVER_ADDRESS is required")
	}
	switch c.Store.Driver {
	case DriverMemory, DriverDynamoDB:
	default:
		return fmt.Errorf("unsupported item store driver %q", c.Store.Driver)
	}
	switch c.Store.SessionDriver {
	case DriverMemory, DriverDynamoDB:
	case DriverRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis session store")
		}
	default:
		return fmt.Errorf("unsupported session store driver %q", c.Store.SessionDriver)
	}
	if (c.Store.Driver == DriverDynamoDB || c.Store.SessionDriver == DriverDynamoDB) && c.Store.DynamoDBTable == "" {
		return fmt.Errorf("DYNAMODB_TABLE is required")
	}
	if c.Hub.RateLimitMax <= 0 || c.Hub.RateLimitWindow <= 0 {
		return fmt.Errorf("rate limit must be positive")
	}
	if c.Hub.SendBufferSize <= 0 {
		return fmt.Errorf("send buffer size must be positive")
	}
	if c.Environment == Production && c.Store.Driver == DriverMemory {
		return fmt.Errorf("the memory item store cannot be used in production")
	}
	if c.Environment == Production && c.Server.SessionHookSecret == "" {
		return fmt.Errorf("SESSION_HOOK_SECRET is required in production")
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
