package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Session store backends.
const (
	StoreFile     = "file"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

const defaultSyncIntervalMs = 3000

// Config aggregates runtime configuration for the client.
type Config struct {
	App      AppConfig
	API      APIConfig
	Sync     SyncConfig
	Session  SessionConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Operator OperatorConfig
}

// AppConfig controls the local dashboard server.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// APIConfig points at the upstream coffee API.
type APIConfig struct {
	BaseURL        string
	TimeoutSeconds int
}

// SyncConfig controls order polling.
type SyncConfig struct {
	IntervalMs int
}

// SessionConfig selects where the session survives restarts and optional
// credentials for logging in at startup.
type SessionConfig struct {
	Store     string
	FilePath  string
	KeyPrefix string
	Username  string
	Password  string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
	// ConnectRetries is how many extra attempts are made when the first dial fails.
	ConnectRetries int
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
	// Format is "json" or "console".
	Format string
}

// OperatorConfig guards dashboard mutation routes. Empty hash disables the guard.
type OperatorConfig struct {
	KeyHash string
}

// Load reads configuration from environment variables (and .env when present),
// applying defaults where possible. Malformed numeric or boolean values are
// reported together rather than silently replaced by defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := &envReader{}
	store := strings.ToLower(env.strVal("SESSION_STORE", StoreFile))
	switch store {
	case StoreFile, StoreRedis, StorePostgres:
	default:
		env.fail("SESSION_STORE", fmt.Errorf("unknown store %q", store))
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  env.strVal("APP_NAME", "queueboard"),
			Env:                   env.strVal("APP_ENV", "development"),
			Host:                  env.strVal("APP_HOST", "127.0.0.1"),
			Port:                  env.strVal("APP_PORT", "8090"),
			Version:               env.strVal("APP_VERSION", "dev"),
			RequestTimeoutSeconds: env.intVal("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		API: APIConfig{
			BaseURL:        strings.TrimRight(env.strVal("API_BASE_URL", "http://localhost:8080"), "/"),
			TimeoutSeconds: env.intVal("API_TIMEOUT_SECONDS", 10),
		},
		Sync: SyncConfig{
			IntervalMs: env.intVal("SYNC_INTERVAL_MS", defaultSyncIntervalMs),
		},
		Session: SessionConfig{
			Store:     store,
			FilePath:  env.strVal("SESSION_FILE", ".queueboard/session.json"),
			KeyPrefix: os.Getenv("SESSION_KEY_PREFIX"),
			Username:  os.Getenv("QUEUE_USERNAME"),
			Password:  os.Getenv("QUEUE_PASSWORD"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(env.intVal("POSTGRES_MAX_CONNS", 4)),
			MinConns:       int32(env.intVal("POSTGRES_MIN_CONNS", 1)),
			RunMigrations:  env.boolVal("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(env.intVal("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(env.intVal("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
			ConnectRetries: env.intVal("POSTGRES_CONNECT_RETRIES", 3),
		},
		Redis: RedisConfig{
			Addr:     env.strVal("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       env.intVal("REDIS_DB", 0),
		},
		Logger: LoggerConfig{
			Level:  env.strVal("LOG_LEVEL", "info"),
			Format: strings.ToLower(env.strVal("LOG_FORMAT", "json")),
		},
		Operator: OperatorConfig{
			KeyHash: os.Getenv("OPERATOR_KEY_HASH"),
		},
	}

	if err := env.err(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout is the per-call transport timeout for upstream requests.
func (a APIConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// Interval returns the poll interval, falling back to 3s for non-positive values.
func (s SyncConfig) Interval() time.Duration {
	if s.IntervalMs <= 0 {
		return defaultSyncIntervalMs * time.Millisecond
	}
	return time.Duration(s.IntervalMs) * time.Millisecond
}

// HasAutoLogin reports whether startup credentials were supplied.
func (s SessionConfig) HasAutoLogin() bool {
	return s.Username != "" && s.Password != ""
}

// envReader reads typed values and remembers every key that failed to parse.
type envReader struct {
	errs []error
}

func (r *envReader) strVal(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func (r *envReader) intVal(key string, fallback int) int {
	val := r.strVal(key, "")
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		r.fail(key, err)
		return fallback
	}
	return parsed
}

func (r *envReader) boolVal(key string, fallback bool) bool {
	val := r.strVal(key, "")
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		r.fail(key, err)
		return fallback
	}
	return parsed
}

func (r *envReader) fail(key string, err error) {
	r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
}

func (r *envReader) err() error {
	return errors.Join(r.errs...)
}
