package configs

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Recorder backends.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendPebble = "pebble"
	BackendSQL    = "sql"
)

type Config struct {
	Server   ServerConfig
	Upstream UpstreamConfig
	Recorder RecorderConfig
	Cache    CacheConfig
	Redis    RedisConfig
	SQL      SQLConfig
	S3       S3Config
	Log      LogConfig
	Shutdown ShutdownConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	TLSCertFile  string
	TLSKeyFile   string
}

type UpstreamConfig struct {
	// URL of the real node. Empty means replay mode.
	URL         string
	DialTimeout time.Duration
}

type RecorderConfig struct {
	Backend   string
	FilePath  string
	Compress  bool
	PebbleDir string
	// Debug wraps the recorder with per-operation debug logging.
	Debug bool
}

type CacheConfig struct {
	Record           bool
	SingleFlight     bool
	ChainID          uint64
	AutosaveInterval time.Duration
}

type RedisConfig struct {
	Host      string
	Port      string
	Password  string
	DB        int
	KeyPrefix string
	// Pool and timeout settings
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
	IdleTimeout  time.Duration
}

type SQLConfig struct {
	Driver string // postgres or sqlite
	DSN    string
	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type S3Config struct {
	Bucket    string
	Key       string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// Enabled reports whether the snapshot should be mirrored to S3.
func (c S3Config) Enabled() bool { return c.Bucket != "" }

type LogConfig struct {
	Level  string
	Format string // json or text
}

type ShutdownConfig struct {
	DrainTimeout time.Duration
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "127.0.0.1"),
			Port:         getEnv("SERVER_PORT", "7777"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 5*time.Minute),
			IdleTimeout:  getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
			TLSCertFile:  getEnv("TLS_CERT_FILE", ""),
			TLSKeyFile:   getEnv("TLS_KEY_FILE", ""),
		},
		Upstream: UpstreamConfig{
			URL:         getEnv("NODE_URL", ""),
			DialTimeout: getDurationEnv("NODE_DIAL_TIMEOUT", 10*time.Second),
		},
		Recorder: RecorderConfig{
			Backend:   getEnv("RECORDER_BACKEND", BackendFile),
			FilePath:  getEnv("DB_FILE_PATH", "cache.db"),
			Compress:  getBoolEnv("CACHE_COMPRESS", false),
			PebbleDir: getEnv("PEBBLE_DIR", "cache.pebble"),
			Debug:     getBoolEnv("RECORDER_DEBUG", false),
		},
		Cache: CacheConfig{
			Record:           getBoolEnv("CACHE_RECORD", true),
			SingleFlight:     getBoolEnv("CACHE_SINGLE_FLIGHT", true),
			ChainID:          getUintEnv("CHAIN_ID", 1),
			AutosaveInterval: getDurationEnv("CACHE_AUTOSAVE_INTERVAL", 0),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getIntEnv("REDIS_DB", 0),
			KeyPrefix:    getEnv("REDIS_KEY_PREFIX", "nodecache"),
			PoolSize:     getIntEnv("REDIS_POOL_SIZE", 10),
			MinIdleConns: getIntEnv("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDurationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDurationEnv("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDurationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
			PoolTimeout:  getDurationEnv("REDIS_POOL_TIMEOUT", 4*time.Second),
			IdleTimeout:  getDurationEnv("REDIS_IDLE_TIMEOUT", 5*time.Minute),
		},
		SQL: SQLConfig{
			Driver:          getEnv("SQL_DRIVER", "sqlite"),
			DSN:             getEnv("SQL_DSN", "cache.sqlite"),
			MaxOpenConns:    getIntEnv("SQL_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntEnv("SQL_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: getDurationEnv("SQL_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getDurationEnv("SQL_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		S3: S3Config{
			Bucket:    getEnv("S3_BUCKET", ""),
			Key:       getEnv("S3_KEY", "node-cache/cache.db"),
			Region:    getEnv("S3_REGION", "us-east-1"),
			Endpoint:  getEnv("S3_ENDPOINT", ""),
			AccessKey: getEnv("S3_ACCESS_KEY", ""),
			SecretKey: getEnv("S3_SECRET_KEY", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Shutdown: ShutdownConfig{
			DrainTimeout: getDurationEnv("SHUTDOWN_DRAIN_TIMEOUT", 10*time.Second),
		},
	}

	return cfg, nil
}

// SetListenAddress splits a host:port pair into the server config.
func (c *Config) SetListenAddress(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	c.Server.Host = host
	c.Server.Port = port
	return nil
}

// Validate checks settings that cannot be defaulted.
func (c *Config) Validate() error {
	var errs []error
	switch c.Recorder.Backend {
	case BackendFile:
		if c.Recorder.FilePath == "" {
			errs = append(errs, errors.New("file recorder requires DB_FILE_PATH"))
		}
	case BackendPebble:
		if c.Recorder.PebbleDir == "" {
			errs = append(errs, errors.New("pebble recorder requires PEBBLE_DIR"))
		}
	case BackendSQL:
		if c.SQL.Driver != "postgres" && c.SQL.Driver != "sqlite" {
			errs = append(errs, fmt.Errorf("unsupported SQL_DRIVER %q", c.SQL.Driver))
		}
		if c.SQL.DSN == "" {
			errs = append(errs, errors.New("sql recorder requires SQL_DSN"))
		}
	case BackendRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown recorder backend %q", c.Recorder.Backend))
	}
	if c.S3.Enabled() && c.Recorder.Backend != BackendFile {
		errs = append(errs, errors.New("S3 mirroring is only supported with the file recorder"))
	}
	if c.Upstream.URL != "" && !strings.Contains(c.Upstream.URL, "://") {
		errs = append(errs, fmt.Errorf("node URL %q has no scheme", c.Upstream.URL))
	}
	if c.Cache.ChainID == 0 {
		errs = append(errs, errors.New("CHAIN_ID must be positive"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getUintEnv(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if u, err := strconv.ParseUint(value, 10, 64); err == nil {
			return u
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
