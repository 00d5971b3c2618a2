package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	pkgstrings "rosterboard/pkg/platform/strings"
)

// Config is the full process configuration, built once in main and passed
// down explicitly. Each section maps to one backing concern.
type Config struct {
	Server    Server
	RemoteAPI RemoteAPI
	Redis     RedisConfig
	Postgres  PostgresConfig
	Kafka     KafkaConfig
	Roster    RosterConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr string
	// APIKeyHash is a bcrypt hash guarding mutating endpoints. Empty
	// disables the guard (local development).
	APIKeyHash      string
	ShutdownTimeout time.Duration
}

// RemoteAPI configures the upstream records service client.
type RemoteAPI struct {
	BaseURL    string
	ID         string
	Password   string
	PageSize   int
	MaxRetries int
	PageDelay  time.Duration
	Timeout    time.Duration
}

// RedisConfig configures the directory cache. An empty URL disables Redis
// and the pipeline falls back to the in-memory cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	DirectoryTTL time.Duration
}

// PostgresConfig configures run persistence. An empty DSN keeps runs in
// memory only.
type PostgresConfig struct {
	DSN string
}

// KafkaConfig configures the audit event publisher. No brokers means audit
// events stay in-process.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// RosterConfig carries the default column mapping used when a request does
// not name its own columns.
type RosterConfig struct {
	NameColumn   string
	PhoneColumns []string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:            getenv("ROSTERBOARD_ADDR", ":8080"),
			APIKeyHash:      os.Getenv("ROSTERBOARD_API_KEY_HASH"),
			ShutdownTimeout: getdur("ROSTERBOARD_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		RemoteAPI: RemoteAPI{
			BaseURL:    getenv("RECORDS_API_URL", "http://localhost:9000"),
			ID:         os.Getenv("RECORDS_API_ID"),
			Password:   os.Getenv("RECORDS_API_PASSWORD"),
			PageSize:   getint("RECORDS_API_PAGE_SIZE", 500),
			MaxRetries: getint("RECORDS_API_MAX_RETRIES", 3),
			PageDelay:  getdur("RECORDS_API_PAGE_DELAY", 200*time.Millisecond),
			Timeout:    getdur("RECORDS_API_TIMEOUT", 30*time.Second),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getint("REDIS_POOL_SIZE", 10),
			MinIdleConns: getint("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getdur("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getdur("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getdur("REDIS_WRITE_TIMEOUT", 3*time.Second),
			DirectoryTTL: getdur("DIRECTORY_CACHE_TTL", 15*time.Minute),
		},
		Postgres: PostgresConfig{
			DSN: os.Getenv("POSTGRES_DSN"),
		},
		Kafka: KafkaConfig{
			Brokers: getlist("KAFKA_BROKERS"),
			Topic:   getenv("KAFKA_AUDIT_TOPIC", "rosterboard.audit"),
		},
		Roster: RosterConfig{
			NameColumn:   getenv("ROSTER_NAME_COLUMN", "Name"),
			PhoneColumns: getlistDefault("ROSTER_PHONE_COLUMNS", []string{"Phone Number", "WhatsApp Number", "Phone"}),
		},
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getdur(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getlist(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	out := pkgstrings.DedupeAndTrim(strings.Split(v, ","))
	if len(out) == 0 {
		return nil
	}
	return out
}

func getlistDefault(key string, def []string) []string {
	if out := getlist(key); out != nil {
		return out
	}
	return def
}
