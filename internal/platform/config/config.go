// Package config loads service configuration from an optional YAML file with
// environment variable overrides. Defaults are chosen so the service starts
// with in-memory backends and no file at all, which is what tests and local
// runs want.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the service.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
	Platform    PlatformConfig    `yaml:"platform"`
	Geolocation GeolocationConfig `yaml:"geolocation"`
	Identity    IdentityConfig    `yaml:"identity"`
	Redis       RedisConfig       `yaml:"redis"`
	Postgres    PostgresConfig    `yaml:"postgres"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Audit       AuditConfig       `yaml:"audit"`
	Session     SessionConfig     `yaml:"session"`
	Admin       AdminConfig       `yaml:"admin"`
}

// LoggingConfig selects log level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr                  string   `yaml:"addr"`
	RequestTimeoutSeconds int      `yaml:"request_timeout_seconds"`
	AllowedOrigins        []string `yaml:"allowed_origins"`
}

// RequestTimeout returns the per-request timeout as a duration.
func (c ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// PlatformConfig holds the upstream consent platform API configuration.
type PlatformConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured client timeout as a duration.
func (c PlatformConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// GeolocationConfig holds the region lookup endpoint configuration.
type GeolocationConfig struct {
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured client timeout as a duration.
func (c GeolocationConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// IdentityConfig governs how device identity records are persisted.
// Backend selects the slot implementation: "cookie" keeps the record on the
// client, "redis" keys it by device cookie in Redis.
type IdentityConfig struct {
	Backend      string `yaml:"backend"`
	CookieName   string `yaml:"cookie_name"`
	CookieDomain string `yaml:"cookie_domain"`
	CookieSecure bool   `yaml:"cookie_secure"`
	TTLDays      int    `yaml:"ttl_days"`
}

// TTL returns the record retention window as a duration.
func (c IdentityConfig) TTL() time.Duration {
	return time.Duration(c.TTLDays) * 24 * time.Hour
}

// RedisConfig holds connection settings for the optional Redis backend.
type RedisConfig struct {
	URL                 string `yaml:"url"`
	PoolSize            int    `yaml:"pool_size"`
	MinIdleConns        int    `yaml:"min_idle_conns"`
	DialTimeoutSeconds  int    `yaml:"dial_timeout_seconds"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
}

func (c RedisConfig) DialTimeout() time.Duration {
	return time.Duration(c.DialTimeoutSeconds) * time.Second
}

func (c RedisConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

func (c RedisConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSeconds) * time.Second
}

// PostgresConfig holds connection settings for the audit store backend.
type PostgresConfig struct {
	URL                    string `yaml:"url"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// ConnMaxLifetime returns the maximum connection age as a duration.
func (c PostgresConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetimeMinutes) * time.Minute
}

// KafkaConfig holds broker settings for the audit event sink.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// AuditConfig selects the audit trail backend: "memory" or "postgres".
type AuditConfig struct {
	Backend    string `yaml:"backend"`
	BufferSize int    `yaml:"buffer_size"`
}

// SessionConfig governs open consent flow sessions.
type SessionConfig struct {
	TTLSeconds           int `yaml:"ttl_seconds"`
	SweepIntervalSeconds int `yaml:"sweep_interval_seconds"`
}

// TTL returns how long an open flow stays claimable.
func (c SessionConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// SweepInterval returns how often expired flows are reaped.
func (c SessionConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

// AdminConfig holds settings for the operator API.
type AdminConfig struct {
	JWTSigningKey string `yaml:"jwt_signing_key"`
}

// Load reads and parses the configuration file. An empty path yields a
// default configuration.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}

	// Set defaults
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.RequestTimeoutSeconds == 0 {
		cfg.Server.RequestTimeoutSeconds = 15
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Platform.BaseURL == "" {
		cfg.Platform.BaseURL = "http://localhost:9090"
	}
	if cfg.Platform.TimeoutSeconds == 0 {
		cfg.Platform.TimeoutSeconds = 10
	}
	if cfg.Geolocation.URL == "" {
		cfg.Geolocation.URL = cfg.Platform.BaseURL + "/location"
	}
	if cfg.Geolocation.TimeoutSeconds == 0 {
		cfg.Geolocation.TimeoutSeconds = 5
	}
	if cfg.Identity.Backend == "" {
		cfg.Identity.Backend = "cookie"
	}
	if cfg.Identity.CookieName == "" {
		cfg.Identity.CookieName = "assent_consent"
	}
	if cfg.Identity.TTLDays == 0 {
		cfg.Identity.TTLDays = 365
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = 10
	}
	if cfg.Redis.MinIdleConns == 0 {
		cfg.Redis.MinIdleConns = 2
	}
	if cfg.Redis.DialTimeoutSeconds == 0 {
		cfg.Redis.DialTimeoutSeconds = 5
	}
	if cfg.Redis.ReadTimeoutSeconds == 0 {
		cfg.Redis.ReadTimeoutSeconds = 3
	}
	if cfg.Redis.WriteTimeoutSeconds == 0 {
		cfg.Redis.WriteTimeoutSeconds = 3
	}
	if cfg.Postgres.MaxOpenConns == 0 {
		cfg.Postgres.MaxOpenConns = 10
	}
	if cfg.Postgres.MaxIdleConns == 0 {
		cfg.Postgres.MaxIdleConns = 5
	}
	if cfg.Postgres.ConnMaxLifetimeMinutes == 0 {
		cfg.Postgres.ConnMaxLifetimeMinutes = 30
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "assent.audit.v1"
	}
	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = "memory"
	}
	if cfg.Audit.BufferSize == 0 {
		cfg.Audit.BufferSize = 256
	}
	if cfg.Session.TTLSeconds == 0 {
		cfg.Session.TTLSeconds = 1800
	}
	if cfg.Session.SweepIntervalSeconds == 0 {
		cfg.Session.SweepIntervalSeconds = 60
	}
	if cfg.Admin.JWTSigningKey == "" {
		// Development default, override in any real deployment.
		cfg.Admin.JWTSigningKey = "dev-secret-key-change-in-production"
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It loads a .env file first (if present) so secrets can live in .env
// locally and in real env vars in deployment.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if addr := os.Getenv("ASSENT_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if origins := os.Getenv("ASSENT_ALLOWED_ORIGINS"); origins != "" {
		cfg.Server.AllowedOrigins = splitAndTrim(origins)
	}
	if baseURL := os.Getenv("PLATFORM_BASE_URL"); baseURL != "" {
		cfg.Platform.BaseURL = baseURL
	}
	if apiKey := os.Getenv("PLATFORM_API_KEY"); apiKey != "" {
		cfg.Platform.APIKey = apiKey
	}
	if geoURL := os.Getenv("GEOLOCATION_URL"); geoURL != "" {
		cfg.Geolocation.URL = geoURL
	}
	if backend := os.Getenv("IDENTITY_BACKEND"); backend != "" {
		cfg.Identity.Backend = backend
	}
	if name := os.Getenv("IDENTITY_COOKIE_NAME"); name != "" {
		cfg.Identity.CookieName = name
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cfg.Redis.URL = redisURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Postgres.URL = dbURL
		if cfg.Audit.Backend == "memory" {
			cfg.Audit.Backend = "postgres"
		}
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = splitAndTrim(brokers)
		cfg.Kafka.Enabled = true
	}
	if topic := os.Getenv("KAFKA_TOPIC"); topic != "" {
		cfg.Kafka.Topic = topic
	}
	if key := os.Getenv("ADMIN_JWT_SIGNING_KEY"); key != "" {
		cfg.Admin.JWTSigningKey = key
	}

	return cfg, nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
