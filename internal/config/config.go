// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// DatabaseURL is the Postgres DSN; required by server, worker, and migrate.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// TenantID identifies the bot this process runs as. One process serves one tenant;
	// session storage and the deadline registry are keyed by it so many tenants can share a database.
	TenantID string `mapstructure:"TENANT_ID"`
	// BotAPIBaseURL is the chat Bot API base (e.g. https://api.telegram.org).
	BotAPIBaseURL string `mapstructure:"BOT_API_BASE_URL"`
	// BotToken authenticates the chat Bot API client.
	BotToken string `mapstructure:"BOT_TOKEN"`
	// PollTimeoutSeconds is the long-poll timeout for fetching updates (default 30).
	PollTimeoutSeconds int `mapstructure:"POLL_TIMEOUT_SECONDS"`
	// AdminCacheTTL is how long a fetched chat-administrator list stays valid (e.g. "10m").
	AdminCacheTTL string `mapstructure:"ADMIN_CACHE_TTL"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// OTLPEndpoint enables OTel export when set (e.g. http://localhost:4317).
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`

	// Ops events (optional). When Kafka brokers are set, the server emits ops events to Kafka.
	// EventsKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	EventsKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// EventsKafkaTopic is the Kafka topic for ops events (default groupwarden-events).
	EventsKafkaTopic string `mapstructure:"EVENTS_KAFKA_TOPIC"`

	// Worker-only: Loki URL for the ops worker to push events (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the ops worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("TENANT_ID", "")
	v.SetDefault("BOT_API_BASE_URL", "https://api.telegram.org")
	v.SetDefault("BOT_TOKEN", "")
	v.SetDefault("POLL_TIMEOUT_SECONDS", 30)
	v.SetDefault("ADMIN_CACHE_TTL", "10m")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("EVENTS_KAFKA_TOPIC", "groupwarden-events")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "groupwarden-events-worker")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.TenantID == "" {
		return nil, errors.New("config: TENANT_ID must be set")
	}
	if cfg.PollTimeoutSeconds <= 0 {
		cfg.PollTimeoutSeconds = 30
	}

	return &cfg, nil
}

// AdminCacheTTLDuration parses AdminCacheTTL as a time.Duration. Returns 10m if unset or invalid.
func (c *Config) AdminCacheTTLDuration() time.Duration {
	d, err := time.ParseDuration(c.AdminCacheTTL)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// EventsKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if the events pipeline is enabled (non-empty list) and to create the producer.
func (c *Config) EventsKafkaBrokersList() []string {
	if c == nil || c.EventsKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.EventsKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
