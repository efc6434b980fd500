// Package appconfig loads the iammetricsd daemon configuration from YAML.
package appconfig

import (
	"time"
)

// Version is the only configuration version understood by Load.
const Version = "1"

// Config is the daemon configuration file.
type Config struct {
	Version string        `yaml:"version"`
	Server  ServerConfig  `yaml:"server"`
	Auth    AuthConfig    `yaml:"auth"`
	Redis   RedisConfig   `yaml:"redis"`
	NATS    NATSConfig    `yaml:"nats"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Listen            string        `yaml:"listen"`
	MetricsPath       string        `yaml:"metrics_path"`
	HealthPath        string        `yaml:"health_path"`
	ScrapeTimeout     time.Duration `yaml:"scrape_timeout"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	// IngestLimit caps POST /events per client address and window.
	// Zero disables it; it needs redis.enabled.
	IngestLimit  int           `yaml:"ingest_limit"`
	IngestWindow time.Duration `yaml:"ingest_window"`
}

// AuthConfig guards the scrape endpoint with bearer tokens.
type AuthConfig struct {
	Enabled        bool          `yaml:"enabled"`
	SigningMethod  string        `yaml:"signing_method"`
	Secret         string        `yaml:"secret"`
	PrivateKeyFile string        `yaml:"private_key_file"`
	PublicKeyFile  string        `yaml:"public_key_file"`
	Issuer         string        `yaml:"issuer"`
	Audience       string        `yaml:"audience"`
	Leeway         time.Duration `yaml:"leeway"`
	TokenTTL       time.Duration `yaml:"token_ttl"`
}

// RedisConfig selects the session directory backend. Embedded runs an
// in-process miniredis, useful for demos and local runs.
type RedisConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Embedded   bool          `yaml:"embedded"`
	Addr       string        `yaml:"addr"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	Prefix     string        `yaml:"prefix"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// NATSConfig configures the event subscription.
type NATSConfig struct {
	Enabled       bool          `yaml:"enabled"`
	URL           string        `yaml:"url"`
	Subject       string        `yaml:"subject"`
	Queue         string        `yaml:"queue"`
	MaxReconnects int           `yaml:"max_reconnects"`
	ReconnectWait time.Duration `yaml:"reconnect_wait"`
}

// MetricsConfig maps onto iammetrics.Config.
type MetricsConfig struct {
	GoCollector      *bool `yaml:"go_collector"`
	ProcessCollector *bool `yaml:"process_collector"`
	Async            bool  `yaml:"async"`
	BufferSize       int   `yaml:"buffer_size"`
	DropIfFull       *bool `yaml:"drop_if_full"`
}

// LoggingConfig selects the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}
