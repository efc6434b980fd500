package appconfig

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/MrEthical07/iammetrics"
	"github.com/MrEthical07/iammetrics/jwt"
)

// EnvFiles are loaded, when present, before the YAML is expanded. Variables
// already set in the process environment win.
var EnvFiles = []string{".env", ".env.local"}

// Load reads path, expands ${VAR} references, applies defaults and validates.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("configuration file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a configuration document. Environment references are
// expanded before decoding.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Version == "" {
		cfg.Version = Version
	}
	if cfg.Version != Version {
		return nil, fmt.Errorf("unsupported configuration version: %s (expected %s)", cfg.Version, Version)
	}

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{Version: Version}
	ApplyDefaults(cfg)
	return cfg
}

func loadEnvFiles() {
	for _, f := range EnvFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		_ = godotenv.Load(f)
	}
}

func boolPtr(v bool) *bool { return &v }

// ApplyDefaults fills zero values.
func ApplyDefaults(cfg *Config) {
	s := &cfg.Server
	if s.Listen == "" {
		s.Listen = ":9464"
	}
	if s.MetricsPath == "" {
		s.MetricsPath = "/metrics"
	}
	if s.HealthPath == "" {
		s.HealthPath = "/healthz"
	}
	if s.ScrapeTimeout == 0 {
		s.ScrapeTimeout = 10 * time.Second
	}
	if s.ReadHeaderTimeout == 0 {
		s.ReadHeaderTimeout = 5 * time.Second
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = 15 * time.Second
	}
	if s.IngestWindow == 0 {
		s.IngestWindow = time.Minute
	}

	a := &cfg.Auth
	a.SigningMethod = strings.ToLower(strings.TrimSpace(a.SigningMethod))
	if a.SigningMethod == "" {
		a.SigningMethod = string(jwt.MethodHS256)
	}
	if a.TokenTTL == 0 {
		a.TokenTTL = time.Hour
	}

	r := &cfg.Redis
	if r.Addr == "" {
		r.Addr = "127.0.0.1:6379"
	}
	if r.Prefix == "" {
		r.Prefix = "iam"
	}

	n := &cfg.NATS
	if n.URL == "" {
		n.URL = "nats://127.0.0.1:4222"
	}
	if n.Subject == "" {
		n.Subject = "iam.events"
	}
	if n.MaxReconnects == 0 {
		n.MaxReconnects = -1
	}
	if n.ReconnectWait == 0 {
		n.ReconnectWait = 2 * time.Second
	}

	m := &cfg.Metrics
	def := iammetrics.DefaultConfig()
	if m.GoCollector == nil {
		m.GoCollector = boolPtr(def.Runtime.GoCollector)
	}
	if m.ProcessCollector == nil {
		m.ProcessCollector = boolPtr(def.Runtime.ProcessCollector)
	}
	if m.BufferSize == 0 {
		m.BufferSize = def.Listener.BufferSize
	}
	if m.DropIfFull == nil {
		m.DropIfFull = boolPtr(def.Listener.DropIfFull)
	}

	l := &cfg.Logging
	l.Level = strings.ToLower(strings.TrimSpace(l.Level))
	if l.Level == "" {
		l.Level = "info"
	}
	l.Format = strings.ToLower(strings.TrimSpace(l.Format))
	if l.Format == "" {
		l.Format = "json"
	}
}

// RegistryConfig converts the metrics section into an iammetrics.Config.
func (c *Config) RegistryConfig() iammetrics.Config {
	cfg := iammetrics.DefaultConfig()
	m := c.Metrics
	if m.GoCollector != nil {
		cfg.Runtime.GoCollector = *m.GoCollector
	}
	if m.ProcessCollector != nil {
		cfg.Runtime.ProcessCollector = *m.ProcessCollector
	}
	cfg.Listener.Async = m.Async
	cfg.Listener.BufferSize = m.BufferSize
	if m.DropIfFull != nil {
		cfg.Listener.DropIfFull = *m.DropIfFull
	}
	cfg.Refresh.Timeout = c.Server.ScrapeTimeout
	return cfg
}

// TokenConfig builds the scrape-token manager configuration, reading key
// files when configured.
func (c *Config) TokenConfig() (jwt.Config, error) {
	a := c.Auth
	out := jwt.Config{
		TokenTTL:      a.TokenTTL,
		SigningMethod: jwt.SigningMethod(a.SigningMethod),
		Issuer:        a.Issuer,
		Audience:      a.Audience,
		Leeway:        a.Leeway,
	}
	switch out.SigningMethod {
	case jwt.MethodHS256:
		out.PrivateKey = []byte(a.Secret)
	case jwt.MethodEd25519:
		if a.PrivateKeyFile != "" {
			key, err := os.ReadFile(a.PrivateKeyFile)
			if err != nil {
				return jwt.Config{}, fmt.Errorf("read private key: %w", err)
			}
			out.PrivateKey = key
		}
		if a.PublicKeyFile != "" {
			key, err := os.ReadFile(a.PublicKeyFile)
			if err != nil {
				return jwt.Config{}, fmt.Errorf("read public key: %w", err)
			}
			out.PublicKey = key
		}
	}
	return out, nil
}
