package appconfig

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/iammetrics/jwt"
)

// Validate checks a defaulted configuration and reports every problem found.
func Validate(cfg *Config) error {
	var errs []error

	if !strings.HasPrefix(cfg.Server.MetricsPath, "/") {
		errs = append(errs, fmt.Errorf("server.metrics_path must start with '/': %q", cfg.Server.MetricsPath))
	}
	if !strings.HasPrefix(cfg.Server.HealthPath, "/") {
		errs = append(errs, fmt.Errorf("server.health_path must start with '/': %q", cfg.Server.HealthPath))
	}
	if cfg.Server.MetricsPath == cfg.Server.HealthPath {
		errs = append(errs, errors.New("server.metrics_path and server.health_path must differ"))
	}
	if cfg.Server.ScrapeTimeout < 0 {
		errs = append(errs, errors.New("server.scrape_timeout must not be negative"))
	}
	if cfg.Server.IngestLimit < 0 {
		errs = append(errs, errors.New("server.ingest_limit must not be negative"))
	}
	if cfg.Server.IngestLimit > 0 && !cfg.Redis.Enabled {
		errs = append(errs, errors.New("server.ingest_limit requires redis.enabled"))
	}

	if cfg.Auth.Enabled {
		switch jwt.SigningMethod(cfg.Auth.SigningMethod) {
		case jwt.MethodHS256:
			if cfg.Auth.Secret == "" {
				errs = append(errs, errors.New("auth.secret is required for hs256"))
			}
		case jwt.MethodEd25519:
			if cfg.Auth.PublicKeyFile == "" && cfg.Auth.PrivateKeyFile == "" {
				errs = append(errs, errors.New("auth.public_key_file or auth.private_key_file is required for ed25519"))
			}
		default:
			errs = append(errs, fmt.Errorf("auth.signing_method %q is not supported", cfg.Auth.SigningMethod))
		}
	}

	if cfg.Redis.Enabled && !cfg.Redis.Embedded && cfg.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required"))
	}
	if cfg.Redis.DB < 0 {
		errs = append(errs, errors.New("redis.db must not be negative"))
	}

	if cfg.NATS.Enabled && cfg.NATS.Subject == "" {
		errs = append(errs, errors.New("nats.subject is required"))
	}

	if cfg.Metrics.BufferSize < 0 || (cfg.Metrics.Async && cfg.Metrics.BufferSize == 0) {
		errs = append(errs, fmt.Errorf("metrics.buffer_size must be positive, got %d", cfg.Metrics.BufferSize))
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not supported", cfg.Logging.Level))
	}
	switch cfg.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q is not supported", cfg.Logging.Format))
	}

	return errors.Join(errs...)
}
