package main

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/MrEthical07/iammetrics/internal/appconfig"
)

func newLogger(cfg appconfig.LoggingConfig, levelOverride, formatOverride string) (*zap.Logger, error) {
	level := cfg.Level
	if levelOverride != "" {
		level = levelOverride
	}
	format := cfg.Format
	if formatOverride != "" {
		format = formatOverride
	}

	atomic, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	var zc zap.Config
	if format == "console" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = atomic
	return zc.Build()
}

const defaultConfigPath = "iammetricsd.yaml"

// loadConfig reads the configuration file. A missing file at the default
// path yields the built-in defaults.
func loadConfig(root *CLI) (*appconfig.Config, *zap.Logger, error) {
	var (
		cfg *appconfig.Config
		err error
	)
	if _, statErr := os.Stat(root.Config); root.Config == defaultConfigPath && errors.Is(statErr, os.ErrNotExist) {
		cfg = appconfig.Default()
	} else if cfg, err = appconfig.Load(root.Config); err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cfg.Logging, root.LogLevel, root.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
