package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Listen string `help:"Override server.listen"`
}

func (s *ServeCmd) Run(_ *Global, root *CLI) error {
	cfg, logger, err := loadConfig(root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if s.Listen != "" {
		cfg.Server.Listen = s.Listen
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer a.close()

	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           a.router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.ListenAndServe()
	}()
	logger.Info("iammetricsd started",
		zap.String("listen", cfg.Server.Listen),
		zap.String("metrics_path", cfg.Server.MetricsPath),
		zap.Bool("redis", cfg.Redis.Enabled),
		zap.Bool("nats", cfg.NATS.Enabled),
		zap.Bool("auth", cfg.Auth.Enabled))

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer stopCancel()
	if err := srv.Shutdown(stopCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("iammetricsd stopped")
	return nil
}
