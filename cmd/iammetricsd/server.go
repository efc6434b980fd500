package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MrEthical07/iammetrics"
	"github.com/MrEthical07/iammetrics/eventsource/natsbus"
	"github.com/MrEthical07/iammetrics/internal/appconfig"
	"github.com/MrEthical07/iammetrics/internal/rate"
	"github.com/MrEthical07/iammetrics/jwt"
	promexport "github.com/MrEthical07/iammetrics/metrics/export/prometheus"
	"github.com/MrEthical07/iammetrics/middleware"
	"github.com/MrEthical07/iammetrics/session"
)

const maxEventBody = 1 << 20

// app is the wired daemon: registry, listener, optional session directory
// and event subscription behind one HTTP router.
type app struct {
	cfg        *appconfig.Config
	logger     *zap.Logger
	registry   *iammetrics.Registry
	listener   *iammetrics.EventListener
	store      *session.Store
	embedded   *miniredis.Miniredis
	tracker    *session.Tracker
	subscriber *natsbus.Subscriber
	ingest     *rate.Limiter
	router     http.Handler
	closers    []func() error
}

// newApp wires every component. A nil promReg registers into the process
// default registry.
func newApp(cfg *appconfig.Config, logger *zap.Logger, promReg *prometheus.Registry) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	b := iammetrics.New().WithConfig(cfg.RegistryConfig()).WithLogger(logger)
	if promReg != nil {
		b = b.WithRegistry(promReg)
	}
	if a.registry, err = b.Build(); err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}
	a.listener = iammetrics.NewEventListener(a.registry)
	a.closers = append(a.closers, func() error { a.listener.Close(); return nil })

	if cfg.Redis.Enabled {
		if err = a.openStore(); err != nil {
			return nil, err
		}
	}

	var verifier middleware.Verifier
	if cfg.Auth.Enabled {
		tokenCfg, tokErr := cfg.TokenConfig()
		if tokErr != nil {
			return nil, tokErr
		}
		m, tokErr := jwt.NewManager(tokenCfg)
		if tokErr != nil {
			return nil, fmt.Errorf("scrape token verifier: %w", tokErr)
		}
		verifier = m
	}

	if cfg.NATS.Enabled {
		if err = a.openSubscriber(); err != nil {
			return nil, err
		}
	}

	a.router = a.routes(verifier)
	return a, nil
}

func (a *app) openStore() error {
	rc := a.cfg.Redis
	addr := rc.Addr
	if rc.Embedded {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("start embedded redis: %w", err)
		}
		a.closers = append(a.closers, func() error { mr.Close(); return nil })
		a.embedded = mr
		addr = mr.Addr()
		a.logger.Info("using embedded redis", zap.String("addr", addr))
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{addr},
		Password: rc.Password,
		DB:       rc.DB,
	})
	a.closers = append(a.closers, client.Close)

	a.store = session.NewStore(client, rc.Prefix, rc.SessionTTL)
	a.tracker = session.NewTracker(a.store, a.logger)
	if a.cfg.Server.IngestLimit > 0 {
		a.ingest = rate.New(client, rate.Config{
			Prefix: rc.Prefix + ":ingest",
			Limit:  a.cfg.Server.IngestLimit,
			Window: a.cfg.Server.IngestWindow,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := a.store.Ping(ctx); err != nil {
		return err
	}
	return nil
}

func (a *app) openSubscriber() error {
	nc := a.cfg.NATS
	var hooks []natsbus.UserHook
	if a.tracker != nil {
		hooks = append(hooks, a.tracker.Observe)
	}
	sub, err := natsbus.NewSubscriber(natsbus.Options{
		URL:           nc.URL,
		Subject:       nc.Subject,
		Queue:         nc.Queue,
		MaxReconnects: nc.MaxReconnects,
		ReconnectWait: nc.ReconnectWait,
		Logger:        a.logger,
	}, a.listener, hooks...)
	if err != nil {
		return err
	}
	if err := sub.Start(); err != nil {
		return err
	}
	a.subscriber = sub
	// Drain the subscription before the listener closes.
	a.closers = append([]func() error{sub.Close}, a.closers...)
	return nil
}

func (a *app) routes(verifier middleware.Verifier) http.Handler {
	opts := []promexport.Option{
		promexport.WithTimeout(a.cfg.Server.ScrapeTimeout),
		promexport.WithLogger(a.logger),
	}
	if a.store != nil {
		opts = append(opts, promexport.WithSessions(iammetrics.SessionContext{Realms: a.store, Sessions: a.store}))
	}
	exporter := promexport.NewPrometheusExporter(a.registry, opts...)

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.Instrument(a.registry, nil))

	r.Get(a.cfg.Server.HealthPath, a.handleHealth)
	r.With(a.limitIngest).Post("/events", a.handleEvents)

	scrape := exporter.Handler()
	if a.cfg.Auth.Enabled {
		scrape = middleware.RequireScrapeToken(verifier)(scrape)
	}
	r.Method(http.MethodGet, a.cfg.Server.MetricsPath, scrape)
	r.Method(http.MethodHead, a.cfg.Server.MetricsPath, scrape)
	return r
}

func (a *app) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	components := map[string]string{"registry": "ok"}
	if a.store != nil {
		if latency, err := a.store.Ping(r.Context()); err != nil {
			status = "degraded"
			components["redis"] = err.Error()
		} else {
			components["redis"] = latency.String()
		}
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{"status": status, "components": components})
}

// limitIngest enforces the per-address ingest budget. Redis failures let
// the request through.
func (a *app) limitIngest(next http.Handler) http.Handler {
	if a.ingest == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		left, err := a.ingest.Allow(r.Context(), host)
		switch {
		case errors.Is(err, rate.ErrRateLimited):
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(a.ingest.Limit()))
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", strconv.Itoa(int(a.cfg.Server.IngestWindow.Seconds())))
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "ingest rate limited"})
			return
		case err != nil:
			a.logger.Warn("ingest limiter unavailable", zap.String("remote", host), zap.Error(err))
		default:
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(a.ingest.Limit()))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(left))
		}
		next.ServeHTTP(w, r)
	})
}

// handleEvents accepts one event envelope, the same payload published on NATS.
func (a *app) handleEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read body"})
		return
	}
	env, err := natsbus.Decode(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	switch env.Kind {
	case natsbus.KindUser:
		// Track first: a 503 here is retried, so nothing may be counted yet.
		if a.tracker != nil {
			if err := a.tracker.Observe(r.Context(), *env.Event); err != nil {
				a.logger.Error("session tracking failed", zap.String("realm", env.Event.RealmID), zap.Error(err))
				if errors.Is(err, session.ErrRedisUnavailable) {
					writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "session directory unavailable"})
					return
				}
			}
		}
		a.listener.OnEvent(r.Context(), *env.Event)
	case natsbus.KindAdmin:
		a.listener.OnAdminEvent(r.Context(), *env.Admin)
	}
	w.WriteHeader(http.StatusAccepted)
}

func (a *app) close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Warn("shutdown step failed", zap.Error(err))
		}
	}
	a.closers = nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
