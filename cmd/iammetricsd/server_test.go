package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MrEthical07/iammetrics"
	"github.com/MrEthical07/iammetrics/eventsource/natsbus"
	"github.com/MrEthical07/iammetrics/internal/appconfig"
	"github.com/MrEthical07/iammetrics/jwt"
)

const testSecret = "scrape-secret-scrape-secret-32b"

func newTestApp(t *testing.T, mutate func(*appconfig.Config)) *app {
	t.Helper()
	cfg := appconfig.Default()
	f := false
	cfg.Metrics.GoCollector = &f
	cfg.Metrics.ProcessCollector = &f
	cfg.Redis.Enabled = true
	cfg.Redis.Embedded = true
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, appconfig.Validate(cfg))

	a, err := newApp(cfg, zap.NewNop(), prometheus.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(a.close)
	return a
}

func do(t *testing.T, h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func postEvent(t *testing.T, a *app, ev iammetrics.DomainEvent) {
	t.Helper()
	data, err := natsbus.EncodeUser(ev)
	require.NoError(t, err)
	rec := do(t, a.router, http.MethodPost, "/events", string(data), "")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
}

func TestHealth(t *testing.T) {
	a := newTestApp(t, nil)
	rec := do(t, a.router, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Contains(t, rec.Body.String(), `"redis"`)
}

func TestEventsFeedMetricsAndSessions(t *testing.T) {
	a := newTestApp(t, nil)

	postEvent(t, a, iammetrics.DomainEvent{Type: iammetrics.EventLogin, RealmID: "myrealm", ClientID: "web", SessionID: "s-1"})
	postEvent(t, a, iammetrics.DomainEvent{Type: iammetrics.EventLogin, RealmID: "myrealm", ClientID: "web", SessionID: "s-2"})
	postEvent(t, a, iammetrics.DomainEvent{Type: iammetrics.EventLogout, RealmID: "myrealm", ClientID: "web", SessionID: "s-1"})

	rec := do(t, a.router, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `keycloak_logins_total{provider="keycloak",realm="myrealm"} 2`)
	assert.Contains(t, body, `keycloak_user_events_total{event_name="LOGOUT",realm="myrealm"} 1`)
	assert.Contains(t, body, `keycloak_active_sessions_count{client_id="web",realm="myrealm"} 1`)
	// The router instruments itself.
	assert.Contains(t, body, `keycloak_request_duration_count{method="POST",route="/events"} 3`)
}

func TestEventsRejectsMalformed(t *testing.T) {
	a := newTestApp(t, nil)

	rec := do(t, a.router, http.MethodPost, "/events", `{"kind":"bogus"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	metrics := do(t, a.router, http.MethodGet, "/metrics", "", "")
	assert.Contains(t, metrics.Body.String(), `keycloak_response_errors_total{code="400",method="POST",route="/events"} 1`)
}

func TestEventsIngestLimit(t *testing.T) {
	a := newTestApp(t, func(cfg *appconfig.Config) {
		cfg.Server.IngestLimit = 2
	})
	ev := iammetrics.DomainEvent{Type: iammetrics.EventLogin, RealmID: "myrealm", ClientID: "web"}
	data, err := natsbus.EncodeUser(ev)
	require.NoError(t, err)

	for _, left := range []string{"1", "0"} {
		rec := do(t, a.router, http.MethodPost, "/events", string(data), "")
		require.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, left, rec.Header().Get("X-RateLimit-Remaining"))
	}

	rec := do(t, a.router, http.MethodPost, "/events", string(data), "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	body := do(t, a.router, http.MethodGet, "/metrics", "", "").Body.String()
	assert.Contains(t, body, `keycloak_logins_total{provider="keycloak",realm="myrealm"} 2`)
	assert.Contains(t, body, `keycloak_response_errors_total{code="429",method="POST",route="/events"} 1`)
}

func TestAdminEvents(t *testing.T) {
	a := newTestApp(t, nil)

	data, err := natsbus.EncodeAdmin(iammetrics.AdminDomainEvent{
		OperationType: iammetrics.OperationUpdate,
		ResourceType:  iammetrics.ResourceClient,
		RealmID:       "myrealm",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, do(t, a.router, http.MethodPost, "/events", string(data), "").Code)

	body := do(t, a.router, http.MethodGet, "/metrics", "", "").Body.String()
	assert.Contains(t, body, `keycloak_admin_events_total{event_name="UPDATE",realm="myrealm",resource="CLIENT"} 1`)
}

func TestEventsNotCountedWhenSessionDirectoryFails(t *testing.T) {
	a := newTestApp(t, nil)
	require.NotNil(t, a.embedded)

	ev := iammetrics.DomainEvent{Type: iammetrics.EventLogin, RealmID: "myrealm", ClientID: "web", SessionID: "s-1"}
	data, err := natsbus.EncodeUser(ev)
	require.NoError(t, err)

	a.embedded.SetError("ERR directory offline")
	rec := do(t, a.router, http.MethodPost, "/events", string(data), "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	a.embedded.SetError("")

	// The client retries after the 503.
	postEvent(t, a, ev)

	body := do(t, a.router, http.MethodGet, "/metrics", "", "").Body.String()
	assert.Contains(t, body, `keycloak_logins_total{provider="keycloak",realm="myrealm"} 1`)
	assert.Contains(t, body, `keycloak_active_sessions_count{client_id="web",realm="myrealm"} 1`)
}

func TestScrapeRequiresToken(t *testing.T) {
	a := newTestApp(t, func(cfg *appconfig.Config) {
		cfg.Auth.Enabled = true
		cfg.Auth.Secret = testSecret
		cfg.Auth.Issuer = "iammetricsd"
	})

	assert.Equal(t, http.StatusUnauthorized, do(t, a.router, http.MethodGet, "/metrics", "", "").Code)

	tokenCfg, err := a.cfg.TokenConfig()
	require.NoError(t, err)
	m, err := jwt.NewManager(tokenCfg)
	require.NoError(t, err)
	token, err := m.Issue("prometheus")
	require.NoError(t, err)

	rec := do(t, a.router, http.MethodGet, "/metrics", "", token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; version=0.0.4; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestWithoutRedis(t *testing.T) {
	a := newTestApp(t, func(cfg *appconfig.Config) {
		cfg.Redis.Enabled = false
	})
	assert.Nil(t, a.store)

	postEvent(t, a, iammetrics.DomainEvent{Type: iammetrics.EventLogin, RealmID: "myrealm", SessionID: "s-1"})
	body := do(t, a.router, http.MethodGet, "/metrics", "", "").Body.String()
	assert.NotContains(t, body, "keycloak_active_sessions_count{")
}

func TestLoadtestVerifiesTotals(t *testing.T) {
	res, err := runLoadtest(context.Background(), 4000, 8, 3, 5)
	require.NoError(t, err)
	assert.EqualValues(t, 2000, res.logins)
	assert.EqualValues(t, 1000, res.failed)
	assert.EqualValues(t, 1000, res.generic)
	assert.Equal(t, 4000, res.record.ops)
}
