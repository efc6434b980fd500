package iammetrics

import (
	"bytes"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const defaultRealm = "myrealm"

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Runtime = RuntimeConfig{}
	return cfg
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, _ := newTestRegistryWithLogger(t, zap.NewNop())
	return r
}

func newTestRegistryWithLogger(t *testing.T, logger *zap.Logger) (*Registry, *prometheus.Registry) {
	t.Helper()

	reg := prometheus.NewRegistry()
	r, err := New().
		WithConfig(testConfig()).
		WithRegistry(reg).
		WithLogger(logger).
		Build()
	require.NoError(t, err)
	return r, reg
}

func exportString(t *testing.T, r *Registry) string {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, r.Export(&buf))
	return buf.String()
}

func loginEvent(realm string, details map[string]string) DomainEvent {
	return DomainEvent{
		Type:    EventLogin,
		RealmID: realm,
		Details: details,
	}
}

func withProvider(provider string) map[string]string {
	return map[string]string{DetailIdentityProvider: provider}
}

func newPromRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}
