package iammetrics

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBrokenSink = errors.New("broken pipe")

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errBrokenSink }

func TestExportIsIdempotent(t *testing.T) {
	r := newTestRegistry(t)
	r.RecordLogin(loginEvent(defaultRealm, nil))
	r.RecordRequestDuration(12.5, "POST", "/realms/{realm}/protocol/openid-connect/token")
	r.RecordResponseError(401, "POST", "/realms/{realm}/protocol/openid-connect/token")

	first := exportString(t, r)
	second := exportString(t, r)
	assert.Equal(t, first, second)
}

func TestExportWritesHelpAndType(t *testing.T) {
	r := newTestRegistry(t)
	r.RecordLogin(loginEvent(defaultRealm, nil))

	out := exportString(t, r)
	assert.Contains(t, out, "# HELP keycloak_logins_total Total successful logins\n")
	assert.Contains(t, out, "# TYPE keycloak_logins_total counter\n")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestExportPropagatesWriteErrorUnwrapped(t *testing.T) {
	r := newTestRegistry(t)
	r.RecordLogin(loginEvent(defaultRealm, nil))

	err := r.Export(brokenWriter{})
	require.Error(t, err)
	assert.Equal(t, errBrokenSink, err)
}

func TestExportRejectsNilWriter(t *testing.T) {
	r := newTestRegistry(t)
	assert.ErrorIs(t, r.Export(nil), ErrNilWriter)
	assert.ErrorIs(t, r.ExportSessions(context.Background(), nil, SessionContext{}), ErrNilWriter)
}

type failingGatherer struct{}

func (failingGatherer) Gather() ([]*dto.MetricFamily, error) {
	return nil, errors.New("collector exploded")
}

func TestExportWrapsGatherError(t *testing.T) {
	r, err := New().
		WithConfig(testConfig()).
		WithRegisterer(prometheus.NewRegistry()).
		WithGatherer(failingGatherer{}).
		Build()
	require.NoError(t, err)

	err = r.Export(&bytes.Buffer{})
	require.ErrorIs(t, err, ErrGather)
	assert.ErrorContains(t, err, "collector exploded")
}

func TestExportSkipsRefreshWithoutSessionContext(t *testing.T) {
	r := newTestRegistry(t)
	sc := SessionContext{
		Realms: &fakeRealms{
			realms:  []Realm{{ID: "r1", Name: "master"}},
			clients: map[string][]Client{"r1": {{ClientID: "account", InternalID: "c-1"}}},
		},
		Sessions: &fakeSessions{stats: map[string]map[string]int64{"r1": {"c-1": 5}}},
	}

	assert.NotContains(t, exportString(t, r), "keycloak_active_sessions_count{")

	var buf bytes.Buffer
	require.NoError(t, r.ExportSessions(context.Background(), &buf, sc))
	assert.Contains(t, buf.String(), `keycloak_active_sessions_count{client_id="account",realm="master"} 5`)

	// The bare export reports the last value set.
	assert.Contains(t, exportString(t, r), `keycloak_active_sessions_count{client_id="account",realm="master"} 5`)
}

func TestExportSessionsSucceedsOnPartialRefresh(t *testing.T) {
	r := newTestRegistry(t)
	sc := SessionContext{
		Realms: &fakeRealms{
			realms: []Realm{{ID: "r1", Name: "broken"}, {ID: "r2", Name: "ok"}},
			clients: map[string][]Client{
				"r2": {{ClientID: "web", InternalID: "c-2"}},
			},
			clientErrs: map[string]error{"r1": errors.New("boom")},
		},
		Sessions: &fakeSessions{stats: map[string]map[string]int64{"r2": {"c-2": 1}}},
	}

	var buf bytes.Buffer
	require.NoError(t, r.ExportSessions(context.Background(), &buf, sc))
	assert.Contains(t, buf.String(), `keycloak_active_sessions_count{client_id="web",realm="ok"} 1`)
}
