package iammetrics

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/MrEthical07/iammetrics/metrics/defs"
)

// Realm is one realm known to the realm directory.
type Realm struct {
	ID   string
	Name string
}

// Client is one client of a realm. InternalID keys the session statistics;
// ClientID is the public identifier used as the gauge label.
type Client struct {
	ClientID   string
	InternalID string
}

// RealmDirectory enumerates realms and their clients.
type RealmDirectory interface {
	ListRealms(ctx context.Context) ([]Realm, error)
	ListClients(ctx context.Context, realm Realm) ([]Client, error)
}

// SessionDirectory reports, per realm, active session counts keyed by client
// internal ID.
type SessionDirectory interface {
	ActiveClientSessionStats(ctx context.Context, realm Realm) (map[string]int64, error)
}

// SessionContext carries the directories a session gauge refresh reads from.
type SessionContext struct {
	Realms   RealmDirectory
	Sessions SessionDirectory
}

// RealmResult is the outcome of refreshing one realm.
type RealmResult struct {
	Realm   string
	Clients int
	Err     error
}

// RefreshReport collects per-realm results of one refresh pass.
type RefreshReport struct {
	Results []RealmResult
	// Err is set when the realm list itself could not be read.
	Err error
}

// Failures returns the realms that failed to refresh.
func (r RefreshReport) Failures() []RealmResult {
	var failed []RealmResult
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// OK reports whether every realm refreshed.
func (r RefreshReport) OK() bool {
	return r.Err == nil && len(r.Failures()) == 0
}

// RefreshActiveSessions recomputes the active sessions gauge from sc.
//
// For every client of every realm the gauge is set to the client's session
// count, or 0 when the statistics do not mention the client. A realm whose
// clients or statistics cannot be read is recorded in the report and skipped;
// the remaining realms are still refreshed. Failures are logged once per pass.
func (r *Registry) RefreshActiveSessions(ctx context.Context, sc SessionContext) RefreshReport {
	var report RefreshReport
	if sc.Realms == nil {
		report.Err = ErrNilRealmDirectory
		r.logRefresh(report)
		return report
	}
	if sc.Sessions == nil {
		report.Err = ErrNilSessionDirectory
		r.logRefresh(report)
		return report
	}

	if timeout := r.cfg.Refresh.Timeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	realms, err := sc.Realms.ListRealms(ctx)
	if err != nil {
		report.Err = fmt.Errorf("list realms: %w", err)
		r.logRefresh(report)
		return report
	}

	report.Results = make([]RealmResult, 0, len(realms))
	for _, realm := range realms {
		report.Results = append(report.Results, r.refreshRealm(ctx, sc, realm))
	}

	r.logRefresh(report)
	return report
}

func (r *Registry) refreshRealm(ctx context.Context, sc SessionContext, realm Realm) RealmResult {
	res := RealmResult{Realm: realm.Name}

	stats, err := sc.Sessions.ActiveClientSessionStats(ctx, realm)
	if err != nil {
		res.Err = fmt.Errorf("session stats: %w", err)
		return res
	}
	clients, err := sc.Realms.ListClients(ctx, realm)
	if err != nil {
		res.Err = fmt.Errorf("list clients: %w", err)
		return res
	}

	gauge := r.gauges[defs.ActiveSessions]
	for _, client := range clients {
		gauge.WithLabelValues(realm.Name, client.ClientID).Set(float64(stats[client.InternalID]))
	}
	res.Clients = len(clients)
	return res
}

func (r *Registry) logRefresh(report RefreshReport) {
	if report.Err != nil {
		r.logger.Error("iammetrics: active session refresh aborted", zap.Error(report.Err))
		return
	}
	failed := report.Failures()
	if len(failed) == 0 {
		return
	}
	fields := make([]zap.Field, 0, len(failed)+2)
	fields = append(fields,
		zap.Int("failed_realms", len(failed)),
		zap.Int("total_realms", len(report.Results)),
	)
	for _, f := range failed {
		fields = append(fields, zap.NamedError(f.Realm, f.Err))
	}
	r.logger.Error("iammetrics: active session refresh incomplete", fields...)
}
