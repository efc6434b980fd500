package iammetrics

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/prometheus/common/expfmt"
)

// Export writes every gathered metric family to w in the Prometheus text
// exposition format (version 0.0.4) and flushes before returning.
//
// Output is a pure function of the registry state: families are sorted by
// name and series by label values, and no timestamps are written. Write
// errors are returned unwrapped.
func (r *Registry) Export(w io.Writer) error {
	if w == nil {
		return ErrNilWriter
	}

	families, err := r.gatherer.Gather()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrGather, err)
	}

	bw := bufio.NewWriter(w)
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(bw, mf); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ExportSessions refreshes the active sessions gauge from sc and then exports.
// Refresh failures never fail the export; they are logged and the gauge keeps
// whatever the refresh managed to set.
func (r *Registry) ExportSessions(ctx context.Context, w io.Writer, sc SessionContext) error {
	if w == nil {
		return ErrNilWriter
	}
	r.RefreshActiveSessions(ctx, sc)
	return r.Export(w)
}

// Export writes the Default registry to w.
func Export(w io.Writer) error {
	return Default().Export(w)
}

// ExportSessions refreshes and writes the Default registry to w.
func ExportSessions(ctx context.Context, w io.Writer, sc SessionContext) error {
	return Default().ExportSessions(ctx, w, sc)
}
