package prometheus

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/MrEthical07/iammetrics"
)

// ContentType is the Prometheus text exposition content type.
const ContentType = "text/plain; version=0.0.4; charset=utf-8"

type metricsSource interface {
	Export(w io.Writer) error
	ExportSessions(ctx context.Context, w io.Writer, sc iammetrics.SessionContext) error
}

// Option configures a [PrometheusExporter].
type Option func(*PrometheusExporter)

// WithSessions makes every scrape refresh the active-session gauges from sc first.
func WithSessions(sc iammetrics.SessionContext) Option {
	return func(p *PrometheusExporter) {
		p.sessions = &sc
	}
}

// WithTimeout bounds each scrape. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(p *PrometheusExporter) {
		p.timeout = d
	}
}

// WithLogger sets the logger used for failed scrapes.
func WithLogger(logger *zap.Logger) Option {
	return func(p *PrometheusExporter) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// PrometheusExporter serves a registry in Prometheus text exposition format.
type PrometheusExporter struct {
	source   metricsSource
	sessions *iammetrics.SessionContext
	timeout  time.Duration
	logger   *zap.Logger
}

// NewPrometheusExporter creates an exporter that reads from reg.
func NewPrometheusExporter(reg *iammetrics.Registry, opts ...Option) *PrometheusExporter {
	return NewPrometheusExporterFromSource(reg, opts...)
}

// NewPrometheusExporterFromSource creates an exporter from a custom source.
func NewPrometheusExporterFromSource(source metricsSource, opts ...Option) *PrometheusExporter {
	p := &PrometheusExporter{source: source, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Handler returns an http.Handler that serves the exposition on GET and HEAD.
// The body is rendered fully before any byte is sent, so a failed export
// yields a 500 instead of a truncated 200.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := p.Render(r.Context())
		if err != nil {
			p.logger.Error("metrics scrape failed", zap.Error(err))
			http.Error(w, "metrics export failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", ContentType)
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write(body)
	})
}

// Render returns the current exposition.
func (p *PrometheusExporter) Render(ctx context.Context) ([]byte, error) {
	if p == nil || p.source == nil {
		return nil, nil
	}

	var buf bytes.Buffer
	buf.Grow(8192)

	if p.sessions == nil {
		if err := p.source.Export(&buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	if err := p.source.ExportSessions(ctx, &buf, *p.sessions); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
