package iammetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Builder assembles a Registry.
//
// Builder instances are single-use: Build may be called once.
type Builder struct {
	config     Config
	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer
	logger     *zap.Logger

	built bool
}

// New returns a Builder holding the default configuration, targeting the
// Prometheus default registerer and gatherer.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the builder configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRegistry registers into, and exports from, reg.
func (b *Builder) WithRegistry(reg *prometheus.Registry) *Builder {
	b.registerer = reg
	b.gatherer = reg
	return b
}

// WithRegisterer sets the registerer the catalog is registered with.
func (b *Builder) WithRegisterer(reg prometheus.Registerer) *Builder {
	b.registerer = reg
	return b
}

// WithGatherer sets the gatherer Export snapshots.
func (b *Builder) WithGatherer(g prometheus.Gatherer) *Builder {
	b.gatherer = g
	return b
}

// WithLogger sets the logger used for refresh failures and listener drops.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// Build validates the configuration and registers every catalog metric.
//
// Build returns ErrDuplicateMetric when a catalog metric is already registered
// with the target registerer; callers treat that as a fatal startup error.
func (b *Builder) Build() (*Registry, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}
	b.built = true

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	reg := b.registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := b.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return newRegistry(cfg, reg, gatherer, logger)
}
