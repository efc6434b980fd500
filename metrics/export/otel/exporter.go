package otel

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/MrEthical07/iammetrics"
	"github.com/MrEthical07/iammetrics/metrics/defs"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type observedScalar struct {
	def     defs.Definition
	counter metric.Float64ObservableCounter
	gauge   metric.Float64ObservableGauge
}

type observedHistogram struct {
	def     defs.Definition
	buckets metric.Int64ObservableCounter
	count   metric.Int64ObservableCounter
	sum     metric.Float64ObservableCounter
}

// OTelExporter mirrors the catalog as observable OpenTelemetry instruments.
type OTelExporter struct {
	source       prometheus.Gatherer
	registration metric.Registration
	scalars      []observedScalar
	histograms   []observedHistogram
}

// NewOTelExporter bridges reg's gatherer into meter.
func NewOTelExporter(meter metric.Meter, reg *iammetrics.Registry) (*OTelExporter, error) {
	if reg == nil {
		return nil, ErrNilSource
	}
	return NewOTelExporterFromSource(meter, reg.Gatherer())
}

// NewOTelExporterFromSource bridges an arbitrary gatherer. Only catalog
// families are mirrored; anything else the gatherer returns is ignored.
func NewOTelExporterFromSource(meter metric.Meter, source prometheus.Gatherer) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	exporter := &OTelExporter{source: source}
	observables := make([]metric.Observable, 0, defs.Count+2)

	for _, def := range defs.Catalog {
		switch def.Kind {
		case defs.KindCounter:
			ins, err := meter.Float64ObservableCounter(def.Name, metric.WithDescription(def.Help))
			if err != nil {
				return nil, fmt.Errorf("create observable counter %s: %w", def.Name, err)
			}
			exporter.scalars = append(exporter.scalars, observedScalar{def: def, counter: ins})
			observables = append(observables, ins)
		case defs.KindGauge:
			ins, err := meter.Float64ObservableGauge(def.Name, metric.WithDescription(def.Help))
			if err != nil {
				return nil, fmt.Errorf("create observable gauge %s: %w", def.Name, err)
			}
			exporter.scalars = append(exporter.scalars, observedScalar{def: def, gauge: ins})
			observables = append(observables, ins)
		case defs.KindHistogram:
			h := observedHistogram{def: def}
			var err error
			if h.buckets, err = meter.Int64ObservableCounter(def.Name+"_bucket",
				metric.WithDescription("Cumulative histogram bucket count.")); err != nil {
				return nil, fmt.Errorf("create histogram bucket counter %s: %w", def.Name, err)
			}
			if h.count, err = meter.Int64ObservableCounter(def.Name+"_count",
				metric.WithDescription("Histogram total sample count.")); err != nil {
				return nil, fmt.Errorf("create histogram count counter %s: %w", def.Name, err)
			}
			if h.sum, err = meter.Float64ObservableCounter(def.Name+"_sum",
				metric.WithDescription("Histogram sample sum."), metric.WithUnit("ms")); err != nil {
				return nil, fmt.Errorf("create histogram sum counter %s: %w", def.Name, err)
			}
			exporter.histograms = append(exporter.histograms, h)
			observables = append(observables, h.buckets, h.count, h.sum)
		}
	}

	registration, err := meter.RegisterCallback(exporter.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}

	exporter.registration = registration
	return exporter, nil
}

func (e *OTelExporter) observe(_ context.Context, observer metric.Observer) error {
	families, err := e.source.Gather()
	if err != nil {
		return fmt.Errorf("gather: %w", err)
	}
	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, mf := range families {
		byName[mf.GetName()] = mf
	}

	for _, s := range e.scalars {
		mf := byName[s.def.Name]
		if mf == nil {
			continue
		}
		for _, m := range mf.GetMetric() {
			opt := metric.WithAttributes(labelAttributes(m)...)
			if s.counter != nil {
				observer.ObserveFloat64(s.counter, m.GetCounter().GetValue(), opt)
			} else {
				observer.ObserveFloat64(s.gauge, m.GetGauge().GetValue(), opt)
			}
		}
	}

	for _, h := range e.histograms {
		mf := byName[h.def.Name]
		if mf == nil {
			continue
		}
		for _, m := range mf.GetMetric() {
			attrs := labelAttributes(m)
			hist := m.GetHistogram()
			observer.ObserveInt64(h.count, int64(hist.GetSampleCount()), metric.WithAttributes(attrs...))
			observer.ObserveFloat64(h.sum, hist.GetSampleSum(), metric.WithAttributes(attrs...))
			for _, b := range hist.GetBucket() {
				observer.ObserveInt64(h.buckets, int64(b.GetCumulativeCount()),
					metric.WithAttributes(append(attrs, attribute.String("le", formatBound(b.GetUpperBound())))...))
			}
			observer.ObserveInt64(h.buckets, int64(hist.GetSampleCount()),
				metric.WithAttributes(append(attrs, attribute.String("le", "+Inf"))...))
		}
	}
	return nil
}

func labelAttributes(m *dto.Metric) []attribute.KeyValue {
	pairs := m.GetLabel()
	attrs := make([]attribute.KeyValue, 0, len(pairs)+1)
	for _, lp := range pairs {
		attrs = append(attrs, attribute.String(lp.GetName(), lp.GetValue()))
	}
	return attrs
}

func formatBound(v float64) string {
	if math.IsInf(v, 1) {
		return "+Inf"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
