package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrEthical07/iammetrics"
	"github.com/MrEthical07/iammetrics/metrics/defs"
	otelexport "github.com/MrEthical07/iammetrics/metrics/export/otel"
)

// LoadtestCmd implements the 'loadtest' command.
type LoadtestCmd struct {
	Events      int `help:"Events to record" default:"200000"`
	Concurrency int `help:"Concurrent workers" default:"64"`
	Realms      int `help:"Distinct realms" default:"8"`
	Exports     int `help:"Concurrent exports run while recording" default:"50"`
}

func (l *LoadtestCmd) Run(_ *Global, _ *CLI) error {
	if l.Events <= 0 || l.Concurrency <= 0 || l.Realms <= 0 {
		return fmt.Errorf("events, concurrency, and realms must be > 0")
	}
	res, err := runLoadtest(context.Background(), l.Events, l.Concurrency, l.Realms, l.Exports)
	if err != nil {
		return err
	}
	fmt.Println("---- results ----")
	printStats("record", res.record)
	printStats("export", res.export)
	fmt.Printf("verified: logins=%d failed=%d generic=%d (prometheus and otel agree)\n", res.logins, res.failed, res.generic)
	return nil
}

type loadtestResult struct {
	record  phaseStats
	export  phaseStats
	logins  int64
	failed  int64
	generic int64
}

func runLoadtest(ctx context.Context, events, concurrency, realms, exports int) (loadtestResult, error) {
	promReg := prometheus.NewRegistry()
	cfg := iammetrics.DefaultConfig()
	cfg.Runtime = iammetrics.RuntimeConfig{}
	reg, err := iammetrics.New().WithConfig(cfg).WithRegistry(promReg).Build()
	if err != nil {
		return loadtestResult{}, err
	}

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(ctx) }()
	bridge, err := otelexport.NewOTelExporter(provider.Meter("iammetricsd-loadtest"), reg)
	if err != nil {
		return loadtestResult{}, err
	}
	defer func() { _ = bridge.Close() }()

	var (
		wg        sync.WaitGroup
		cursor    int64
		logins    int64
		failed    int64
		generic   int64
		latencies = make([]time.Duration, 0, events)
		mu        sync.Mutex
	)

	exportLatencies := make([]time.Duration, 0, exports)
	var exportFailures int64
	exportDone := make(chan struct{})
	go func() {
		defer close(exportDone)
		for i := 0; i < exports; i++ {
			t0 := time.Now()
			if err := reg.Export(io.Discard); err != nil {
				atomic.AddInt64(&exportFailures, 1)
			}
			exportLatencies = append(exportLatencies, time.Since(t0))
		}
	}()

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= events {
					return
				}
				ev := iammetrics.DomainEvent{RealmID: fmt.Sprintf("realm-%d", r.Intn(realms)), ClientID: "web"}
				t0 := time.Now()
				switch i % 4 {
				case 0, 1:
					ev.Type = iammetrics.EventLogin
					atomic.AddInt64(&logins, 1)
				case 2:
					ev.Type = iammetrics.EventLoginError
					ev.Error = "invalid_user_credentials"
					atomic.AddInt64(&failed, 1)
				default:
					ev.Type = iammetrics.EventUpdateProfile
					atomic.AddInt64(&generic, 1)
				}
				reg.RecordEvent(ev)
				reg.RecordRequestDuration(float64(r.Intn(200)), "POST", "/realms/{realm}/protocol/openid-connect/token")
				d := time.Since(t0)

				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	<-exportDone

	res := loadtestResult{
		record:  computeStats(total, latencies, 0),
		export:  computeStats(total, exportLatencies, exportFailures),
		logins:  logins,
		failed:  failed,
		generic: generic,
	}
	if exportFailures > 0 {
		return res, fmt.Errorf("%d exports failed", exportFailures)
	}

	want := map[string]float64{
		defs.Catalog[defs.LoginsTotal].Name:              float64(logins),
		defs.Catalog[defs.FailedLoginAttemptsTotal].Name: float64(failed),
		defs.Catalog[defs.UserEventsTotal].Name:          float64(generic),
	}

	families, err := promReg.Gather()
	if err != nil {
		return res, err
	}
	for _, mf := range families {
		expected, ok := want[mf.GetName()]
		if !ok {
			continue
		}
		var got float64
		for _, m := range mf.GetMetric() {
			got += m.GetCounter().GetValue()
		}
		if got != expected {
			return res, fmt.Errorf("prometheus %s: want %.0f, got %.0f", mf.GetName(), expected, got)
		}
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return res, fmt.Errorf("otel collect: %w", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			expected, ok := want[m.Name]
			if !ok {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[float64])
			if !ok {
				return res, fmt.Errorf("otel %s: unexpected data %T", m.Name, m.Data)
			}
			var got float64
			for _, dp := range sum.DataPoints {
				got += dp.Value
			}
			if got != expected {
				return res, fmt.Errorf("otel %s: want %.0f, got %.0f", m.Name, expected, got)
			}
		}
	}
	return res, nil
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Fprintf(os.Stdout, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
