package otel

import (
	"context"
	"sync"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	tenantAuth "github.com/MrEthical07/tenantAuth"
	"github.com/MrEthical07/tenantAuth/store/memory"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot tenantAuth.MetricsSnapshot
}

func (f *fakeSource) MetricsSnapshot() tenantAuth.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := tenantAuth.MetricsSnapshot{
		Operations:   make(map[tenantAuth.OperationKey]uint64, len(f.snapshot.Operations)),
		RateLimited:  make(map[string]uint64, len(f.snapshot.RateLimited)),
		AuditDropped: f.snapshot.AuditDropped,
		MailDropped:  f.snapshot.MailDropped,
	}
	for k, v := range f.snapshot.Operations {
		out.Operations[k] = v
	}
	for k, v := range f.snapshot.RateLimited {
		out.RateLimited[k] = v
	}
	return out
}

func newReader() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Sum[int64] {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	out := make(map[string]metricdata.Sum[int64])
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				out[m.Name] = sum
			}
		}
	}
	return out
}

func valueFor(sum metricdata.Sum[int64], attrs ...attribute.KeyValue) (int64, bool) {
	want := attribute.NewSet(attrs...)
	for _, dp := range sum.DataPoints {
		if dp.Attributes.Equals(&want) {
			return dp.Value, true
		}
	}
	return 0, false
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader, provider := newReader()

	src := &fakeSource{snapshot: tenantAuth.MetricsSnapshot{
		Operations: map[tenantAuth.OperationKey]uint64{
			{Operation: "login", Outcome: "success"}:             3,
			{Operation: "login", Outcome: "invalid_credentials"}: 2,
		},
		RateLimited:  map[string]uint64{"login": 1},
		AuditDropped: 4,
	}}

	exp, err := NewExporter(provider.Meter("tenantauth-test"), src)
	if err != nil {
		t.Fatalf("NewExporter failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	sums := collect(t, reader)

	ops, ok := sums["tenantauth.operations"]
	if !ok {
		t.Fatalf("operations counter missing from %v", sums)
	}
	if !ops.IsMonotonic {
		t.Fatal("operations counter must be monotonic")
	}
	if v, ok := valueFor(ops, attribute.String("operation", "login"), attribute.String("outcome", "success")); !ok || v != 3 {
		t.Fatalf("login success = %d, %v", v, ok)
	}
	if v, ok := valueFor(ops, attribute.String("operation", "login"), attribute.String("outcome", "invalid_credentials")); !ok || v != 2 {
		t.Fatalf("login invalid = %d, %v", v, ok)
	}
	if v, ok := valueFor(sums["tenantauth.rate_limited"], attribute.String("endpoint", "login")); !ok || v != 1 {
		t.Fatalf("rate limited = %d, %v", v, ok)
	}
	if v, _ := valueFor(sums["tenantauth.audit.dropped"]); v != 4 {
		t.Fatalf("audit dropped = %d", v)
	}
}

func TestExporterRejectsNilArguments(t *testing.T) {
	_, provider := newReader()

	if _, err := NewExporter(nil, &fakeSource{}); err != ErrNilMeter {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
	if _, err := NewExporter(provider.Meter("tenantauth-test"), nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
}

func TestExporterStopsAfterClose(t *testing.T) {
	reader, provider := newReader()
	src := &fakeSource{snapshot: tenantAuth.MetricsSnapshot{MailDropped: 2}}

	exp, err := NewExporter(provider.Meter("tenantauth-test"), src)
	if err != nil {
		t.Fatalf("NewExporter failed: %v", err)
	}
	if err := exp.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	sums := collect(t, reader)
	if sum, ok := sums["tenantauth.mail.dropped"]; ok && len(sum.DataPoints) > 0 {
		t.Fatalf("closed exporter still observed %v", sum.DataPoints)
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader, provider := newReader()
	src := &fakeSource{snapshot: tenantAuth.MetricsSnapshot{
		Operations: map[tenantAuth.OperationKey]uint64{{Operation: "refresh", Outcome: "success"}: 1},
	}}

	exp, err := NewExporter(provider.Meter("tenantauth-test"), src)
	if err != nil {
		t.Fatalf("NewExporter failed: %v", err)
	}
	defer exp.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Operations[tenantAuth.OperationKey{Operation: "refresh", Outcome: "success"}] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}

func TestExporterReadsEngineSnapshot(t *testing.T) {
	reader, provider := newReader()

	cfg := tenantAuth.DefaultConfig()
	cfg.JWT.Secret = []byte("0123456789abcdef0123456789abcdef")
	engine, err := tenantAuth.New().WithConfig(cfg).WithBackend(memory.New()).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := engine.CreateTenant(context.Background(), "Acme", "acme"); err != nil {
		t.Fatalf("CreateTenant failed: %v", err)
	}

	exp, err := NewExporter(provider.Meter("tenantauth-test"), engine)
	if err != nil {
		t.Fatalf("NewExporter failed: %v", err)
	}
	defer exp.Close()

	ops := collect(t, reader)["tenantauth.operations"]
	v, ok := valueFor(ops, attribute.String("operation", "create_tenant"), attribute.String("outcome", "success"))
	if !ok || v != 1 {
		t.Fatalf("create_tenant success = %d, %v", v, ok)
	}
}
