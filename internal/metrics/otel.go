package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const defaultServiceName = "cricket-sync"

// TelemetryConfig 指标导出配置
type TelemetryConfig struct {
	Enabled      bool
	ServiceName  string
	OtlpEndpoint string
	OtlpInsecure bool
}

// Setup 初始化 otel MeterProvider（prometheus reader + 可选 OTLP http reader）
// 返回 Recorder、/metrics handler（未启用时为 nil）和 shutdown
func Setup(ctx context.Context, cfg TelemetryConfig) (*Recorder, http.Handler, func(context.Context) error, error) {
	if !cfg.Enabled {
		return NewRecorder(), nil, func(context.Context) error { return nil }, nil
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = defaultServiceName
	}

	reg := prometheus.NewRegistry()
	promExp, err := promexporter.New(promexporter.WithRegisterer(reg))
	if err != nil {
		return nil, nil, nil, err
	}
	opts := []sdkmetric.Option{sdkmetric.WithReader(promExp)}

	if cfg.OtlpEndpoint != "" {
		otlpOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.OtlpEndpoint)}
		if cfg.OtlpInsecure {
			otlpOpts = append(otlpOpts, otlpmetrichttp.WithInsecure())
		}
		otlpExp, err := otlpmetrichttp.New(ctx, otlpOpts...)
		if err != nil {
			return nil, nil, nil, err
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(otlpExp, sdkmetric.WithInterval(15*time.Second))))
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)))
	if err != nil {
		return nil, nil, nil, err
	}
	opts = append(opts, sdkmetric.WithResource(res))

	provider := sdkmetric.NewMeterProvider(opts...)
	inst, err := newOtelInstruments(provider.Meter(cfg.ServiceName))
	if err != nil {
		return nil, nil, nil, err
	}

	return newRecorder(inst), promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), provider.Shutdown, nil
}

type otelInstruments struct {
	requests          metric.Int64Counter
	requestLatencyMs  metric.Float64Histogram
	providerRequests  metric.Int64Counter
	providerLatencyMs metric.Float64Histogram
	cycles            metric.Int64Counter
	cycleLatencyMs    metric.Float64Histogram
	overlaps          metric.Int64Counter
	outcomes          metric.Int64Counter
	broadcastSent     metric.Int64Counter
	broadcastDropped  metric.Int64Counter
}

func newOtelInstruments(meter metric.Meter) (*otelInstruments, error) {
	var (
		inst otelInstruments
		err  error
	)
	counters := []struct {
		dst  *metric.Int64Counter
		name string
	}{
		{&inst.requests, "http_requests_total"},
		{&inst.providerRequests, "provider_requests_total"},
		{&inst.cycles, "sync_cycles_total"},
		{&inst.overlaps, "sync_cycle_overlaps_total"},
		{&inst.outcomes, "reconcile_outcomes_total"},
		{&inst.broadcastSent, "broadcast_delivered_total"},
		{&inst.broadcastDropped, "broadcast_dropped_total"},
	}
	for _, c := range counters {
		if *c.dst, err = meter.Int64Counter(c.name); err != nil {
			return nil, err
		}
	}
	histograms := []struct {
		dst  *metric.Float64Histogram
		name string
	}{
		{&inst.requestLatencyMs, "http_request_duration_ms"},
		{&inst.providerLatencyMs, "provider_request_duration_ms"},
		{&inst.cycleLatencyMs, "sync_cycle_duration_ms"},
	}
	for _, h := range histograms {
		if *h.dst, err = meter.Float64Histogram(h.name); err != nil {
			return nil, err
		}
	}
	return &inst, nil
}

func resultOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (o *otelInstruments) recordHTTPRequest(method, path string, status int, duration time.Duration) {
	if o == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(AttrMethod, method),
		attribute.String(AttrPath, path),
		attribute.Int(AttrStatus, status),
	)
	o.requests.Add(context.Background(), 1, attrs)
	o.requestLatencyMs.Record(context.Background(), float64(duration.Milliseconds()), attrs)
}

func (o *otelInstruments) recordProviderRequest(endpoint string, duration time.Duration, err error) {
	if o == nil {
		return
	}
	o.providerRequests.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String(AttrEndpoint, endpoint),
		attribute.String(AttrResult, resultOf(err)),
	))
	o.providerLatencyMs.Record(context.Background(), float64(duration.Milliseconds()),
		metric.WithAttributes(attribute.String(AttrEndpoint, endpoint)))
}

func (o *otelInstruments) recordCycle(cycle string, duration time.Duration, err error) {
	if o == nil {
		return
	}
	o.cycles.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String(AttrCycle, cycle),
		attribute.String(AttrResult, resultOf(err)),
	))
	o.cycleLatencyMs.Record(context.Background(), float64(duration.Milliseconds()),
		metric.WithAttributes(attribute.String(AttrCycle, cycle)))
}

func (o *otelInstruments) recordOverlap(cycle string) {
	if o == nil {
		return
	}
	o.overlaps.Add(context.Background(), 1, metric.WithAttributes(attribute.String(AttrCycle, cycle)))
}

func (o *otelInstruments) recordReconcile(cycle, outcome string) {
	if o == nil {
		return
	}
	o.outcomes.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String(AttrCycle, cycle),
		attribute.String(AttrOutcome, outcome),
	))
}

func (o *otelInstruments) recordBroadcast(delivered, dropped int) {
	if o == nil {
		return
	}
	o.broadcastSent.Add(context.Background(), int64(delivered))
	if dropped > 0 {
		o.broadcastDropped.Add(context.Background(), int64(dropped))
	}
}
