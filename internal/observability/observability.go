// Package observability instruments Bureau with Prometheus metrics,
// OpenTelemetry tracing, readiness checks and error-rate anomaly detection.
// Every component is optional. Callers hold possibly-nil pointers and the
// instrumentation points check for nil before recording.
package observability

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jkaninda/bureau/internal/config"
)

// Observability bundles the enabled components. Disabled ones are nil,
// except Health, which always exists so /readyz can report.
type Observability struct {
	Metrics *MetricsCollector
	Tracer  *TracerSetup
	Anomaly *AnomalyDetector
	Health  *HealthChecker
}

// New builds the components enabled in cfg. A nil cfg disables everything
// and yields a nil *Observability, which every accessor accepts.
func New(cfg *config.ObservabilityConfig, logger *slog.Logger) (*Observability, error) {
	if cfg == nil {
		return nil, nil
	}

	tracer, err := NewTracerSetup(cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}

	obs := &Observability{
		Tracer: tracer,
		Health: NewHealthChecker(logger),
	}
	if m := cfg.Metrics; m != nil && m.Enabled {
		obs.Metrics = NewMetricsCollector()
	}
	if a := cfg.Anomaly; a != nil && a.Enabled {
		obs.Anomaly = NewAnomalyDetector(a, logger)
	}
	return obs, nil
}

// Shutdown flushes the tracer. Metrics and health need no teardown.
func (o *Observability) Shutdown(ctx context.Context) {
	if o == nil {
		return
	}
	_ = o.Tracer.Shutdown(ctx)
}

// TracerOrNil returns the tracer setup, nil when tracing is off.
func (o *Observability) TracerOrNil() *TracerSetup {
	if o == nil {
		return nil
	}
	return o.Tracer
}

// MetricsOrNil returns the metrics collector, nil when metrics are off.
func (o *Observability) MetricsOrNil() *MetricsCollector {
	if o == nil {
		return nil
	}
	return o.Metrics
}

// AnomalyOrNil returns the anomaly detector, nil when detection is off.
func (o *Observability) AnomalyOrNil() *AnomalyDetector {
	if o == nil {
		return nil
	}
	return o.Anomaly
}
