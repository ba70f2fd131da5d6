package tidewatch

import (
	"time"

	metrics "github.com/armon/go-metrics"
)

// Telemetry is an explicitly constructed observation handle. It is owned by
// the process's top-level lifecycle and injected into the components that
// emit observations; there is no package-level default and no ambient global
// lookup. A nil *Telemetry is valid and records nothing.
type Telemetry struct {
	sink *metrics.InmemSink
	m    *metrics.Metrics
}

// NewTelemetry creates a telemetry handle backed by an in-memory sink.
// The caller owns the handle and must Close it on shutdown.
func NewTelemetry(service string) (*Telemetry, error) {
	sink := metrics.NewInmemSink(10*time.Second, time.Minute)

	cfg := metrics.DefaultConfig(service)
	cfg.EnableHostname = false
	cfg.EnableRuntimeMetrics = false

	m, err := metrics.New(cfg, sink)
	if err != nil {
		return nil, err
	}

	return &Telemetry{sink: sink, m: m}, nil
}

// ScanCompleted records one finished scan cycle and the actions it produced.
func (t *Telemetry) ScanCompleted(scanner string, actions []QueuedAction) {
	if t == nil {
		return
	}

	labels := []metrics.Label{{Name: "scanner", Value: scanner}}
	t.m.IncrCounterWithLabels([]string{"scan", "cycles"}, 1, labels)
	for _, action := range actions {
		t.m.IncrCounterWithLabels([]string{"scan", "actions"}, 1,
			append(labels, metrics.Label{Name: "kind", Value: action.Kind.String()}))
	}
}

// PutCompleted records the outcome of one durable write.
func (t *Telemetry) PutCompleted(backend string, err error) {
	if t == nil {
		return
	}

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	t.m.IncrCounterWithLabels([]string{"persistence", "puts"}, 1, []metrics.Label{
		{Name: "backend", Value: backend},
		{Name: "outcome", Value: outcome},
	})
}

// Data returns the sink intervals collected so far.
func (t *Telemetry) Data() []*metrics.IntervalMetrics {
	if t == nil {
		return nil
	}
	return t.sink.Data()
}

// Close tears the handle down. Components holding the handle must not emit
// after Close returns.
func (t *Telemetry) Close() {
	if t == nil {
		return
	}
	t.m.Shutdown()
}
