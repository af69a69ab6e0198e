// Package observe holds the OpenTelemetry instruments of the assistant and
// the Prometheus bridge that exposes them on /metrics.
//
// Tests should build their own [Metrics] with [NewMetrics] over a
// [sdkmetric.ManualReader] rather than use the global provider.
package observe

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "gpthome"

// Metrics holds every instrument. All fields are safe for concurrent use.
type Metrics struct {
	// STTDuration tracks how long capture plus transcription took.
	STTDuration metric.Float64Histogram

	// LLMDuration tracks completion latency.
	LLMDuration metric.Float64Histogram

	// PhaseDuration tracks one speak+display phase. Use with attribute:
	//   attribute.String("phase", "heard"|"response"|"error")
	PhaseDuration metric.Float64Histogram

	// Iterations counts loop iterations. Use with attribute:
	//   attribute.String("outcome", "answered"|"skipped"|"failed")
	Iterations metric.Int64Counter

	// Errors counts announced failures. Use with attribute:
	//   attribute.String("category", "unknown_value"|"request"|"other")
	Errors metric.Int64Counter

	// NetworkDown counts failed connectivity polls at startup.
	NetworkDown metric.Int64Counter
}

// latencyBuckets in seconds; cloud round trips dominate.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30,
}

func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.STTDuration, err = m.Float64Histogram("gpthome.stt.duration",
		metric.WithDescription("Latency of capture and speech-to-text."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LLMDuration, err = m.Float64Histogram("gpthome.llm.duration",
		metric.WithDescription("Latency of the completion call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PhaseDuration, err = m.Float64Histogram("gpthome.phase.duration",
		metric.WithDescription("Duration of a speak and display phase."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.Iterations, err = m.Int64Counter("gpthome.session.iterations",
		metric.WithDescription("Loop iterations by outcome."),
	); err != nil {
		return nil, err
	}
	if met.Errors, err = m.Int64Counter("gpthome.session.errors",
		metric.WithDescription("Announced failures by category."),
	); err != nil {
		return nil, err
	}
	if met.NetworkDown, err = m.Int64Counter("gpthome.network.down",
		metric.WithDescription("Failed connectivity polls."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the instruments on the global meter provider. Call
// InitProvider first or the instruments are no-ops.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}
