package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds all executor metrics covering the golden 4 signals:
// - Latency: How long remote API calls take
// - Traffic: Submission/poll throughput
// - Errors: Transport faults and failed jobs
// - Saturation: Jobs currently tracked by the reconciler
type Metrics struct {
	meter metric.Meter

	// Remote API metrics (Latency, Errors)
	SubmitDuration   metric.Float64Histogram
	DescribeDuration metric.Float64Histogram
	TransportErrors  metric.Int64Counter

	// Job lifecycle metrics (Traffic, Errors, Saturation)
	JobsSubmitted metric.Int64Counter
	JobsSucceeded metric.Int64Counter
	JobsFailed    metric.Int64Counter
	JobsActive    metric.Int64UpDownCounter

	// Reconciler metrics (Traffic)
	PollPasses        metric.Int64Counter
	JobsNotFoundTotal metric.Int64Counter
}

// NewMetrics creates and registers all metrics with a Prometheus exporter.
func NewMetrics(ctx context.Context) (*Metrics, http.Handler, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter("batchrun")
	m := &Metrics{meter: meter}

	m.SubmitDuration, err = meter.Float64Histogram(
		"batch_submit_duration_seconds",
		metric.WithDescription("SubmitJob call latency in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, nil, err
	}

	m.DescribeDuration, err = meter.Float64Histogram(
		"batch_describe_duration_seconds",
		metric.WithDescription("DescribeJobs call latency in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, nil, err
	}

	m.TransportErrors, err = meter.Int64Counter(
		"batch_transport_errors_total",
		metric.WithDescription("Total transport-level failures talking to the batch API"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.JobsSubmitted, err = meter.Int64Counter(
		"jobs_submitted_total",
		metric.WithDescription("Total jobs submitted to the remote queue"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.JobsSucceeded, err = meter.Int64Counter(
		"jobs_succeeded_total",
		metric.WithDescription("Total jobs that reached SUCCEEDED"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.JobsFailed, err = meter.Int64Counter(
		"jobs_failed_total",
		metric.WithDescription("Total jobs that reached FAILED"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.JobsActive, err = meter.Int64UpDownCounter(
		"jobs_active",
		metric.WithDescription("Number of jobs currently tracked by the reconciler (saturation)"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.PollPasses, err = meter.Int64Counter(
		"poll_passes_total",
		metric.WithDescription("Total reconciliation passes over the active set"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.JobsNotFoundTotal, err = meter.Int64Counter(
		"jobs_not_found_total",
		metric.WithDescription("Total describe responses missing a polled job (eventual consistency)"),
	)
	if err != nil {
		return nil, nil, err
	}

	return m, promhttp.Handler(), nil
}

// RecordSubmitted records a job being submitted to the remote queue.
// All recorders are nil-safe so the executor can run without metrics.
func (m *Metrics) RecordSubmitted(ctx context.Context, queue string, durationSeconds float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(queueAttr(queue))
	m.JobsSubmitted.Add(ctx, 1, attrs)
	m.JobsActive.Add(ctx, 1, attrs)
	m.SubmitDuration.Record(ctx, durationSeconds, attrs)
}

// RecordResolved records a job leaving the active set with a terminal outcome.
func (m *Metrics) RecordResolved(ctx context.Context, queue string, success bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(queueAttr(queue))
	m.JobsActive.Add(ctx, -1, attrs)
	if success {
		m.JobsSucceeded.Add(ctx, 1, attrs)
	} else {
		m.JobsFailed.Add(ctx, 1, attrs)
	}
}

// RecordCancelled records a job removed from the active set by shutdown cancellation.
func (m *Metrics) RecordCancelled(ctx context.Context, queue string) {
	if m == nil {
		return
	}
	m.JobsActive.Add(ctx, -1, metric.WithAttributes(queueAttr(queue)))
}

// RecordDescribe records a status query and its outcome.
func (m *Metrics) RecordDescribe(ctx context.Context, durationSeconds float64, err error) {
	if m == nil {
		return
	}
	m.DescribeDuration.Record(ctx, durationSeconds)
	if err != nil {
		m.TransportErrors.Add(ctx, 1, WithOp("describeJobs"))
	}
}

// RecordTransportError records a transport fault for a non-describe operation.
func (m *Metrics) RecordTransportError(ctx context.Context, op string) {
	if m == nil {
		return
	}
	m.TransportErrors.Add(ctx, 1, WithOp(op))
}

// RecordPollPass records one full reconciliation pass.
func (m *Metrics) RecordPollPass(ctx context.Context) {
	if m == nil {
		return
	}
	m.PollPasses.Add(ctx, 1)
}

// RecordNotFound records a polled job missing from a describe response.
func (m *Metrics) RecordNotFound(ctx context.Context) {
	if m == nil {
		return
	}
	m.JobsNotFoundTotal.Add(ctx, 1)
}
