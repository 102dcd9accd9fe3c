package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/bundlecfg"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Descriptor metrics
	DescriptorsTotal metric.Int64Counter

	// Bundler run metrics
	BuildsTotal       metric.Int64Counter
	BuildErrorsTotal  metric.Int64Counter
	BuildDuration     metric.Float64Histogram
	OutputBytes       metric.Int64Counter
	CircularDepsTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.DescriptorsTotal, _ = meter.Int64Counter(
		"bundlecfg.descriptors.total",
		metric.WithDescription("Total number of build descriptors assembled"),
		metric.WithUnit("{descriptor}"),
	)

	m.BuildsTotal, _ = meter.Int64Counter(
		"bundlecfg.builds.total",
		metric.WithDescription("Total number of bundler runs"),
		metric.WithUnit("{build}"),
	)

	m.BuildErrorsTotal, _ = meter.Int64Counter(
		"bundlecfg.builds.errors.total",
		metric.WithDescription("Total number of failed bundler runs"),
		metric.WithUnit("{error}"),
	)

	m.BuildDuration, _ = meter.Float64Histogram(
		"bundlecfg.builds.duration",
		metric.WithDescription("Duration of bundler runs"),
		metric.WithUnit("ms"),
	)

	m.OutputBytes, _ = meter.Int64Counter(
		"bundlecfg.outputs.bytes",
		metric.WithDescription("Total bytes of bundle output produced"),
		metric.WithUnit("By"),
	)

	m.CircularDepsTotal, _ = meter.Int64Counter(
		"bundlecfg.circular_dependencies.total",
		metric.WithDescription("Total number of import cycles detected"),
		metric.WithUnit("{cycle}"),
	)

	return m
}
