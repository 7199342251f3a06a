package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// meterScope names the instrumentation scope for pipeline instruments.
const meterScope = "github.com/sifterlab/sifter"

// MetricsExporter couples an OTel meter with the Prometheus handler that
// serves its instruments, so callers get both from one construction. Each
// exporter owns an independent Prometheus registry to avoid collector
// conflicts when constructed more than once in a process.
type MetricsExporter struct {
	provider *sdkmetric.MeterProvider
	handler  http.Handler
}

// NewMetricsExporter builds a Prometheus-backed OTel meter provider.
func NewMetricsExporter() (*MetricsExporter, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(
		promexporter.WithRegisterer(registry),
	)
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))

	return &MetricsExporter{
		provider: provider,
		handler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}, nil
}

// Meter returns the meter pipeline instruments are created from.
func (e *MetricsExporter) Meter() metric.Meter {
	return e.provider.Meter(meterScope)
}

// Handler returns the /metrics scrape endpoint.
func (e *MetricsExporter) Handler() http.Handler {
	return e.handler
}
