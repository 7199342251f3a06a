package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricContainersWritten = "sifter.containers.written.total"
	metricSourcesDiscovered = "sifter.sources.discovered.total"
	metricTasksCompleted    = "sifter.tasks.completed.total"
	metricParseDuration     = "sifter.parse.duration.seconds"
	metricWarningsTotal     = "sifter.warnings.total"

	attrKind   = "kind"
	attrParser = "parser"
	attrStatus = "status"
)

// parseDurationBoundaries covers 1ms to 60s: stat parsers finish in
// microseconds, large log files can take tens of seconds.
var parseDurationBoundaries = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// PipelineMetrics holds the OTel instruments for the extraction pipeline.
type PipelineMetrics struct {
	containersWritten metric.Int64Counter
	sourcesDiscovered metric.Int64Counter
	tasksCompleted    metric.Int64Counter
	parseDuration     metric.Float64Histogram
	warningsTotal     metric.Int64Counter
}

// NewPipelineMetrics creates the pipeline instruments from the given meter.
func NewPipelineMetrics(mt metric.Meter) (*PipelineMetrics, error) {
	b := newMetricBuilder(mt)

	pm := &PipelineMetrics{
		containersWritten: b.counter(metricContainersWritten, "Containers written per kind", "{container}"),
		sourcesDiscovered: b.counter(metricSourcesDiscovered, "Event sources discovered", "{source}"),
		tasksCompleted:    b.counter(metricTasksCompleted, "Extraction tasks completed", "{task}"),
		parseDuration:     b.histogram(metricParseDuration, "Parse duration in seconds", "s", parseDurationBoundaries...),
		warningsTotal:     b.counter(metricWarningsTotal, "Extraction warnings produced", "{warning}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return pm, nil
}

// RecordContainers records containers written for one kind.
func (pm *PipelineMetrics) RecordContainers(ctx context.Context, kind string, count int64) {
	pm.containersWritten.Add(ctx, count, metric.WithAttributes(attribute.String(attrKind, kind)))
}

// RecordSourceDiscovered records one discovered event source.
func (pm *PipelineMetrics) RecordSourceDiscovered(ctx context.Context) {
	pm.sourcesDiscovered.Add(ctx, 1)
}

// RecordTask records a completed task with its final status.
func (pm *PipelineMetrics) RecordTask(ctx context.Context, status string) {
	pm.tasksCompleted.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStatus, status)))
}

// RecordParse records one parser invocation.
func (pm *PipelineMetrics) RecordParse(ctx context.Context, parser string, duration time.Duration) {
	pm.parseDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String(attrParser, parser)))
}

// RecordWarnings records extraction warnings produced by one parser chain.
func (pm *PipelineMetrics) RecordWarnings(ctx context.Context, parser string, count int64) {
	if count == 0 {
		return
	}

	pm.warningsTotal.Add(ctx, count, metric.WithAttributes(attribute.String(attrParser, parser)))
}
