package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"instaetl/internal/config"
	"instaetl/pkg/contracts"
)

const (
	ServiceName    = "instaetl"
	ServiceVersion = contracts.Version
	MeterName      = "instaetl"
)

// OTelProviders holds the tracing and metrics providers of one run.
// Nothing is registered globally; components receive the tracer and meter
// they need from here.
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider // nil when tracing is disabled
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	Registry       *prom.Registry
	Logger         *slog.Logger

	traceFile *os.File
}

// InitializeOTel sets up tracing per cfg and a meter provider backed by the
// OpenTelemetry Prometheus exporter on a private registry.
func InitializeOTel(cfg config.TelemetryConfig, logger *slog.Logger) (*OTelProviders, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ctx := context.Background()

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(ServiceVersion),
		attribute.String("service.instance.id", GenerateRunID()),
	)

	providers := &OTelProviders{Logger: logger}

	if err := providers.initializeTracing(cfg, res); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	if err := providers.initializeMetrics(res); err != nil {
		_ = providers.Shutdown(ctx)
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	logger.InfoContext(ctx, "OpenTelemetry initialization complete",
		slog.String("trace_exporter", cfg.TraceExporter),
		slog.Float64("sample_ratio", cfg.SampleRatio))

	return providers, nil
}

func (p *OTelProviders) initializeTracing(cfg config.TelemetryConfig, res *resource.Resource) error {
	var opts []stdouttrace.Option

	switch cfg.TraceExporter {
	case "", "none":
		p.Tracer = noop.NewTracerProvider().Tracer(MeterName)
		return nil
	case "stdout":
		opts = append(opts, stdouttrace.WithPrettyPrint())
	case "file":
		file, err := openLogFile(cfg.TraceFile)
		if err != nil {
			return err
		}
		p.traceFile = file
		opts = append(opts, stdouttrace.WithWriter(file))
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)

	p.TracerProvider = tp
	p.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(ServiceVersion))
	return nil
}

func (p *OTelProviders) initializeMetrics(res *resource.Resource) error {
	registry := prom.NewRegistry()

	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	p.Registry = registry
	p.MeterProvider = mp
	p.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(ServiceVersion))
	return nil
}

// WriteMetrics dumps the current metric values to path in the Prometheus
// text format, for node_exporter's textfile collector.
func (p *OTelProviders) WriteMetrics(path string) error {
	if p.Registry == nil {
		return fmt.Errorf("metrics are not initialized")
	}
	return prom.WriteToTextfile(path, p.Registry)
}

// Shutdown flushes pending spans and releases the providers.
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}
	if p.traceFile != nil {
		if err := p.traceFile.Close(); err != nil {
			errs = append(errs, err)
		}
		p.traceFile = nil
	}

	return errors.Join(errs...)
}

// PipelineMetrics are the counters and histograms recorded by a run.
// A nil *PipelineMetrics is valid and records nothing.
type PipelineMetrics struct {
	RowsRead      metric.Int64Counter
	RowsDropped   metric.Int64Counter
	RowsOutput    metric.Int64Counter
	StageDuration metric.Float64Histogram
	Runs          metric.Int64Counter
}

// NewPipelineMetrics registers the pipeline instruments on meter.
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	rowsRead, err := meter.Int64Counter(
		"instaetl_rows_read",
		metric.WithDescription("Rows read from the raw input"),
	)
	if err != nil {
		return nil, err
	}

	rowsDropped, err := meter.Int64Counter(
		"instaetl_rows_dropped",
		metric.WithDescription("Rows dropped during cleaning, by reason"),
	)
	if err != nil {
		return nil, err
	}

	rowsOutput, err := meter.Int64Counter(
		"instaetl_rows_output",
		metric.WithDescription("Rows produced per output table"),
	)
	if err != nil {
		return nil, err
	}

	stageDuration, err := meter.Float64Histogram(
		"instaetl_stage_duration",
		metric.WithDescription("Pipeline stage duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	runs, err := meter.Int64Counter(
		"instaetl_runs",
		metric.WithDescription("Pipeline runs by final status"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		RowsRead:      rowsRead,
		RowsDropped:   rowsDropped,
		RowsOutput:    rowsOutput,
		StageDuration: stageDuration,
		Runs:          runs,
	}, nil
}

// RecordRead adds n raw rows
func (m *PipelineMetrics) RecordRead(ctx context.Context, n int) {
	if m == nil {
		return
	}
	m.RowsRead.Add(ctx, int64(n))
}

// RecordDropped adds n rows dropped for reason
func (m *PipelineMetrics) RecordDropped(ctx context.Context, reason string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.RowsDropped.Add(ctx, int64(n), metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordOutput adds n rows written to table
func (m *PipelineMetrics) RecordOutput(ctx context.Context, table string, n int) {
	if m == nil {
		return
	}
	m.RowsOutput.Add(ctx, int64(n), metric.WithAttributes(attribute.String("table", table)))
}

// RecordStage records how long stage took
func (m *PipelineMetrics) RecordStage(ctx context.Context, stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordRun counts a finished run
func (m *PipelineMetrics) RecordRun(ctx context.Context, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.Runs.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordError marks the span as failed
func RecordError(span trace.Span, err error) {
	if err == nil || !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// TraceIDFromContext returns the trace ID of the active span, if any
func TraceIDFromContext(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}
