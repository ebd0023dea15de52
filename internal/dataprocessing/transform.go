package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"instaetl/internal/config"
	apperrors "instaetl/internal/errors"
	"instaetl/internal/infrastructure"
	"instaetl/pkg/contracts/domain"
)

// Stage names used for spans and the stage duration metric.
const (
	StageClean      = "clean"
	StageKPI        = "kpi"
	StageDimensions = "dimensions"
	StageFacts      = "facts"
	StageValidate   = "validate"
)

// Result holds every table produced by one transform run.
type Result struct {
	Cleaned    domain.CleanTable
	Report     CleanReport
	KPIs       []domain.KPIRecord
	Dimensions domain.Dimensions
	Facts      []domain.FactRow
}

// Tables returns the seven output tables in write order.
func (r *Result) Tables() []domain.Table {
	return []domain.Table{
		domain.CleanedView{Table: r.Cleaned},
		domain.KPIView(r.KPIs),
		domain.TimeDimView(r.Dimensions.Time),
		domain.ContentDimView(r.Dimensions.Content),
		domain.MediaDimView(r.Dimensions.Media),
		domain.TrafficDimView(r.Dimensions.Traffic),
		domain.FactView(r.Facts),
	}
}

// StarTables returns the five warehouse tables, dimensions first.
func (r *Result) StarTables() []domain.Table {
	return r.Tables()[2:]
}

// Transformer runs clean, KPI derivation, dimension building, fact assembly
// and validation in sequence. Each stage consumes the full output of the
// previous one.
type Transformer struct {
	cleaner *Cleaner
	deriver *KPIDeriver
	tracer  trace.Tracer
	metrics *infrastructure.PipelineMetrics
	logger  *slog.Logger
}

// TransformerOption configures a Transformer
type TransformerOption func(*Transformer)

// WithTracer records a span per stage
func WithTracer(tracer trace.Tracer) TransformerOption {
	return func(t *Transformer) {
		if tracer != nil {
			t.tracer = tracer
		}
	}
}

// WithMetrics records row counts and stage durations
func WithMetrics(metrics *infrastructure.PipelineMetrics) TransformerOption {
	return func(t *Transformer) {
		t.metrics = metrics
	}
}

// NewTransformer builds a Transformer from the processing configuration.
func NewTransformer(cfg config.ProcessingConfig, logger *slog.Logger, opts ...TransformerOption) (*Transformer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	deriver, err := NewKPIDeriver(cfg.EngagementRatePolicy, logger)
	if err != nil {
		return nil, err
	}

	t := &Transformer{
		cleaner: NewCleaner(cfg.DateLayouts, logger),
		deriver: deriver,
		tracer:  noop.NewTracerProvider().Tracer(""),
		logger:  logger.With("component", "transformer"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Transform turns the raw table into the validated star schema. Nothing is
// returned unless every check passes.
func (t *Transformer) Transform(ctx context.Context, raw *domain.RawTable) (*Result, error) {
	if raw == nil {
		return nil, apperrors.NewAppValidationError("raw table is nil")
	}

	ctx, span := t.tracer.Start(ctx, "transform",
		trace.WithAttributes(
			attribute.String("source", raw.Source),
			attribute.Int("input_rows", len(raw.Rows)),
		))
	defer span.End()

	result, err := t.run(ctx, raw)
	infrastructure.RecordError(span, err)
	if err != nil {
		t.logger.ErrorContext(ctx, "Transform failed", slog.String("error", err.Error()))
		return nil, err
	}

	span.SetAttributes(attribute.Int("fact_rows", len(result.Facts)))
	t.logger.InfoContext(ctx, "Transform completed",
		slog.Int("cleaned_rows", len(result.Cleaned.Posts)),
		slog.Int("time_dim_rows", len(result.Dimensions.Time)),
		slog.Int("content_dim_rows", len(result.Dimensions.Content)),
		slog.Int("media_dim_rows", len(result.Dimensions.Media)),
		slog.Int("traffic_dim_rows", len(result.Dimensions.Traffic)),
		slog.Int("fact_rows", len(result.Facts)))

	return result, nil
}

func (t *Transformer) run(ctx context.Context, raw *domain.RawTable) (*Result, error) {
	result := &Result{}
	t.metrics.RecordRead(ctx, len(raw.Rows))

	err := t.stage(ctx, StageClean, func(ctx context.Context) error {
		cleaned, err := t.cleaner.Clean(ctx, raw)
		if err != nil {
			return err
		}
		result.Cleaned = cleaned.Table
		result.Report = cleaned.Report

		t.metrics.RecordDropped(ctx, "invalid_date", cleaned.Report.InvalidDates)
		t.metrics.RecordDropped(ctx, "missing_post_id", cleaned.Report.MissingPostIDs)
		t.metrics.RecordDropped(ctx, "duplicate", cleaned.Report.Duplicates)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = t.stage(ctx, StageKPI, func(ctx context.Context) error {
		kpis, err := t.deriver.Derive(ctx, &result.Cleaned)
		result.KPIs = kpis
		return err
	})
	if err != nil {
		return nil, err
	}

	err = t.stage(ctx, StageDimensions, func(ctx context.Context) error {
		result.Dimensions = BuildDimensions(result.KPIs)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = t.stage(ctx, StageFacts, func(ctx context.Context) error {
		d := result.Dimensions
		result.Facts = Assemble(result.KPIs, d.Content, d.Media, d.Traffic)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = t.stage(ctx, StageValidate, func(ctx context.Context) error {
		if err := ValidateFact(result.Facts); err != nil {
			return err
		}
		return ValidateStarSchema(result.Dimensions, result.Facts)
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (t *Transformer) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s stage not started: %w", name, err)
	}

	ctx, span := t.tracer.Start(ctx, "transform."+name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	t.metrics.RecordStage(ctx, name, elapsed)
	infrastructure.RecordError(span, err)
	t.logger.DebugContext(ctx, "Stage finished",
		slog.String("stage", name),
		slog.Duration("duration", elapsed),
		slog.Bool("ok", err == nil))

	return err
}
