package services

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"instaetl/internal/config"
	"instaetl/internal/dataprocessing"
	apperrors "instaetl/internal/errors"
	"instaetl/internal/exporter"
	"instaetl/internal/files"
	"instaetl/internal/infrastructure"
	"instaetl/internal/warehouse"
	"instaetl/pkg/contracts/domain"
)

// DBOpener opens a warehouse connection
type DBOpener func(driver, dsn string) (*sql.DB, error)

// DefaultDBOpener opens connections through database/sql
var DefaultDBOpener DBOpener = sql.Open

// TableSummary is one written output table
type TableSummary struct {
	Table string
	Path  string
	Rows  int
}

// RunSummary describes what one pipeline invocation did
type RunSummary struct {
	RunID    string
	Input    string
	Staged   string
	Report   dataprocessing.CleanReport
	Outputs  []TableSummary
	Workbook string
	Loads    []warehouse.LoadResult
	Duration time.Duration
}

// PipelineService orchestrates extract, transform, persist and load
type PipelineService struct {
	cfg       *config.Config
	logger    *slog.Logger
	telemetry *infrastructure.OTelProviders
	metrics   *infrastructure.PipelineMetrics
	tracer    trace.Tracer
	openDB    DBOpener

	stager *files.Manager
	csv    *exporter.CSVWriter
	excel  *exporter.ExcelWriter
}

// Option configures a PipelineService
type Option func(*PipelineService)

// WithTelemetry records spans and metrics through providers
func WithTelemetry(providers *infrastructure.OTelProviders) Option {
	return func(s *PipelineService) {
		s.telemetry = providers
	}
}

// WithDBOpener replaces sql.Open for the load step
func WithDBOpener(open DBOpener) Option {
	return func(s *PipelineService) {
		if open != nil {
			s.openDB = open
		}
	}
}

// NewPipelineService wires the pipeline components for cfg
func NewPipelineService(cfg *config.Config, logger *slog.Logger, opts ...Option) (*PipelineService, error) {
	if cfg == nil {
		return nil, apperrors.NewConfigError("configuration is required", nil)
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &PipelineService{
		cfg:    cfg,
		logger: infrastructure.WithComponent(logger, "pipeline"),
		tracer: noop.NewTracerProvider().Tracer(infrastructure.MeterName),
		openDB: DefaultDBOpener,
		stager: files.NewManager(cfg.Paths, logger),
		csv:    exporter.NewCSVWriter(cfg.Paths.OutputDir, logger),
		excel:  exporter.NewExcelWriter(logger),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.telemetry != nil {
		s.tracer = s.telemetry.Tracer
		metrics, err := infrastructure.NewPipelineMetrics(s.telemetry.Meter)
		if err != nil {
			return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
		}
		s.metrics = metrics
		if err := infrastructure.RegisterRuntimeMetrics(s.telemetry.Meter, time.Now()); err != nil {
			return nil, fmt.Errorf("failed to register runtime metrics: %w", err)
		}
	}

	return s, nil
}

// Extract stages the configured input file
func (s *PipelineService) Extract(ctx context.Context) (string, error) {
	ctx, span := s.tracer.Start(ctx, "extract",
		trace.WithAttributes(attribute.String("input", s.cfg.Paths.InputPath)))
	defer span.End()

	staged, err := s.stager.Stage(ctx, s.cfg.Paths.InputPath)
	infrastructure.RecordError(span, err)
	return staged, err
}

// TransformFile parses path, transforms it and writes every output table.
// Outputs are only written once the star schema has passed validation.
func (s *PipelineService) TransformFile(ctx context.Context, path string) (*RunSummary, *dataprocessing.Result, error) {
	summary := &RunSummary{RunID: infrastructure.GetRunID(ctx), Staged: path}

	raw, err := s.parse(ctx, path)
	if err != nil {
		return summary, nil, err
	}

	transformer, err := dataprocessing.NewTransformer(s.cfg.Processing, s.logger,
		dataprocessing.WithTracer(s.tracer),
		dataprocessing.WithMetrics(s.metrics))
	if err != nil {
		return summary, nil, err
	}

	result, err := transformer.Transform(ctx, raw)
	if err != nil {
		return summary, nil, err
	}
	summary.Report = result.Report

	if err := s.persist(ctx, result, summary); err != nil {
		return summary, nil, err
	}
	return summary, result, nil
}

func (s *PipelineService) parse(ctx context.Context, path string) (*domain.RawTable, error) {
	_, span := s.tracer.Start(ctx, "parse", trace.WithAttributes(attribute.String("path", path)))
	defer span.End()

	raw, err := dataprocessing.ParseFile(path, s.cfg.Processing.InputSheet)
	infrastructure.RecordError(span, err)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Input parsed",
		slog.String("path", path),
		slog.Int("rows", len(raw.Rows)),
		slog.Bool("has_engagement_rate", raw.HasEngagementRate))
	return raw, nil
}

func (s *PipelineService) persist(ctx context.Context, result *dataprocessing.Result, summary *RunSummary) error {
	ctx, span := s.tracer.Start(ctx, "persist")
	defer span.End()

	tables := result.Tables()
	if _, err := s.csv.WriteAll(ctx, tables); err != nil {
		infrastructure.RecordError(span, err)
		return err
	}

	for _, table := range tables {
		fileName, _ := exporter.FileNameFor(table.Name())
		summary.Outputs = append(summary.Outputs, TableSummary{
			Table: table.Name(),
			Path:  s.cfg.Paths.OutputPath(fileName),
			Rows:  table.Len(),
		})
		s.metrics.RecordOutput(ctx, table.Name(), table.Len())
	}

	if s.cfg.Processing.WriteXLSX {
		path := s.cfg.Paths.OutputPath(s.cfg.Processing.XLSXFileName)
		if err := s.excel.WriteWorkbook(path, result.StarTables()); err != nil {
			infrastructure.RecordError(span, err)
			return err
		}
		summary.Workbook = path
	}
	return nil
}

// Load reads the star-schema CSVs from the output directory and loads them
// into the configured warehouse.
func (s *PipelineService) Load(ctx context.Context) ([]warehouse.LoadResult, error) {
	tables, err := exporter.ReadTables(s.cfg.Paths.OutputDir, warehouse.LoadOrder)
	if err != nil {
		return nil, err
	}

	star := make([]domain.Table, len(tables))
	for i, t := range tables {
		star[i] = t
	}
	return s.loadTables(ctx, star)
}

func (s *PipelineService) loadTables(ctx context.Context, tables []domain.Table) ([]warehouse.LoadResult, error) {
	ctx, span := s.tracer.Start(ctx, "load",
		trace.WithAttributes(attribute.String("driver", s.cfg.Warehouse.Driver)))
	defer span.End()

	results, err := s.load(ctx, tables)
	infrastructure.RecordError(span, err)
	return results, err
}

func (s *PipelineService) load(ctx context.Context, tables []domain.Table) ([]warehouse.LoadResult, error) {
	if s.cfg.Warehouse.DSN == "" {
		return nil, apperrors.NewConfigError("warehouse DSN is not set", nil)
	}

	db, err := s.openDB(s.cfg.Warehouse.Driver, s.cfg.Warehouse.DSN)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to open warehouse", err).
			WithContext("driver", s.cfg.Warehouse.Driver)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return nil, apperrors.NewStorageError("warehouse is unreachable", err).
			WithContext("driver", s.cfg.Warehouse.Driver)
	}

	loader := warehouse.NewLoader(db, s.logger)
	if err := loader.CreateTables(ctx); err != nil {
		return nil, err
	}
	return loader.LoadAll(ctx, tables)
}

// Run executes the whole pipeline: stage the input, transform it, write the
// outputs and, when enabled, load the warehouse. Metrics are flushed to the
// configured textfile whether or not the run succeeds.
func (s *PipelineService) Run(ctx context.Context) (summary *RunSummary, err error) {
	ctx = infrastructure.EnsureRunID(ctx)
	start := time.Now()

	ctx, span := s.tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(attribute.String("run_id", infrastructure.GetRunID(ctx))))
	defer span.End()

	s.logger.InfoContext(ctx, "Pipeline run started",
		slog.String("input", s.cfg.Paths.InputPath),
		slog.String("output_dir", s.cfg.Paths.OutputDir),
		slog.Bool("warehouse", s.cfg.Warehouse.Enabled))

	defer func() {
		infrastructure.RecordError(span, err)
		s.metrics.RecordRun(ctx, err)
		s.metrics.RecordStage(ctx, "run", time.Since(start))
		s.flushMetrics(ctx)
		if summary != nil {
			summary.Duration = time.Since(start)
		}
		if err != nil {
			s.logger.ErrorContext(ctx, "Pipeline run failed", slog.String("error", err.Error()))
		}
	}()

	staged, err := s.Extract(ctx)
	if err != nil {
		return nil, err
	}

	summary, result, err := s.TransformFile(ctx, staged)
	summary.Input = s.cfg.Paths.InputPath
	if err != nil {
		return summary, err
	}

	if s.cfg.Warehouse.Enabled {
		summary.Loads, err = s.loadTables(ctx, result.StarTables())
		if err != nil {
			return summary, err
		}
	}

	s.logger.InfoContext(ctx, "Pipeline run completed",
		slog.Int("fact_rows", len(result.Facts)),
		slog.Int("dropped_rows", result.Report.Dropped()),
		slog.Duration("duration", time.Since(start)))

	return summary, nil
}

func (s *PipelineService) flushMetrics(ctx context.Context) {
	if s.telemetry == nil || s.cfg.Telemetry.MetricsFile == "" {
		return
	}
	if err := s.telemetry.WriteMetrics(s.cfg.Telemetry.MetricsFile); err != nil {
		s.logger.WarnContext(ctx, "Failed to write metrics file",
			slog.String("path", s.cfg.Telemetry.MetricsFile),
			slog.String("error", err.Error()))
	}
}
