package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"instaetl/internal/config"
	"instaetl/internal/infrastructure"
	"instaetl/internal/services"
)

// globalOptions are the flags shared by every command
type globalOptions struct {
	configPath    string
	logLevel      string
	outputDir     string
	traceExporter string
	traceFile     string
	metricsFile   string
}

func (o *globalOptions) register(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVarP(&o.configPath, "config", "c", "", "config file (default: instaetl.yaml or configs/instaetl.yaml)")
	flags.StringVar(&o.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVarP(&o.outputDir, "out", "o", "", "output directory for the processed tables")
	flags.StringVar(&o.traceExporter, "trace", "", "trace exporter: none, stdout, file")
	flags.StringVar(&o.traceFile, "trace-file", "", "trace output file when --trace=file")
	flags.StringVar(&o.metricsFile, "metrics-file", "", "write run metrics in Prometheus text format to this file")
}

func (o *globalOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level = o.logLevel
	}
	if flags.Changed("out") {
		cfg.Paths.OutputDir = o.outputDir
	}
	if flags.Changed("trace") {
		cfg.Telemetry.TraceExporter = o.traceExporter
	}
	if flags.Changed("trace-file") {
		cfg.Telemetry.TraceFile = o.traceFile
	}
	if flags.Changed("metrics-file") {
		cfg.Telemetry.MetricsFile = o.metricsFile
	}
}

// app holds everything one command invocation needs
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	telemetry *infrastructure.OTelProviders
	service   *services.PipelineService
	logCloser io.Closer
}

// newApp loads the configuration, applies flag overrides and sets up
// logging, telemetry and the pipeline service.
func newApp(cmd *cobra.Command, opts *globalOptions, override func(*config.Config)) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	opts.apply(cmd, cfg)
	if override != nil {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}

	if err := cfg.Paths.EnsureDirectories(); err != nil {
		return nil, err
	}

	logger, logCloser, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}
	cfg.Paths.LogPathResolution(logger)

	telemetry, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		logCloser.Close()
		return nil, err
	}

	service, err := services.NewPipelineService(cfg, logger, services.WithTelemetry(telemetry))
	if err != nil {
		telemetry.Shutdown(context.Background())
		logCloser.Close()
		return nil, err
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		telemetry: telemetry,
		service:   service,
		logCloser: logCloser,
	}, nil
}

// Close flushes metrics and spans and releases the log file
func (a *app) Close() {
	if a.cfg.Telemetry.MetricsFile != "" {
		if err := a.telemetry.WriteMetrics(a.cfg.Telemetry.MetricsFile); err != nil {
			a.logger.Warn("Failed to write metrics file", slog.String("error", err.Error()))
		}
	}
	if err := a.telemetry.Shutdown(context.Background()); err != nil {
		a.logger.Warn("Telemetry shutdown failed", slog.String("error", err.Error()))
	}
	a.logCloser.Close()
}
