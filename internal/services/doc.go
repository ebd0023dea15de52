// Package services wires the pipeline components into runnable operations.
//
// PipelineService owns one run: it stages the input, parses and transforms
// it, writes the outputs once the star schema has validated, optionally loads
// the warehouse, and flushes run metrics. Each step is also exposed on its own
// so the CLI can run extract, transform and load separately.
//
// HealthService checks that the configured directories, input and warehouse
// are usable before a run.
//
// Services take their configuration and logger explicitly:
//
//	svc, err := services.NewPipelineService(cfg, logger, services.WithTelemetry(providers))
//	summary, err := svc.Run(ctx)
//	services.RenderSummary(os.Stdout, summary)
package services
