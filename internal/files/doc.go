// Package files stages raw input exports for a pipeline run.
//
// Manager copies the raw file into the staging directory under a fixed base
// name, keeping its extension so the parser can pick the right reader. When
// the input path is a directory, the newest CSV or XLSX export in it is used.
//
// Example usage:
//
//	manager := files.NewManager(cfg.Paths, logger)
//	staged, err := manager.Stage(ctx, "exports/")
package files
