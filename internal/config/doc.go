// Package config provides the run configuration of the instaetl pipeline.
// It handles loading configuration from multiple sources, validation, and
// resolution of the run's input, staging and output paths.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. YAML configuration file
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern INSTAETL_<SECTION>_<FIELD>:
//
//	INSTAETL_PATHS_INPUT_PATH=data/raw/Instagram_Analytics.csv
//	INSTAETL_PATHS_OUTPUT_DIR=data/processed
//	INSTAETL_LOGGING_LEVEL=debug
//	INSTAETL_PROCESSING_ENGAGEMENT_RATE_POLICY=impressions,total
//	INSTAETL_WAREHOUSE_ENABLED=true
//	INSTAETL_WAREHOUSE_DSN=file:warehouse.db
//
// # Run State
//
// There is no package-level state. Load returns a *Config that callers pass
// explicitly to each stage, so two runs with different paths can coexist in
// one process (tests rely on this).
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Paths.EnsureDirectories(); err != nil {
//	    log.Fatal(err)
//	}
package config
