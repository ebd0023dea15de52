package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "instaetl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     bool
		errContains string
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults with no file and no env",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "data/staging", cfg.Paths.StagingDir)
				assert.Equal(t, "data/processed", cfg.Paths.OutputDir)
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "console", cfg.Logging.Output)
				assert.Equal(t, filepath.Join("logs", "instaetl.log"), cfg.Logging.FilePath)
				assert.Equal(t, []string{"followers_gained", "impressions", "total"}, cfg.Processing.EngagementRatePolicy)
				assert.Equal(t, DefaultDateLayouts(), cfg.Processing.DateLayouts)
				assert.False(t, cfg.Warehouse.Enabled)
				assert.Equal(t, "sqlite", cfg.Warehouse.Driver)
				assert.Equal(t, "none", cfg.Telemetry.TraceExporter)
				assert.Equal(t, "star_schema.xlsx", cfg.Processing.XLSXFileName)
			},
		},
		{
			name: "file overlays defaults",
			file: `
paths:
  input_path: raw/posts.csv
  output_dir: out
logging:
  level: debug
processing:
  write_xlsx: true
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "raw/posts.csv", cfg.Paths.InputPath)
				assert.Equal(t, "out", cfg.Paths.OutputDir)
				assert.Equal(t, "data/staging", cfg.Paths.StagingDir, "keys absent from the file keep defaults")
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.True(t, cfg.Processing.WriteXLSX)
			},
		},
		{
			name: "env takes precedence over file",
			file: `
paths:
  output_dir: from-file
logging:
  level: debug
`,
			env: map[string]string{
				"INSTAETL_PATHS_OUTPUT_DIR":                  "from-env",
				"INSTAETL_PROCESSING_ENGAGEMENT_RATE_POLICY": "impressions,total",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "from-env", cfg.Paths.OutputDir)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, []string{"impressions", "total"}, cfg.Processing.EngagementRatePolicy)
			},
		},
		{
			name:        "unknown engagement rate denominator",
			env:         map[string]string{"INSTAETL_PROCESSING_ENGAGEMENT_RATE_POLICY": "reach"},
			wantErr:     true,
			errContains: "EngagementRatePolicy",
		},
		{
			name:        "invalid logging output",
			env:         map[string]string{"INSTAETL_LOGGING_OUTPUT": "syslog"},
			wantErr:     true,
			errContains: "Output",
		},
		{
			name: "warehouse enabled without dsn",
			file: `
warehouse:
  enabled: true
  dsn: ""
`,
			wantErr:     true,
			errContains: "DSN",
		},
		{
			name:        "file trace exporter requires a trace file",
			env:         map[string]string{"INSTAETL_TELEMETRY_TRACE_EXPORTER": "file"},
			wantErr:     true,
			errContains: "TraceFile",
		},
		{
			name:    "malformed yaml",
			file:    "paths: [unterminated",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			path := ""
			if tt.file != "" {
				path = writeConfigFile(t, tt.file)
			}

			cfg, err := Load(path)
			if tt.wantErr {
				require.Error(t, err)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)
			if tt.validateCfg != nil {
				tt.validateCfg(t, cfg)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestConfig_ValidateNormalizesLevel(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "warn"
	cfg.Logging.FilePath = ""
	cfg.Paths.LogsDir = "var/log"

	require.NoError(t, cfg.Validate())
	assert.Equal(t, filepath.Join("var/log", "instaetl.log"), cfg.Logging.FilePath)
}

func TestPathsConfig(t *testing.T) {
	root := t.TempDir()
	p := PathsConfig{
		StagingDir: filepath.Join(root, "staging"),
		OutputDir:  filepath.Join(root, "processed"),
		LogsDir:    filepath.Join(root, "logs"),
	}

	require.NoError(t, p.EnsureDirectories())
	for _, dir := range []string{p.StagingDir, p.OutputDir, p.LogsDir} {
		assert.DirExists(t, dir)
	}

	assert.Equal(t, filepath.Join(p.StagingDir, "instagram_raw.csv"), p.StagedInputPath("in/Instagram_Analytics.CSV"))
	assert.Equal(t, filepath.Join(p.StagingDir, "instagram_raw.xlsx"), p.StagedInputPath("in/export.xlsx"))
	assert.Equal(t, filepath.Join(p.StagingDir, "instagram_raw.csv"), p.StagedInputPath("in/noext"))
	assert.Equal(t, filepath.Join(p.OutputDir, FactCSV), p.OutputPath(FactCSV))

	assert.True(t, FileExists(p.OutputDir))
	assert.False(t, FileExists(filepath.Join(root, "missing")))
}
