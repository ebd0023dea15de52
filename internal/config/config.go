package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable, e.g. INSTAETL_PATHS_OUTPUT_DIR.
const EnvPrefix = "INSTAETL"

// Config represents the complete run configuration. It is built once by Load
// and passed explicitly to every component; nothing reads it from globals.
type Config struct {
	Paths      PathsConfig      `yaml:"paths" envconfig:"PATHS"`
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Processing ProcessingConfig `yaml:"processing" envconfig:"PROCESSING"`
	Warehouse  WarehouseConfig  `yaml:"warehouse" envconfig:"WAREHOUSE"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// PathsConfig contains file system paths for one pipeline run
type PathsConfig struct {
	InputPath  string `yaml:"input_path" envconfig:"INPUT_PATH"`
	StagingDir string `yaml:"staging_dir" envconfig:"STAGING_DIR" validate:"required"`
	OutputDir  string `yaml:"output_dir" envconfig:"OUTPUT_DIR" validate:"required"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR" validate:"required"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// ProcessingConfig tunes the transform stages
type ProcessingConfig struct {
	// DateLayouts are tried in order when parsing upload_date.
	DateLayouts []string `yaml:"date_layouts" envconfig:"DATE_LAYOUTS" validate:"min=1"`

	// EngagementRatePolicy orders the denominators used to derive engagement_rate
	// when the input does not carry it.
	EngagementRatePolicy []string `yaml:"engagement_rate_policy" envconfig:"ENGAGEMENT_RATE_POLICY" validate:"min=1,dive,oneof=followers_gained impressions total"`

	WriteXLSX    bool   `yaml:"write_xlsx" envconfig:"WRITE_XLSX"`
	XLSXFileName string `yaml:"xlsx_file_name" envconfig:"XLSX_FILE_NAME"`
	InputSheet   string `yaml:"input_sheet" envconfig:"INPUT_SHEET"`
}

// WarehouseConfig configures the optional SQL load step
type WarehouseConfig struct {
	Enabled bool   `yaml:"enabled" envconfig:"ENABLED"`
	Driver  string `yaml:"driver" envconfig:"DRIVER" validate:"required"`
	DSN     string `yaml:"dsn" envconfig:"DSN" validate:"required_if=Enabled true"`
}

// TelemetryConfig configures tracing and the metrics textfile
type TelemetryConfig struct {
	TraceExporter string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=stdout file none"`
	TraceFile     string  `yaml:"trace_file" envconfig:"TRACE_FILE" validate:"required_if=TraceExporter file"`
	SampleRatio   float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" validate:"gte=0,lte=1"`
	MetricsFile   string  `yaml:"metrics_file" envconfig:"METRICS_FILE"`
}

// Load builds the configuration from defaults, an optional YAML file, then
// INSTAETL_* environment variables (highest priority), and validates it.
// An empty path falls back to the first config file found in the usual locations.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = getConfigFilePath()
	}
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg; keys absent from the file keep
// their current values.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks struct constraints and normalizes a few fields.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%s", strings.Join(msgs, "; "))
		}
		return err
	}

	c.Logging.Level = strings.ToLower(c.Logging.Level)
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = c.Paths.LogFile("instaetl.log")
	}
	if c.Processing.XLSXFileName == "" {
		c.Processing.XLSXFileName = "star_schema.xlsx"
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"instaetl.yaml",
		"configs/instaetl.yaml",
		"../configs/instaetl.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// DefaultDateLayouts are the upload_date formats accepted out of the box.
func DefaultDateLayouts() []string {
	return []string{
		"2006-01-02",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04",
		"2006-01-02T15:04:05Z07:00",
		"01/02/2006",
		"01/02/2006 15:04",
		"01/02/2006 15:04:05",
		"2006/01/02",
	}
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			StagingDir: "data/staging",
			OutputDir:  "data/processed",
			LogsDir:    "logs",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "console",
		},
		Processing: ProcessingConfig{
			DateLayouts:          DefaultDateLayouts(),
			EngagementRatePolicy: []string{"followers_gained", "impressions", "total"},
			XLSXFileName:         "star_schema.xlsx",
			InputSheet:           "",
		},
		Warehouse: WarehouseConfig{
			Driver: "sqlite",
			DSN:    "file:data/warehouse.db?_pragma=foreign_keys(1)",
		},
		Telemetry: TelemetryConfig{
			TraceExporter: "none",
			SampleRatio:   1.0,
		},
	}
}
