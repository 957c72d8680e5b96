// Package config loads batch configuration from an optional YAML file
// and RENTPULSE_-prefixed environment variables, with env taking
// precedence, and validates it before any region work begins.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config is the complete batch configuration.
type Config struct {
	Dataset DatasetConfig `yaml:"dataset" envconfig:"DATASET"`
	Batch   BatchConfig   `yaml:"batch" envconfig:"BATCH"`
	Output  OutputConfig  `yaml:"output" envconfig:"OUTPUT"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
}

// DatasetConfig locates the source table and names its columns.
type DatasetConfig struct {
	Path        string `yaml:"path" envconfig:"PATH" validate:"required"`
	GeoLevel    string `yaml:"geo_level" envconfig:"GEO_LEVEL" default:"state" validate:"required"`
	ValueColumn string `yaml:"value_column" envconfig:"VALUE_COLUMN" default:"zori_smoothed_seasonal" validate:"required"`
}

// BatchConfig controls region selection and the per-region computation.
type BatchConfig struct {
	// Regions to process; empty (or the single entry "ALL") discovers
	// every region present in the dataset.
	Regions []string `yaml:"regions" envconfig:"REGIONS"`
	Horizon int      `yaml:"horizon" envconfig:"HORIZON" default:"9" validate:"gte=1"`
	Mode    string   `yaml:"mode" envconfig:"MODE" default:"forecast" validate:"oneof=forecast residual"`
	Window  int      `yaml:"window" envconfig:"WINDOW" default:"12" validate:"gte=2"`
	Workers int      `yaml:"workers" envconfig:"WORKERS" default:"0" validate:"gte=0"`
}

// OutputConfig holds the artifact root directories.
type OutputConfig struct {
	ForecastsDir  string `yaml:"forecasts_dir" envconfig:"FORECASTS_DIR" default:"data/processed/forecasts" validate:"required"`
	VolatilityDir string `yaml:"volatility_dir" envconfig:"VOLATILITY_DIR" default:"data/processed/volatility" validate:"required"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json" validate:"oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/rentpulse.log"`
}

// Load reads and validates configuration. Callers that layer flag
// overrides on top use LoadUnvalidated and validate the merged result.
func Load(configFile string) (*Config, error) {
	cfg, err := LoadUnvalidated(configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// LoadUnvalidated reads configuration from the YAML file (if the path
// is non-empty and the file exists) and then from environment
// variables. envconfig fills defaults only for fields still at their
// zero value, so env overrides file overrides defaults.
func LoadUnvalidated(configFile string) (*Config, error) {
	var cfg Config

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envconfig.Process("RENTPULSE", &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration against its struct constraints.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// WorkerCount resolves the configured worker count, defaulting to the
// number of CPUs. Forecast fitting is CPU-bound, so the pool is capped
// at core count rather than oversubscribed.
func (c *Config) WorkerCount() int {
	if c.Batch.Workers > 0 {
		return c.Batch.Workers
	}
	return runtime.NumCPU()
}

// AllRegions reports whether region discovery should run instead of an
// explicit region list.
func (c *Config) AllRegions() bool {
	if len(c.Batch.Regions) == 0 {
		return true
	}
	return len(c.Batch.Regions) == 1 && strings.EqualFold(c.Batch.Regions[0], "all")
}
