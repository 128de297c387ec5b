package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration for jsontab
type Config struct {
	Separator        string       `yaml:"separator"`
	MaxDepth         *int         `yaml:"max_depth"`
	DropEmptyColumns bool         `yaml:"drop_empty_columns"`
	Arrays           ArraysConfig `yaml:"arrays"`
	Naming           NamingConfig `yaml:"naming"`
	Output           OutputConfig `yaml:"output"`
	CSV              CSVConfig    `yaml:"csv"`
	Batch            BatchConfig  `yaml:"batch"`
	Dev              DevConfig    `yaml:"dev"`
}

// ArraysConfig controls array handling
type ArraysConfig struct {
	// Mode is "string" (default) or "rows".
	Mode string `yaml:"mode"`
}

// NamingConfig controls column naming
type NamingConfig struct {
	// KeyCase is applied to every key segment: none, snake, camel, lower-camel or kebab.
	KeyCase string `yaml:"key_case"`
	// ColumnMappings renames flattened columns by exact name.
	ColumnMappings map[string]string `yaml:"column_mappings"`
}

// OutputConfig controls the exported file
type OutputConfig struct {
	Format             string `yaml:"format"`
	SummarySheet       bool   `yaml:"summary_sheet"`
	ColumnDetailsSheet bool   `yaml:"column_details_sheet"`
}

// CSVConfig controls delimited output
type CSVConfig struct {
	Delimiter string `yaml:"delimiter"`
	BOM       bool   `yaml:"bom"`
}

// BatchConfig controls multi-file conversion
type BatchConfig struct {
	Workers   int    `yaml:"workers"`
	OutputDir string `yaml:"output_dir"`
}

// DevConfig contains development/debug options
type DevConfig struct {
	Debug bool `yaml:"debug"`
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		Separator: "_",
		Arrays: ArraysConfig{
			Mode: "string",
		},
		Naming: NamingConfig{
			KeyCase:        "none",
			ColumnMappings: make(map[string]string),
		},
		Output: OutputConfig{
			Format:             "",
			SummarySheet:       true,
			ColumnDetailsSheet: true,
		},
		CSV: CSVConfig{
			Delimiter: ",",
		},
		Batch: BatchConfig{
			Workers: 4,
		},
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults
	cfg := NewConfig()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}

	return cfg, nil
}

// FindConfigFile searches for a config file in current directory and parents
func FindConfigFile() string {
	configNames := []string{".jsontab.yml", ".jsontab.yaml", "jsontab.yml", "jsontab.yaml"}

	currentDir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		for _, name := range configNames {
			configPath := filepath.Join(currentDir, name)
			if _, err := os.Stat(configPath); err == nil {
				return configPath
			}
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	return ""
}

// Validate checks values that YAML decoding cannot.
func (c *Config) Validate() error {
	if c.MaxDepth != nil && *c.MaxDepth < 0 {
		return fmt.Errorf("max_depth must not be negative, got %d", *c.MaxDepth)
	}

	switch strings.ToLower(c.Arrays.Mode) {
	case "", "string", "rows":
	default:
		return fmt.Errorf("arrays.mode must be string or rows, got %q", c.Arrays.Mode)
	}

	switch strings.ToLower(c.Naming.KeyCase) {
	case "", "none", "snake", "camel", "lower-camel", "kebab":
	default:
		return fmt.Errorf("naming.key_case %q is not supported", c.Naming.KeyCase)
	}

	switch strings.ToLower(c.Output.Format) {
	case "", "csv", "xlsx":
	default:
		return fmt.Errorf("output.format must be csv or xlsx, got %q", c.Output.Format)
	}

	if c.CSV.Delimiter != "" {
		if r := []rune(c.CSV.Delimiter); len(r) != 1 || r[0] == '"' || r[0] == '\r' || r[0] == '\n' {
			return fmt.Errorf("csv.delimiter must be a single character other than a quote or newline, got %q", c.CSV.Delimiter)
		}
	}

	if c.Batch.Workers < 0 {
		return fmt.Errorf("batch.workers must not be negative, got %d", c.Batch.Workers)
	}

	return nil
}

// DelimiterRune returns the CSV delimiter, ',' when unset.
func (c *Config) DelimiterRune() rune {
	if c.CSV.Delimiter == "" {
		return ','
	}
	return []rune(c.CSV.Delimiter)[0]
}

// Overrides carries command-line values. Only fields whose name appears
// in Set are applied, so flags left at their defaults never mask values
// from the config file.
type Overrides struct {
	Separator        string
	MaxDepth         int
	DropEmptyColumns bool
	ArrayMode        string
	KeyCase          string
	Format           string
	Delimiter        string
	BOM              bool
	NoSummary        bool
	NoColumnDetails  bool
	Workers          int
	OutputDir        string
	Debug            bool

	// Set holds the flag names given explicitly on the command line.
	Set map[string]bool
}

// ApplyOverrides merges explicitly set command-line values into a copy of base.
func ApplyOverrides(base *Config, o Overrides) *Config {
	merged := *base
	merged.Naming.ColumnMappings = base.Naming.ColumnMappings

	if o.Set["separator"] {
		merged.Separator = o.Separator
	}
	if o.Set["max-depth"] {
		if o.MaxDepth < 0 {
			merged.MaxDepth = nil
		} else {
			depth := o.MaxDepth
			merged.MaxDepth = &depth
		}
	}
	if o.Set["drop-empty"] {
		merged.DropEmptyColumns = o.DropEmptyColumns
	}
	if o.Set["array-mode"] {
		merged.Arrays.Mode = o.ArrayMode
	}
	if o.Set["key-case"] {
		merged.Naming.KeyCase = o.KeyCase
	}
	if o.Set["format"] {
		merged.Output.Format = o.Format
	}
	if o.Set["delimiter"] {
		merged.CSV.Delimiter = o.Delimiter
	}
	if o.Set["bom"] {
		merged.CSV.BOM = o.BOM
	}
	if o.Set["no-summary"] {
		merged.Output.SummarySheet = !o.NoSummary
	}
	if o.Set["no-column-details"] {
		merged.Output.ColumnDetailsSheet = !o.NoColumnDetails
	}
	if o.Set["workers"] {
		merged.Batch.Workers = o.Workers
	}
	if o.Set["output-dir"] {
		merged.Batch.OutputDir = o.OutputDir
	}
	if o.Set["debug"] {
		merged.Dev.Debug = o.Debug
	}

	return &merged
}

// LoadConfigWithCLI loads the config file, if any, and applies CLI overrides.
func LoadConfigWithCLI(configPath string, o Overrides) (*Config, error) {
	cfg := NewConfig()

	if configPath != "" {
		fileConfig, err := LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = fileConfig
	}

	merged := ApplyOverrides(cfg, o)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}
