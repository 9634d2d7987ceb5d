// Package config loads the stem volume run configuration.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/banshee-data/stemvolume/internal/engine"
	"github.com/banshee-data/stemvolume/internal/records"
)

// DefaultConfigPath is the path to the canonical defaults file.
const DefaultConfigPath = "config/stemvolume.defaults.json"

// Config is the run configuration. Every field is optional; the Get*
// methods supply the default for fields left out of the file.
type Config struct {
	// Evaluation strategy
	Workers        *int `json:"workers,omitempty"`
	BatchThreshold *int `json:"batch_threshold,omitempty"`
	ChunkSize      *int `json:"chunk_size,omitempty"`

	// Input columns
	SpeciesColumn  *string `json:"species_column,omitempty"`
	DiameterColumn *string `json:"diameter_column,omitempty"`
	HeightColumn   *string `json:"height_column,omitempty"`

	// Cleaning
	DropDuplicates *bool `json:"drop_duplicates,omitempty"`
	FillForward    *bool `json:"fill_forward,omitempty"`

	// Output
	KeepTaxonomyColumns *bool `json:"keep_taxonomy_columns,omitempty"`

	RunTimeout *string `json:"run_timeout,omitempty"` // duration string like "10m"; empty means no limit
}

// EmptyConfig returns a Config with all fields unset.
func EmptyConfig() *Config {
	return &Config{}
}

// LoadConfig loads a Config from a JSON file.
// The file must have a .json extension and be under 1MB. Fields omitted from
// the file keep their defaults, so partial configs are safe.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyConfig()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents up to the repository root.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *Config {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if c.BatchThreshold != nil && *c.BatchThreshold < 0 {
		return fmt.Errorf("batch_threshold must be non-negative, got %d", *c.BatchThreshold)
	}
	if c.ChunkSize != nil && *c.ChunkSize < 0 {
		return fmt.Errorf("chunk_size must be non-negative, got %d", *c.ChunkSize)
	}

	cols := map[string]*string{
		"species_column":  c.SpeciesColumn,
		"diameter_column": c.DiameterColumn,
		"height_column":   c.HeightColumn,
	}
	seen := make(map[string]string)
	for _, key := range []string{"species_column", "diameter_column", "height_column"} {
		v := cols[key]
		if v == nil {
			continue
		}
		name := strings.TrimSpace(*v)
		if name == "" {
			return fmt.Errorf("%s must not be empty", key)
		}
		if other, dup := seen[name]; dup {
			return fmt.Errorf("%s and %s both name column %q", other, key, name)
		}
		seen[name] = key
	}

	if c.RunTimeout != nil && *c.RunTimeout != "" {
		d, err := time.ParseDuration(*c.RunTimeout)
		if err != nil {
			return fmt.Errorf("invalid run_timeout '%s': %w", *c.RunTimeout, err)
		}
		if d < 0 {
			return fmt.Errorf("run_timeout must be non-negative, got %s", d)
		}
	}
	return nil
}

// GetWorkers returns the workers value or the default. Zero lets the engine
// use GOMAXPROCS.
func (c *Config) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// GetBatchThreshold returns the batch_threshold value or the default.
func (c *Config) GetBatchThreshold() int {
	if c.BatchThreshold == nil || *c.BatchThreshold == 0 {
		return engine.DefaultBatchThreshold
	}
	return *c.BatchThreshold
}

// GetChunkSize returns the chunk_size value or the default.
func (c *Config) GetChunkSize() int {
	if c.ChunkSize == nil || *c.ChunkSize == 0 {
		return engine.DefaultChunkSize
	}
	return *c.ChunkSize
}

// GetColumns returns the input column names, falling back to the standard
// inventory names.
func (c *Config) GetColumns() records.Columns {
	cols := records.DefaultColumns()
	if c.SpeciesColumn != nil {
		cols.Species = strings.TrimSpace(*c.SpeciesColumn)
	}
	if c.DiameterColumn != nil {
		cols.Diameter = strings.TrimSpace(*c.DiameterColumn)
	}
	if c.HeightColumn != nil {
		cols.Height = strings.TrimSpace(*c.HeightColumn)
	}
	return cols
}

// GetDropDuplicates returns the drop_duplicates value or the default.
func (c *Config) GetDropDuplicates() bool {
	if c.DropDuplicates == nil {
		return true
	}
	return *c.DropDuplicates
}

// GetFillForward returns the fill_forward value or the default.
func (c *Config) GetFillForward() bool {
	if c.FillForward == nil {
		return true
	}
	return *c.FillForward
}

// GetKeepTaxonomyColumns returns the keep_taxonomy_columns value or the default.
func (c *Config) GetKeepTaxonomyColumns() bool {
	if c.KeepTaxonomyColumns == nil {
		return false // default: output mirrors the input columns
	}
	return *c.KeepTaxonomyColumns
}

// GetRunTimeout returns the run_timeout as a time.Duration; zero means no limit.
func (c *Config) GetRunTimeout() time.Duration {
	if c.RunTimeout == nil || *c.RunTimeout == "" {
		return 0
	}
	d, err := time.ParseDuration(*c.RunTimeout)
	if err != nil {
		return 0
	}
	return d
}

// EngineOptions returns the evaluation options the configuration selects.
func (c *Config) EngineOptions() engine.Options {
	return engine.Options{
		Workers:        c.GetWorkers(),
		BatchThreshold: c.GetBatchThreshold(),
		ChunkSize:      c.GetChunkSize(),
	}
}

// CleanOptions returns the cleaning steps the configuration selects.
func (c *Config) CleanOptions() records.CleanOptions {
	return records.CleanOptions{
		DropDuplicates: c.GetDropDuplicates(),
		FillForward:    c.GetFillForward(),
	}
}
