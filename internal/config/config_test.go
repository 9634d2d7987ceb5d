package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/stemvolume/internal/engine"
	"github.com/banshee-data/stemvolume/internal/records"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaultConfigFile(t *testing.T) {
	cfg := MustLoadDefaultConfig()

	assert.Equal(t, 0, cfg.GetWorkers())
	assert.Equal(t, 1000, cfg.GetBatchThreshold())
	assert.Equal(t, 4096, cfg.GetChunkSize())
	assert.Equal(t, records.DefaultColumns(), cfg.GetColumns())
	assert.True(t, cfg.GetDropDuplicates())
	assert.True(t, cfg.GetFillForward())
	assert.False(t, cfg.GetKeepTaxonomyColumns())
	assert.Zero(t, cfg.GetRunTimeout())
}

func TestGetterDefaults(t *testing.T) {
	cfg := EmptyConfig()

	assert.Equal(t, 0, cfg.GetWorkers())
	assert.Equal(t, engine.DefaultBatchThreshold, cfg.GetBatchThreshold())
	assert.Equal(t, engine.DefaultChunkSize, cfg.GetChunkSize())
	assert.Equal(t, records.DefaultColumns(), cfg.GetColumns())
	assert.True(t, cfg.GetDropDuplicates())
	assert.True(t, cfg.GetFillForward())
	assert.False(t, cfg.GetKeepTaxonomyColumns())
	assert.Zero(t, cfg.GetRunTimeout())
	assert.Equal(t, engine.Options{BatchThreshold: 1000, ChunkSize: 4096}, cfg.EngineOptions())
	assert.Equal(t, records.CleanOptions{DropDuplicates: true, FillForward: true}, cfg.CleanOptions())
}

func TestLoadConfigPartial(t *testing.T) {
	path := writeConfig(t, "partial.json", `{
  "workers": 4,
  "species_column": " Art ",
  "fill_forward": false,
  "run_timeout": "90s"
}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.GetWorkers())
	assert.Equal(t, engine.DefaultBatchThreshold, cfg.GetBatchThreshold())
	assert.Equal(t, "Art", cfg.GetColumns().Species)
	assert.Equal(t, records.DefaultDiameterColumn, cfg.GetColumns().Diameter)
	assert.False(t, cfg.GetFillForward())
	assert.True(t, cfg.GetDropDuplicates())
	assert.Equal(t, 90*time.Second, cfg.GetRunTimeout())
	assert.Equal(t, 4, cfg.EngineOptions().Workers)
}

func TestLoadConfigMissing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestLoadConfigRejectsNonJSON(t *testing.T) {
	path := writeConfig(t, "config.yaml", "workers: 2\n")
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".json extension")
}

func TestLoadConfigRejectsLargeFile(t *testing.T) {
	path := writeConfig(t, "large.json", `{"species_column": "`+strings.Repeat("x", 1024*1024)+`"}`)
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed", `{"workers": `, "failed to parse"},
		{"unknown key", `{"worker": 2}`, "failed to parse"},
		{"wrong type", `{"workers": "two"}`, "failed to parse"},
		{"negative workers", `{"workers": -1}`, "workers must be non-negative"},
		{"negative chunk", `{"chunk_size": -5}`, "chunk_size must be non-negative"},
		{"negative threshold", `{"batch_threshold": -5}`, "batch_threshold must be non-negative"},
		{"empty column", `{"height_column": "  "}`, "height_column must not be empty"},
		{"shared column", `{"species_column": "x", "height_column": "x"}`, `both name column "x"`},
		{"bad timeout", `{"run_timeout": "soon"}`, "invalid run_timeout"},
		{"negative timeout", `{"run_timeout": "-1s"}`, "run_timeout must be non-negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, "c.json", tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
