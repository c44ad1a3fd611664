package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, AcceleratorNone, cfg.Accelerator)
	assert.True(t, cfg.ClipToROI)
	assert.Empty(t, cfg.Steps)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
workers: 4
steps:
  - algorithm: gauss5x5
  - algorithm: sobelx3x3
    params:
      depth: 16s
  - algorithm: custom
    enabled: false
    params:
      width: 3
      height: 1
      weights: [1, 2, 1]
      divisor: 4
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 4, cfg.Workers)
	assert.True(t, cfg.ClipToROI)
	require.Len(t, cfg.Steps, 3)
	assert.True(t, cfg.Steps[0].IsEnabled())
	assert.Equal(t, "16s", cfg.Steps[1].Params["depth"])
	assert.False(t, cfg.Steps[2].IsEnabled())
}

func TestInvalid(t *testing.T) {
	tests := map[string]string{
		"log level":     "log_level: loud",
		"accelerator":   "accelerator: cuda",
		"workers":       "workers: -2",
		"algorithm":     "steps: [{algorithm: median}]",
		"params":        "steps: [{algorithm: box, params: {size: 40}}]",
		"unknown param": "steps: [{algorithm: gauss3x3, params: {sigma: 2}}]",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := Parse([]byte("steps: {"))
	assert.Error(t, err)
	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
