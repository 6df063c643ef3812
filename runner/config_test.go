package runner

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 1500, cfg.Iterations)
	assert.Equal(t, 0.05, cfg.Sampling)
	assert.Equal(t, 1800, cfg.BETTimeout)
	assert.Equal(t, "MNI", cfg.AtlasTag)
	assert.Equal(t, 1800*time.Second, cfg.BETTimeoutDuration())
}

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regbet.yml")
	content := `
inputDir: /data/in
atlas: /data/atlas.nii.gz
outputDir: /data/out
iterations: 500
recursive: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/in", cfg.InputDir)
	assert.Equal(t, 500, cfg.Iterations)
	assert.True(t, cfg.Recursive)
	// Untouched fields keep their defaults
	assert.Equal(t, 0.05, cfg.Sampling)
	assert.Equal(t, "MNI", cfg.AtlasTag)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.InputDir = "/in"
		cfg.Atlas = "/atlas.nii.gz"
		cfg.OutputDir = "/out"
		return cfg
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing input", func(c *Config) { c.InputDir = "" }},
		{"missing atlas", func(c *Config) { c.Atlas = "" }},
		{"missing output", func(c *Config) { c.OutputDir = "" }},
		{"zero iterations", func(c *Config) { c.Iterations = 0 }},
		{"sampling too high", func(c *Config) { c.Sampling = 1.5 }},
		{"zero sampling", func(c *Config) { c.Sampling = 0 }},
		{"zero timeout", func(c *Config) { c.BETTimeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
