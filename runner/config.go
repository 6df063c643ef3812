package runner

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the parameters for one batch run. It is set up once per
// invocation and shared read-only by all stages.
type Config struct {
	// InputDir is the directory scanned for input volumes
	InputDir string `yaml:"inputDir"`

	// Atlas is the fixed atlas volume the cases are registered to
	Atlas string `yaml:"atlas"`

	// OutputDir is the root of the categorized output tree
	OutputDir string `yaml:"outputDir"`

	// Pattern is an optional glob matched against file names, e.g. "*T1*.nii.gz".
	// When empty, the common volume extensions are matched instead.
	Pattern string `yaml:"pattern,omitempty"`

	// Recursive searches the input directory tree instead of one level
	Recursive bool `yaml:"recursive"`

	// Overwrite recomputes cases even when their outputs are complete
	Overwrite bool `yaml:"overwrite"`

	// Iterations is the BRAINSFit iteration cap
	Iterations int `yaml:"iterations"`

	// Sampling is the BRAINSFit sampling percentage (0..1)
	Sampling float64 `yaml:"sampling"`

	// BETTimeout is the maximum seconds to wait for HD-BET per case
	BETTimeout int `yaml:"betTimeout"`

	// AtlasTag names the atlas space in the transform filename
	AtlasTag string `yaml:"atlasTag"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Iterations: 1500,
		Sampling:   0.05,
		BETTimeout: 1800,
		AtlasTag:   "MNI",
	}
}

// LoadConfig reads a YAML config file on top of the defaults
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration can drive a batch
func (c *Config) Validate() error {
	if c.InputDir == "" {
		return fmt.Errorf("input directory is required")
	}
	if c.Atlas == "" {
		return fmt.Errorf("atlas path is required")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output directory is required")
	}
	if c.Iterations <= 0 {
		return fmt.Errorf("iterations must be positive")
	}
	if c.Sampling <= 0 || c.Sampling > 1 {
		return fmt.Errorf("sampling must be in (0, 1]")
	}
	if c.BETTimeout <= 0 {
		return fmt.Errorf("bet timeout must be positive")
	}
	return nil
}

// BETTimeoutDuration returns the HD-BET wait budget as a duration
func (c *Config) BETTimeoutDuration() time.Duration {
	return time.Duration(c.BETTimeout) * time.Second
}
