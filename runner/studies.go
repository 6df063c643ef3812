package runner

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Study represents a named input/atlas/output triple that is batched
// repeatedly, e.g. a cohort that keeps receiving new scans
type Study struct {
	Name      string `yaml:"name" json:"name"`
	InputDir  string `yaml:"inputDir" json:"input_dir"`
	Atlas     string `yaml:"atlas" json:"atlas"`
	OutputDir string `yaml:"outputDir" json:"output_dir"`
	Pattern   string `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Recursive bool   `yaml:"recursive,omitempty" json:"recursive,omitempty"`
	AtlasTag  string `yaml:"atlasTag,omitempty" json:"atlas_tag,omitempty"`
	Every     string `yaml:"every,omitempty" json:"every,omitempty"` // e.g. "12h", "1h30m"
	At        string `yaml:"at,omitempty" json:"at,omitempty"`       // e.g. "02:30"
}

// StudiesConfig holds the list of all studies
type StudiesConfig struct {
	Studies []Study `yaml:"studies" json:"studies"`
}

// LoadStudies loads the studies configuration from a YAML file
func LoadStudies(configPath string) (*StudiesConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read studies config: %w", err)
	}

	var config StudiesConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse studies config: %w", err)
	}

	return &config, nil
}

// GetStudy returns a study by name
func (sc *StudiesConfig) GetStudy(name string) (*Study, error) {
	for _, study := range sc.Studies {
		if study.Name == name {
			return &study, nil
		}
	}
	return nil, fmt.Errorf("study '%s' not found", name)
}

// Validate checks that a study's input directory and atlas exist
func (s *Study) Validate(baseDir string) error {
	inputDir := resolvePath(s.InputDir, baseDir)
	info, err := os.Stat(inputDir)
	if err != nil {
		return fmt.Errorf("study input directory does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("study input path is not a directory")
	}

	if !nonzeroFile(resolvePath(s.Atlas, baseDir)) {
		return fmt.Errorf("study atlas not found: %s", s.Atlas)
	}
	return nil
}

// BatchConfig builds the run configuration for one pass over the study.
// Relative study paths are resolved against baseDir.
func (s *Study) BatchConfig(baseDir string) *Config {
	cfg := DefaultConfig()
	cfg.InputDir = resolvePath(s.InputDir, baseDir)
	cfg.Atlas = resolvePath(s.Atlas, baseDir)
	cfg.OutputDir = resolvePath(s.OutputDir, baseDir)
	cfg.Pattern = s.Pattern
	cfg.Recursive = s.Recursive
	if s.AtlasTag != "" {
		cfg.AtlasTag = s.AtlasTag
	}
	return cfg
}

func resolvePath(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
