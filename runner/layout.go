package runner

import (
	"fmt"
	"os"
	"path/filepath"
)

// Layout is the categorized output directory tree for a batch
type Layout struct {
	RegisterDir  string
	TransformDir string
	BETDir       string
	SegmentDir   string
	LogDir       string
}

// NewLayout computes the five purpose-specific subdirectories under outDir
func NewLayout(outDir string) Layout {
	return Layout{
		RegisterDir:  filepath.Join(outDir, "register"),
		TransformDir: filepath.Join(outDir, "transform"),
		BETDir:       filepath.Join(outDir, "bet"),
		SegmentDir:   filepath.Join(outDir, "segment"),
		LogDir:       filepath.Join(outDir, "log"),
	}
}

// EnsureDirs creates the subdirectories if absent. Idempotent.
func (l Layout) EnsureDirs() error {
	for _, d := range []string{l.RegisterDir, l.TransformDir, l.BETDir, l.SegmentDir, l.LogDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", d, err)
		}
	}
	return nil
}

// ArtifactSet maps the logical outputs of one case to absolute paths.
// It is a pure function of case name and configuration; the paths are
// always the same whether or not the files exist.
type ArtifactSet struct {
	Registered   string `json:"registered"`
	Transform    string `json:"transform"`
	BET          string `json:"bet"`
	Segmentation string `json:"segmentation"`
	Log          string `json:"log"`
}

// Artifacts returns the expected artifact paths for a case. The naming
// matches the established layout and must not change: downstream tooling
// globs for these exact suffixes.
func (l Layout) Artifacts(caseName, atlasTag string) ArtifactSet {
	return ArtifactSet{
		Registered:   filepath.Join(l.RegisterDir, caseName+"_register.nii.gz"),
		Transform:    filepath.Join(l.TransformDir, fmt.Sprintf("%s_to_%s.h5", caseName, atlasTag)),
		BET:          filepath.Join(l.BETDir, caseName+"_register_BET.nii.gz"),
		Segmentation: filepath.Join(l.SegmentDir, caseName+"_register_SEG.seg.nrrd"),
		Log:          filepath.Join(l.LogDir, caseName+"_hdbet.log"),
	}
}

// RegistrationOutputs is the subset that decides whether registration can be skipped
func (a ArtifactSet) RegistrationOutputs() []string {
	return []string{a.Registered, a.Transform}
}

// ExtractionOutputs is the subset declared by the extraction stage
func (a ArtifactSet) ExtractionOutputs() []string {
	return []string{a.BET, a.Segmentation, a.Log}
}

// All returns every artifact path; the full set decides whole-case skips
func (a ArtifactSet) All() []string {
	return []string{a.Registered, a.Transform, a.BET, a.Segmentation, a.Log}
}

// Complete reports whether every path exists as a non-empty regular file.
// Presence plus size is the sole idempotence signal; no checksums.
func Complete(paths ...string) bool {
	return len(Missing(paths...)) == 0
}

// Missing returns the paths that are absent or empty
func Missing(paths ...string) []string {
	var missing []string
	for _, p := range paths {
		if !nonzeroFile(p) {
			missing = append(missing, p)
		}
	}
	return missing
}

func nonzeroFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}
