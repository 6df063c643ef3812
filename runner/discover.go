package runner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// validExts are the volume file extensions matched when no pattern is given.
var validExts = []string{".nii", ".nii.gz", ".nrrd", ".mha", ".mhd", ".nifti", ".hdr", ".img"}

// Case represents one input volume to be processed through both stages
type Case struct {
	Name string `json:"name"` // filename with the volume extension stripped
	Path string `json:"path"` // absolute input path
}

// CaseName derives the case name from a volume path. ".nii.gz" is stripped
// as a unit so "sub-01_T1.nii.gz" becomes "sub-01_T1".
func CaseName(path string) string {
	base := filepath.Base(path)
	if strings.HasSuffix(strings.ToLower(base), ".nii.gz") {
		return base[:len(base)-len(".nii.gz")]
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// DiscoverCases scans the input root for volume files and returns the work
// list in lexicographic path order. An empty directory yields an empty list;
// a missing or non-directory root is a DiscoveryError. Symlinks and other
// non-regular entries are excluded.
func DiscoverCases(inputDir, pattern string, recursive bool) ([]Case, error) {
	info, err := os.Stat(inputDir)
	if err != nil {
		return nil, &DiscoveryError{Dir: inputDir, Err: err}
	}
	if !info.IsDir() {
		return nil, &DiscoveryError{Dir: inputDir, Err: fmt.Errorf("not a directory")}
	}

	var paths []string
	if recursive {
		err = filepath.WalkDir(inputDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.Type().IsRegular() && matchVolume(d.Name(), pattern) {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, &DiscoveryError{Dir: inputDir, Err: err}
		}
	} else {
		entries, err := os.ReadDir(inputDir)
		if err != nil {
			return nil, &DiscoveryError{Dir: inputDir, Err: err}
		}
		for _, entry := range entries {
			if entry.Type().IsRegular() && matchVolume(entry.Name(), pattern) {
				paths = append(paths, filepath.Join(inputDir, entry.Name()))
			}
		}
	}

	sort.Strings(paths)

	cases := make([]Case, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		cases = append(cases, Case{Name: CaseName(p), Path: abs})
	}
	return cases, nil
}

// matchVolume checks a base filename against the pattern, or against the
// known volume extensions when no pattern is set.
func matchVolume(name, pattern string) bool {
	if pattern != "" {
		ok, err := filepath.Match(pattern, name)
		return err == nil && ok
	}
	lower := strings.ToLower(name)
	for _, ext := range validExts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
