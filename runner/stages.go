package runner

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// extractionGrace is added on top of the configured HD-BET wait budget when
// bounding the outer host process, so the script's own timeout fires first.
const extractionGrace = 2 * time.Minute

// runRegistration drives one BRAINSFit invocation: affine, 12 degrees of
// freedom, moments-based initialization. No timeout is applied; registration
// is bounded by the iteration cap.
func runRegistration(host Host, cfg *Config, c Case, art ArtifactSet) StageResult {
	args := []string{
		"--launch", "BRAINSFit",
		"--fixedVolume", cfg.Atlas,
		"--movingVolume", c.Path,
		"--outputVolume", art.Registered,
		"--outputTransform", art.Transform,
		"--useAffine",
		"--initializeTransformMode", "useMomentsAlign",
		"--numberOfIterations", strconv.Itoa(cfg.Iterations),
		"--samplingPercentage", strconv.FormatFloat(cfg.Sampling, 'g', -1, 64),
		"--debugLevel", "10",
		"--failureExitCode", "1",
	}

	result := host.Run(args, 0)
	return checkStageOutputs(result, StageRegistration, art.RegistrationOutputs(), 0)
}

// runExtraction drives one headless HD-BET invocation on the registered
// volume. The generated script is handed to the host and removed afterwards;
// the outer process gets the configured timeout plus a grace period.
func runExtraction(host Host, cfg *Config, art ArtifactSet) StageResult {
	script, err := writeHDBETScript(art.Registered, art.BET, art.Segmentation, art.Log, cfg.BETTimeout)
	if err != nil {
		return StageResult{
			Status: StageFailed,
			Err:    fmt.Errorf("%s: %w", StageExtraction, err),
		}
	}
	defer os.Remove(script)

	args := []string{"--no-main-window", "--no-splash", "--python-script", script}

	limit := cfg.BETTimeoutDuration() + extractionGrace
	result := host.Run(args, limit)
	return checkStageOutputs(result, StageExtraction, art.ExtractionOutputs(), limit)
}

// checkStageOutputs applies the post-condition shared by both stages: a host
// that reports success but leaves expected artifacts missing or empty is a
// failure, classified apart from process exits and timeouts.
func checkStageOutputs(result StageResult, stage string, expected []string, limit time.Duration) StageResult {
	switch result.Status {
	case StageSucceeded:
		if missing := Missing(expected...); len(missing) > 0 {
			result.Status = StageFailed
			result.Err = &IncompleteOutputError{Stage: stage, Missing: missing}
		}
	case StageFailed:
		if result.Err == nil {
			result.Err = &ProcessFailure{Stage: stage, ExitCode: result.ExitCode}
		}
	case StageTimeout:
		if result.Err == nil {
			result.Err = &TimeoutFailure{Stage: stage, Limit: limit}
		}
	}
	return result
}
