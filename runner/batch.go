package runner

import (
	"fmt"
	"time"

	"regbet/events"
	"regbet/runner/storage"
)

// outputTail caps the captured host output persisted with a case record
const outputTail = 8192

// RunBatch executes one batch pass with terminal output and no persistence
func RunBatch(cfg *Config) (*BatchResult, error) {
	return RunBatchWithOptions(cfg, RunBatchOptions{StreamToTerminal: true})
}

// RunBatchWithOptions executes one batch pass: discover cases, decide
// skip/run per case, sequence the two stages, and aggregate a summary.
// Discovery and executable resolution failures abort before any case runs;
// everything after that is caught at the case boundary and the loop always
// proceeds to the next case.
func RunBatchWithOptions(cfg *Config, opts RunBatchOptions) (*BatchResult, error) {
	startTime := time.Now()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !nonzeroFile(cfg.Atlas) {
		return nil, fmt.Errorf("atlas not found: %s", cfg.Atlas)
	}

	layout := NewLayout(cfg.OutputDir)
	if err := layout.EnsureDirs(); err != nil {
		return nil, err
	}

	host := opts.Host
	if host == nil {
		exe, err := ResolveSlicer()
		if err != nil {
			return nil, err
		}
		host = &SlicerHost{Exe: exe, StreamToTerminal: opts.StreamToTerminal}
		if opts.StreamToTerminal {
			fmt.Println("🧠 Host:", exe)
		}
	}

	cases, err := DiscoverCases(cfg.InputDir, cfg.Pattern, cfg.Recursive)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{
		Status: "running",
		Cases:  make([]CaseResult, 0, len(cases)),
	}

	// Create batch record in database if storage is provided
	var batch *storage.Batch
	if opts.Storage != nil {
		batch, err = opts.Storage.CreateBatch(cfg.InputDir, cfg.OutputDir, cfg.Atlas, opts.Study)
		if err != nil {
			return nil, fmt.Errorf("failed to create batch: %w", err)
		}
		result.BatchID = batch.ID
	}

	if opts.StreamToTerminal {
		fmt.Printf("📂 Inputs: %d | Atlas: %s | Out: %s\n", len(cases), cfg.Atlas, cfg.OutputDir)
	}

	for idx, c := range cases {
		if opts.Broadcast {
			events.GetBroker().Broadcast("case_started", map[string]interface{}{
				"batch_id": result.BatchID,
				"case":     c.Name,
			})
		}

		// Create case record if storage is provided
		var rec *storage.CaseExecution
		if opts.Storage != nil {
			rec, err = opts.Storage.CreateCaseExecution(result.BatchID, c.Name, c.Path)
			if err != nil {
				return nil, fmt.Errorf("failed to create case record: %w", err)
			}
		}

		caseResult := processCase(host, cfg, layout, c, idx+1, len(cases), opts.StreamToTerminal)
		result.Cases = append(result.Cases, caseResult)

		switch caseResult.Status {
		case CaseSkipped:
			result.Skipped++
		case CaseSucceeded:
			result.Succeeded++
		default:
			result.Failed++
		}

		if opts.Storage != nil && rec != nil {
			detail := caseResult.Output
			if len(detail) > outputTail {
				detail = detail[len(detail)-outputTail:]
			}
			if caseResult.Err != nil {
				detail = caseResult.Err.Error() + "\n" + detail
			}
			_ = opts.Storage.UpdateCaseExecution(rec.ID, caseResult.Status, caseResult.Stage, detail, caseResult.Duration)
		}

		if opts.Broadcast {
			events.GetBroker().Broadcast("case_finished", map[string]interface{}{
				"batch_id": result.BatchID,
				"case":     c.Name,
				"status":   caseResult.Status,
				"stage":    caseResult.Stage,
			})
		}
	}

	result.Duration = time.Since(startTime)
	result.Status = "success"
	if result.Failed > 0 {
		result.Status = "failed"
	}

	if opts.Storage != nil {
		err = opts.Storage.UpdateBatchStatus(result.BatchID, result.Status, result.Duration,
			result.Succeeded, result.Failed, result.Skipped)
		if err != nil {
			return nil, fmt.Errorf("failed to update batch status: %w", err)
		}
	}

	if opts.Broadcast {
		events.GetBroker().Broadcast("batch_finished", map[string]interface{}{
			"batch_id":  result.BatchID,
			"status":    result.Status,
			"succeeded": result.Succeeded,
			"failed":    result.Failed,
			"skipped":   result.Skipped,
		})
	}

	if opts.StreamToTerminal {
		fmt.Printf("\n🏁 Batch done: ✅ %d | ⏭️ %d | ❌ %d (%s)\n",
			result.Succeeded, result.Skipped, result.Failed, result.Duration.Round(time.Second))
	}

	return result, nil
}

// processCase runs the per-case state machine:
// Pending → (Skip | Registering → Extracting → Done) | Failed(stage).
// One case's failure never aborts the batch.
func processCase(host Host, cfg *Config, layout Layout, c Case, idx, total int, stream bool) CaseResult {
	caseStart := time.Now()
	art := layout.Artifacts(c.Name, cfg.AtlasTag)

	if !cfg.Overwrite && Complete(art.All()...) {
		if stream {
			fmt.Printf("⏭️  [%d/%d] %s (outputs complete)\n", idx, total, c.Name)
		}
		return CaseResult{Name: c.Name, Input: c.Path, Status: CaseSkipped, Duration: time.Since(caseStart)}
	}

	if stream {
		fmt.Printf("→ [%d/%d] %s\n", idx, total, c.Name)
	}

	var output string

	if cfg.Overwrite || !Complete(art.RegistrationOutputs()...) {
		regResult := runRegistration(host, cfg, c, art)
		output = regResult.Output
		if regResult.Status != StageSucceeded {
			if stream {
				fmt.Printf("❌ [%d/%d] %s registration failed: %v\n", idx, total, c.Name, regResult.Err)
			}
			return CaseResult{
				Name:     c.Name,
				Input:    c.Path,
				Status:   CaseFailed,
				Stage:    StageRegistration,
				Output:   output,
				Duration: time.Since(caseStart),
				Err:      regResult.Err,
			}
		}
	} else if stream {
		fmt.Printf("   registered volume exists, skipping registration\n")
	}

	if cfg.Overwrite || !Complete(art.ExtractionOutputs()...) {
		extResult := runExtraction(host, cfg, art)
		output += extResult.Output
		if extResult.Status != StageSucceeded {
			if stream {
				fmt.Printf("❌ [%d/%d] %s extraction failed: %v\n", idx, total, c.Name, extResult.Err)
			}
			return CaseResult{
				Name:     c.Name,
				Input:    c.Path,
				Status:   CaseFailed,
				Stage:    StageExtraction,
				Output:   output,
				Duration: time.Since(caseStart),
				Err:      extResult.Err,
			}
		}
	} else if stream {
		fmt.Printf("   BET outputs exist, skipping extraction\n")
	}

	if stream {
		fmt.Printf("✅ [%d/%d] %s\n", idx, total, c.Name)
	}
	return CaseResult{
		Name:     c.Name,
		Input:    c.Path,
		Status:   CaseSucceeded,
		Output:   output,
		Duration: time.Since(caseStart),
	}
}
