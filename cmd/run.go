package cmd

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"regbet/runner"
	"regbet/runner/storage"
)

// Run executes the 'run' command: one batch pass over an input directory
func Run(args []string) error {
	// Load .env file if it exists (SLICER_EXE lives there during development)
	_ = godotenv.Load()

	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Optional YAML config file; flags override it")
	inputDir := fs.String("in", "", "Input directory containing volumes")
	atlas := fs.String("atlas", "", "Fixed atlas volume path (e.g. an MNI template)")
	outputDir := fs.String("out", "", "Output directory")
	pattern := fs.String("pattern", "", "Glob pattern, e.g. '*T1*.nii.gz'")
	recursive := fs.Bool("recursive", false, "Search the input directory recursively")
	overwrite := fs.Bool("overwrite", false, "Overwrite existing outputs")
	iterations := fs.Int("iterations", 0, "BRAINSFit max iterations")
	sampling := fs.Float64("sampling", 0, "BRAINSFit sampling percentage")
	betTimeout := fs.Int("bet-timeout", 0, "Max seconds to wait for HD-BET per case")
	atlasTag := fs.String("atlas-tag", "", "Atlas tag used in transform filenames")
	quiet := fs.Bool("quiet", false, "Suppress per-case progress and host output")
	noDB := fs.Bool("no-db", false, "Skip recording the batch in the local database")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := runner.DefaultConfig()
	if *configPath != "" {
		loaded, err := runner.LoadConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	// Explicit flags win over config file values
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "in":
			cfg.InputDir = *inputDir
		case "atlas":
			cfg.Atlas = *atlas
		case "out":
			cfg.OutputDir = *outputDir
		case "pattern":
			cfg.Pattern = *pattern
		case "recursive":
			cfg.Recursive = *recursive
		case "overwrite":
			cfg.Overwrite = *overwrite
		case "iterations":
			cfg.Iterations = *iterations
		case "sampling":
			cfg.Sampling = *sampling
		case "bet-timeout":
			cfg.BETTimeout = *betTimeout
		case "atlas-tag":
			cfg.AtlasTag = *atlasTag
		}
	})

	opts := runner.RunBatchOptions{StreamToTerminal: !*quiet}

	if !*noDB {
		store, err := openStorage()
		if err != nil {
			return err
		}
		defer store.Close()
		opts.Storage = store
	}

	result, err := runner.RunBatchWithOptions(cfg, opts)
	if err != nil {
		return err
	}

	fmt.Printf("\n📊 Batch ID: %d | Status: %s | ✅ %d | ⏭️ %d | ❌ %d | Duration: %s\n",
		result.BatchID, result.Status, result.Succeeded, result.Skipped, result.Failed, result.Duration)

	if result.Failed > 0 {
		return fmt.Errorf("%d of %d cases failed", result.Failed, len(result.Cases))
	}
	return nil
}

// openStorage opens the batch history database under ./data
func openStorage() (*storage.Storage, error) {
	cwd, err := os.Getwd()
	if err != nil {
		log.Fatalf("Failed to get current directory: %v", err)
	}

	dataDir := filepath.Join(cwd, "data")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	return storage.NewStorage(filepath.Join(dataDir, "regbet.db"))
}
