package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"regbet/events"
	"regbet/runner"
	"regbet/runner/storage"
)

// GetBatches returns the most recent batches
func GetBatches(store *storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		batches, err := store.GetBatches(100)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to get batches: %v", err), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(batches)
	}
}

// GetBatch returns a single batch with its case executions
func GetBatch(store *storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		// Parse batch ID from URL: /api/batches/:id
		batchID, err := pathID(r.URL.Path)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		batch, err := store.GetBatch(batchID)
		if err != nil {
			http.Error(w, fmt.Sprintf("Batch not found: %v", err), http.StatusNotFound)
			return
		}

		cases, err := store.GetCaseExecutions(batchID)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to get cases: %v", err), http.StatusInternalServerError)
			return
		}

		type BatchResponse struct {
			Batch *storage.Batch           `json:"batch"`
			Cases []*storage.CaseExecution `json:"cases"`
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(BatchResponse{Batch: batch, Cases: cases})
	}
}

// GetBatchStatus returns just the status of a batch (lightweight for polling)
func GetBatchStatus(store *storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		// Parse batch ID from URL: /api/batches/:id/status
		batchID, err := pathID(r.URL.Path)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		batch, err := store.GetBatch(batchID)
		if err != nil {
			http.Error(w, fmt.Sprintf("Batch not found: %v", err), http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     batch.ID,
			"status": batch.Status,
		})
	}
}

// GetStudies returns the configured studies
func GetStudies(studiesConfig *runner.StudiesConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(studiesConfig.Studies)
	}
}

// GetStudyBatches returns the batch history of one study
// URL: /api/studies/:name/batches
func GetStudyBatches(store *storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		name, err := pathStudy(r.URL.Path)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		batches, err := store.GetStudyBatches(name, 50)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to get batches: %v", err), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(batches)
	}
}

// GetStudyStats returns aggregate batch counts for one study
// URL: /api/studies/:name/stats
func GetStudyStats(store *storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		name, err := pathStudy(r.URL.Path)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		stats, err := store.GetStudyStats(name)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to get stats: %v", err), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(stats)
	}
}

// PostStudyRun triggers a batch pass for a study
// URL: /api/studies/:name/run
func PostStudyRun(store *storage.Storage, studiesConfig *runner.StudiesConfig, baseDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			json.NewEncoder(w).Encode(map[string]interface{}{"error": "Method not allowed"})
			return
		}

		name, err := pathStudy(r.URL.Path)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]interface{}{"error": err.Error()})
			return
		}

		study, err := studiesConfig.GetStudy(name)
		if err != nil {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]interface{}{"error": err.Error()})
			return
		}

		if err := study.Validate(baseDir); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]interface{}{"error": err.Error()})
			return
		}

		// Run in background; progress arrives on the SSE stream. The batch
		// writes only to this study's output tree, and repeated triggers are
		// cheap because complete cases are skipped.
		go func() {
			events.GetBroker().Broadcast("batch_started", map[string]interface{}{
				"study": name,
				"type":  "manual",
			})
			result, err := runner.RunBatchWithOptions(study.BatchConfig(baseDir), runner.RunBatchOptions{
				Storage:          store,
				StreamToTerminal: false,
				Broadcast:        true,
				Study:            name,
			})
			if err != nil {
				log.Printf("❌ Triggered batch failed for %s: %v", name, err)
				return
			}
			log.Printf("✅ Triggered batch completed: %s (✅ %d | ⏭️ %d | ❌ %d)",
				name, result.Succeeded, result.Skipped, result.Failed)
		}()

		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "started",
			"study":  name,
		})
	}
}

// pathID extracts the numeric ID from paths like /api/batches/:id[/...]
func pathID(path string) (int, error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 3 {
		return 0, fmt.Errorf("invalid path")
	}
	id, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, fmt.Errorf("invalid batch ID")
	}
	return id, nil
}

// pathStudy extracts the study name from paths like /api/studies/:name/...
func pathStudy(path string) (string, error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 3 || parts[2] == "" {
		return "", fmt.Errorf("invalid path")
	}
	return parts[2], nil
}
