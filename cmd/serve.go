package cmd

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"regbet/api"
	"regbet/runner"
)

// Serve starts the HTTP server with the batch history API, the SSE event
// stream and the study scheduler
func Serve() error {
	// Load .env file if it exists (ignore errors if it doesn't)
	_ = godotenv.Load()

	port := getEnv("PORT", "8080")

	store, err := openStorage()
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	cwd, err := os.Getwd()
	if err != nil {
		log.Fatalf("Failed to get current directory: %v", err)
	}

	// Load studies configuration
	studiesPath := filepath.Join(cwd, "studies.yml")
	studiesConfig, err := runner.LoadStudies(studiesPath)
	if err != nil {
		log.Printf("Warning: Failed to load studies config: %v", err)
		studiesConfig = &runner.StudiesConfig{Studies: []runner.Study{}}
	} else {
		log.Printf("📁 Loaded %d study(ies)", len(studiesConfig.Studies))
	}

	// Start the scheduler for studies with an interval or time configured
	scheduler := runner.NewScheduler(studiesConfig, store, cwd)
	go scheduler.Start()
	defer scheduler.Stop()

	mux := http.NewServeMux()

	// CORS middleware
	corsMiddleware := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	// API endpoints
	mux.HandleFunc("/api/batches", api.GetBatches(store))
	mux.HandleFunc("/api/batches/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/status") {
			api.GetBatchStatus(store)(w, r)
		} else {
			api.GetBatch(store)(w, r)
		}
	})

	mux.HandleFunc("/api/studies", api.GetStudies(studiesConfig))
	mux.HandleFunc("/api/studies/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/batches") {
			api.GetStudyBatches(store)(w, r)
		} else if strings.HasSuffix(r.URL.Path, "/stats") {
			api.GetStudyStats(store)(w, r)
		} else if strings.HasSuffix(r.URL.Path, "/run") {
			api.PostStudyRun(store, studiesConfig, cwd)(w, r)
		} else {
			http.NotFound(w, r)
		}
	})

	mux.HandleFunc("/api/events", api.SSEHandler())

	serverAddr := ":" + port
	log.Printf("🚀 Starting regbet server on port %s...", port)

	if err := http.ListenAndServe(serverAddr, corsMiddleware(mux)); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// getEnv gets environment variable or returns default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
