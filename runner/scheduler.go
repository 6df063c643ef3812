package runner

import (
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"regbet/events"
	"regbet/runner/storage"
)

// Scheduler re-runs study batches on their configured intervals. Because
// complete cases are skipped idempotently, a scheduled pass over an unchanged
// study costs only a directory scan; only newly arrived volumes are processed.
type Scheduler struct {
	studiesConfig *StudiesConfig
	storage       *storage.Storage
	baseDir       string
	stopChan      chan struct{}
	lastRuns      map[string]time.Time // track last execution per study
	mu            sync.RWMutex         // protect lastRuns map
}

// NewScheduler creates a new scheduler instance
func NewScheduler(studiesConfig *StudiesConfig, storage *storage.Storage, baseDir string) *Scheduler {
	return &Scheduler{
		studiesConfig: studiesConfig,
		storage:       storage,
		baseDir:       baseDir,
		stopChan:      make(chan struct{}),
		lastRuns:      make(map[string]time.Time),
	}
}

// Start begins the scheduler loop
func (s *Scheduler) Start() {
	log.Println("📅 Scheduler started")
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	// Run tick immediately on start
	s.tick()

	for {
		select {
		case <-ticker.C:
			s.tick()
		case <-s.stopChan:
			log.Println("📅 Scheduler stopped")
			return
		}
	}
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	close(s.stopChan)
}

// tick checks every study and runs the due ones. Batches run back to back on
// this goroutine: the external host is a single heavyweight process, so two
// batches must never drive it at the same time.
func (s *Scheduler) tick() {
	for _, study := range s.studiesConfig.Studies {
		if study.Every == "" && study.At == "" {
			continue
		}

		s.mu.RLock()
		lastRun := s.lastRuns[study.Name]
		s.mu.RUnlock()

		if !s.shouldRun(study, lastRun) {
			continue
		}

		if err := study.Validate(s.baseDir); err != nil {
			log.Printf("⚠️  Schedule skipped for %s: %v", study.Name, err)
			continue
		}

		s.mu.Lock()
		s.lastRuns[study.Name] = time.Now()
		s.mu.Unlock()

		s.executeStudy(study)
	}
}

// shouldRun determines if a study's schedule is due now
func (s *Scheduler) shouldRun(study Study, lastRun time.Time) bool {
	now := time.Now()

	// Time-based schedule (at: "HH:MM")
	if study.At != "" {
		hour, minute, err := parseAtTime(study.At)
		if err != nil {
			log.Printf("⚠️  Invalid time format '%s': %v", study.At, err)
			return false
		}

		if now.Hour() == hour && now.Minute() == minute {
			// Only run once per day at this time
			if lastRun.IsZero() || now.Sub(lastRun) >= 23*time.Hour {
				return true
			}
		}
		return false
	}

	// Interval-based schedule (every: "1h", "30m", etc.)
	interval, err := parseInterval(study.Every)
	if err != nil {
		log.Printf("⚠️  Invalid interval format '%s': %v", study.Every, err)
		return false
	}

	return lastRun.IsZero() || now.Sub(lastRun) >= interval
}

// executeStudy runs one batch pass for the given study
func (s *Scheduler) executeStudy(study Study) {
	scheduleType := study.At
	if scheduleType == "" {
		scheduleType = study.Every
	}
	log.Printf("⏰ Schedule triggered: %s (%s)", study.Name, scheduleType)

	events.GetBroker().Broadcast("batch_started", map[string]interface{}{
		"study": study.Name,
		"type":  "scheduled",
	})

	result, err := RunBatchWithOptions(study.BatchConfig(s.baseDir), RunBatchOptions{
		Storage:          s.storage,
		StreamToTerminal: false,
		Broadcast:        true,
		Study:            study.Name,
	})
	if err != nil {
		log.Printf("❌ Scheduled batch failed for %s: %v", study.Name, err)
		return
	}
	log.Printf("✅ Scheduled batch completed: %s (✅ %d | ⏭️ %d | ❌ %d)",
		study.Name, result.Succeeded, result.Skipped, result.Failed)
}

// parseAtTime parses "HH:MM" format
func parseAtTime(at string) (hour, minute int, err error) {
	parts := strings.Split(at, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time format, expected HH:MM")
	}

	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour")
	}

	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute")
	}

	return hour, minute, nil
}

// parseInterval parses duration strings like "1h", "30m", "1h30m"
func parseInterval(every string) (time.Duration, error) {
	// Handle combined formats like "1h30m"
	if strings.Contains(every, "h") && strings.Contains(every, "m") {
		re := regexp.MustCompile(`(\d+)h(\d+)m`)
		matches := re.FindStringSubmatch(every)
		if len(matches) == 3 {
			hours, _ := strconv.Atoi(matches[1])
			minutes, _ := strconv.Atoi(matches[2])
			return time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute, nil
		}
	}

	duration, err := time.ParseDuration(every)
	if err != nil {
		return 0, fmt.Errorf("invalid duration format")
	}

	return duration, nil
}
