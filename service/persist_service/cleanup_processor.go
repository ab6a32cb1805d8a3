package persist_service

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"fashion-studio/common/logger"
)

// CleanupProcessor removes leftovers of interrupted dead-letter writes: temp
// files from a crash between write and rename, and payload files whose entry
// was never written.
type CleanupProcessor struct {
	dead       *DeadLetterLog
	log        *logger.Logger
	stopChan   chan struct{}
	stopOnce   sync.Once
	interval   time.Duration
	staleAfter time.Duration
}

func NewCleanupProcessor(dead *DeadLetterLog, log *logger.Logger) *CleanupProcessor {
	return &CleanupProcessor{
		dead:       dead,
		log:        log,
		stopChan:   make(chan struct{}),
		interval:   10 * time.Minute,
		staleAfter: time.Hour, // leave room for writes in flight
	}
}

func (cp *CleanupProcessor) Start() {
	cp.log.Info("Dead letter cleanup started", "interval", cp.interval)
	go cp.run()
}

func (cp *CleanupProcessor) Stop() {
	cp.stopOnce.Do(func() {
		close(cp.stopChan)
	})
}

func (cp *CleanupProcessor) run() {
	ticker := time.NewTicker(cp.interval)
	defer ticker.Stop()

	// Sweep once at startup
	cp.Sweep(time.Now())

	for {
		select {
		case <-cp.stopChan:
			cp.log.Info("Dead letter cleanup stopped")
			return
		case <-ticker.C:
			cp.Sweep(time.Now())
		}
	}
}

// Sweep deletes stale leftovers older than staleAfter relative to now and
// returns how many files it removed.
func (cp *CleanupProcessor) Sweep(now time.Time) int {
	cp.dead.mu.Lock()
	defer cp.dead.mu.Unlock()

	entries, err := os.ReadDir(cp.dead.dir)
	if err != nil {
		cp.log.Warn("Dead letter cleanup failed", "error", err)
		return 0
	}
	cutoff := now.Add(-cp.staleAfter)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		orphan := false
		switch {
		case strings.HasPrefix(name, ".tmp-"):
			orphan = true
		case strings.HasSuffix(name, ".bin"):
			_, err := os.Stat(filepath.Join(cp.dead.dir, strings.TrimSuffix(name, ".bin")+".json"))
			orphan = os.IsNotExist(err)
		}
		if !orphan {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(cp.dead.dir, name)); err != nil {
			cp.log.Warn("Failed to remove dead letter leftover", "file", name, "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		cp.log.Info("Removed dead letter leftovers", "count", removed)
	}
	return removed
}
