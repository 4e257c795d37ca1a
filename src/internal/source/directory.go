// FILE: logtrace/src/internal/source/directory.go
package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"logtrace/src/internal/core"

	"github.com/lixenwraith/log"
)

// DirectorySource tails every file in a directory matching a glob pattern.
type DirectorySource struct {
	directory       string
	pattern         string
	checkIntervalMS int
	bufferSize      int

	subscribers []chan core.LogEntry
	watchers    map[string]*fileWatcher
	logger      *log.Logger

	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	totalEntries   atomic.Uint64
	droppedEntries atomic.Uint64
	startTime      time.Time
	lastEntryTime  atomic.Value // time.Time
}

// NewDirectorySource creates a new directory monitoring source.
func NewDirectorySource(options map[string]any, logger *log.Logger) (*DirectorySource, error) {
	directory, ok := options["path"].(string)
	if !ok || directory == "" {
		return nil, fmt.Errorf("directory source requires 'path' option")
	}

	pattern := "*"
	if p, ok := options["pattern"].(string); ok && p != "" {
		pattern = p
	}

	checkIntervalMS := 100
	if interval, ok := toInt(options["check_interval_ms"]); ok && interval > 0 {
		checkIntervalMS = interval
	}

	bufferSize := 1000
	if bufSize, ok := toInt(options["buffer_size"]); ok && bufSize > 0 {
		bufferSize = bufSize
	}

	ds := &DirectorySource{
		directory:       directory,
		pattern:         pattern,
		checkIntervalMS: checkIntervalMS,
		bufferSize:      bufferSize,
		watchers:        make(map[string]*fileWatcher),
		startTime:       time.Now(),
		logger:          logger,
	}
	ds.lastEntryTime.Store(time.Time{})

	return ds, nil
}

// Subscribe returns a channel for receiving log entries.
func (ds *DirectorySource) Subscribe() <-chan core.LogEntry {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	ch := make(chan core.LogEntry, ds.bufferSize)
	ds.subscribers = append(ds.subscribers, ch)
	return ch
}

// Start begins the directory monitoring loop.
func (ds *DirectorySource) Start() error {
	ds.ctx, ds.cancel = context.WithCancel(context.Background())
	ds.wg.Add(1)
	go ds.monitorLoop()

	ds.logger.Info("msg", "Directory source started",
		"component", "directory_source",
		"path", ds.directory,
		"pattern", ds.pattern,
		"check_interval_ms", ds.checkIntervalMS)
	return nil
}

// Stop gracefully shuts down the source and all file watchers.
func (ds *DirectorySource) Stop() {
	if ds.cancel != nil {
		ds.cancel()
	}
	ds.wg.Wait()

	ds.mu.Lock()
	for _, w := range ds.watchers {
		w.stop()
	}
	for _, ch := range ds.subscribers {
		close(ch)
	}
	ds.mu.Unlock()

	ds.logger.Info("msg", "Directory source stopped",
		"component", "directory_source",
		"path", ds.directory)
}

// GetStats returns the source's statistics, including active watchers.
func (ds *DirectorySource) GetStats() SourceStats {
	lastEntry, _ := ds.lastEntryTime.Load().(time.Time)

	ds.mu.RLock()
	watcherCount := int64(len(ds.watchers))
	details := make(map[string]any)

	watchers := make([]map[string]any, 0, watcherCount)
	for _, w := range ds.watchers {
		info := w.getInfo()
		watchers = append(watchers, map[string]any{
			"path":         info.Path,
			"size":         info.Size,
			"position":     info.Position,
			"entries_read": info.EntriesRead,
			"rotations":    info.Rotations,
			"last_read":    info.LastReadTime,
		})
	}
	details["watchers"] = watchers
	details["active_watchers"] = watcherCount
	ds.mu.RUnlock()

	return SourceStats{
		Type:           "directory",
		TotalEntries:   ds.totalEntries.Load(),
		DroppedEntries: ds.droppedEntries.Load(),
		StartTime:      ds.startTime,
		LastEntryTime:  lastEntry,
		Details:        details,
	}
}

// monitorLoop periodically scans the directory for new or changed files.
func (ds *DirectorySource) monitorLoop() {
	defer ds.wg.Done()

	ds.checkTargets()

	ticker := time.NewTicker(time.Duration(ds.checkIntervalMS) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ds.ctx.Done():
			return
		case <-ticker.C:
			ds.checkTargets()
		}
	}
}

// checkTargets finds matching files and ensures watchers are running for them.
func (ds *DirectorySource) checkTargets() {
	files, err := ds.scanDirectory()
	if err != nil {
		ds.logger.Warn("msg", "Failed to scan directory",
			"component", "directory_source",
			"path", ds.directory,
			"pattern", ds.pattern,
			"error", err)
		return
	}

	for _, file := range files {
		ds.ensureWatcher(file)
	}

	ds.cleanupWatchers()
}

// ensureWatcher creates and starts a new file watcher if one doesn't exist for the given path.
func (ds *DirectorySource) ensureWatcher(path string) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if _, exists := ds.watchers[path]; exists {
		return
	}

	w := newFileWatcher(path, ds.publish, ds.logger)
	ds.watchers[path] = w

	ds.logger.Debug("msg", "Created file watcher",
		"component", "directory_source",
		"path", path)

	ds.wg.Add(1)
	go func() {
		defer ds.wg.Done()
		if err := w.watch(ds.ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				ds.logger.Debug("msg", "Watcher cancelled",
					"component", "directory_source",
					"path", path)
			} else {
				ds.logger.Error("msg", "Watcher failed",
					"component", "directory_source",
					"path", path,
					"error", err)
			}
		}

		ds.mu.Lock()
		delete(ds.watchers, path)
		ds.mu.Unlock()
	}()
}

// cleanupWatchers stops and removes watchers for files that no longer exist.
func (ds *DirectorySource) cleanupWatchers() {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	for path, w := range ds.watchers {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			w.stop()
			delete(ds.watchers, path)
			ds.logger.Debug("msg", "Cleaned up watcher for non-existent file",
				"component", "directory_source",
				"path", path)
		}
	}
}

// publish sends a log entry to all subscribers.
func (ds *DirectorySource) publish(entry core.LogEntry) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	ds.totalEntries.Add(1)
	ds.lastEntryTime.Store(entry.Time)

	for _, ch := range ds.subscribers {
		select {
		case ch <- entry:
		default:
			ds.droppedEntries.Add(1)
			ds.logger.Debug("msg", "Dropped log entry - subscriber buffer full",
				"component", "directory_source")
		}
	}
}

// scanDirectory finds all files in the configured directory that match the pattern.
func (ds *DirectorySource) scanDirectory() ([]string, error) {
	entries, err := os.ReadDir(ds.directory)
	if err != nil {
		return nil, err
	}

	// Convert glob pattern to regex
	re, err := regexp.Compile(globToRegex(ds.pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid pattern regex: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if re.MatchString(name) {
			files = append(files, filepath.Join(ds.directory, name))
		}
	}

	return files, nil
}

// globToRegex converts a simple glob pattern to a regular expression.
func globToRegex(glob string) string {
	regex := regexp.QuoteMeta(glob)
	regex = strings.ReplaceAll(regex, `\*`, `.*`)
	regex = strings.ReplaceAll(regex, `\?`, `.`)
	return "^" + regex + "$"
}
