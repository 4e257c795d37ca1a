// FILE: logtrace/src/internal/source/file.go
package source

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"logtrace/src/internal/core"

	"github.com/lixenwraith/log"
)

// FileSource tails a single log file.
type FileSource struct {
	path       string
	bufferSize int

	subscribers []chan core.LogEntry
	watcher     *fileWatcher
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

// NewFileSource creates a source tailing one file.
func NewFileSource(options map[string]any, logger *log.Logger) (*FileSource, error) {
	path, ok := options["path"].(string)
	if !ok || path == "" {
		return nil, fmt.Errorf("file source requires 'path' option")
	}

	bufferSize := 1000
	if bufSize, ok := toInt(options["buffer_size"]); ok && bufSize > 0 {
		bufferSize = bufSize
	}

	fs := &FileSource{
		path:       path,
		bufferSize: bufferSize,
		startTime:  time.Now(),
		logger:     logger,
	}
	fs.lastEntryTime.Store(time.Time{})

	return fs, nil
}

func (fs *FileSource) Subscribe() <-chan core.LogEntry {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	ch := make(chan core.LogEntry, fs.bufferSize)
	fs.subscribers = append(fs.subscribers, ch)
	return ch
}

func (fs *FileSource) Start() error {
	fs.ctx, fs.cancel = context.WithCancel(context.Background())
	fs.watcher = newFileWatcher(fs.path, fs.publish, fs.logger)

	fs.wg.Add(1)
	go func() {
		defer fs.wg.Done()
		if err := fs.watcher.watch(fs.ctx); err != nil && !errors.Is(err, context.Canceled) {
			fs.logger.Error("msg", "Watcher failed",
				"component", "file_source",
				"path", fs.path,
				"error", err)
		}
	}()

	fs.logger.Info("msg", "File source started",
		"component", "file_source",
		"path", fs.path)
	return nil
}

func (fs *FileSource) Stop() {
	if fs.cancel != nil {
		fs.cancel()
	}
	if fs.watcher != nil {
		fs.watcher.stop()
	}
	fs.wg.Wait()

	fs.mu.Lock()
	for _, ch := range fs.subscribers {
		close(ch)
	}
	fs.mu.Unlock()

	fs.logger.Info("msg", "File source stopped",
		"component", "file_source",
		"path", fs.path)
}

func (fs *FileSource) GetStats() SourceStats {
	lastEntry, _ := fs.lastEntryTime.Load().(time.Time)

	details := map[string]any{"path": fs.path}
	if fs.watcher != nil {
		info := fs.watcher.getInfo()
		details["size"] = info.Size
		details["position"] = info.Position
		details["entries_read"] = info.EntriesRead
		details["rotations"] = info.Rotations
		details["last_read"] = info.LastReadTime
	}

	return SourceStats{
		Type:           "file",
		TotalEntries:   fs.totalEntries.Load(),
		DroppedEntries: fs.droppedEntries.Load(),
		StartTime:      fs.startTime,
		LastEntryTime:  lastEntry,
		Details:        details,
	}
}

func (fs *FileSource) publish(entry core.LogEntry) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	fs.totalEntries.Add(1)
	fs.lastEntryTime.Store(entry.Time)

	for _, ch := range fs.subscribers {
		select {
		case ch <- entry:
		default:
			fs.droppedEntries.Add(1)
			fs.logger.Debug("msg", "Dropped log entry - subscriber buffer full",
				"component", "file_source")
		}
	}
}
