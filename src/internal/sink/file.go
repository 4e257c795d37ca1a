// FILE: logtrace/src/internal/sink/file.go
package sink

import (
	"bytes"
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"logtrace/src/internal/core"
	"logtrace/src/internal/format"

	"github.com/lixenwraith/log"
)

// Writes formatted records to files with rotation
type FileSink struct {
	input     chan core.ParsedLine
	writer    *log.Logger // Internal logger instance for file writing
	done      chan struct{}
	startTime time.Time
	logger    *log.Logger // Application logger
	formatter format.Formatter

	// Statistics
	totalProcessed atomic.Uint64
	lastProcessed  atomic.Value // time.Time
}

// Creates a new file sink
func NewFileSink(options map[string]any, logger *log.Logger, formatter format.Formatter) (*FileSink, error) {
	directory, ok := options["directory"].(string)
	if !ok || directory == "" {
		directory = "./"
		logger.Warn("msg", "No directory provided, current directory will be used",
			"component", "file_sink")
	}

	name, ok := options["name"].(string)
	if !ok || name == "" {
		name = "logtrace.output"
		logger.Warn("msg", fmt.Sprintf("No filename provided, %s will be used", name),
			"component", "file_sink")
	}

	// Rotation and retention are delegated to the log package's writer
	writerConfig := log.DefaultConfig()
	writerConfig.Directory = directory
	writerConfig.Name = name
	writerConfig.EnableConsole = false
	writerConfig.ShowTimestamp = false // Records carry their own timestamps
	writerConfig.ShowLevel = false

	if maxSize, ok := toInt(options["max_size_mb"]); ok && maxSize > 0 {
		writerConfig.MaxSizeKB = int64(maxSize) * 1000
	}

	if maxTotalSize, ok := toInt(options["max_total_size_mb"]); ok && maxTotalSize >= 0 {
		writerConfig.MaxTotalSizeKB = int64(maxTotalSize) * 1000
	}

	if retention, ok := toInt(options["retention_hours"]); ok && retention > 0 {
		writerConfig.RetentionPeriodHrs = float64(retention)
	}

	if minDiskFree, ok := toInt(options["min_disk_free_mb"]); ok && minDiskFree > 0 {
		writerConfig.MinDiskFreeKB = int64(minDiskFree) * 1000
	}

	writer := log.NewLogger()
	if err := writer.ApplyConfig(writerConfig); err != nil {
		return nil, fmt.Errorf("failed to initialize file writer: %w", err)
	}

	if err := writer.Start(); err != nil {
		return nil, fmt.Errorf("failed to start file writer: %w", err)
	}

	bufferSize := 1000
	if bufSize, ok := toInt(options["buffer_size"]); ok && bufSize > 0 {
		bufferSize = bufSize
	}

	fs := &FileSink{
		input:     make(chan core.ParsedLine, bufferSize),
		writer:    writer,
		done:      make(chan struct{}),
		startTime: time.Now(),
		logger:    logger,
		formatter: formatter,
	}
	fs.lastProcessed.Store(time.Time{})

	return fs, nil
}

func (fs *FileSink) Input() chan<- core.ParsedLine {
	return fs.input
}

func (fs *FileSink) Start(ctx context.Context) error {
	go fs.processLoop(ctx)
	fs.logger.Info("msg", "File sink started", "component", "file_sink")
	return nil
}

func (fs *FileSink) Stop() {
	fs.logger.Info("msg", "Stopping file sink")
	close(fs.done)

	if err := fs.writer.Shutdown(2 * time.Second); err != nil {
		fs.logger.Error("msg", "Error shutting down file writer",
			"component", "file_sink",
			"error", err)
	}

	fs.logger.Info("msg", "File sink stopped")
}

func (fs *FileSink) GetStats() SinkStats {
	lastProc, _ := fs.lastProcessed.Load().(time.Time)

	return SinkStats{
		Type:           "file",
		TotalProcessed: fs.totalProcessed.Load(),
		StartTime:      fs.startTime,
		LastProcessed:  lastProc,
		Details:        map[string]any{},
	}
}

func (fs *FileSink) processLoop(ctx context.Context) {
	for {
		select {
		case line, ok := <-fs.input:
			if !ok {
				return
			}

			fs.totalProcessed.Add(1)
			fs.lastProcessed.Store(time.Now())

			formatted, err := fs.formatter.Format(line)
			if err != nil {
				fs.logger.Error("msg", "Failed to format record",
					"component", "file_sink",
					"error", err)
				continue
			}

			// Convert to string to prevent hex encoding of []byte by log package
			// Strip new line, writer adds it
			message := string(bytes.TrimSuffix(formatted, []byte{'\n'}))
			fs.writer.Message(message)

		case <-ctx.Done():
			return
		case <-fs.done:
			return
		}
	}
}
