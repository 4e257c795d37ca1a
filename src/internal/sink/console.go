// FILE: logtrace/src/internal/sink/console.go
package sink

import (
	"context"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"logtrace/src/internal/core"
	"logtrace/src/internal/format"

	"github.com/lixenwraith/log"
)

// ConsoleConfig holds common configuration for console sinks
type ConsoleConfig struct {
	Target     string // "stdout", "stderr", or "split"
	BufferSize int
}

// consoleSink is the shared machinery behind stdout and stderr sinks.
// In split mode the stdout sink carries info/debug records and the
// stderr sink carries warn/error records.
type consoleSink struct {
	input     chan core.ParsedLine
	config    ConsoleConfig
	output    io.Writer
	sinkType  string
	done      chan struct{}
	startTime time.Time
	logger    *log.Logger
	formatter format.Formatter

	// Statistics
	totalProcessed atomic.Uint64
	lastProcessed  atomic.Value // time.Time
}

func newConsoleSink(options map[string]any, sinkType string, output io.Writer, logger *log.Logger, formatter format.Formatter) *consoleSink {
	config := ConsoleConfig{
		Target:     sinkType,
		BufferSize: 1000,
	}

	if target, ok := options["target"].(string); ok && target != "" {
		config.Target = target
	}

	if bufSize, ok := toInt(options["buffer_size"]); ok && bufSize > 0 {
		config.BufferSize = bufSize
	}

	s := &consoleSink{
		input:     make(chan core.ParsedLine, config.BufferSize),
		config:    config,
		output:    output,
		sinkType:  sinkType,
		done:      make(chan struct{}),
		startTime: time.Now(),
		logger:    logger,
		formatter: formatter,
	}
	s.lastProcessed.Store(time.Time{})
	return s
}

func (s *consoleSink) Input() chan<- core.ParsedLine {
	return s.input
}

func (s *consoleSink) Start(ctx context.Context) error {
	go s.processLoop(ctx)
	s.logger.Info("msg", "Console sink started",
		"component", s.sinkType+"_sink",
		"target", s.config.Target)
	return nil
}

func (s *consoleSink) Stop() {
	s.logger.Info("msg", "Stopping console sink", "component", s.sinkType+"_sink")
	close(s.done)
}

func (s *consoleSink) GetStats() SinkStats {
	lastProc, _ := s.lastProcessed.Load().(time.Time)

	return SinkStats{
		Type:           s.sinkType,
		TotalProcessed: s.totalProcessed.Load(),
		StartTime:      s.startTime,
		LastProcessed:  lastProc,
		Details: map[string]any{
			"target": s.config.Target,
		},
	}
}

func (s *consoleSink) processLoop(ctx context.Context) {
	for {
		select {
		case line, ok := <-s.input:
			if !ok {
				return
			}

			s.totalProcessed.Add(1)
			s.lastProcessed.Store(time.Now())

			if s.config.Target == "split" && !s.wantsLevel(line.Level) {
				continue
			}

			formatted, err := s.formatter.Format(line)
			if err != nil {
				s.logger.Error("msg", "Failed to format record",
					"component", s.sinkType+"_sink",
					"error", err)
				continue
			}
			s.output.Write(formatted)

		case <-ctx.Done():
			return
		case <-s.done:
			return
		}
	}
}

func (s *consoleSink) wantsLevel(level string) bool {
	upper := strings.ToUpper(level)
	severe := upper == "ERROR" || upper == "WARN" || upper == "WARNING" || upper == "FATAL"
	if s.sinkType == "stderr" {
		return severe
	}
	return !severe
}

// StdoutSink writes records to stdout
type StdoutSink struct {
	*consoleSink
}

// NewStdoutSink creates a new stdout sink
func NewStdoutSink(options map[string]any, logger *log.Logger, formatter format.Formatter) (*StdoutSink, error) {
	return &StdoutSink{newConsoleSink(options, "stdout", os.Stdout, logger, formatter)}, nil
}

// StderrSink writes records to stderr
type StderrSink struct {
	*consoleSink
}

// NewStderrSink creates a new stderr sink
func NewStderrSink(options map[string]any, logger *log.Logger, formatter format.Formatter) (*StderrSink, error) {
	return &StderrSink{newConsoleSink(options, "stderr", os.Stderr, logger, formatter)}, nil
}
