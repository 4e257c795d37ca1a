// FILE: logtrace/src/internal/service/pipeline.go
package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"logtrace/src/internal/config"
	"logtrace/src/internal/core"
	"logtrace/src/internal/filter"
	"logtrace/src/internal/limit"
	"logtrace/src/internal/parse"
	"logtrace/src/internal/sink"
	"logtrace/src/internal/source"

	"github.com/lixenwraith/log"
)

// Pipeline moves raw lines from sources through the throttle and filter
// chain, parses them, and lands the records in the store and any sinks.
type Pipeline struct {
	Config      *config.PipelineConfig
	Sources     []source.Source
	Throttle    *limit.Throttle
	FilterChain *filter.Chain
	Sinks       []sink.Sink
	Stats       *PipelineStats
	logger      *log.Logger
	service     *Service

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Contains statistics for a pipeline
type PipelineStats struct {
	StartTime             time.Time
	TotalEntriesProcessed atomic.Uint64
	TotalEntriesThrottled atomic.Uint64
	TotalEntriesFiltered  atomic.Uint64
	TotalRecordsStored    atomic.Uint64
}

// Creates and starts a new pipeline
func (s *Service) NewPipeline(cfg *config.PipelineConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.pipelines[cfg.Name]; exists {
		err := fmt.Errorf("pipeline '%s' already exists", cfg.Name)
		s.logger.Error("msg", "Failed to create pipeline - duplicate name",
			"component", "service",
			"pipeline", cfg.Name,
			"error", err)
		return err
	}

	s.logger.Debug("msg", "Creating pipeline", "pipeline", cfg.Name)

	pipelineCtx, pipelineCancel := context.WithCancel(s.ctx)

	pipeline := &Pipeline{
		Config: cfg,
		Stats: &PipelineStats{
			StartTime: time.Now(),
		},
		ctx:     pipelineCtx,
		cancel:  pipelineCancel,
		logger:  s.logger,
		service: s,
	}

	// Create sources
	for i, srcCfg := range cfg.Sources {
		src, err := source.New(srcCfg, s.logger)
		if err != nil {
			pipelineCancel()
			return fmt.Errorf("failed to create source[%d]: %w", i, err)
		}
		pipeline.Sources = append(pipeline.Sources, src)
	}

	pipeline.Throttle = limit.NewThrottle(cfg.RateLimit, s.logger)

	// Create filter chain
	if len(cfg.Filters) > 0 {
		chain, err := filter.NewChain(cfg.Filters, s.logger)
		if err != nil {
			pipelineCancel()
			return fmt.Errorf("failed to create filter chain: %w", err)
		}
		pipeline.FilterChain = chain
	}

	// Create sinks
	for i, sinkCfg := range cfg.Sinks {
		sinkInst, err := sink.New(sinkCfg, s.logger)
		if err != nil {
			pipelineCancel()
			return fmt.Errorf("failed to create sink[%d]: %w", i, err)
		}
		pipeline.Sinks = append(pipeline.Sinks, sinkInst)
	}

	// Start all sources
	for i, src := range pipeline.Sources {
		if err := src.Start(); err != nil {
			pipeline.Shutdown()
			return fmt.Errorf("failed to start source[%d]: %w", i, err)
		}
	}

	// Start all sinks
	for i, sinkInst := range pipeline.Sinks {
		if err := sinkInst.Start(pipelineCtx); err != nil {
			pipeline.Shutdown()
			return fmt.Errorf("failed to start sink[%d]: %w", i, err)
		}
	}

	s.wirePipeline(pipeline)

	s.pipelines[cfg.Name] = pipeline
	s.logger.Info("msg", "Pipeline created successfully",
		"pipeline", cfg.Name)
	return nil
}

// wirePipeline connects a pipeline's sources to the store and sinks
// through its throttle and filter chain.
func (s *Service) wirePipeline(p *Pipeline) {
	for _, src := range p.Sources {
		srcChan := src.Subscribe()

		p.wg.Add(1)
		go func(src source.Source, entries <-chan core.LogEntry) {
			defer p.wg.Done()

			// Panic recovery to prevent single source from crashing pipeline
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("msg", "Panic in pipeline processing",
						"pipeline", p.Config.Name,
						"source", src.GetStats().Type,
						"panic", r)

					go func() {
						s.logger.Warn("msg", "Shutting down pipeline due to panic",
							"pipeline", p.Config.Name)
						if err := s.RemovePipeline(p.Config.Name); err != nil {
							s.logger.Error("msg", "Failed to remove panicked pipeline",
								"pipeline", p.Config.Name,
								"error", err)
						}
					}()
				}
			}()

			for {
				select {
				case <-p.ctx.Done():
					return
				case entry, ok := <-entries:
					if !ok {
						return
					}
					p.process(entry)
				}
			}
		}(src, srcChan)
	}
}

// process runs one raw entry through the pipeline stages.
func (p *Pipeline) process(entry core.LogEntry) {
	p.Stats.TotalEntriesProcessed.Add(1)

	if !p.Throttle.Allow() {
		p.Stats.TotalEntriesThrottled.Add(1)
		return
	}

	if p.FilterChain != nil {
		if !p.FilterChain.Apply(entry) {
			p.Stats.TotalEntriesFiltered.Add(1)
			return
		}
	}

	line := parse.Parse(entry.Raw)

	if p.service.store != nil {
		p.service.store.Insert(line)
		p.Stats.TotalRecordsStored.Add(1)
	}

	if p.service.publish != nil {
		p.service.publish(line)
	}

	for _, sinkInst := range p.Sinks {
		select {
		case sinkInst.Input() <- line:
		case <-p.ctx.Done():
			return
		default:
			// Drop if sink buffer is full, may flood logging for slow client
			p.logger.Debug("msg", "Dropped record - sink buffer full",
				"pipeline", p.Config.Name)
		}
	}
}

// Gracefully stops the pipeline
func (p *Pipeline) Shutdown() {
	p.logger.Info("msg", "Shutting down pipeline",
		"component", "pipeline",
		"pipeline", p.Config.Name)

	p.cancel()

	// Stop all sources first so no new entries arrive
	var wg sync.WaitGroup
	for _, src := range p.Sources {
		wg.Add(1)
		go func(src source.Source) {
			defer wg.Done()
			src.Stop()
		}(src)
	}
	wg.Wait()

	// Wait for processing goroutines before closing sink inputs
	p.wg.Wait()

	for _, s := range p.Sinks {
		wg.Add(1)
		go func(sink sink.Sink) {
			defer wg.Done()
			sink.Stop()
		}(s)
	}
	wg.Wait()

	p.logger.Info("msg", "Pipeline shutdown complete",
		"component", "pipeline",
		"pipeline", p.Config.Name)
}

// Returns pipeline statistics
func (p *Pipeline) GetStats() map[string]any {
	// Recovery to handle concurrent access during shutdown
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("msg", "Panic getting pipeline stats",
				"pipeline", p.Config.Name,
				"panic", r)
		}
	}()

	sourceStats := make([]map[string]any, 0, len(p.Sources))
	for _, src := range p.Sources {
		if src == nil {
			continue
		}

		stats := src.GetStats()
		sourceStats = append(sourceStats, map[string]any{
			"type":            stats.Type,
			"total_entries":   stats.TotalEntries,
			"dropped_entries": stats.DroppedEntries,
			"start_time":      stats.StartTime,
			"last_entry_time": stats.LastEntryTime,
			"details":         stats.Details,
		})
	}

	var filterStats map[string]any
	if p.FilterChain != nil {
		filterStats = p.FilterChain.GetStats()
	}

	sinkStats := make([]map[string]any, 0, len(p.Sinks))
	for _, s := range p.Sinks {
		if s == nil {
			continue
		}

		stats := s.GetStats()
		sinkStats = append(sinkStats, map[string]any{
			"type":            stats.Type,
			"total_processed": stats.TotalProcessed,
			"start_time":      stats.StartTime,
			"last_processed":  stats.LastProcessed,
			"details":         stats.Details,
		})
	}

	return map[string]any{
		"name":            p.Config.Name,
		"uptime_seconds":  int(time.Since(p.Stats.StartTime).Seconds()),
		"total_processed": p.Stats.TotalEntriesProcessed.Load(),
		"total_throttled": p.Stats.TotalEntriesThrottled.Load(),
		"total_filtered":  p.Stats.TotalEntriesFiltered.Load(),
		"total_stored":    p.Stats.TotalRecordsStored.Load(),
		"sources":         sourceStats,
		"throttle":        p.Throttle.GetStats(),
		"sinks":           sinkStats,
		"filters":         filterStats,
		"source_count":    len(p.Sources),
		"sink_count":      len(p.Sinks),
		"filter_count":    len(p.Config.Filters),
	}
}
