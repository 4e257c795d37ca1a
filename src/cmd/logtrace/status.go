// FILE: logtrace/src/cmd/logtrace/status.go
package main

import (
	"context"
	"fmt"
	"time"

	"logtrace/src/internal/config"
	"logtrace/src/internal/server"
	"logtrace/src/internal/service"
)

// Periodically logs service status
func statusReporter(ctx context.Context, svc *service.Service, srv *server.Server) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if svc == nil {
				logger.Warn("msg", "Status reporter: service is nil",
					"component", "status_reporter")
				return
			}

			// Safely get stats with recovery
			func() {
				defer func() {
					if r := recover(); r != nil {
						logger.Error("msg", "Panic in status reporter",
							"component", "status_reporter",
							"panic", r)
					}
				}()

				stats := svc.GetGlobalStats()
				totalPipelines, ok := stats["total_pipelines"].(int)
				if !ok || totalPipelines == 0 {
					logger.Warn("msg", "No active pipelines in status report",
						"component", "status_reporter")
					return
				}

				reportFields := []any{
					"msg", "Status report",
					"component", "status_reporter",
					"active_pipelines", totalPipelines,
				}
				if srv != nil {
					srvStats := srv.GetStats()
					reportFields = append(reportFields,
						"server_requests", srvStats["total_requests"],
						"stream_clients", srvStats["active_clients"])
				}
				logger.Debug(reportFields...)

				pipelines, ok := stats["pipelines"].(map[string]any)
				if !ok {
					return
				}
				for name, pipelineStats := range pipelines {
					if ps, ok := pipelineStats.(map[string]any); ok {
						logPipelineStatus(name, ps)
					}
				}
			}()
		}
	}
}

// Logs the status of an individual pipeline
func logPipelineStatus(name string, stats map[string]any) {
	statusFields := []any{
		"msg", "Pipeline status",
		"component", "status_reporter",
		"pipeline", name,
	}

	if totalProcessed, ok := stats["total_processed"].(uint64); ok {
		statusFields = append(statusFields, "entries_processed", totalProcessed)
	}
	if totalThrottled, ok := stats["total_throttled"].(uint64); ok && totalThrottled > 0 {
		statusFields = append(statusFields, "entries_throttled", totalThrottled)
	}
	if totalFiltered, ok := stats["total_filtered"].(uint64); ok {
		statusFields = append(statusFields, "entries_filtered", totalFiltered)
	}
	if totalStored, ok := stats["total_stored"].(uint64); ok {
		statusFields = append(statusFields, "records_stored", totalStored)
	}
	if sourceCount, ok := stats["source_count"].(int); ok {
		statusFields = append(statusFields, "sources", sourceCount)
	}
	if sinkCount, ok := stats["sink_count"].(int); ok && sinkCount > 0 {
		statusFields = append(statusFields, "sinks", sinkCount)
	}

	logger.Debug(statusFields...)
}

// Logs the configured ingestion endpoints for a pipeline
func displayPipelineEndpoints(cfg config.PipelineConfig) {
	for i, sourceCfg := range cfg.Sources {
		switch sourceCfg.Type {
		case "http":
			port, ok := optionInt(sourceCfg.Options, "port")
			if !ok {
				continue
			}
			host := optionString(sourceCfg.Options, "host", "0.0.0.0")
			displayHost := host
			if host == "0.0.0.0" {
				displayHost = "localhost"
			}
			ingestPath := optionString(sourceCfg.Options, "ingest_path", "/ingest")

			logger.Info("msg", "HTTP source configured",
				"pipeline", cfg.Name,
				"source_index", i,
				"listen", fmt.Sprintf("%s:%d", host, port),
				"ingest_url", fmt.Sprintf("http://%s:%d%s", displayHost, port, ingestPath))

		case "tcp":
			port, ok := optionInt(sourceCfg.Options, "port")
			if !ok {
				continue
			}
			host := optionString(sourceCfg.Options, "host", "0.0.0.0")
			displayHost := host
			if host == "0.0.0.0" {
				displayHost = "localhost"
			}

			logger.Info("msg", "TCP source configured",
				"pipeline", cfg.Name,
				"source_index", i,
				"listen", fmt.Sprintf("%s:%d", host, port),
				"endpoint", fmt.Sprintf("%s:%d", displayHost, port))

		case "file", "directory":
			if path, ok := sourceCfg.Options["path"].(string); ok {
				logger.Info("msg", "Watch source configured",
					"pipeline", cfg.Name,
					"source_index", i,
					"type", sourceCfg.Type,
					"path", path)
			}
		}
	}

	if len(cfg.Filters) > 0 {
		logger.Info("msg", "Filters configured",
			"pipeline", cfg.Name,
			"filter_count", len(cfg.Filters))
	}

	for i, sinkCfg := range cfg.Sinks {
		switch sinkCfg.Type {
		case "file":
			if dir, ok := sinkCfg.Options["directory"].(string); ok {
				name, _ := sinkCfg.Options["name"].(string)
				logger.Info("msg", "File sink configured",
					"pipeline", cfg.Name,
					"sink_index", i,
					"directory", dir,
					"name", name)
			}
		case "stdout", "stderr":
			logger.Info("msg", "Console sink configured",
				"pipeline", cfg.Name,
				"sink_index", i,
				"target", sinkCfg.Type)
		}
	}
}

// Logs the query API endpoints once the server is listening
func displayServerEndpoints(cfg config.ServerConfig) {
	scheme := "http"
	if cfg.TLS != nil && cfg.TLS.Enabled {
		scheme = "https"
	}

	host := cfg.Host
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	base := fmt.Sprintf("%s://%s:%d", scheme, host, cfg.Port)

	logger.Info("msg", "Query API listening",
		"status_url", base+cfg.StatusPath,
		"logs_url", base+cfg.LogsPath,
		"trace_url", base+cfg.TracePath,
		"stream_url", base+cfg.StreamPath)

	if cfg.Auth != nil && cfg.Auth.Type != "" && cfg.Auth.Type != "none" {
		logger.Info("msg", "Query API authentication enabled",
			"auth_type", cfg.Auth.Type)
	}
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		logger.Info("msg", "Query API rate limiting enabled",
			"requests_per_second", cfg.RateLimit.RequestsPerSecond,
			"burst_size", cfg.RateLimit.BurstSize)
	}
}

// TOML integers decode as int64, CLI overrides as int.
func optionInt(options map[string]any, key string) (int, bool) {
	switch v := options[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

func optionString(options map[string]any, key, fallback string) string {
	if v, ok := options[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
