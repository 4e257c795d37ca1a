// FILE: logtrace/src/cmd/logtrace/bootstrap.go
package main

import (
	"context"
	"fmt"
	"time"

	"logtrace/src/internal/config"
	"logtrace/src/internal/server"
	"logtrace/src/internal/service"
	"logtrace/src/internal/store"
	"logtrace/src/internal/trace"
	"logtrace/src/internal/usage"
	"logtrace/src/internal/version"

	"github.com/lixenwraith/log"
)

// bootstrap wires the record store, usage telemetry, trace resolver,
// query server and ingestion pipelines together.
func bootstrap(ctx context.Context, cfg *config.Config) (*service.Service, *server.Server, error) {
	st := store.New(cfg.Store.Capacity, logger)

	var usageStore *usage.Store
	if cfg.Usage.Enabled() {
		client, err := usage.NewClient(&cfg.Usage, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("usage client: %w", err)
		}
		usageStore = usage.NewStore(client,
			time.Duration(cfg.Usage.UsageTTLSeconds)*time.Second,
			time.Duration(cfg.Usage.CredentialTTLSeconds)*time.Second,
			logger)
		logger.Info("msg", "Usage telemetry enabled",
			"endpoint", cfg.Usage.Endpoint)
	}

	resolver := trace.New(policyFromConfig(cfg.Trace))

	svc := service.NewService(ctx, st, logger)

	// The server must exist before pipelines start so live records can
	// be published to stream subscribers from the first entry on.
	var srv *server.Server
	if cfg.Server.Enabled {
		var err error
		srv, err = server.New(cfg.Server, server.Options{
			Store:      st,
			Resolver:   resolver,
			UsageStore: usageStore,
			StatsFunc:  svc.GetGlobalStats,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("server: %w", err)
		}
		svc.SetPublisher(srv.Publish)
	}

	successCount := 0
	for _, pipelineCfg := range cfg.Pipelines {
		logger.Info("msg", "Initializing pipeline", "pipeline", pipelineCfg.Name)

		if err := svc.NewPipeline(&pipelineCfg); err != nil {
			logger.Error("msg", "Failed to create pipeline",
				"pipeline", pipelineCfg.Name,
				"error", err)
			continue
		}

		successCount++
		displayPipelineEndpoints(pipelineCfg)
	}

	if successCount == 0 && len(cfg.Pipelines) > 0 {
		return nil, nil, fmt.Errorf("no pipelines successfully started (attempted %d)", len(cfg.Pipelines))
	}

	if srv != nil {
		if err := srv.Start(); err != nil {
			svc.Shutdown()
			return nil, nil, fmt.Errorf("server start: %w", err)
		}
		displayServerEndpoints(cfg.Server)
	}

	logger.Info("msg", "LogTrace started",
		"version", version.Short(),
		"pipelines", successCount,
		"server_enabled", cfg.Server.Enabled)

	return svc, srv, nil
}

// policyFromConfig translates scorer tuning into a trace policy. Zero
// values pass through; the resolver substitutes its own defaults.
func policyFromConfig(cfg config.TraceConfig) trace.Policy {
	return trace.Policy{
		StrongWindow:    time.Duration(cfg.StrongWindowMS) * time.Millisecond,
		WideWindow:      time.Duration(cfg.WideWindowMS) * time.Millisecond,
		MaxWindow:       time.Duration(cfg.MaxWindowMS) * time.Millisecond,
		StrongBonus:     cfg.StrongBonus,
		WideBonus:       cfg.WideBonus,
		MaxBonus:        cfg.MaxBonus,
		BeyondPenalty:   cfg.BeyondPenalty,
		MethodBonus:     cfg.MethodBonus,
		MethodPenalty:   cfg.MethodPenalty,
		PathExactBonus:  cfg.PathExactBonus,
		PathPrefixBonus: cfg.PathPrefixBonus,
		OutcomeBonus:    cfg.OutcomeBonus,
		OutcomePenalty:  cfg.OutcomePenalty,
		HighThreshold:   cfg.HighThreshold,
		MediumThreshold: cfg.MediumThreshold,
		MaxCandidates:   cfg.MaxCandidates,
	}
}

// applyLogFlags copies CLI logging overrides over the loaded config.
func applyLogFlags(cfg *config.Config, fc *FlagConfig) {
	if cfg.Logging == nil {
		cfg.Logging = config.DefaultLogConfig()
	}
	if fc.LogOutput != "" {
		cfg.Logging.Output = fc.LogOutput
	}
	if fc.LogLevel != "" {
		cfg.Logging.Level = fc.LogLevel
	}
	if fc.LogDir != "" {
		if cfg.Logging.File == nil {
			cfg.Logging.File = &config.LogFileConfig{Name: "logtrace"}
		}
		cfg.Logging.File.Directory = fc.LogDir
	}
	if fc.LogConsole != "" {
		if cfg.Logging.Console == nil {
			cfg.Logging.Console = &config.LogConsoleConfig{}
		}
		cfg.Logging.Console.Target = fc.LogConsole
	}
}

// initializeLogger sets up the internal logger from configuration.
func initializeLogger(cfg *config.Config, quiet bool) error {
	logger = log.NewLogger()

	var configArgs []string

	if quiet {
		// Quiet mode disables ALL logging output
		configArgs = append(configArgs,
			"disable_file=true",
			"enable_stdout=false",
			"level=255")

		if err := logger.ApplyConfigString(configArgs...); err != nil {
			return err
		}
		return logger.Start()
	}

	levelValue, err := parseLogLevel(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	configArgs = append(configArgs, fmt.Sprintf("level=%d", levelValue))

	switch cfg.Logging.Output {
	case "none":
		configArgs = append(configArgs, "disable_file=true", "enable_stdout=false")

	case "stdout":
		configArgs = append(configArgs,
			"disable_file=true",
			"enable_stdout=true",
			"stdout_target=stdout")

	case "stderr":
		configArgs = append(configArgs,
			"disable_file=true",
			"enable_stdout=true",
			"stdout_target=stderr")

	case "file":
		configArgs = append(configArgs, "enable_stdout=false")
		configureFileLogging(&configArgs, cfg)

	case "both":
		configArgs = append(configArgs, "enable_stdout=true")
		configureFileLogging(&configArgs, cfg)
		configureConsoleTarget(&configArgs, cfg)

	default:
		return fmt.Errorf("invalid log output mode: %s", cfg.Logging.Output)
	}

	if cfg.Logging.Console != nil && cfg.Logging.Console.Format != "" {
		configArgs = append(configArgs, fmt.Sprintf("format=%s", cfg.Logging.Console.Format))
	}

	if err := logger.ApplyConfigString(configArgs...); err != nil {
		return err
	}
	return logger.Start()
}

func configureFileLogging(configArgs *[]string, cfg *config.Config) {
	if cfg.Logging.File != nil {
		*configArgs = append(*configArgs,
			fmt.Sprintf("directory=%s", cfg.Logging.File.Directory),
			fmt.Sprintf("name=%s", cfg.Logging.File.Name),
			fmt.Sprintf("max_size_mb=%d", cfg.Logging.File.MaxSizeMB),
			fmt.Sprintf("max_total_size_mb=%d", cfg.Logging.File.MaxTotalSizeMB))

		if cfg.Logging.File.RetentionHours > 0 {
			*configArgs = append(*configArgs,
				fmt.Sprintf("retention_period_hrs=%.1f", cfg.Logging.File.RetentionHours))
		}
	}
}

func configureConsoleTarget(configArgs *[]string, cfg *config.Config) {
	target := "stderr"

	if cfg.Logging.Console != nil && cfg.Logging.Console.Target != "" {
		target = cfg.Logging.Console.Target
	}

	if target == "split" {
		*configArgs = append(*configArgs, "stdout_split_mode=true")
		*configArgs = append(*configArgs, "stdout_target=split")
	} else {
		*configArgs = append(*configArgs, fmt.Sprintf("stdout_target=%s", target))
	}
}
