// FILE: logtrace/src/internal/config/validation.go
package config

import "fmt"

// validateConfig is the centralized validator for the entire configuration
func validateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if len(cfg.Pipelines) == 0 {
		return fmt.Errorf("no pipelines configured")
	}

	if err := validateLogConfig(cfg.Logging); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	pipelineNames := make(map[string]bool)
	for i, pipeline := range cfg.Pipelines {
		if pipeline.Name == "" {
			return fmt.Errorf("pipeline[%d]: missing name", i)
		}
		if pipelineNames[pipeline.Name] {
			return fmt.Errorf("pipeline[%d]: duplicate name '%s'", i, pipeline.Name)
		}
		pipelineNames[pipeline.Name] = true

		if len(pipeline.Sources) == 0 {
			return fmt.Errorf("pipeline '%s': no sources configured", pipeline.Name)
		}
		for j := range pipeline.Sources {
			if err := validateSource(pipeline.Name, j, &pipeline.Sources[j]); err != nil {
				return err
			}
		}
		for j := range pipeline.Filters {
			if err := validateFilter(pipeline.Name, j, &pipeline.Filters[j]); err != nil {
				return err
			}
		}
		for j := range pipeline.Sinks {
			if err := validateSink(pipeline.Name, j, &pipeline.Sinks[j]); err != nil {
				return err
			}
		}
		if err := validateRateLimit(pipeline.RateLimit); err != nil {
			return fmt.Errorf("pipeline '%s': %w", pipeline.Name, err)
		}
	}

	if err := validateServer(&cfg.Server); err != nil {
		return err
	}

	if cfg.Store.Capacity < 0 {
		return fmt.Errorf("store capacity cannot be negative")
	}

	if err := validateUsage(&cfg.Usage); err != nil {
		return err
	}

	if err := validateTrace(&cfg.Trace); err != nil {
		return err
	}

	return nil
}
