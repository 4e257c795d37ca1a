// FILE: logtrace/src/internal/config/trace.go
package config

import "fmt"

// TraceConfig tunes the weighted multi-signal candidate scorer. Zero
// values fall back to the shipped policy.
type TraceConfig struct {
	// Time proximity windows in milliseconds
	StrongWindowMS int `toml:"strong_window_ms"`
	WideWindowMS   int `toml:"wide_window_ms"`
	MaxWindowMS    int `toml:"max_window_ms"`

	// Signal weights; penalties are negative
	StrongBonus   int `toml:"strong_bonus"`
	WideBonus     int `toml:"wide_bonus"`
	MaxBonus      int `toml:"max_bonus"`
	BeyondPenalty int `toml:"beyond_penalty"`

	MethodBonus   int `toml:"method_bonus"`
	MethodPenalty int `toml:"method_penalty"`

	PathExactBonus  int `toml:"path_exact_bonus"`
	PathPrefixBonus int `toml:"path_prefix_bonus"`

	OutcomeBonus   int `toml:"outcome_bonus"`
	OutcomePenalty int `toml:"outcome_penalty"`

	// Confidence tier thresholds
	HighThreshold   int `toml:"high_threshold"`
	MediumThreshold int `toml:"medium_threshold"`

	// Maximum candidates returned per resolution
	MaxCandidates int `toml:"max_candidates"`
}

// DefaultTraceConfig mirrors the shipped scoring policy.
func DefaultTraceConfig() TraceConfig {
	return TraceConfig{
		StrongWindowMS:  3000,
		WideWindowMS:    10000,
		MaxWindowMS:     30000,
		StrongBonus:     40,
		WideBonus:       25,
		MaxBonus:        10,
		BeyondPenalty:   -15,
		MethodBonus:     15,
		MethodPenalty:   -20,
		PathExactBonus:  20,
		PathPrefixBonus: 10,
		OutcomeBonus:    10,
		OutcomePenalty:  -10,
		HighThreshold:   70,
		MediumThreshold: 40,
		MaxCandidates:   8,
	}
}

func validateTrace(cfg *TraceConfig) error {
	if cfg.StrongWindowMS < 0 || cfg.WideWindowMS < 0 || cfg.MaxWindowMS < 0 {
		return fmt.Errorf("trace windows cannot be negative")
	}
	if cfg.StrongWindowMS > cfg.WideWindowMS || cfg.WideWindowMS > cfg.MaxWindowMS {
		return fmt.Errorf("trace windows must be ordered: strong <= wide <= max")
	}
	if cfg.MaxCandidates < 0 {
		return fmt.Errorf("trace max_candidates cannot be negative")
	}
	if cfg.HighThreshold < cfg.MediumThreshold {
		return fmt.Errorf("trace high_threshold must be >= medium_threshold")
	}
	return nil
}
