package jd

import (
	"fmt"
	"log/slog"
)

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the logger used for debug records during fitting.
// A nil logger keeps the default, which discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// FitOption configures a single Fit call.
type FitOption func(*fitConfig)

type fitConfig struct {
	keep1, keep2, keep3 int // 0 selects the default
	condA, condB        string
	detrend             bool
	duplicateFirst      bool
	invalid             error
}

func defaultFitConfig() fitConfig {
	return fitConfig{detrend: true}
}

func applyFitOptions(opts []FitOption) fitConfig {
	cfg := defaultFitConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

func keepOption(name string, n int, dst func(*fitConfig) *int) FitOption {
	return func(cfg *fitConfig) {
		if n < 1 {
			cfg.invalid = fmt.Errorf("%w: %s = %d, must be >= 1", ErrInvalidOption, name, n)
			return
		}
		*dst(cfg) = n
	}
}

// WithKeep1 sets the number of principal components kept before whitening.
// Defaults to the channel count.
func WithKeep1(n int) FitOption {
	return keepOption("keep1", n, func(c *fitConfig) *int { return &c.keep1 })
}

// WithKeep2 sets the number of components kept after the first bias
// rotation. Defaults to keep1.
func WithKeep2(n int) FitOption {
	return keepOption("keep2", n, func(c *fitConfig) *int { return &c.keep2 })
}

// WithKeep3 sets the number of components kept after the second (difference)
// stage. Defaults to keep2 and is ignored in Evoked mode.
func WithKeep3(n int) FitOption {
	return keepOption("keep3", n, func(c *fitConfig) *int { return &c.keep3 })
}

// WithConditions names the two conditions contrasted in Difference mode.
// Without it the epochs must carry exactly two condition labels.
func WithConditions(a, b string) FitOption {
	return func(cfg *fitConfig) {
		if a == "" || b == "" || a == b {
			cfg.invalid = fmt.Errorf("%w: conditions %q and %q", ErrInvalidOption, a, b)
			return
		}
		cfg.condA, cfg.condB = a, b
	}
}

// WithDetrend toggles per-trial linear detrending before fitting. On by default.
func WithDetrend(enabled bool) FitOption {
	return func(cfg *fitConfig) {
		cfg.detrend = enabled
	}
}

// WithDuplicatedFirstCondition builds the Difference-mode working set from the
// first condition's trials stacked twice instead of from both conditions,
// while the signed bias filter still counts the second condition's trials.
// It exists to compare against results of tools that select trials this way.
// Both conditions need the same trial count, and the bias-filtered signal
// then cancels exactly.
func WithDuplicatedFirstCondition() FitOption {
	return func(cfg *fitConfig) {
		cfg.duplicateFirst = true
	}
}
