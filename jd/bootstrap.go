package jd

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"runtime"
	"sort"

	"github.com/cwbudde/algo-jd/epochs"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// Band is a pointwise confidence band of shape (components, samples).
type Band struct {
	Lower *mat.Dense
	Upper *mat.Dense
}

// Width returns Upper - Lower.
func (b *Band) Width() *mat.Dense {
	var w mat.Dense
	w.Sub(b.Upper, b.Lower)
	return &w
}

// BootstrapOption configures Bootstrap.
type BootstrapOption func(*bootstrapConfig)

type bootstrapConfig struct {
	resamples    int
	keep1, keep2 int
	alpha        float64
	rng          *rand.Rand
	workers      int
	detrend      bool
	logger       *slog.Logger
	invalid      error
}

func defaultBootstrapConfig() bootstrapConfig {
	return bootstrapConfig{
		resamples: 1000,
		alpha:     0.05,
		workers:   runtime.GOMAXPROCS(0),
		detrend:   true,
	}
}

// WithResamples sets the number of bootstrap resamples. Default 1000.
func WithResamples(n int) BootstrapOption {
	return func(cfg *bootstrapConfig) {
		if n < 1 {
			cfg.invalid = fmt.Errorf("%w: resamples = %d, must be >= 1", ErrInvalidOption, n)
			return
		}
		cfg.resamples = n
	}
}

// WithBootstrapKeep sets keep1 and keep2 for every refit. Zero selects the
// Fit defaults.
func WithBootstrapKeep(keep1, keep2 int) BootstrapOption {
	return func(cfg *bootstrapConfig) {
		if keep1 < 0 || keep2 < 0 {
			cfg.invalid = fmt.Errorf("%w: keep1 = %d, keep2 = %d", ErrInvalidOption, keep1, keep2)
			return
		}
		cfg.keep1, cfg.keep2 = keep1, keep2
	}
}

// WithAlpha sets the significance level; the band spans the alpha/2 and
// 1-alpha/2 percentiles. Default 0.05.
func WithAlpha(alpha float64) BootstrapOption {
	return func(cfg *bootstrapConfig) {
		if !(alpha > 0 && alpha < 1) {
			cfg.invalid = fmt.Errorf("%w: alpha = %v, must be in (0, 1)", ErrInvalidOption, alpha)
			return
		}
		cfg.alpha = alpha
	}
}

// WithRand sets the source used to draw resampled trial indices. The default
// is a source seeded with 1, so unseeded runs are reproducible too.
func WithRand(rng *rand.Rand) BootstrapOption {
	return func(cfg *bootstrapConfig) {
		if rng != nil {
			cfg.rng = rng
		}
	}
}

// WithWorkers limits the number of concurrent refits. Default GOMAXPROCS.
func WithWorkers(n int) BootstrapOption {
	return func(cfg *bootstrapConfig) {
		if n > 0 {
			cfg.workers = n
		}
	}
}

// WithBootstrapDetrend toggles detrending in every refit. On by default.
func WithBootstrapDetrend(enabled bool) BootstrapOption {
	return func(cfg *bootstrapConfig) {
		cfg.detrend = enabled
	}
}

// WithBootstrapLogger sets the logger for progress records.
func WithBootstrapLogger(logger *slog.Logger) BootstrapOption {
	return func(cfg *bootstrapConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// Bootstrap runs the package-level Bootstrap with the model's logger. Only
// Evoked models are supported.
func (m *Model) Bootstrap(ctx context.Context, ep *epochs.Epochs, opts ...BootstrapOption) (*Band, error) {
	if m.kind != Evoked {
		return nil, fmt.Errorf("%w: bootstrap is only defined for %v, model is %v", ErrUnsupportedKind, Evoked, m.kind)
	}
	return Bootstrap(ctx, ep, append([]BootstrapOption{WithBootstrapLogger(m.logger)}, opts...)...)
}

// Bootstrap estimates a confidence band for the trial-averaged Evoked
// components of ep. Each resample draws Trials() trial indices uniformly with
// replacement, fits a fresh Evoked model, projects the resampled trials and
// averages them over trials. The band holds, per (component, sample) cell,
// the alpha/2 and 1-alpha/2 percentiles of the absolute averaged waveform.
// Absolute values make the band insensitive to the sign of each refit's
// eigenvectors.
//
// All indices are drawn before any refit starts, so the result depends only
// on the random source and not on scheduling. Refits run concurrently and
// stop early when ctx is cancelled or a refit fails.
func Bootstrap(ctx context.Context, ep *epochs.Epochs, opts ...BootstrapOption) (*Band, error) {
	cfg := defaultBootstrapConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.invalid != nil {
		return nil, cfg.invalid
	}
	if cfg.rng == nil {
		cfg.rng = rand.New(rand.NewSource(1))
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}

	trials := ep.Trials()
	draws := make([][]int, cfg.resamples)
	for i := range draws {
		idx := make([]int, trials)
		for j := range idx {
			idx[j] = cfg.rng.Intn(trials)
		}
		draws[i] = idx
	}

	fitOpts := []FitOption{WithDetrend(cfg.detrend)}
	if cfg.keep1 > 0 {
		fitOpts = append(fitOpts, WithKeep1(cfg.keep1))
	}
	if cfg.keep2 > 0 {
		fitOpts = append(fitOpts, WithKeep2(cfg.keep2))
	}

	cfg.logger.Debug("bootstrap started", "resamples", cfg.resamples, "trials", trials, "workers", cfg.workers)

	runs := make([][]float64, cfg.resamples)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.workers)
	for i := range draws {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sample, err := ep.Subset(draws[i])
			if err != nil {
				return err
			}
			model, err := New(Evoked)
			if err != nil {
				return err
			}
			d, err := model.Fit(sample, fitOpts...)
			if err != nil {
				return fmt.Errorf("resample %d: %w", i, err)
			}
			comps, err := d.Components(sample)
			if err != nil {
				return fmt.Errorf("resample %d: %w", i, err)
			}
			avg := comps.Average().RawMatrix().Data
			for j, v := range avg {
				avg[j] = math.Abs(v)
			}
			runs[i] = avg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("jd: bootstrap: %w", err)
	}

	samples := ep.Samples()
	components := len(runs[0]) / samples
	cells := components * samples
	lower := make([]float64, cells)
	upper := make([]float64, cells)
	column := make([]float64, cfg.resamples)
	for cell := range cells {
		for i, run := range runs {
			column[i] = run[cell]
		}
		sort.Float64s(column)
		lower[cell] = percentile(column, cfg.alpha/2)
		upper[cell] = percentile(column, 1-cfg.alpha/2)
	}

	cfg.logger.Debug("bootstrap finished", "components", components, "samples", samples)
	return &Band{
		Lower: mat.NewDense(components, samples, lower),
		Upper: mat.NewDense(components, samples, upper),
	}, nil
}

// percentile returns the p-quantile of sorted, interpolating linearly
// between the order statistics around position (n-1)·p. The minimum and
// maximum are reached only at p = 0 and p = 1.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	h := float64(n-1) * p
	lo := int(math.Floor(h))
	hi := int(math.Ceil(h))
	return sorted[lo] + (h-float64(lo))*(sorted[hi]-sorted[lo])
}
