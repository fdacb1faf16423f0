package jd

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/cwbudde/algo-jd/epochs"
	"gonum.org/v1/gonum/mat"
)

// Model fits Joint Decorrelation decompositions of one Kind. It remembers
// the last successful fit so the projection methods can be called on the
// model directly; the Decomposition returned by Fit can be used on its own.
//
// A Model is not safe for concurrent Fit calls. Decompositions are
// immutable and safe for concurrent use.
type Model struct {
	kind   Kind
	logger *slog.Logger
	fitted *Decomposition
}

// New returns an unfitted Model.
func New(kind Kind, opts ...Option) (*Model, error) {
	if !kind.valid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKind, kind)
	}
	m := &Model{
		kind:   kind,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

// Kind returns the bias the model maximizes.
func (m *Model) Kind() Kind { return m.kind }

// Decomposition returns the result of the last successful Fit.
func (m *Model) Decomposition() (*Decomposition, error) {
	if m.fitted == nil {
		return nil, ErrNotFitted
	}
	return m.fitted, nil
}

// Components projects ep onto the components of the last fit.
func (m *Model) Components(ep *epochs.Epochs) (*epochs.Epochs, error) {
	return m.fitted.Components(ep)
}

// Reproject filters ep through the components of the last fit.
func (m *Model) Reproject(ep *epochs.Epochs) (*epochs.Epochs, error) {
	return m.fitted.Reproject(ep)
}

// Fit computes the unmixing and mixing matrices for ep.
//
// Evoked mode runs one stage with an unweighted bias filter over all trials.
// Difference mode runs that stage on the trials of both conditions (first
// condition, then second) and a second stage with a +1/-1 signed filter on
// its output. On failure the previously fitted state is left untouched.
func (m *Model) Fit(ep *epochs.Epochs, opts ...FitOption) (*Decomposition, error) {
	cfg := applyFitOptions(opts)
	if cfg.invalid != nil {
		return nil, cfg.invalid
	}

	_, channels, samples := ep.Shape()
	keep1 := cfg.keep1
	if keep1 == 0 {
		keep1 = channels
	}
	keep2 := cfg.keep2
	if keep2 == 0 {
		keep2 = keep1
	}
	keep3 := cfg.keep3
	if keep3 == 0 {
		keep3 = keep2
	}

	work := ep
	var contrast BiasFilter
	if m.kind == Difference {
		var err error
		work, contrast, err = m.differenceSet(ep, cfg)
		if err != nil {
			return nil, err
		}
	}

	if cfg.detrend {
		m.logger.Debug("detrending data", "trials", work.Trials(), "channels", channels)
		work = work.Detrended()
	}

	x := Flatten(work)
	d := &Decomposition{kind: m.kind, channels: channels}

	first, err := Transform(x, EvokedFilter(work.Trials(), samples), keep1, keep2)
	if err != nil {
		return nil, fmt.Errorf("jd: evoked stage: %w", err)
	}
	d.push(first)
	m.logStage(1, first)

	if m.kind == Difference {
		var y mat.Dense
		y.Mul(x, d.unmixing)
		second, err := Transform(&y, contrast, keep2, keep3)
		if err != nil {
			return nil, fmt.Errorf("jd: difference stage: %w", err)
		}
		d.push(second)
		m.logStage(2, second)
	}

	m.fitted = d
	return d, nil
}

// differenceSet returns the trials of both conditions stacked in order and
// the signed filter contrasting them.
func (m *Model) differenceSet(ep *epochs.Epochs, cfg fitConfig) (*epochs.Epochs, BiasFilter, error) {
	a, b := cfg.condA, cfg.condB
	if a == "" {
		labels := ep.Conditions()
		if len(labels) != 2 {
			return nil, BiasFilter{}, fmt.Errorf("%w: epochs carry %d conditions %v", ErrAmbiguousConditions, len(labels), labels)
		}
		a, b = labels[0], labels[1]
	}

	first, err := ep.Select(a)
	if err != nil {
		return nil, BiasFilter{}, fmt.Errorf("jd: condition %q: %w", a, err)
	}
	second, err := ep.Select(b)
	if err != nil {
		return nil, BiasFilter{}, fmt.Errorf("jd: condition %q: %w", b, err)
	}

	tail := second
	if cfg.duplicateFirst {
		if first.Trials() != second.Trials() {
			return nil, BiasFilter{}, fmt.Errorf("%w: duplicated selection needs equal trial counts, got %d and %d",
				ErrDimensionMismatch, first.Trials(), second.Trials())
		}
		tail = first
	}
	work, err := epochs.Concat(first, tail)
	if err != nil {
		return nil, BiasFilter{}, fmt.Errorf("jd: %w", err)
	}

	m.logger.Debug("difference trial set", "first", a, "first_trials", first.Trials(),
		"second", b, "second_trials", second.Trials(), "duplicated", cfg.duplicateFirst)
	return work, DifferenceFilter(first.Trials(), second.Trials(), ep.Samples()), nil
}

func (m *Model) logStage(n int, s *Stage) {
	inputs, keep1 := s.P.Dims()
	_, keep2 := s.Q.Dims()
	m.logger.Debug("stage fitted", "stage", n, "inputs", inputs, "keep1", keep1, "keep2", keep2,
		"bias_power", s.BiasPower[0])
}

// Decomposition is a fitted set of unmixing and mixing matrices. Both are
// built from the same stages in the same Fit call.
type Decomposition struct {
	kind     Kind
	channels int
	unmixing *mat.Dense // channels × components
	mixing   *mat.Dense // components × channels
	stages   []*Stage
}

// push composes a stage onto the decomposition: later unmixing stages
// multiply on the right, later mixing stages on the left.
func (d *Decomposition) push(s *Stage) {
	if d.unmixing == nil {
		d.unmixing = s.Unmixing()
		d.mixing = s.Mixing()
	} else {
		var u, m mat.Dense
		u.Mul(d.unmixing, s.Unmixing())
		m.Mul(s.Mixing(), d.mixing)
		d.unmixing, d.mixing = &u, &m
	}
	d.stages = append(d.stages, s)
}

// Kind returns the bias the decomposition was fitted for.
func (d *Decomposition) Kind() Kind { return d.kind }

// Channels returns the channel count the decomposition expects.
func (d *Decomposition) Channels() int { return d.channels }

// Len returns the number of retained components.
func (d *Decomposition) Len() int {
	_, c := d.unmixing.Dims()
	return c
}

// Unmixing returns a copy of the channels × components unmixing matrix.
func (d *Decomposition) Unmixing() *mat.Dense { return mat.DenseCopyOf(d.unmixing) }

// Mixing returns a copy of the components × channels mixing matrix.
func (d *Decomposition) Mixing() *mat.Dense { return mat.DenseCopyOf(d.mixing) }

// Stages returns the reduction stages in the order they were applied.
func (d *Decomposition) Stages() []*Stage { return slices.Clone(d.stages) }

// BiasPower returns the biased-to-total power ratio of each retained
// component, taken from the last stage.
func (d *Decomposition) BiasPower() []float64 {
	return slices.Clone(d.stages[len(d.stages)-1].BiasPower)
}
