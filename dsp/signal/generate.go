package signal

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/cwbudde/algo-jd/dsp/core"
	"github.com/cwbudde/algo-jd/epochs"
)

// Generator creates deterministic signals and synthetic epochs from a shared
// configuration.
type Generator struct {
	cfg  core.EpochConfig
	seed int64
}

// Option configures a Generator.
type Option func(*Generator)

// WithSeed sets deterministic random seed for noise generation.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.seed = seed
	}
}

// NewGenerator creates a configured signal generator.
func NewGenerator(opts ...core.EpochOption) *Generator {
	return &Generator{
		cfg:  core.ApplyEpochOptions(opts...),
		seed: 1,
	}
}

// NewGeneratorWithOptions creates a configured signal generator with signal-specific options.
func NewGeneratorWithOptions(coreOpts []core.EpochOption, opts ...Option) *Generator {
	g := NewGenerator(coreOpts...)
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Config returns the generator configuration.
func (g *Generator) Config() core.EpochConfig {
	return g.cfg
}

// Sine generates a sine wave.
func (g *Generator) Sine(freqHz, amplitude float64, samples int) ([]float64, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("sine samples must be > 0: %d", samples)
	}
	out := make([]float64, samples)
	step := 2 * math.Pi * freqHz / g.cfg.SampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out, nil
}

// Burst generates a Hann-tapered sine burst spanning the whole length, the
// usual stand-in for an evoked response.
func (g *Generator) Burst(freqHz, amplitude float64, samples int) ([]float64, error) {
	out, err := g.Sine(freqHz, amplitude, samples)
	if err != nil {
		return nil, err
	}
	if samples == 1 {
		return out, nil
	}
	for i := range out {
		out[i] *= 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(samples-1))
	}
	return out, nil
}

// Condition describes one experimental condition of a synthetic dataset.
type Condition struct {
	Label     string
	ID        int
	Trials    int
	Amplitude float64 // peak amplitude of the evoked burst in this condition
}

// EpochSpec describes a synthetic multi-trial dataset: the first
// EvokedChannels channels carry a time-locked burst with a channel-dependent
// gain, every channel carries independent Gaussian noise.
type EpochSpec struct {
	Channels       int
	Samples        int
	EvokedChannels int
	FreqHz         float64
	Noise          float64 // standard deviation of the sensor noise
	Conditions     []Condition
}

// Epochs synthesizes a labelled dataset. Trials of the different conditions
// are interleaved round-robin, which mirrors a randomized stimulus sequence.
func (g *Generator) Epochs(es EpochSpec) (*epochs.Epochs, error) {
	if es.Channels <= 0 || es.Samples <= 0 {
		return nil, fmt.Errorf("epoch shape must be positive: %d channels, %d samples", es.Channels, es.Samples)
	}
	if es.EvokedChannels < 0 || es.EvokedChannels > es.Channels {
		return nil, fmt.Errorf("evoked channels must be in [0, %d]: %d", es.Channels, es.EvokedChannels)
	}
	if es.Noise < 0 {
		return nil, fmt.Errorf("noise must be >= 0: %f", es.Noise)
	}
	if len(es.Conditions) == 0 {
		return nil, fmt.Errorf("at least one condition is required")
	}

	template, err := g.Burst(es.FreqHz, 1, es.Samples)
	if err != nil {
		return nil, err
	}

	remaining := make([]int, len(es.Conditions))
	eventID := make(map[string]int, len(es.Conditions))
	total := 0
	for i, c := range es.Conditions {
		if c.Trials <= 0 {
			return nil, fmt.Errorf("condition %q needs trials > 0: %d", c.Label, c.Trials)
		}
		remaining[i] = c.Trials
		eventID[c.Label] = c.ID
		total += c.Trials
	}

	rng := rand.New(rand.NewSource(g.seed))
	data := make([]float64, 0, total*es.Channels*es.Samples)
	events := make([]epochs.Event, 0, total)
	stride := int(g.cfg.SampleRate)
	for len(events) < total {
		for ci, c := range es.Conditions {
			if remaining[ci] == 0 {
				continue
			}
			remaining[ci]--
			events = append(events, epochs.Event{Sample: len(events) * stride, ID: c.ID})
			for ch := range es.Channels {
				gain := 0.0
				if ch < es.EvokedChannels {
					gain = c.Amplitude * (1 - 0.5*float64(ch)/float64(es.EvokedChannels))
				}
				for s := range es.Samples {
					data = append(data, gain*template[s]+es.Noise*rng.NormFloat64())
				}
			}
		}
	}

	return epochs.New(total, es.Channels, es.Samples, data,
		epochs.WithEvents(events, eventID),
		epochs.WithMetadata(core.WithSampleRate(g.cfg.SampleRate), core.WithTMin(g.cfg.TMin)),
	)
}
