package epochs

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/cwbudde/algo-jd/dsp/core"
	"github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrEmpty            = errors.New("epochs: trials, channels and samples must be positive")
	ErrShape            = errors.New("epochs: data length does not match shape")
	ErrChannelNames     = errors.New("epochs: channel name count does not match channel count")
	ErrEvents           = errors.New("epochs: event count does not match trial count")
	ErrUnknownCondition = errors.New("epochs: unknown condition")
	ErrIndex            = errors.New("epochs: trial index out of range")
	ErrIncompatible     = errors.New("epochs: incompatible channel or sample count")
)

// Event marks the onset of one trial. The layout follows the common
// three-column event array: onset sample, previous trigger value, event code.
type Event struct {
	Sample   int
	Previous int
	ID       int
}

// Epochs is a (trial, channel, sample) tensor with trial metadata.
type Epochs struct {
	trials   int
	channels int
	samples  int
	data     []float64

	cfg          core.EpochConfig
	channelNames []string
	events       []Event
	eventID      map[string]int
}

// Option configures an Epochs container at construction time.
type Option func(*Epochs)

// WithMetadata applies acquisition metadata options (sample rate, tmin).
func WithMetadata(opts ...core.EpochOption) Option {
	return func(e *Epochs) {
		for _, opt := range opts {
			if opt != nil {
				opt(&e.cfg)
			}
		}
	}
}

// WithChannelNames sets channel labels. The count is validated by New.
func WithChannelNames(names ...string) Option {
	return func(e *Epochs) {
		e.channelNames = slices.Clone(names)
	}
}

// WithEvents sets the per-trial events and the label → event code mapping.
func WithEvents(events []Event, eventID map[string]int) Option {
	return func(e *Epochs) {
		e.events = slices.Clone(events)
		e.eventID = maps.Clone(eventID)
	}
}

// New wraps data, laid out as (trial, channel, sample) in row-major order.
// The data slice is copied.
//
// Without WithEvents every trial gets event code 1 under the label "1".
// Without WithChannelNames channels are named by their index.
func New(trials, channels, samples int, data []float64, opts ...Option) (*Epochs, error) {
	if trials <= 0 || channels <= 0 || samples <= 0 {
		return nil, fmt.Errorf("%w: got (%d, %d, %d)", ErrEmpty, trials, channels, samples)
	}
	if len(data) != trials*channels*samples {
		return nil, fmt.Errorf("%w: len %d, want %d", ErrShape, len(data), trials*channels*samples)
	}

	e := &Epochs{
		trials:   trials,
		channels: channels,
		samples:  samples,
		data:     slices.Clone(data),
		cfg:      core.DefaultEpochConfig(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	if e.channelNames == nil {
		e.channelNames = indexNames(channels)
	}
	if len(e.channelNames) != channels {
		return nil, fmt.Errorf("%w: %d names for %d channels", ErrChannelNames, len(e.channelNames), channels)
	}

	if e.events == nil {
		e.events = make([]Event, trials)
		for i := range e.events {
			e.events[i] = Event{Sample: i, ID: 1}
		}
		if e.eventID == nil {
			e.eventID = map[string]int{"1": 1}
		}
	}
	if len(e.events) != trials {
		return nil, fmt.Errorf("%w: %d events for %d trials", ErrEvents, len(e.events), trials)
	}
	if e.eventID == nil {
		e.eventID = make(map[string]int)
		for _, ev := range e.events {
			e.eventID[strconv.Itoa(ev.ID)] = ev.ID
		}
	}

	return e, nil
}

// FromTrials builds Epochs from nested [trial][channel][sample] slices.
func FromTrials(trials [][][]float64, opts ...Option) (*Epochs, error) {
	if len(trials) == 0 || len(trials[0]) == 0 || len(trials[0][0]) == 0 {
		return nil, ErrEmpty
	}
	channels := len(trials[0])
	samples := len(trials[0][0])
	data := make([]float64, 0, len(trials)*channels*samples)
	for i, trial := range trials {
		if len(trial) != channels {
			return nil, fmt.Errorf("%w: trial %d has %d channels, want %d", ErrShape, i, len(trial), channels)
		}
		for c, row := range trial {
			if len(row) != samples {
				return nil, fmt.Errorf("%w: trial %d channel %d has %d samples, want %d",
					ErrShape, i, c, len(row), samples)
			}
			data = append(data, row...)
		}
	}
	return New(len(trials), channels, samples, data, opts...)
}

func indexNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = strconv.Itoa(i)
	}
	return names
}

// Shape returns (trials, channels, samples).
func (e *Epochs) Shape() (trials, channels, samples int) {
	return e.trials, e.channels, e.samples
}

// Trials returns the number of trials.
func (e *Epochs) Trials() int { return e.trials }

// Channels returns the number of channels.
func (e *Epochs) Channels() int { return e.channels }

// Samples returns the number of samples per trial.
func (e *Epochs) Samples() int { return e.samples }

// Config returns the acquisition metadata.
func (e *Epochs) Config() core.EpochConfig { return e.cfg }

// SampleRate returns the sampling rate in Hz.
func (e *Epochs) SampleRate() float64 { return e.cfg.SampleRate }

// TMin returns the time of the first sample in seconds.
func (e *Epochs) TMin() float64 { return e.cfg.TMin }

// ChannelNames returns a copy of the channel labels.
func (e *Epochs) ChannelNames() []string { return slices.Clone(e.channelNames) }

// Events returns a copy of the per-trial events.
func (e *Epochs) Events() []Event { return slices.Clone(e.events) }

// EventID returns a copy of the label → event code mapping.
func (e *Epochs) EventID() map[string]int { return maps.Clone(e.eventID) }

// At returns the value at (trial, channel, sample).
func (e *Epochs) At(trial, channel, sample int) float64 {
	return e.data[e.offset(trial, channel)+sample]
}

// Row returns the time series of one trial and channel. The returned slice
// aliases the container and must not be modified.
func (e *Epochs) Row(trial, channel int) []float64 {
	off := e.offset(trial, channel)
	return e.data[off : off+e.samples : off+e.samples]
}

// Data returns a copy of the flat (trial, channel, sample) tensor.
func (e *Epochs) Data() []float64 { return slices.Clone(e.data) }

func (e *Epochs) offset(trial, channel int) int {
	return (trial*e.channels + channel) * e.samples
}

// Times returns the time of each sample in seconds, starting at TMin.
func (e *Epochs) Times() []float64 {
	out := make([]float64, e.samples)
	for i := range out {
		out[i] = e.cfg.TMin + float64(i)/e.cfg.SampleRate
	}
	return out
}

// Clone returns a deep copy.
func (e *Epochs) Clone() *Epochs {
	return e.withData(e.trials, e.channels, slices.Clone(e.data), slices.Clone(e.channelNames), slices.Clone(e.events))
}

func (e *Epochs) withData(trials, channels int, data []float64, names []string, events []Event) *Epochs {
	return &Epochs{
		trials:       trials,
		channels:     channels,
		samples:      e.samples,
		data:         data,
		cfg:          e.cfg,
		channelNames: names,
		events:       events,
		eventID:      maps.Clone(e.eventID),
	}
}

// Subset returns the trials at the given indices, in that order. Indices
// may repeat, which is how bootstrap resampling draws with replacement.
func (e *Epochs) Subset(indices []int) (*Epochs, error) {
	if len(indices) == 0 {
		return nil, fmt.Errorf("%w: empty subset", ErrEmpty)
	}
	block := e.channels * e.samples
	data := make([]float64, 0, len(indices)*block)
	events := make([]Event, 0, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= e.trials {
			return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrIndex, idx, e.trials)
		}
		data = append(data, e.data[idx*block:(idx+1)*block]...)
		events = append(events, e.events[idx])
	}
	return e.withData(len(indices), e.channels, data, slices.Clone(e.channelNames), events), nil
}

// Conditions returns the condition labels ordered by event code, then label.
func (e *Epochs) Conditions() []string {
	labels := slices.Collect(maps.Keys(e.eventID))
	slices.SortFunc(labels, func(a, b string) int {
		if d := e.eventID[a] - e.eventID[b]; d != 0 {
			return d
		}
		if a < b {
			return -1
		}
		if a > b {
			return 1
		}
		return 0
	})
	return labels
}

// ConditionTrials returns the indices of the trials whose event code matches
// label, in trial order.
func (e *Epochs) ConditionTrials(label string) ([]int, error) {
	id, ok := e.eventID[label]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCondition, label)
	}
	var out []int
	for i, ev := range e.events {
		if ev.ID == id {
			out = append(out, i)
		}
	}
	return out, nil
}

// Select returns the trials belonging to any of the given labels, keeping
// their original order.
func (e *Epochs) Select(labels ...string) (*Epochs, error) {
	ids := make(map[int]struct{}, len(labels))
	for _, label := range labels {
		id, ok := e.eventID[label]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCondition, label)
		}
		ids[id] = struct{}{}
	}
	var indices []int
	for i, ev := range e.events {
		if _, ok := ids[ev.ID]; ok {
			indices = append(indices, i)
		}
	}
	if len(indices) == 0 {
		return nil, fmt.Errorf("%w: no trials for %v", ErrEmpty, labels)
	}
	return e.Subset(indices)
}

// Concat stacks the trials of several containers. All parts must share the
// channel and sample counts; metadata and channel names come from the first
// part and the event code mappings are merged.
func Concat(parts ...*Epochs) (*Epochs, error) {
	if len(parts) == 0 {
		return nil, ErrEmpty
	}
	first := parts[0]
	trials := 0
	for _, p := range parts {
		if p.channels != first.channels || p.samples != first.samples {
			return nil, fmt.Errorf("%w: (%d, %d) vs (%d, %d)",
				ErrIncompatible, p.channels, p.samples, first.channels, first.samples)
		}
		trials += p.trials
	}
	data := make([]float64, 0, trials*first.channels*first.samples)
	events := make([]Event, 0, trials)
	out := first.withData(trials, first.channels, nil, slices.Clone(first.channelNames), nil)
	for _, p := range parts {
		data = append(data, p.data...)
		events = append(events, p.events...)
		for k, v := range p.eventID {
			out.eventID[k] = v
		}
	}
	out.data = data
	out.events = events
	return out, nil
}

// Derive builds a container with the same trials, samples, events and
// metadata but a new channel axis. data must be laid out as
// (trial, channel, sample) with the new channel count. Nil names are
// replaced by index labels.
func (e *Epochs) Derive(channels int, names []string, data []float64) (*Epochs, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("%w: %d channels", ErrEmpty, channels)
	}
	if len(data) != e.trials*channels*e.samples {
		return nil, fmt.Errorf("%w: len %d, want %d", ErrShape, len(data), e.trials*channels*e.samples)
	}
	if names == nil {
		names = indexNames(channels)
	}
	if len(names) != channels {
		return nil, fmt.Errorf("%w: %d names for %d channels", ErrChannelNames, len(names), channels)
	}
	return e.withData(e.trials, channels, data, slices.Clone(names), slices.Clone(e.events)), nil
}

// Average returns the across-trial mean as a (channel, sample) matrix.
func (e *Epochs) Average() *mat.Dense {
	block := e.channels * e.samples
	acc := make([]float64, block)
	for i := range e.trials {
		vecmath.AddBlockInPlace(acc, e.data[i*block:(i+1)*block])
	}
	vecmath.ScaleBlockInPlace(acc, 1/float64(e.trials))
	return mat.NewDense(e.channels, e.samples, acc)
}
