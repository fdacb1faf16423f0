package jd

import (
	"fmt"

	"github.com/cwbudde/algo-jd/epochs"
	"github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/mat"
)

// Flatten reshapes a (trial, channel, sample) tensor to a
// (trial·sample, channel) matrix. Row trial·samples+sample holds all channels
// at that sample, so samples vary fastest within each trial block.
func Flatten(ep *epochs.Epochs) *mat.Dense {
	trials, channels, samples := ep.Shape()
	data := make([]float64, trials*samples*channels)
	for tr := range trials {
		base := tr * samples * channels
		for ch := range channels {
			for s, v := range ep.Row(tr, ch) {
				data[base+s*channels+ch] = v
			}
		}
	}
	return mat.NewDense(trials*samples, channels, data)
}

// unflatten inverts Flatten for a (trials·samples, k) matrix and returns the
// flat (trial, k, sample) tensor.
func unflatten(y *mat.Dense, trials, samples int) []float64 {
	_, k := y.Dims()
	out := make([]float64, trials*k*samples)
	for tr := range trials {
		for s := range samples {
			row := y.RawRowView(tr*samples + s)
			for c, v := range row {
				out[(tr*k+c)*samples+s] = v
			}
		}
	}
	return out
}

func (d *Decomposition) check(ep *epochs.Epochs) error {
	if d == nil || d.unmixing == nil {
		return ErrNotFitted
	}
	if ep.Channels() != d.channels {
		return fmt.Errorf("%w: fitted on %d channels, got %d", ErrDimensionMismatch, d.channels, ep.Channels())
	}
	return nil
}

// Components returns ep projected onto the retained components, shaped
// (trial, component, sample). Events and metadata are carried over and the
// component channels are named JD001, JD002, …
func (d *Decomposition) Components(ep *epochs.Epochs) (*epochs.Epochs, error) {
	if err := d.check(ep); err != nil {
		return nil, err
	}
	var y mat.Dense
	y.Mul(Flatten(ep), d.unmixing)

	k := d.Len()
	names := make([]string, k)
	for i := range names {
		names[i] = fmt.Sprintf("JD%03d", i+1)
	}
	return ep.Derive(k, names, unflatten(&y, ep.Trials(), ep.Samples()))
}

// Reproject maps ep to the components and straight back to channel space,
// which removes everything outside the retained components. The result has
// the shape and channel names of ep.
func (d *Decomposition) Reproject(ep *epochs.Epochs) (*epochs.Epochs, error) {
	if err := d.check(ep); err != nil {
		return nil, err
	}
	var x mat.Dense
	x.Product(Flatten(ep), d.unmixing, d.mixing)
	return ep.Derive(d.channels, ep.ChannelNames(), unflatten(&x, ep.Trials(), ep.Samples()))
}

// EvokedPower returns, per component, the power of the trial-averaged
// component waveform divided by the mean single-trial power. The ratio is 1
// for a perfectly repeatable response and about 1/trials for pure noise.
func (d *Decomposition) EvokedPower(ep *epochs.Epochs) ([]float64, error) {
	comps, err := d.Components(ep)
	if err != nil {
		return nil, err
	}
	trials, k, _ := comps.Shape()
	avg := comps.Average()

	out := make([]float64, k)
	for c := range k {
		w := avg.RawRowView(c)
		evoked := vecmath.DotProduct(w, w)
		var total float64
		for tr := range trials {
			row := comps.Row(tr, c)
			total += vecmath.DotProduct(row, row)
		}
		total /= float64(trials)
		if total > 0 {
			out[c] = evoked / total
		}
	}
	return out, nil
}
