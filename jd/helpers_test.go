package jd

import (
	"testing"

	"github.com/cwbudde/algo-jd/dsp/core"
	"github.com/cwbudde/algo-jd/dsp/signal"
	"github.com/cwbudde/algo-jd/epochs"
	"github.com/stretchr/testify/require"
)

const (
	testChannels = 8
	testSamples  = 100
	testEvoked   = 3
)

func synth(t testing.TB, seed int64, conditions ...signal.Condition) *epochs.Epochs {
	t.Helper()
	g := signal.NewGeneratorWithOptions(
		[]core.EpochOption{core.WithSampleRate(250), core.WithTMin(-0.1)},
		signal.WithSeed(seed),
	)
	e, err := g.Epochs(signal.EpochSpec{
		Channels:       testChannels,
		Samples:        testSamples,
		EvokedChannels: testEvoked,
		FreqHz:         10,
		Noise:          1,
		Conditions:     conditions,
	})
	require.NoError(t, err)
	return e
}

// evokedEpochs returns 40 trials with a strong response on the first three
// channels.
func evokedEpochs(t testing.TB, seed int64) *epochs.Epochs {
	return synth(t, seed, signal.Condition{Label: "stim", ID: 1, Trials: 40, Amplitude: 3})
}

// contrastEpochs returns 30 trials per condition with the given response
// amplitudes.
func contrastEpochs(t testing.TB, seed int64, ampA, ampB float64) *epochs.Epochs {
	return synth(t, seed,
		signal.Condition{Label: "A", ID: 1, Trials: 30, Amplitude: ampA},
		signal.Condition{Label: "B", ID: 2, Trials: 30, Amplitude: ampB},
	)
}
