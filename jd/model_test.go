package jd

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/cwbudde/algo-jd/dsp/signal"
	"github.com/cwbudde/algo-jd/epochs"
	"github.com/cwbudde/algo-jd/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestParseKind(t *testing.T) {
	k, err := ParseKind("Evoked")
	require.NoError(t, err)
	assert.Equal(t, Evoked, k)

	k, err = ParseKind(" difference ")
	require.NoError(t, err)
	assert.Equal(t, Difference, k)
	assert.Equal(t, "difference", k.String())

	_, err = ParseKind("invalid")
	require.ErrorIs(t, err, ErrInvalidKind)
}

func TestNewInvalidKind(t *testing.T) {
	_, err := New(Kind(0))
	require.ErrorIs(t, err, ErrInvalidKind)
	_, err = New(Kind(7))
	require.ErrorIs(t, err, ErrInvalidKind)
}

func TestProjectionBeforeFit(t *testing.T) {
	ep := evokedEpochs(t, 1)
	m, err := New(Evoked)
	require.NoError(t, err)

	_, err = m.Components(ep)
	require.ErrorIs(t, err, ErrNotFitted)
	_, err = m.Reproject(ep)
	require.ErrorIs(t, err, ErrNotFitted)
	_, err = m.Decomposition()
	require.ErrorIs(t, err, ErrNotFitted)

	var d *Decomposition
	_, err = d.Components(ep)
	require.ErrorIs(t, err, ErrNotFitted)
	_, err = d.EvokedPower(ep)
	require.ErrorIs(t, err, ErrNotFitted)
}

func TestFitOptionErrors(t *testing.T) {
	ep := evokedEpochs(t, 1)
	m, err := New(Evoked)
	require.NoError(t, err)

	tests := []struct {
		name string
		opts []FitOption
		want error
	}{
		{"keep1 above channels", []FitOption{WithKeep1(testChannels + 1)}, ErrRank},
		{"keep2 above keep1", []FitOption{WithKeep1(3), WithKeep2(4)}, ErrRank},
		{"zero keep", []FitOption{WithKeep2(0)}, ErrInvalidOption},
		{"same conditions", []FitOption{WithConditions("stim", "stim")}, ErrInvalidOption},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Fit(ep, tt.opts...)
			require.ErrorIs(t, err, tt.want)
			_, err = m.Decomposition()
			require.ErrorIs(t, err, ErrNotFitted, "failed fit must not leave a fitted state")
		})
	}
}

func TestFailedFitKeepsPreviousState(t *testing.T) {
	ep := evokedEpochs(t, 2)
	m, err := New(Evoked)
	require.NoError(t, err)

	first, err := m.Fit(ep, WithKeep2(4))
	require.NoError(t, err)

	_, err = m.Fit(ep, WithKeep1(testChannels*2))
	require.ErrorIs(t, err, ErrRank)

	current, err := m.Decomposition()
	require.NoError(t, err)
	assert.Same(t, first, current)
	assert.Equal(t, 4, current.Len())
}

func TestRefitReplacesState(t *testing.T) {
	ep := evokedEpochs(t, 2)
	m, err := New(Evoked)
	require.NoError(t, err)

	_, err = m.Fit(ep, WithKeep2(4))
	require.NoError(t, err)
	second, err := m.Fit(ep, WithKeep1(5), WithKeep2(2))
	require.NoError(t, err)

	current, err := m.Decomposition()
	require.NoError(t, err)
	assert.Same(t, second, current)
	assert.Equal(t, 2, current.Len())
	assert.Len(t, current.Stages(), 1)
}

func TestFitDefaults(t *testing.T) {
	ep := evokedEpochs(t, 3)
	m, err := New(Evoked)
	require.NoError(t, err)

	d, err := m.Fit(ep)
	require.NoError(t, err)
	assert.Equal(t, Evoked, d.Kind())
	assert.Equal(t, testChannels, d.Channels())
	assert.Equal(t, testChannels, d.Len())

	r, c := d.Unmixing().Dims()
	assert.Equal(t, []int{testChannels, testChannels}, []int{r, c})
	r, c = d.Mixing().Dims()
	assert.Equal(t, []int{testChannels, testChannels}, []int{r, c})
}

func TestFitDeterministic(t *testing.T) {
	ep := evokedEpochs(t, 4)
	fit := func() *Decomposition {
		m, err := New(Evoked)
		require.NoError(t, err)
		d, err := m.Fit(ep, WithKeep1(6), WithKeep2(3))
		require.NoError(t, err)
		return d
	}
	a, b := fit(), fit()

	testutil.RequireSameSubspace(t, a.Unmixing(), b.Unmixing(), 1e-9)

	// The reprojection operator does not depend on eigenvector signs.
	var ra, rb mat.Dense
	ra.Mul(a.Unmixing(), a.Mixing())
	rb.Mul(b.Unmixing(), b.Mixing())
	testutil.RequireMatrixNearlyEqual(t, &ra, &rb, 1e-9)
}

func TestEvokedRanksResponseFirst(t *testing.T) {
	ep := evokedEpochs(t, 5)
	m, err := New(Evoked)
	require.NoError(t, err)
	d, err := m.Fit(ep)
	require.NoError(t, err)

	bias := d.BiasPower()
	for i := 1; i < len(bias); i++ {
		require.GreaterOrEqual(t, bias[i-1], bias[i])
	}

	power, err := d.EvokedPower(ep)
	require.NoError(t, err)
	require.Len(t, power, testChannels)
	assert.Greater(t, power[0], 0.5, "top component should be dominated by the response")
	assert.Less(t, power[len(power)-1], 0.1, "last component should be noise")
	assert.Greater(t, power[0], 5*power[len(power)-1])

	// The top spatial filter should weight the responsive channels.
	u := d.Unmixing()
	var onEvoked, total float64
	for ch := range testChannels {
		w := u.At(ch, 0)
		total += w * w
		if ch < testEvoked {
			onEvoked += w * w
		}
	}
	assert.Greater(t, onEvoked/total, 0.8)
}

func TestDifferenceSeparatesMeanShift(t *testing.T) {
	fitTop := func(ep *epochs.Epochs) float64 {
		m, err := New(Difference)
		require.NoError(t, err)
		d, err := m.Fit(ep)
		require.NoError(t, err)
		require.Len(t, d.Stages(), 2)
		return d.BiasPower()[0]
	}

	shifted := fitTop(contrastEpochs(t, 6, 3, 0))
	identical := fitTop(contrastEpochs(t, 6, 3, 3))
	assert.Greater(t, shifted, 5*identical,
		"shifted conditions %v should dominate identical conditions %v", shifted, identical)
}

func TestDifferenceComposition(t *testing.T) {
	ep := contrastEpochs(t, 7, 2, 0)
	m, err := New(Difference)
	require.NoError(t, err)
	d, err := m.Fit(ep, WithKeep1(6), WithKeep2(4), WithKeep3(2))
	require.NoError(t, err)

	assert.Equal(t, 2, d.Len())
	r, c := d.Unmixing().Dims()
	assert.Equal(t, []int{testChannels, 2}, []int{r, c})

	stages := d.Stages()
	require.Len(t, stages, 2)
	var want mat.Dense
	want.Product(stages[0].Unmixing(), stages[1].Unmixing())
	testutil.RequireMatrixNearlyEqual(t, d.Unmixing(), &want, 1e-10)
	want.Reset()
	want.Product(stages[1].Mixing(), stages[0].Mixing())
	testutil.RequireMatrixNearlyEqual(t, d.Mixing(), &want, 1e-10)

	var mu mat.Dense
	mu.Mul(d.Mixing(), d.Unmixing())
	testutil.RequireMatrixNearlyEqual(t, &mu, eye(2), 1e-9)
}

func TestDifferenceConditionSelection(t *testing.T) {
	two := contrastEpochs(t, 8, 2, 0)
	three := synth(t, 8,
		signal.Condition{Label: "A", ID: 1, Trials: 20, Amplitude: 2},
		signal.Condition{Label: "B", ID: 2, Trials: 20, Amplitude: 0},
		signal.Condition{Label: "C", ID: 3, Trials: 20, Amplitude: 1},
	)

	m, err := New(Difference)
	require.NoError(t, err)

	_, err = m.Fit(evokedEpochs(t, 8))
	require.ErrorIs(t, err, ErrAmbiguousConditions)

	_, err = m.Fit(three)
	require.ErrorIs(t, err, ErrAmbiguousConditions)

	_, err = m.Fit(three, WithConditions("A", "C"))
	require.NoError(t, err)

	_, err = m.Fit(two, WithConditions("A", "missing"))
	require.ErrorIs(t, err, epochs.ErrUnknownCondition)
}

func TestDifferenceConditionOrderIsIrrelevant(t *testing.T) {
	ep := contrastEpochs(t, 9, 3, 0)
	fit := func(a, b string) *Decomposition {
		m, err := New(Difference)
		require.NoError(t, err)
		d, err := m.Fit(ep, WithConditions(a, b), WithKeep3(1))
		require.NoError(t, err)
		return d
	}
	ab, ba := fit("A", "B"), fit("B", "A")
	testutil.RequireSameSubspace(t, ab.Unmixing(), ba.Unmixing(), 1e-6)
}

// The duplicated selection stacks the first condition twice and contrasts
// it with itself, so the signed filter cancels everything.
func TestDifferenceDuplicatedFirstCondition(t *testing.T) {
	ep := contrastEpochs(t, 10, 3, 0)
	m, err := New(Difference)
	require.NoError(t, err)

	fixed, err := m.Fit(ep)
	require.NoError(t, err)
	assert.Greater(t, fixed.BiasPower()[0], 1.0)

	dup, err := m.Fit(ep, WithDuplicatedFirstCondition())
	require.NoError(t, err)
	for _, v := range dup.BiasPower() {
		assert.Less(t, v, 1e-8)
	}

	uneven := synth(t, 10,
		signal.Condition{Label: "A", ID: 1, Trials: 20, Amplitude: 3},
		signal.Condition{Label: "B", ID: 2, Trials: 25, Amplitude: 0},
	)
	_, err = m.Fit(uneven, WithDuplicatedFirstCondition())
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestFitLogsStages(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	m, err := New(Difference, WithLogger(logger))
	require.NoError(t, err)

	_, err = m.Fit(contrastEpochs(t, 11, 2, 0))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "detrending data")
	assert.Contains(t, out, "stage=1")
	assert.Contains(t, out, "stage=2")
}
