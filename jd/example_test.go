package jd_test

import (
	"fmt"

	"github.com/cwbudde/algo-jd/dsp/core"
	"github.com/cwbudde/algo-jd/dsp/signal"
	"github.com/cwbudde/algo-jd/jd"
)

func ExampleModel_Fit() {
	g := signal.NewGeneratorWithOptions([]core.EpochOption{core.WithSampleRate(250)}, signal.WithSeed(1))
	ep, err := g.Epochs(signal.EpochSpec{
		Channels:       16,
		Samples:        125,
		EvokedChannels: 4,
		FreqHz:         8,
		Noise:          1,
		Conditions:     []signal.Condition{{Label: "tone", ID: 1, Trials: 50, Amplitude: 2}},
	})
	if err != nil {
		panic(err)
	}

	model, err := jd.New(jd.Evoked)
	if err != nil {
		panic(err)
	}
	if _, err := model.Fit(ep, jd.WithKeep1(12), jd.WithKeep2(3)); err != nil {
		panic(err)
	}

	comps, err := model.Components(ep)
	if err != nil {
		panic(err)
	}
	filtered, err := model.Reproject(ep)
	if err != nil {
		panic(err)
	}

	fmt.Println(comps.Shape())
	fmt.Println(filtered.Shape())

	// Output:
	// 50 3 125
	// 50 16 125
}

func ExampleParseKind() {
	_, err := jd.ParseKind("invalid")
	fmt.Println(err)

	// Output:
	// jd: kind must be either "evoked" or "difference": "invalid"
}
