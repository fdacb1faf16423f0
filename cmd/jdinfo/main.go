// Command jdinfo fits Joint Decorrelation to a synthetic multi-trial dataset
// and prints the resulting components.
//
// Usage:
//
//	jdinfo [flags]
//
// The dataset has a time-locked burst on the first -evoked channels and
// Gaussian noise on all channels. In difference mode a second condition with
// burst amplitude -amp2 is added.
//
// Examples:
//
//	jdinfo
//	jdinfo -channels 32 -evoked 4 -keep1 20 -keep2 5
//	jdinfo -kind difference -amp 2 -amp2 0.5
//	jdinfo -bootstrap 200 -alpha 0.05
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/cwbudde/algo-jd/dsp/core"
	"github.com/cwbudde/algo-jd/dsp/signal"
	"github.com/cwbudde/algo-jd/jd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

type config struct {
	kind       string
	trials     int
	channels   int
	samples    int
	sampleRate float64
	evoked     int
	freq       float64
	amp        float64
	amp2       float64
	noise      float64
	keep1      int
	keep2      int
	keep3      int
	seed       int64
	bootstrap  int
	alpha      float64
}

func main() {
	var cfg config
	flag.StringVar(&cfg.kind, "kind", "evoked", "bias to maximize: evoked or difference")
	flag.IntVar(&cfg.trials, "trials", 60, "trials per condition")
	flag.IntVar(&cfg.channels, "channels", 16, "channel count")
	flag.IntVar(&cfg.samples, "samples", 200, "samples per trial")
	flag.Float64Var(&cfg.sampleRate, "rate", 250, "sample rate in Hz")
	flag.IntVar(&cfg.evoked, "evoked", 3, "channels carrying the response")
	flag.Float64Var(&cfg.freq, "freq", 6, "response frequency in Hz")
	flag.Float64Var(&cfg.amp, "amp", 1, "response amplitude (first condition)")
	flag.Float64Var(&cfg.amp2, "amp2", 0, "response amplitude of the second condition (difference mode)")
	flag.Float64Var(&cfg.noise, "noise", 1, "noise standard deviation")
	flag.IntVar(&cfg.keep1, "keep1", 0, "components kept before whitening (0 = channels)")
	flag.IntVar(&cfg.keep2, "keep2", 0, "components kept after the first rotation (0 = keep1)")
	flag.IntVar(&cfg.keep3, "keep3", 0, "components kept after the difference rotation (0 = keep2)")
	flag.Int64Var(&cfg.seed, "seed", 1, "random seed for data and resampling")
	flag.IntVar(&cfg.bootstrap, "bootstrap", 0, "bootstrap resamples for confidence bands (evoked only, 0 = off)")
	flag.Float64Var(&cfg.alpha, "alpha", 0.05, "bootstrap significance level")
	verbose := flag.Bool("v", false, "log fitting details to stderr")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: jdinfo [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Fits Joint Decorrelation to synthetic epochs and prints the components.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(context.Background(), cfg, os.Stdout, logger); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config, out io.Writer, logger *slog.Logger) error {
	kind, err := jd.ParseKind(cfg.kind)
	if err != nil {
		return err
	}

	conditions := []signal.Condition{{Label: "A", ID: 1, Trials: cfg.trials, Amplitude: cfg.amp}}
	if kind == jd.Difference {
		conditions = append(conditions, signal.Condition{Label: "B", ID: 2, Trials: cfg.trials, Amplitude: cfg.amp2})
	}
	g := signal.NewGeneratorWithOptions([]core.EpochOption{core.WithSampleRate(cfg.sampleRate)}, signal.WithSeed(cfg.seed))
	ep, err := g.Epochs(signal.EpochSpec{
		Channels:       cfg.channels,
		Samples:        cfg.samples,
		EvokedChannels: cfg.evoked,
		FreqHz:         cfg.freq,
		Noise:          cfg.noise,
		Conditions:     conditions,
	})
	if err != nil {
		return fmt.Errorf("synthesize epochs: %w", err)
	}

	model, err := jd.New(kind, jd.WithLogger(logger))
	if err != nil {
		return err
	}
	var fitOpts []jd.FitOption
	if cfg.keep1 > 0 {
		fitOpts = append(fitOpts, jd.WithKeep1(cfg.keep1))
	}
	if cfg.keep2 > 0 {
		fitOpts = append(fitOpts, jd.WithKeep2(cfg.keep2))
	}
	if cfg.keep3 > 0 {
		fitOpts = append(fitOpts, jd.WithKeep3(cfg.keep3))
	}
	d, err := model.Fit(ep, fitOpts...)
	if err != nil {
		return err
	}
	power, err := d.EvokedPower(ep)
	if err != nil {
		return err
	}

	var widths []float64
	if cfg.bootstrap > 0 {
		band, err := model.Bootstrap(ctx, ep,
			jd.WithResamples(cfg.bootstrap),
			jd.WithBootstrapKeep(cfg.keep1, cfg.keep2),
			jd.WithAlpha(cfg.alpha),
			jd.WithRand(rand.New(rand.NewSource(cfg.seed))),
		)
		if err != nil {
			return err
		}
		w := band.Width()
		rows, _ := w.Dims()
		widths = make([]float64, rows)
		for i := range widths {
			widths[i] = stat.Mean(mat.Row(nil, i, w), nil)
		}
	}

	trials, channels, samples := ep.Shape()
	if _, err := fmt.Fprintf(out, "%s: %d trials, %d channels, %d samples, %d components\n",
		kind, trials, channels, samples, d.Len()); err != nil {
		return err
	}
	if err := printConditions(out, ep.Conditions(), ep.EventID()); err != nil {
		return err
	}
	return printComponents(out, d.BiasPower(), power, widths)
}

func printConditions(out io.Writer, labels []string, codes map[string]int) error {
	parts := make([]string, len(labels))
	for i, label := range labels {
		parts[i] = fmt.Sprintf("%s=%d", label, codes[label])
	}
	_, err := fmt.Fprintf(out, "conditions: %s\n\n", strings.Join(parts, ", "))
	return err
}

func printComponents(out io.Writer, bias, power, widths []float64) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	header := "Component\tBias power\tEvoked ratio"
	rule := "---------\t----------\t------------"
	if widths != nil {
		header += "\tMean CI width"
		rule += "\t-------------"
	}
	if _, err := fmt.Fprintf(tw, "%s\n%s\n", header, rule); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := range bias {
		line := fmt.Sprintf("JD%03d\t%.4f\t%.4f", i+1, bias[i], power[i])
		if widths != nil {
			line += fmt.Sprintf("\t%.4f", widths[i])
		}
		if _, err := fmt.Fprintln(tw, line); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	return tw.Flush()
}
