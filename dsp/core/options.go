package core

// EpochConfig holds the acquisition metadata that travels with a trial tensor.
// It is carried through every transform untouched; no computation depends on
// it except time-axis construction.
type EpochConfig struct {
	SampleRate float64
	TMin       float64 // time of the first sample relative to the event, in seconds
}

// EpochOption mutates an EpochConfig.
type EpochOption func(*EpochConfig)

// DefaultEpochConfig returns defaults for epochs without explicit metadata.
func DefaultEpochConfig() EpochConfig {
	return EpochConfig{
		SampleRate: 1000,
		TMin:       0,
	}
}

// WithSampleRate sets the sampling rate in Hz.
func WithSampleRate(sampleRate float64) EpochOption {
	return func(cfg *EpochConfig) {
		if sampleRate > 0 {
			cfg.SampleRate = sampleRate
		}
	}
}

// WithTMin sets the time offset of the first sample in seconds.
func WithTMin(tmin float64) EpochOption {
	return func(cfg *EpochConfig) {
		cfg.TMin = tmin
	}
}

// ApplyEpochOptions applies zero or more options to the default config.
func ApplyEpochOptions(opts ...EpochOption) EpochConfig {
	cfg := DefaultEpochConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
