// Package epochs provides a container for multi-trial, multi-channel time
// series such as EEG/MEG epochs. Data is stored as a flat row-major tensor
// with axes (trial, channel, sample), together with the per-trial event
// list, the mapping from condition label to event code, the sampling rate
// and the time of the first sample.
//
// Epochs values are treated as immutable: every transform (Subset, Select,
// Concat, Detrended, Derive) returns a new container.
package epochs
