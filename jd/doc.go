// Package jd implements Joint Decorrelation (de Cheveigné & Parra, 2014) for
// multi-trial, multi-channel recordings.
//
// Joint Decorrelation finds linear combinations of channels that maximize a
// "biased" power relative to total power: the power of the trial average
// (Evoked) or the power of the difference between the averages of two
// conditions (Difference). Each reduction stage is a pair of symmetric
// eigendecompositions: the first rotates and whitens the data, the second
// diagonalizes the bias-filtered covariance of the whitened data.
//
// A fitted Decomposition holds the unmixing matrix (channels → components)
// and the mixing matrix (components → channels). Projecting data through the
// unmixing matrix yields components; passing the components back through the
// mixing matrix yields a spatially filtered copy of the input that keeps only
// the retained components.
//
// Bootstrap estimates percentile confidence bands for the trial-averaged
// Evoked components by refitting on trials resampled with replacement.
package jd
