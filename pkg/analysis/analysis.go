// Package analysis computes the derived data stored alongside captured RF
// waveforms: descriptive statistics and a one-sided power spectral density
// estimate.
package analysis

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SampleCount is the fixed number of samples in a scope capture.
const SampleCount = 8192

// Scalar metric names as stored in waveform_sdata.
var ScalarNames = []string{
	"minimum",
	"maximum",
	"peak_to_peak",
	"mean",
	"median",
	"standard_deviation",
	"rms",
	"25th_quartile",
	"75th_quartile",
	"dominant_frequency",
}

// Array names as stored in waveform_adata, not counting the raw trace.
var ArrayNames = []string{"power_spectrum", "frequencies"}

// Summary holds the derived data computed for one waveform.
type Summary struct {
	Scalars map[string]float64
	Arrays  map[string][]float64
}

// Analyze computes the scalar metrics and spectral arrays for one captured
// trace. samples must hold exactly SampleCount values and sampleRateHz must
// be positive.
func Analyze(samples []float64, sampleRateHz float64) (*Summary, error) {
	if len(samples) != SampleCount {
		return nil, fmt.Errorf("expected %d samples, got %d", SampleCount, len(samples))
	}
	if sampleRateHz <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %v", sampleRateHz)
	}

	lo := floats.Min(samples)
	hi := floats.Max(samples)
	mean := stat.Mean(samples, nil)

	sorted := slices.Clone(samples)
	slices.Sort(sorted)

	var sumSquares float64
	for _, v := range samples {
		sumSquares += v * v
	}

	freqs, power := Periodogram(samples, sampleRateHz)

	scalars := map[string]float64{
		"minimum":            lo,
		"maximum":            hi,
		"peak_to_peak":       hi - lo,
		"mean":               mean,
		"median":             quantile(sorted, 0.5),
		"standard_deviation": stat.PopStdDev(samples, nil),
		"rms":                math.Sqrt(sumSquares / float64(len(samples))),
		"25th_quartile":      quantile(sorted, 0.25),
		"75th_quartile":      quantile(sorted, 0.75),
		"dominant_frequency": freqs[floats.MaxIdx(power)],
	}

	arrays := map[string][]float64{
		"power_spectrum": power,
		"frequencies":    freqs,
	}

	return &Summary{Scalars: scalars, Arrays: arrays}, nil
}

// quantile returns the p-th quantile of sorted, interpolating linearly
// between the order statistics that bracket position p*(n-1).
func quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// Periodogram estimates the one-sided power spectral density of x sampled
// at fs Hz: rectangular window, constant detrend, density scaling. Interior
// bins carry the energy of their negative-frequency twins, so they are
// doubled; the DC bin is not, and neither is the Nyquist bin when len(x)
// is even. Both returned slices have len(x)/2+1 entries.
func Periodogram(x []float64, fs float64) (freqs, power []float64) {
	n := len(x)
	mean := stat.Mean(x, nil)
	detrended := make([]float64, n)
	for i, v := range x {
		detrended[i] = v - mean
	}

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, detrended)

	power = make([]float64, len(coeffs))
	scale := 1 / (fs * float64(n))
	for k, c := range coeffs {
		p := (real(c)*real(c) + imag(c)*imag(c)) * scale
		if k > 0 && (n%2 == 1 || k < n/2) {
			p *= 2
		}
		power[k] = p
	}

	return FrequencyRange(fs, n), power
}

// FrequencyRange returns the frequency bin centers of an n-point one-sided
// spectrum at the given sample rate: k*fs/n for k = 0..n/2.
func FrequencyRange(sampleRateHz float64, n int) []float64 {
	if n < 1 {
		return nil
	}
	freqs := make([]float64, n/2+1)
	for k := range freqs {
		freqs[k] = float64(k) * sampleRateHz / float64(n)
	}
	return freqs
}
