package analysis

import (
	"math"
	"testing"
)

// referenceTone reproduces a capture used to pin down the metric
// definitions: a 6.103 Hz cosine of amplitude 0.5 around offset 1, sampled
// 8192 times over 1638.2 ms.
func referenceTone() []float64 {
	samples := make([]float64, SampleCount)
	step := 1638.2 / float64(SampleCount-1)
	for i := range samples {
		ti := float64(i) * step / 1000.0
		samples[i] = 0.5*math.Cos(2*math.Pi*6.103*ti) + 1.0
	}
	return samples
}

func TestAnalyzeReference(t *testing.T) {
	summary, err := Analyze(referenceTone(), 5000)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	want := map[string]float64{
		"minimum":            0.5,
		"maximum":            1.5,
		"peak_to_peak":       1.0,
		"mean":               0.9999577572666067,
		"median":             0.9999629292071286,
		"standard_deviation": 0.3535384535785386,
		"rms":                1.0606153659439252,
		"25th_quartile":      0.6464856093668832,
		"75th_quartile":      1.3534360761155124,
		"dominant_frequency": 6.103515625,
	}

	if len(summary.Scalars) != len(ScalarNames) {
		t.Errorf("len(Scalars) = %d, want %d", len(summary.Scalars), len(ScalarNames))
	}
	for _, name := range ScalarNames {
		got, ok := summary.Scalars[name]
		if !ok {
			t.Errorf("Scalars missing %q", name)
			continue
		}
		if math.Abs(got-want[name]) > 1e-9 {
			t.Errorf("%s = %.16g, want %.16g", name, got, want[name])
		}
	}

	for _, name := range ArrayNames {
		data, ok := summary.Arrays[name]
		if !ok {
			t.Errorf("Arrays missing %q", name)
			continue
		}
		if len(data) != SampleCount/2+1 {
			t.Errorf("len(Arrays[%q]) = %d, want %d", name, len(data), SampleCount/2+1)
		}
	}
}

func TestAnalyzeErrors(t *testing.T) {
	if _, err := Analyze(make([]float64, 100), 5000); err == nil {
		t.Error("Analyze should reject a short trace")
	}
	if _, err := Analyze(make([]float64, SampleCount), 0); err == nil {
		t.Error("Analyze should reject a zero sample rate")
	}
	if _, err := Analyze(make([]float64, SampleCount), -1); err == nil {
		t.Error("Analyze should reject a negative sample rate")
	}
}

func TestQuantile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}

	tests := []struct {
		p    float64
		want float64
	}{
		{0, 1},
		{0.25, 1.75}, // interpolated at position p*(n-1)
		{0.5, 2.5},
		{0.75, 3.25},
		{1, 4},
	}
	for _, tt := range tests {
		if got := quantile(sorted, tt.p); got != tt.want {
			t.Errorf("quantile(%v, %v) = %v, want %v", sorted, tt.p, got, tt.want)
		}
	}

	if got := quantile([]float64{5}, 0.5); got != 5 {
		t.Errorf("quantile of one element = %v, want 5", got)
	}
}

func TestPeriodogramTone(t *testing.T) {
	// A tone centered on bin 10 puts all its energy in that bin
	const fs = 5000.0
	const bin = 10
	freq := bin * fs / SampleCount

	x := make([]float64, SampleCount)
	for i := range x {
		x[i] = 0.5*math.Cos(2*math.Pi*freq*float64(i)/fs) + 1.0
	}

	freqs, power := Periodogram(x, fs)
	if len(power) != SampleCount/2+1 {
		t.Fatalf("len(power) = %d, want %d", len(power), SampleCount/2+1)
	}

	peak := 0
	for k := range power {
		if power[k] > power[peak] {
			peak = k
		}
	}
	if peak != bin {
		t.Errorf("peak at bin %d, want %d", peak, bin)
	}
	if freqs[peak] != freq {
		t.Errorf("peak frequency = %v, want %v", freqs[peak], freq)
	}

	// The offset is removed by detrending, so the DC bin stays empty
	if power[0] > 1e-12 {
		t.Errorf("power[0] = %g, want ~0 after detrend", power[0])
	}

	// One-sided density: total power times bin width gives the variance,
	// A^2/2 = 0.125 for amplitude 0.5
	var total float64
	for _, p := range power {
		total += p
	}
	if got := total * fs / SampleCount; math.Abs(got-0.125) > 1e-9 {
		t.Errorf("integrated density = %v, want 0.125", got)
	}
}

func TestPeriodogramNyquistEven(t *testing.T) {
	// Alternating samples concentrate all energy in the Nyquist bin,
	// which is not doubled when n is even.
	x := []float64{1, -1, 1, -1, 1, -1, 1, -1}

	_, power := Periodogram(x, 8)
	if len(power) != 5 {
		t.Fatalf("len(power) = %d, want 5", len(power))
	}

	if math.Abs(power[4]-1.0) > 1e-12 {
		t.Errorf("power[4] = %v, want 1", power[4])
	}

	// Integrated density equals the variance of a +/-1 signal
	var total float64
	for _, p := range power {
		total += p
	}
	if got := total * 8.0 / 8.0; math.Abs(got-1.0) > 1e-12 {
		t.Errorf("integrated density = %v, want 1", got)
	}
}

func TestPeriodogramOddLength(t *testing.T) {
	// With odd n every non-DC bin is doubled, including the last
	const n = 9
	x := make([]float64, n)
	for i := range x {
		x[i] = math.Cos(2 * math.Pi * 2 * float64(i) / n)
	}

	_, power := Periodogram(x, n)
	if len(power) != 5 {
		t.Fatalf("len(power) = %d, want 5", len(power))
	}

	// Integrated density equals the tone variance, 1/2
	var total float64
	for _, p := range power {
		total += p
	}
	if got := total * float64(n) / float64(n); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("integrated density = %v, want 0.5", got)
	}

	if peak := 2; power[peak] < power[1] || power[peak] < power[3] {
		t.Errorf("power = %v, want peak at bin 2", power)
	}
}

func TestFrequencyRange(t *testing.T) {
	tests := []struct {
		name     string
		rate     float64
		n        int
		wantLen  int
		wantLast float64
	}{
		{
			name:     "scope capture",
			rate:     5000,
			n:        8192,
			wantLen:  4097,
			wantLast: 2500,
		},
		{
			name:     "odd length",
			rate:     317.2,
			n:        4101,
			wantLen:  2051,
			wantLast: 2050 * 317.2 / 4101,
		},
		{
			name:     "tiny odd length",
			rate:     1.0,
			n:        17,
			wantLen:  9,
			wantLast: 8.0 / 17.0,
		},
		{
			name:     "two samples",
			rate:     10,
			n:        2,
			wantLen:  2,
			wantLast: 5,
		},
		{
			name:     "one sample",
			rate:     10,
			n:        1,
			wantLen:  1,
			wantLast: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			freqs := FrequencyRange(tt.rate, tt.n)
			if len(freqs) != tt.wantLen {
				t.Fatalf("len(freqs) = %d, want %d", len(freqs), tt.wantLen)
			}
			if freqs[0] != 0 {
				t.Errorf("freqs[0] = %v, want 0", freqs[0])
			}
			if got := freqs[len(freqs)-1]; math.Abs(got-tt.wantLast) > 1e-12 {
				t.Errorf("last frequency = %v, want %v", got, tt.wantLast)
			}

			// Uniform bin width rate/n
			if len(freqs) > 1 {
				width := tt.rate / float64(tt.n)
				if math.Abs(freqs[1]-width) > 1e-12 {
					t.Errorf("bin width = %v, want %v", freqs[1], width)
				}
			}
		})
	}

	if freqs := FrequencyRange(5000, 0); freqs != nil {
		t.Errorf("FrequencyRange(5000, 0) = %v, want nil", freqs)
	}
}
