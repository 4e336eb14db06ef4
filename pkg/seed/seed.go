// Package seed generates deterministic synthetic scans for exercising a
// waveform database without scope hardware.
package seed

import (
	"fmt"
	"math"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/jeffersonlab/rfscopedb-go/pkg/analysis"
	"github.com/jeffersonlab/rfscopedb-go/pkg/scopedb"
)

// fundamentalBin spaces the synthetic tones: waveform w gets bin 10*(w+1),
// so every tone sits exactly on a spectrum bin center.
const fundamentalBin = 10

var beamModes = []string{"CW", "tune", "off"}

// Params controls synthetic scan generation.
type Params struct {
	Scans        int
	Cavities     []string
	Signals      []string
	SampleRateHz float64
	Start        time.Time
	Spacing      time.Duration
}

// DefaultParams mirrors a four-cavity zone sampled at 5 kHz once a minute.
func DefaultParams() Params {
	return Params{
		Scans:        10,
		Cavities:     []string{"R121", "R122", "R123", "R124"},
		Signals:      []string{"GMES", "PMES"},
		SampleRateHz: 5000,
		Start:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Spacing:      time.Minute,
	}
}

// Generate builds deterministic synthetic scans. Each waveform is a cosine
// centered on a distinct spectrum bin riding a unit DC offset, so its
// statistics and dominant frequency have known values, and each scan gets
// varying float and string metadata.
func Generate(p Params) ([]*scopedb.Scan, error) {
	if p.Scans < 1 {
		return nil, fmt.Errorf("scan count must be positive, got %d", p.Scans)
	}
	if len(p.Cavities) == 0 || len(p.Signals) == 0 {
		return nil, fmt.Errorf("at least one cavity and one signal are required")
	}
	if p.SampleRateHz <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %v", p.SampleRateHz)
	}
	if fundamentalBin*len(p.Cavities)*len(p.Signals) >= analysis.SampleCount/2 {
		return nil, fmt.Errorf("%d waveforms per scan cannot all get distinct tones", len(p.Cavities)*len(p.Signals))
	}

	window := time.Duration(math.Round(float64(analysis.SampleCount)/p.SampleRateHz*1e6)) * time.Microsecond
	timeAxis := TimeAxis(p.SampleRateHz)

	scans := make([]*scopedb.Scan, 0, p.Scans)
	for i := 0; i < p.Scans; i++ {
		start := p.Start.Add(time.Duration(i) * p.Spacing)
		scan := scopedb.NewScan(start, start.Add(window))

		for ci, cavity := range p.Cavities {
			signals := make(map[string][]float64, len(p.Signals)+1)
			signals[scopedb.TimeSignal] = timeAxis
			for si, name := range p.Signals {
				bin := fundamentalBin * (ci*len(p.Signals) + si + 1)
				signals[name] = Tone(bin, p.SampleRateHz)
			}
			if err := scan.AddCavityData(cavity, signals, p.SampleRateHz); err != nil {
				return nil, err
			}
		}

		fdata := map[string]float64{"R1XXITOT": 40 + 0.5*float64(i)}
		sdata := map[string]string{"beam_mode": beamModes[i%len(beamModes)]}
		if err := scan.AddScanData(fdata, sdata); err != nil {
			return nil, err
		}

		scans = append(scans, scan)
	}

	return scans, nil
}

// TimeAxis returns the shared time-axis trace for the given sample rate.
func TimeAxis(sampleRateHz float64) []float64 {
	axis := make([]float64, analysis.SampleCount)
	for j := range axis {
		axis[j] = float64(j) / sampleRateHz
	}
	return axis
}

// Tone synthesizes 0.5*cos(2*pi*f*t) + 1 with f sitting exactly on the
// given spectrum bin: f = bin*fs/SampleCount.
func Tone(bin int, sampleRateHz float64) []float64 {
	freq := float64(bin) * sampleRateHz / analysis.SampleCount
	samples := make([]float64, analysis.SampleCount)
	for j := range samples {
		t := float64(j) / sampleRateHz
		samples[j] = 0.5*math.Cos(2*math.Pi*freq*t) + 1
	}
	return samples
}

// Insert writes the scans through the given handle, logging each as it
// lands.
func Insert(db *scopedb.WaveformDB, scans []*scopedb.Scan) error {
	for i, scan := range scans {
		if err := db.InsertScan(scan); err != nil {
			return fmt.Errorf("failed to insert scan %d of %d: %w", i+1, len(scans), err)
		}

		stored := 0
		for _, wf := range scan.Waveforms {
			if wf.SignalName != scopedb.TimeSignal {
				stored++
			}
		}
		log.WithFields(log.Fields{
			"sid":       scan.ID,
			"start":     scan.StartUTC.Format(time.RFC3339),
			"waveforms": stored,
		}).Info("Inserted scan")
	}
	return nil
}
