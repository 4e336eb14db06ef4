package scopedb

import (
	"fmt"
	"time"
)

// timeLayout renders timestamps the way DATETIME(6) columns store them.
// The fixed width keeps string comparison and chronological order aligned.
const timeLayout = "2006-01-02 15:04:05.000000"

// ScanRecord is one scan row with its scan-level metadata pivoted in.
type ScanRecord struct {
	ID       int64
	StartUTC time.Time
	EndUTC   time.Time // zero when the scan has no recorded end
	Floats   map[string]float64
	Strings  map[string]string
}

// WaveformArray is one array-valued result joined with its waveform row.
type WaveformArray struct {
	WaveformID   int64
	ScanID       int64
	Cavity       string
	SignalName   string
	Comment      string
	SampleRateHz float64
	Name         string // 'raw', 'power_spectrum', 'frequencies', ...
	Data         []float64
}

// WaveformStats is one waveform with its scalar metrics pivoted in.
type WaveformStats struct {
	WaveformID   int64
	ScanID       int64
	Cavity       string
	SignalName   string
	Comment      string
	SampleRateHz float64
	Metrics      map[string]float64 // 'mean', 'rms', 'dominant_frequency', ...
}

// formatDBTime renders a timestamp for storage. All stored timestamps are
// UTC wall-clock strings.
func formatDBTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseDBTime reads a stored timestamp back as UTC. The fractional second
// is optional on input, so plain DATETIME values parse too.
func parseDBTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02 15:04:05", s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}
