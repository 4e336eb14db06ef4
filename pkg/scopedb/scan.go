package scopedb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/jeffersonlab/rfscopedb-go/pkg/analysis"
)

// TimeSignal is the shared time-axis trace scope captures include. It is
// implied by the sample rate, so it is kept in memory but never analyzed
// or persisted.
const TimeSignal = "Time"

// Scan accumulates one trigger event's waveforms and metadata before it is
// written with InsertScan.
type Scan struct {
	ID       int64 // assigned by InsertScan
	StartUTC time.Time
	EndUTC   time.Time // zero when the capture window has no recorded end

	Waveforms []Waveform
	Floats    map[string]float64
	Strings   map[string]string
}

// Waveform is a single captured signal trace plus its derived data.
type Waveform struct {
	Cavity       string
	SignalName   string
	SampleRateHz float64
	Samples      []float64

	scalars map[string]float64
	arrays  map[string][]float64
}

// NewScan starts a scan record for a trigger event. end may be the zero
// time when the capture window has no recorded end.
func NewScan(start, end time.Time) *Scan {
	return &Scan{
		StartUTC: start,
		EndUTC:   end,
		Floats:   make(map[string]float64),
		Strings:  make(map[string]string),
	}
}

// AddScanData attaches metadata that applies to the whole scan rather than
// a single waveform. Across all calls, a name may carry float values or
// string values but never both.
func (s *Scan) AddScanData(fdata map[string]float64, sdata map[string]string) error {
	for name := range fdata {
		if _, ok := sdata[name]; ok {
			return fmt.Errorf("scan metadata name %q given both float and string values", name)
		}
		if _, ok := s.Strings[name]; ok {
			return fmt.Errorf("scan metadata name %q given both float and string values", name)
		}
	}
	for name := range sdata {
		if _, ok := s.Floats[name]; ok {
			return fmt.Errorf("scan metadata name %q given both float and string values", name)
		}
	}

	for name, value := range fdata {
		s.Floats[name] = value
	}
	for name, value := range sdata {
		s.Strings[name] = value
	}
	return nil
}

// AddCavityData stores the captured signals for one cavity and computes
// derived data for each. Signals are keyed by name (TimeSignal, "GMES",
// ...), and every non-Time signal must hold analysis.SampleCount samples.
func (s *Scan) AddCavityData(cavity string, signals map[string][]float64, sampleRateHz float64) error {
	for _, name := range sortedKeys(signals) {
		wf := Waveform{
			Cavity:       cavity,
			SignalName:   name,
			SampleRateHz: sampleRateHz,
			Samples:      signals[name],
		}

		if name != TimeSignal {
			summary, err := analysis.Analyze(wf.Samples, sampleRateHz)
			if err != nil {
				return fmt.Errorf("failed to analyze %s %s: %w", cavity, name, err)
			}
			wf.scalars = summary.Scalars
			wf.arrays = summary.Arrays
		}

		s.Waveforms = append(s.Waveforms, wf)
	}
	return nil
}

// InsertScan writes a scan, its waveforms, derived data and metadata in a
// single transaction and records the assigned id on the scan. Time-axis
// waveforms stay in memory only.
func (db *WaveformDB) InsertScan(s *Scan) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	sid, err := insertScanTx(tx, s)
	if err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit scan: %w", err)
	}

	s.ID = sid
	return nil
}

func insertScanTx(tx *sql.Tx, s *Scan) (int64, error) {
	var end interface{}
	if !s.EndUTC.IsZero() {
		end = formatDBTime(s.EndUTC)
	}

	result, err := tx.Exec("INSERT INTO scan (scan_start_utc, scan_end_utc) VALUES (?, ?)",
		formatDBTime(s.StartUTC), end)
	if err != nil {
		return 0, fmt.Errorf("failed to insert scan: %w", err)
	}

	sid, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}

	for i := range s.Waveforms {
		wf := &s.Waveforms[i]
		if wf.SignalName == TimeSignal {
			continue
		}
		if err := insertWaveform(tx, sid, wf); err != nil {
			return 0, err
		}
	}

	for _, name := range sortedKeys(s.Floats) {
		if _, err := tx.Exec("INSERT INTO scan_fdata (sid, name, value) VALUES (?, ?, ?)",
			sid, name, s.Floats[name]); err != nil {
			return 0, fmt.Errorf("failed to insert scan metadata %s: %w", name, err)
		}
	}
	for _, name := range sortedKeys(s.Strings) {
		if _, err := tx.Exec("INSERT INTO scan_sdata (sid, name, value) VALUES (?, ?, ?)",
			sid, name, s.Strings[name]); err != nil {
			return 0, fmt.Errorf("failed to insert scan metadata %s: %w", name, err)
		}
	}

	return sid, nil
}

func insertWaveform(tx *sql.Tx, sid int64, wf *Waveform) error {
	result, err := tx.Exec("INSERT INTO waveform (sid, cavity, signal_name, sample_rate_hz) VALUES (?, ?, ?, ?)",
		sid, wf.Cavity, wf.SignalName, wf.SampleRateHz)
	if err != nil {
		return fmt.Errorf("failed to insert waveform %s %s: %w", wf.Cavity, wf.SignalName, err)
	}

	wid, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	// 'raw' is the captured trace; the analysis arrays ride along with it.
	if err := insertWaveformArray(tx, wid, "raw", wf.Samples); err != nil {
		return err
	}
	for _, name := range analysis.ArrayNames {
		data, ok := wf.arrays[name]
		if !ok {
			continue
		}
		if err := insertWaveformArray(tx, wid, name, data); err != nil {
			return err
		}
	}

	for _, name := range sortedKeys(wf.scalars) {
		if _, err := tx.Exec("INSERT INTO waveform_sdata (wid, name, value) VALUES (?, ?, ?)",
			wid, name, wf.scalars[name]); err != nil {
			return fmt.Errorf("failed to insert waveform metric %s: %w", name, err)
		}
	}

	return nil
}

func insertWaveformArray(tx *sql.Tx, wid int64, name string, data []float64) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode %s array: %w", name, err)
	}

	if _, err := tx.Exec("INSERT INTO waveform_adata (wid, name, data) VALUES (?, ?, ?)",
		wid, name, string(encoded)); err != nil {
		return fmt.Errorf("failed to insert %s array: %w", name, err)
	}
	return nil
}

// sortedKeys keeps map-driven inserts in a stable order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
