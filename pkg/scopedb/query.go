package scopedb

import (
	"errors"
	"time"
)

// ErrNotStaged is returned by Run when Stage has not succeeded yet.
var ErrNotStaged = errors.New("query has not been staged")

// ErrNoScanIDs is returned by the bulk retrieval methods when called with
// no scan ids.
var ErrNoScanIDs = errors.New("at least one scan id is required")

// QueryParams selects scans and narrows which of their waveform data a Run
// retrieves. Filters AND together. Empty name slices mean no narrowing.
type QueryParams struct {
	SignalNames []string // waveform signals to retrieve, e.g. GMES, PMES
	ArrayNames  []string // array data per signal, e.g. raw, power_spectrum
	MetricNames []string // scalar metrics per signal, e.g. mean, rms
	Begin       time.Time
	End         time.Time
	Filters     []Filter
}

// Query retrieves waveform data in two phases. Stage performs the cheap
// scan metadata lookup; Run performs the potentially expensive bulk
// retrieval for the staged scans. Callers inspect ScanCount or Scans
// between the two to decide whether the Run is worth its cost.
type Query struct {
	db     *WaveformDB
	params QueryParams
	staged bool
	scans  []*ScanRecord
}

// NewQuery validates the filter set and prepares an unstaged query.
func NewQuery(db *WaveformDB, params QueryParams) (*Query, error) {
	for _, f := range params.Filters {
		if err := f.Validate(); err != nil {
			return nil, err
		}
	}
	return &Query{db: db, params: params}, nil
}

// Stage finds the scans matching the query window and filters and caches
// their metadata.
func (q *Query) Stage() error {
	scans, err := q.db.QueryScans(q.params.Begin, q.params.End, q.params.Filters)
	if err != nil {
		return err
	}
	q.scans = scans
	q.staged = true
	return nil
}

// ScanCount reports how many scans are staged.
func (q *Query) ScanCount() int {
	return len(q.scans)
}

// Scans returns the staged scan metadata, oldest first.
func (q *Query) Scans() []*ScanRecord {
	return q.scans
}

// Result holds the waveform data retrieved by Run.
type Result struct {
	Arrays []*WaveformArray
	Stats  []*WaveformStats
}

// Run retrieves waveform arrays and scalar metrics for the staged scans.
// A query staged to zero scans yields an empty result.
func (q *Query) Run() (*Result, error) {
	if !q.staged {
		return nil, ErrNotStaged
	}
	if len(q.scans) == 0 {
		return &Result{}, nil
	}

	ids := make([]int64, len(q.scans))
	for i, s := range q.scans {
		ids[i] = s.ID
	}

	arrays, err := q.db.QueryWaveformArrays(ids, q.params.SignalNames, q.params.ArrayNames)
	if err != nil {
		return nil, err
	}

	stats, err := q.db.QueryWaveformStats(ids, q.params.SignalNames, q.params.MetricNames)
	if err != nil {
		return nil, err
	}

	return &Result{Arrays: arrays, Stats: stats}, nil
}
