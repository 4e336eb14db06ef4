package scopedb

import (
	"errors"
	"testing"
	"time"
)

func TestNewQueryInvalidFilter(t *testing.T) {
	db := openTestDB(t)

	params := QueryParams{Filters: []Filter{FloatFilter("f_a", "LIKE", 1)}}
	if _, err := NewQuery(db, params); err == nil {
		t.Error("NewQuery should reject an unapproved operator")
	}
}

func TestRunBeforeStage(t *testing.T) {
	db := openTestDB(t)

	query, err := NewQuery(db, QueryParams{})
	if err != nil {
		t.Fatalf("NewQuery failed: %v", err)
	}

	if _, err := query.Run(); !errors.Is(err, ErrNotStaged) {
		t.Errorf("Run before Stage error = %v, want ErrNotStaged", err)
	}
}

func TestStagedToZeroScans(t *testing.T) {
	db := openTestDB(t)

	query, err := NewQuery(db, QueryParams{})
	if err != nil {
		t.Fatalf("NewQuery failed: %v", err)
	}

	if err := query.Stage(); err != nil {
		t.Fatalf("Stage failed: %v", err)
	}
	if query.ScanCount() != 0 {
		t.Errorf("ScanCount() = %d, want 0", query.ScanCount())
	}

	// Running an empty staging is not an error, just empty
	result, err := query.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(result.Arrays) != 0 || len(result.Stats) != 0 {
		t.Errorf("Result = %d arrays, %d stats, want empty", len(result.Arrays), len(result.Stats))
	}
}

func TestQueryLifecycle(t *testing.T) {
	db := openTestDB(t)
	insertFixtureScans(t, db)

	query, err := NewQuery(db, QueryParams{
		SignalNames: []string{"GMES"},
		ArrayNames:  []string{"raw"},
		MetricNames: []string{"mean", "rms"},
		Begin:       time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Filters:     []Filter{FloatFilter("f_b", ">=", 2.0)},
	})
	if err != nil {
		t.Fatalf("NewQuery failed: %v", err)
	}

	if err := query.Stage(); err != nil {
		t.Fatalf("Stage failed: %v", err)
	}

	// All three scans have f_b >= 2.0
	if query.ScanCount() != 3 {
		t.Fatalf("ScanCount() = %d, want 3", query.ScanCount())
	}

	// Staged metadata is available before committing to the bulk retrieval
	scans := query.Scans()
	if scans[0].ID != 1 || scans[0].Floats["f_b"] != 2.0 {
		t.Errorf("Scans()[0] = id %d f_b %v, want id 1 f_b 2", scans[0].ID, scans[0].Floats["f_b"])
	}

	result, err := query.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// One GMES waveform per scan, narrowed to the raw array
	if len(result.Arrays) != 3 {
		t.Errorf("len(Arrays) = %d, want 3", len(result.Arrays))
	}
	for _, wa := range result.Arrays {
		if wa.SignalName != "GMES" || wa.Name != "raw" {
			t.Errorf("array = %s %s, want GMES raw", wa.SignalName, wa.Name)
		}
	}

	if len(result.Stats) != 3 {
		t.Errorf("len(Stats) = %d, want 3", len(result.Stats))
	}
	for _, ws := range result.Stats {
		if len(ws.Metrics) != 2 {
			t.Errorf("waveform %d has %d metrics, want 2", ws.WaveformID, len(ws.Metrics))
		}
	}
}

func TestStageRefresh(t *testing.T) {
	db := openTestDB(t)

	query, err := NewQuery(db, QueryParams{})
	if err != nil {
		t.Fatalf("NewQuery failed: %v", err)
	}

	if err := query.Stage(); err != nil {
		t.Fatalf("Stage failed: %v", err)
	}
	if query.ScanCount() != 0 {
		t.Fatalf("ScanCount() = %d, want 0", query.ScanCount())
	}

	insertFixtureScans(t, db)

	// Staging again picks up the new scans
	if err := query.Stage(); err != nil {
		t.Fatalf("Stage failed: %v", err)
	}
	if query.ScanCount() != 3 {
		t.Errorf("ScanCount() after refresh = %d, want 3", query.ScanCount())
	}
}
