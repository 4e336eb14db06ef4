package scopedb

// Integration tests against the docker-compose reference database. They are
// skipped unless RFSCOPEDB_TEST_HOST names a reachable MariaDB:
//
//	docker compose up --wait
//	RFSCOPEDB_TEST_HOST=127.0.0.1 go test ./pkg/scopedb/
//
// The default credentials are scope_owner/password, since deleting scans
// needs the owner grants.

import (
	"math"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/jeffersonlab/rfscopedb-go/pkg/analysis"
)

func openIntegrationDB(t *testing.T) *WaveformDB {
	t.Helper()

	host := os.Getenv("RFSCOPEDB_TEST_HOST")
	if host == "" {
		t.Skip("RFSCOPEDB_TEST_HOST not set, skipping MariaDB integration test")
	}

	opts := Options{
		Driver:   DriverMySQL,
		Host:     host,
		User:     "scope_owner",
		Password: "password",
	}
	if p := os.Getenv("RFSCOPEDB_TEST_PORT"); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			t.Fatalf("invalid RFSCOPEDB_TEST_PORT %q: %v", p, err)
		}
		opts.Port = port
	}
	if user := os.Getenv("RFSCOPEDB_TEST_USER"); user != "" {
		opts.User = user
	}
	if password := os.Getenv("RFSCOPEDB_TEST_PASSWORD"); password != "" {
		opts.Password = password
	}
	if database := os.Getenv("RFSCOPEDB_TEST_DATABASE"); database != "" {
		opts.Database = database
	}

	db, err := Open(opts)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

// TestIntegrationSeededScans checks the metadata rows the initdb scripts
// load into the reference database.
func TestIntegrationSeededScans(t *testing.T) {
	db := openIntegrationDB(t)

	begin := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2022, 12, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		filters   []Filter
		wantYears []int
	}{
		{
			name:      "all seeded scans",
			filters:   nil,
			wantYears: []int{2020, 2021, 2022},
		},
		{
			name:      "string filter",
			filters:   []Filter{StringFilter("s_c", "=", "on")},
			wantYears: []int{2020, 2022},
		},
		{
			name: "combined filters",
			filters: []Filter{
				FloatFilter("f_a", ">", 1.05),
				StringFilter("s_c", "=", "on"),
			},
			wantYears: []int{2022},
		},
		{
			name:      "no match",
			filters:   []Filter{FloatFilter("f_a", ">", 100)},
			wantYears: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scans, err := db.QueryScans(begin, end, tt.filters)
			if err != nil {
				t.Fatalf("QueryScans failed: %v", err)
			}
			if len(scans) != len(tt.wantYears) {
				t.Fatalf("len(scans) = %d, want %d", len(scans), len(tt.wantYears))
			}
			for i, scan := range scans {
				if scan.StartUTC.Year() != tt.wantYears[i] {
					t.Errorf("scans[%d] year = %d, want %d", i, scan.StartUTC.Year(), tt.wantYears[i])
				}
			}
		})
	}

	scans, err := db.QueryScans(begin, end, []Filter{FloatFilter("f_c", ">", 50)})
	if err != nil {
		t.Fatalf("QueryScans failed: %v", err)
	}
	if len(scans) != 1 {
		t.Fatalf("len(scans) = %d, want 1", len(scans))
	}

	first := scans[0]
	wantStart := time.Date(2020, 1, 1, 6, 23, 45, 123456000, time.UTC)
	if !first.StartUTC.Equal(wantStart) {
		t.Errorf("StartUTC = %v, want %v", first.StartUTC, wantStart)
	}
	if first.Floats["f_c"] != 100.0 {
		t.Errorf("f_c = %v, want 100", first.Floats["f_c"])
	}
	if first.Strings["s_c"] != "on" {
		t.Errorf("s_c = %q, want on", first.Strings["s_c"])
	}
}

// TestIntegrationInsertQueryDelete walks a scan through its whole life:
// insert with waveforms, stage, run, delete, verify the cascade.
func TestIntegrationInsertQueryDelete(t *testing.T) {
	db := openIntegrationDB(t)

	// Far outside the seeded range so reruns never collide with it
	start := time.Date(2000, 3, 15, 10, 20, 30, 400000000, time.UTC)

	scan := NewScan(start, start.Add(time.Second))
	if err := scan.AddScanData(map[string]float64{"itot": 42.5}, map[string]string{"beam_mode": "CW"}); err != nil {
		t.Fatalf("AddScanData failed: %v", err)
	}
	signals := map[string][]float64{
		TimeSignal: testTimeAxis(testRate),
		"GMES":     testTone(10, testRate),
		"PMES":     testTone(20, testRate),
	}
	if err := scan.AddCavityData("R121", signals, testRate); err != nil {
		t.Fatalf("AddCavityData failed: %v", err)
	}

	if err := db.InsertScan(scan); err != nil {
		t.Fatalf("InsertScan failed: %v", err)
	}
	if scan.ID == 0 {
		t.Fatal("InsertScan did not record the assigned id")
	}
	t.Cleanup(func() { db.DeleteScan(scan.ID) })

	query, err := NewQuery(db, QueryParams{
		Begin:   time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		End:     time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC),
		Filters: []Filter{StringFilter("beam_mode", "=", "CW")},
	})
	if err != nil {
		t.Fatalf("NewQuery failed: %v", err)
	}
	if err := query.Stage(); err != nil {
		t.Fatalf("Stage failed: %v", err)
	}
	if query.ScanCount() != 1 {
		t.Fatalf("ScanCount() = %d, want 1", query.ScanCount())
	}

	staged := query.Scans()[0]
	if staged.ID != scan.ID {
		t.Errorf("staged id = %d, want %d", staged.ID, scan.ID)
	}
	if !staged.StartUTC.Equal(start) {
		t.Errorf("StartUTC = %v, want %v", staged.StartUTC, start)
	}
	if staged.Floats["itot"] != 42.5 {
		t.Errorf("itot = %v, want 42.5", staged.Floats["itot"])
	}

	result, err := query.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// 2 stored waveforms with 3 arrays each
	if len(result.Arrays) != 6 {
		t.Errorf("len(Arrays) = %d, want 6", len(result.Arrays))
	}
	if len(result.Stats) != 2 {
		t.Fatalf("len(Stats) = %d, want 2", len(result.Stats))
	}

	binWidth := testRate / float64(analysis.SampleCount)
	if got := result.Stats[0].Metrics["dominant_frequency"]; math.Abs(got-10*binWidth) > 1e-9 {
		t.Errorf("GMES dominant_frequency = %v, want %v", got, 10*binWidth)
	}
	if got := result.Stats[1].Metrics["dominant_frequency"]; math.Abs(got-20*binWidth) > 1e-9 {
		t.Errorf("PMES dominant_frequency = %v, want %v", got, 20*binWidth)
	}

	n, err := db.DeleteScan(scan.ID)
	if err != nil {
		t.Fatalf("DeleteScan failed: %v", err)
	}
	if n != 1 {
		t.Errorf("DeleteScan returned %d, want 1", n)
	}

	// The cascade removed the waveforms too
	if err := query.Stage(); err != nil {
		t.Fatalf("Stage failed: %v", err)
	}
	if query.ScanCount() != 0 {
		t.Errorf("ScanCount() after delete = %d, want 0", query.ScanCount())
	}
	var orphans int64
	row := db.QueryRowRaw("SELECT COUNT(*) FROM waveform WHERE sid = ?", scan.ID)
	if err := row.Scan(&orphans); err != nil {
		t.Fatalf("orphan count failed: %v", err)
	}
	if orphans != 0 {
		t.Errorf("waveform rows after delete = %d, want 0", orphans)
	}
}
