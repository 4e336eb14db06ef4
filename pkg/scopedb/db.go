// Package scopedb stores and retrieves oscilloscope-captured RF waveform
// data in a relational database. Queries run in two phases: a cheap scan
// metadata lookup (Stage) followed by bulk waveform retrieval (Run), so
// callers can size a query before paying for it.
package scopedb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// WaveformDB wraps the waveform database connection
type WaveformDB struct {
	conn   *sql.DB
	driver string
}

// Open connects to a waveform database and verifies the connection.
// SQLite databases are created and given the schema if they do not already
// exist. MySQL databases are expected to be provisioned (see
// docker-compose.yml).
func Open(opts Options) (*WaveformDB, error) {
	dsn, err := opts.DSN()
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(opts.driver(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &WaveformDB{conn: conn, driver: opts.driver()}
	if db.driver == DriverSQLite {
		if opts.Path == ":memory:" {
			// Each pooled connection would otherwise get its own empty database
			conn.SetMaxOpenConns(1)
		}
		// Enable WAL mode for better concurrency
		if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
		if _, err := conn.Exec(sqliteSchema); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *WaveformDB) Close() error {
	return db.conn.Close()
}

// QueryScans returns the scans matching the given time window and metadata
// filters, oldest first, with their scan-level metadata attached. Zero
// times leave the window unbounded on that side.
func (db *WaveformDB) QueryScans(begin, end time.Time, filters []Filter) ([]*ScanRecord, error) {
	query, args, err := buildScanQuery(begin, end, filters)
	if err != nil {
		return nil, err
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scans: %w", err)
	}
	defer rows.Close()

	var scans []*ScanRecord
	index := make(map[int64]*ScanRecord)
	for rows.Next() {
		var rec ScanRecord
		var start string
		var end sql.NullString

		if err := rows.Scan(&rec.ID, &start, &end); err != nil {
			return nil, fmt.Errorf("failed to scan scan row: %w", err)
		}

		if rec.StartUTC, err = parseDBTime(start); err != nil {
			return nil, err
		}
		if end.Valid {
			if rec.EndUTC, err = parseDBTime(end.String); err != nil {
				return nil, err
			}
		}

		rec.Floats = make(map[string]float64)
		rec.Strings = make(map[string]string)
		scans = append(scans, &rec)
		index[rec.ID] = &rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read scan rows: %w", err)
	}

	if len(scans) == 0 {
		return scans, nil
	}
	if err := db.attachScanMetadata(index); err != nil {
		return nil, err
	}

	return scans, nil
}

// attachScanMetadata fills the Floats and Strings maps of the given scans
// from scan_fdata and scan_sdata. When a name appears more than once for a
// scan, the last row wins.
func (db *WaveformDB) attachScanMetadata(scans map[int64]*ScanRecord) error {
	ids := make([]int64, 0, len(scans))
	for id := range scans {
		ids = append(ids, id)
	}
	args := int64Args(ids)

	rows, err := db.conn.Query(
		"SELECT sid, name, value FROM scan_fdata WHERE sid IN ("+placeholders(len(ids))+")", args...)
	if err != nil {
		return fmt.Errorf("failed to query scan float metadata: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sid int64
		var name string
		var value float64
		if err := rows.Scan(&sid, &name, &value); err != nil {
			return fmt.Errorf("failed to scan float metadata row: %w", err)
		}
		if rec := scans[sid]; rec != nil {
			rec.Floats[name] = value
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read float metadata rows: %w", err)
	}

	rows, err = db.conn.Query(
		"SELECT sid, name, value FROM scan_sdata WHERE sid IN ("+placeholders(len(ids))+")", args...)
	if err != nil {
		return fmt.Errorf("failed to query scan string metadata: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sid int64
		var name, value string
		if err := rows.Scan(&sid, &name, &value); err != nil {
			return fmt.Errorf("failed to scan string metadata row: %w", err)
		}
		if rec := scans[sid]; rec != nil {
			rec.Strings[name] = value
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read string metadata rows: %w", err)
	}

	return nil
}

// QueryWaveformArrays returns one row per stored array for the waveforms of
// the given scans, ordered by waveform id with each waveform's arrays in
// insertion order. Empty signalNames or arrayNames slices mean no narrowing
// on that axis.
func (db *WaveformDB) QueryWaveformArrays(scanIDs []int64, signalNames, arrayNames []string) ([]*WaveformArray, error) {
	if len(scanIDs) == 0 {
		return nil, ErrNoScanIDs
	}

	query := `
		SELECT waveform.wid, waveform.sid, waveform.cavity, waveform.signal_name,
			waveform.comment, waveform.sample_rate_hz, waveform_adata.name, waveform_adata.data
		FROM waveform
		JOIN waveform_adata ON waveform.wid = waveform_adata.wid
		WHERE waveform.sid IN (` + placeholders(len(scanIDs)) + `)`
	args := int64Args(scanIDs)

	if len(signalNames) > 0 {
		query += " AND waveform.signal_name IN (" + placeholders(len(signalNames)) + ")"
		args = append(args, stringArgs(signalNames)...)
	}
	if len(arrayNames) > 0 {
		query += " AND waveform_adata.name IN (" + placeholders(len(arrayNames)) + ")"
		args = append(args, stringArgs(arrayNames)...)
	}
	query += " ORDER BY waveform.wid, waveform_adata.waid"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query waveform arrays: %w", err)
	}
	defer rows.Close()

	var arrays []*WaveformArray
	for rows.Next() {
		var wa WaveformArray
		var comment sql.NullString
		var data string

		err := rows.Scan(&wa.WaveformID, &wa.ScanID, &wa.Cavity, &wa.SignalName,
			&comment, &wa.SampleRateHz, &wa.Name, &data)
		if err != nil {
			return nil, fmt.Errorf("failed to scan waveform array row: %w", err)
		}

		wa.Comment = comment.String
		if err := json.Unmarshal([]byte(data), &wa.Data); err != nil {
			return nil, fmt.Errorf("failed to decode %s array for waveform %d: %w", wa.Name, wa.WaveformID, err)
		}
		arrays = append(arrays, &wa)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read waveform array rows: %w", err)
	}

	return arrays, nil
}

// QueryWaveformStats returns the waveforms of the given scans with their
// scalar metrics pivoted into one record each, ordered by waveform id.
// Empty signalNames or metricNames slices mean no narrowing on that axis.
func (db *WaveformDB) QueryWaveformStats(scanIDs []int64, signalNames, metricNames []string) ([]*WaveformStats, error) {
	if len(scanIDs) == 0 {
		return nil, ErrNoScanIDs
	}

	query := `
		SELECT waveform.wid, waveform.sid, waveform.cavity, waveform.signal_name,
			waveform.comment, waveform.sample_rate_hz, waveform_sdata.name, waveform_sdata.value
		FROM waveform
		JOIN waveform_sdata ON waveform.wid = waveform_sdata.wid
		WHERE waveform.sid IN (` + placeholders(len(scanIDs)) + `)`
	args := int64Args(scanIDs)

	if len(signalNames) > 0 {
		query += " AND waveform.signal_name IN (" + placeholders(len(signalNames)) + ")"
		args = append(args, stringArgs(signalNames)...)
	}
	if len(metricNames) > 0 {
		query += " AND waveform_sdata.name IN (" + placeholders(len(metricNames)) + ")"
		args = append(args, stringArgs(metricNames)...)
	}
	query += " ORDER BY waveform.wid"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query waveform metrics: %w", err)
	}
	defer rows.Close()

	var stats []*WaveformStats
	index := make(map[int64]*WaveformStats)
	for rows.Next() {
		var (
			wid, sid       int64
			cavity, signal string
			comment        sql.NullString
			rate           float64
			name           string
			value          float64
		)

		if err := rows.Scan(&wid, &sid, &cavity, &signal, &comment, &rate, &name, &value); err != nil {
			return nil, fmt.Errorf("failed to scan waveform metric row: %w", err)
		}

		ws := index[wid]
		if ws == nil {
			ws = &WaveformStats{
				WaveformID:   wid,
				ScanID:       sid,
				Cavity:       cavity,
				SignalName:   signal,
				Comment:      comment.String,
				SampleRateHz: rate,
				Metrics:      make(map[string]float64),
			}
			index[wid] = ws
			stats = append(stats, ws)
		}
		ws.Metrics[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read waveform metric rows: %w", err)
	}

	return stats, nil
}

// DeleteScan removes a scan and, through cascading foreign keys, all of its
// waveforms and metadata. Returns the number of scans deleted (0 or 1).
func (db *WaveformDB) DeleteScan(sid int64) (int64, error) {
	result, err := db.conn.Exec("DELETE FROM scan WHERE sid = ?", sid)
	if err != nil {
		return 0, fmt.Errorf("failed to delete scan %d: %w", sid, err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read delete count: %w", err)
	}
	return count, nil
}

// Tables lists the schema's tables in dependency order.
var Tables = []string{"scan", "waveform", "waveform_adata", "waveform_sdata", "scan_fdata", "scan_sdata"}

// TableCounts reports the row count of every table, keyed by table name.
func (db *WaveformDB) TableCounts() (map[string]int64, error) {
	counts := make(map[string]int64, len(Tables))
	for _, table := range Tables {
		var n int64
		if err := db.conn.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s rows: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

// Rows wraps sql.Rows for use in query commands
type Rows = sql.Rows

// QueryRaw executes a raw SQL query and returns rows
func (db *WaveformDB) QueryRaw(query string, args ...interface{}) (*sql.Rows, error) {
	return db.conn.Query(query, args...)
}

// QueryRowRaw executes a raw SQL query and returns a single row
func (db *WaveformDB) QueryRowRaw(query string, args ...interface{}) *sql.Row {
	return db.conn.QueryRow(query, args...)
}
