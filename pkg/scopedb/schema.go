package scopedb

// SQLite rendition of the waveform schema. The MariaDB rendition used by
// the docker-compose reference database lives in docker/initdb/01-schema.sql
// and must stay in step with this one.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS scan (
    sid INTEGER PRIMARY KEY AUTOINCREMENT,
    scan_start_utc TEXT NOT NULL,
    scan_end_utc TEXT
);

CREATE TABLE IF NOT EXISTS waveform (
    wid INTEGER PRIMARY KEY AUTOINCREMENT,
    sid INTEGER NOT NULL,
    cavity TEXT NOT NULL,
    signal_name TEXT NOT NULL,
    comment TEXT,
    sample_rate_hz REAL NOT NULL,
    FOREIGN KEY (sid) REFERENCES scan(sid) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS waveform_adata (
    waid INTEGER PRIMARY KEY AUTOINCREMENT,
    wid INTEGER NOT NULL,
    name TEXT NOT NULL,
    data TEXT NOT NULL,
    FOREIGN KEY (wid) REFERENCES waveform(wid) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS waveform_sdata (
    wsid INTEGER PRIMARY KEY AUTOINCREMENT,
    wid INTEGER NOT NULL,
    name TEXT NOT NULL,
    value REAL NOT NULL,
    FOREIGN KEY (wid) REFERENCES waveform(wid) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS scan_fdata (
    sfid INTEGER PRIMARY KEY AUTOINCREMENT,
    sid INTEGER NOT NULL,
    name TEXT NOT NULL,
    value REAL NOT NULL,
    FOREIGN KEY (sid) REFERENCES scan(sid) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS scan_sdata (
    ssid INTEGER PRIMARY KEY AUTOINCREMENT,
    sid INTEGER NOT NULL,
    name TEXT NOT NULL,
    value TEXT NOT NULL,
    FOREIGN KEY (sid) REFERENCES scan(sid) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_scan_start ON scan(scan_start_utc);
CREATE INDEX IF NOT EXISTS idx_waveform_sid ON waveform(sid);
CREATE INDEX IF NOT EXISTS idx_waveform_signal ON waveform(signal_name);
CREATE INDEX IF NOT EXISTS idx_adata_wid ON waveform_adata(wid);
CREATE INDEX IF NOT EXISTS idx_adata_name ON waveform_adata(name);
CREATE INDEX IF NOT EXISTS idx_sdata_wid ON waveform_sdata(wid);
CREATE INDEX IF NOT EXISTS idx_sdata_name ON waveform_sdata(name);
CREATE INDEX IF NOT EXISTS idx_scan_fdata_sid ON scan_fdata(sid);
CREATE INDEX IF NOT EXISTS idx_scan_fdata_name ON scan_fdata(name);
CREATE INDEX IF NOT EXISTS idx_scan_sdata_sid ON scan_sdata(sid);
CREATE INDEX IF NOT EXISTS idx_scan_sdata_name ON scan_sdata(name);
`
