package scopedb

import (
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// Driver names accepted by Open.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite3"
)

// Connection defaults matching the docker-compose reference database.
const (
	DefaultHost     = "localhost"
	DefaultPort     = 3306
	DefaultDatabase = "scope_waveforms"
)

// Options describes how to reach a waveform database.
type Options struct {
	Driver   string // 'mysql' (default) or 'sqlite3'
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Path     string // sqlite3 only: database file, ':memory:' for throwaway
}

func (o Options) driver() string {
	if o.Driver == "" {
		return DriverMySQL
	}
	return o.Driver
}

// DSN renders the driver-specific connection string.
func (o Options) DSN() (string, error) {
	switch o.driver() {
	case DriverMySQL:
		cfg := mysql.NewConfig()
		cfg.User = o.User
		cfg.Passwd = o.Password
		cfg.Net = "tcp"
		host := o.Host
		if host == "" {
			host = DefaultHost
		}
		port := o.Port
		if port == 0 {
			port = DefaultPort
		}
		cfg.Addr = fmt.Sprintf("%s:%d", host, port)
		cfg.DBName = o.Database
		if cfg.DBName == "" {
			cfg.DBName = DefaultDatabase
		}
		return cfg.FormatDSN(), nil
	case DriverSQLite:
		if o.Path == "" {
			return "", fmt.Errorf("sqlite3 driver requires a database path")
		}
		// Connection-scoped pragmas so every pooled connection enforces
		// foreign keys; cascading scan deletes depend on them.
		return fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on", o.Path), nil
	default:
		return "", fmt.Errorf("unsupported driver %q", o.Driver)
	}
}
