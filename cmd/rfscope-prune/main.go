package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/jeffersonlab/rfscopedb-go/pkg/config"
	"github.com/jeffersonlab/rfscopedb-go/pkg/scopedb"
)

var version = "dev" // Set by -ldflags during build

const timeFormat = "2006-01-02 15:04:05"

func main() {
	// Define flags
	var (
		showVersion bool
		showHelp    bool
		debug       bool
		yes         bool
		before      string
		keepDays    int
		filterExprs []string
		host        string
		port        int
		user        string
		password    string
		database    string
		sqlitePath  string
	)

	pflag.BoolVarP(&showVersion, "version", "V", false, "Show version and exit")
	pflag.BoolVarP(&showHelp, "help", "h", false, "Show this help message")
	pflag.BoolVarP(&debug, "debug", "d", false, "Enable debug output")
	pflag.BoolVarP(&yes, "yes", "y", false, "Actually delete; without this the matching scans are only listed")
	pflag.StringVar(&before, "before", "", "Delete scans started before this time, 'YYYY-MM-DD [HH:MM:SS]' UTC")
	pflag.IntVar(&keepDays, "keep-days", 0, "Delete scans older than this many days")
	pflag.StringArrayVar(&filterExprs, "filter", nil, "Scan metadata filter <param><op><value> (repeatable)")
	pflag.StringVar(&host, "host", "", "Database host (default from config)")
	pflag.IntVar(&port, "port", 0, "Database port (default from config)")
	pflag.StringVar(&user, "user", "", "Database user (default from config)")
	pflag.StringVar(&password, "password", "", "Database password (default from config)")
	pflag.StringVar(&database, "database", "", "Database name (default from config)")
	pflag.StringVar(&sqlitePath, "sqlite", "", "Prune a SQLite database at this path instead of MySQL")

	pflag.Parse()

	// Handle version
	if showVersion {
		fmt.Printf("rfscope-prune version %s\n", version)
		os.Exit(0)
	}

	// Handle help
	if showHelp {
		printHelp()
		os.Exit(0)
	}

	if debug {
		log.SetLevel(log.DebugLevel)
	}

	cutoff, err := resolveCutoff(before, keepDays)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var filters []scopedb.Filter
	for _, expr := range filterExprs {
		f, err := scopedb.ParseFilter(expr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		filters = append(filters, f)
	}

	db, err := openDatabase(host, port, user, password, database, sqlitePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	scans, err := db.QueryScans(time.Time{}, cutoff, filters)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error finding scans: %v\n", err)
		os.Exit(1)
	}

	if len(scans) == 0 {
		fmt.Printf("No scans started before %s match\n", cutoff.Format(timeFormat))
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SID\tStart (UTC)")
	fmt.Fprintln(w, "---\t-----------")
	for _, scan := range scans {
		fmt.Fprintf(w, "%d\t%s\n", scan.ID, scan.StartUTC.Format(timeFormat))
	}
	w.Flush()

	if !yes {
		fmt.Printf("\n%d scans match. Re-run with --yes to delete them and their waveforms.\n", len(scans))
		return
	}

	deleted := 0
	for _, scan := range scans {
		n, err := db.DeleteScan(scan.ID)
		if err != nil {
			log.WithFields(log.Fields{
				"sid":   scan.ID,
				"error": err,
			}).Error("Failed to delete scan")
			fmt.Fprintf(os.Stderr, "Stopped after deleting %d of %d scans\n", deleted, len(scans))
			os.Exit(1)
		}
		if n == 0 {
			// Already gone, e.g. a concurrent prune
			continue
		}
		deleted++
		log.WithFields(log.Fields{
			"sid":   scan.ID,
			"start": scan.StartUTC.Format(time.RFC3339),
		}).Warn("Deleted scan")
	}

	fmt.Printf("\nDeleted %d scans and their waveforms\n", deleted)
}

// resolveCutoff turns the --before / --keep-days flags into one cutoff time.
func resolveCutoff(before string, keepDays int) (time.Time, error) {
	if before != "" && keepDays > 0 {
		return time.Time{}, fmt.Errorf("--before and --keep-days are mutually exclusive")
	}
	if before != "" {
		return parseTimeFlag(before)
	}
	if keepDays > 0 {
		return time.Now().UTC().AddDate(0, 0, -keepDays), nil
	}
	return time.Time{}, fmt.Errorf("one of --before or --keep-days is required")
}

// openDatabase applies CLI overrides to the loaded config and connects.
func openDatabase(host string, port int, user, password, database, sqlitePath string) (*scopedb.WaveformDB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if host != "" {
		cfg.Host = host
	}
	if port != 0 {
		cfg.Port = port
	}
	if user != "" {
		cfg.User = user
	}
	if password != "" {
		cfg.Password = password
	}
	if database != "" {
		cfg.Database = database
	}
	if sqlitePath != "" {
		cfg.Driver = "sqlite3"
		cfg.SQLitePath = sqlitePath
	}

	return scopedb.Open(scopedb.Options{
		Driver:   cfg.Driver,
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
		Database: cfg.Database,
		Path:     cfg.GetSQLitePath(),
	})
}

// parseTimeFlag reads a UTC timestamp flag.
func parseTimeFlag(value string) (time.Time, error) {
	for _, layout := range []string{timeFormat, "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q (want 'YYYY-MM-DD [HH:MM:SS]')", value)
}

func printHelp() {
	fmt.Printf("rfscope-prune - Delete old scans and their waveforms\n\n")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Printf("DESCRIPTION:\n")
	fmt.Printf("  Finds scans started before a cutoff and deletes them. Waveforms and\n")
	fmt.Printf("  metadata go with their scan through cascading foreign keys. Without\n")
	fmt.Printf("  --yes the matching scans are listed and nothing is deleted.\n\n")
	fmt.Printf("  Deleting needs the scope_owner grants; the scope_rw user can only\n")
	fmt.Printf("  read and insert.\n\n")

	fmt.Printf("USAGE:\n")
	fmt.Printf("  rfscope-prune [OPTIONS]\n\n")

	fmt.Printf("OPTIONS:\n")
	fmt.Printf("  -h, --help         Show this help message\n")
	fmt.Printf("  -V, --version      Show version\n")
	fmt.Printf("  -d, --debug        Enable debug output\n")
	fmt.Printf("  -y, --yes          Actually delete the matching scans\n")
	fmt.Printf("  --before TIME      Cutoff as a UTC timestamp\n")
	fmt.Printf("  --keep-days N      Cutoff as an age in days\n")
	fmt.Printf("  --filter EXPR      Scan metadata filter (repeatable)\n")
	fmt.Printf("  --host HOST        Database host\n")
	fmt.Printf("  --port PORT        Database port\n")
	fmt.Printf("  --user USER        Database user\n")
	fmt.Printf("  --password PASS    Database password\n")
	fmt.Printf("  --database NAME    Database name\n")
	fmt.Printf("  --sqlite PATH      Prune a SQLite database file instead of MySQL\n\n")

	fmt.Printf("EXAMPLES:\n")
	fmt.Printf("  # See what a 90-day retention policy would delete\n")
	fmt.Printf("  rfscope-prune --keep-days 90\n\n")

	fmt.Printf("  # Apply it\n")
	fmt.Printf("  rfscope-prune --keep-days 90 --yes --user scope_owner\n\n")

	fmt.Printf("  # Drop tune-mode scans from before 2024\n")
	fmt.Printf("  rfscope-prune --before 2024-01-01 --filter beam_mode=tune --yes\n\n")
}
