package main

import (
	"database/sql"
	"fmt"
	"os"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/jeffersonlab/rfscopedb-go/pkg/config"
	"github.com/jeffersonlab/rfscopedb-go/pkg/scopedb"
	"github.com/jeffersonlab/rfscopedb-go/pkg/timing"
)

var version = "dev" // Set by -ldflags during build

const timeFormat = "2006-01-02 15:04:05"

func main() {
	// Define global flags
	var (
		showVersion bool
		showHelp    bool
		debug       bool
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
	pflag.StringVar(&host, "host", "", "Database host (default from config)")
	pflag.IntVar(&port, "port", 0, "Database port (default from config)")
	pflag.StringVar(&user, "user", "", "Database user (default from config)")
	pflag.StringVar(&password, "password", "", "Database password (default from config)")
	pflag.StringVar(&database, "database", "", "Database name (default from config)")
	pflag.StringVar(&sqlitePath, "sqlite", "", "Query a SQLite database at this path instead of MySQL")

	// Stop parsing at first non-flag argument (the subcommand)
	pflag.CommandLine.SetInterspersed(false)
	pflag.Parse()

	// Handle version
	if showVersion {
		fmt.Printf("rfscope-query version %s\n", version)
		os.Exit(0)
	}

	// Get subcommand
	args := pflag.Args()
	if len(args) == 0 || showHelp {
		printHelp()
		os.Exit(0)
	}

	subcommand := args[0]

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	db, err := openDatabase(cfg, host, port, user, password, database, sqlitePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// Execute subcommand
	switch subcommand {
	case "scans":
		handleScans(db, args[1:], debug)
	case "waveforms":
		handleWaveforms(db, args[1:], debug)
	case "metrics":
		handleMetrics(db, args[1:], debug)
	case "stats":
		handleStats(db, args[1:], debug)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown subcommand '%s'\n\n", subcommand)
		printUsage()
		os.Exit(1)
	}
}

// openDatabase applies CLI overrides to the loaded config and connects.
func openDatabase(cfg *config.Config, host string, port int, user, password, database, sqlitePath string) (*scopedb.WaveformDB, error) {
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

func handleScans(db *scopedb.WaveformDB, args []string, debug bool) {
	fs := pflag.NewFlagSet("scans", pflag.ExitOnError)
	begin := fs.String("begin", "", "Earliest scan start, 'YYYY-MM-DD [HH:MM:SS]' UTC")
	end := fs.String("end", "", "Latest scan start, 'YYYY-MM-DD [HH:MM:SS]' UTC")
	filters := fs.StringArray("filter", nil, "Scan metadata filter <param><op><value> (repeatable)")
	limit := fs.Int("limit", 50, "Maximum number of scans to display")

	fs.Parse(args)

	query, err := buildQuery(db, *begin, *end, *filters, nil, nil, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var sw timing.Stopwatch
	if err := sw.Time("stage", query.Stage); err != nil {
		fmt.Fprintf(os.Stderr, "Error staging query: %v\n", err)
		os.Exit(1)
	}

	scans := query.Scans()
	if len(scans) == 0 {
		fmt.Println("No scans matched")
		return
	}

	total := len(scans)
	if len(scans) > *limit {
		scans = scans[:*limit]
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SID\tStart (UTC)\tEnd (UTC)\tMetadata")
	fmt.Fprintln(w, "---\t-----------\t---------\t--------")
	for _, scan := range scans {
		endText := "-"
		if !scan.EndUTC.IsZero() {
			endText = scan.EndUTC.Format(timeFormat)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
			scan.ID, scan.StartUTC.Format(timeFormat), endText, metadataText(scan))
	}
	w.Flush()

	fmt.Printf("\nShowing %d of %d scans\n", len(scans), total)
	if debug {
		fmt.Printf("Timing: %s\n", sw.String())
	}
}

func handleWaveforms(db *scopedb.WaveformDB, args []string, debug bool) {
	fs := pflag.NewFlagSet("waveforms", pflag.ExitOnError)
	begin := fs.String("begin", "", "Earliest scan start, 'YYYY-MM-DD [HH:MM:SS]' UTC")
	end := fs.String("end", "", "Latest scan start, 'YYYY-MM-DD [HH:MM:SS]' UTC")
	filters := fs.StringArray("filter", nil, "Scan metadata filter <param><op><value> (repeatable)")
	signals := fs.StringSlice("signal", nil, "Signal names to retrieve (default all)")
	arrays := fs.StringSlice("array", nil, "Array names to retrieve, e.g. raw,power_spectrum (default all)")
	limit := fs.Int("limit", 50, "Maximum number of arrays to display")

	fs.Parse(args)

	query, err := buildQuery(db, *begin, *end, *filters, *signals, *arrays, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var sw timing.Stopwatch
	if err := sw.Time("stage", query.Stage); err != nil {
		fmt.Fprintf(os.Stderr, "Error staging query: %v\n", err)
		os.Exit(1)
	}
	if debug {
		fmt.Printf("Staged %d scans\n\n", query.ScanCount())
	}

	var result *scopedb.Result
	err = sw.Time("run", func() error {
		var runErr error
		result, runErr = query.Run()
		return runErr
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running query: %v\n", err)
		os.Exit(1)
	}

	if len(result.Arrays) == 0 {
		fmt.Println("No waveform arrays matched")
		return
	}

	total := len(result.Arrays)
	shown := result.Arrays
	if len(shown) > *limit {
		shown = shown[:*limit]
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WID\tSID\tCavity\tSignal\tArray\tValues\tRate (Hz)")
	fmt.Fprintln(w, "---\t---\t------\t------\t-----\t------\t---------")
	for _, wa := range shown {
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%d\t%g\n",
			wa.WaveformID, wa.ScanID, wa.Cavity, wa.SignalName, wa.Name, len(wa.Data), wa.SampleRateHz)
	}
	w.Flush()

	fmt.Printf("\nShowing %d of %d arrays from %d scans\n", len(shown), total, query.ScanCount())
	if debug {
		fmt.Printf("Timing: %s\n", sw.String())
	}
}

func handleMetrics(db *scopedb.WaveformDB, args []string, debug bool) {
	fs := pflag.NewFlagSet("metrics", pflag.ExitOnError)
	begin := fs.String("begin", "", "Earliest scan start, 'YYYY-MM-DD [HH:MM:SS]' UTC")
	end := fs.String("end", "", "Latest scan start, 'YYYY-MM-DD [HH:MM:SS]' UTC")
	filters := fs.StringArray("filter", nil, "Scan metadata filter <param><op><value> (repeatable)")
	signals := fs.StringSlice("signal", nil, "Signal names to retrieve (default all)")
	metrics := fs.StringSlice("metric", nil, "Metric names to retrieve, e.g. mean,rms (default all)")
	limit := fs.Int("limit", 20, "Maximum number of waveforms to display")

	fs.Parse(args)

	query, err := buildQuery(db, *begin, *end, *filters, *signals, nil, *metrics)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var sw timing.Stopwatch
	if err := sw.Time("stage", query.Stage); err != nil {
		fmt.Fprintf(os.Stderr, "Error staging query: %v\n", err)
		os.Exit(1)
	}

	var result *scopedb.Result
	err = sw.Time("run", func() error {
		var runErr error
		result, runErr = query.Run()
		return runErr
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running query: %v\n", err)
		os.Exit(1)
	}

	if len(result.Stats) == 0 {
		fmt.Println("No waveform metrics matched")
		return
	}

	total := len(result.Stats)
	shown := result.Stats
	if len(shown) > *limit {
		shown = shown[:*limit]
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WID\tSID\tCavity\tSignal\tMetric\tValue")
	fmt.Fprintln(w, "---\t---\t------\t------\t------\t-----")
	for _, ws := range shown {
		names := make([]string, 0, len(ws.Metrics))
		for name := range ws.Metrics {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%g\n",
				ws.WaveformID, ws.ScanID, ws.Cavity, ws.SignalName, name, ws.Metrics[name])
		}
	}
	w.Flush()

	fmt.Printf("\nShowing %d of %d waveforms from %d scans\n", len(shown), total, query.ScanCount())
	if debug {
		fmt.Printf("Timing: %s\n", sw.String())
	}
}

func handleStats(db *scopedb.WaveformDB, args []string, debug bool) {
	fs := pflag.NewFlagSet("stats", pflag.ExitOnError)
	fs.Parse(args)

	counts, err := db.TableCounts()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error counting rows: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Database statistics:\n\n")

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Table\tRows")
	fmt.Fprintln(w, "-----\t----")
	for _, table := range scopedb.Tables {
		fmt.Fprintf(w, "%s\t%d\n", table, counts[table])
	}
	w.Flush()

	var first, last sql.NullString
	row := db.QueryRowRaw("SELECT MIN(scan_start_utc), MAX(scan_start_utc) FROM scan")
	if err := row.Scan(&first, &last); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading scan range: %v\n", err)
		os.Exit(1)
	}
	if first.Valid && last.Valid {
		fmt.Printf("\nScans span %s to %s (UTC)\n", first.String, last.String)
	}
}

// buildQuery turns CLI flag values into a staged-query handle.
func buildQuery(db *scopedb.WaveformDB, begin, end string, filterExprs, signals, arrays, metrics []string) (*scopedb.Query, error) {
	params := scopedb.QueryParams{
		SignalNames: signals,
		ArrayNames:  arrays,
		MetricNames: metrics,
	}

	var err error
	if params.Begin, err = parseTimeFlag(begin); err != nil {
		return nil, err
	}
	if params.End, err = parseTimeFlag(end); err != nil {
		return nil, err
	}

	for _, expr := range filterExprs {
		f, err := scopedb.ParseFilter(expr)
		if err != nil {
			return nil, err
		}
		params.Filters = append(params.Filters, f)
	}

	return scopedb.NewQuery(db, params)
}

// parseTimeFlag reads a UTC timestamp flag; empty means unbounded.
func parseTimeFlag(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{timeFormat, "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q (want 'YYYY-MM-DD [HH:MM:SS]')", value)
}

// metadataText renders a scan's metadata as sorted name=value pairs.
func metadataText(scan *scopedb.ScanRecord) string {
	names := make([]string, 0, len(scan.Floats)+len(scan.Strings))
	for name := range scan.Floats {
		names = append(names, name)
	}
	for name := range scan.Strings {
		names = append(names, name)
	}
	slices.Sort(names)
	names = slices.Compact(names)

	if len(names) == 0 {
		return "-"
	}

	parts := make([]string, 0, len(names))
	for _, name := range names {
		if v, ok := scan.Floats[name]; ok {
			parts = append(parts, fmt.Sprintf("%s=%g", name, v))
		} else {
			parts = append(parts, fmt.Sprintf("%s=%s", name, scan.Strings[name]))
		}
	}
	return strings.Join(parts, " ")
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: rfscope-query [OPTIONS] COMMAND [ARGS...]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  scans        List scans matching a time window and metadata filters\n")
	fmt.Fprintf(os.Stderr, "  waveforms    Retrieve waveform arrays for matching scans\n")
	fmt.Fprintf(os.Stderr, "  metrics      Retrieve waveform scalar metrics for matching scans\n")
	fmt.Fprintf(os.Stderr, "  stats        Show table row counts and scan time range\n")
}

func printHelp() {
	fmt.Printf("rfscope-query - Query RF scope waveform data\n\n")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Printf("DESCRIPTION:\n")
	fmt.Printf("  Queries run in two phases: the scans subcommand shows the cheap\n")
	fmt.Printf("  metadata staging step, while waveforms and metrics stage and then\n")
	fmt.Printf("  retrieve the bulk data for the matching scans.\n\n")

	fmt.Printf("USAGE:\n")
	fmt.Printf("  rfscope-query [OPTIONS] COMMAND [ARGS...]\n\n")

	fmt.Printf("COMMANDS:\n")
	fmt.Printf("  scans        List scans matching a time window and metadata filters\n")
	fmt.Printf("  waveforms    Retrieve waveform arrays for matching scans\n")
	fmt.Printf("  metrics      Retrieve waveform scalar metrics for matching scans\n")
	fmt.Printf("  stats        Show table row counts and scan time range\n\n")

	fmt.Printf("GLOBAL OPTIONS:\n")
	fmt.Printf("  -h, --help         Show this help message\n")
	fmt.Printf("  -V, --version      Show version\n")
	fmt.Printf("  -d, --debug        Enable debug output\n")
	fmt.Printf("  --host HOST        Database host\n")
	fmt.Printf("  --port PORT        Database port\n")
	fmt.Printf("  --user USER        Database user\n")
	fmt.Printf("  --password PASS    Database password\n")
	fmt.Printf("  --database NAME    Database name\n")
	fmt.Printf("  --sqlite PATH      Query a SQLite database file instead of MySQL\n\n")

	fmt.Printf("EXAMPLES:\n")
	fmt.Printf("  # List scans from 2024 where R1XXITOT exceeded 42 uA\n")
	fmt.Printf("  rfscope-query scans --begin '2024-01-01' --filter 'R1XXITOT>42'\n\n")

	fmt.Printf("  # Retrieve GMES power spectra for those scans\n")
	fmt.Printf("  rfscope-query waveforms --begin '2024-01-01' --filter 'R1XXITOT>42' \\\n")
	fmt.Printf("      --signal GMES --array power_spectrum\n\n")

	fmt.Printf("  # Show mean and RMS for every stored waveform\n")
	fmt.Printf("  rfscope-query metrics --metric mean,rms\n\n")

	fmt.Printf("  # Show overall database statistics\n")
	fmt.Printf("  rfscope-query stats\n\n")

	fmt.Printf("For command-specific help:\n")
	fmt.Printf("  rfscope-query COMMAND --help\n\n")
}
