package main

import (
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/jeffersonlab/rfscopedb-go/pkg/analysis"
	"github.com/jeffersonlab/rfscopedb-go/pkg/config"
	"github.com/jeffersonlab/rfscopedb-go/pkg/scopedb"
	"github.com/jeffersonlab/rfscopedb-go/pkg/seed"
	"github.com/jeffersonlab/rfscopedb-go/pkg/timing"
)

var version = "dev" // Set by -ldflags during build

const timeFormat = "2006-01-02 15:04:05"

func main() {
	// Define flags
	var (
		showVersion bool
		showHelp    bool
		debug       bool
		dryRun      bool
		host        string
		port        int
		user        string
		password    string
		database    string
		sqlitePath  string
	)

	defaults := seed.DefaultParams()
	scans := defaults.Scans
	cavities := defaults.Cavities
	signals := defaults.Signals
	sampleRate := defaults.SampleRateHz
	startText := defaults.Start.Format("2006-01-02")
	spacing := defaults.Spacing

	pflag.BoolVarP(&showVersion, "version", "V", false, "Show version and exit")
	pflag.BoolVarP(&showHelp, "help", "h", false, "Show this help message")
	pflag.BoolVarP(&debug, "debug", "d", false, "Enable debug output")
	pflag.BoolVar(&dryRun, "dry-run", false, "Generate scans but do not insert them")
	pflag.IntVar(&scans, "scans", scans, "Number of scans to generate")
	pflag.StringSliceVar(&cavities, "cavities", cavities, "Cavity names")
	pflag.StringSliceVar(&signals, "signals", signals, "Signal names per cavity")
	pflag.Float64Var(&sampleRate, "sample-rate", sampleRate, "Sample rate in Hz")
	pflag.StringVar(&startText, "start", startText, "First scan start, 'YYYY-MM-DD [HH:MM:SS]' UTC")
	pflag.DurationVar(&spacing, "spacing", spacing, "Time between scan starts")
	pflag.StringVar(&host, "host", "", "Database host (default from config)")
	pflag.IntVar(&port, "port", 0, "Database port (default from config)")
	pflag.StringVar(&user, "user", "", "Database user (default from config)")
	pflag.StringVar(&password, "password", "", "Database password (default from config)")
	pflag.StringVar(&database, "database", "", "Database name (default from config)")
	pflag.StringVar(&sqlitePath, "sqlite", "", "Seed a SQLite database at this path instead of MySQL")

	pflag.Parse()

	// Handle version
	if showVersion {
		fmt.Printf("rfscope-seed version %s\n", version)
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

	start, err := parseTimeFlag(startText)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	params := seed.Params{
		Scans:        scans,
		Cavities:     cavities,
		Signals:      signals,
		SampleRateHz: sampleRate,
		Start:        start,
		Spacing:      spacing,
	}

	var sw timing.Stopwatch
	var generated []*scopedb.Scan
	err = sw.Time("generate", func() error {
		var genErr error
		generated, genErr = seed.Generate(params)
		return genErr
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating scans: %v\n", err)
		os.Exit(1)
	}

	waveforms := len(cavities) * len(signals)
	fmt.Printf("Generated %d scans with %d stored waveforms each (%d samples per trace)\n",
		len(generated), waveforms, analysis.SampleCount)

	if dryRun {
		fmt.Printf("Dry run: nothing inserted\n")
		if debug {
			fmt.Printf("Timing: %s\n", sw.String())
		}
		return
	}

	db, err := openDatabase(host, port, user, password, database, sqlitePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	err = sw.Time("insert", func() error {
		return seed.Insert(db, generated)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error inserting scans: %v\n", err)
		os.Exit(1)
	}

	counts, err := db.TableCounts()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error counting rows: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nInserted %d scans. The database now holds %d scans and %d waveforms.\n",
		len(generated), counts["scan"], counts["waveform"])
	if debug {
		fmt.Printf("Timing: %s\n", sw.String())
	}
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
	fmt.Printf("rfscope-seed - Fill a waveform database with synthetic scans\n\n")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Printf("DESCRIPTION:\n")
	fmt.Printf("  Generates deterministic synthetic scans and inserts them through the\n")
	fmt.Printf("  normal ingest path. Every waveform is a cosine centered on a distinct\n")
	fmt.Printf("  spectrum bin, so stored statistics and dominant frequencies have\n")
	fmt.Printf("  known values. Useful for exercising queries without scope hardware.\n\n")

	fmt.Printf("USAGE:\n")
	fmt.Printf("  rfscope-seed [OPTIONS]\n\n")

	fmt.Printf("OPTIONS:\n")
	fmt.Printf("  -h, --help           Show this help message\n")
	fmt.Printf("  -V, --version        Show version\n")
	fmt.Printf("  -d, --debug          Enable debug output\n")
	fmt.Printf("  --dry-run            Generate scans but do not insert them\n")
	fmt.Printf("  --scans N            Number of scans (default 10)\n")
	fmt.Printf("  --cavities LIST      Cavity names (default R121,R122,R123,R124)\n")
	fmt.Printf("  --signals LIST       Signal names per cavity (default GMES,PMES)\n")
	fmt.Printf("  --sample-rate HZ     Sample rate (default 5000)\n")
	fmt.Printf("  --start TIME         First scan start, UTC (default 2024-01-01)\n")
	fmt.Printf("  --spacing DURATION   Time between scan starts (default 1m)\n")
	fmt.Printf("  --host HOST          Database host\n")
	fmt.Printf("  --port PORT          Database port\n")
	fmt.Printf("  --user USER          Database user\n")
	fmt.Printf("  --password PASS      Database password\n")
	fmt.Printf("  --database NAME      Database name\n")
	fmt.Printf("  --sqlite PATH        Seed a SQLite database file instead of MySQL\n\n")

	fmt.Printf("EXAMPLES:\n")
	fmt.Printf("  # Seed the docker-compose reference database\n")
	fmt.Printf("  rfscope-seed\n\n")

	fmt.Printf("  # A week of hourly scans for one cavity\n")
	fmt.Printf("  rfscope-seed --scans 168 --cavities R121 --spacing 1h --start 2024-03-01\n\n")

	fmt.Printf("  # Build a throwaway SQLite database\n")
	fmt.Printf("  rfscope-seed --sqlite /tmp/waveforms.db --scans 5\n\n")
}
