package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/jeffersonlab/rfscopedb-go/pkg/config"
	"github.com/jeffersonlab/rfscopedb-go/pkg/scopedb"
)

var version = "dev" // Set by -ldflags during build

func main() {
	// Define flags
	var (
		showVersion bool
		showHelp    bool
		configPath  string
	)

	pflag.BoolVarP(&showVersion, "version", "V", false, "Show version and exit")
	pflag.BoolVarP(&showHelp, "help", "h", false, "Show this help message")
	pflag.StringVar(&configPath, "config", "", "Path to config file (default: ~/.rfscopedb.yaml)")

	pflag.Parse()

	// Handle version
	if showVersion {
		fmt.Printf("rfscope-config version %s\n", version)
		os.Exit(0)
	}

	// Handle help
	if showHelp {
		printHelp()
		os.Exit(0)
	}

	// Get subcommand
	args := pflag.Args()
	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "Error: subcommand required\n\n")
		printUsage()
		os.Exit(1)
	}

	subcommand := args[0]

	// Override config path if specified
	if configPath != "" {
		os.Setenv("RFSCOPEDB_CONFIG", configPath)
	}

	// Execute subcommand
	switch subcommand {
	case "init":
		handleInit(args[1:])
	case "set":
		handleSet(args[1:])
	case "get":
		handleGet(args[1:])
	case "show":
		handleShow()
	case "path":
		handlePath()
	case "check":
		handleCheck()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown subcommand '%s'\n\n", subcommand)
		printUsage()
		os.Exit(1)
	}
}

func handleInit(args []string) {
	// Parse flags for init
	var force bool
	flags := pflag.NewFlagSet("init", pflag.ExitOnError)
	flags.BoolVarP(&force, "force", "f", false, "Overwrite existing config file")
	flags.Parse(args)

	configPath := config.GetConfigPath()

	// Check if config exists
	if _, err := os.Stat(configPath); err == nil && !force {
		fmt.Fprintf(os.Stderr, "Error: config file already exists at %s\n", configPath)
		fmt.Fprintf(os.Stderr, "Use --force to overwrite\n")
		os.Exit(1)
	}

	// Create default config
	cfg := config.DefaultConfig()

	// Save config
	if err := cfg.Save(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to save config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Created config file at %s\n", configPath)
	fmt.Println("\nDefault configuration:")
	fmt.Printf("  driver:   %s\n", cfg.Driver)
	fmt.Printf("  host:     %s\n", cfg.Host)
	fmt.Printf("  port:     %d\n", cfg.Port)
	fmt.Printf("  user:     %s\n", cfg.User)
	fmt.Printf("  database: %s\n", cfg.Database)
	fmt.Println("\nEdit the file or use 'rfscope-config set' to customize.")
}

func handleSet(args []string) {
	if len(args) < 2 {
		fmt.Fprintf(os.Stderr, "Error: 'set' requires KEY and VALUE arguments\n\n")
		fmt.Fprintf(os.Stderr, "Usage: rfscope-config set KEY VALUE\n")
		fmt.Fprintf(os.Stderr, "\nValid keys:\n")
		fmt.Fprintf(os.Stderr, "  driver        Database driver (mysql or sqlite3)\n")
		fmt.Fprintf(os.Stderr, "  host          Database host\n")
		fmt.Fprintf(os.Stderr, "  port          Database port\n")
		fmt.Fprintf(os.Stderr, "  user          Database user\n")
		fmt.Fprintf(os.Stderr, "  password      Database password\n")
		fmt.Fprintf(os.Stderr, "  database      Database name\n")
		fmt.Fprintf(os.Stderr, "  sqlite_path   SQLite database file (sqlite3 driver)\n")
		os.Exit(1)
	}

	key := args[0]
	value := args[1]

	// Load existing config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		fmt.Fprintf(os.Stderr, "Try running 'rfscope-config init' first\n")
		os.Exit(1)
	}

	// Set the value
	switch key {
	case "driver":
		if value != scopedb.DriverMySQL && value != scopedb.DriverSQLite {
			fmt.Fprintf(os.Stderr, "Error: invalid driver (use mysql or sqlite3)\n")
			os.Exit(1)
		}
		cfg.Driver = value
	case "host":
		cfg.Host = value
	case "port":
		port, err := strconv.Atoi(value)
		if err != nil || port < 1 || port > 65535 {
			fmt.Fprintf(os.Stderr, "Error: invalid port %q\n", value)
			os.Exit(1)
		}
		cfg.Port = port
	case "user":
		cfg.User = value
	case "password":
		cfg.Password = value
	case "database":
		cfg.Database = value
	case "sqlite_path":
		cfg.SQLitePath = value
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown config key '%s'\n", key)
		fmt.Fprintf(os.Stderr, "Valid keys: driver, host, port, user, password, database, sqlite_path\n")
		os.Exit(1)
	}

	// Save config
	configPath := config.GetConfigPath()
	if err := cfg.Save(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to save config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Set %s = %v\n", key, value)
}

func handleGet(args []string) {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Error: 'get' requires KEY argument\n\n")
		fmt.Fprintf(os.Stderr, "Usage: rfscope-config get KEY\n")
		fmt.Fprintf(os.Stderr, "\nValid keys: driver, host, port, user, password, database, sqlite_path\n")
		os.Exit(1)
	}

	key := args[0]

	// Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Get the value
	switch key {
	case "driver":
		fmt.Println(cfg.Driver)
	case "host":
		fmt.Println(cfg.Host)
	case "port":
		fmt.Println(cfg.Port)
	case "user":
		fmt.Println(cfg.User)
	case "password":
		fmt.Println(cfg.Password)
	case "database":
		fmt.Println(cfg.Database)
	case "sqlite_path":
		fmt.Println(cfg.GetSQLitePath())
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown config key '%s'\n", key)
		fmt.Fprintf(os.Stderr, "Valid keys: driver, host, port, user, password, database, sqlite_path\n")
		os.Exit(1)
	}
}

func handleShow() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	configPath := config.GetConfigPath()
	fmt.Printf("Configuration from: %s\n\n", configPath)
	fmt.Printf("driver:        %s\n", cfg.Driver)
	fmt.Printf("host:          %s\n", cfg.Host)
	fmt.Printf("port:          %d\n", cfg.Port)
	fmt.Printf("user:          %s\n", cfg.User)
	fmt.Printf("password:      %s\n", cfg.Password)
	fmt.Printf("database:      %s\n", cfg.Database)
	fmt.Printf("sqlite_path:   %s\n", cfg.GetSQLitePath())

	// Show environment variable overrides
	fmt.Println("\nEnvironment variable overrides:")
	overrides := []struct {
		env string
		key string
	}{
		{"RFSCOPEDB_DRIVER", "driver"},
		{"RFSCOPEDB_HOST", "host"},
		{"RFSCOPEDB_PORT", "port"},
		{"RFSCOPEDB_USER", "user"},
		{"RFSCOPEDB_PASSWORD", "password"},
		{"RFSCOPEDB_DATABASE", "database"},
		{"RFSCOPEDB_SQLITE", "sqlite_path, sets driver=sqlite3"},
	}
	for _, o := range overrides {
		if value := os.Getenv(o.env); value != "" {
			fmt.Printf("  %s=%s (overrides %s)\n", o.env, value, o.key)
		}
	}
}

func handlePath() {
	configPath := config.GetConfigPath()
	fmt.Println(configPath)
}

func handleCheck() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "✗ Configuration invalid: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✓ Configuration is valid")

	// Try to reach the database
	db, err := scopedb.Open(scopedb.Options{
		Driver:   cfg.Driver,
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
		Database: cfg.Database,
		Path:     cfg.GetSQLitePath(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ Database unreachable: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	counts, err := db.TableCounts()
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ Schema check failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Database reachable, %d scans stored\n", counts["scan"])
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: rfscope-config [OPTIONS] SUBCOMMAND\n\n")
	fmt.Fprintf(os.Stderr, "Manage waveform database connection settings\n\n")
	fmt.Fprintf(os.Stderr, "Subcommands:\n")
	fmt.Fprintf(os.Stderr, "  init          Create default config file\n")
	fmt.Fprintf(os.Stderr, "  set KEY VAL   Set configuration value\n")
	fmt.Fprintf(os.Stderr, "  get KEY       Get configuration value\n")
	fmt.Fprintf(os.Stderr, "  show          Show all configuration\n")
	fmt.Fprintf(os.Stderr, "  path          Show config file path\n")
	fmt.Fprintf(os.Stderr, "  check         Validate settings and try to reach the database\n\n")
	pflag.PrintDefaults()
}

func printHelp() {
	fmt.Printf("rfscope-config - Manage waveform database connection settings\n\n")
	fmt.Printf("Version: %s\n\n", version)

	fmt.Printf("DESCRIPTION:\n")
	fmt.Printf("  Manages connection settings for the rfscope commands. Settings are\n")
	fmt.Printf("  stored in ~/.rfscopedb.yaml by default and can be overridden with\n")
	fmt.Printf("  environment variables.\n\n")

	fmt.Printf("USAGE:\n")
	fmt.Printf("  rfscope-config [OPTIONS] SUBCOMMAND\n\n")

	fmt.Printf("SUBCOMMANDS:\n")
	fmt.Printf("  init          Create default configuration file\n")
	fmt.Printf("  set KEY VAL   Set a configuration value\n")
	fmt.Printf("  get KEY       Get a configuration value\n")
	fmt.Printf("  show          Display all configuration values\n")
	fmt.Printf("  path          Show the config file path\n")
	fmt.Printf("  check         Validate settings and try to reach the database\n\n")

	fmt.Printf("CONFIGURATION KEYS:\n")
	fmt.Printf("  driver        mysql (default) or sqlite3\n")
	fmt.Printf("  host          Database host (default localhost)\n")
	fmt.Printf("  port          Database port (default 3306)\n")
	fmt.Printf("  user          Database user (default scope_rw)\n")
	fmt.Printf("  password      Database password\n")
	fmt.Printf("  database      Database name (default scope_waveforms)\n")
	fmt.Printf("  sqlite_path   SQLite database file, used by the sqlite3 driver\n\n")

	fmt.Printf("ENVIRONMENT VARIABLES:\n")
	fmt.Printf("  RFSCOPEDB_CONFIG      Path to config file\n")
	fmt.Printf("  RFSCOPEDB_DRIVER      Override driver\n")
	fmt.Printf("  RFSCOPEDB_HOST        Override host\n")
	fmt.Printf("  RFSCOPEDB_PORT        Override port\n")
	fmt.Printf("  RFSCOPEDB_USER        Override user\n")
	fmt.Printf("  RFSCOPEDB_PASSWORD    Override password\n")
	fmt.Printf("  RFSCOPEDB_DATABASE    Override database name\n")
	fmt.Printf("  RFSCOPEDB_SQLITE      SQLite file path, also sets driver=sqlite3\n\n")

	fmt.Printf("OPTIONS:\n")
	pflag.PrintDefaults()

	fmt.Printf("\nEXAMPLES:\n")
	fmt.Printf("  # Create default config for the docker-compose reference database\n")
	fmt.Printf("  rfscope-config init\n\n")

	fmt.Printf("  # Point at a production host\n")
	fmt.Printf("  rfscope-config set host scopedb.acc.jlab.org\n\n")

	fmt.Printf("  # Switch to a local SQLite file\n")
	fmt.Printf("  rfscope-config set driver sqlite3\n")
	fmt.Printf("  rfscope-config set sqlite_path ~/scope/waveforms.db\n\n")

	fmt.Printf("  # Verify everything is reachable\n")
	fmt.Printf("  rfscope-config check\n\n")

	fmt.Printf("  # View all configuration\n")
	fmt.Printf("  rfscope-config show\n\n")
}
