package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the connection settings for the waveform database.
type Config struct {
	Driver     string `yaml:"driver"`      // 'mysql' or 'sqlite3'
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	Database   string `yaml:"database"`
	SQLitePath string `yaml:"sqlite_path"` // sqlite3 only
}

// DefaultConfig returns settings matching the docker-compose reference
// database.
func DefaultConfig() *Config {
	return &Config{
		Driver:   "mysql",
		Host:     "localhost",
		Port:     3306,
		User:     "scope_rw",
		Password: "password",
		Database: "scope_waveforms",
	}
}

// Load loads configuration from .env, config file and environment variables
// Priority: environment variables > config file > defaults
func Load() (*Config, error) {
	// Pick up the docker-compose .env so the tools and the reference
	// database read the same settings. Missing files are fine.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	configPath := os.Getenv("RFSCOPEDB_CONFIG")
	if configPath == "" {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			configPath = filepath.Join(homeDir, ".rfscopedb.yaml")
		}
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			// Config file is optional, so we just skip if not found
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load config file: %w", err)
			}
		}
	}

	// Override with environment variables
	if driver := os.Getenv("RFSCOPEDB_DRIVER"); driver != "" {
		cfg.Driver = driver
	}
	if host := os.Getenv("RFSCOPEDB_HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("RFSCOPEDB_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid RFSCOPEDB_PORT %q: %w", port, err)
		}
		cfg.Port = p
	}
	if user := os.Getenv("RFSCOPEDB_USER"); user != "" {
		cfg.User = user
	}
	if password := os.Getenv("RFSCOPEDB_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if database := os.Getenv("RFSCOPEDB_DATABASE"); database != "" {
		cfg.Database = database
	}
	if path := os.Getenv("RFSCOPEDB_SQLITE"); path != "" {
		// Pointing at a SQLite file implies the sqlite3 driver
		cfg.Driver = "sqlite3"
		cfg.SQLitePath = path
	}

	return cfg, nil
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// Save saves the configuration to a file
func (cfg *Config) Save(path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	configPath := os.Getenv("RFSCOPEDB_CONFIG")
	if configPath == "" {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			configPath = filepath.Join(homeDir, ".rfscopedb.yaml")
		} else {
			configPath = ".rfscopedb.yaml"
		}
	}
	return configPath
}

// GetSQLitePath returns the SQLite database path, expanding ~/ if needed
func (cfg *Config) GetSQLitePath() string {
	if len(cfg.SQLitePath) > 1 && cfg.SQLitePath[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(homeDir, cfg.SQLitePath[2:])
		}
	}
	return cfg.SQLitePath
}

// Validate checks that the configuration can plausibly reach a database.
func (cfg *Config) Validate() error {
	switch cfg.Driver {
	case "mysql":
		if cfg.Host == "" {
			return fmt.Errorf("mysql driver requires a host")
		}
		if cfg.User == "" {
			return fmt.Errorf("mysql driver requires a user")
		}
	case "sqlite3":
		if cfg.SQLitePath == "" {
			return fmt.Errorf("sqlite3 driver requires sqlite_path")
		}
	default:
		return fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
	return nil
}
