package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/gkobilansky/ab-goat/internal/stats"
)

// Config holds everything the CLI and server need at startup.
type Config struct {
	DBPath   string        `yaml:"db_path"`
	Port     int           `yaml:"port"`
	LogLevel string        `yaml:"log_level"`
	CacheTTL time.Duration `yaml:"cache_ttl"`

	Warehouse WarehouseConfig `yaml:"warehouse"`
	Arms      ArmsConfig      `yaml:"arms"`
}

// WarehouseConfig locates the BigQuery project and its credentials.
type WarehouseConfig struct {
	ProjectID       string `yaml:"project_id"`
	Location        string `yaml:"location"`
	CredentialsFile string `yaml:"credentials_file"`
	CredentialsJSON string `yaml:"credentials_json"`
}

// ArmsConfig names the control and treatment variants.
type ArmsConfig struct {
	Control   string `yaml:"control"`
	Treatment string `yaml:"treatment"`
}

// Stats converts the configured labels for the analytics package.
func (a ArmsConfig) Stats() stats.Arms {
	return stats.Arms{Control: a.Control, Treatment: a.Treatment}
}

// Default returns the built-in configuration.
func Default() *Config {
	arms := stats.DefaultArms()
	return &Config{
		DBPath:   "./abg.db",
		Port:     8080,
		LogLevel: "info",
		CacheTTL: 10 * time.Minute,
		Arms:     ArmsConfig{Control: arms.Control, Treatment: arms.Treatment},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path, a .env file in the working directory and the environment, in that
// order of increasing precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.DBPath, "ABG_DB_PATH")
	setString(&c.LogLevel, "ABG_LOG_LEVEL")
	setString(&c.Warehouse.ProjectID, "ABG_PROJECT")
	setString(&c.Warehouse.Location, "ABG_LOCATION")
	setString(&c.Warehouse.CredentialsFile, "ABG_CREDENTIALS")
	setString(&c.Warehouse.CredentialsJSON, "ABG_CREDENTIALS_JSON")
	setString(&c.Arms.Control, "ABG_CONTROL_LABEL")
	setString(&c.Arms.Treatment, "ABG_TREATMENT_LABEL")

	if v := os.Getenv("ABG_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid ABG_PORT %q: %w", v, err)
		}
		c.Port = port
	}

	if v := os.Getenv("ABG_CACHE_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid ABG_CACHE_TTL %q: %w", v, err)
		}
		c.CacheTTL = ttl
	}

	return nil
}

// Validate rejects configurations the tool can't run with.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("db path is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache ttl must be positive, got %s", c.CacheTTL)
	}
	if c.Arms.Control == "" || c.Arms.Treatment == "" {
		return errors.New("both arm labels are required")
	}
	if c.Arms.Control == c.Arms.Treatment {
		return fmt.Errorf("control and treatment labels must differ, both are %q", c.Arms.Control)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// HasWarehouse reports whether a BigQuery project is configured.
func (c *Config) HasWarehouse() bool {
	return c.Warehouse.ProjectID != ""
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
}

// Logger returns a text logger on stderr at the configured level.
func (c *Config) Logger() *slog.Logger {
	level, _ := ParseLevel(c.LogLevel)
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
