// Package config loads server settings from a .env file and the environment.
//
// Precedence, lowest first: defaults, .env file, process environment, and
// finally command-line flags applied by cmd/server. A .env file never
// overrides a variable already set in the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Drivers accepted by DB_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverBolt     = "bolt"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds every runtime setting of the server.
type Config struct {
	Port        int
	DBDriver    string
	DBPath      string
	DatabaseURL string
	Timezone    string

	NotifyDismiss time.Duration

	// ExportDir receives scheduled CSV exports. Empty disables the job.
	ExportDir      string
	ExportSchedule string

	LogLevel    string
	CORSOrigins []string
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Port:           8080,
		DBDriver:       DriverSQLite,
		DBPath:         "ledger.db",
		Timezone:       "Asia/Jakarta",
		NotifyDismiss:  4 * time.Second,
		ExportSchedule: "0 0 * * *",
		LogLevel:       "info",
		CORSOrigins:    []string{"*"},
	}
}

// Load reads envFiles (default ".env") if present, then the environment.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function over Defaults.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Defaults()

	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 {
			return Config{}, fmt.Errorf("invalid PORT %q", v)
		}
		cfg.Port = port
	}
	if v := getenv("DB_DRIVER"); v != "" {
		cfg.DBDriver = strings.ToLower(v)
	}
	if v := getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	cfg.DatabaseURL = getenv("DATABASE_URL")
	if v := getenv("TIMEZONE"); v != "" {
		cfg.Timezone = v
	}
	if v := getenv("NOTIFY_DISMISS"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid NOTIFY_DISMISS %q: %w", v, err)
		}
		cfg.NotifyDismiss = d
	}
	cfg.ExportDir = getenv("EXPORT_DIR")
	if v := getenv("EXPORT_SCHEDULE"); v != "" {
		cfg.ExportSchedule = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
	}

	return cfg, cfg.Validate()
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.DBDriver {
	case DriverSQLite, DriverBolt, DriverMemory:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q", c.LogLevel)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

// Location returns the configured time zone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Logger builds the process logger at the configured level.
func (c Config) Logger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
