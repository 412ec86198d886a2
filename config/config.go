// Package config loads server settings from flags, environment and .env.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the habit server.
// Flags win over environment variables, which win over defaults.
type Config struct {
	Port           int      `help:"HTTP server port." default:"3333" env:"HABITS_PORT"`
	DB             string   `help:"SQLite database path (\":memory:\" for in-memory)." default:"habits.db" env:"HABITS_DB"`
	Timezone       string   `help:"IANA zone used to truncate timestamps to days." default:"Local" env:"HABITS_TZ"`
	LogLevel       string   `help:"Log level (debug, info, warn, error)." default:"info" env:"HABITS_LOG_LEVEL"`
	LogFile        string   `help:"Optional rotating log file." env:"HABITS_LOG_FILE"`
	AllowedOrigins []string `help:"CORS allowed origins." default:"http://localhost:5173,http://localhost:3333" env:"HABITS_ALLOWED_ORIGINS" sep:","`
	EnvFile        string   `help:"dotenv file loaded before parsing." default:".env" env:"HABITS_ENV_FILE"`
}

// Load reads an optional .env file, then parses args into a Config.
func Load(args []string) (*Config, error) {
	envFile := envFileFromArgs(args)
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := &Config{}
	parser, err := kong.New(cfg,
		kong.Name("habits-server"),
		kong.Description("Habit scheduling and completion tracking service."),
	)
	if err != nil {
		return nil, err
	}
	if _, err := parser.Parse(args); err != nil {
		return nil, err
	}

	return cfg, cfg.Validate()
}

// Validate checks that the timezone and log level are usable.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", c.Port)
	}
	if strings.TrimSpace(c.DB) == "" {
		return errors.New("db path must not be empty")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return nil
}

// Location resolves Timezone; "" and "Local" mean the process zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// envFileFromArgs finds --env-file ahead of the full parse, since the file
// has to be loaded before kong reads the environment.
func envFileFromArgs(args []string) string {
	for i, a := range args {
		if v, ok := strings.CutPrefix(a, "--env-file="); ok {
			return v
		}
		if a == "--env-file" && i+1 < len(args) {
			return args[i+1]
		}
	}
	if v := os.Getenv("HABITS_ENV_FILE"); v != "" {
		return v
	}
	return ".env"
}
