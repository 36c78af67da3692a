package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/prilive-com/slackcast/internal/validate"
	"github.com/prilive-com/slackcast/recipients"
)

// Config holds slackcast configuration.
type Config struct {
	// Required
	Token string

	// Input files
	EmailsPath  string
	MessagePath string

	// Behaviour
	DryRun   bool
	LogLevel string
	Timeout  time.Duration

	// Optional
	ReportDir string
	BaseURL   string
}

// Default returns the configuration before environment and flags apply.
func Default() Config {
	return Config{
		EmailsPath:  recipients.DefaultEmailsPath,
		MessagePath: recipients.DefaultMessagePath,
		LogLevel:    "info",
		Timeout:     30 * time.Second,
	}
}

// Load returns Default overlaid with environment variables. Flags are
// applied on top by the caller.
func Load() Config {
	cfg := Default()
	cfg.Token = os.Getenv("SLACK_TOKEN")
	cfg.LogLevel = getEnvDefault("SLACKCAST_LOG_LEVEL", cfg.LogLevel)
	cfg.ReportDir = os.Getenv("SLACKCAST_REPORT_DIR")
	cfg.Timeout = getEnvDurationDefault("SLACKCAST_TIMEOUT", cfg.Timeout)
	return cfg
}

// Validate checks the merged configuration.
func (c *Config) Validate() error {
	var errs []error
	if c.Token == "" {
		errs = append(errs, errors.New("the following arguments are required: -t/--token (or set SLACK_TOKEN)"))
	}
	if strings.TrimSpace(c.EmailsPath) == "" {
		errs = append(errs, errors.New("--path_emails cannot be empty"))
	}
	if strings.TrimSpace(c.MessagePath) == "" {
		errs = append(errs, errors.New("--path_message cannot be empty"))
	}
	if err := validate.Positive("timeout", c.Timeout); err != nil {
		errs = append(errs, fmt.Errorf("--timeout: %w", err))
	}
	if c.BaseURL != "" {
		if err := validate.URL(c.BaseURL); err != nil {
			errs = append(errs, fmt.Errorf("--base-url: %w", err))
		}
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Level returns the parsed log level, falling back to info.
func (c *Config) Level() slog.Level {
	level, err := ParseLogLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// ParseLogLevel accepts debug, info, warn (or warning) and error.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q (want debug, info, warn or error)", s)
	}
}

func getEnvDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvDurationDefault(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
