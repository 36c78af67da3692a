package sender

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/prilive-com/slackcast/internal/resilience"
	"github.com/prilive-com/slackcast/internal/validate"
	"github.com/prilive-com/slackcast/slack"
)

// DefaultBaseURL is the Slack Web API root.
const DefaultBaseURL = "https://slack.com/api"

// Config holds sender configuration.
type Config struct {
	// Slack token (user token for as_user posting)
	Token slack.SecretToken

	// API settings
	BaseURL        string
	RequestTimeout time.Duration

	// Rate limiting
	GlobalRPS       float64
	GlobalBurst     int
	PerChannelRPS   float64
	PerChannelBurst int

	// Circuit breaker
	BreakerMaxRequests uint32
	BreakerInterval    time.Duration
	BreakerTimeout     time.Duration

	// Retry settings
	MaxRetries    int
	RetryBaseWait time.Duration
	RetryMaxWait  time.Duration
	RetryFactor   float64

	// Content limits
	MaxTextLength int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	retry := resilience.DefaultRetryConfig()
	return Config{
		BaseURL:            DefaultBaseURL,
		RequestTimeout:     30 * time.Second,
		GlobalRPS:          1, // users.lookupByEmail is Tier 3 (~50/min)
		GlobalBurst:        5,
		PerChannelRPS:      1, // chat.postMessage: ~1 msg/s per channel
		PerChannelBurst:    1,
		BreakerMaxRequests: 5,
		BreakerInterval:    60 * time.Second,
		BreakerTimeout:     30 * time.Second,
		MaxRetries:         retry.MaxAttempts,
		RetryBaseWait:      retry.BaseWait,
		RetryMaxWait:       retry.MaxWait,
		RetryFactor:        retry.Multiplier,
		MaxTextLength:      validate.MaxTextLength,
	}
}

// Validate reports settings the client cannot run with.
func (c Config) Validate() error {
	return errors.Join(
		validate.URL(c.BaseURL),
		validate.Positive("request_timeout", c.RequestTimeout),
		validate.NonNegative("max_retries", c.MaxRetries),
		validate.NonNegative("retry_base_wait", c.RetryBaseWait),
		validate.Positive("max_text_length", c.MaxTextLength),
	)
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	cfg.Token = slack.SecretToken(getEnv("SLACK_TOKEN", ""))

	if url := getEnv("SLACK_API_BASE_URL", ""); url != "" {
		cfg.BaseURL = url
	}

	if d, err := time.ParseDuration(getEnv("SLACK_REQUEST_TIMEOUT", "30s")); err == nil {
		cfg.RequestTimeout = d
	}

	if f, err := strconv.ParseFloat(getEnv("SLACK_RATE_LIMIT_RPS", "1"), 64); err == nil {
		cfg.GlobalRPS = f
	}

	if i, err := strconv.Atoi(getEnv("SLACK_RATE_LIMIT_BURST", "5")); err == nil {
		cfg.GlobalBurst = i
	}

	if f, err := strconv.ParseFloat(getEnv("SLACK_PER_CHANNEL_RPS", "1"), 64); err == nil {
		cfg.PerChannelRPS = f
	}

	if i, err := strconv.Atoi(getEnv("SLACK_PER_CHANNEL_BURST", "1")); err == nil {
		cfg.PerChannelBurst = i
	}

	if i, err := strconv.ParseUint(getEnv("SLACK_BREAKER_MAX_REQUESTS", "5"), 10, 32); err == nil {
		cfg.BreakerMaxRequests = uint32(i)
	}

	if d, err := time.ParseDuration(getEnv("SLACK_BREAKER_INTERVAL", "60s")); err == nil {
		cfg.BreakerInterval = d
	}

	if d, err := time.ParseDuration(getEnv("SLACK_BREAKER_TIMEOUT", "30s")); err == nil {
		cfg.BreakerTimeout = d
	}

	if i, err := strconv.Atoi(getEnv("SLACK_MAX_RETRIES", "3")); err == nil {
		cfg.MaxRetries = i
	}

	if d, err := time.ParseDuration(getEnv("SLACK_RETRY_BASE_WAIT", "1s")); err == nil {
		cfg.RetryBaseWait = d
	}

	if d, err := time.ParseDuration(getEnv("SLACK_RETRY_MAX_WAIT", "30s")); err == nil {
		cfg.RetryMaxWait = d
	}

	if f, err := strconv.ParseFloat(getEnv("SLACK_RETRY_FACTOR", "2.0"), 64); err == nil {
		cfg.RetryFactor = f
	}

	return &cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
