package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/prilive-com/slackcast/internal/httpclient"
	"github.com/prilive-com/slackcast/internal/resilience"
	"github.com/prilive-com/slackcast/internal/scrub"
	"github.com/prilive-com/slackcast/internal/validate"
	"github.com/prilive-com/slackcast/personalize"
	"github.com/prilive-com/slackcast/slack"
)

const (
	maxResponseSize = 2 << 20 // 2MB

	methodLookupByEmail = "users.lookupByEmail"
	methodPostMessage   = "chat.postMessage"
)

// Sleeper abstracts time-based waiting for testing.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// CircuitBreakerSettings configures the circuit breaker behavior.
type CircuitBreakerSettings struct {
	// MaxRequests is the maximum number of requests allowed in half-open state.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state.
	// If 0, internal counts never reset in closed state.
	Interval time.Duration

	// Timeout is the duration of the open state before transitioning to half-open.
	Timeout time.Duration

	// ReadyToTrip determines if breaker should trip based on failure counts.
	// If nil, uses default (50% failure rate after 3 requests).
	ReadyToTrip func(counts gobreaker.Counts) bool
}

// DefaultCircuitBreakerSettings returns production-ready defaults.
func DefaultCircuitBreakerSettings() CircuitBreakerSettings {
	return CircuitBreakerSettings{
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 3 {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= 0.5
		},
	}
}

// breakerSettingsFromConfig applies the Breaker* fields over the defaults;
// zero fields keep the default.
func breakerSettingsFromConfig(cfg Config) CircuitBreakerSettings {
	settings := DefaultCircuitBreakerSettings()
	if cfg.BreakerMaxRequests > 0 {
		settings.MaxRequests = cfg.BreakerMaxRequests
	}
	if cfg.BreakerInterval > 0 {
		settings.Interval = cfg.BreakerInterval
	}
	if cfg.BreakerTimeout > 0 {
		settings.Timeout = cfg.BreakerTimeout
	}
	return settings
}

// Client is a Slack Web API client for looking up users and posting
// direct messages.
type Client struct {
	config          Config
	httpClient      *http.Client
	logger          *slog.Logger
	limiter         *resilience.RateLimiter
	breaker         *gobreaker.CircuitBreaker[*rawResponse]
	breakerSettings CircuitBreakerSettings
	sleeper         Sleeper

	closeOnce sync.Once
}

// rawResponse is a decoded-envelope HTTP reply that passed the ok check.
type rawResponse struct {
	status int
	body   []byte
}

// Option configures the Client.
type Option func(*Client)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithRateLimit sets the global rate limit across all methods.
func WithRateLimit(globalRPS float64, burst int) Option {
	return func(c *Client) {
		c.config.GlobalRPS = globalRPS
		c.config.GlobalBurst = burst
	}
}

// WithPerChannelRateLimit sets the chat.postMessage per-channel rate limit.
func WithPerChannelRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		c.config.PerChannelRPS = rps
		c.config.PerChannelBurst = burst
	}
}

// WithRetries sets the number of retries after the first attempt.
func WithRetries(max int) Option {
	return func(c *Client) {
		c.config.MaxRetries = max
	}
}

// WithBaseURL sets the API base URL (useful for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.config.BaseURL = strings.TrimRight(url, "/")
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.config.RequestTimeout = d
	}
}

// WithSleeper sets a custom sleeper for retry timing (useful for testing).
func WithSleeper(s Sleeper) Option {
	return func(c *Client) {
		c.sleeper = s
	}
}

// WithCircuitBreakerSettings configures the circuit breaker.
func WithCircuitBreakerSettings(settings CircuitBreakerSettings) Option {
	return func(c *Client) {
		c.breakerSettings = settings
	}
}

// New creates a new Client with the given token and options.
func New(token string, opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	cfg.Token = slack.SecretToken(token)
	return NewFromConfig(cfg, opts...)
}

// NewFromConfig creates a Client from a Config.
func NewFromConfig(cfg Config, opts ...Option) (*Client, error) {
	if cfg.Token.IsEmpty() {
		return nil, ErrInvalidToken
	}
	if err := validate.Token(cfg.Token.Value()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	c := &Client{config: cfg}

	for _, opt := range opts {
		opt(c)
	}

	if err := c.config.Validate(); err != nil {
		return nil, err
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}

	if c.httpClient == nil {
		httpCfg := httpclient.DefaultConfig()
		if c.config.RequestTimeout > 0 {
			httpCfg.RequestTimeout = c.config.RequestTimeout
		}
		c.httpClient = httpclient.New(httpCfg)
	}

	if c.sleeper == nil {
		c.sleeper = resilience.RealSleeper{}
	}

	if c.breakerSettings.ReadyToTrip == nil {
		c.breakerSettings = breakerSettingsFromConfig(c.config)
	}

	c.limiter = resilience.NewRateLimiter(resilience.RateLimiterConfig{
		GlobalRPS:   c.config.GlobalRPS,
		GlobalBurst: c.config.GlobalBurst,
		KeyRPS:      c.config.PerChannelRPS,
		KeyBurst:    c.config.PerChannelBurst,
	})

	c.breaker = resilience.NewBreaker[*rawResponse](resilience.BreakerConfig{
		Name:         "slackcast-sender",
		MaxRequests:  c.breakerSettings.MaxRequests,
		Interval:     c.breakerSettings.Interval,
		Timeout:      c.breakerSettings.Timeout,
		ReadyToTrip:  c.breakerSettings.ReadyToTrip,
		IsSuccessful: isBreakerSuccess,
		OnStateChange: func(name, from, to string) {
			c.logger.Info("circuit breaker state changed",
				"name", name,
				"from", from,
				"to", to,
			)
		},
	})

	return c, nil
}

// Close releases resources used by the client.
// It is safe to call Close more than once and concurrently with other methods;
// in-flight requests will complete normally or with context errors.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.limiter.Close()
		httpclient.CloseIdle(c.httpClient)
	})
	return nil
}

// LookupUserByEmail finds a workspace member by email address.
// An unknown address returns an *APIError matching ErrUserNotFound.
func (c *Client) LookupUserByEmail(ctx context.Context, email string) (*slack.User, error) {
	if email == "" {
		return nil, slack.NewValidationError("email", "cannot be empty")
	}

	query := url.Values{}
	query.Set("token", c.config.Token.Value())
	query.Set("email", email)

	resp, err := withRetry(c, ctx, methodLookupByEmail, isRetryable, func() (*rawResponse, error) {
		return c.executeRequest(ctx, http.MethodGet, methodLookupByEmail, query, nil, "")
	})
	if err != nil {
		return nil, err
	}

	var result slack.LookupUserByEmailResponse
	if err := json.Unmarshal(resp.body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse %s result: %w", methodLookupByEmail, err)
	}
	if result.User == nil {
		return nil, fmt.Errorf("%s: response has no user", methodLookupByEmail)
	}
	if err := validate.UserID(result.User.ID); err != nil {
		return nil, fmt.Errorf("%s: %w", methodLookupByEmail, err)
	}
	return result.User, nil
}

// ResolveUser looks up email and reduces the result to a UserIdentity.
// The caller observes either a usable identity or a non-nil error.
func (c *Client) ResolveUser(ctx context.Context, email string) (slack.UserIdentity, error) {
	user, err := c.LookupUserByEmail(ctx, email)
	if err != nil {
		return slack.UserIdentity{}, err
	}
	return user.Identity(), nil
}

// PostMessage posts req via chat.postMessage with bearer authorization.
// Slack replies with ok=false are returned as *APIError. Only rate limit
// replies are retried: after a 5xx or a timeout the message may already
// have been delivered.
func (c *Client) PostMessage(ctx context.Context, req slack.PostMessageRequest) (*slack.PostMessageResponse, error) {
	if err := validate.Channel(req.Channel); err != nil {
		return nil, toValidationError(err)
	}
	if err := validate.Text(req.Text, c.config.MaxTextLength); err != nil {
		return nil, toValidationError(err)
	}

	resp, err := withRetry(c, ctx, methodPostMessage, isPostRetryable, func() (*rawResponse, error) {
		return c.executeRequest(ctx, http.MethodPost, methodPostMessage, nil, req, req.Channel)
	})
	if err != nil {
		return nil, err
	}

	var result slack.PostMessageResponse
	if err := json.Unmarshal(resp.body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse %s result: %w", methodPostMessage, err)
	}
	return &result, nil
}

// SendMessage personalizes text when p is non-empty and posts it to the
// user's direct-message channel as the token's user.
func (c *Client) SendMessage(ctx context.Context, text, userID string, p personalize.Personalization) (*slack.PostMessageResponse, error) {
	if len(p) > 0 {
		text = personalize.Render(text, p)
	}
	return c.PostMessage(ctx, slack.PostMessageRequest{
		Channel: userID,
		Text:    text,
		AsUser:  true,
	})
}

// Internal methods

func (c *Client) executeRequest(ctx context.Context, httpMethod, method string, query url.Values, payload any, rateKey string) (*rawResponse, error) {
	if err := c.limiter.Wait(ctx, rateKey); err != nil {
		return nil, err
	}
	resp, err := c.breaker.Execute(func() (*rawResponse, error) {
		return c.doRequest(ctx, httpMethod, method, query, payload)
	})
	if resilience.IsBreakerRejection(err) {
		if errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: half-open request limit reached", ErrCircuitOpen)
		}
		return nil, ErrCircuitOpen
	}
	return resp, err
}

func (c *Client) doRequest(ctx context.Context, httpMethod, method string, query url.Values, payload any) (*rawResponse, error) {
	endpoint := c.config.BaseURL + "/" + method
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, httpMethod, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", scrub.TokenFromError(err, c.config.Token))
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
		req.Header.Set("Authorization", "Bearer "+c.config.Token.Value())
	}

	c.logger.Debug("slack request", "method", method)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", scrub.TokenFromError(err, c.config.Token))
	}
	defer resp.Body.Close()

	// Read maxResponseSize+1 to detect overflow without false positive
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(data)) > maxResponseSize {
		return nil, ErrResponseTooLarge
	}

	var envelope slack.Response
	parseErr := json.Unmarshal(data, &envelope)

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		code := envelope.Error
		if parseErr != nil || code == "" {
			code = fmt.Sprintf("http_%d", resp.StatusCode)
		}
		return nil, slack.NewAPIErrorWithRetry(method, resp.StatusCode, code, parseRetryAfter(resp))
	}

	if parseErr != nil {
		return nil, fmt.Errorf("failed to parse response (status=%d): %w", resp.StatusCode, parseErr)
	}

	if !envelope.OK {
		apiErr := slack.NewAPIErrorWithRetry(method, resp.StatusCode, envelope.Error, parseRetryAfter(resp))
		apiErr.Needed = envelope.Needed
		return nil, apiErr
	}

	if envelope.Warning != "" {
		c.logger.Debug("slack warning", "method", method, "warning", envelope.Warning)
	}

	return &rawResponse{status: resp.StatusCode, body: data}, nil
}

func withRetry[T any](c *Client, ctx context.Context, method string, retryable func(error) bool, fn func() (T, error)) (T, error) {
	cfg := resilience.DefaultRetryConfig()
	cfg.MaxAttempts = c.config.MaxRetries
	cfg.BaseWait = c.config.RetryBaseWait
	cfg.MaxWait = c.config.RetryMaxWait
	cfg.Multiplier = c.config.RetryFactor

	policy := resilience.Policy{
		Retryable:  retryable,
		RetryAfter: retryAfter,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			c.logger.Warn("retrying slack request",
				"method", method,
				"attempt", attempt,
				"wait", wait,
				"error", err,
			)
		},
	}

	result, err := resilience.Retry(ctx, cfg, c.sleeper, policy, fn)
	if err != nil {
		var exhausted *resilience.ExhaustedError
		if errors.As(err, &exhausted) {
			var zero T
			return zero, fmt.Errorf("%w: %w", ErrMaxRetries, exhausted.Err)
		}
		return result, err
	}
	return result, nil
}

func isRetryable(err error) bool {
	// Circuit breaker errors are not retryable
	if errors.Is(err, ErrCircuitOpen) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsRetryable()
	}

	return false
}

// isPostRetryable retries a post only when Slack refused it for rate.
func isPostRetryable(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.Code == "ratelimited"
}

func retryAfter(err error) time.Duration {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.RetryAfter
	}
	return 0
}

// isBreakerSuccess determines if an error should count as a circuit breaker failure.
// Only server errors (5xx) and network errors trip the breaker.
// Slack's ok=false replies and 429 are caller-side conditions, not service degradation.
func isBreakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode < 500
	}
	var valErr *slack.ValidationError
	if errors.As(err, &valErr) {
		return true
	}
	// Context cancellation is not a service failure
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	// Network errors, timeouts, malformed replies → breaker failure
	return false
}

// parseRetryAfter reads the Retry-After header Slack sends with HTTP 429.
func parseRetryAfter(httpResp *http.Response) time.Duration {
	if httpResp == nil {
		return 0
	}
	if retryHeader := httpResp.Header.Get("Retry-After"); retryHeader != "" {
		if seconds, err := strconv.Atoi(retryHeader); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return 0
}

func toValidationError(err error) error {
	var vErr *validate.Error
	if errors.As(err, &vErr) {
		return slack.NewValidationError(vErr.Field, vErr.Message)
	}
	return err
}
