// Package validate checks tokens, emails and Slack IDs before they reach the API.
package validate

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/prilive-com/slackcast/slack"
)

// MaxTextLength is the chat.postMessage limit on text; longer messages are
// truncated by Slack and rejected above 40k characters.
const MaxTextLength = 40000

// Error represents a validation error. Err, when set, is the sentinel the
// failure classifies as.
type Error struct {
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("validation: %s - %s", e.Field, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new validation error.
func New(field, message string) *Error {
	return &Error{Field: field, Message: message}
}

// Newf creates a new validation error with formatted message.
func Newf(field, format string, args ...any) *Error {
	return &Error{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Token validates a Slack token. Slack owns the format, so only the shape is
// checked: non-empty and free of whitespace, which is a common copy/paste fault.
func Token(token string) error {
	if token == "" {
		return New("token", "cannot be empty")
	}
	if strings.IndexFunc(token, unicode.IsSpace) >= 0 {
		return New("token", "must not contain whitespace")
	}
	return nil
}

// Email validates a bare email address ("a@x.com", not "Amy <a@x.com>").
// Failures unwrap to slack.ErrInvalidEmail.
func Email(email string) error {
	var verr *Error
	switch addr, err := mail.ParseAddress(email); {
	case email == "":
		verr = New("email", "cannot be empty")
	case err != nil:
		verr = Newf("email", "invalid address %q", email)
	case addr.Address != email:
		verr = Newf("email", "expected a bare address, got %q", email)
	default:
		return nil
	}
	verr.Err = slack.ErrInvalidEmail
	return verr
}

var userIDRegex = regexp.MustCompile(`^[UW][A-Z0-9]{2,}$`)

// UserID validates a Slack user ID (U… or W… for Enterprise Grid).
func UserID(id string) error {
	if id == "" {
		return New("user_id", "cannot be empty")
	}
	if !userIDRegex.MatchString(id) {
		return Newf("user_id", "invalid format %q", id)
	}
	return nil
}

// Channel validates a chat.postMessage channel: a user, channel or DM ID.
func Channel(channel string) error {
	if channel == "" {
		return New("channel", "cannot be empty")
	}
	if strings.IndexFunc(channel, unicode.IsSpace) >= 0 {
		return New("channel", "must not contain whitespace")
	}
	return nil
}

// Text validates message text.
func Text(text string, maxLen int) error {
	if strings.TrimSpace(text) == "" {
		return New("text", "cannot be empty")
	}
	if utf8.RuneCountInString(text) > maxLen {
		return Newf("text", "exceeds maximum length of %d characters", maxLen)
	}
	return nil
}

// URL validates an http(s) base URL.
func URL(url string) error {
	if url == "" {
		return New("url", "cannot be empty")
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return New("url", "must start with http:// or https://")
	}
	return nil
}

// Number covers the counters and durations configuration is made of.
type Number interface {
	~int | ~int64 | ~float64
}

// Positive validates that a value is positive.
func Positive[T Number](field string, value T) error {
	if value <= 0 {
		return Newf(field, "must be positive, got %v", value)
	}
	return nil
}

// NonNegative validates that a value is non-negative.
func NonNegative[T Number](field string, value T) error {
	if value < 0 {
		return Newf(field, "cannot be negative, got %v", value)
	}
	return nil
}
