// Package scrub provides security helpers for removing sensitive data from errors.
package scrub

import (
	"net/url"
	"strings"

	"github.com/prilive-com/slackcast/slack"
)

// TokenFromError removes the Slack token from error messages.
// users.lookupByEmail carries the token in the query string, and Go's
// http.Client.Do() includes the request URL in error strings.
// Both the raw and the query-escaped form are redacted.
// Preserves the error chain for errors.Is/As via Unwrap().
func TokenFromError(err error, token slack.SecretToken) error {
	if err == nil {
		return nil
	}
	tokenVal := token.Value()
	if tokenVal == "" {
		return err
	}
	msg := err.Error()
	scrubbed := msg
	if escaped := url.QueryEscape(tokenVal); escaped != tokenVal {
		scrubbed = strings.ReplaceAll(scrubbed, escaped, "[REDACTED]")
	}
	scrubbed = strings.ReplaceAll(scrubbed, tokenVal, "[REDACTED]")
	if scrubbed == msg {
		return err
	}
	return &scrubbedError{msg: scrubbed, err: err}
}

type scrubbedError struct {
	msg string
	err error
}

func (e *scrubbedError) Error() string { return e.msg }
func (e *scrubbedError) Unwrap() error { return e.err }
