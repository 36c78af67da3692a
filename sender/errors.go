package sender

import "github.com/prilive-com/slackcast/slack"

// Sentinel error aliases so callers of sender need not import slack for the
// common cases.
var (
	ErrInvalidToken     = slack.ErrInvalidToken
	ErrCircuitOpen      = slack.ErrCircuitOpen
	ErrMaxRetries       = slack.ErrMaxRetries
	ErrResponseTooLarge = slack.ErrResponseTooLarge
	ErrUserNotFound     = slack.ErrUserNotFound
	ErrInvalidAuth      = slack.ErrInvalidAuth
	ErrRateLimited      = slack.ErrRateLimited
)

// APIError is slack.APIError.
type APIError = slack.APIError
