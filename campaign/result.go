package campaign

import (
	"time"

	"github.com/prilive-com/slackcast/slack"
)

// Status is the outcome of processing one recipient.
type Status string

const (
	StatusSent         Status = "sent"
	StatusDryRun       Status = "dry_run"
	StatusLookupFailed Status = "lookup_failed"
	StatusSendFailed   Status = "send_failed"
)

// Result records what happened to a single recipient.
type Result struct {
	Index    int                `json:"index"`
	Email    string             `json:"email"`
	Identity slack.UserIdentity `json:"identity"`
	Status   Status             `json:"status"`
	Error    string             `json:"error,omitempty"`
	Duration time.Duration      `json:"duration"`

	err error
}

// Err returns the error behind a failed result, or nil.
func (r *Result) Err() error {
	return r.err
}

// Resolved reports whether the recipient's Slack identity was found.
func (r *Result) Resolved() bool {
	return r.Status != StatusLookupFailed
}

// Failed reports whether the recipient did not get (or, in dry-run, would
// not have got) the message.
func (r *Result) Failed() bool {
	return r.Status == StatusLookupFailed || r.Status == StatusSendFailed
}

func (r *Result) fail(status Status, err error) {
	r.Status = status
	r.err = err
	r.Error = err.Error()
}
