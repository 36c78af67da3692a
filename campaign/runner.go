package campaign

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/prilive-com/slackcast/personalize"
	"github.com/prilive-com/slackcast/slack"
)

// Directory resolves recipients to Slack identities.
type Directory interface {
	ResolveUser(ctx context.Context, email string) (slack.UserIdentity, error)
}

// Messenger delivers a personalized message to a user.
type Messenger interface {
	SendMessage(ctx context.Context, text, userID string, p personalize.Personalization) (*slack.PostMessageResponse, error)
}

// Client is the Slack surface a run needs. *sender.Client implements it.
type Client interface {
	Directory
	Messenger
}

// Runner processes recipients one at a time.
type Runner struct {
	client   Client
	progress *Progress
	logger   *slog.Logger
	dryRun   bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the diagnostics logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithProgress sets the writer for progress lines.
func WithProgress(w io.Writer) Option {
	return func(r *Runner) {
		r.progress = NewProgress(w)
	}
}

// WithDryRun resolves recipients without sending anything.
func WithDryRun(dryRun bool) Option {
	return func(r *Runner) {
		r.dryRun = dryRun
	}
}

// NewRunner creates a new runner.
func NewRunner(client Client, opts ...Option) *Runner {
	r := &Runner{client: client}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if r.progress == nil {
		r.progress = NewProgress(io.Discard)
	}
	return r
}

// Run sends template to every email in order and returns the finalized
// report. If ctx is cancelled the recipient in flight records the context
// error and the remaining recipients are not attempted.
func (r *Runner) Run(ctx context.Context, emails []string, template string) *Report {
	report := NewReport(r.dryRun)

	r.logger.Info("starting run",
		"run_id", report.RunID,
		"recipients", len(emails),
		"dry_run", r.dryRun)

	for i, email := range emails {
		if ctx.Err() != nil {
			r.logger.Warn("run interrupted",
				"processed", i,
				"remaining", len(emails)-i,
				"error", ctx.Err())
			break
		}
		report.AddResult(r.process(ctx, i+1, email, template))
	}
	report.Interrupted = stoppedEarly(report.Results, len(emails))

	report.Finalize()

	r.logger.Info("run completed",
		"run_id", report.RunID,
		"total", report.Summary.Total,
		"sent", report.Summary.Sent,
		"dry_run", report.Summary.DryRun,
		"lookup_failed", report.Summary.LookupFailed,
		"send_failed", report.Summary.SendFailed,
		"duration", report.Duration)

	return report
}

// stoppedEarly reports whether a run left recipients unattempted or lost the
// last one to cancellation. A cancel after the last recipient finished
// does not count.
func stoppedEarly(results []*Result, total int) bool {
	if len(results) < total {
		return true
	}
	if len(results) == 0 {
		return false
	}
	err := results[len(results)-1].Err()
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (r *Runner) process(ctx context.Context, index int, email, template string) *Result {
	start := time.Now()
	result := &Result{Index: index, Email: email}
	defer func() { result.Duration = time.Since(start) }()

	r.progress.Processing(index, email)

	identity, err := r.client.ResolveUser(ctx, email)
	if err != nil {
		result.fail(StatusLookupFailed, err)
		r.progress.Error(err)
		r.logger.Debug("lookup failed", "index", index, "email", email, "error", err)
		return result
	}
	result.Identity = identity

	if r.dryRun {
		result.Status = StatusDryRun
		r.progress.DryRun(identity)
		return result
	}

	r.progress.Messaging(identity)

	p := personalize.ForRecipient(identity, email)
	if _, err := r.client.SendMessage(ctx, template, identity.ID, p); err != nil {
		result.fail(StatusSendFailed, err)
		r.progress.Error(err)
		r.logger.Debug("send failed", "index", index, "user_id", identity.ID, "error", err)
		return result
	}

	result.Status = StatusSent
	return result
}
