package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/prilive-com/slackcast/campaign"
	"github.com/prilive-com/slackcast/cmd/slackcast/config"
	"github.com/prilive-com/slackcast/personalize"
	"github.com/prilive-com/slackcast/recipients"
	"github.com/prilive-com/slackcast/sender"
	"github.com/prilive-com/slackcast/slack"
)

// Exit codes
const (
	ExitOK          = 0
	ExitInputError  = 1 // emails or message file unreadable
	ExitUsageError  = 2 // bad or missing arguments
	ExitInterrupted = 130
)

const description = `Send a message to multiple Slack users from a specified user's account.

The list of recipients needs to be provided in a file, one email per line.
Please consult option --path_emails for more details.

The message to be sent also needs to be put in a file.
It can contain "templates" that will be personalized (replaced) on the fly:
  - {user_name}  : user's first name
  - {user_email} : user's email
  - {user_id}    : user's Slack workspace ID
Please consult option --path_message for more details.

The token may also be supplied through SLACK_TOKEN (a .env file in the
working directory is read when present).`

// exitError carries the process exit code for a failed run.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func usageError(err error) error {
	return &exitError{code: ExitUsageError, err: err}
}

func inputError(err error) error {
	return &exitError{code: ExitInputError, err: err}
}

// run executes the CLI and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(stderr, "ERROR: failed to read .env: %v\n", err)
		return ExitInputError
	}

	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}

	code := ExitInputError
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		code = exitErr.code
	}

	fmt.Fprintf(stderr, "ERROR: %s\n", err)
	if code == ExitUsageError {
		fmt.Fprintln(stderr)
		root.SetOut(stderr)
		_ = root.Help()
	}
	return code
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	cfg := config.Load()

	root := &cobra.Command{
		Use:           "slackcast",
		Short:         "Send a personalized Slack DM to a list of users",
		Long:          description,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usageError(fmt.Errorf("unrecognized arguments: %v", args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(cmd.Context(), &cfg, stdout, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError(err)
	})

	bindFlags(root.Flags(), &cfg)
	return root
}

func bindFlags(flags *pflag.FlagSet, cfg *config.Config) {
	flags.SortFlags = false

	flags.StringVarP(&cfg.Token, "token", "t", cfg.Token,
		"Auth token (xoxp-...) of the user the messages are sent as")
	flags.StringVarP(&cfg.EmailsPath, "path_emails", "e", cfg.EmailsPath,
		"Path to a file with the list of recipients (user emails)")
	flags.StringVarP(&cfg.MessagePath, "path_message", "m", cfg.MessagePath,
		"Path to a file with the message to post")
	flags.VarP(config.NewBoolChoice(&cfg.DryRun), "dry-run", "d",
		"When true, resolve users via Slack's API but do not send (true|false|1|0|yes|no|on|off)")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel,
		"Diagnostics level: debug, info, warn or error")
	flags.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout,
		"Timeout for each Slack API request")
	flags.StringVar(&cfg.ReportDir, "report-dir", cfg.ReportDir,
		"Directory to write the JSON run report to (disabled when empty)")
	flags.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL,
		"Slack Web API base URL")
	_ = flags.MarkHidden("base-url")

	// The token must never be echoed as a flag default in --help.
	if f := flags.Lookup("token"); f != nil {
		f.DefValue = ""
	}
}

func send(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return usageError(err)
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.Level()}))

	list, err := recipients.LoadEmails(cfg.EmailsPath)
	if err != nil {
		logger.Error("failed to load recipients", "path", cfg.EmailsPath, "error", err)
		return inputError(err)
	}
	message, err := recipients.LoadMessage(cfg.MessagePath)
	if err != nil {
		logger.Error("failed to load message", "path", cfg.MessagePath, "error", err)
		return inputError(err)
	}

	for _, invalid := range recipients.Validate(list) {
		logger.Warn("recipient does not look like an email address",
			"email", invalid.Email,
			"reason", invalid.Reason)
	}
	if unknown := personalize.Unknown(message, personalize.ForRecipient(slack.UserIdentity{}, "")); len(unknown) > 0 {
		logger.Warn("message contains placeholders that will not be replaced", "placeholders", unknown)
	}

	// SLACK_* tuning (rate limits, breaker, retries) comes from the
	// environment; flags win for what they cover.
	senderCfg, err := sender.LoadConfig()
	if err != nil {
		return usageError(err)
	}
	senderCfg.Token = slack.SecretToken(cfg.Token)
	senderCfg.RequestTimeout = cfg.Timeout
	if cfg.BaseURL != "" {
		senderCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	client, err := sender.NewFromConfig(*senderCfg, sender.WithLogger(logger))
	if err != nil {
		return usageError(err)
	}
	defer client.Close()

	runner := campaign.NewRunner(client,
		campaign.WithLogger(logger),
		campaign.WithProgress(stdout),
		campaign.WithDryRun(cfg.DryRun),
	)

	report := runner.Run(ctx, list.Emails(), message)

	fmt.Fprintln(stdout)
	fmt.Fprint(stdout, report.FormatSummary())

	if cfg.ReportDir != "" {
		filename, err := report.Save(cfg.ReportDir)
		if err != nil {
			logger.Error("failed to save report", "error", err)
		} else {
			logger.Info("report saved", "filename", filename)
		}
	}

	if report.Interrupted {
		return &exitError{code: ExitInterrupted, err: ctx.Err()}
	}
	return nil
}
