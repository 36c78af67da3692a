// Command slackcast sends a personalized direct message to a list of Slack
// users, addressing each by email.
//
// Usage:
//
//	slackcast -t xoxp-... [-e emails.txt] [-m message.txt] [-d true]
//
// The message file may contain {user_name}, {user_id} and {user_email};
// they are replaced per recipient before sending.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
