package campaign

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/prilive-com/slackcast/slack"
)

// Progress writes the per-recipient progress lines of a run:
//
//	#1 PROCESSING amy@example.com... MESSAGING Amy @ U012AB3CDE
//	#2 PROCESSING bob@example.com... ERROR users_not_found
//
// Status words are colored when the output is a terminal.
type Progress struct {
	w io.Writer

	processing func(a ...interface{}) string
	messaging  func(a ...interface{}) string
	dryRun     func(a ...interface{}) string
	errorWord  func(a ...interface{}) string
}

// NewProgress creates a progress printer writing to w.
func NewProgress(w io.Writer) *Progress {
	return &Progress{
		w:          w,
		processing: color.New(color.FgCyan).SprintFunc(),
		messaging:  color.New(color.FgGreen).SprintFunc(),
		dryRun:     color.New(color.FgYellow).SprintFunc(),
		errorWord:  color.New(color.FgRed, color.Bold).SprintFunc(),
	}
}

// Processing starts the line for recipient index (1-based). The line is
// left open for the outcome.
func (p *Progress) Processing(index int, email string) {
	fmt.Fprintf(p.w, "#%d %s %s... ", index, p.processing("PROCESSING"), email)
}

// Messaging reports that a message is about to be sent.
func (p *Progress) Messaging(id slack.UserIdentity) {
	fmt.Fprintf(p.w, "%s %s @ %s\n", p.messaging("MESSAGING"), id.FirstName, id.ID)
}

// DryRun reports a resolved recipient that is not messaged.
func (p *Progress) DryRun(id slack.UserIdentity) {
	fmt.Fprintf(p.w, "%s %s @ %s\n", p.dryRun("DRY_RUN"), id.FirstName, id.ID)
}

// Error reports a failure for the current recipient. Slack API errors are
// shown by their error code.
func (p *Progress) Error(err error) {
	var apiErr *slack.APIError
	if errors.As(err, &apiErr) && apiErr.Code != "" {
		fmt.Fprintf(p.w, "%s %s\n", p.errorWord("ERROR"), apiErr.Code)
		return
	}
	fmt.Fprintf(p.w, "%s %v\n", p.errorWord("ERROR"), err)
}
