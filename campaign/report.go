package campaign

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Report represents a messaging run.
type Report struct {
	RunID       string        `json:"run_id"`
	StartTime   time.Time     `json:"start_time"`
	EndTime     time.Time     `json:"end_time"`
	Duration    time.Duration `json:"duration"`
	DryRun      bool          `json:"dry_run"`
	Interrupted bool          `json:"interrupted,omitempty"`
	Results     []*Result     `json:"results"`
	Summary     Summary       `json:"summary"`
}

// Summary contains aggregate statistics.
type Summary struct {
	Total         int    `json:"total"`
	Resolved      int    `json:"resolved"`
	Sent          int    `json:"sent"`
	DryRun        int    `json:"dry_run"`
	LookupFailed  int    `json:"lookup_failed"`
	SendFailed    int    `json:"send_failed"`
	TotalDuration string `json:"total_duration"`
}

// NewReport creates a new report.
func NewReport(dryRun bool) *Report {
	return &Report{
		RunID:     uuid.NewString(),
		StartTime: time.Now(),
		DryRun:    dryRun,
		Results:   make([]*Result, 0),
	}
}

// AddResult adds a recipient result to the report.
func (r *Report) AddResult(result *Result) {
	r.Results = append(r.Results, result)
}

// Finalize completes the report with summary statistics.
// Calling it again recomputes the summary from Results.
func (r *Report) Finalize() {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)

	r.Summary = Summary{Total: len(r.Results)}
	for _, res := range r.Results {
		if res.Resolved() {
			r.Summary.Resolved++
		}
		switch res.Status {
		case StatusSent:
			r.Summary.Sent++
		case StatusDryRun:
			r.Summary.DryRun++
		case StatusLookupFailed:
			r.Summary.LookupFailed++
		case StatusSendFailed:
			r.Summary.SendFailed++
		}
	}
	r.Summary.TotalDuration = r.Duration.String()
}

// Failures returns the results that did not end in a send or dry-run.
func (r *Report) Failures() []*Result {
	var failed []*Result
	for _, res := range r.Results {
		if res.Failed() {
			failed = append(failed, res)
		}
	}
	return failed
}

// ToJSON returns the report as JSON.
func (r *Report) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Save writes the report to <dir>/reports/report-<run id>.json.
func (r *Report) Save(dir string) (string, error) {
	if err := os.MkdirAll(filepath.Join(dir, "reports"), 0o755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}

	filename := filepath.Join(dir, "reports", fmt.Sprintf("report-%s.json", r.RunID))

	data, err := r.ToJSON()
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	return filename, nil
}

// FormatSummary returns a human-readable summary.
func (r *Report) FormatSummary() string {
	var sb strings.Builder

	mode := "send"
	if r.DryRun {
		mode = "dry run"
	}

	sb.WriteString(fmt.Sprintf("Run: %s (%s)\n", r.RunID, mode))
	if r.Interrupted {
		sb.WriteString("Status: INTERRUPTED\n")
	}
	sb.WriteString(fmt.Sprintf("Duration: %s\n\n", r.Duration.Round(time.Millisecond)))

	sb.WriteString(fmt.Sprintf("Recipients: %d/%d resolved\n", r.Summary.Resolved, r.Summary.Total))
	if r.DryRun {
		sb.WriteString(fmt.Sprintf("Dry run: %d\n", r.Summary.DryRun))
	} else {
		sb.WriteString(fmt.Sprintf("Sent: %d\n", r.Summary.Sent))
	}
	sb.WriteString(fmt.Sprintf("Lookup failed: %d\n", r.Summary.LookupFailed))
	sb.WriteString(fmt.Sprintf("Send failed: %d\n", r.Summary.SendFailed))

	failures := r.Failures()
	if len(failures) > 0 {
		sb.WriteString("\n")
	}
	for _, res := range failures {
		sb.WriteString(fmt.Sprintf("FAILED: #%d %s - %s\n", res.Index, res.Email, res.Error))
	}

	return sb.String()
}
