package campaign_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prilive-com/slackcast/campaign"
	"github.com/prilive-com/slackcast/personalize"
	"github.com/prilive-com/slackcast/slack"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

type sentMessage struct {
	text   string
	userID string
	p      personalize.Personalization
}

// fakeClient serves identities from a map and records every call.
type fakeClient struct {
	mu       sync.Mutex
	users    map[string]slack.UserIdentity
	sendErr  map[string]error
	lookups  []string
	sent     []sentMessage
	onLookup func(email string)
	onSend   func(userID string)
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		users:   make(map[string]slack.UserIdentity),
		sendErr: make(map[string]error),
	}
}

func (f *fakeClient) ResolveUser(ctx context.Context, email string) (slack.UserIdentity, error) {
	f.mu.Lock()
	f.lookups = append(f.lookups, email)
	id, ok := f.users[email]
	hook := f.onLookup
	f.mu.Unlock()

	if hook != nil {
		hook(email)
	}
	if err := ctx.Err(); err != nil {
		return slack.UserIdentity{}, err
	}
	if !ok {
		return slack.UserIdentity{}, slack.NewAPIError("users.lookupByEmail", 200, "users_not_found")
	}
	return id, nil
}

func (f *fakeClient) SendMessage(ctx context.Context, text, userID string, p personalize.Personalization) (*slack.PostMessageResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{text: personalize.Render(text, p), userID: userID, p: p})
	if f.onSend != nil {
		f.onSend(userID)
	}
	if err := f.sendErr[userID]; err != nil {
		return nil, err
	}
	return &slack.PostMessageResponse{Response: slack.Response{OK: true}, Channel: "D" + userID, TS: "1.0"}, nil
}

func TestRunner_SendsPersonalizedMessages(t *testing.T) {
	client := newFakeClient()
	client.users["amy@example.com"] = slack.UserIdentity{ID: "U1", FirstName: "Amy"}
	client.users["rory@example.com"] = slack.UserIdentity{ID: "U2", FirstName: "Rory"}

	var out bytes.Buffer
	runner := campaign.NewRunner(client, campaign.WithProgress(&out))

	report := runner.Run(context.Background(),
		[]string{"amy@example.com", "rory@example.com"},
		"Hi {user_name} ({user_email}, {user_id})")

	require.Len(t, client.sent, 2)
	assert.Equal(t, "Hi Amy (amy@example.com, U1)", client.sent[0].text)
	assert.Equal(t, "U1", client.sent[0].userID)
	assert.Equal(t, "Hi Rory (rory@example.com, U2)", client.sent[1].text)

	assert.Equal(t,
		"#1 PROCESSING amy@example.com... MESSAGING Amy @ U1\n"+
			"#2 PROCESSING rory@example.com... MESSAGING Rory @ U2\n",
		out.String())

	assert.Equal(t, 2, report.Summary.Total)
	assert.Equal(t, 2, report.Summary.Sent)
	assert.Equal(t, 2, report.Summary.Resolved)
	assert.False(t, report.DryRun)
}

func TestRunner_DryRunNeverSends(t *testing.T) {
	client := newFakeClient()
	client.users["amy@example.com"] = slack.UserIdentity{ID: "U1", FirstName: "Amy"}
	client.users["rory@example.com"] = slack.UserIdentity{ID: "U2", FirstName: "Rory"}

	var out bytes.Buffer
	runner := campaign.NewRunner(client, campaign.WithProgress(&out), campaign.WithDryRun(true))

	report := runner.Run(context.Background(), []string{"amy@example.com", "rory@example.com"}, "Hi")

	assert.Len(t, client.lookups, 2, "dry run still resolves")
	assert.Empty(t, client.sent)
	assert.Equal(t,
		"#1 PROCESSING amy@example.com... DRY_RUN Amy @ U1\n"+
			"#2 PROCESSING rory@example.com... DRY_RUN Rory @ U2\n",
		out.String())

	assert.True(t, report.DryRun)
	assert.Equal(t, 2, report.Summary.DryRun)
	assert.Equal(t, 0, report.Summary.Sent)
}

func TestRunner_LookupFailureContinues(t *testing.T) {
	client := newFakeClient()
	client.users["rory@example.com"] = slack.UserIdentity{ID: "U2", FirstName: "Rory"}

	var out bytes.Buffer
	runner := campaign.NewRunner(client, campaign.WithProgress(&out))

	report := runner.Run(context.Background(), []string{"ghost@example.com", "rory@example.com"}, "Hi")

	assert.Equal(t, []string{"ghost@example.com", "rory@example.com"}, client.lookups)
	require.Len(t, client.sent, 1)
	assert.Equal(t, "U2", client.sent[0].userID)

	assert.Equal(t,
		"#1 PROCESSING ghost@example.com... ERROR users_not_found\n"+
			"#2 PROCESSING rory@example.com... MESSAGING Rory @ U2\n",
		out.String())

	assert.Equal(t, 1, report.Summary.LookupFailed)
	assert.Equal(t, 1, report.Summary.Sent)
	assert.Equal(t, 1, report.Summary.Resolved)

	res := report.Results[0]
	assert.Equal(t, campaign.StatusLookupFailed, res.Status)
	assert.ErrorIs(t, res.Err(), slack.ErrUserNotFound)
	assert.Empty(t, res.Identity.ID)
}

func TestRunner_SendFailureRecorded(t *testing.T) {
	client := newFakeClient()
	client.users["amy@example.com"] = slack.UserIdentity{ID: "U1", FirstName: "Amy"}
	client.users["rory@example.com"] = slack.UserIdentity{ID: "U2", FirstName: "Rory"}
	client.sendErr["U1"] = slack.NewAPIError("chat.postMessage", 200, "channel_not_found")

	var out bytes.Buffer
	runner := campaign.NewRunner(client, campaign.WithProgress(&out))

	report := runner.Run(context.Background(), []string{"amy@example.com", "rory@example.com"}, "Hi")

	assert.Equal(t,
		"#1 PROCESSING amy@example.com... MESSAGING Amy @ U1\n"+
			"ERROR channel_not_found\n"+
			"#2 PROCESSING rory@example.com... MESSAGING Rory @ U2\n",
		out.String())

	assert.Equal(t, 1, report.Summary.SendFailed)
	assert.Equal(t, 1, report.Summary.Sent)
	assert.Equal(t, 2, report.Summary.Resolved)
	assert.ErrorIs(t, report.Results[0].Err(), slack.ErrChannelNotFound)
}

func TestRunner_OneLookupPerEmail(t *testing.T) {
	client := newFakeClient()
	emails := []string{"a@x.com", "b@x.com", "c@x.com"}
	runner := campaign.NewRunner(client)

	report := runner.Run(context.Background(), emails, "Hi")

	assert.Equal(t, emails, client.lookups)
	assert.Equal(t, len(emails), report.Summary.Total)
	for i, res := range report.Results {
		assert.Equal(t, i+1, res.Index)
	}
}

func TestRunner_StopsWhenCancelled(t *testing.T) {
	client := newFakeClient()
	client.users["a@x.com"] = slack.UserIdentity{ID: "U1", FirstName: "A"}
	client.users["b@x.com"] = slack.UserIdentity{ID: "U2", FirstName: "B"}
	client.users["c@x.com"] = slack.UserIdentity{ID: "U3", FirstName: "C"}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client.onLookup = func(email string) {
		if email == "b@x.com" {
			cancel()
		}
	}

	runner := campaign.NewRunner(client)
	report := runner.Run(ctx, []string{"a@x.com", "b@x.com", "c@x.com"}, "Hi")

	assert.Equal(t, []string{"a@x.com", "b@x.com"}, client.lookups)
	assert.True(t, report.Interrupted)
	require.Len(t, report.Results, 2)
	assert.Equal(t, campaign.StatusSent, report.Results[0].Status)
	assert.Equal(t, campaign.StatusLookupFailed, report.Results[1].Status)
	assert.True(t, errors.Is(report.Results[1].Err(), context.Canceled))
}

func TestRunner_CancelAfterLastSendIsNotInterrupted(t *testing.T) {
	client := newFakeClient()
	client.users["a@x.com"] = slack.UserIdentity{ID: "U1", FirstName: "A"}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client.onSend = func(string) { cancel() }

	report := campaign.NewRunner(client).Run(ctx, []string{"a@x.com"}, "Hi")

	require.Len(t, report.Results, 1)
	assert.Equal(t, campaign.StatusSent, report.Results[0].Status)
	assert.False(t, report.Interrupted)
	assert.NotContains(t, report.FormatSummary(), "INTERRUPTED")
}

func TestRunner_LastSendCancelledIsInterrupted(t *testing.T) {
	client := newFakeClient()
	client.users["a@x.com"] = slack.UserIdentity{ID: "U1", FirstName: "A"}
	client.users["b@x.com"] = slack.UserIdentity{ID: "U2", FirstName: "B"}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client.onSend = func(userID string) {
		if userID == "U2" {
			cancel()
		}
	}
	client.sendErr["U2"] = context.Canceled

	report := campaign.NewRunner(client).Run(ctx, []string{"a@x.com", "b@x.com"}, "Hi")

	require.Len(t, report.Results, 2)
	assert.Equal(t, campaign.StatusSendFailed, report.Results[1].Status)
	assert.True(t, report.Interrupted)
}

func TestRunner_EmptyFirstName(t *testing.T) {
	client := newFakeClient()
	client.users["bot@example.com"] = slack.UserIdentity{ID: "U9"}

	var out bytes.Buffer
	runner := campaign.NewRunner(client, campaign.WithProgress(&out))
	runner.Run(context.Background(), []string{"bot@example.com"}, "Hi {user_name}!")

	require.Len(t, client.sent, 1)
	assert.Equal(t, "Hi !", client.sent[0].text)
	assert.Equal(t, "#1 PROCESSING bot@example.com... MESSAGING  @ U9\n", out.String())
}

func TestReport_SaveAndSummary(t *testing.T) {
	report := campaign.NewReport(false)
	report.AddResult(&campaign.Result{Index: 1, Email: "a@x.com", Status: campaign.StatusSent})
	report.AddResult(&campaign.Result{Index: 2, Email: "b@x.com", Status: campaign.StatusLookupFailed, Error: "users_not_found"})
	report.Finalize()

	assert.Equal(t, 2, report.Summary.Total)
	assert.Equal(t, 1, report.Summary.Resolved)
	require.Len(t, report.Failures(), 1)

	summary := report.FormatSummary()
	assert.Contains(t, summary, report.RunID)
	assert.Contains(t, summary, "Recipients: 1/2 resolved")
	assert.Contains(t, summary, "Sent: 1")
	assert.Contains(t, summary, "FAILED: #2 b@x.com - users_not_found")

	dir := t.TempDir()
	filename, err := report.Save(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "reports", "report-"+report.RunID+".json"), filename)

	data, err := os.ReadFile(filename)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, report.RunID, decoded["run_id"])
	summaryJSON := decoded["summary"].(map[string]any)
	assert.EqualValues(t, 1, summaryJSON["lookup_failed"])
}

func TestReport_RunIDsAreUnique(t *testing.T) {
	a := campaign.NewReport(true)
	b := campaign.NewReport(true)
	assert.NotEqual(t, a.RunID, b.RunID)
	assert.Len(t, a.RunID, 36)
}
