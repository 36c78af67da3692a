package main

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prilive-com/slackcast/internal/testutil"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

type cliResult struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, ctx context.Context, args ...string) cliResult {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(ctx, args, &stdout, &stderr)
	return cliResult{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

// inputFiles writes the emails and message files and returns their paths.
func inputFiles(t *testing.T, emails, message string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	emailsPath := filepath.Join(dir, "emails")
	messagePath := filepath.Join(dir, "message")
	require.NoError(t, os.WriteFile(emailsPath, []byte(emails), 0o600))
	require.NoError(t, os.WriteFile(messagePath, []byte(message), 0o600))
	return emailsPath, messagePath
}

func slackServer(t *testing.T) *testutil.MockSlackServer {
	t.Helper()
	server := testutil.NewMockServer(t)
	server.OnLookup(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("email") {
		case testutil.TestEmail:
			testutil.ReplyUser(w, testutil.TestUserID, testutil.TestRealName)
		case "rory@example.com":
			testutil.ReplyUser(w, "U0RORY", "Rory Williams")
		default:
			testutil.ReplyUserNotFound(w)
		}
	})
	server.OnPostMessage(func(w http.ResponseWriter, r *http.Request) {
		testutil.ReplyPosted(w, "D1", testutil.TestTS)
	})
	return server
}

func TestRun_SendsToEveryRecipient(t *testing.T) {
	t.Setenv("SLACK_TOKEN", "")
	server := slackServer(t)
	emails, message := inputFiles(t,
		"amy@example.com\nghost@example.com\namy@example.com  \nrory@example.com\n",
		"Hello {user_name}, your id is {user_id}")

	res := runCLI(t, context.Background(),
		"-t", testutil.TestToken,
		"-e", emails,
		"-m", message,
		"--base-url", server.BaseURL(),
		"--log-level", "error",
	)
	require.Equal(t, ExitOK, res.code, res.stderr)

	assert.Contains(t, res.stdout, "#1 PROCESSING amy@example.com... MESSAGING Amy @ U012AB3CDE\n")
	assert.Contains(t, res.stdout, "#2 PROCESSING ghost@example.com... ERROR users_not_found\n")
	assert.Contains(t, res.stdout, "#3 PROCESSING rory@example.com... MESSAGING Rory @ U0RORY\n")
	assert.NotContains(t, res.stdout, "#4")
	assert.Contains(t, res.stdout, "Sent: 2")
	assert.Contains(t, res.stdout, "Lookup failed: 1")

	assert.Len(t, server.CapturesFor(testutil.PathLookupByEmail), 3)
	posts := server.CapturesFor(testutil.PathPostMessage)
	require.Len(t, posts, 2)
	posts[0].AssertJSONField(t, "text", "Hello Amy, your id is U012AB3CDE")
	posts[1].AssertJSONField(t, "channel", "U0RORY")
}

func TestRun_DryRunDoesNotPost(t *testing.T) {
	server := slackServer(t)
	emails, message := inputFiles(t, "amy@example.com\n", "Hi")

	res := runCLI(t, context.Background(),
		"-t", testutil.TestToken,
		"-e", emails,
		"-m", message,
		"-d", "True",
		"--base-url", server.BaseURL(),
	)
	require.Equal(t, ExitOK, res.code, res.stderr)

	assert.Contains(t, res.stdout, "#1 PROCESSING amy@example.com... DRY_RUN Amy @ U012AB3CDE\n")
	assert.Len(t, server.CapturesFor(testutil.PathLookupByEmail), 1)
	assert.Empty(t, server.CapturesFor(testutil.PathPostMessage))
}

func TestRun_DryRunFalseSends(t *testing.T) {
	server := slackServer(t)
	emails, message := inputFiles(t, "amy@example.com\n", "Hi")

	res := runCLI(t, context.Background(),
		"-t", testutil.TestToken, "-e", emails, "-m", message,
		"--dry-run=off", "--base-url", server.BaseURL())
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Len(t, server.CapturesFor(testutil.PathPostMessage), 1)
}

func TestRun_InvalidDryRunValue(t *testing.T) {
	res := runCLI(t, context.Background(), "-t", testutil.TestToken, "--dry-run=maybe")

	assert.Equal(t, ExitUsageError, res.code)
	assert.True(t, strings.HasPrefix(res.stderr, "ERROR: "), res.stderr)
	assert.Contains(t, res.stderr, "maybe")
	assert.Contains(t, res.stderr, "--path_emails", "usage is printed")
	assert.Empty(t, res.stdout)
}

func TestRun_MissingToken(t *testing.T) {
	t.Setenv("SLACK_TOKEN", "")

	res := runCLI(t, context.Background())

	assert.Equal(t, ExitUsageError, res.code)
	assert.Contains(t, res.stderr, "ERROR: the following arguments are required: -t/--token")
}

func TestRun_TokenFromEnv(t *testing.T) {
	t.Setenv("SLACK_TOKEN", testutil.TestToken)
	server := slackServer(t)
	emails, message := inputFiles(t, "amy@example.com\n", "Hi")

	res := runCLI(t, context.Background(), "-e", emails, "-m", message, "--base-url", server.BaseURL())
	require.Equal(t, ExitOK, res.code, res.stderr)

	server.CapturesFor(testutil.PathPostMessage)[0].AssertBearer(t, testutil.TestToken)
}

func TestRun_UnexpectedArgument(t *testing.T) {
	res := runCLI(t, context.Background(), "-t", testutil.TestToken, "extra")
	assert.Equal(t, ExitUsageError, res.code)
	assert.Contains(t, res.stderr, "unrecognized arguments")
}

func TestRun_MissingEmailsFile(t *testing.T) {
	_, message := inputFiles(t, "", "Hi")

	res := runCLI(t, context.Background(),
		"-t", testutil.TestToken,
		"-e", filepath.Join(t.TempDir(), "nope"),
		"-m", message,
	)
	assert.Equal(t, ExitInputError, res.code)
	assert.Contains(t, res.stderr, "ERROR: ")
	assert.Empty(t, res.stdout)
}

func TestRun_MissingMessageFile(t *testing.T) {
	emails, _ := inputFiles(t, "amy@example.com\n", "")

	res := runCLI(t, context.Background(),
		"-t", testutil.TestToken,
		"-e", emails,
		"-m", filepath.Join(t.TempDir(), "nope"),
	)
	assert.Equal(t, ExitInputError, res.code)
}

func TestRun_TokenNotInOutput(t *testing.T) {
	server := slackServer(t)
	emails, message := inputFiles(t, "ghost@example.com\n", "Hi {first_name}")

	res := runCLI(t, context.Background(),
		"-t", testutil.TestToken, "-e", emails, "-m", message,
		"--base-url", server.BaseURL(), "--log-level", "debug")
	require.Equal(t, ExitOK, res.code)

	assert.NotContains(t, res.stdout, testutil.TestToken)
	assert.NotContains(t, res.stderr, testutil.TestToken)
	assert.Contains(t, res.stderr, "placeholders that will not be replaced")
}

func TestRun_SavesReport(t *testing.T) {
	server := slackServer(t)
	emails, message := inputFiles(t, "amy@example.com\n", "Hi")
	reportDir := t.TempDir()

	res := runCLI(t, context.Background(),
		"-t", testutil.TestToken, "-e", emails, "-m", message,
		"--base-url", server.BaseURL(), "--report-dir", reportDir)
	require.Equal(t, ExitOK, res.code, res.stderr)

	entries, err := os.ReadDir(filepath.Join(reportDir, "reports"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "report-"))
}

func TestRun_Interrupted(t *testing.T) {
	server := slackServer(t)
	emails, message := inputFiles(t, "amy@example.com\nrory@example.com\n", "Hi")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := runCLI(t, ctx,
		"-t", testutil.TestToken, "-e", emails, "-m", message,
		"--base-url", server.BaseURL())
	assert.Equal(t, ExitInterrupted, res.code)
	assert.Equal(t, 0, server.CaptureCount())
}

func TestRun_HelpShowsDryRunValue(t *testing.T) {
	res := runCLI(t, context.Background(), "--help")

	assert.Equal(t, ExitOK, res.code)
	assert.Contains(t, res.stdout, "--dry-run true|false")
}

func TestRun_SenderTuningFromEnv(t *testing.T) {
	t.Setenv("SLACK_MAX_RETRIES", "0")
	server := testutil.NewMockServer(t)
	server.OnLookup(func(w http.ResponseWriter, r *http.Request) {
		testutil.ReplyServerError(w, http.StatusServiceUnavailable)
	})
	emails, message := inputFiles(t, "amy@example.com\n", "Hi")

	res := runCLI(t, context.Background(),
		"-t", testutil.TestToken, "-e", emails, "-m", message,
		"--base-url", server.BaseURL(), "--log-level", "error")

	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "#1 PROCESSING amy@example.com... ERROR http_503\n")
	assert.Len(t, server.CapturesFor(testutil.PathLookupByEmail), 1, "SLACK_MAX_RETRIES=0 disables retries")
}

func TestRun_InvalidBaseURL(t *testing.T) {
	emails, message := inputFiles(t, "amy@example.com\n", "Hi")

	res := runCLI(t, context.Background(),
		"-t", testutil.TestToken, "-e", emails, "-m", message,
		"--base-url", "localhost:8080")

	assert.Equal(t, ExitUsageError, res.code)
	assert.Contains(t, res.stderr, "--base-url")
}
