package recipients_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/prilive-com/slackcast/recipients"
	"github.com/prilive-com/slackcast/slack"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadEmails_OrderedUnique(t *testing.T) {
	path := writeFile(t, "emails", "b@x.com\na@x.com\nb@x.com\nc@x.com\na@x.com\n")

	list, err := recipients.LoadEmails(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"b@x.com", "a@x.com", "c@x.com"}, list.Emails())
	assert.Equal(t, 3, list.Len())
}

func TestLoadEmails_DuplicatesCollapse(t *testing.T) {
	path := writeFile(t, "emails", "a@x.com\na@x.com")

	list, err := recipients.LoadEmails(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"a@x.com"}, list.Emails())
}

func TestLoadEmails_TrimsTrailingWhitespace(t *testing.T) {
	path := writeFile(t, "emails", "a@x.com  \r\na@x.com\t\n  b@x.com\n")

	list, err := recipients.LoadEmails(path)
	require.NoError(t, err)

	// Only trailing whitespace is trimmed; a leading space makes a distinct entry.
	assert.Equal(t, []string{"a@x.com", "  b@x.com"}, list.Emails())
}

func TestLoadEmails_SkipsBlankLines(t *testing.T) {
	path := writeFile(t, "emails", "\na@x.com\n\n   \nb@x.com\n\n")

	list, err := recipients.LoadEmails(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"a@x.com", "b@x.com"}, list.Emails())
}

func TestLoadEmails_MissingFile(t *testing.T) {
	_, err := recipients.LoadEmails(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLoadMessage_Verbatim(t *testing.T) {
	content := "Hi {user_name},\n\n  indented line\ntrailing spaces   \n"
	path := writeFile(t, "message", content)

	msg, err := recipients.LoadMessage(path)
	require.NoError(t, err)
	assert.Equal(t, content, msg)
}

func TestLoadMessage_MissingFile(t *testing.T) {
	_, err := recipients.LoadMessage(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestList_AddContains(t *testing.T) {
	l := recipients.NewList()
	assert.True(t, l.Add("a@x.com"))
	assert.False(t, l.Add("a@x.com"))
	assert.True(t, l.Contains("a@x.com"))
	assert.False(t, l.Contains("b@x.com"))

	emails := l.Emails()
	emails[0] = "mutated"
	assert.Equal(t, []string{"a@x.com"}, l.Emails(), "Emails returns a copy")
}

func TestValidate(t *testing.T) {
	list, err := recipients.ParseEmails(strings.NewReader("a@x.com\nnot-an-email\nAmy <b@x.com>\n"))
	require.NoError(t, err)

	invalid := recipients.Validate(list)
	require.Len(t, invalid, 2)
	assert.Equal(t, "not-an-email", invalid[0].Email)
	assert.Equal(t, "Amy <b@x.com>", invalid[1].Email)
	assert.ErrorIs(t, invalid[0].Reason, slack.ErrInvalidEmail)
	assert.ErrorIs(t, invalid[1].Reason, slack.ErrInvalidEmail)
}

func TestParseEmails_CountEqualsDistinctLines(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lines := rapid.SliceOf(rapid.SampledFrom([]string{
			"a@x.com", "b@x.com", "c@x.com", "d@x.com", "e@x.com",
		})).Draw(t, "lines")

		distinct := make(map[string]struct{})
		for _, l := range lines {
			distinct[l] = struct{}{}
		}

		list, err := recipients.ParseEmails(strings.NewReader(strings.Join(lines, "\n")))
		if err != nil {
			t.Fatal(err)
		}
		if list.Len() != len(distinct) {
			t.Fatalf("got %d emails, want %d", list.Len(), len(distinct))
		}
		// First occurrence order is preserved.
		var want []string
		seen := make(map[string]struct{})
		for _, l := range lines {
			if _, ok := seen[l]; !ok {
				seen[l] = struct{}{}
				want = append(want, l)
			}
		}
		got := list.Emails()
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("order mismatch at %d: got %q want %q", i, got[i], want[i])
			}
		}
	})
}
