// Package recipients loads the recipient list and the message template from disk.
package recipients

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/prilive-com/slackcast/internal/validate"
)

// Default file names, relative to the working directory.
const (
	DefaultEmailsPath  = "message_slack_users.emails"
	DefaultMessagePath = "message_slack_users.message"
)

// List is an ordered sequence of unique emails. Order is the order of first
// appearance in the source file.
type List struct {
	emails []string
	seen   mapset.Set[string]
}

// NewList returns an empty list.
func NewList() *List {
	return &List{seen: mapset.NewThreadUnsafeSet[string]()}
}

// Add appends email unless it is already present. It reports whether the
// email was added.
func (l *List) Add(email string) bool {
	if !l.seen.Add(email) {
		return false
	}
	l.emails = append(l.emails, email)
	return true
}

// Contains reports whether email is in the list.
func (l *List) Contains(email string) bool {
	return l.seen.Contains(email)
}

// Len returns the number of unique emails.
func (l *List) Len() int {
	return len(l.emails)
}

// Emails returns a copy of the emails in order.
func (l *List) Emails() []string {
	return append([]string(nil), l.emails...)
}

// ParseEmails reads one email per line. Trailing whitespace (including a
// Windows line ending) is trimmed, blank lines are skipped and duplicates
// collapse onto their first occurrence.
func ParseEmails(r io.Reader) (*List, error) {
	list := NewList()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		email := strings.TrimRightFunc(scanner.Text(), isSpace)
		if email == "" {
			continue
		}
		list.Add(email)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// LoadEmails reads the recipients file at path.
// A missing file yields an error matching fs.ErrNotExist.
func LoadEmails(path string) (*List, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open recipients file: %w", err)
	}
	defer f.Close()

	list, err := ParseEmails(f)
	if err != nil {
		return nil, fmt.Errorf("read recipients file %s: %w", path, err)
	}
	return list, nil
}

// LoadMessage reads the message template at path verbatim.
// A missing file yields an error matching fs.ErrNotExist.
func LoadMessage(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read message file: %w", err)
	}
	return string(data), nil
}

// InvalidEmail is an entry that does not parse as a bare email address.
type InvalidEmail struct {
	Email  string
	Reason error
}

// Validate returns the entries of l that are not syntactically valid emails.
// Slack stays the authority on whether an address resolves; this only
// catches obvious typos before any API call is made.
func Validate(l *List) []InvalidEmail {
	var invalid []InvalidEmail
	for _, email := range l.emails {
		if err := validate.Email(email); err != nil {
			invalid = append(invalid, InvalidEmail{Email: email, Reason: err})
		}
	}
	return invalid
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\r', '\n', '\v', '\f':
		return true
	}
	return false
}
