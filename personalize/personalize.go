// Package personalize substitutes {token} placeholders in a message template.
//
// Replacement is literal: every "{key}" is replaced by its value, fields are
// applied in insertion order, there is no escaping, and tokens without a
// matching field are left verbatim.
//
//	p := personalize.Personalization{}.
//	    With(personalize.KeyUserName, "Amy").
//	    With(personalize.KeyUserEmail, "a@x.com")
//	personalize.Render("{user_name} says {user_email}", p) // "Amy says a@x.com"
package personalize

import (
	"regexp"
	"strings"

	"github.com/prilive-com/slackcast/slack"
)

// Standard keys filled in for every recipient.
const (
	KeyUserName  = "user_name"
	KeyUserID    = "user_id"
	KeyUserEmail = "user_email"
)

// Field is one token name and its substitution value.
type Field struct {
	Key   string
	Value string
}

// Personalization is an ordered token→value mapping.
// The order is the order replacements are applied in.
type Personalization []Field

// With returns p with key set to value. An existing key keeps its position.
func (p Personalization) With(key, value string) Personalization {
	for i := range p {
		if p[i].Key == key {
			out := append(Personalization(nil), p...)
			out[i].Value = value
			return out
		}
	}
	return append(append(Personalization(nil), p...), Field{Key: key, Value: value})
}

// Get returns the value for key.
func (p Personalization) Get(key string) (string, bool) {
	for _, f := range p {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Keys returns the keys in insertion order.
func (p Personalization) Keys() []string {
	keys := make([]string, len(p))
	for i, f := range p {
		keys[i] = f.Key
	}
	return keys
}

// ForRecipient builds the standard personalization for a resolved user:
// user_name, user_id, user_email, in that order.
func ForRecipient(identity slack.UserIdentity, email string) Personalization {
	return Personalization{
		{Key: KeyUserName, Value: identity.FirstName},
		{Key: KeyUserID, Value: identity.ID},
		{Key: KeyUserEmail, Value: email},
	}
}

// Render replaces every literal "{key}" in template with its value.
// Fields are applied one after another, so a value containing a later
// field's token is itself substituted.
func Render(template string, p Personalization) string {
	for _, f := range p {
		template = strings.ReplaceAll(template, "{"+f.Key+"}", f.Value)
	}
	return template
}

var tokenRegex = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// Tokens returns the distinct placeholder names in template, in order of
// first appearance.
func Tokens(template string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, m := range tokenRegex.FindAllStringSubmatch(template, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		out = append(out, m[1])
	}
	return out
}

// Unknown returns the placeholder names in template that p does not fill.
func Unknown(template string, p Personalization) []string {
	var out []string
	for _, tok := range Tokens(template) {
		if _, ok := p.Get(tok); !ok {
			out = append(out, tok)
		}
	}
	return out
}
