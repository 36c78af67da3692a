package slack

import (
	"encoding/json"
	"strings"
)

// Response is the envelope every Slack Web API method returns.
// Method-specific fields are decoded separately from the raw body.
type Response struct {
	OK       bool              `json:"ok"`
	Error    string            `json:"error,omitempty"`
	Warning  string            `json:"warning,omitempty"`
	Needed   string            `json:"needed,omitempty"`
	Provided string            `json:"provided,omitempty"`
	Metadata *ResponseMetadata `json:"response_metadata,omitempty"`
}

// ResponseMetadata carries warnings and validation messages.
type ResponseMetadata struct {
	Messages []string `json:"messages,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// User is a Slack workspace member as returned by users.lookupByEmail.
type User struct {
	ID       string      `json:"id"`
	TeamID   string      `json:"team_id,omitempty"`
	Name     string      `json:"name,omitempty"`
	RealName string      `json:"real_name,omitempty"`
	Deleted  bool        `json:"deleted,omitempty"`
	IsBot    bool        `json:"is_bot,omitempty"`
	TZ       string      `json:"tz,omitempty"`
	Profile  UserProfile `json:"profile"`
}

// UserProfile holds the profile fields relevant to personalization.
type UserProfile struct {
	RealName    string `json:"real_name,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	Email       string `json:"email,omitempty"`
}

// UserIdentity is the part of a user a message is addressed and personalized with.
type UserIdentity struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
}

// Identity reduces the user to its ID and the first whitespace-separated
// token of real_name. FirstName is empty when real_name is blank.
func (u *User) Identity() UserIdentity {
	first := ""
	if fields := strings.Fields(u.RealName); len(fields) > 0 {
		first = fields[0]
	}
	return UserIdentity{ID: u.ID, FirstName: first}
}

// LookupUserByEmailResponse is the users.lookupByEmail result.
type LookupUserByEmailResponse struct {
	Response
	User *User `json:"user,omitempty"`
}

// PostMessageRequest is the chat.postMessage body.
type PostMessageRequest struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
	AsUser  bool   `json:"as_user"`
}

// PostMessageResponse is the chat.postMessage result.
type PostMessageResponse struct {
	Response
	Channel string          `json:"channel,omitempty"`
	TS      string          `json:"ts,omitempty"`
	Message json.RawMessage `json:"message,omitempty"`
}
