// Package slack provides the Slack Web API types shared by the sender and
// the campaign driver.
//
// This package contains:
//   - Wire types for users.lookupByEmail and chat.postMessage
//   - UserIdentity, the reduced view of a user a message is personalized with
//   - Error types and sentinel errors
//   - SecretToken for safe token handling
//
// # Usage
//
//	import "github.com/prilive-com/slackcast/slack"
//
//	var user slack.User
//	var err *slack.APIError
//	token := slack.SecretToken("xoxp-...")
package slack
