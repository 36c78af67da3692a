// Package sender provides a Slack Web API client for direct messages with
// resilience features.
//
// # Features
//
//   - Look up a workspace member by email (users.lookupByEmail)
//   - Post a message to a user's DM channel (chat.postMessage)
//   - Circuit breaker for fault tolerance
//   - Global and per-channel rate limiting
//   - Retry with exponential backoff, honouring Retry-After
//   - Token redaction in errors and logs
//
// # Usage
//
//	client, err := sender.New(token,
//	    sender.WithRetries(3),
//	    sender.WithLogger(logger),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	user, err := client.ResolveUser(ctx, "amy@example.com")
//	if err != nil {
//	    return err
//	}
//	_, err = client.SendMessage(ctx, "Hi {user_name}!", user.ID,
//	    personalize.ForRecipient(user, "amy@example.com"))
package sender
