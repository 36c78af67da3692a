// Package resilience provides circuit breaking, rate limiting and retry
// utilities for the Slack client.
// Uses sony/gobreaker for circuit breaking and golang.org/x/time/rate for rate limiting.
package resilience
