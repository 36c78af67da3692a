package testutil

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// ReplyOK writes a successful Slack API response: {"ok": true, ...fields}.
func ReplyOK(w http.ResponseWriter, fields map[string]any) {
	body := map[string]any{"ok": true}
	for k, v := range fields {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

// ReplyError writes a Slack API error: HTTP 200 with {"ok": false, "error": code}.
func ReplyError(w http.ResponseWriter, code string) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": false, "error": code})
}

// ReplyMissingScope writes a missing_scope error naming the needed scope.
func ReplyMissingScope(w http.ResponseWriter, needed string) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":       false,
		"error":    "missing_scope",
		"needed":   needed,
		"provided": "chat:write",
	})
}

// ReplyUserNotFound writes the users.lookupByEmail miss.
func ReplyUserNotFound(w http.ResponseWriter) {
	ReplyError(w, "users_not_found")
}

// ReplyRateLimit writes an HTTP 429 with a Retry-After header.
func ReplyRateLimit(w http.ResponseWriter, retryAfter int) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	writeJSON(w, http.StatusTooManyRequests, map[string]any{"ok": false, "error": "ratelimited"})
}

// ReplyServerError writes a 5xx with a non-JSON body, as a proxy in front
// of Slack would.
func ReplyServerError(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(http.StatusText(status)))
}

// ReplyUser writes a successful users.lookupByEmail response.
func ReplyUser(w http.ResponseWriter, id, realName string) {
	ReplyOK(w, map[string]any{"user": map[string]any{
		"id":        id,
		"team_id":   TestTeamID,
		"name":      "testuser",
		"real_name": realName,
		"profile": map[string]any{
			"real_name": realName,
		},
	}})
}

// ReplyPosted writes a successful chat.postMessage response.
func ReplyPosted(w http.ResponseWriter, channel, ts string) {
	ReplyOK(w, map[string]any{
		"channel": channel,
		"ts":      ts,
		"message": map[string]any{"type": "message", "ts": ts},
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
