// Package queue defines the auth events exchanged over the message broker
// and the background consumer that turns them into an audit trail.
package queue

// Event types published on the auth.events queue.
const (
	EventRegistered   = "user.registered"
	EventLogin        = "user.login"
	EventOAuthLogin   = "user.oauth_login"
	EventTokenRotated = "token.rotated"
	EventLogoutAll    = "user.logout_all"
	EventLogout       = "user.logout"
)

// AuthEvent is published after a successful lifecycle operation. It carries
// enough for downstream consumers to audit or alert without querying the
// primary database. Token material never appears in an event.
type AuthEvent struct {
	Type     string `json:"type"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Provider string `json:"provider,omitempty"`
	At       string `json:"at"` // RFC 3339 UTC
}
