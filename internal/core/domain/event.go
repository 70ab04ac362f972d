package domain

import "time"

// AuthEventKind classifies entries in the auth audit trail.
type AuthEventKind string

const (
	EventRegistered   AuthEventKind = "registered"
	EventLoginOK      AuthEventKind = "login_ok"
	EventLoginFailed  AuthEventKind = "login_failed"
	EventTokenRefresh AuthEventKind = "token_refresh"
	EventLogout       AuthEventKind = "logout"
)

// AuthEvent is a single audit record. Subject is empty for failed logins
// against unknown identifiers; ClientIP is the peer address as seen by the
// edge.
type AuthEvent struct {
	Subject    string        `json:"subject,omitempty"`
	Identifier string        `json:"identifier,omitempty"`
	Kind       AuthEventKind `json:"kind"`
	ClientIP   string        `json:"client_ip"`
	At         time.Time     `json:"at"`
}
