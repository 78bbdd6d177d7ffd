package domain

import "time"

// Session event sources.
const (
	SessionSourceLogin      = "login"
	SessionSourceRefresh    = "refresh_endpoint"
	SessionSourceMiddleware = "middleware"
)

// Session end reasons.
const (
	SessionEndLogout        = "logout"
	SessionEndReuseDetected = "reuse_detected"
)

// IdentityRegisteredEvent represents the payload for videotube.identity.registered messages.
type IdentityRegisteredEvent struct {
	EventID      string
	IdentityID   string
	Username     string
	RegisteredAt time.Time
	Metadata     map[string]any
}

// SessionStartedEvent represents the payload for videotube.session.started messages.
type SessionStartedEvent struct {
	EventID    string
	IdentityID string
	StartedAt  time.Time
	Client     ClientMeta
}

// SessionRotatedEvent represents the payload for videotube.session.rotated messages.
// Token values are never part of the payload.
type SessionRotatedEvent struct {
	EventID    string
	IdentityID string
	RotatedAt  time.Time
	Source     string
	Client     ClientMeta
}

// SessionEndedEvent represents the payload for videotube.session.ended messages.
type SessionEndedEvent struct {
	EventID    string
	IdentityID string
	EndedAt    time.Time
	Reason     string
	Client     ClientMeta
}

// RefreshReuseDetectedEvent represents the payload for videotube.session.reuse_detected messages.
type RefreshReuseDetectedEvent struct {
	EventID    string
	IdentityID string
	DetectedAt time.Time
	Source     string
	// HadActiveSession is false when the stored token was already cleared.
	HadActiveSession bool
	Client           ClientMeta
}

// PasswordChangedEvent represents the payload for videotube.identity.password.changed messages.
type PasswordChangedEvent struct {
	EventID    string
	IdentityID string
	ChangedAt  time.Time
	Client     ClientMeta
}
