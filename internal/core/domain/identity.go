package domain

import "time"

// Password algorithms recorded alongside each stored hash.
const (
	PasswordAlgoBcrypt   = "bcrypt"
	PasswordAlgoArgon2id = "argon2id"
)

// Identity mirrors the persisted representation in the users table.
type Identity struct {
	ID           string
	Username     string
	Email        string
	FullName     string
	Avatar       string
	CoverImage   string
	PasswordHash string
	PasswordAlgo string
	// RefreshToken is the single active refresh token; nil means no session.
	RefreshToken *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Sanitized returns a copy safe to hand to transports: password hash and
// refresh token are stripped.
func (i Identity) Sanitized() Identity {
	i.PasswordHash = ""
	i.PasswordAlgo = ""
	i.RefreshToken = nil
	return i
}

// HasActiveSession reports whether a refresh token is currently stored.
func (i Identity) HasActiveSession() bool {
	return i.RefreshToken != nil && *i.RefreshToken != ""
}

// ClientMeta captures request metadata attached to audit logs and events.
type ClientMeta struct {
	IP        string
	UserAgent string
}

// PasswordContext carries identity attributes that a new password must not
// be derived from.
type PasswordContext struct {
	Username string
	Email    string
	FullName string
	// Current is the password being replaced, empty on registration.
	Current string
}
