package domain

import "time"

// Token kinds carried in the typ claim.
const (
	TokenKindAccess  = "access"
	TokenKindRefresh = "refresh"
)

// TokenPair is the result of a successful login or rotation.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// AccessClaims is the decoded view of a verified access token.
type AccessClaims struct {
	TokenID    string
	IdentityID string
	Username   string
	Email      string
	FullName   string
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// Remaining returns the lifetime left at the given instant.
func (c AccessClaims) Remaining(at time.Time) time.Duration {
	return c.ExpiresAt.Sub(at)
}

// RefreshClaims is the decoded view of a verified refresh token.
type RefreshClaims struct {
	TokenID    string
	IdentityID string
	IssuedAt   time.Time
	ExpiresAt  time.Time
}
