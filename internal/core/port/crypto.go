package port

import (
	"time"

	"github.com/ndk123-web/backend-structure/internal/core/domain"
)

// PasswordPolicyValidator enforces password strength requirements.
type PasswordPolicyValidator interface {
	Validate(password string, ctx domain.PasswordContext) error
}

// PasswordHasher hashes and verifies secrets using the configured algorithm.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Verify never errors: malformed hashes simply do not match.
	Verify(password string, encoded string) bool
	Algorithm() string
}

// TokenSigner mints and verifies access and refresh tokens.
type TokenSigner interface {
	IssueAccess(identity domain.Identity) (string, time.Time, error)
	IssueRefresh(identity domain.Identity) (string, time.Time, error)
	VerifyAccess(token string) (*domain.AccessClaims, error)
	VerifyRefresh(token string) (*domain.RefreshClaims, error)
}
