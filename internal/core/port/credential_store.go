package port

import (
	"context"
	"time"

	"github.com/ndk123-web/backend-structure/internal/core/domain"
)

// CredentialStore persists identities together with their single active
// refresh token.
type CredentialStore interface {
	Create(ctx context.Context, identity domain.Identity) error
	// FindByIdentifier matches username (case-insensitive) or email.
	FindByIdentifier(ctx context.Context, usernameOrEmail string) (*domain.Identity, error)
	FindByID(ctx context.Context, id string) (*domain.Identity, error)
	// CompareAndSetRefreshToken writes next only when the stored token equals
	// expected (nil matches an empty slot). It reports whether the write happened.
	CompareAndSetRefreshToken(ctx context.Context, id string, expected, next *string) (bool, error)
	SetRefreshToken(ctx context.Context, id string, value *string) error
	SetPasswordHash(ctx context.Context, id string, passwordHash string, passwordAlgo string, changedAt time.Time) error
}
