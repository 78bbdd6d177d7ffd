// Package memory provides an in-process CredentialStore for development and tests.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ndk123-web/backend-structure/internal/core/domain"
	"github.com/ndk123-web/backend-structure/internal/repository"
)

// CredentialStore keeps identities in a map guarded by a mutex. Every
// operation, including compare-and-set, runs under the lock.
type CredentialStore struct {
	mu         sync.RWMutex
	identities map[string]*domain.Identity
	now        func() time.Time
}

// NewCredentialStore returns an empty store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{
		identities: make(map[string]*domain.Identity),
		now:        time.Now,
	}
}

// Create inserts identity, rejecting duplicate ids, usernames and emails.
func (s *CredentialStore) Create(ctx context.Context, identity domain.Identity) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.identities[identity.ID]; exists {
		return repository.ErrConflict
	}
	for _, existing := range s.identities {
		if strings.EqualFold(existing.Username, identity.Username) || strings.EqualFold(existing.Email, identity.Email) {
			return repository.ErrConflict
		}
	}

	stored := cloneIdentity(identity)
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now().UTC()
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = stored.CreatedAt
	}
	s.identities[identity.ID] = &stored
	return nil
}

// FindByIdentifier matches username case-insensitively or email.
func (s *CredentialStore) FindByIdentifier(ctx context.Context, usernameOrEmail string) (*domain.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	needle := strings.TrimSpace(usernameOrEmail)

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, identity := range s.identities {
		if strings.EqualFold(identity.Username, needle) || strings.EqualFold(identity.Email, needle) {
			found := cloneIdentity(*identity)
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

// FindByID returns a copy of the identity stored under id.
func (s *CredentialStore) FindByID(ctx context.Context, id string) (*domain.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	identity, ok := s.identities[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	found := cloneIdentity(*identity)
	return &found, nil
}

// CompareAndSetRefreshToken swaps the stored token when it equals expected.
func (s *CredentialStore) CompareAndSetRefreshToken(ctx context.Context, id string, expected, next *string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	identity, ok := s.identities[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if !equalToken(identity.RefreshToken, expected) {
		return false, nil
	}
	identity.RefreshToken = copyString(next)
	identity.UpdatedAt = s.now().UTC()
	return true, nil
}

// SetRefreshToken overwrites the stored token unconditionally.
func (s *CredentialStore) SetRefreshToken(ctx context.Context, id string, value *string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	identity, ok := s.identities[id]
	if !ok {
		return repository.ErrNotFound
	}
	identity.RefreshToken = copyString(value)
	identity.UpdatedAt = s.now().UTC()
	return nil
}

// SetPasswordHash replaces the stored password hash.
func (s *CredentialStore) SetPasswordHash(ctx context.Context, id string, passwordHash string, passwordAlgo string, changedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	identity, ok := s.identities[id]
	if !ok {
		return repository.ErrNotFound
	}
	identity.PasswordHash = passwordHash
	identity.PasswordAlgo = passwordAlgo
	identity.UpdatedAt = changedAt.UTC()
	return nil
}

// Ping always succeeds; it lets the store take part in readiness checks.
func (s *CredentialStore) Ping(context.Context) error { return nil }

func equalToken(stored, expected *string) bool {
	storedEmpty := stored == nil || *stored == ""
	expectedEmpty := expected == nil || *expected == ""
	if storedEmpty || expectedEmpty {
		return storedEmpty && expectedEmpty
	}
	return *stored == *expected
}

func copyString(value *string) *string {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}

func cloneIdentity(identity domain.Identity) domain.Identity {
	identity.RefreshToken = copyString(identity.RefreshToken)
	return identity
}
