package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ndk123-web/backend-structure/internal/core/domain"
	"github.com/ndk123-web/backend-structure/internal/core/port"
	"github.com/ndk123-web/backend-structure/internal/infra/security"
	"github.com/ndk123-web/backend-structure/internal/repository/memory"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// flakyStore wraps the in-memory store and injects failures per method.
type flakyStore struct {
	*memory.CredentialStore

	mu                  sync.Mutex
	findByIdentifierErr error
	findByIDErr         error
	setRefreshErr       error
	casErr              error
	setPasswordErr      error
	beforeCAS           func()
}

func newFlakyStore() *flakyStore {
	return &flakyStore{CredentialStore: memory.NewCredentialStore()}
}

func (s *flakyStore) FindByIdentifier(ctx context.Context, identifier string) (*domain.Identity, error) {
	s.mu.Lock()
	err := s.findByIdentifierErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.CredentialStore.FindByIdentifier(ctx, identifier)
}

func (s *flakyStore) FindByID(ctx context.Context, id string) (*domain.Identity, error) {
	s.mu.Lock()
	err := s.findByIDErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.CredentialStore.FindByID(ctx, id)
}

func (s *flakyStore) SetRefreshToken(ctx context.Context, id string, value *string) error {
	s.mu.Lock()
	err := s.setRefreshErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.CredentialStore.SetRefreshToken(ctx, id, value)
}

func (s *flakyStore) CompareAndSetRefreshToken(ctx context.Context, id string, expected, next *string) (bool, error) {
	s.mu.Lock()
	err, hook := s.casErr, s.beforeCAS
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
	if err != nil {
		return false, err
	}
	return s.CredentialStore.CompareAndSetRefreshToken(ctx, id, expected, next)
}

func (s *flakyStore) SetPasswordHash(ctx context.Context, id, hash, algo string, changedAt time.Time) error {
	s.mu.Lock()
	err := s.setPasswordErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.CredentialStore.SetPasswordHash(ctx, id, hash, algo, changedAt)
}

func (s *flakyStore) set(fn func(*flakyStore)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

type fixture struct {
	clock        *testClock
	store        *flakyStore
	hasher       *security.PasswordHasher
	signer       *security.JWTSigner
	sessions     *SessionService
	registration *RegistrationService
	auth         *Authenticator
}

func newFixture(t *testing.T, events port.EventPublisher) *fixture {
	t.Helper()

	clock := newTestClock()
	store := newFlakyStore()
	hasher, err := security.NewPasswordHasher(security.HasherSettings{
		Algorithm:  domain.PasswordAlgoBcrypt,
		BcryptCost: security.MinBcryptCost,
	})
	require.NoError(t, err)

	signer, err := security.NewJWTSigner(security.SignerSettings{
		AccessSecret:  "access-secret-access-secret-0001",
		RefreshSecret: "refresh-secret-refresh-secret-01",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    240 * time.Hour,
		Issuer:        "videotube",
	}, security.WithSignerClock(clock.Now))
	require.NoError(t, err)

	log := zaptest.NewLogger(t)
	policy := security.NewPasswordPolicy(security.PolicySettings{})

	sessions := NewSessionService(
		SessionConfig{RotationThreshold: 5 * time.Minute},
		store, hasher, signer, policy, events, nil, log,
	).WithClock(clock.Now)

	return &fixture{
		clock:        clock,
		store:        store,
		hasher:       hasher,
		signer:       signer,
		sessions:     sessions,
		registration: NewRegistrationService(store, hasher, policy, events, nil, log).WithClock(clock.Now),
		auth:         NewAuthenticator(sessions, signer, nil, log).WithClock(clock.Now),
	}
}

func (f *fixture) registerAlice(t *testing.T) domain.Identity {
	t.Helper()
	identity, err := f.registration.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		FullName: "Alice Liddell",
		Password: "secret123",
		Avatar:   "https://cdn.example.com/alice.png",
	})
	require.NoError(t, err)
	return identity
}

func (f *fixture) login(t *testing.T, identifier, password string) *LoginResult {
	t.Helper()
	result, err := f.sessions.Login(context.Background(), LoginInput{Identifier: identifier, Password: password})
	require.NoError(t, err)
	return result
}

func (f *fixture) storedToken(t *testing.T, id string) *string {
	t.Helper()
	identity, err := f.store.CredentialStore.FindByID(context.Background(), id)
	require.NoError(t, err)
	return identity.RefreshToken
}
