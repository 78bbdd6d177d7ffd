package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ndk123-web/backend-structure/internal/core/domain"
	"github.com/ndk123-web/backend-structure/internal/core/port"
)

// TimeoutStore bounds every call to the wrapped CredentialStore. A call that
// runs out of time reports ErrUnavailable so callers treat it as transient.
type TimeoutStore struct {
	next    port.CredentialStore
	timeout time.Duration
}

// WithTimeout wraps store; a non-positive timeout returns store unchanged.
func WithTimeout(store port.CredentialStore, timeout time.Duration) port.CredentialStore {
	if timeout <= 0 || store == nil {
		return store
	}
	return &TimeoutStore{next: store, timeout: timeout}
}

func (s *TimeoutStore) Create(ctx context.Context, identity domain.Identity) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.translate(ctx, s.next.Create(ctx, identity))
}

func (s *TimeoutStore) FindByIdentifier(ctx context.Context, usernameOrEmail string) (*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	identity, err := s.next.FindByIdentifier(ctx, usernameOrEmail)
	return identity, s.translate(ctx, err)
}

func (s *TimeoutStore) FindByID(ctx context.Context, id string) (*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	identity, err := s.next.FindByID(ctx, id)
	return identity, s.translate(ctx, err)
}

func (s *TimeoutStore) CompareAndSetRefreshToken(ctx context.Context, id string, expected, next *string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	swapped, err := s.next.CompareAndSetRefreshToken(ctx, id, expected, next)
	return swapped, s.translate(ctx, err)
}

func (s *TimeoutStore) SetRefreshToken(ctx context.Context, id string, value *string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.translate(ctx, s.next.SetRefreshToken(ctx, id, value))
}

func (s *TimeoutStore) SetPasswordHash(ctx context.Context, id string, passwordHash string, passwordAlgo string, changedAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.translate(ctx, s.next.SetPasswordHash(ctx, id, passwordHash, passwordAlgo, changedAt))
}

// Ping forwards to the wrapped store when it supports readiness checks.
func (s *TimeoutStore) Ping(ctx context.Context) error {
	pinger, ok := s.next.(interface{ Ping(context.Context) error })
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.translate(ctx, pinger.Ping(ctx))
}

func (s *TimeoutStore) translate(ctx context.Context, err error) error {
	if err == nil || errors.Is(err, ErrUnavailable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: store call exceeded %s: %w", ErrUnavailable, s.timeout, err)
	}
	return err
}
