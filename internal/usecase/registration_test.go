package usecase

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndk123-web/backend-structure/internal/core/domain"
	"github.com/ndk123-web/backend-structure/internal/repository"
)

func validRegistration() RegisterInput {
	return RegisterInput{
		Username: "  Alice ",
		Email:    "alice@example.com",
		FullName: "Alice Liddell",
		Password: "secret123",
		Avatar:   "https://cdn.example.com/alice.png",
	}
}

func TestRegisterCreatesIdentity(t *testing.T) {
	f := newFixture(t, nil)

	identity, err := f.registration.Register(context.Background(), validRegistration())
	require.NoError(t, err)
	assert.NotEmpty(t, identity.ID)
	assert.Equal(t, "alice", identity.Username)
	assert.Empty(t, identity.PasswordHash)
	assert.Nil(t, identity.RefreshToken)
	assert.Equal(t, f.clock.Now(), identity.CreatedAt)

	stored, err := f.store.CredentialStore.FindByID(context.Background(), identity.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PasswordAlgoBcrypt, stored.PasswordAlgo)
	assert.True(t, strings.HasPrefix(stored.PasswordHash, "$2a$"))
	assert.True(t, f.hasher.Verify("secret123", stored.PasswordHash))
	assert.Nil(t, stored.RefreshToken)
}

func TestRegisterValidatesInput(t *testing.T) {
	cases := map[string]func(*RegisterInput){
		"missing username": func(in *RegisterInput) { in.Username = " " },
		"missing email":    func(in *RegisterInput) { in.Email = "" },
		"invalid email":    func(in *RegisterInput) { in.Email = "alice.example.com" },
		"missing fullname": func(in *RegisterInput) { in.FullName = "" },
		"missing password": func(in *RegisterInput) { in.Password = "" },
		"missing avatar":   func(in *RegisterInput) { in.Avatar = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, nil)
			in := validRegistration()
			mutate(&in)
			_, err := f.registration.Register(context.Background(), in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestRegisterEnforcesPasswordPolicy(t *testing.T) {
	f := newFixture(t, nil)

	in := validRegistration()
	in.Password = "short"
	_, err := f.registration.Register(context.Background(), in)
	assert.ErrorIs(t, err, ErrPasswordPolicyViolation)

	in.Password = "alice@example.com"
	_, err = f.registration.Register(context.Background(), in)
	assert.ErrorIs(t, err, ErrPasswordPolicyViolation)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	f := newFixture(t, nil)
	f.registerAlice(t)

	in := validRegistration()
	in.Email = "other@example.com"
	_, err := f.registration.Register(context.Background(), in)
	assert.ErrorIs(t, err, ErrIdentityExists)

	in = validRegistration()
	in.Username = "bob"
	in.Email = "ALICE@example.com"
	_, err = f.registration.Register(context.Background(), in)
	assert.ErrorIs(t, err, ErrIdentityExists)
}

type failingCreateStore struct {
	*flakyStore
	err error
}

func (s failingCreateStore) Create(context.Context, domain.Identity) error { return s.err }

func TestRegisterStoreFailureIsTransient(t *testing.T) {
	f := newFixture(t, nil)
	store := failingCreateStore{flakyStore: f.store, err: fmt.Errorf("%w: timeout", repository.ErrUnavailable)}
	svc := NewRegistrationService(store, f.hasher, nil, nil, nil, nil)

	_, err := svc.Register(context.Background(), validRegistration())
	assert.ErrorIs(t, err, ErrTransientStoreFailure)
}
