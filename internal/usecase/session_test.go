package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ndk123-web/backend-structure/internal/core/domain"
	"github.com/ndk123-web/backend-structure/internal/core/port/mocks"
	"github.com/ndk123-web/backend-structure/internal/infra/security"
	"github.com/ndk123-web/backend-structure/internal/repository"
)

func TestLoginReturnsTokensForIdentity(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.registerAlice(t)

	for _, identifier := range []string{"alice", "ALICE", "alice@example.com"} {
		t.Run(identifier, func(t *testing.T) {
			result := f.login(t, identifier, "secret123")

			claims, err := f.signer.VerifyAccess(result.Tokens.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, alice.ID, claims.IdentityID)
			assert.Equal(t, "alice", claims.Username)
			assert.Equal(t, "Alice Liddell", claims.FullName)

			assert.Equal(t, alice.ID, result.Identity.ID)
			assert.Empty(t, result.Identity.PasswordHash)
			assert.Nil(t, result.Identity.RefreshToken)

			stored := f.storedToken(t, alice.ID)
			require.NotNil(t, stored)
			assert.Equal(t, result.Tokens.RefreshToken, *stored)
		})
	}
}

func TestLoginRejectsBadCredentialsUniformly(t *testing.T) {
	f := newFixture(t, nil)
	f.registerAlice(t)
	ctx := context.Background()

	_, wrongPassword := f.sessions.Login(ctx, LoginInput{Identifier: "alice", Password: "wrongpass"})
	_, unknownUser := f.sessions.Login(ctx, LoginInput{Identifier: "mallory", Password: "secret123"})

	require.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	require.ErrorIs(t, unknownUser, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
}

func TestLoginRequiresIdentifierAndPassword(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.sessions.Login(ctx, LoginInput{Identifier: "  ", Password: "secret123"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.sessions.Login(ctx, LoginInput{Identifier: "alice"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLoginStoreFailureIsTransient(t *testing.T) {
	f := newFixture(t, nil)
	f.registerAlice(t)
	f.store.set(func(s *flakyStore) {
		s.findByIdentifierErr = fmt.Errorf("%w: context deadline exceeded", repository.ErrUnavailable)
	})

	_, err := f.sessions.Login(context.Background(), LoginInput{Identifier: "alice", Password: "secret123"})
	require.ErrorIs(t, err, ErrTransientStoreFailure)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginReplacesPreviousSession(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.registerAlice(t)
	ctx := context.Background()

	first := f.login(t, "alice", "secret123")
	second := f.login(t, "alice@example.com", "secret123")
	require.NotEqual(t, first.Tokens.RefreshToken, second.Tokens.RefreshToken)

	_, err := f.sessions.Refresh(ctx, RefreshInput{RefreshToken: first.Tokens.RefreshToken})
	require.ErrorIs(t, err, ErrReuseDetected)
	assert.Nil(t, f.storedToken(t, alice.ID))
}

func TestRefreshRotatesAndDetectsReplay(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.registerAlice(t)
	ctx := context.Background()

	login := f.login(t, "alice", "secret123")

	rotated, err := f.sessions.Refresh(ctx, RefreshInput{RefreshToken: login.Tokens.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.Tokens.RefreshToken, rotated.Tokens.RefreshToken)
	assert.NotEqual(t, login.Tokens.AccessToken, rotated.Tokens.AccessToken)
	assert.Equal(t, alice.ID, rotated.Identity.ID)

	stored := f.storedToken(t, alice.ID)
	require.NotNil(t, stored)
	assert.Equal(t, rotated.Tokens.RefreshToken, *stored)

	_, err = f.sessions.Refresh(ctx, RefreshInput{RefreshToken: login.Tokens.RefreshToken})
	require.ErrorIs(t, err, ErrReuseDetected)
	assert.Nil(t, f.storedToken(t, alice.ID))

	_, err = f.sessions.Refresh(ctx, RefreshInput{RefreshToken: rotated.Tokens.RefreshToken})
	assert.ErrorIs(t, err, ErrReuseDetected)
}

func TestRefreshRejectsUnverifiableTokens(t *testing.T) {
	f := newFixture(t, nil)
	f.registerAlice(t)
	login := f.login(t, "alice", "secret123")
	ctx := context.Background()

	cases := map[string]string{
		"blank":        "   ",
		"garbage":      "not-a-jwt",
		"access token": login.Tokens.AccessToken,
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.sessions.Refresh(ctx, RefreshInput{RefreshToken: token})
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.NotErrorIs(t, err, ErrReuseDetected)
		})
	}

	// Rejected tokens never touch the stored session.
	stored := f.storedToken(t, login.Identity.ID)
	require.NotNil(t, stored)
	assert.Equal(t, login.Tokens.RefreshToken, *stored)
}

func TestRefreshExpiredTokenIsInvalid(t *testing.T) {
	f := newFixture(t, nil)
	f.registerAlice(t)
	login := f.login(t, "alice", "secret123")

	f.clock.Advance(240 * time.Hour)

	_, err := f.sessions.Refresh(context.Background(), RefreshInput{RefreshToken: login.Tokens.RefreshToken})
	require.ErrorIs(t, err, ErrInvalidToken)
	assert.ErrorIs(t, err, security.ErrTokenExpired)
}

func TestRefreshUnknownIdentity(t *testing.T) {
	f := newFixture(t, nil)
	token, _, err := f.signer.IssueRefresh(domain.Identity{ID: "ghost"})
	require.NoError(t, err)

	_, err = f.sessions.Refresh(context.Background(), RefreshInput{RefreshToken: token})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRefreshRejectsTokenOfAnotherIdentity(t *testing.T) {
	f := newFixture(t, nil)
	f.registerAlice(t)
	login := f.login(t, "alice", "secret123")

	_, err := f.sessions.Refresh(context.Background(), RefreshInput{
		RefreshToken: login.Tokens.RefreshToken,
		IdentityID:   "someone-else",
	})
	require.ErrorIs(t, err, ErrInvalidToken)

	stored := f.storedToken(t, login.Identity.ID)
	require.NotNil(t, stored)
	assert.Equal(t, login.Tokens.RefreshToken, *stored)
}

func TestConcurrentRefreshHasSingleWinner(t *testing.T) {
	f := newFixture(t, nil)
	f.registerAlice(t)
	ctx := context.Background()

	for round := 0; round < 10; round++ {
		login := f.login(t, "alice", "secret123")

		var (
			wg      sync.WaitGroup
			start   = make(chan struct{})
			results = make([]error, 2)
		)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				_, results[i] = f.sessions.Refresh(ctx, RefreshInput{RefreshToken: login.Tokens.RefreshToken})
			}(i)
		}
		close(start)
		wg.Wait()

		successes := 0
		for _, err := range results {
			if err == nil {
				successes++
				continue
			}
			assert.True(t, errors.Is(err, ErrReuseDetected) || errors.Is(err, ErrRotationConflict),
				"round %d: unexpected error %v", round, err)
		}
		assert.Equal(t, 1, successes, "round %d", round)
	}
}

func TestRefreshLosingCompareAndSetIsConflict(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.registerAlice(t)
	login := f.login(t, "alice", "secret123")
	ctx := context.Background()

	winner := "rotated-by-concurrent-request"
	var once sync.Once
	f.store.set(func(s *flakyStore) {
		s.beforeCAS = func() {
			once.Do(func() {
				require.NoError(t, s.CredentialStore.SetRefreshToken(ctx, alice.ID, &winner))
			})
		}
	})

	_, err := f.sessions.Refresh(ctx, RefreshInput{RefreshToken: login.Tokens.RefreshToken})
	require.ErrorIs(t, err, ErrRotationConflict)

	stored := f.storedToken(t, alice.ID)
	require.NotNil(t, stored)
	assert.Equal(t, winner, *stored)
}

func TestRefreshStoreFailuresAreTransient(t *testing.T) {
	unavailable := fmt.Errorf("%w: i/o timeout", repository.ErrUnavailable)

	cases := map[string]func(*flakyStore){
		"lookup": func(s *flakyStore) { s.findByIDErr = unavailable },
		"rotate": func(s *flakyStore) { s.casErr = unavailable },
	}
	for name, inject := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, nil)
			alice := f.registerAlice(t)
			login := f.login(t, "alice", "secret123")

			f.store.set(inject)
			_, err := f.sessions.Refresh(context.Background(), RefreshInput{RefreshToken: login.Tokens.RefreshToken})
			require.ErrorIs(t, err, ErrTransientStoreFailure)
			assert.NotErrorIs(t, err, ErrReuseDetected)

			stored := f.storedToken(t, alice.ID)
			require.NotNil(t, stored)
			assert.Equal(t, login.Tokens.RefreshToken, *stored)
		})
	}
}

func TestReuseWithFailedClearReportsBoth(t *testing.T) {
	f := newFixture(t, nil)
	f.registerAlice(t)
	login := f.login(t, "alice", "secret123")
	ctx := context.Background()

	_, err := f.sessions.Refresh(ctx, RefreshInput{RefreshToken: login.Tokens.RefreshToken})
	require.NoError(t, err)

	f.store.set(func(s *flakyStore) {
		s.setRefreshErr = fmt.Errorf("%w: connection refused", repository.ErrUnavailable)
	})
	_, err = f.sessions.Refresh(ctx, RefreshInput{RefreshToken: login.Tokens.RefreshToken})
	assert.ErrorIs(t, err, ErrReuseDetected)
	assert.ErrorIs(t, err, ErrTransientStoreFailure)
}

func TestLogoutIsIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.registerAlice(t)
	login := f.login(t, "alice", "secret123")
	ctx := context.Background()

	require.NoError(t, f.sessions.Logout(ctx, alice.ID, domain.ClientMeta{}))
	require.NoError(t, f.sessions.Logout(ctx, alice.ID, domain.ClientMeta{}))
	assert.Nil(t, f.storedToken(t, alice.ID))

	_, err := f.sessions.Refresh(ctx, RefreshInput{RefreshToken: login.Tokens.RefreshToken})
	assert.ErrorIs(t, err, ErrReuseDetected)

	assert.NoError(t, f.sessions.Logout(ctx, "unknown-identity", domain.ClientMeta{}))
	assert.ErrorIs(t, f.sessions.Logout(ctx, "", domain.ClientMeta{}), ErrInvalidInput)
}

func TestChangePasswordKeepsRefreshTokenValid(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.registerAlice(t)
	login := f.login(t, "alice", "secret123")
	ctx := context.Background()

	err := f.sessions.ChangePassword(ctx, ChangePasswordInput{
		IdentityID:  alice.ID,
		OldPassword: "secret123",
		NewPassword: "correct-horse-battery",
	})
	require.NoError(t, err)

	rotated, err := f.sessions.Refresh(ctx, RefreshInput{RefreshToken: login.Tokens.RefreshToken})
	require.NoError(t, err)
	assert.NotEmpty(t, rotated.Tokens.RefreshToken)

	_, err = f.sessions.Login(ctx, LoginInput{Identifier: "alice", Password: "secret123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	f.login(t, "alice", "correct-horse-battery")
}

func TestChangePasswordFailures(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.registerAlice(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   ChangePasswordInput
		want error
	}{
		{"blank new password", ChangePasswordInput{IdentityID: alice.ID, OldPassword: "secret123"}, ErrInvalidInput},
		{"wrong old password", ChangePasswordInput{IdentityID: alice.ID, OldPassword: "nope-nope", NewPassword: "correct-horse-battery"}, ErrInvalidCredentials},
		{"same password", ChangePasswordInput{IdentityID: alice.ID, OldPassword: "secret123", NewPassword: "secret123"}, ErrPasswordPolicyViolation},
		{"too short", ChangePasswordInput{IdentityID: alice.ID, OldPassword: "secret123", NewPassword: "short"}, ErrPasswordPolicyViolation},
		{"unknown identity", ChangePasswordInput{IdentityID: "ghost", OldPassword: "secret123", NewPassword: "correct-horse-battery"}, ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := f.sessions.ChangePassword(ctx, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	f.store.set(func(s *flakyStore) {
		s.setPasswordErr = fmt.Errorf("%w: timeout", repository.ErrUnavailable)
	})
	err := f.sessions.ChangePassword(ctx, ChangePasswordInput{
		IdentityID:  alice.ID,
		OldPassword: "secret123",
		NewPassword: "correct-horse-battery",
	})
	assert.ErrorIs(t, err, ErrTransientStoreFailure)
}

func TestCurrentIdentityIsSanitized(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.registerAlice(t)
	f.login(t, "alice", "secret123")

	identity, err := f.sessions.CurrentIdentity(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", identity.Email)
	assert.Empty(t, identity.PasswordHash)
	assert.Nil(t, identity.RefreshToken)

	_, err = f.sessions.CurrentIdentity(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionLifecycleScenario(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	alice := f.registerAlice(t)
	t1 := f.login(t, "alice", "secret123")

	t2, err := f.sessions.Refresh(ctx, RefreshInput{RefreshToken: t1.Tokens.RefreshToken})
	require.NoError(t, err)
	claims, err := f.signer.VerifyAccess(t2.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, claims.IdentityID)

	_, err = f.sessions.Refresh(ctx, RefreshInput{RefreshToken: t1.Tokens.RefreshToken})
	require.ErrorIs(t, err, ErrReuseDetected)

	_, err = f.sessions.Login(ctx, LoginInput{Identifier: "alice", Password: "wrongpass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSessionEventsArePublished(t *testing.T) {
	ctrl := gomock.NewController(t)
	events := mocks.NewMockEventPublisher(ctrl)
	f := newFixture(t, events)
	ctx := context.Background()

	var (
		registered domain.IdentityRegisteredEvent
		rotated    domain.SessionRotatedEvent
		reuse      domain.RefreshReuseDetectedEvent
		ended      domain.SessionEndedEvent
	)
	gomock.InOrder(
		events.EXPECT().PublishIdentityRegistered(gomock.Any(), gomock.Any()).
			Do(func(_ context.Context, e domain.IdentityRegisteredEvent) { registered = e }).Return(nil),
		events.EXPECT().PublishSessionStarted(gomock.Any(), gomock.Any()).Return(nil),
		events.EXPECT().PublishSessionRotated(gomock.Any(), gomock.Any()).
			Do(func(_ context.Context, e domain.SessionRotatedEvent) { rotated = e }).Return(nil),
		events.EXPECT().PublishRefreshReuseDetected(gomock.Any(), gomock.Any()).
			Do(func(_ context.Context, e domain.RefreshReuseDetectedEvent) { reuse = e }).Return(nil),
		events.EXPECT().PublishSessionEnded(gomock.Any(), gomock.Any()).
			Do(func(_ context.Context, e domain.SessionEndedEvent) { ended = e }).Return(nil),
	)

	alice := f.registerAlice(t)
	login := f.login(t, "alice", "secret123")
	_, err := f.sessions.Refresh(ctx, RefreshInput{RefreshToken: login.Tokens.RefreshToken})
	require.NoError(t, err)
	_, err = f.sessions.Refresh(ctx, RefreshInput{RefreshToken: login.Tokens.RefreshToken, Client: domain.ClientMeta{IP: "203.0.113.9"}})
	require.ErrorIs(t, err, ErrReuseDetected)

	assert.Equal(t, alice.ID, registered.IdentityID)
	assert.Equal(t, alice.ID, rotated.IdentityID)
	assert.Equal(t, domain.SessionSourceRefresh, rotated.Source)
	assert.Equal(t, f.clock.Now(), rotated.RotatedAt)
	assert.True(t, reuse.HadActiveSession)
	assert.Equal(t, "203.0.113.9", reuse.Client.IP)
	assert.Equal(t, domain.SessionEndReuseDetected, ended.Reason)
}

func TestPublishFailureDoesNotFailLogin(t *testing.T) {
	ctrl := gomock.NewController(t)
	events := mocks.NewMockEventPublisher(ctrl)
	events.EXPECT().PublishIdentityRegistered(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))
	events.EXPECT().PublishSessionStarted(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

	f := newFixture(t, events)
	f.registerAlice(t)
	result := f.login(t, "alice", "secret123")
	assert.NotEmpty(t, result.Tokens.AccessToken)
}
