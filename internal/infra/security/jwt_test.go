package security

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ndk123-web/backend-structure/internal/core/domain"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func newTestSigner(t *testing.T, clock *testClock) *JWTSigner {
	t.Helper()
	signer, err := NewJWTSigner(SignerSettings{
		AccessSecret:  "access-secret-access-secret-0001",
		RefreshSecret: "refresh-secret-refresh-secret-01",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    10 * 24 * time.Hour,
		Issuer:        "videotube",
	}, WithSignerClock(clock.Now))
	if err != nil {
		t.Fatalf("NewJWTSigner returned error: %v", err)
	}
	return signer
}

var testIdentity = domain.Identity{ID: "u1", Username: "alice", Email: "alice@example.com", FullName: "Alice A"}

func TestIssueAndVerifyAccess(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	signer := newTestSigner(t, clock)

	token, expiresAt, err := signer.IssueAccess(testIdentity)
	if err != nil {
		t.Fatalf("IssueAccess returned error: %v", err)
	}
	if !expiresAt.Equal(clock.now.Add(15 * time.Minute)) {
		t.Fatalf("unexpected expiry: %s", expiresAt)
	}

	claims, err := signer.VerifyAccess(token)
	if err != nil {
		t.Fatalf("VerifyAccess returned error: %v", err)
	}
	if claims.IdentityID != "u1" || claims.Username != "alice" || claims.Email != "alice@example.com" || claims.FullName != "Alice A" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.TokenID == "" {
		t.Fatal("expected jti to be populated")
	}
	if got := claims.Remaining(clock.now); got != 15*time.Minute {
		t.Fatalf("unexpected remaining lifetime: %s", got)
	}
}

func TestVerifyExpiryBoundaryIsInclusive(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := &testClock{now: start}
	signer := newTestSigner(t, clock)

	token, _, err := signer.IssueAccess(testIdentity)
	if err != nil {
		t.Fatalf("IssueAccess returned error: %v", err)
	}

	clock.now = start.Add(15*time.Minute - time.Second)
	if _, err := signer.VerifyAccess(token); err != nil {
		t.Fatalf("expected token to be valid one second before expiry, got %v", err)
	}

	clock.now = start.Add(15 * time.Minute)
	if _, err := signer.VerifyAccess(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired at exp, got %v", err)
	}
}

func TestRefreshTokensAreUniqueWithinOneSecond(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	signer := newTestSigner(t, clock)

	first, _, err := signer.IssueRefresh(testIdentity)
	if err != nil {
		t.Fatalf("IssueRefresh returned error: %v", err)
	}
	second, _, err := signer.IssueRefresh(testIdentity)
	if err != nil {
		t.Fatalf("IssueRefresh returned error: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct refresh tokens")
	}

	claims, err := signer.VerifyRefresh(second)
	if err != nil {
		t.Fatalf("VerifyRefresh returned error: %v", err)
	}
	if claims.IdentityID != "u1" {
		t.Fatalf("unexpected identity id %q", claims.IdentityID)
	}
}

func TestTokensAreNotInterchangeable(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	signer := newTestSigner(t, clock)

	access, _, _ := signer.IssueAccess(testIdentity)
	refresh, _, _ := signer.IssueRefresh(testIdentity)

	if _, err := signer.VerifyAccess(refresh); !errors.Is(err, ErrTokenSignature) {
		t.Fatalf("expected signature error verifying refresh as access, got %v", err)
	}
	if _, err := signer.VerifyRefresh(access); !errors.Is(err, ErrTokenSignature) {
		t.Fatalf("expected signature error verifying access as refresh, got %v", err)
	}
}

func TestVerifyRejectsTamperedAndMalformedTokens(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	signer := newTestSigner(t, clock)

	token, _, _ := signer.IssueAccess(testIdentity)
	parts := strings.Split(token, ".")
	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessTokenClaims{
		UserID: "u2",
		Type:   domain.TokenKindAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "videotube",
			ExpiresAt: jwt.NewNumericDate(clock.now.Add(time.Hour)),
		},
	})
	forgedSigned, err := forged.SignedString([]byte("attacker-secret"))
	if err != nil {
		t.Fatalf("sign forged token: %v", err)
	}
	forgedParts := strings.Split(forgedSigned, ".")
	spliced := parts[0] + "." + forgedParts[1] + "." + parts[2]

	if _, err := signer.VerifyAccess(forgedSigned); !errors.Is(err, ErrTokenSignature) {
		t.Fatalf("expected signature error for foreign secret, got %v", err)
	}
	if _, err := signer.VerifyAccess(spliced); !errors.Is(err, ErrTokenSignature) {
		t.Fatalf("expected signature error for tampered payload, got %v", err)
	}
	for _, input := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := signer.VerifyAccess(input); !errors.Is(err, ErrTokenMalformed) {
			t.Fatalf("expected ErrTokenMalformed for %q, got %v", input, err)
		}
	}
}

func TestVerifyRejectsWrongTokenKind(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	signer := newTestSigner(t, clock)

	claims := AccessTokenClaims{
		UserID: "u1",
		Type:   domain.TokenKindRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "videotube",
			ExpiresAt: jwt.NewNumericDate(clock.now.Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("access-secret-access-secret-0001"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := signer.VerifyAccess(token); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed for wrong typ, got %v", err)
	}
}

func TestNewJWTSignerRequiresDistinctSecrets(t *testing.T) {
	if _, err := NewJWTSigner(SignerSettings{AccessSecret: "same", RefreshSecret: "same"}); err == nil {
		t.Fatal("expected error for equal secrets")
	}
	if _, err := NewJWTSigner(SignerSettings{AccessSecret: "only-access"}); err == nil {
		t.Fatal("expected error for missing refresh secret")
	}
}
