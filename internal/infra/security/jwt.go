package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"

	"github.com/ndk123-web/backend-structure/internal/core/domain"
)

var (
	// ErrTokenMalformed covers undecodable tokens and claims that fail shape checks.
	ErrTokenMalformed = errors.New("jwt: malformed token")
	// ErrTokenSignature indicates the token was not signed with the expected secret.
	ErrTokenSignature = errors.New("jwt: invalid signature")
	// ErrTokenExpired indicates the token's exp is at or before the current instant.
	ErrTokenExpired = errors.New("jwt: token expired")
)

const (
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultRefreshTokenTTL = 10 * 24 * time.Hour
)

// SignerSettings configures JWTSigner.
type SignerSettings struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// AccessTokenClaims carries the identity snapshot embedded in access tokens.
type AccessTokenClaims struct {
	UserID   string `json:"uid"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullname"`
	Type     string `json:"typ"`
	jwt.RegisteredClaims
}

// RefreshTokenClaims carries only the identity id.
type RefreshTokenClaims struct {
	UserID string `json:"uid"`
	Type   string `json:"typ"`
	jwt.RegisteredClaims
}

// JWTSigner issues and verifies HS256 tokens. Access and refresh tokens use
// separate secrets so neither can stand in for the other.
type JWTSigner struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

// SignerOption customises JWTSigner.
type SignerOption func(*JWTSigner)

// WithSignerClock overrides the time source used for iat/exp and validation.
func WithSignerClock(clock func() time.Time) SignerOption {
	return func(s *JWTSigner) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewJWTSigner validates settings and constructs a signer.
func NewJWTSigner(settings SignerSettings, opts ...SignerOption) (*JWTSigner, error) {
	if strings.TrimSpace(settings.AccessSecret) == "" || strings.TrimSpace(settings.RefreshSecret) == "" {
		return nil, fmt.Errorf("jwt: access and refresh secrets are required")
	}
	if settings.AccessSecret == settings.RefreshSecret {
		return nil, fmt.Errorf("jwt: access and refresh secrets must differ")
	}
	if settings.AccessTTL <= 0 {
		settings.AccessTTL = defaultAccessTokenTTL
	}
	if settings.RefreshTTL <= 0 {
		settings.RefreshTTL = defaultRefreshTokenTTL
	}

	signer := &JWTSigner{
		accessSecret:  []byte(settings.AccessSecret),
		refreshSecret: []byte(settings.RefreshSecret),
		accessTTL:     settings.AccessTTL,
		refreshTTL:    settings.RefreshTTL,
		issuer:        strings.TrimSpace(settings.Issuer),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(signer)
	}
	return signer, nil
}

// AccessTTL reports the configured access token lifetime.
func (s *JWTSigner) AccessTTL() time.Duration { return s.accessTTL }

// IssueAccess mints an access token for identity.
func (s *JWTSigner) IssueAccess(identity domain.Identity) (string, time.Time, error) {
	if strings.TrimSpace(identity.ID) == "" {
		return "", time.Time{}, fmt.Errorf("jwt: identity id is required")
	}
	now := s.now().UTC()
	expiresAt := now.Add(s.accessTTL)

	claims := AccessTokenClaims{
		UserID:           identity.ID,
		Username:         identity.Username,
		Email:            identity.Email,
		FullName:         identity.FullName,
		Type:             domain.TokenKindAccess,
		RegisteredClaims: s.registered(identity.ID, now, expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.accessSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("jwt: sign access token: %w", err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

// IssueRefresh mints a refresh token for identity.
func (s *JWTSigner) IssueRefresh(identity domain.Identity) (string, time.Time, error) {
	if strings.TrimSpace(identity.ID) == "" {
		return "", time.Time{}, fmt.Errorf("jwt: identity id is required")
	}
	now := s.now().UTC()
	expiresAt := now.Add(s.refreshTTL)

	claims := RefreshTokenClaims{
		UserID:           identity.ID,
		Type:             domain.TokenKindRefresh,
		RegisteredClaims: s.registered(identity.ID, now, expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.refreshSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("jwt: sign refresh token: %w", err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

// registered fills the standard claims. jti keeps two tokens minted within
// the same second distinct.
func (s *JWTSigner) registered(subject string, now, expiresAt time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		ID:        uuid.NewString(),
	}
}

// VerifyAccess validates signature, expiry and token kind.
func (s *JWTSigner) VerifyAccess(token string) (*domain.AccessClaims, error) {
	var claims AccessTokenClaims
	if err := s.parse(token, &claims, s.accessSecret); err != nil {
		return nil, err
	}
	if claims.Type != domain.TokenKindAccess || claims.UserID == "" {
		return nil, ErrTokenMalformed
	}
	return &domain.AccessClaims{
		TokenID:    claims.ID,
		IdentityID: claims.UserID,
		Username:   claims.Username,
		Email:      claims.Email,
		FullName:   claims.FullName,
		IssuedAt:   numericTime(claims.IssuedAt),
		ExpiresAt:  numericTime(claims.ExpiresAt),
	}, nil
}

// VerifyRefresh validates signature, expiry and token kind.
func (s *JWTSigner) VerifyRefresh(token string) (*domain.RefreshClaims, error) {
	var claims RefreshTokenClaims
	if err := s.parse(token, &claims, s.refreshSecret); err != nil {
		return nil, err
	}
	if claims.Type != domain.TokenKindRefresh || claims.UserID == "" {
		return nil, ErrTokenMalformed
	}
	return &domain.RefreshClaims{
		TokenID:    claims.ID,
		IdentityID: claims.UserID,
		IssuedAt:   numericTime(claims.IssuedAt),
		ExpiresAt:  numericTime(claims.ExpiresAt),
	}, nil
}

func (s *JWTSigner) parse(token string, claims jwt.Claims, secret []byte) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrTokenMalformed
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(s.issuer))
	}

	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, parserOpts...)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrTokenSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
}

func numericTime(date *jwt.NumericDate) time.Time {
	if date == nil {
		return time.Time{}
	}
	return date.Time.UTC()
}
