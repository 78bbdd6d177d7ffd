package usecase

import (
	"errors"
	"fmt"

	"github.com/ndk123-web/backend-structure/internal/repository"
)

var (
	// ErrInvalidInput indicates a required field was blank.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCredentials indicates the provided identifier or password are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken indicates a token is malformed, forged or expired beyond refresh.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired indicates the access token expired and can be renewed via refresh.
	ErrTokenExpired = errors.New("access token expired")
	// ErrReuseDetected indicates a rotated-out refresh token was presented. The
	// session is cleared before this error is returned.
	ErrReuseDetected = errors.New("refresh token reuse detected")
	// ErrRotationConflict indicates a concurrent refresh rotated the token first.
	ErrRotationConflict = errors.New("refresh token rotated concurrently")
	// ErrNotFound indicates the identity referenced by a token no longer exists.
	ErrNotFound = errors.New("identity not found")
	// ErrTransientStoreFailure indicates the credential store timed out or was unreachable.
	ErrTransientStoreFailure = errors.New("credential store unavailable")
	// ErrInternalFailure indicates hashing or signing infrastructure failed.
	ErrInternalFailure = errors.New("internal failure")
	// ErrIdentityExists indicates the username or email is already registered.
	ErrIdentityExists = errors.New("username or email already registered")
	// ErrPasswordPolicyViolation indicates the password does not satisfy complexity requirements.
	ErrPasswordPolicyViolation = errors.New("password does not meet complexity requirements")
	// ErrUnauthorized indicates the request carries no usable credentials.
	ErrUnauthorized = errors.New("unauthorized")
)

// Metric outcomes.
const (
	outcomeSuccess            = "success"
	outcomeInvalidInput       = "invalid_input"
	outcomeInvalidCredentials = "invalid_credentials"
	outcomeInvalidToken       = "invalid_token"
	outcomeExpired            = "expired"
	outcomeReuseDetected      = "reuse_detected"
	outcomeConflict           = "conflict"
	outcomeNotFound           = "not_found"
	outcomeStoreFailure       = "store_failure"
	outcomeInternal           = "internal"
	outcomeRotated            = "rotated"
	outcomeUnauthorized       = "unauthorized"
)

// storeError maps repository failures onto the usecase taxonomy.
func storeError(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w: %w", op, ErrTransientStoreFailure, err)
}

func storeOutcome(err error) string {
	if errors.Is(err, ErrNotFound) {
		return outcomeNotFound
	}
	return outcomeStoreFailure
}
