package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ndk123-web/backend-structure/internal/infra/security"
	"github.com/ndk123-web/backend-structure/internal/usecase"
)

// ErrorCase maps a sentinel error to an HTTP status code and response message.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// storeCases are appended to every table: store trouble is retryable and
// never reported as an authentication failure.
var storeCases = []ErrorCase{
	{Err: usecase.ErrTransientStoreFailure, Status: http.StatusServiceUnavailable, Message: "service temporarily unavailable"},
	{Err: usecase.ErrInternalFailure, Status: http.StatusInternalServerError, Message: "internal error"},
}

var (
	registerErrorCases = append([]ErrorCase{
		{Err: usecase.ErrInvalidInput, Status: http.StatusBadRequest, Message: "all required fields must be provided"},
		{Err: usecase.ErrPasswordPolicyViolation, Status: http.StatusBadRequest, Message: "password does not meet complexity requirements"},
		{Err: usecase.ErrIdentityExists, Status: http.StatusConflict, Message: "user with email or username already exists"},
	}, storeCases...)

	loginErrorCases = append([]ErrorCase{
		{Err: usecase.ErrInvalidInput, Status: http.StatusBadRequest, Message: "username or email and password are required"},
		{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid credentials"},
	}, storeCases...)

	// Transient comes first: a reuse whose session clear failed is retryable.
	refreshErrorCases = append([]ErrorCase{
		storeCases[0],
		{Err: usecase.ErrReuseDetected, Status: http.StatusUnauthorized, Message: "refresh token reuse detected"},
		{Err: usecase.ErrInvalidToken, Status: http.StatusUnauthorized, Message: "invalid refresh token"},
		{Err: usecase.ErrRotationConflict, Status: http.StatusConflict, Message: "refresh token already rotated"},
		{Err: usecase.ErrNotFound, Status: http.StatusNotFound, Message: "identity not found"},
	}, storeCases[1:]...)

	changePasswordErrorCases = append([]ErrorCase{
		{Err: usecase.ErrInvalidInput, Status: http.StatusBadRequest, Message: "old and new password are required"},
		{Err: usecase.ErrPasswordPolicyViolation, Status: http.StatusBadRequest, Message: "password does not meet complexity requirements"},
		{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid old password"},
		{Err: usecase.ErrNotFound, Status: http.StatusNotFound, Message: "identity not found"},
	}, storeCases...)

	logoutErrorCases = storeCases
)

// RespondWithMappedError resolves the provided error against known cases or falls back to a generic response.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	for _, cs := range cases {
		if cs.Err == nil {
			continue
		}
		if errors.Is(err, cs.Err) {
			message := cs.Message
			// Policy violations carry a user-facing reason.
			var policyErr *security.PasswordValidationError
			if errors.Is(cs.Err, usecase.ErrPasswordPolicyViolation) && errors.As(err, &policyErr) {
				message = policyErr.Message
			}
			c.JSON(cs.Status, NewErrorResponse(c, message))
			return
		}
	}

	_ = c.Error(err)
	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}
