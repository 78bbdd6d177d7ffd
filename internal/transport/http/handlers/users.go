package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ndk123-web/backend-structure/internal/infra/config"
	"github.com/ndk123-web/backend-structure/internal/infra/logger"
	"github.com/ndk123-web/backend-structure/internal/transport/http/middleware"
	"github.com/ndk123-web/backend-structure/internal/usecase"
)

const tokenTypeBearer = "Bearer"

// UserHandler exposes registration and session endpoints under /users.
type UserHandler struct {
	registration *usecase.RegistrationService
	sessions     *usecase.SessionService
	cookies      config.CookieSettings
	logger       *zap.Logger
}

// NewUserHandler constructs UserHandler.
func NewUserHandler(registration *usecase.RegistrationService, sessions *usecase.SessionService, cookies config.CookieSettings, log *zap.Logger) *UserHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserHandler{
		registration: registration,
		sessions:     sessions,
		cookies:      cookies,
		logger:       log.Named("users"),
	}
}

// UserRouteMiddlewares lets callers attach rate limiters and authentication
// to specific endpoints.
type UserRouteMiddlewares struct {
	Register []gin.HandlerFunc
	Login    []gin.HandlerFunc
	Refresh  []gin.HandlerFunc
	Auth     []gin.HandlerFunc
}

// RegisterRoutes binds the user endpoints, applying middleware ahead of handlers.
func (h *UserHandler) RegisterRoutes(r *gin.RouterGroup, mw UserRouteMiddlewares) {
	r.POST("/register", chain(mw.Register, h.Register)...)
	r.POST("/login", chain(mw.Login, h.Login)...)
	r.POST("/refresh-token", chain(mw.Refresh, h.RefreshToken)...)
	r.POST("/logout", chain(mw.Auth, h.Logout)...)
	r.POST("/change-password", chain(mw.Auth, h.ChangePassword)...)
	r.GET("/current", chain(mw.Auth, h.Current)...)
}

func chain(middlewares []gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	out := append([]gin.HandlerFunc{}, middlewares...)
	return append(out, handler)
}

// Register godoc
// @Summary Register a new user account
// @Description Creates a new user and returns the sanitized profile.
// @Tags Users
// @Accept json
// @Produce json
// @Param request body RegistrationRequest true "Registration request payload"
// @Success 201 {object} UserSummary
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/users/register [post]
func (h *UserHandler) Register(c *gin.Context) {
	if h.registration == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "registration service unavailable"))
		return
	}

	var req RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "all required fields must be provided"))
		return
	}

	identity, err := h.registration.Register(c.Request.Context(), usecase.RegisterInput{
		Username:   req.Username,
		Email:      req.Email,
		FullName:   req.FullName,
		Password:   req.Password,
		Avatar:     req.Avatar,
		CoverImage: req.CoverImage,
		Client:     middleware.ClientMeta(c),
	})
	if err != nil {
		RespondWithMappedError(c, err, registerErrorCases, http.StatusInternalServerError, "failed to register user")
		return
	}

	c.JSON(http.StatusCreated, newUserSummary(identity))
}

// Login godoc
// @Summary Log in
// @Description Verifies credentials, sets the session cookies and returns the token pair.
// @Tags Users
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request payload"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 429 {object} middleware.ProblemDetails
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/users/login [post]
func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "username or email and password are required"))
		return
	}

	result, err := h.sessions.Login(c.Request.Context(), usecase.LoginInput{
		Identifier: req.identifier(),
		Password:   req.Password,
		Client:     middleware.ClientMeta(c),
	})
	if err != nil {
		RespondWithMappedError(c, err, loginErrorCases, http.StatusInternalServerError, "failed to log in")
		return
	}

	middleware.SetSessionCookies(c, h.cookies, result.Tokens)
	c.JSON(http.StatusOK, LoginResponse{
		User:         newUserSummary(result.Identity),
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    expiresIn(result.Tokens.AccessExpiresAt),
	})
}

// RefreshToken godoc
// @Summary Rotate the session tokens
// @Description Exchanges a refresh token (cookie, X-Refresh-Token header or body) for a new pair. A replayed token ends the session.
// @Tags Users
// @Accept json
// @Produce json
// @Param request body TokenRefreshRequest false "Refresh token for non-cookie clients"
// @Success 200 {object} TokenRefreshResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 429 {object} middleware.ProblemDetails
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/users/refresh-token [post]
func (h *UserHandler) RefreshToken(c *gin.Context) {
	token, _ := middleware.RefreshToken(c)
	if token == "" {
		var req TokenRefreshRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid refresh payload"))
				return
			}
		}
		token = req.token()
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "unauthorized request"))
		return
	}

	result, err := h.sessions.Refresh(c.Request.Context(), usecase.RefreshInput{
		RefreshToken: token,
		Client:       middleware.ClientMeta(c),
	})
	if err != nil {
		if errors.Is(err, usecase.ErrReuseDetected) && !errors.Is(err, usecase.ErrTransientStoreFailure) {
			middleware.ClearSessionCookies(c, h.cookies)
		}
		RespondWithMappedError(c, err, refreshErrorCases, http.StatusInternalServerError, "failed to refresh token")
		return
	}

	middleware.SetSessionCookies(c, h.cookies, result.Tokens)
	c.JSON(http.StatusOK, TokenRefreshResponse{
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    expiresIn(result.Tokens.AccessExpiresAt),
	})
}

// Logout godoc
// @Summary Log out
// @Description Clears the stored refresh token and the session cookies.
// @Tags Users
// @Produce json
// @Success 200 {object} MessageResponse
// @Failure 401 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/users/logout [post]
func (h *UserHandler) Logout(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "unauthorized"))
		return
	}

	if err := h.sessions.Logout(c.Request.Context(), identity.ID, middleware.ClientMeta(c)); err != nil {
		RespondWithMappedError(c, err, logoutErrorCases, http.StatusInternalServerError, "failed to log out")
		return
	}

	middleware.ClearSessionCookies(c, h.cookies)
	c.JSON(http.StatusOK, MessageResponse{Message: "user logged out"})
}

// ChangePassword godoc
// @Summary Change the current password
// @Description Verifies the old password and stores a hash of the new one. Existing sessions stay valid.
// @Tags Users
// @Accept json
// @Produce json
// @Param request body PasswordChangeRequest true "Password change payload"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/users/change-password [post]
func (h *UserHandler) ChangePassword(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "unauthorized"))
		return
	}

	var req PasswordChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "old and new password are required"))
		return
	}

	err := h.sessions.ChangePassword(c.Request.Context(), usecase.ChangePasswordInput{
		IdentityID:  identity.ID,
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
		Client:      middleware.ClientMeta(c),
	})
	if err != nil {
		if errors.Is(err, usecase.ErrTransientStoreFailure) {
			logger.WithContext(c.Request.Context(), h.logger).Warn("Password change deferred: store unavailable",
				zap.String("identity_id", identity.ID))
		}
		RespondWithMappedError(c, err, changePasswordErrorCases, http.StatusInternalServerError, "failed to change password")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password changed successfully"})
}

// Current godoc
// @Summary Current user
// @Description Returns the sanitized profile of the authenticated user.
// @Tags Users
// @Produce json
// @Success 200 {object} UserSummary
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/users/current [get]
func (h *UserHandler) Current(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "unauthorized"))
		return
	}
	c.JSON(http.StatusOK, newUserSummary(identity))
}
