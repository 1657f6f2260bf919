package handlers

import (
	"errors"
	"net/http"
	"time"

	"gameboxr/internal/auth"
	"gameboxr/internal/database"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	authCookie      = "auth_token"
	verificationKey = "verification"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	login     *auth.LoginService
	tokens    *auth.TokenIssuer
	db        database.Database
	cookieTTL time.Duration
	logger    *zap.Logger
}

// NewAuthHandler creates a new authentication handler. login may be nil
// when no OAuth2 provider is configured.
func NewAuthHandler(login *auth.LoginService, tokens *auth.TokenIssuer, db database.Database, cookieTTL time.Duration, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		login:     login,
		tokens:    tokens,
		db:        db,
		cookieTTL: cookieTTL,
		logger:    logger,
	}
}

// LoginEnabled reports whether the OAuth2 login routes can be served
func (h *AuthHandler) LoginEnabled() bool {
	return h.login != nil
}

// Login initiates the OAuth2 login flow
func (h *AuthHandler) Login(c *gin.Context) {
	authURL, err := h.login.GetAuthURL(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to generate auth URL", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to generate auth URL",
		})
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, authURL)
}

// Callback handles the OAuth2 callback and returns the app token
func (h *AuthHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	errorParam := c.Query("error")

	// Check for OAuth2 errors
	if errorParam != "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "OAuth2 authentication failed: " + errorParam,
		})
		return
	}

	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Missing required parameters",
		})
		return
	}

	ctx := c.Request.Context()
	user, err := h.login.HandleCallback(ctx, code, state)
	if err != nil {
		h.logger.Warn("OAuth2 callback failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Authentication failed",
		})
		return
	}

	// Keep the existing ID for a returning user
	existingUser, err := h.db.GetUserByProvider(ctx, user.Provider, user.ProviderID)
	switch {
	case err == nil:
		user.ID = existingUser.ID
		user.CreatedAt = existingUser.CreatedAt
	case !errors.Is(err, database.ErrNotFound):
		h.logger.Error("Failed to look up user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load user account",
		})
		return
	}

	if err := h.db.CreateUser(ctx, user); err != nil {
		h.logger.Error("Failed to save user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to save user account",
		})
		return
	}

	token, err := h.login.IssueToken(user.ID)
	if err != nil {
		h.logger.Error("Failed to issue token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to generate authentication token",
		})
		return
	}

	c.SetCookie(authCookie, token, int(h.cookieTTL.Seconds()), "/", "", h.isHTTPS(c), true)

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}

// Logout handles user logout
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetCookie(authCookie, "", -1, "/", "", h.isHTTPS(c), true)

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}

// Me returns the current user information
func (h *AuthHandler) Me(c *gin.Context) {
	v := VerificationFrom(c)

	user, err := h.db.GetUser(c.Request.Context(), v.UserID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "User not found",
			})
			return
		}
		h.logger.Error("Failed to get user", zap.String("user_id", v.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load user",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": user,
	})
}

// requestToken reads the token from the auth cookie, then the Authorization header
func requestToken(c *gin.Context) (string, bool) {
	if token, err := c.Cookie(authCookie); err == nil && token != "" {
		return token, true
	}
	return auth.BearerToken(c.GetHeader("Authorization"))
}

// AuthMiddleware requires a verified identity
func (h *AuthHandler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := requestToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Missing Authorization header",
			})
			return
		}

		v := h.tokens.Verify(token)
		if !v.Verified {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid token",
			})
			return
		}

		setVerification(c, v)
		c.Next()
	}
}

// OptionalAuthMiddleware records the caller's identity when a valid token is
// present. It never rejects a request.
func (h *AuthHandler) OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		v := auth.Unverified
		if token, ok := requestToken(c); ok {
			v = h.tokens.Verify(token)
		}
		setVerification(c, v)
		c.Next()
	}
}

func setVerification(c *gin.Context, v auth.Verification) {
	c.Set(verificationKey, v)
	if v.Verified {
		c.Set("user_id", v.UserID)
	}
}

// VerificationFrom returns the identity recorded by the auth middlewares
func VerificationFrom(c *gin.Context) auth.Verification {
	if v, ok := c.Get(verificationKey); ok {
		if verification, ok := v.(auth.Verification); ok {
			return verification
		}
	}
	return auth.Unverified
}

// isHTTPS determines if the request is using HTTPS
// Checks TLS connection, X-Forwarded-Proto header, and X-Forwarded-Ssl header
func (h *AuthHandler) isHTTPS(c *gin.Context) bool {
	return c.Request.TLS != nil ||
		c.GetHeader("X-Forwarded-Proto") == "https" ||
		c.GetHeader("X-Forwarded-Ssl") == "on"
}
