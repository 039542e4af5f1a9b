package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/teamprs/prtracker/internal/middleware"
	"github.com/teamprs/prtracker/internal/services"
	"github.com/teamprs/prtracker/pkg/logger"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Logout handles user logout
func (h *AuthHandler) Logout(c *gin.Context) {
	middleware.ClearSession(c)
	c.Redirect(http.StatusFound, "/")
}

// GitHubLogin initiates GitHub OAuth flow
func (h *AuthHandler) GitHubLogin(c *gin.Context) {
	authURL := h.authService.GetAuthURL()
	c.Redirect(http.StatusTemporaryRedirect, authURL)
}

// GitHubCallback handles GitHub OAuth callback
func (h *AuthHandler) GitHubCallback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.Redirect(http.StatusFound, "/?error=no_code")
		return
	}

	// Exchange code for token
	token, err := h.authService.ExchangeCodeForToken(c.Request.Context(), code)
	if err != nil {
		c.Redirect(http.StatusFound, "/?error=token_exchange_failed")
		return
	}

	// Get user info from GitHub
	githubUser, err := h.authService.GetUserInfo(c.Request.Context(), token)
	if err != nil {
		c.Redirect(http.StatusFound, "/?error=user_info_failed")
		return
	}

	// Only organization members get in; anything short of a successful
	// repository probe counts as not a member.
	if err := h.authService.VerifyOrgMembership(c.Request.Context(), token); err != nil {
		logger.WithField("login", githubUser.Login).Warnf("Organization membership probe failed")
		c.Redirect(http.StatusFound, "/?error=not_a_member")
		return
	}

	if err := middleware.SetSession(c, uuid.New().String(), githubUser.Login); err != nil {
		c.Redirect(http.StatusFound, "/?error=session_creation_failed")
		return
	}

	c.Redirect(http.StatusFound, "/")
}

// Session returns the signed-in user, if any.
func (h *AuthHandler) Session(c *gin.Context) {
	session := middleware.GetSession(c)
	if session == nil {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"username":      session.Username,
	})
}
