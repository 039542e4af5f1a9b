package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/teamprs/prtracker/internal/models"
	"github.com/teamprs/prtracker/internal/services"
)

// SlackLinkHandler exposes the Slack link writer.
type SlackLinkHandler struct {
	slackLinks *services.SlackLinkService
}

func NewSlackLinkHandler(slackLinks *services.SlackLinkService) *SlackLinkHandler {
	return &SlackLinkHandler{slackLinks: slackLinks}
}

// SetLink attaches or updates the canonical Slack link on a pull request.
func (h *SlackLinkHandler) SetLink(c *gin.Context) {
	key, ok := prKeyFromPath(c)
	if !ok {
		return
	}

	var req struct {
		URL string `json:"url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	if err := h.slackLinks.SetLink(c.Request.Context(), key, req.URL); err != nil {
		var validationErr *models.ValidationError
		if errors.As(err, &validationErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Message})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	if req.URL == "" {
		c.JSON(http.StatusOK, gin.H{"message": "Slack link cleared"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Slack link updated"})
}

// ClearLink removes the local override; the remote description is not
// touched.
func (h *SlackLinkHandler) ClearLink(c *gin.Context) {
	key, ok := prKeyFromPath(c)
	if !ok {
		return
	}

	if err := h.slackLinks.ClearLink(key); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear Slack link"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Slack link cleared"})
}

func prKeyFromPath(c *gin.Context) (models.PRKey, bool) {
	repo := c.Param("repo")
	number, err := strconv.Atoi(c.Param("number"))
	if repo == "" || err != nil || number <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid pull request identifier"})
		return models.PRKey{}, false
	}
	return models.PRKey{Repository: repo, Number: number}, true
}
