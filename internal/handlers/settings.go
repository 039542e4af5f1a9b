package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/teamprs/prtracker/internal/repositories"
	"github.com/teamprs/prtracker/internal/services"
)

// SettingsHandler manages the per-client dashboard settings: team members
// and the selected repository set, plus the repository catalog itself.
type SettingsHandler struct {
	settings *repositories.SettingsRepository
	catalog  *services.CatalogService
}

func NewSettingsHandler(settings *repositories.SettingsRepository, catalog *services.CatalogService) *SettingsHandler {
	return &SettingsHandler{
		settings: settings,
		catalog:  catalog,
	}
}

// GetSettings returns the current team and repository selection.
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	team, err := h.settings.GetTeamMembers()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load team members"})
		return
	}
	repos, err := h.settings.GetSelectedRepos()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load selected repositories"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"team_members":   team,
		"selected_repos": repos,
	})
}

// AddTeamMember adds a GitHub login to the team.
func (h *SettingsHandler) AddTeamMember(c *gin.Context) {
	var req struct {
		Login string `json:"login" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Login is required"})
		return
	}

	if err := h.settings.AddTeamMember(req.Login); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add team member"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"login": req.Login})
}

// RemoveTeamMember removes a GitHub login from the team.
func (h *SettingsHandler) RemoveTeamMember(c *gin.Context) {
	login := c.Param("login")
	if login == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Login is required"})
		return
	}

	if err := h.settings.RemoveTeamMember(login); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove team member"})
		return
	}
	c.Status(http.StatusNoContent)
}

// ToggleRepository flips a repository in or out of the selected set.
func (h *SettingsHandler) ToggleRepository(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Repository name is required"})
		return
	}

	var req struct {
		Selected bool `json:"selected"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	if err := h.settings.SetRepoSelected(name, req.Selected); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update repository selection"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "selected": req.Selected})
}

// ListRepositories returns the loaded catalog, optionally filtered by a
// search term.
func (h *SettingsHandler) ListRepositories(c *gin.Context) {
	search := c.Query("search")

	selected, err := h.settings.GetSelectedRepos()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load selected repositories"})
		return
	}
	selectedSet := make(map[string]bool, len(selected))
	for _, name := range selected {
		selectedSet[name] = true
	}

	names := h.catalog.Search(search)
	type repoView struct {
		Name     string `json:"name"`
		Selected bool   `json:"selected"`
	}
	repos := make([]repoView, 0, len(names))
	for _, name := range names {
		repos = append(repos, repoView{Name: name, Selected: selectedSet[name]})
	}

	c.JSON(http.StatusOK, gin.H{
		"repositories":  repos,
		"page":          h.catalog.Page(),
		"has_next_page": h.catalog.HasNextPage(),
	})
}

// LoadRepositories fetches a catalog page. Page 1 failures fall back to the
// default list inside the catalog service; later pages surface a warning.
func (h *SettingsHandler) LoadRepositories(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page"})
		return
	}

	if err := h.catalog.LoadPage(c.Request.Context(), page); err != nil {
		c.JSON(http.StatusOK, gin.H{
			"warning":       "Failed to load more repositories, keeping previously loaded pages",
			"page":          h.catalog.Page(),
			"has_next_page": h.catalog.HasNextPage(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"page":          h.catalog.Page(),
		"has_next_page": h.catalog.HasNextPage(),
	})
}
