package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/teamprs/prtracker/internal/services"
	"github.com/teamprs/prtracker/pkg/logger"
)

// ExportHandler streams the current dashboard as an xlsx report.
type ExportHandler struct {
	export     *services.ExportService
	filter     *services.FilterService
	slackLinks *services.SlackLinkService
	dashboard  *DashboardHandler
}

func NewExportHandler(export *services.ExportService, filter *services.FilterService, slackLinks *services.SlackLinkService, dashboard *DashboardHandler) *ExportHandler {
	return &ExportHandler{
		export:     export,
		filter:     filter,
		slackLinks: slackLinks,
		dashboard:  dashboard,
	}
}

// Export writes the filtered pull request list as a downloadable workbook.
func (h *ExportHandler) Export(c *gin.Context) {
	filter := services.PRFilter{
		Status:   c.DefaultQuery("status", services.FilterAll),
		Author:   c.DefaultQuery("author", services.FilterAll),
		Reviewer: c.DefaultQuery("reviewer", services.FilterAll),
		Repo:     c.DefaultQuery("repo", services.FilterAll),
	}

	prs := h.filter.Apply(h.dashboard.Snapshot(), filter)
	file, err := h.export.ExportPullRequests(prs, h.slackLinks.Overrides())
	if err != nil {
		logger.WithError(err).Errorf("Failed to build export workbook")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build export"})
		return
	}

	filename := fmt.Sprintf("pull-requests-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := file.Write(c.Writer); err != nil {
		logger.WithError(err).Errorf("Failed to stream export workbook")
	}
}
