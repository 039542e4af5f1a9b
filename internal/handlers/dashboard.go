package handlers

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/teamprs/prtracker/internal/models"
	"github.com/teamprs/prtracker/internal/repositories"
	"github.com/teamprs/prtracker/internal/services"
)

// DashboardHandler orchestrates the fetch pipeline and serves the enriched,
// filtered pull request list. Refresh is explicit: nothing re-fetches behind
// the caller's back.
type DashboardHandler struct {
	pipeline   *services.PipelineService
	status     *services.StatusService
	filter     *services.FilterService
	slackLinks *services.SlackLinkService
	slack      *services.SlackService
	settings   *repositories.SettingsRepository

	mu        sync.Mutex
	current   []models.PullRequest
	warnings  []string
	fetchedAt time.Time
}

func NewDashboardHandler(
	pipeline *services.PipelineService,
	status *services.StatusService,
	filter *services.FilterService,
	slackLinks *services.SlackLinkService,
	slack *services.SlackService,
	settings *repositories.SettingsRepository,
) *DashboardHandler {
	return &DashboardHandler{
		pipeline:   pipeline,
		status:     status,
		filter:     filter,
		slackLinks: slackLinks,
		slack:      slack,
		settings:   settings,
	}
}

// pullRequestView is one enriched record plus its derived display state.
type pullRequestView struct {
	models.PullRequest
	ReviewStatus       services.ReviewStatus `json:"review_status"`
	UnresolvedCount    int                   `json:"unresolved_count"`
	Mergeability       services.Mergeability `json:"mergeability"`
	SlackLink          string                `json:"slack_link,omitempty"`
	SuggestedSlackLink string                `json:"suggested_slack_link,omitempty"`
	UpdateInProgress   bool                  `json:"update_in_progress,omitempty"`
}

// Refresh runs a full fetch cycle and replaces the dashboard snapshot.
func (h *DashboardHandler) Refresh(c *gin.Context) {
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
	if len(repos) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please select at least one repository."})
		return
	}

	result, err := h.pipeline.Fetch(c.Request.Context(), repos, team)
	if err != nil {
		if errors.Is(err, models.ErrStaleFetch) {
			c.JSON(http.StatusConflict, gin.H{"error": "Refresh superseded by a newer one"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prs := result.PullRequests
	if h.slack.Configured() && len(prs) > 0 {
		prs = h.slack.AttachMessages(c.Request.Context(), prs)
	}

	h.mu.Lock()
	h.current = prs
	h.warnings = result.Warnings
	h.fetchedAt = time.Now()
	h.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"count":    len(prs),
		"warnings": result.Warnings,
	})
}

// List returns the current snapshot with the requested facet filter applied.
func (h *DashboardHandler) List(c *gin.Context) {
	filter := services.PRFilter{
		Status:   c.DefaultQuery("status", services.FilterAll),
		Author:   c.DefaultQuery("author", services.FilterAll),
		Reviewer: c.DefaultQuery("reviewer", services.FilterAll),
		Repo:     c.DefaultQuery("repo", services.FilterAll),
	}

	h.mu.Lock()
	current := h.current
	warnings := h.warnings
	fetchedAt := h.fetchedAt
	h.mu.Unlock()

	overrides := h.slackLinks.Overrides()
	filtered := h.filter.Apply(current, filter)

	views := make([]pullRequestView, 0, len(filtered))
	for _, pr := range filtered {
		view := pullRequestView{
			PullRequest:      pr,
			ReviewStatus:     h.status.ReviewStatus(pr),
			UnresolvedCount:  h.status.UnresolvedCount(pr),
			Mergeability:     h.status.Mergeability(pr),
			SlackLink:        h.status.SlackLink(pr, overrides),
			UpdateInProgress: h.slackLinks.InFlight(pr.Key()),
		}
		if view.SlackLink == "" {
			view.SuggestedSlackLink = h.status.SuggestSlackLink(pr, current, overrides)
		}
		views = append(views, view)
	}

	c.JSON(http.StatusOK, gin.H{
		"pull_requests": views,
		"facets": gin.H{
			"authors":      h.filter.Authors(current),
			"reviewers":    h.filter.Reviewers(current),
			"repositories": h.filter.Repos(current),
		},
		"warnings":   warnings,
		"fetched_at": fetchedAt,
	})
}

// Progress reports the advancement of a running fetch cycle.
func (h *DashboardHandler) Progress(c *gin.Context) {
	c.JSON(http.StatusOK, h.pipeline.Progress())
}

// Snapshot returns the unfiltered current pull request list.
func (h *DashboardHandler) Snapshot() []models.PullRequest {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]models.PullRequest{}, h.current...)
}
