package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teamprs/prtracker/internal/repositories"
	"github.com/teamprs/prtracker/internal/services"
)

// stubGitHubClient serves a fixed pull request list for every repository.
type stubGitHubClient struct {
	repoNames []string
	pulls     map[string][]services.GitHubPullRequest
	reviews   map[string][]services.GitHubReview
}

func (s *stubGitHubClient) ListOrgRepos(ctx context.Context, org string, page int) ([]string, string, error) {
	return s.repoNames, "", nil
}

func (s *stubGitHubClient) ListOpenPullRequests(ctx context.Context, org, repo string) ([]services.GitHubPullRequest, error) {
	return s.pulls[repo], nil
}

func (s *stubGitHubClient) ListReviews(ctx context.Context, org, repo string, number int) ([]services.GitHubReview, error) {
	return s.reviews[repo], nil
}

func (s *stubGitHubClient) GetPullRequest(ctx context.Context, org, repo string, number int) (*services.GitHubPullRequest, error) {
	return &services.GitHubPullRequest{Number: number, MergeableState: "unknown"}, nil
}

func (s *stubGitHubClient) UpdatePullRequestBody(ctx context.Context, org, repo string, number int, body string) error {
	return nil
}

func newDashboardFixture(t *testing.T, client services.GitHubClient) (*DashboardHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	settings := repositories.NewSettingsRepository(db)
	status := services.NewStatusService()
	handler := NewDashboardHandler(
		services.NewPipelineService(client, "acme", 2),
		status,
		services.NewFilterService(status),
		services.NewSlackLinkService(client, settings, "acme"),
		services.NewSlackService("", ""),
		settings,
	)
	return handler, mock
}

func dashboardRouter(handler *DashboardHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/api/pull-requests/refresh", handler.Refresh)
	router.GET("/api/pull-requests", handler.List)
	router.GET("/api/pull-requests/progress", handler.Progress)
	return router
}

func expectSettings(mock sqlmock.Sqlmock, team []string, repos []string) {
	teamRows := sqlmock.NewRows([]string{"login"})
	for _, login := range team {
		teamRows.AddRow(login)
	}
	mock.ExpectQuery("SELECT login FROM team_members ORDER BY created_at, login").WillReturnRows(teamRows)

	repoRows := sqlmock.NewRows([]string{"name"})
	for _, name := range repos {
		repoRows.AddRow(name)
	}
	mock.ExpectQuery("SELECT name FROM selected_repositories ORDER BY created_at, name").WillReturnRows(repoRows)
}

func TestRefreshAndList(t *testing.T) {
	client := &stubGitHubClient{
		pulls: map[string][]services.GitHubPullRequest{
			"svc-a": {
				{Number: 7, Title: "Fix login", User: &services.GitHubUserRef{Login: "alice"},
					RequestedReviewers: []services.GitHubUserRef{{Login: "bob"}}},
			},
		},
	}
	handler, mock := newDashboardFixture(t, client)
	router := dashboardRouter(handler)

	expectSettings(mock, []string{"alice"}, []string{"svc-a"})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/pull-requests/refresh", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)

	// List reads the snapshot plus the stored overrides.
	mock.ExpectQuery("SELECT repository, pr_number, url FROM slack_links").
		WillReturnRows(sqlmock.NewRows([]string{"repository", "pr_number", "url"}))

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/api/pull-requests", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `"Fix login"`)
	assert.Contains(t, body, `"pending":["bob"]`)
	assert.Contains(t, body, `"authors":["alice"]`)
	assert.Contains(t, body, `"repositories":["svc-a"]`)
}

func TestRefreshWithoutSelectedRepos(t *testing.T) {
	handler, mock := newDashboardFixture(t, &stubGitHubClient{})
	router := dashboardRouter(handler)

	expectSettings(mock, []string{"alice"}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/pull-requests/refresh", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Please select at least one repository.")
}

func TestListFiltersSnapshot(t *testing.T) {
	client := &stubGitHubClient{
		pulls: map[string][]services.GitHubPullRequest{
			"svc-a": {
				{Number: 1, User: &services.GitHubUserRef{Login: "alice"}},
				{Number: 2, User: &services.GitHubUserRef{Login: "bob"}},
			},
		},
	}
	handler, mock := newDashboardFixture(t, client)
	router := dashboardRouter(handler)

	expectSettings(mock, []string{"alice", "bob"}, []string{"svc-a"})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/pull-requests/refresh", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	mock.ExpectQuery("SELECT repository, pr_number, url FROM slack_links").
		WillReturnRows(sqlmock.NewRows([]string{"repository", "pr_number", "url"}))

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/api/pull-requests?author=bob", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `"number":2`)
	assert.NotContains(t, body, `"number":1`)
	// Facets always reflect the full snapshot.
	assert.Contains(t, body, `"authors":["alice","bob"]`)
}

func TestProgressIdleState(t *testing.T) {
	handler, _ := newDashboardFixture(t, &stubGitHubClient{})
	router := dashboardRouter(handler)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/pull-requests/progress", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"completed":0`)
}
