package services

import (
	"sort"

	"github.com/teamprs/prtracker/internal/models"
)

// FilterAll is the sentinel that disables a facet predicate.
const FilterAll = "all"

// StatusNeedsReview keeps only pull requests with at least one pending
// reviewer.
const StatusNeedsReview = "needs-review"

// PRFilter is the active facet selection. Zero values mean "all".
type PRFilter struct {
	Status   string
	Author   string
	Reviewer string
	Repo     string
}

// FilterService derives facet sets from the current pull request list and
// applies the active filter. It never mutates the underlying list.
type FilterService struct {
	status *StatusService
}

func NewFilterService(status *StatusService) *FilterService {
	return &FilterService{status: status}
}

// Authors returns the distinct author logins in first-seen order.
func (s *FilterService) Authors(prs []models.PullRequest) []string {
	seen := make(map[string]bool)
	authors := []string{}
	for _, pr := range prs {
		if !seen[pr.Author] {
			seen[pr.Author] = true
			authors = append(authors, pr.Author)
		}
	}
	return authors
}

// Reviewers returns the distinct requested-reviewer logins in first-seen
// order, flattened across pull requests.
func (s *FilterService) Reviewers(prs []models.PullRequest) []string {
	seen := make(map[string]bool)
	reviewers := []string{}
	for _, pr := range prs {
		for _, login := range pr.RequestedReviewers {
			if !seen[login] {
				seen[login] = true
				reviewers = append(reviewers, login)
			}
		}
	}
	return reviewers
}

// Repos returns the distinct repository names, sorted lexicographically.
func (s *FilterService) Repos(prs []models.PullRequest) []string {
	seen := make(map[string]bool)
	repos := []string{}
	for _, pr := range prs {
		if !seen[pr.Repository] {
			seen[pr.Repository] = true
			repos = append(repos, pr.Repository)
		}
	}
	sort.Strings(repos)
	return repos
}

// Apply returns the pull requests matching every active predicate.
func (s *FilterService) Apply(prs []models.PullRequest, filter PRFilter) []models.PullRequest {
	matched := []models.PullRequest{}
	for _, pr := range prs {
		if filter.Status == StatusNeedsReview && len(s.status.ReviewStatus(pr).Pending) == 0 {
			continue
		}
		if active(filter.Author) && pr.Author != filter.Author {
			continue
		}
		if active(filter.Reviewer) && !hasReviewer(pr, filter.Reviewer) {
			continue
		}
		if active(filter.Repo) && pr.Repository != filter.Repo {
			continue
		}
		matched = append(matched, pr)
	}
	return matched
}

func active(value string) bool {
	return value != "" && value != FilterAll
}

func hasReviewer(pr models.PullRequest, login string) bool {
	for _, reviewer := range pr.RequestedReviewers {
		if reviewer == login {
			return true
		}
	}
	return false
}
