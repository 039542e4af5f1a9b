package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/teamprs/prtracker/internal/models"
)

func filterFixture() []models.PullRequest {
	return []models.PullRequest{
		{
			Repository:         "svc-b",
			Number:             1,
			Author:             "alice",
			RequestedReviewers: []string{"bob"},
		},
		{
			Repository:         "svc-a",
			Number:             2,
			Author:             "bob",
			RequestedReviewers: []string{"alice", "carol"},
			Reviews: []models.ReviewEvent{
				{Reviewer: "alice", State: models.ReviewApproved},
				{Reviewer: "carol", State: models.ReviewApproved},
			},
		},
		{
			Repository: "svc-a",
			Number:     3,
			Author:     "alice",
		},
	}
}

func TestFilterFacets(t *testing.T) {
	service := NewFilterService(NewStatusService())
	prs := filterFixture()

	t.Run("Authors in first-seen order", func(t *testing.T) {
		assert.Equal(t, []string{"alice", "bob"}, service.Authors(prs))
	})

	t.Run("Reviewers flattened in first-seen order", func(t *testing.T) {
		assert.Equal(t, []string{"bob", "alice", "carol"}, service.Reviewers(prs))
	})

	t.Run("Repos sorted", func(t *testing.T) {
		assert.Equal(t, []string{"svc-a", "svc-b"}, service.Repos(prs))
	})

	t.Run("Empty list yields empty facets", func(t *testing.T) {
		assert.Empty(t, service.Authors(nil))
		assert.Empty(t, service.Reviewers(nil))
		assert.Empty(t, service.Repos(nil))
	})
}

func TestFilterApply(t *testing.T) {
	service := NewFilterService(NewStatusService())
	prs := filterFixture()

	numbers := func(matched []models.PullRequest) []int {
		out := []int{}
		for _, pr := range matched {
			out = append(out, pr.Number)
		}
		return out
	}

	testCases := []struct {
		name     string
		filter   PRFilter
		expected []int
	}{
		{name: "Zero filter matches everything", filter: PRFilter{}, expected: []int{1, 2, 3}},
		{name: "All sentinels match everything", filter: PRFilter{Status: FilterAll, Author: FilterAll, Reviewer: FilterAll, Repo: FilterAll}, expected: []int{1, 2, 3}},
		{name: "By author", filter: PRFilter{Author: "bob"}, expected: []int{2}},
		{name: "By requested reviewer", filter: PRFilter{Reviewer: "carol"}, expected: []int{2}},
		{name: "By repository", filter: PRFilter{Repo: "svc-a"}, expected: []int{2, 3}},
		{name: "Needs review keeps pending-reviewer PRs only", filter: PRFilter{Status: StatusNeedsReview}, expected: []int{1}},
		{name: "Predicates combine with AND", filter: PRFilter{Author: "alice", Repo: "svc-a"}, expected: []int{3}},
		{name: "No match", filter: PRFilter{Author: "mallory"}, expected: []int{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, numbers(service.Apply(prs, tc.filter)))
		})
	}
}
