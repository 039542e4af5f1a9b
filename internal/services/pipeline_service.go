package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/teamprs/prtracker/internal/models"
	"github.com/teamprs/prtracker/pkg/logger"
)

// PipelineService aggregates open pull requests across the selected
// repositories in two fan-out stages: list per repository, then per-PR
// review list and mergeability detail. Per-item failures are absorbed as
// warnings so one bad repository or pull request never aborts the others.
type PipelineService struct {
	client  GitHubClient
	org     string
	workers int

	// generation tags each fetch cycle so a late-arriving result from a
	// superseded refresh is discarded instead of overwriting newer data.
	generation atomic.Int64

	mu       sync.Mutex
	progress models.LoadingProgress
}

// FetchResult is the output of one completed fetch cycle.
type FetchResult struct {
	PullRequests []models.PullRequest
	Warnings     []string
}

func NewPipelineService(client GitHubClient, org string, workers int) *PipelineService {
	if workers < 1 {
		workers = 1
	}
	return &PipelineService{
		client:  client,
		org:     org,
		workers: workers,
	}
}

// Fetch runs a full aggregation cycle for the selected repositories and team
// member set. It fails fast on an empty selection, returns ErrStaleFetch when
// a newer refresh started while it was running, and otherwise never fails as
// a whole: individual fetch errors become warnings and default data.
func (s *PipelineService) Fetch(ctx context.Context, repos []string, team []string) (*FetchResult, error) {
	if len(repos) == 0 {
		return nil, models.ErrNoRepositories
	}

	gen := s.generation.Add(1)
	// A superseded cycle must not zero the counters of the newer one that
	// replaced it.
	defer func() {
		if s.generation.Load() == gen {
			s.resetProgress()
		}
	}()

	var warnMu sync.Mutex
	warnings := []string{}
	warn := func(format string, args ...interface{}) {
		msg := fmt.Sprintf(format, args...)
		logger.Warnf("%s", msg)
		warnMu.Lock()
		warnings = append(warnings, msg)
		warnMu.Unlock()
	}

	// Stage A: list open pull requests per repository.
	s.setProgress(0, 2*len(repos), "fetching open pull requests")

	listed := make([][]GitHubPullRequest, len(repos))
	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup
	for i, repo := range repos {
		wg.Add(1)
		go func(i int, repo string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			prs, err := s.client.ListOpenPullRequests(ctx, s.org, repo)
			if err != nil {
				warn("Failed to list pull requests for %s: %v", repo, err)
				prs = nil
			}
			listed[i] = prs
			s.addProgress(2)
		}(i, repo)
	}
	wg.Wait()

	// Relevance filter, preserving stage-A repo order then per-repo API order.
	teamSet := make(map[string]bool, len(team))
	for _, login := range team {
		teamSet[login] = true
	}

	relevant := []models.PullRequest{}
	for i, repo := range repos {
		for _, raw := range listed[i] {
			pr := NormalizePullRequest(repo, raw)
			if TeamRelevant(pr, teamSet) {
				relevant = append(relevant, pr)
			}
		}
	}

	if len(relevant) == 0 {
		if s.generation.Load() != gen {
			return nil, models.ErrStaleFetch
		}
		return &FetchResult{PullRequests: []models.PullRequest{}, Warnings: warnings}, nil
	}

	// Stage B: per-PR review list and mergeability detail, in parallel per
	// PR, each call independently defaulted on failure.
	s.extendProgress(len(relevant), "fetching review details")

	enriched := make([]models.PullRequest, len(relevant))
	for i := range relevant {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			pr := relevant[i]
			if pr.Placeholder {
				enriched[i] = pr
				s.addProgress(1)
				return
			}

			var innerWg sync.WaitGroup
			var reviews []GitHubReview
			var detail *GitHubPullRequest

			innerWg.Add(2)
			go func() {
				defer innerWg.Done()
				rs, err := s.client.ListReviews(ctx, s.org, pr.Repository, pr.Number)
				if err != nil {
					warn("Failed to fetch reviews for %s: %v", pr.Key(), err)
					rs = nil
				}
				reviews = rs
			}()
			go func() {
				defer innerWg.Done()
				d, err := s.client.GetPullRequest(ctx, s.org, pr.Repository, pr.Number)
				if err != nil {
					warn("Failed to fetch detail for %s: %v", pr.Key(), err)
					d = nil
				}
				detail = d
			}()
			innerWg.Wait()

			pr.Reviews = convertReviews(reviews)
			if detail != nil {
				pr.Mergeable = detail.Mergeable
				pr.MergeableState = detail.MergeableState
				if pr.MergeableState == "" {
					pr.MergeableState = models.MergeableStateUnknown
				}
			} else {
				pr.Mergeable = nil
				pr.MergeableState = models.MergeableStateUnknown
			}

			enriched[i] = pr
			s.addProgress(1)
		}(i)
	}
	wg.Wait()

	if s.generation.Load() != gen {
		return nil, models.ErrStaleFetch
	}

	return &FetchResult{PullRequests: enriched, Warnings: warnings}, nil
}

// Progress returns a snapshot of the current cycle's advancement. It is
// advisory only.
func (s *PipelineService) Progress() models.LoadingProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

func (s *PipelineService) setProgress(completed, total int, stage string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = models.LoadingProgress{Completed: completed, Total: total, Stage: stage}
}

func (s *PipelineService) addProgress(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress.Completed += n
}

func (s *PipelineService) extendProgress(n int, stage string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress.Total += n
	s.progress.Stage = stage
}

func (s *PipelineService) resetProgress() {
	s.setProgress(0, 0, "")
}

// NormalizePullRequest converts a raw record into a fully-populated immutable
// value. Missing author data is repaired to the "unknown" sentinel; a record
// without a usable identity becomes a clearly-marked placeholder so that
// array positions stay stable for progress accounting.
func NormalizePullRequest(repo string, raw GitHubPullRequest) models.PullRequest {
	pr := models.PullRequest{
		Repository:     repo,
		Number:         raw.Number,
		Title:          raw.Title,
		Author:         models.UnknownLogin,
		CreatedAt:      raw.CreatedAt,
		HTMLURL:        raw.HTMLURL,
		HeadBranch:     raw.Head.Ref,
		Body:           raw.Body,
		Mergeable:      raw.Mergeable,
		MergeableState: raw.MergeableState,
	}
	if pr.MergeableState == "" {
		pr.MergeableState = models.MergeableStateUnknown
	}
	if raw.User != nil && raw.User.Login != "" {
		pr.Author = raw.User.Login
	}

	pr.RequestedReviewers = make([]string, 0, len(raw.RequestedReviewers))
	for _, reviewer := range raw.RequestedReviewers {
		if reviewer.Login != "" {
			pr.RequestedReviewers = append(pr.RequestedReviewers, reviewer.Login)
		}
	}

	if pr.Repository == "" || pr.Number == 0 {
		pr.Placeholder = true
		if pr.Title == "" {
			pr.Title = "(unidentified pull request)"
		}
	}

	return pr
}

// TeamRelevant reports whether the pull request is authored by or has a
// review requested from a configured team member. An empty team admits
// nothing.
func TeamRelevant(pr models.PullRequest, team map[string]bool) bool {
	if team[pr.Author] {
		return true
	}
	for _, reviewer := range pr.RequestedReviewers {
		if team[reviewer] {
			return true
		}
	}
	return false
}

func convertReviews(raw []GitHubReview) []models.ReviewEvent {
	reviews := make([]models.ReviewEvent, 0, len(raw))
	for _, r := range raw {
		event := models.ReviewEvent{
			Reviewer:    models.UnknownLogin,
			State:       r.State,
			SubmittedAt: r.SubmittedAt,
		}
		if r.User != nil && r.User.Login != "" {
			event.Reviewer = r.User.Login
		}
		reviews = append(reviews, event)
	}
	return reviews
}
