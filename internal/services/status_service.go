package services

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/teamprs/prtracker/internal/models"
)

// slackLinkPattern matches a Slack URL and nothing else: the whole candidate
// string must be the URL, embedded-in-text links do not count.
var slackLinkPattern = regexp.MustCompile(`^https://[A-Za-z0-9](?:[A-Za-z0-9-]*[A-Za-z0-9])?\.slack\.com/\S+$`)

// ReviewStatus summarizes who has and has not completed a review.
type ReviewStatus struct {
	Reviewed []string          `json:"reviewed"`
	Pending  []string          `json:"pending"`
	States   map[string]string `json:"states"`
}

// MergeState is the tri-state mergeability display value.
type MergeState string

const (
	MergeUnknown MergeState = "unknown"
	MergeYes     MergeState = "mergeable"
	MergeNo      MergeState = "not_mergeable"
)

// Mergeability is the derived merge-readiness of a pull request, annotated
// with a human-readable reason when it is not mergeable.
type Mergeability struct {
	State  MergeState `json:"state"`
	Reason string     `json:"reason,omitempty"`
}

// StatusService derives review, merge and Slack-link status from enriched
// pull request records. All methods are pure.
type StatusService struct{}

func NewStatusService() *StatusService {
	return &StatusService{}
}

// ReviewStatus folds review events in submission order; the latest
// non-COMMENTED event per reviewer wins. Pending is every requested reviewer
// without a completed state.
func (s *StatusService) ReviewStatus(pr models.PullRequest) ReviewStatus {
	states := make(map[string]string)
	reviewed := []string{}
	for _, review := range pr.Reviews {
		if review.State == models.ReviewCommented {
			continue
		}
		if _, seen := states[review.Reviewer]; !seen {
			reviewed = append(reviewed, review.Reviewer)
		}
		states[review.Reviewer] = review.State
	}

	pending := []string{}
	for _, login := range pr.RequestedReviewers {
		if _, ok := states[login]; !ok {
			pending = append(pending, login)
		}
	}

	return ReviewStatus{
		Reviewed: reviewed,
		Pending:  pending,
		States:   states,
	}
}

// UnresolvedCount counts CHANGES_REQUESTED events. It is deliberately not
// deduplicated per reviewer: a conservative approximation, not a true
// still-open count.
func (s *StatusService) UnresolvedCount(pr models.PullRequest) int {
	count := 0
	for _, review := range pr.Reviews {
		if review.State == models.ReviewChangesRequested {
			count++
		}
	}
	return count
}

// MergeBlockReason returns an explicit block reason that overrides the raw
// mergeable state, or "" when none applies.
func (s *StatusService) MergeBlockReason(pr models.PullRequest) string {
	if len(pr.RequestedReviewers) == 0 {
		return ""
	}
	for _, state := range s.ReviewStatus(pr).States {
		if state == models.ReviewApproved {
			return ""
		}
	}
	return "awaiting first review"
}

// Mergeability derives the tri-state merge display for a pull request.
func (s *StatusService) Mergeability(pr models.PullRequest) Mergeability {
	if pr.Mergeable == nil {
		return Mergeability{State: MergeUnknown}
	}

	blockReason := s.MergeBlockReason(pr)
	if *pr.Mergeable && pr.MergeableState == models.MergeableStateClean && blockReason == "" {
		return Mergeability{State: MergeYes}
	}

	reason := blockReason
	if reason == "" {
		reason = mergeableStateReason(pr.MergeableState)
	}
	return Mergeability{State: MergeNo, Reason: reason}
}

func mergeableStateReason(state string) string {
	switch state {
	case models.MergeableStateBehind:
		return "branch out of date"
	case models.MergeableStateDirty:
		return "conflicts"
	case models.MergeableStateBlocked:
		return "checks or reviews required"
	case models.MergeableStateUnstable:
		return "tests failing"
	case models.MergeableStateHasHooks:
		return "waiting for hooks"
	default:
		return state
	}
}

// ExtractSlackLink returns the candidate if it is exactly a Slack URL, "".
// otherwise.
func ExtractSlackLink(candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if slackLinkPattern.MatchString(trimmed) {
		return trimmed
	}
	return ""
}

// SlackLink resolves the authoritative Slack link for a pull request: an
// explicit override wins over a link found in the description; a description
// link counts only when a whole line of the body is the URL.
func (s *StatusService) SlackLink(pr models.PullRequest, overrides map[models.PRKey]string) string {
	if link, ok := overrides[pr.Key()]; ok && link != "" {
		return link
	}
	for _, line := range strings.Split(pr.Body, "\n") {
		if link := ExtractSlackLink(line); link != "" {
			return link
		}
	}
	return ""
}

// SuggestSlackLink looks for another pull request sharing the same source
// branch that resolves to a Slack link, to offer as a one-click copy
// suggestion. Advisory only, never applied automatically.
func (s *StatusService) SuggestSlackLink(pr models.PullRequest, all []models.PullRequest, overrides map[models.PRKey]string) string {
	if pr.HeadBranch == "" {
		return ""
	}
	for _, other := range all {
		if other.Key() == pr.Key() || other.HeadBranch != pr.HeadBranch {
			continue
		}
		if link := s.SlackLink(other, overrides); link != "" {
			return link
		}
	}
	return ""
}

// ValidateSlackURL checks that a user-supplied URL is absolute and points at
// a slack.com subdomain.
func ValidateSlackURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return &models.ValidationError{Message: "not an absolute URL"}
	}
	if !strings.HasSuffix(parsed.Hostname(), ".slack.com") {
		return &models.ValidationError{Message: "URL host must end with .slack.com"}
	}
	return nil
}
