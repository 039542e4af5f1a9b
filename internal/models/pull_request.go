package models

import (
	"fmt"
	"time"
)

// UnknownLogin is the sentinel substituted when upstream data is missing the
// author login. Malformed records degrade gracefully, they do not vanish.
const UnknownLogin = "unknown"

// PRKey uniquely identifies a pull request within the organization.
type PRKey struct {
	Repository string `json:"repository"`
	Number     int    `json:"number"`
}

func (k PRKey) String() string {
	return fmt.Sprintf("%s#%d", k.Repository, k.Number)
}

// PullRequest is the enriched record produced by the aggregation pipeline.
// It is built once per fetch cycle and never mutated afterwards; derived
// values (review status, mergeability, Slack link) are computed on demand.
type PullRequest struct {
	Repository         string         `json:"repository"`
	Number             int            `json:"number"`
	Title              string         `json:"title"`
	Author             string         `json:"author"`
	CreatedAt          time.Time      `json:"created_at"`
	HTMLURL            string         `json:"html_url"`
	HeadBranch         string         `json:"head_branch"`
	Body               string         `json:"body"`
	Mergeable          *bool          `json:"mergeable"`
	MergeableState     string         `json:"mergeable_state"`
	RequestedReviewers []string       `json:"requested_reviewers"`
	Reviews            []ReviewEvent  `json:"reviews"`
	SlackMessages      []SlackMessage `json:"slack_messages,omitempty"`

	// Placeholder marks a record that arrived without a usable identity and
	// was kept only to preserve array-position stability.
	Placeholder bool `json:"placeholder,omitempty"`
}

// Key returns the (repository, number) identity of the pull request.
func (pr *PullRequest) Key() PRKey {
	return PRKey{Repository: pr.Repository, Number: pr.Number}
}

// ReviewEvent is a single review submitted on a pull request.
type ReviewEvent struct {
	Reviewer    string    `json:"reviewer"`
	State       string    `json:"state"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Review states as reported by GitHub.
const (
	ReviewApproved         = "APPROVED"
	ReviewChangesRequested = "CHANGES_REQUESTED"
	ReviewCommented        = "COMMENTED"
)

// Mergeable states as reported by GitHub.
const (
	MergeableStateClean    = "clean"
	MergeableStateBehind   = "behind"
	MergeableStateDirty    = "dirty"
	MergeableStateBlocked  = "blocked"
	MergeableStateUnstable = "unstable"
	MergeableStateHasHooks = "has_hooks"
	MergeableStateUnknown  = "unknown"
)

// SlackMessage is a Slack channel message referencing a pull request.
type SlackMessage struct {
	Timestamp string `json:"ts"`
	Text      string `json:"text"`
	User      string `json:"user"`
	Permalink string `json:"permalink"`
}
