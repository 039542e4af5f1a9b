package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/teamprs/prtracker/internal/models"
	"github.com/teamprs/prtracker/pkg/logger"
)

// SlackLinkStore persists the custom Slack link overrides locally.
type SlackLinkStore interface {
	GetSlackLinks() (map[models.PRKey]string, error)
	SetSlackLink(key models.PRKey, url string) error
	DeleteSlackLink(key models.PRKey) error
}

// SlackLinkService validates and persists a user-supplied Slack link for a
// pull request, both locally and by patching the PR description upstream.
type SlackLinkService struct {
	client GitHubClient
	store  SlackLinkStore
	org    string

	mu       sync.Mutex
	inFlight map[models.PRKey]bool
}

func NewSlackLinkService(client GitHubClient, store SlackLinkStore, org string) *SlackLinkService {
	return &SlackLinkService{
		client:   client,
		store:    store,
		org:      org,
		inFlight: make(map[models.PRKey]bool),
	}
}

// SetLink records the override locally and patches the pull request
// description upstream. The description is re-fetched fresh first;
// last-write-wins against concurrent external edits is a known race. An
// empty URL clears the local override without touching the remote
// description.
func (s *SlackLinkService) SetLink(ctx context.Context, key models.PRKey, rawURL string) error {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return s.ClearLink(key)
	}

	if err := ValidateSlackURL(rawURL); err != nil {
		return err
	}

	if err := s.store.SetSlackLink(key, rawURL); err != nil {
		return fmt.Errorf("failed to save Slack link for %s: %w", key, err)
	}

	s.setInFlight(key, true)
	defer s.setInFlight(key, false)

	fresh, err := s.client.GetPullRequest(ctx, s.org, key.Repository, key.Number)
	if err != nil {
		return fmt.Errorf("failed to fetch current description for %s: %w", key, err)
	}

	updated := patchSlackLink(fresh.Body, rawURL)
	if err := s.client.UpdatePullRequestBody(ctx, s.org, key.Repository, key.Number, updated); err != nil {
		return fmt.Errorf("failed to update description for %s: %w", key, err)
	}

	logger.WithFields(map[string]interface{}{
		"pull_request": key.String(),
	}).Infof("Slack link updated")
	return nil
}

// ClearLink removes the local override only; the remote description is left
// as is.
func (s *SlackLinkService) ClearLink(key models.PRKey) error {
	return s.store.DeleteSlackLink(key)
}

// Overrides returns the current custom link mapping.
func (s *SlackLinkService) Overrides() map[models.PRKey]string {
	links, err := s.store.GetSlackLinks()
	if err != nil {
		logger.WithError(err).Warnf("Failed to load Slack link overrides")
		return map[models.PRKey]string{}
	}
	return links
}

// InFlight reports whether an update for the pull request is in progress.
func (s *SlackLinkService) InFlight(key models.PRKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight[key]
}

func (s *SlackLinkService) setInFlight(key models.PRKey, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v {
		s.inFlight[key] = true
	} else {
		delete(s.inFlight, key)
	}
}

// patchSlackLink replaces an existing whole-line Slack URL in the body or
// appends the new one.
func patchSlackLink(body, url string) string {
	if strings.TrimSpace(body) == "" {
		return url
	}

	lines := strings.Split(body, "\n")
	for i, line := range lines {
		if ExtractSlackLink(line) != "" {
			lines[i] = url
			return strings.Join(lines, "\n")
		}
	}
	return body + "\n\n" + url
}
