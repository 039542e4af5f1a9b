package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teamprs/prtracker/internal/models"
)

type memSlackLinkStore struct {
	links   map[models.PRKey]string
	readErr error
}

func newMemSlackLinkStore() *memSlackLinkStore {
	return &memSlackLinkStore{links: make(map[models.PRKey]string)}
}

func (m *memSlackLinkStore) GetSlackLinks() (map[models.PRKey]string, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	out := make(map[models.PRKey]string, len(m.links))
	for k, v := range m.links {
		out[k] = v
	}
	return out, nil
}

func (m *memSlackLinkStore) SetSlackLink(key models.PRKey, url string) error {
	m.links[key] = url
	return nil
}

func (m *memSlackLinkStore) DeleteSlackLink(key models.PRKey) error {
	delete(m.links, key)
	return nil
}

func TestSetLink(t *testing.T) {
	key := models.PRKey{Repository: "svc-a", Number: 7}
	link := "https://acme.slack.com/archives/C1/p123"

	t.Run("Valid link is stored and appended to the description", func(t *testing.T) {
		client := &fakeGitHubClient{
			details: map[string]*GitHubPullRequest{
				"svc-a#7": {Number: 7, Body: "Fixes the thing."},
			},
		}
		store := newMemSlackLinkStore()
		service := NewSlackLinkService(client, store, "acme")

		require.NoError(t, service.SetLink(context.Background(), key, link))

		assert.Equal(t, link, store.links[key])
		assert.Equal(t, "Fixes the thing.\n\n"+link, client.updatedBodies["svc-a#7"])
		assert.False(t, service.InFlight(key))
	})

	t.Run("Existing Slack line is replaced in place", func(t *testing.T) {
		client := &fakeGitHubClient{
			details: map[string]*GitHubPullRequest{
				"svc-a#7": {Number: 7, Body: "Intro.\nhttps://acme.slack.com/archives/C9/p999\nOutro."},
			},
		}
		service := NewSlackLinkService(client, newMemSlackLinkStore(), "acme")

		require.NoError(t, service.SetLink(context.Background(), key, link))

		assert.Equal(t, "Intro.\n"+link+"\nOutro.", client.updatedBodies["svc-a#7"])
	})

	t.Run("Empty description becomes just the link", func(t *testing.T) {
		client := &fakeGitHubClient{
			details: map[string]*GitHubPullRequest{
				"svc-a#7": {Number: 7, Body: ""},
			},
		}
		service := NewSlackLinkService(client, newMemSlackLinkStore(), "acme")

		require.NoError(t, service.SetLink(context.Background(), key, link))

		assert.Equal(t, link, client.updatedBodies["svc-a#7"])
	})

	t.Run("Invalid URL is rejected before any side effect", func(t *testing.T) {
		client := &fakeGitHubClient{}
		store := newMemSlackLinkStore()
		service := NewSlackLinkService(client, store, "acme")

		err := service.SetLink(context.Background(), key, "https://example.com/not-slack")

		var validationErr *models.ValidationError
		assert.ErrorAs(t, err, &validationErr)
		assert.Empty(t, store.links)
		assert.Empty(t, client.updatedBodies)
	})

	t.Run("Empty URL clears the override and skips the remote patch", func(t *testing.T) {
		client := &fakeGitHubClient{}
		store := newMemSlackLinkStore()
		store.links[key] = link
		service := NewSlackLinkService(client, store, "acme")

		require.NoError(t, service.SetLink(context.Background(), key, "  "))

		assert.Empty(t, store.links)
		assert.Empty(t, client.updatedBodies)
	})

	t.Run("Upstream patch failure is surfaced, override stays", func(t *testing.T) {
		client := &fakeGitHubClient{
			details: map[string]*GitHubPullRequest{
				"svc-a#7": {Number: 7, Body: ""},
			},
			updateErr: errors.New("HTTP 502 from proxy"),
		}
		store := newMemSlackLinkStore()
		service := NewSlackLinkService(client, store, "acme")

		err := service.SetLink(context.Background(), key, link)

		assert.Error(t, err)
		assert.Equal(t, link, store.links[key])
		assert.False(t, service.InFlight(key))
	})
}

func TestOverrides(t *testing.T) {
	key := models.PRKey{Repository: "svc-a", Number: 7}

	t.Run("Returns the stored mapping", func(t *testing.T) {
		store := newMemSlackLinkStore()
		store.links[key] = "https://acme.slack.com/archives/C1/p123"
		service := NewSlackLinkService(&fakeGitHubClient{}, store, "acme")

		assert.Equal(t, store.links, service.Overrides())
	})

	t.Run("Store failure degrades to an empty mapping", func(t *testing.T) {
		store := newMemSlackLinkStore()
		store.readErr = errors.New("database is locked")
		service := NewSlackLinkService(&fakeGitHubClient{}, store, "acme")

		assert.Empty(t, service.Overrides())
	})
}

func TestPatchSlackLink(t *testing.T) {
	link := "https://acme.slack.com/archives/C1/p123"

	testCases := []struct {
		name     string
		body     string
		expected string
	}{
		{name: "Empty body", body: "", expected: link},
		{name: "Whitespace body", body: "  \n ", expected: link},
		{name: "No existing link appends", body: "Hello.", expected: "Hello.\n\n" + link},
		{
			name:     "Whole-line link replaced",
			body:     "https://acme.slack.com/old",
			expected: link,
		},
		{
			name:     "Embedded link is not replaced",
			body:     "see https://acme.slack.com/old here",
			expected: "see https://acme.slack.com/old here\n\n" + link,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, patchSlackLink(tc.body, link))
		})
	}
}
