package services

import (
	"context"
	"strings"
	"sync"

	"github.com/teamprs/prtracker/pkg/logger"
)

// CatalogService loads the organization repository catalog page by page.
// Page 1 replaces the catalog, later pages append; a page-1 failure falls
// back to the configured default list instead of surfacing an error.
type CatalogService struct {
	client   GitHubClient
	org      string
	defaults []string

	mu          sync.Mutex
	names       []string
	page        int
	hasNextPage bool
}

func NewCatalogService(client GitHubClient, org string, defaults []string) *CatalogService {
	return &CatalogService{
		client:   client,
		org:      org,
		defaults: defaults,
	}
}

// LoadPage fetches one catalog page and merges it into the catalog.
// The returned error is non-nil only for pages beyond the first; callers may
// treat it as a non-fatal warning since previously loaded pages are kept.
func (s *CatalogService) LoadPage(ctx context.Context, page int) error {
	names, linkHeader, err := s.client.ListOrgRepos(ctx, s.org, page)
	if err != nil {
		if page == 1 {
			logger.WithError(err).Warnf("Repository catalog fetch failed, falling back to %d default repositories", len(s.defaults))
			s.mu.Lock()
			s.names = append([]string{}, s.defaults...)
			s.page = 1
			s.hasNextPage = false
			s.mu.Unlock()
			return nil
		}
		logger.WithError(err).Warnf("Repository catalog page %d fetch failed, keeping %d loaded repositories", page, len(s.Names()))
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if page == 1 {
		s.names = names
	} else {
		s.names = append(s.names, names...)
	}
	s.page = page
	s.hasNextPage = hasNextLink(linkHeader)
	return nil
}

// Names returns a copy of the loaded catalog.
func (s *CatalogService) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.names...)
}

// Search returns catalog entries containing the term, case-insensitively.
func (s *CatalogService) Search(term string) []string {
	if term == "" {
		return s.Names()
	}
	lowered := strings.ToLower(term)
	matches := []string{}
	for _, name := range s.Names() {
		if strings.Contains(strings.ToLower(name), lowered) {
			matches = append(matches, name)
		}
	}
	return matches
}

// Page returns the last loaded page number.
func (s *CatalogService) Page() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// HasNextPage reports whether the last loaded page advertised a successor.
func (s *CatalogService) HasNextPage() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasNextPage
}

// hasNextLink inspects a Link-style header for a rel="next" relation.
// Absence or an unparseable header means no further pages.
func hasNextLink(linkHeader string) bool {
	if linkHeader == "" {
		return false
	}
	for _, part := range strings.Split(linkHeader, ",") {
		if strings.Contains(part, `rel="next"`) {
			return true
		}
	}
	return false
}
