package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/teamprs/prtracker/internal/models"
	"github.com/teamprs/prtracker/pkg/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

type AuthService struct {
	oauthConfig *oauth2.Config
	org         string
}

type GitHubUser struct {
	ID        int    `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

func NewAuthService() *AuthService {
	oauthConfig := &oauth2.Config{
		ClientID:     config.AppConfig.GitHub.ClientID,
		ClientSecret: config.AppConfig.GitHub.ClientSecret,
		RedirectURL:  config.AppConfig.GitHub.CallbackURL,
		Scopes: []string{
			"read:user", // Read access to user profile data
			"read:org",  // Read access to organization membership
			"repo",      // Access to repositories (PRs, reviews, descriptions)
		},
		Endpoint: github.Endpoint,
	}

	return &AuthService{
		oauthConfig: oauthConfig,
		org:         config.AppConfig.GitHub.Organization,
	}
}

// GetAuthURL returns the GitHub OAuth authorization URL
func (s *AuthService) GetAuthURL() string {
	return s.oauthConfig.AuthCodeURL("state", oauth2.AccessTypeOffline)
}

// ExchangeCodeForToken exchanges authorization code for access token
func (s *AuthService) ExchangeCodeForToken(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code for token: %w", err)
	}
	return token, nil
}

// GetUserInfo retrieves user information from GitHub
func (s *AuthService) GetUserInfo(ctx context.Context, token *oauth2.Token) (*GitHubUser, error) {
	client := s.oauthConfig.Client(ctx, token)

	resp, err := client.Get("https://api.github.com/user")
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var user GitHubUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user data: %w", err)
	}

	return &user, nil
}

// VerifyOrgMembership probes whether the token can list at least one
// organization repository. Every other outcome, transport errors included,
// counts as "not a member".
func (s *AuthService) VerifyOrgMembership(ctx context.Context, token *oauth2.Token) error {
	notMember := &models.AuthError{Message: fmt.Sprintf("not a member of %s", s.org)}

	client := s.oauthConfig.Client(ctx, token)
	resp, err := client.Get(fmt.Sprintf("https://api.github.com/orgs/%s/repos?per_page=1", s.org))
	if err != nil {
		return notMember
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return notMember
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return notMember
	}

	var repos []GitHubRepo
	if err := json.Unmarshal(body, &repos); err != nil || len(repos) == 0 {
		return notMember
	}

	return nil
}
