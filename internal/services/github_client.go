package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/teamprs/prtracker/internal/models"
	"github.com/teamprs/prtracker/pkg/logger"
)

const (
	repoPageSize = 50
	prPageSize   = 100
)

// GitHubUserRef is the login-bearing fragment of a GitHub user object.
type GitHubUserRef struct {
	Login string `json:"login"`
}

// GitHubBranchRef is the branch fragment of a pull request head.
type GitHubBranchRef struct {
	Ref string `json:"ref"`
}

// GitHubRepo is the subset of a repository object the catalog needs.
type GitHubRepo struct {
	Name string `json:"name"`
}

// GitHubPullRequest is the raw pull request record as returned by the proxy.
type GitHubPullRequest struct {
	Number             int             `json:"number"`
	Title              string          `json:"title"`
	User               *GitHubUserRef  `json:"user"`
	CreatedAt          time.Time       `json:"created_at"`
	HTMLURL            string          `json:"html_url"`
	Head               GitHubBranchRef `json:"head"`
	Body               string          `json:"body"`
	Mergeable          *bool           `json:"mergeable"`
	MergeableState     string          `json:"mergeable_state"`
	RequestedReviewers []GitHubUserRef `json:"requested_reviewers"`
}

// GitHubReview is a raw review event as returned by the proxy.
type GitHubReview struct {
	User        *GitHubUserRef `json:"user"`
	State       string         `json:"state"`
	SubmittedAt time.Time      `json:"submitted_at"`
}

// GitHubClient is the typed surface the dashboard consumes. Every method
// funnels through one proxy adapter so transport handling and error
// unwrapping live in a single place.
type GitHubClient interface {
	ListOrgRepos(ctx context.Context, org string, page int) (names []string, linkHeader string, err error)
	ListOpenPullRequests(ctx context.Context, org, repo string) ([]GitHubPullRequest, error)
	ListReviews(ctx context.Context, org, repo string, number int) ([]GitHubReview, error)
	GetPullRequest(ctx context.Context, org, repo string, number int) (*GitHubPullRequest, error)
	UpdatePullRequestBody(ctx context.Context, org, repo string, number int, body string) error
}

// ProxyClient implements GitHubClient against the trusted backend proxy,
// which holds the long-lived GitHub token.
type ProxyClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewProxyClient(baseURL string) *ProxyClient {
	return &ProxyClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type proxyEnvelope struct {
	Data    json.RawMessage   `json:"data"`
	Headers map[string]string `json:"headers"`
}

type proxyErrorBody struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// call posts {endpoint, ...params} to the proxy and unwraps the response
// envelope. A 200 with a malformed or differently-shaped body yields empty
// defaults instead of an error: callers must never crash on it.
func (c *ProxyClient) call(ctx context.Context, endpoint string, params map[string]interface{}) (json.RawMessage, map[string]string, error) {
	payload := make(map[string]interface{}, len(params)+1)
	payload["endpoint"] = endpoint
	for k, v := range params {
		payload[k] = v
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, &models.TransportError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, nil, &models.TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, &models.TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &models.TransportError{Err: err}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, nil, &models.RateLimitError{Message: "proxy rate limit exceeded, try again later"}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errBody proxyErrorBody
		if err := json.Unmarshal(body, &errBody); err != nil || errBody.Error == "" {
			return nil, nil, &models.TransportError{Err: fmt.Errorf("HTTP %d from proxy", resp.StatusCode)}
		}
		status := errBody.Status
		if status == 0 {
			status = resp.StatusCode
		}
		return nil, nil, &models.UpstreamError{Status: status, Message: errBody.Error}
	}

	if !json.Valid(body) {
		return nil, nil, &models.TransportError{Err: fmt.Errorf("invalid JSON from proxy")}
	}

	// A 200 whose body is valid JSON but not the envelope (an unwrapped
	// array, a bare value) degrades to empty defaults like a missing data
	// field does.
	var envelope proxyEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		logger.Warnf("Proxy returned 200 without the expected envelope for %s, substituting empty result", endpoint)
		envelope = proxyEnvelope{}
	}

	if envelope.Data == nil {
		logger.Warnf("Proxy returned 200 without data for %s, substituting empty result", endpoint)
		envelope.Data = json.RawMessage("[]")
	}
	if envelope.Headers == nil {
		envelope.Headers = map[string]string{}
	}

	return envelope.Data, envelope.Headers, nil
}

func (c *ProxyClient) ListOrgRepos(ctx context.Context, org string, page int) ([]string, string, error) {
	data, headers, err := c.call(ctx, "repos.listForOrg", map[string]interface{}{
		"org":      org,
		"per_page": repoPageSize,
		"page":     page,
	})
	if err != nil {
		return nil, "", err
	}

	var repos []GitHubRepo
	if err := json.Unmarshal(data, &repos); err != nil {
		logger.Warnf("Unexpected repository list shape from proxy: %v", err)
		return []string{}, headers["link"], nil
	}

	names := make([]string, 0, len(repos))
	for _, repo := range repos {
		names = append(names, repo.Name)
	}
	return names, headers["link"], nil
}

func (c *ProxyClient) ListOpenPullRequests(ctx context.Context, org, repo string) ([]GitHubPullRequest, error) {
	data, _, err := c.call(ctx, "pulls.list", map[string]interface{}{
		"owner":    org,
		"repo":     repo,
		"state":    "open",
		"per_page": prPageSize,
	})
	if err != nil {
		return nil, err
	}

	var prs []GitHubPullRequest
	if err := json.Unmarshal(data, &prs); err != nil {
		logger.Warnf("Unexpected pull request list shape from proxy for %s: %v", repo, err)
		return []GitHubPullRequest{}, nil
	}
	return prs, nil
}

func (c *ProxyClient) ListReviews(ctx context.Context, org, repo string, number int) ([]GitHubReview, error) {
	data, _, err := c.call(ctx, "pulls.listReviews", map[string]interface{}{
		"owner":       org,
		"repo":        repo,
		"pull_number": number,
	})
	if err != nil {
		return nil, err
	}

	var reviews []GitHubReview
	if err := json.Unmarshal(data, &reviews); err != nil {
		logger.Warnf("Unexpected review list shape from proxy for %s#%d: %v", repo, number, err)
		return []GitHubReview{}, nil
	}
	return reviews, nil
}

func (c *ProxyClient) GetPullRequest(ctx context.Context, org, repo string, number int) (*GitHubPullRequest, error) {
	data, _, err := c.call(ctx, "pulls.get", map[string]interface{}{
		"owner":       org,
		"repo":        repo,
		"pull_number": number,
	})
	if err != nil {
		return nil, err
	}

	var pr GitHubPullRequest
	if err := json.Unmarshal(data, &pr); err != nil {
		return nil, &models.TransportError{Err: fmt.Errorf("invalid pull request detail for %s#%d: %w", repo, number, err)}
	}
	return &pr, nil
}

func (c *ProxyClient) UpdatePullRequestBody(ctx context.Context, org, repo string, number int, body string) error {
	_, _, err := c.call(ctx, "pulls.update", map[string]interface{}{
		"owner":       org,
		"repo":        repo,
		"pull_number": number,
		"body":        body,
	})
	return err
}
