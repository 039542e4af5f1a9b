package proxy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/go-github/v57/github"
	"github.com/teamprs/prtracker/pkg/logger"
	"golang.org/x/oauth2"
)

const upstreamTimeout = 10 * time.Second

// Handler proxies privileged GitHub API calls so the long-lived token never
// reaches the browser. It accepts {endpoint, ...params} and answers with the
// {data, headers} envelope the gateway adapter expects.
type Handler struct {
	client  *github.Client
	limiter *RateLimiter
	enabled bool
}

// NewHandler builds the proxy around a server-side token. An empty token
// leaves the proxy registered but answering with a configuration error, the
// same behavior the rest of the contract is written against.
func NewHandler(token string, rateLimit int) *Handler {
	h := &Handler{
		limiter: NewRateLimiter(rateLimit, time.Minute),
		enabled: token != "",
	}
	if h.enabled {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		tc := oauth2.NewClient(context.Background(), ts)
		h.client = github.NewClient(tc)
	}
	return h
}

// Register mounts the proxy endpoint on the router.
func (h *Handler) Register(router *gin.Engine) {
	router.POST("/github-api", h.Handle)
	router.OPTIONS("/github-api", h.Preflight)
}

type proxyRequest struct {
	Endpoint   string  `json:"endpoint"`
	Org        string  `json:"org"`
	Owner      string  `json:"owner"`
	Repo       string  `json:"repo"`
	State      string  `json:"state"`
	PerPage    int     `json:"per_page"`
	Page       int     `json:"page"`
	PullNumber int     `json:"pull_number"`
	Body       *string `json:"body"`
}

// Preflight answers CORS preflight requests with permissive headers and no
// body.
func (h *Handler) Preflight(c *gin.Context) {
	setCORSHeaders(c)
	c.Status(http.StatusOK)
}

// Handle dispatches one proxied GitHub API call.
func (h *Handler) Handle(c *gin.Context) {
	setCORSHeaders(c)

	if !h.limiter.Allow(clientKey(c)) {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":  "Too many requests. Please try again later.",
			"status": http.StatusTooManyRequests,
		})
		return
	}

	var req proxyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	if req.Endpoint == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required parameters"})
		return
	}

	if !h.enabled {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server configuration error: GitHub token not available"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), upstreamTimeout)
	defer cancel()

	data, headers, err := h.dispatch(ctx, req)
	if err != nil {
		status, message := upstreamErrorDetails(err)
		logger.WithError(err).Warnf("GitHub API error on %s", req.Endpoint)
		c.JSON(status, gin.H{
			"error":  message,
			"status": status,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":    data,
		"headers": headers,
	})
}

var errUnknownEndpoint = errors.New("unknown endpoint")

func (h *Handler) dispatch(ctx context.Context, req proxyRequest) (interface{}, map[string]string, error) {
	switch req.Endpoint {
	case "repos.listForOrg":
		opts := &github.RepositoryListByOrgOptions{
			ListOptions: github.ListOptions{PerPage: req.PerPage, Page: req.Page},
		}
		repos, resp, err := h.client.Repositories.ListByOrg(ctx, req.Org, opts)
		if err != nil {
			return nil, nil, err
		}
		return repos, linkHeaders(resp), nil

	case "pulls.list":
		opts := &github.PullRequestListOptions{
			State:       req.State,
			ListOptions: github.ListOptions{PerPage: req.PerPage, Page: req.Page},
		}
		prs, resp, err := h.client.PullRequests.List(ctx, req.Owner, req.Repo, opts)
		if err != nil {
			return nil, nil, err
		}
		return prs, linkHeaders(resp), nil

	case "pulls.listReviews":
		reviews, resp, err := h.client.PullRequests.ListReviews(ctx, req.Owner, req.Repo, req.PullNumber, nil)
		if err != nil {
			return nil, nil, err
		}
		return reviews, linkHeaders(resp), nil

	case "pulls.get":
		pr, resp, err := h.client.PullRequests.Get(ctx, req.Owner, req.Repo, req.PullNumber)
		if err != nil {
			return nil, nil, err
		}
		return pr, linkHeaders(resp), nil

	case "pulls.update":
		pr, resp, err := h.client.PullRequests.Edit(ctx, req.Owner, req.Repo, req.PullNumber, &github.PullRequest{Body: req.Body})
		if err != nil {
			return nil, nil, err
		}
		return pr, linkHeaders(resp), nil

	default:
		return nil, nil, fmt.Errorf("%w: %s", errUnknownEndpoint, req.Endpoint)
	}
}

// clientKey picks the first present client-identifying header.
func clientKey(c *gin.Context) string {
	for _, header := range []string{"Client-IP", "X-Forwarded-For"} {
		if value := c.GetHeader(header); value != "" {
			return value
		}
	}
	return "unknown-ip"
}

func setCORSHeaders(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
	c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
}

func linkHeaders(resp *github.Response) map[string]string {
	headers := map[string]string{}
	if resp != nil && resp.Response != nil {
		if link := resp.Header.Get("Link"); link != "" {
			headers["link"] = link
		}
	}
	return headers
}

func upstreamErrorDetails(err error) (int, string) {
	if errors.Is(err, errUnknownEndpoint) {
		return http.StatusBadRequest, err.Error()
	}
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return ghErr.Response.StatusCode, ghErr.Message
	}
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return http.StatusForbidden, rateErr.Message
	}
	return http.StatusInternalServerError, err.Error()
}
