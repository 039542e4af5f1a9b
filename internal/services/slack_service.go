package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/teamprs/prtracker/internal/models"
	"github.com/teamprs/prtracker/pkg/logger"
)

const slackAPIBaseURL = "https://slack.com/api"

// SlackService finds channel messages referencing a pull request and
// resolves their permalinks.
type SlackService struct {
	httpClient *http.Client
	baseURL    string
	token      string
	channel    string
}

func NewSlackService(token, channel string) *SlackService {
	return &SlackService{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    slackAPIBaseURL,
		token:      token,
		channel:    channel,
	}
}

// Configured reports whether a token and channel are set.
func (s *SlackService) Configured() bool {
	return s.token != "" && s.channel != ""
}

type slackHistoryResponse struct {
	OK       bool   `json:"ok"`
	Error    string `json:"error"`
	Messages []struct {
		TS   string `json:"ts"`
		Text string `json:"text"`
		User string `json:"user"`
	} `json:"messages"`
}

type slackPermalinkResponse struct {
	OK        bool   `json:"ok"`
	Error     string `json:"error"`
	Permalink string `json:"permalink"`
}

// FindMessages searches recent channel history for messages containing the
// pull request URL and resolves a permalink for each.
func (s *SlackService) FindMessages(ctx context.Context, prURL string) ([]models.SlackMessage, error) {
	if !s.Configured() {
		return nil, &models.ValidationError{Message: "Slack token and channel are required"}
	}

	var history slackHistoryResponse
	err := s.post(ctx, "conversations.history", url.Values{
		"channel": {s.channel},
		"limit":   {"100"},
	}, &history)
	if err != nil {
		return nil, err
	}
	if !history.OK {
		return nil, &models.UpstreamError{Status: http.StatusBadGateway, Message: slackErrorMessage(history.Error)}
	}

	related := []models.SlackMessage{}
	for _, msg := range history.Messages {
		if msg.Text == "" || !strings.Contains(msg.Text, prURL) {
			continue
		}
		message := models.SlackMessage{
			Timestamp: msg.TS,
			Text:      msg.Text,
			User:      msg.User,
		}

		var permalink slackPermalinkResponse
		err := s.post(ctx, "chat.getPermalink", url.Values{
			"channel":    {s.channel},
			"message_ts": {msg.TS},
		}, &permalink)
		if err == nil && permalink.OK {
			message.Permalink = permalink.Permalink
		}

		related = append(related, message)
	}

	return related, nil
}

// AttachMessages enriches each pull request with its related Slack messages.
// Failures are non-fatal and leave the record unchanged.
func (s *SlackService) AttachMessages(ctx context.Context, prs []models.PullRequest) []models.PullRequest {
	enriched := make([]models.PullRequest, len(prs))
	for i, pr := range prs {
		if pr.HTMLURL != "" {
			messages, err := s.FindMessages(ctx, pr.HTMLURL)
			if err != nil {
				logger.WithError(err).Warnf("Failed to fetch Slack messages for %s", pr.Key())
			} else {
				pr.SlackMessages = messages
			}
		}
		enriched[i] = pr
	}
	return enriched
}

func (s *SlackService) post(ctx context.Context, method string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/"+method, strings.NewReader(form.Encode()))
	if err != nil {
		return &models.TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &models.TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &models.TransportError{Err: err}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &models.TransportError{Err: fmt.Errorf("invalid JSON from Slack %s: %w", method, err)}
	}
	return nil
}

func slackErrorMessage(code string) string {
	if code == "" {
		return "unknown Slack API error"
	}
	return code
}
