package connect

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/wonny/vox/backend/internal/contracts"
	"github.com/wonny/vox/backend/pkg/config"
	"github.com/wonny/vox/backend/pkg/httputil"
	"github.com/wonny/vox/backend/pkg/logger"
)

// Client handles communication with the publishing platform
// ⭐ SSOT: 퍼블리싱 플랫폼 API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string

	// Token bucket guarding the platform's posting limits.
	// The limiter lives at the adapter boundary so callers never sleep.
	limiter *rate.Limiter
}

// NewClient creates a new publishing platform client
func NewClient(cfg *config.Config, httpClient *httputil.Client, log *logger.Logger) *Client {
	rps := cfg.Connect.RateLimit
	if rps <= 0 {
		rps = 2
	}

	return &Client{
		httpClient: httpClient,
		logger:     log.WithField("module", "connect"),
		baseURL:    strings.TrimRight(cfg.Connect.BaseURL, "/"),
		limiter:    rate.NewLimiter(rate.Limit(rps), rps),
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token   string `json:"token"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Login authenticates a persona and returns a session token
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", contracts.NewTransient("login", err)
	}

	body, _ := json.Marshal(loginRequest{Username: username, Password: password})

	resp, err := c.httpClient.Post(ctx, c.baseURL+"/auth/login", "application/json", strings.NewReader(string(body)))
	if err != nil {
		return "", contracts.NewTransient("login", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", contracts.NewPermanent("login", fmt.Errorf("authentication failed for %s", username))
	case httputil.IsRetryableError(resp.StatusCode):
		return "", contracts.NewTransient("login", fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return "", contracts.NewPermanent("login", fmt.Errorf("status %d", resp.StatusCode))
	}

	var lr loginResponse
	if err := decodeJSON(resp.Body, &lr); err != nil {
		return "", contracts.NewPermanent("login", err)
	}
	if !lr.Success || lr.Token == "" {
		return "", contracts.NewPermanent("login", fmt.Errorf("login rejected: %s", lr.Error))
	}

	return lr.Token, nil
}

type publishRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type publishResponse struct {
	PostID  string `json:"post_id"`
	URL     string `json:"url"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Publish creates a post under the authenticated persona
func (c *Client) Publish(ctx context.Context, token, title, body string) (*contracts.PublishResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, contracts.NewTransient("publish", err)
	}

	payload, _ := json.Marshal(publishRequest{Title: title, Body: body})

	resp, err := c.httpClient.PostWithHeaders(ctx, c.baseURL+"/posts", "application/json",
		strings.NewReader(string(payload)), bearer(token))
	if err != nil {
		return nil, contracts.NewTransient("publish", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, contracts.NewPermanent("publish", fmt.Errorf("token rejected"))
	case httputil.IsRetryableError(resp.StatusCode):
		return nil, contracts.NewTransient("publish", fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated:
		return nil, contracts.NewPermanent("publish", fmt.Errorf("status %d", resp.StatusCode))
	}

	var pr publishResponse
	if err := decodeJSON(resp.Body, &pr); err != nil {
		return nil, contracts.NewPermanent("publish", err)
	}
	if !pr.Success || pr.PostID == "" {
		return nil, contracts.NewPermanent("publish", fmt.Errorf("publish rejected: %s", pr.Error))
	}

	c.logger.WithFields(map[string]interface{}{
		"platform_post_id": pr.PostID,
		"url":              pr.URL,
	}).Info("Post published")

	return &contracts.PublishResult{PlatformPostID: pr.PostID, URL: pr.URL}, nil
}

// GetEngagement fetches the raw engagement payload for a platform post.
// The payload shape is platform-defined; callers normalize it.
func (c *Client) GetEngagement(ctx context.Context, token, platformPostID string) (map[string]any, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, contracts.NewTransient("engagement", err)
	}

	url := fmt.Sprintf("%s/posts/%s/engagement", c.baseURL, platformPostID)
	resp, err := c.httpClient.GetWithHeaders(ctx, url, bearer(token))
	if err != nil {
		return nil, contracts.NewTransient("engagement", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, contracts.NewPermanent("engagement", fmt.Errorf("token rejected"))
	case resp.StatusCode == http.StatusNotFound:
		return nil, contracts.NewPermanent("engagement", fmt.Errorf("post %s not found", platformPostID))
	case httputil.IsRetryableError(resp.StatusCode):
		return nil, contracts.NewTransient("engagement", fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, contracts.NewPermanent("engagement", fmt.Errorf("status %d", resp.StatusCode))
	}

	var raw map[string]any
	if err := decodeJSON(resp.Body, &raw); err != nil {
		return nil, contracts.NewPermanent("engagement", err)
	}

	return raw, nil
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func decodeJSON(r io.Reader, dest interface{}) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read response body failed: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("malformed response: %w", err)
	}
	return nil
}
