package genapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/wonny/vox/backend/internal/contracts"
	"github.com/wonny/vox/backend/pkg/config"
	"github.com/wonny/vox/backend/pkg/httputil"
	"github.com/wonny/vox/backend/pkg/logger"
	"github.com/wonny/vox/backend/pkg/redis"
)

// Client handles communication with the text generation API
// ⭐ SSOT: 생성 API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	limiter    *redis.RateLimiter
	logger     *logger.Logger
	baseURL    string
	apiKey     string
	model      string
}

// NewClient creates a new generation API client. limiter may be nil;
// when set, calls share the generator quota across processes.
func NewClient(cfg *config.Config, httpClient *httputil.Client, limiter *redis.RateLimiter, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		limiter:    limiter,
		logger:     log.WithField("module", "genapi"),
		baseURL:    strings.TrimRight(cfg.Generator.BaseURL, "/"),
		apiKey:     cfg.Generator.APIKey,
		model:      cfg.Generator.Model,
	}
}

type generateRequest struct {
	Model        string     `json:"model"`
	TopicTitle   string     `json:"topic_title"`
	TopicContent string     `json:"topic_content"`
	PersonaName  string     `json:"persona_name"`
	PersonaStyle string     `json:"persona_style"`
	Stock        *stockHint `json:"stock,omitempty"`
}

type stockHint struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type generateResponse struct {
	Title   string `json:"title"`
	Body    string `json:"body"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Generate produces commentary for a topic under a persona.
// A nil stock degrades to a non-stock-specific narrative.
func (c *Client) Generate(ctx context.Context, topic contracts.Topic, persona contracts.Persona, stock *contracts.Stock) (*contracts.GeneratedContent, error) {
	req := generateRequest{
		Model:        c.model,
		TopicTitle:   topic.Title,
		TopicContent: topic.RawContent,
		PersonaName:  persona.Name,
		PersonaStyle: persona.Style,
	}
	if stock != nil {
		req.Stock = &stockHint{Code: stock.Code, Name: stock.Name}
	}

	var resp generateResponse
	if err := c.postJSON(ctx, "/v1/generate", req, &resp); err != nil {
		return nil, err
	}

	if !resp.Success || resp.Title == "" || resp.Body == "" {
		return nil, contracts.NewPermanent("generate",
			fmt.Errorf("generation rejected: %s", resp.Error))
	}

	c.logger.WithFields(map[string]interface{}{
		"topic_id": topic.ID,
		"persona":  persona.ID,
		"title":    resp.Title,
	}).Debug("Generated content")

	return &contracts.GeneratedContent{Title: resp.Title, Body: resp.Body}, nil
}

type classifyRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Classify tags a topic via the classification endpoint
func (c *Client) Classify(ctx context.Context, topic contracts.Topic) (*contracts.Classification, error) {
	req := classifyRequest{Title: topic.Title, Content: topic.RawContent}

	var resp contracts.Classification
	if err := c.postJSON(ctx, "/v1/classify", req, &resp); err != nil {
		return nil, err
	}

	if len(resp.PersonaTags) == 0 && len(resp.IndustryTags) == 0 &&
		len(resp.EventTags) == 0 && len(resp.StockTags) == 0 {
		return nil, contracts.NewPermanent("classify",
			fmt.Errorf("empty classification for topic %s", topic.ID))
	}

	return &resp, nil
}

// postJSON executes a POST and maps failures onto the error taxonomy
func (c *Client) postJSON(ctx context.Context, path string, payload, dest interface{}) error {
	op := strings.TrimPrefix(path, "/v1/")

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, redis.GeneratorRateLimit); err != nil {
			return contracts.NewTransient(op, err)
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return contracts.NewPermanent(op, fmt.Errorf("marshal request: %w", err))
	}

	fullURL := c.baseURL + path
	headers := map[string]string{}
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}

	resp, err := c.httpClient.PostWithHeaders(ctx, fullURL, "application/json", strings.NewReader(string(body)), headers)
	if err != nil {
		// Network errors and timeouts are retryable
		return contracts.NewTransient(op, err)
	}
	defer resp.Body.Close()

	if httputil.IsRetryableError(resp.StatusCode) {
		return contracts.NewTransient(op, fmt.Errorf("status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return contracts.NewPermanent(op, fmt.Errorf("status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return contracts.NewTransient(op, fmt.Errorf("read response: %w", err))
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return contracts.NewPermanent(op, fmt.Errorf("malformed response: %w", err))
	}

	return nil
}
