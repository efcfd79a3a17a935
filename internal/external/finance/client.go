package finance

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/vox/backend/internal/contracts"
	"github.com/wonny/vox/backend/pkg/config"
	"github.com/wonny/vox/backend/pkg/httputil"
	"github.com/wonny/vox/backend/pkg/logger"
	"github.com/wonny/vox/backend/pkg/redis"
)

// Client handles communication with the finance portal
// ⭐ SSOT: 시세 포털 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	limiter    *redis.RateLimiter
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new finance portal client. limiter may be nil;
// the portal gets scraped politely when it is not.
func NewClient(cfg *config.Config, httpClient *httputil.Client, limiter *redis.RateLimiter, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		limiter:    limiter,
		logger:     log.WithField("module", "finance"),
		baseURL:    strings.TrimRight(cfg.Finance.BaseURL, "/"),
	}
}

// codeRe matches a 6-digit stock code inside a detail page link
var codeRe = regexp.MustCompile(`code=(\d{6})`)

// StocksForTopic finds stocks related to a topic. Stock tags from the
// classification are looked up first; the topic title is the fallback
// query. The result is deduplicated by code and capped.
func (c *Client) StocksForTopic(ctx context.Context, topic contracts.Topic) ([]contracts.Stock, error) {
	queries := make([]string, 0, len(topic.Tags.Stock)+1)
	queries = append(queries, topic.Tags.Stock...)
	if len(queries) == 0 && topic.Title != "" {
		queries = append(queries, topic.Title)
	}

	const maxStocks = 10

	seen := make(map[string]bool)
	var stocks []contracts.Stock
	for _, q := range queries {
		found, err := c.searchStocks(ctx, q)
		if err != nil {
			// One failed query does not fail the lookup
			c.logger.WithError(err).WithField("query", q).Warn("Stock search failed")
			continue
		}
		for _, s := range found {
			if seen[s.Code] {
				continue
			}
			seen[s.Code] = true
			stocks = append(stocks, s)
			if len(stocks) >= maxStocks {
				return stocks, nil
			}
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"topic_id": topic.ID,
		"count":    len(stocks),
	}).Debug("Resolved stocks for topic")
	return stocks, nil
}

// searchStocks queries the portal's stock search page
func (c *Client) searchStocks(ctx context.Context, query string) ([]contracts.Stock, error) {
	fullURL := fmt.Sprintf("%s/search/searchList.naver?query=%s",
		c.baseURL, url.QueryEscape(query))

	html, err := c.fetchHTML(ctx, fullURL)
	if err != nil {
		return nil, err
	}

	return c.parseStockTable(html)
}

// LimitUpStocks fetches today's limit-up list
// ⭐ SSOT: 상한가 조회는 이 함수에서만
func (c *Client) LimitUpStocks(ctx context.Context) ([]contracts.Stock, error) {
	fullURL := c.baseURL + "/sise/sise_upper.naver"

	html, err := c.fetchHTML(ctx, fullURL)
	if err != nil {
		return nil, err
	}

	stocks, err := c.parseStockTable(html)
	if err != nil {
		return nil, err
	}

	c.logger.WithField("count", len(stocks)).Debug("Fetched limit-up stocks")
	return stocks, nil
}

// fetchHTML fetches a portal page
func (c *Client) fetchHTML(ctx context.Context, fullURL string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, redis.FinanceRateLimit); err != nil {
			return "", contracts.NewTransient("finance", err)
		}
	}

	headers := map[string]string{
		"User-Agent": "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
		"Referer":    c.baseURL + "/",
	}

	resp, err := c.httpClient.GetWithHeaders(ctx, fullURL, headers)
	if err != nil {
		return "", contracts.NewTransient("finance", err)
	}
	defer resp.Body.Close()

	if httputil.IsRetryableError(resp.StatusCode) {
		return "", contracts.NewTransient("finance", fmt.Errorf("status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return "", contracts.NewPermanent("finance", fmt.Errorf("status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", contracts.NewTransient("finance", fmt.Errorf("read response body failed: %w", err))
	}

	return string(body), nil
}

// parseStockTable extracts stocks from any portal page that lists them
// as anchors onto the item detail page
func (c *Client) parseStockTable(html string) ([]contracts.Stock, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, contracts.NewPermanent("finance", fmt.Errorf("parse HTML: %w", err))
	}

	seen := make(map[string]bool)
	var stocks []contracts.Stock

	doc.Find("a").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || !strings.Contains(href, "/item/main") {
			return
		}

		m := codeRe.FindStringSubmatch(href)
		if m == nil {
			return
		}

		code := m[1]
		name := strings.TrimSpace(sel.Text())
		if name == "" || seen[code] {
			return
		}

		seen[code] = true
		stocks = append(stocks, contracts.Stock{Code: code, Name: name})
	})

	return stocks, nil
}
