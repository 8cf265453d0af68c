// Package search wraps the Tavily web search API used by the research tools.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	applog "arena/internal/logger"
)

const (
	defaultBaseURL    = "https://api.tavily.com"
	defaultMaxResults = 5
	maxRetries        = 3
)

// Client calls the Tavily /search endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a search client. An empty apiKey produces a client whose
// calls fail with a clear error, so the agent can still run without search.
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool { return c != nil && c.apiKey != "" }

// Request selects what to search for.
type Request struct {
	Query      string `json:"query"`
	Topic      string `json:"topic,omitempty"` // "news" or "general"
	Depth      string `json:"search_depth,omitempty"`
	MaxResults int    `json:"max_results,omitempty"`
	Days       int    `json:"days,omitempty"`
}

// Result is one search hit.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score,omitempty"`
}

// Response is the trimmed Tavily answer.
type Response struct {
	Query   string   `json:"query"`
	Answer  string   `json:"answer,omitempty"`
	Results []Result `json:"results"`
}

type wireRequest struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	Topic         string `json:"topic,omitempty"`
	SearchDepth   string `json:"search_depth,omitempty"`
	MaxResults    int    `json:"max_results,omitempty"`
	Days          int    `json:"days,omitempty"`
	IncludeAnswer bool   `json:"include_answer"`
}

// Search performs one query with bounded retries on transient failures.
func (c *Client) Search(ctx context.Context, req Request) (*Response, error) {
	if c == nil || c.apiKey == "" {
		return nil, fmt.Errorf("search is not configured (missing api key)")
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return nil, fmt.Errorf("search query is required")
	}
	if req.MaxResults <= 0 || req.MaxResults > 20 {
		req.MaxResults = defaultMaxResults
	}
	if req.Depth == "" {
		req.Depth = "basic"
	}
	payload, err := json.Marshal(wireRequest{
		APIKey:        c.apiKey,
		Query:         req.Query,
		Topic:         req.Topic,
		SearchDepth:   req.Depth,
		MaxResults:    req.MaxResults,
		Days:          req.Days,
		IncludeAnswer: true,
	})
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
		resp, err := c.doSearch(ctx, payload)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		applog.Warnf("search attempt %d/%d failed: %v", attempt+1, maxRetries, err)
	}
	return nil, fmt.Errorf("search failed after %d attempts: %w", maxRetries, lastErr)
}

func (c *Client) doSearch(ctx context.Context, payload []byte) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search api returned %d: %s", httpResp.StatusCode, strings.TrimSpace(string(body)))
	}
	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}
	return &out, nil
}

// CryptoNews searches recent news for a crypto query.
func (c *Client) CryptoNews(ctx context.Context, query string, maxResults int) (*Response, error) {
	return c.Search(ctx, Request{
		Query:      query + " cryptocurrency",
		Topic:      "news",
		MaxResults: maxResults,
		Days:       3,
	})
}

// TechnicalAnalysis searches for current technical analysis commentary on a symbol.
func (c *Client) TechnicalAnalysis(ctx context.Context, symbol string) (*Response, error) {
	return c.Search(ctx, Request{
		Query:      fmt.Sprintf("%s technical analysis price prediction support resistance", symbol),
		Topic:      "news",
		Depth:      "advanced",
		MaxResults: defaultMaxResults,
		Days:       2,
	})
}

// GeneralWeb runs an unscoped web search.
func (c *Client) GeneralWeb(ctx context.Context, query string, maxResults int) (*Response, error) {
	return c.Search(ctx, Request{
		Query:      query,
		MaxResults: maxResults,
	})
}
