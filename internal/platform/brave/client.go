// Package brave is a minimal client for the Brave Search web endpoint.
package brave

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/neurobridge-assistant/internal/pkg/envutil"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/logger"
)

const (
	defaultBaseURL = "https://api.search.brave.com"
	searchPath     = "/res/v1/web/search"
)

type Client interface {
	Search(ctx context.Context, p SearchParams) (*SearchResponse, error)
}

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		APIKey:  envutil.String("BRAVE_API_KEY", ""),
		BaseURL: envutil.String("BRAVE_BASE_URL", defaultBaseURL),
		Timeout: envutil.Duration("BRAVE_TIMEOUT_SECONDS", 10*time.Second, time.Second),
	}
}

type SearchParams struct {
	Query      string
	Count      int
	SafeSearch string
	// Freshness is one of pd, pw, pm, py or a date range; empty means any time.
	Freshness    string
	ResultFilter []string
}

type Result struct {
	Title         string   `json:"title"`
	URL           string   `json:"url"`
	Description   string   `json:"description"`
	Age           string   `json:"age,omitempty"`
	PageAge       string   `json:"page_age,omitempty"`
	ExtraSnippets []string `json:"extra_snippets,omitempty"`
}

// PublishedAt parses PageAge, which Brave sends without a zone.
func (r Result) PublishedAt() (time.Time, bool) {
	s := strings.TrimSpace(r.PageAge)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

type resultSet struct {
	Results []Result `json:"results"`
}

type SearchResponse struct {
	Web  resultSet `json:"web"`
	News resultSet `json:"news"`
}

func (r *SearchResponse) WebResults() []Result  { return r.Web.Results }
func (r *SearchResponse) NewsResults() []Result { return r.News.Results }

type braveHTTPError struct {
	StatusCode int
	Body       string
}

func (e *braveHTTPError) Error() string {
	body := e.Body
	if len(body) > 512 {
		body = body[:512]
	}
	return fmt.Sprintf("brave http %d: %s", e.StatusCode, body)
}

func (e *braveHTTPError) HTTPStatusCode() int { return e.StatusCode }

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(log *logger.Logger, cfg Config) (Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing BRAVE_API_KEY")
	}
	return newClient(log, cfg, nil), nil
}

func newClient(log *logger.Logger, cfg Config, httpClient *http.Client) *client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &client{
		log:        log.With("client", "BraveSearchClient"),
		baseURL:    base,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: httpClient,
	}
}

func (c *client) Search(ctx context.Context, p SearchParams) (*SearchResponse, error) {
	q := strings.TrimSpace(p.Query)
	if q == "" {
		return nil, fmt.Errorf("brave search: empty query")
	}
	v := url.Values{}
	v.Set("q", q)
	if p.Count > 0 {
		v.Set("count", strconv.Itoa(p.Count))
	}
	if p.SafeSearch != "" {
		v.Set("safesearch", p.SafeSearch)
	}
	if p.Freshness != "" {
		v.Set("freshness", p.Freshness)
	}
	if len(p.ResultFilter) > 0 {
		v.Set("result_filter", strings.Join(p.ResultFilter, ","))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+searchPath+"?"+v.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn("Brave search failed", "status", resp.StatusCode, "duration", time.Since(start).String())
		return nil, &braveHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	var out SearchResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("brave decode error: %w", err)
	}
	c.log.Debug("Brave search ok",
		"web_results", len(out.Web.Results),
		"news_results", len(out.News.Results),
		"duration", time.Since(start).String(),
	)
	return &out, nil
}
