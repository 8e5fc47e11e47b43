package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/neurobridge-assistant/internal/observability"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/envutil"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/httpx"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/logger"
)

// Client is the subset of the OpenAI API the assistant uses.
type Client interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	// ChatStream starts a streaming completion. The channel is closed after a
	// terminal event (Err set, or Done). Cancelling ctx aborts the request.
	ChatStream(ctx context.Context, req ChatRequest) (<-chan StreamEvent, error)
}

type Config struct {
	APIKey     string
	BaseURL    string
	EmbedModel string
	Timeout    time.Duration
	// MaxRetries is the transport-level retry budget. The assistant applies
	// its own retry policies above this client, so the default is 0.
	MaxRetries int
	// Models that reject the temperature parameter (exact ids or "prefix*").
	NoTemperatureModels []string
}

func ConfigFromEnv() Config {
	return Config{
		APIKey:              envutil.String("OPENAI_API_KEY", ""),
		BaseURL:             envutil.String("OPENAI_BASE_URL", "https://api.openai.com"),
		EmbedModel:          envutil.String("OPENAI_EMBED_MODEL", "text-embedding-3-small"),
		Timeout:             envutil.Duration("OPENAI_TIMEOUT_SECONDS", 120*time.Second, time.Second),
		MaxRetries:          envutil.Int("OPENAI_MAX_RETRIES", 0),
		NoTemperatureModels: splitCSV(envutil.String("OPENAI_NO_TEMPERATURE_MODELS", "o1*,o3*,o4*")),
	}
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	embedModel string
	httpClient *http.Client
	maxRetries int

	noTempModels   map[string]bool
	noTempPrefixes []string

	// Models seen rejecting temperature at runtime.
	noTempMu   sync.RWMutex
	noTempSeen map[string]bool
}

func NewClient(log *logger.Logger, cfg Config) (Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	return newClient(log, cfg, nil), nil
}

func newClient(log *logger.Logger, cfg Config, httpClient *http.Client) *client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = "text-embedding-3-small"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	c := &client{
		log:          log.With("client", "OpenAIClient"),
		baseURL:      baseURL,
		apiKey:       strings.TrimSpace(cfg.APIKey),
		embedModel:   cfg.EmbedModel,
		httpClient:   httpClient,
		maxRetries:   cfg.MaxRetries,
		noTempModels: map[string]bool{},
		noTempSeen:   map[string]bool{},
	}
	for _, m := range cfg.NoTemperatureModels {
		m = strings.ToLower(strings.TrimSpace(m))
		switch {
		case m == "":
		case strings.HasSuffix(m, "*"):
			c.noTempPrefixes = append(c.noTempPrefixes, strings.TrimSuffix(m, "*"))
		default:
			c.noTempModels[m] = true
		}
	}
	return c
}

type openAIHTTPError struct {
	StatusCode int
	Body       string
}

func (e *openAIHTTPError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, truncate(e.Body, 512))
}

func (e *openAIHTTPError) HTTPStatusCode() int { return e.StatusCode }

func (c *client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var rdr io.Reader
	if body != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
		rdr = &buf
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *client) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &openAIHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

// do runs a JSON request with bounded retries on transient failures.
func (c *client) do(ctx context.Context, method, path, model string, body any, out any) error {
	backoff := 500 * time.Millisecond
	start := time.Now()

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		resp, raw, err := c.doOnce(ctx, method, path, body)
		if err == nil {
			in, outTok := extractUsage(raw)
			observability.Current().ObserveLLMRequest(model, path, statusFromResp(resp), time.Since(start), in, outTok)
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("openai decode error: %w", uErr)
			}
			return nil
		}
		if !httpx.IsRetryableError(err) || attempt == c.maxRetries {
			observability.Current().ObserveLLMRequest(model, path, statusFromRespErr(resp, err), time.Since(start), 0, 0)
			return err
		}

		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("OpenAI request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		if sErr := httpx.Sleep(ctx, sleepFor); sErr != nil {
			return err
		}
		backoff *= 2
	}
	return fmt.Errorf("unreachable retry loop")
}

func (c *client) modelIsNoTemp(model string) bool {
	key := strings.ToLower(strings.TrimSpace(model))
	if key == "" {
		return false
	}
	if c.noTempModels[key] {
		return true
	}
	for _, p := range c.noTempPrefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	c.noTempMu.RLock()
	defer c.noTempMu.RUnlock()
	return c.noTempSeen[key]
}

func (c *client) noteNoTempModel(model string) {
	key := strings.ToLower(strings.TrimSpace(model))
	if key == "" {
		return
	}
	c.noTempMu.Lock()
	c.noTempSeen[key] = true
	c.noTempMu.Unlock()
	c.log.Warn("model rejected temperature; omitting from now on", "model", model)
}

func isUnsupportedTemperature(err error) bool {
	he, ok := err.(*openAIHTTPError)
	if !ok || he.StatusCode != http.StatusBadRequest {
		return false
	}
	body := strings.ToLower(he.Body)
	return strings.Contains(body, "temperature") &&
		(strings.Contains(body, "unsupported") || strings.Contains(body, "not support"))
}

func extractUsage(raw []byte) (int, int) {
	var env struct {
		Usage *usagePayload `json:"usage"`
	}
	if err := json.Unmarshal(raw, &env); err != nil || env.Usage == nil {
		return 0, 0
	}
	return env.Usage.PromptTokens, env.Usage.CompletionTokens
}

func statusFromResp(resp *http.Response) string {
	if resp == nil {
		return "error"
	}
	return observability.StatusLabel(resp.StatusCode)
}

func statusFromRespErr(resp *http.Response, err error) string {
	if he, ok := err.(*openAIHTTPError); ok {
		return observability.StatusLabel(he.StatusCode)
	}
	if resp != nil {
		return observability.StatusLabel(resp.StatusCode)
	}
	return "error"
}

// EstimateTokens is the ~4 chars/token heuristic used when the provider
// does not report usage.
func EstimateTokens(text string) int {
	n := len([]rune(text))
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func splitCSV(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
