package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/yungbote/neurobridge-assistant/internal/domain"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/logger"
)

// Embedder turns one text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// BatchAPI is the provider surface the client wraps (openai.Client satisfies it).
type BatchAPI interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

type Client struct {
	log *logger.Logger
	api BatchAPI
	dim int
}

// New wraps api. dim <= 0 disables the dimension check.
func New(log *logger.Logger, api BatchAPI, dim int) *Client {
	return &Client{log: log.With("service", "EmbeddingClient"), api: api, dim: dim}
}

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.InputError("cannot embed empty text")
	}
	vecs, err := c.api.Embed(ctx, []string{text})
	if err != nil {
		return nil, domain.EmbeddingServiceError("embed", err)
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return nil, domain.EmbeddingServiceError("embed", fmt.Errorf("provider returned %d vectors", len(vecs)))
	}
	if c.dim > 0 && len(vecs[0]) != c.dim {
		return nil, domain.InvariantError("embedding dimension %d, index expects %d", len(vecs[0]), c.dim)
	}
	return vecs[0], nil
}

func (c *Client) Dimension() int { return c.dim }

// Throttled spaces calls to inner by at least interval. Used on the ingestion
// path to stay under the provider's rate limit.
type Throttled struct {
	inner   Embedder
	limiter *rate.Limiter
}

func NewThrottled(inner Embedder, interval time.Duration) *Throttled {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Throttled{inner: inner, limiter: rate.NewLimiter(limit, 1)}
}

func (t *Throttled) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.inner.Embed(ctx, text)
}
