package retrieval

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/neurobridge-assistant/internal/domain"
	"github.com/yungbote/neurobridge-assistant/internal/modules/assistant/embedding"
	"github.com/yungbote/neurobridge-assistant/internal/modules/assistant/vectorstore"
	"github.com/yungbote/neurobridge-assistant/internal/observability"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/logger"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/retry"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/vecmath"
)

const (
	DefaultTopK  = 5
	keywordBoost = 0.1
)

// DocumentStatuses reports the lifecycle status of documents. Documents
// missing from the result are treated as gone.
type DocumentStatuses interface {
	Statuses(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.DocumentStatus, error)
}

type Engine struct {
	log      *logger.Logger
	embedder embedding.Embedder
	store    vectorstore.Store
	docs     DocumentStatuses
	policy   retry.Policy
}

type Option func(*Engine)

// WithDocumentStatuses drops matches whose document is mid-deletion or gone.
// The relational store already does this; remote indexes need it.
func WithDocumentStatuses(d DocumentStatuses) Option {
	return func(e *Engine) { e.docs = d }
}

func WithRetryPolicy(p retry.Policy) Option {
	return func(e *Engine) { e.policy = p }
}

func NewEngine(log *logger.Logger, embedder embedding.Embedder, store vectorstore.Store, opts ...Option) *Engine {
	e := &Engine{
		log:      log.With("service", "RetrievalEngine"),
		embedder: embedder,
		store:    store,
		policy:   retry.Interactive,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FindRelevantChunks embeds query and returns the topK most similar chunks,
// optionally scoped to one document. An empty corpus yields an empty slice.
func (e *Engine) FindRelevantChunks(ctx context.Context, query string, topK int, documentID *uuid.UUID) (out []domain.RetrievedContext, err error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.InputError("query is empty")
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	ctx, span := observability.StartSpan(ctx, "retrieval.find_relevant_chunks",
		attribute.Int("retrieval.top_k", topK),
		attribute.Bool("retrieval.scoped", documentID != nil),
	)
	start := time.Now()
	defer func() {
		observability.Current().ObserveRetrieval(e.store.Backend(), "semantic", time.Since(start), len(out))
		observability.EndSpan(span, err)
	}()

	vec, err := e.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return e.search(ctx, vec, topK, documentID)
}

// EmbedQuery embeds query under the engine's retry policy, for callers that
// go on to HybridSearch.
func (e *Engine) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.InputError("query is empty")
	}
	return retry.DoValue(ctx, e.policy, func(ctx context.Context) ([]float32, error) {
		return e.embedder.Embed(ctx, query)
	})
}

// HybridSearch fetches 2×topK semantic candidates and reranks them, adding
// 0.1 to the score for every keyword found (case-insensitively) in the chunk
// text. It only reorders; candidates are never added.
func (e *Engine) HybridSearch(ctx context.Context, queryEmbedding []float32, keywords []string, topK int, documentID *uuid.UUID) (out []domain.RetrievedContext, err error) {
	if len(queryEmbedding) == 0 {
		return nil, domain.InputError("query embedding is empty")
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	ctx, span := observability.StartSpan(ctx, "retrieval.hybrid_search",
		attribute.Int("retrieval.top_k", topK),
		attribute.Int("retrieval.keywords", len(keywords)),
	)
	start := time.Now()
	defer func() {
		observability.Current().ObserveRetrieval(e.store.Backend(), "hybrid", time.Since(start), len(out))
		observability.EndSpan(span, err)
	}()

	candidates, err := e.search(ctx, queryEmbedding, 2*topK, documentID)
	if err != nil {
		return nil, err
	}
	return Rerank(candidates, keywords, topK), nil
}

// Rerank applies the keyword boost to candidates and returns the best topK.
func Rerank(candidates []domain.RetrievedContext, keywords []string, topK int) []domain.RetrievedContext {
	needles := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			needles = append(needles, k)
		}
	}
	out := make([]domain.RetrievedContext, len(candidates))
	copy(out, candidates)
	for i := range out {
		text := strings.ToLower(out[i].Text)
		for _, k := range needles {
			if strings.Contains(text, k) {
				out[i].Score += keywordBoost
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > topK {
		out = out[:topK]
	}
	return out
}

func (e *Engine) search(ctx context.Context, vec []float32, k int, documentID *uuid.UUID) ([]domain.RetrievedContext, error) {
	if documentID != nil && e.docs != nil {
		statuses, err := e.docs.Statuses(ctx, []uuid.UUID{*documentID})
		if err != nil {
			return nil, err
		}
		if st, ok := statuses[*documentID]; !ok || st == domain.DocumentDeleting {
			return []domain.RetrievedContext{}, nil
		}
	}

	matches, err := retry.DoValue(ctx, e.policy, func(ctx context.Context) ([]vectorstore.Match, error) {
		return e.store.Query(ctx, vec, k, vectorstore.Filter{DocumentID: documentID})
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.RetrievedContext, 0, len(matches))
	for _, m := range matches {
		out = append(out, toContext(m))
	}
	if documentID == nil && e.docs != nil && len(out) > 0 {
		out, err = e.dropDeleted(ctx, out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (e *Engine) dropDeleted(ctx context.Context, in []domain.RetrievedContext) ([]domain.RetrievedContext, error) {
	ids := make([]uuid.UUID, 0, len(in))
	seen := map[uuid.UUID]bool{}
	for _, c := range in {
		id, err := uuid.Parse(c.DocumentID)
		if err != nil || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	statuses, err := e.docs.Statuses(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := in[:0]
	for _, c := range in {
		id, err := uuid.Parse(c.DocumentID)
		if err != nil {
			continue
		}
		if st, ok := statuses[id]; ok && st != domain.DocumentDeleting {
			out = append(out, c)
		}
	}
	return out, nil
}

func toContext(m vectorstore.Match) domain.RetrievedContext {
	chunkID := vectorstore.MetaString(m.Metadata, vectorstore.MetaChunkID)
	if chunkID == "" {
		chunkID = m.ID
	}
	return domain.RetrievedContext{
		ChunkID:       chunkID,
		DocumentID:    vectorstore.MetaString(m.Metadata, vectorstore.MetaDocumentID),
		DocumentTitle: vectorstore.MetaString(m.Metadata, vectorstore.MetaDocumentTitle),
		ChunkIndex:    vectorstore.MetaInt(m.Metadata, vectorstore.MetaChunkIndex),
		Text:          vectorstore.MetaString(m.Metadata, vectorstore.MetaText),
		Similarity:    vecmath.Clamp01(m.Score),
		Score:         m.Score,
	}
}

// CosineSimilarity is dot(a,b)/(|a||b|), or 0 when either magnitude is 0.
func CosineSimilarity(a, b []float32) float64 {
	return vecmath.Cosine(a, b)
}
