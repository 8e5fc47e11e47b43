package vectorstore

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-assistant/internal/observability"
	"github.com/yungbote/neurobridge-assistant/internal/platform/vectorindex"
)

const maxTieSlack = 32

var lastUpsertStamp atomic.Int64

// nextUpsertStamp is the wall clock in microseconds, bumped so that two
// upserts in one process never share a stamp.
func nextUpsertStamp() int64 {
	for {
		now := time.Now().UnixMicro()
		last := lastUpsertStamp.Load()
		if now <= last {
			now = last + 1
		}
		if lastUpsertStamp.CompareAndSwap(last, now) {
			return now
		}
	}
}

type remote struct {
	index     vectorindex.VectorStore
	backend   string
	namespace string

	mu  sync.Mutex
	dim int
}

// NewRemote adapts a nearest-neighbour index. backend names it in metrics
// ("pinecone", "qdrant", "memory").
func NewRemote(index vectorindex.VectorStore, backend, namespace string, dim int) Store {
	return &remote{index: index, backend: backend, namespace: namespace, dim: dim}
}

func (s *remote) Backend() string { return s.backend }

func (s *remote) Upsert(ctx context.Context, documentID uuid.UUID, chunks []string, vectors [][]float32, extra map[string]any) (err error) {
	start := time.Now()
	defer func() {
		observability.Current().ObserveVectorStore(s.backend, "upsert", time.Since(start), err)
	}()

	s.mu.Lock()
	dim, err := validateUpsert(s.dim, chunks, vectors)
	if err == nil {
		s.dim = dim
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}

	upsertedAt := nextUpsertStamp()
	records := make([]vectorindex.Vector, 0, len(chunks))
	for i, text := range chunks {
		meta := recordMetadata(documentID, i, text, extra)
		meta[vectorindex.MetaUpsertedAt] = upsertedAt
		records = append(records, vectorindex.Vector{
			ID:       vectorindex.RecordID(documentID.String(), i),
			Values:   vectors[i],
			Metadata: meta,
		})
	}
	return s.index.Upsert(ctx, s.namespace, records)
}

func (s *remote) DeleteByDocument(ctx context.Context, documentID uuid.UUID) (n int, err error) {
	start := time.Now()
	defer func() {
		observability.Current().ObserveVectorStore(s.backend, "delete", time.Since(start), err)
	}()
	return s.index.DeleteByDocument(ctx, s.namespace, documentID.String())
}

func (s *remote) Query(ctx context.Context, vector []float32, topK int, filter Filter) (out []Match, err error) {
	start := time.Now()
	defer func() {
		observability.Current().ObserveVectorStore(s.backend, "query", time.Since(start), err)
	}()
	if topK <= 0 {
		return []Match{}, nil
	}
	var f map[string]any
	if filter.DocumentID != nil {
		f = vectorindex.DocumentFilter(filter.DocumentID.String())
	}
	// Hosted indexes cut ties arbitrarily; fetch past topK so records tied
	// at the cut-off can be reordered by insertion.
	matches, err := s.index.QueryMatches(ctx, s.namespace, vector, topK+min(topK, maxTieSlack), f)
	if err != nil {
		return nil, err
	}
	vectorindex.SortMatches(matches)
	out = make([]Match, 0, len(matches))
	for _, m := range matches {
		out = append(out, Match{ID: m.ID, Score: m.Score, Metadata: m.Metadata})
	}
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}
