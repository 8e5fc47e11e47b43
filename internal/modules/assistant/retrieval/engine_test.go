package retrieval

import (
	"context"
	"errors"
	"hash/fnv"
	"math/rand"
	"sort"
	"strings"
	"testing"
	"unicode"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/neurobridge-assistant/internal/data/repos"
	"github.com/yungbote/neurobridge-assistant/internal/data/repos/testutil"
	"github.com/yungbote/neurobridge-assistant/internal/domain"
	"github.com/yungbote/neurobridge-assistant/internal/modules/assistant/chunker"
	"github.com/yungbote/neurobridge-assistant/internal/modules/assistant/embedding"
	"github.com/yungbote/neurobridge-assistant/internal/modules/assistant/vectorstore"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/logger"
	"github.com/yungbote/neurobridge-assistant/internal/platform/hnswindex"
)

const hashDim = 512

// hashEmbedder is a bag-of-words embedder: each token of three or more
// runes increments one FNV-hashed bucket.
type hashEmbedder struct{}

func (h *hashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.InputError("empty")
	}
	v := make([]float32, hashDim)
	for _, tok := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(tok) < 3 {
			continue
		}
		f := fnv.New32a()
		_, _ = f.Write([]byte(tok))
		v[f.Sum32()%hashDim]++
	}
	return v, nil
}

type fixedEmbedder struct {
	vec []float32
	err error
}

func (f fixedEmbedder) Embed(context.Context, string) ([]float32, error) {
	return f.vec, f.err
}

type sqlFixture struct {
	store  vectorstore.Store
	docs   repos.DocumentRepo
	engine func(e embedding.Embedder) *Engine
	seed   func(title string, status domain.DocumentStatus) *domain.Document
}

func newSQLFixture(t *testing.T) sqlFixture {
	t.Helper()
	db := testutil.DB(t)
	log := logger.Nop()
	store := vectorstore.NewRelational(db, repos.NewChunkRepo(db, log), log, 0)
	docs := repos.NewDocumentRepo(db, log)
	return sqlFixture{
		store: store,
		docs:  docs,
		engine: func(e embedding.Embedder) *Engine {
			return NewEngine(log, e, store, WithDocumentStatuses(NewRepoStatuses(docs)))
		},
		seed: func(title string, status domain.DocumentStatus) *domain.Document {
			return testutil.SeedDocument(t, context.Background(), db, title, status)
		},
	}
}

const reactHooksTutorial = "React Hooks let function components hold state and side effects without writing classes.\n" +
	"The useState hook returns the current state value and a setter function that updates it.\n" +
	"Calling the useState setter schedules a re-render with the new state value for the component.\n" +
	"The useEffect hook runs side effects after render and can return a cleanup function.\n" +
	"Custom hooks compose built-in hooks so stateful logic can be shared between components."

func TestFindRelevantChunksReactHooksScenario(t *testing.T) {
	ctx := context.Background()
	fx := newSQLFixture(t)
	emb := &hashEmbedder{}

	react := fx.seed("React Hooks Tutorial", domain.DocumentReady)
	pieces := chunker.Chunk(reactHooksTutorial, chunker.Options{MaxSize: 110, Overlap: 20})
	require.Len(t, pieces, 5)
	vecs := make([][]float32, len(pieces))
	for i, p := range pieces {
		v, err := emb.Embed(ctx, p)
		require.NoError(t, err)
		vecs[i] = v
	}
	require.NoError(t, fx.store.Upsert(ctx, react.ID, pieces, vecs, nil))

	css := fx.seed("CSS Layout", domain.DocumentReady)
	flexbox := "CSS flexbox arranges items along a main axis with justify-content and align-items."
	flexVec, err := emb.Embed(ctx, flexbox)
	require.NoError(t, err)
	require.NoError(t, fx.store.Upsert(ctx, css.ID, []string{flexbox}, [][]float32{flexVec}, nil))

	engine := fx.engine(emb)
	results, err := engine.FindRelevantChunks(ctx, "How does useState work?", 3, &react.ID)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Contains(t, results[0].Text, "useState")
	assert.Equal(t, "React Hooks Tutorial", results[0].DocumentTitle)
	for _, r := range results {
		assert.Equal(t, react.ID.String(), r.DocumentID)
	}

	queryVec, _ := emb.Embed(ctx, "How does useState work?")
	assert.Greater(t, results[0].Similarity, CosineSimilarity(queryVec, flexVec))
}

func TestFindRelevantChunksOrderingAndTopK(t *testing.T) {
	ctx := context.Background()
	fx := newSQLFixture(t)
	rng := rand.New(rand.NewSource(7))

	doc := fx.seed("random", domain.DocumentReady)
	const n = 25
	texts := make([]string, n)
	vecs := make([][]float32, n)
	for i := range texts {
		texts[i] = "chunk"
		vecs[i] = []float32{rng.Float32()*2 - 1, rng.Float32()*2 - 1, rng.Float32()*2 - 1}
	}
	require.NoError(t, fx.store.Upsert(ctx, doc.ID, texts, vecs, nil))

	engine := fx.engine(fixedEmbedder{vec: []float32{0.3, -0.2, 0.9}})
	for _, k := range []int{1, 5, 10, 40} {
		results, err := engine.FindRelevantChunks(ctx, "anything", k, nil)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(results), k)
		assert.True(t, sort.SliceIsSorted(results, func(i, j int) bool {
			return results[i].Score > results[j].Score
		}), "k=%d results not sorted", k)
		for _, r := range results {
			assert.GreaterOrEqual(t, r.Similarity, 0.0)
			assert.LessOrEqual(t, r.Similarity, 1.0)
		}
	}
}

func TestFindRelevantChunksEmptyCorpus(t *testing.T) {
	ctx := context.Background()
	fx := newSQLFixture(t)
	doc := fx.seed("empty", domain.DocumentReady)

	engine := fx.engine(fixedEmbedder{vec: []float32{1, 0}})
	results, err := engine.FindRelevantChunks(ctx, "anything", 5, &doc.ID)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)

	results, err = engine.FindRelevantChunks(ctx, "anything", 5, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFindRelevantChunksDeletingDocumentIsEmpty(t *testing.T) {
	ctx := context.Background()
	idx, err := hnswindex.New(hnswindex.Config{Dimensions: 2})
	require.NoError(t, err)
	fx := newSQLFixture(t)
	remote := vectorstore.NewRemote(idx, "memory", "test", 2)

	live := fx.seed("live", domain.DocumentReady)
	dying := fx.seed("dying", domain.DocumentDeleting)
	require.NoError(t, remote.Upsert(ctx, live.ID, []string{"live text"}, [][]float32{{1, 0}}, nil))
	require.NoError(t, remote.Upsert(ctx, dying.ID, []string{"dying text"}, [][]float32{{1, 0}}, nil))

	engine := NewEngine(logger.Nop(), fixedEmbedder{vec: []float32{1, 0}}, remote,
		WithDocumentStatuses(NewRepoStatuses(fx.docs)))

	scoped, err := engine.FindRelevantChunks(ctx, "q", 5, &dying.ID)
	require.NoError(t, err)
	assert.Empty(t, scoped)

	all, err := engine.FindRelevantChunks(ctx, "q", 5, nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "live text", all[0].Text)

	unknown := uuid.New()
	none, err := engine.FindRelevantChunks(ctx, "q", 5, &unknown)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFindRelevantChunksErrors(t *testing.T) {
	ctx := context.Background()
	fx := newSQLFixture(t)

	_, err := fx.engine(fixedEmbedder{vec: []float32{1}}).FindRelevantChunks(ctx, "   ", 5, nil)
	assert.Equal(t, domain.KindInput, domain.KindOf(err))

	embedErr := domain.EmbeddingServiceError("embed", errors.New("quota"))
	engine := NewEngine(logger.Nop(), fixedEmbedder{err: embedErr}, fx.store, WithRetryPolicy(noRetry))
	_, err = engine.FindRelevantChunks(ctx, "q", 5, nil)
	assert.Equal(t, domain.KindEmbeddingService, domain.KindOf(err))
}

func TestHybridSearchBoostsKeywordMatches(t *testing.T) {
	ctx := context.Background()
	fx := newSQLFixture(t)
	doc := fx.seed("hybrid", domain.DocumentReady)

	require.NoError(t, fx.store.Upsert(ctx, doc.ID,
		[]string{"closest but unrelated", "mentions goroutines and channels", "far away"},
		[][]float32{{1, 0}, {0.95, 0.31}, {0, 1}}, nil))

	engine := fx.engine(&hashEmbedder{})
	plain, err := engine.HybridSearch(ctx, []float32{1, 0}, nil, 2, nil)
	require.NoError(t, err)
	require.Len(t, plain, 2)
	assert.Equal(t, "closest but unrelated", plain[0].Text)

	boosted, err := engine.HybridSearch(ctx, []float32{1, 0}, []string{"Goroutines", "channels"}, 2, nil)
	require.NoError(t, err)
	require.Len(t, boosted, 2)
	assert.Equal(t, "mentions goroutines and channels", boosted[0].Text)
	assert.InDelta(t, boosted[0].Similarity+0.2, boosted[0].Score, 1e-6)
}

func TestRerankMonotonic(t *testing.T) {
	base := []domain.RetrievedContext{
		{ChunkID: "a", Text: "alpha beta", Score: 0.5, Similarity: 0.5},
		{ChunkID: "b", Text: "gamma", Score: 0.55, Similarity: 0.55},
	}
	without := Rerank(base, []string{"delta"}, 2)
	with := Rerank(base, []string{"alpha"}, 2)

	score := func(rs []domain.RetrievedContext, id string) float64 {
		for _, r := range rs {
			if r.ChunkID == id {
				return r.Score
			}
		}
		t.Fatalf("missing %s", id)
		return 0
	}
	assert.GreaterOrEqual(t, score(with, "a"), score(without, "a"))
	assert.Equal(t, "a", with[0].ChunkID)
	assert.Equal(t, 0.5, base[0].Score, "input must not be mutated")
}

func TestExtractKeywords(t *testing.T) {
	got := ExtractKeywords("How does the useState hook work with useEffect in React? useState!")
	assert.Equal(t, []string{"usestate", "hook", "work", "useeffect", "react"}, got)
	assert.Empty(t, ExtractKeywords("how do I"))
}
