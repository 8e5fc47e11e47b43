package hnswindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/neurobridge-assistant/internal/platform/vectorindex"
)

func vec(id, doc string, values ...float32) vectorindex.Vector {
	return vectorindex.Vector{
		ID:       id,
		Values:   values,
		Metadata: map[string]any{vectorindex.MetaDocumentID: doc},
	}
}

func TestIndexQueryOrdersBySimilarity(t *testing.T) {
	ctx := context.Background()
	idx, err := New(Config{Dimensions: 3})
	require.NoError(t, err)

	require.NoError(t, idx.Upsert(ctx, "docs", []vectorindex.Vector{
		vec("a#0", "a", 1, 0, 0),
		vec("a#1", "a", 0.9, 0.1, 0),
		vec("b#0", "b", 0, 1, 0),
		vec("b#1", "b", 0, 0, 1),
	}))

	matches, err := idx.QueryMatches(ctx, "docs", []float32{1, 0, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "a#0", matches[0].ID)
	assert.Equal(t, "a#1", matches[1].ID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
	assert.Equal(t, "a", matches[0].Metadata[vectorindex.MetaDocumentID])
}

func TestIndexFilterScopesToDocument(t *testing.T) {
	ctx := context.Background()
	idx, err := New(Config{Dimensions: 2})
	require.NoError(t, err)
	require.NoError(t, idx.Upsert(ctx, "", []vectorindex.Vector{
		vec("a#0", "a", 1, 0),
		vec("b#0", "b", 1, 0.01),
		vec("b#1", "b", 0, 1),
	}))

	matches, err := idx.QueryMatches(ctx, "", []float32{1, 0}, 5, vectorindex.DocumentFilter("b"))
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "b#0", matches[0].ID)
	assert.Equal(t, "b#1", matches[1].ID)

	_, err = idx.QueryMatches(ctx, "", []float32{1, 0}, 5, map[string]any{"document_id": map[string]any{"$gt": 1}})
	assert.Error(t, err)
}

func TestIndexUpsertReplacesAndDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	idx, err := New(Config{Dimensions: 2})
	require.NoError(t, err)

	require.NoError(t, idx.Upsert(ctx, "docs", []vectorindex.Vector{vec("a#0", "a", 1, 0), vec("a#1", "a", 0, 1)}))
	require.NoError(t, idx.Upsert(ctx, "docs", []vectorindex.Vector{vec("a#0", "a", 0, 1)}))
	assert.Equal(t, 2, idx.Count("docs"))

	matches, err := idx.QueryMatches(ctx, "docs", []float32{1, 0}, 10, nil)
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	n, err := idx.DeleteByDocument(ctx, "docs", "a")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = idx.DeleteByDocument(ctx, "docs", "a")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	matches, err = idx.QueryMatches(ctx, "docs", []float32{1, 0}, 10, nil)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestIndexRejectsWrongDimensions(t *testing.T) {
	ctx := context.Background()
	idx, err := New(Config{Dimensions: 3})
	require.NoError(t, err)

	assert.Error(t, idx.Upsert(ctx, "docs", []vectorindex.Vector{vec("a#0", "a", 1, 0)}))
	_, err = idx.QueryMatches(ctx, "docs", []float32{1}, 1, nil)
	assert.Error(t, err)

	_, err = New(Config{})
	assert.Error(t, err)
}

func TestIndexZeroTopKAndEmptyNamespace(t *testing.T) {
	ctx := context.Background()
	idx, err := New(Config{Dimensions: 2})
	require.NoError(t, err)

	matches, err := idx.QueryMatches(ctx, "missing", []float32{1, 0}, 3, nil)
	require.NoError(t, err)
	assert.Empty(t, matches)

	require.NoError(t, idx.Upsert(ctx, "docs", []vectorindex.Vector{vec("a#0", "a", 1, 0)}))
	matches, err = idx.QueryMatches(ctx, "docs", []float32{1, 0}, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestIndexTiesFollowInsertionOrder(t *testing.T) {
	ctx := context.Background()
	for _, exactBelow := range []int{0, -1} {
		idx, err := New(Config{Dimensions: 2, ExactScanBelow: exactBelow})
		require.NoError(t, err)

		var vs []vectorindex.Vector
		for i := 0; i < 12; i++ {
			vs = append(vs, vec(vectorindex.RecordID("doc", i), "doc", 1, 1))
		}
		require.NoError(t, idx.Upsert(ctx, "docs", vs))

		want := []string{"doc#0", "doc#1", "doc#2"}
		for _, filter := range []map[string]any{nil, vectorindex.DocumentFilter("doc")} {
			matches, err := idx.QueryMatches(ctx, "docs", []float32{1, 1}, 3, filter)
			require.NoError(t, err)
			got := make([]string, 0, len(matches))
			for _, m := range matches {
				got = append(got, m.ID)
			}
			assert.Equal(t, want, got, "exactBelow=%d filtered=%v", exactBelow, filter != nil)
		}
	}
}
