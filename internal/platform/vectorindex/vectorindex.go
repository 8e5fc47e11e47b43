// Package vectorindex defines the contract shared by the nearest-neighbour
// backends (Pinecone, Qdrant, in-memory HNSW).
package vectorindex

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	MetaDocumentID    = "document_id"
	MetaDocumentTitle = "document_title"
	MetaChunkID       = "chunk_id"
	MetaChunkIndex    = "chunk_index"
	MetaText          = "text"
	// MetaUpsertedAt is the upsert time in unix microseconds. Together with
	// the chunk index it recovers insertion order from backends that do not
	// keep one.
	MetaUpsertedAt = "upserted_at"
)

type Vector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type VectorMatch struct {
	ID       string
	Score    float64
	Metadata map[string]any
}

type VectorStore interface {
	Upsert(ctx context.Context, namespace string, vectors []Vector) error
	// QueryMatches returns at most topK matches, best first. Scores are
	// cosine similarity (higher is better).
	QueryMatches(ctx context.Context, namespace string, q []float32, topK int, filter map[string]any) ([]VectorMatch, error)
	DeleteIDs(ctx context.Context, namespace string, ids []string) error
	// DeleteByDocument removes every vector tagged with documentID and
	// reports how many were removed. Unknown documents yield 0.
	DeleteByDocument(ctx context.Context, namespace string, documentID string) (int, error)
}

// RecordID is the vector id for chunk index of a document. The document
// id prefix lets prefix-listing backends find all of a document's vectors.
func RecordID(documentID string, index int) string {
	return documentID + "#" + strconv.Itoa(index)
}

func DocumentPrefix(documentID string) string {
	return documentID + "#"
}

// ParseRecordID splits a RecordID back into its parts.
func ParseRecordID(id string) (string, int, error) {
	i := strings.LastIndex(id, "#")
	if i <= 0 {
		return "", 0, fmt.Errorf("vector id %q has no document prefix", id)
	}
	n, err := strconv.Atoi(id[i+1:])
	if err != nil {
		return "", 0, fmt.Errorf("vector id %q: %w", id, err)
	}
	return id[:i], n, nil
}

// DocumentFilter is the metadata filter scoping a query to one document.
func DocumentFilter(documentID string) map[string]any {
	return map[string]any{MetaDocumentID: map[string]any{"$eq": documentID}}
}

// SortMatches orders by score desc. Equal scores keep insertion order:
// earlier upserts first, then lower chunk index within a document.
func SortMatches(matches []VectorMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return InsertedBefore(matches[i], matches[j])
	})
}

// InsertedBefore reports whether a was inserted before b, judged from the
// upsert time and chunk index carried in metadata or the record id.
func InsertedBefore(a, b VectorMatch) bool {
	ta, okA := MetaInt(a.Metadata, MetaUpsertedAt)
	tb, okB := MetaInt(b.Metadata, MetaUpsertedAt)
	if okA && okB && ta != tb {
		return ta < tb
	}
	docA, idxA := insertionParts(a)
	docB, idxB := insertionParts(b)
	if docA == docB && idxA != idxB {
		return idxA < idxB
	}
	if docA != docB {
		return docA < docB
	}
	return a.ID < b.ID
}

func insertionParts(m VectorMatch) (string, int64) {
	if doc, idx, err := ParseRecordID(m.ID); err == nil {
		return doc, int64(idx)
	}
	idx, _ := MetaInt(m.Metadata, MetaChunkIndex)
	doc, _ := m.Metadata[MetaDocumentID].(string)
	return doc, idx
}

// MetaInt reads an integer metadata value. JSON-decoded payloads carry
// numbers as float64.
func MetaInt(meta map[string]any, key string) (int64, bool) {
	switch v := meta[key].(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
