// Package vectorstore persists chunk vectors and answers nearest-neighbour
// queries. The relational backend scans chunk rows with cosine similarity;
// the remote backend delegates to a vectorindex.VectorStore; the mirrored
// backend writes to both and reads from the remote one.
package vectorstore

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-assistant/internal/domain"
	"github.com/yungbote/neurobridge-assistant/internal/platform/vectorindex"
)

// Metadata keys set on every record. Extra metadata supplied on upsert is
// merged underneath them.
const (
	MetaDocumentID    = vectorindex.MetaDocumentID
	MetaDocumentTitle = vectorindex.MetaDocumentTitle
	MetaChunkID       = vectorindex.MetaChunkID
	MetaChunkIndex    = vectorindex.MetaChunkIndex
	MetaText          = vectorindex.MetaText
)

type Filter struct {
	DocumentID *uuid.UUID
}

type Match struct {
	ID       string
	Score    float64
	Metadata map[string]any
}

type Store interface {
	// Upsert writes one record per chunk. It fails with an invariant error,
	// before writing anything, when chunks and vectors disagree in length or
	// the vectors do not share the index dimensionality.
	Upsert(ctx context.Context, documentID uuid.UUID, chunks []string, vectors [][]float32, extra map[string]any) error
	// DeleteByDocument is idempotent; unknown documents yield 0.
	DeleteByDocument(ctx context.Context, documentID uuid.UUID) (int, error)
	// Query returns at most topK matches, best first.
	Query(ctx context.Context, vector []float32, topK int, filter Filter) ([]Match, error)
	Backend() string
}

// ChunkID is the stable id of chunk index of a document, shared by the
// relational row and any remote record.
func ChunkID(documentID uuid.UUID, index int) uuid.UUID {
	return uuid.NewSHA1(documentID, []byte("chunk:"+strconv.Itoa(index)))
}

func validateUpsert(dim int, chunks []string, vectors [][]float32) (int, error) {
	if len(chunks) != len(vectors) {
		return 0, domain.InvariantError("upsert: %d chunks but %d vectors", len(chunks), len(vectors))
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return 0, domain.InvariantError("upsert: vector %d is empty", i)
		}
		if dim == 0 {
			dim = len(v)
		}
		if len(v) != dim {
			return 0, domain.InvariantError("upsert: vector %d has dimension %d, index uses %d", i, len(v), dim)
		}
	}
	return dim, nil
}

func recordMetadata(documentID uuid.UUID, index int, text string, extra map[string]any) map[string]any {
	meta := make(map[string]any, len(extra)+5)
	for k, v := range extra {
		meta[k] = v
	}
	meta[MetaDocumentID] = documentID.String()
	meta[MetaChunkID] = ChunkID(documentID, index).String()
	meta[MetaChunkIndex] = index
	meta[MetaText] = text
	if _, ok := meta[MetaDocumentTitle]; !ok {
		meta[MetaDocumentTitle] = ""
	}
	return meta
}

// MetaString reads a string metadata value.
func MetaString(meta map[string]any, key string) string {
	switch v := meta[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// MetaInt reads an integer metadata value. JSON round trips turn ints into
// float64, so both are accepted.
func MetaInt(meta map[string]any, key string) int {
	switch v := meta[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	default:
		return 0
	}
}
