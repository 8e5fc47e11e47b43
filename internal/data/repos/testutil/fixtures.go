package testutil

import (
	"context"
	"testing"

	"gorm.io/gorm"

	types "github.com/yungbote/neurobridge-assistant/internal/domain"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/vecmath"
)

func SeedDocument(tb testing.TB, ctx context.Context, tx *gorm.DB, title string, status types.DocumentStatus) *types.Document {
	tb.Helper()
	doc := &types.Document{Title: title, Content: title + " content", Status: status}
	if err := tx.WithContext(ctx).Create(doc).Error; err != nil {
		tb.Fatalf("seed document: %v", err)
	}
	return doc
}

// SeedChunk stores one chunk with the given embedding.
func SeedChunk(tb testing.TB, ctx context.Context, tx *gorm.DB, doc *types.Document, index int, text string, embedding []float32) *types.Chunk {
	tb.Helper()
	raw, err := vecmath.EncodeJSON(embedding)
	if err != nil {
		tb.Fatalf("encode embedding: %v", err)
	}
	c := &types.Chunk{DocumentID: doc.ID, Index: index, Text: text, Embedding: raw}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed chunk: %v", err)
	}
	return c
}
