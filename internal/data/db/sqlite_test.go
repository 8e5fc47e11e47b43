package db

import (
	"context"
	"testing"

	types "github.com/yungbote/neurobridge-assistant/internal/domain"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/logger"
)

func TestOpenSQLiteMigratesAndCascades(t *testing.T) {
	gdb, err := OpenSQLite(logger.Nop(), "")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := AutoMigrateAll(gdb); err != nil {
		t.Fatalf("AutoMigrateAll: %v", err)
	}

	ctx := context.Background()
	doc := &types.Document{Title: "t", Content: "c"}
	if err := gdb.WithContext(ctx).Create(doc).Error; err != nil {
		t.Fatalf("create document: %v", err)
	}
	if err := gdb.WithContext(ctx).Create(&types.Chunk{DocumentID: doc.ID, Index: 0, Text: "c"}).Error; err != nil {
		t.Fatalf("create chunk: %v", err)
	}
	if err := gdb.WithContext(ctx).Delete(&types.Document{}, "id = ?", doc.ID).Error; err != nil {
		t.Fatalf("delete document: %v", err)
	}
	var n int64
	if err := gdb.WithContext(ctx).Model(&types.Chunk{}).Where("document_id = ?", doc.ID).Count(&n).Error; err != nil {
		t.Fatalf("count chunks: %v", err)
	}
	if n != 0 {
		t.Fatalf("chunks after cascade: want=0 got=%d", n)
	}
}
