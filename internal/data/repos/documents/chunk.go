package documents

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/neurobridge-assistant/internal/domain"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/dbctx"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/logger"
)

type ChunkRepo interface {
	// Upsert inserts chunks, overwriting text, embedding and metadata of
	// any existing (document_id, chunk_index) row.
	Upsert(dbc dbctx.Context, chunks []*types.Chunk) error
	ListByDocument(dbc dbctx.Context, documentID uuid.UUID) ([]*types.Chunk, error)
	// ListSearchable returns chunks with their Document preloaded, skipping
	// documents that are being deleted. A nil documentID means all documents.
	ListSearchable(dbc dbctx.Context, documentID *uuid.UUID) ([]*types.Chunk, error)
	CountByDocument(dbc dbctx.Context, documentID uuid.UUID) (int64, error)
	DeleteByDocument(dbc dbctx.Context, documentID uuid.UUID) (int64, error)
}

type chunkRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChunkRepo(db *gorm.DB, baseLog *logger.Logger) ChunkRepo {
	return &chunkRepo{db: db, log: baseLog.With("repo", "ChunkRepo")}
}

func (r *chunkRepo) tx(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbctx.Ctx(dbc))
}

func (r *chunkRepo) Upsert(dbc dbctx.Context, chunks []*types.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	// Keep batches small because Text and Embedding are large
	const batchSize = 100
	return r.tx(dbc).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "document_id"}, {Name: "chunk_index"}},
			DoUpdates: clause.AssignmentColumns([]string{"text", "embedding", "metadata"}),
		}).
		CreateInBatches(chunks, batchSize).Error
}

func (r *chunkRepo) ListByDocument(dbc dbctx.Context, documentID uuid.UUID) ([]*types.Chunk, error) {
	var out []*types.Chunk
	if documentID == uuid.Nil {
		return out, nil
	}
	if err := r.tx(dbc).
		Where("document_id = ?", documentID).
		Order("chunk_index ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *chunkRepo) ListSearchable(dbc dbctx.Context, documentID *uuid.UUID) ([]*types.Chunk, error) {
	base := r.tx(dbc)
	live := base.Session(&gorm.Session{NewDB: true}).
		Model(&types.Document{}).
		Select("id").
		Where("status <> ?", types.DocumentDeleting)
	if documentID != nil {
		live = live.Where("id = ?", *documentID)
	}
	var out []*types.Chunk
	if err := base.
		Preload("Document").
		Where("document_id IN (?)", live).
		Order("created_at ASC, document_id ASC, chunk_index ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *chunkRepo) CountByDocument(dbc dbctx.Context, documentID uuid.UUID) (int64, error) {
	var n int64
	if err := r.tx(dbc).Model(&types.Chunk{}).Where("document_id = ?", documentID).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *chunkRepo) DeleteByDocument(dbc dbctx.Context, documentID uuid.UUID) (int64, error) {
	if documentID == uuid.Nil {
		return 0, nil
	}
	res := r.tx(dbc).Where("document_id = ?", documentID).Delete(&types.Chunk{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
