package documents

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/neurobridge-assistant/internal/domain"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/dbctx"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/logger"
)

type DocumentRepo interface {
	Create(dbc dbctx.Context, doc *types.Document) (*types.Document, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Document, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Document, error)
	List(dbc dbctx.Context, limit, offset int) ([]*types.Document, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	UpdateFieldsUnlessStatus(dbc dbctx.Context, id uuid.UUID, skip types.DocumentStatus, updates map[string]interface{}) error
	SetStatus(dbc dbctx.Context, id uuid.UUID, status types.DocumentStatus, errMsg string) error
	Delete(dbc dbctx.Context, id uuid.UUID) (bool, error)
}

type documentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRepo {
	return &documentRepo{db: db, log: baseLog.With("repo", "DocumentRepo")}
}

func (r *documentRepo) tx(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbctx.Ctx(dbc))
}

func (r *documentRepo) Create(dbc dbctx.Context, doc *types.Document) (*types.Document, error) {
	if doc == nil {
		return nil, errors.New("document required")
	}
	if err := r.tx(dbc).Create(doc).Error; err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *documentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Document, error) {
	if id == uuid.Nil {
		return nil, types.ErrNotFound
	}
	var doc types.Document
	err := r.tx(dbc).Where("id = ?", id).Take(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Document, error) {
	var out []*types.Document
	if len(ids) == 0 {
		return out, nil
	}
	if err := r.tx(dbc).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *documentRepo) List(dbc dbctx.Context, limit, offset int) ([]*types.Document, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var out []*types.Document
	if err := r.tx(dbc).
		Order("created_at DESC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *documentRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return nil
	}
	return r.update(r.tx(dbc).Where("id = ?", id), updates)
}

// UpdateFieldsUnlessStatus applies updates only while the row is not in skip.
// A row that is missing or sits in skip yields ErrNotFound.
func (r *documentRepo) UpdateFieldsUnlessStatus(dbc dbctx.Context, id uuid.UUID, skip types.DocumentStatus, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return types.ErrNotFound
	}
	return r.update(r.tx(dbc).Where("id = ? AND status <> ?", id, skip), updates)
}

func (r *documentRepo) update(q *gorm.DB, updates map[string]interface{}) error {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	res := q.Model(&types.Document{}).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *documentRepo) SetStatus(dbc dbctx.Context, id uuid.UUID, status types.DocumentStatus, errMsg string) error {
	return r.UpdateFields(dbc, id, map[string]interface{}{
		"status": status,
		"error":  errMsg,
	})
}

// Delete removes the document row; chunk rows go with it through the
// foreign key cascade. Reports whether a row existed.
func (r *documentRepo) Delete(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	res := r.tx(dbc).Where("id = ?", id).Delete(&types.Document{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
