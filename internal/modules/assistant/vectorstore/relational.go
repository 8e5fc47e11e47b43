package vectorstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-assistant/internal/data/repos"
	"github.com/yungbote/neurobridge-assistant/internal/domain"
	"github.com/yungbote/neurobridge-assistant/internal/observability"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/dbctx"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/logger"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/vecmath"
)

const backendRelational = "sql"

type relational struct {
	db     *gorm.DB
	chunks repos.ChunkRepo
	log    *logger.Logger

	mu  sync.Mutex
	dim int
}

// NewRelational stores vectors on chunk rows and answers queries with an
// in-process cosine scan. dim may be 0, in which case the first upsert fixes it.
func NewRelational(db *gorm.DB, chunks repos.ChunkRepo, log *logger.Logger, dim int) Store {
	return &relational{db: db, chunks: chunks, log: log.With("service", "RelationalVectorStore"), dim: dim}
}

func (s *relational) Backend() string { return backendRelational }

func (s *relational) Upsert(ctx context.Context, documentID uuid.UUID, chunks []string, vectors [][]float32, extra map[string]any) (err error) {
	start := time.Now()
	defer func() {
		observability.Current().ObserveVectorStore(backendRelational, "upsert", time.Since(start), err)
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
	if len(chunks) == 0 {
		return nil
	}

	extraRaw, err := json.Marshal(extra)
	if err != nil {
		return domain.InputError("extra metadata is not JSON-encodable: %v", err)
	}
	rows := make([]*domain.Chunk, 0, len(chunks))
	for i, text := range chunks {
		emb, err := vecmath.EncodeJSON(vectors[i])
		if err != nil {
			return err
		}
		rows = append(rows, &domain.Chunk{
			ID:         ChunkID(documentID, i),
			DocumentID: documentID,
			Index:      i,
			Text:       text,
			Embedding:  emb,
			Metadata:   datatypes.JSON(extraRaw),
		})
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.chunks.Upsert(dbctx.Context{Ctx: ctx, Tx: tx}, rows)
	})
}

func (s *relational) DeleteByDocument(ctx context.Context, documentID uuid.UUID) (n int, err error) {
	start := time.Now()
	defer func() {
		observability.Current().ObserveVectorStore(backendRelational, "delete", time.Since(start), err)
	}()
	removed, err := s.chunks.DeleteByDocument(dbctx.New(ctx), documentID)
	return int(removed), err
}

func (s *relational) Query(ctx context.Context, vector []float32, topK int, filter Filter) (out []Match, err error) {
	start := time.Now()
	defer func() {
		observability.Current().ObserveVectorStore(backendRelational, "query", time.Since(start), err)
	}()
	if topK <= 0 {
		return []Match{}, nil
	}
	rows, err := s.chunks.ListSearchable(dbctx.New(ctx), filter.DocumentID)
	if err != nil {
		return nil, err
	}
	out = make([]Match, 0, len(rows))
	for _, row := range rows {
		emb, err := vecmath.DecodeJSON(row.Embedding)
		if err != nil {
			s.log.Warn("skipping chunk with unreadable embedding", "chunk_id", row.ID, "error", err)
			continue
		}
		if len(emb) != len(vector) {
			return nil, domain.InvariantError("chunk %s has dimension %d, query has %d", row.ID, len(emb), len(vector))
		}
		out = append(out, Match{
			ID:       row.ID.String(),
			Score:    vecmath.Cosine(vector, emb),
			Metadata: rowMetadata(row),
		})
	}
	// Stable, so equal scores keep row (insertion) order.
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func rowMetadata(row *domain.Chunk) map[string]any {
	var extra map[string]any
	if len(row.Metadata) > 0 {
		_ = json.Unmarshal(row.Metadata, &extra)
	}
	title := ""
	if row.Document != nil {
		title = row.Document.Title
	}
	if _, ok := extra[MetaDocumentTitle]; ok && title == "" {
		title = MetaString(extra, MetaDocumentTitle)
	}
	meta := recordMetadata(row.DocumentID, row.Index, row.Text, extra)
	meta[MetaChunkID] = row.ID.String()
	meta[MetaDocumentTitle] = title
	return meta
}
