package retrieval

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-assistant/internal/data/repos"
	"github.com/yungbote/neurobridge-assistant/internal/domain"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/dbctx"
)

type repoStatuses struct {
	docs repos.DocumentRepo
}

// NewRepoStatuses reads document statuses from the document table.
func NewRepoStatuses(docs repos.DocumentRepo) DocumentStatuses {
	return repoStatuses{docs: docs}
}

func (r repoStatuses) Statuses(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.DocumentStatus, error) {
	rows, err := r.docs.GetByIDs(dbctx.New(ctx), ids)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]domain.DocumentStatus, len(rows))
	for _, d := range rows {
		out[d.ID] = d.Status
	}
	return out, nil
}
