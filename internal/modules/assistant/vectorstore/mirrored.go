package vectorstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-assistant/internal/pkg/logger"
)

type mirrored struct {
	primary Store
	mirror  Store
	log     *logger.Logger
}

// NewMirrored writes to both stores and reads from primary, falling back to
// mirror when a primary query fails. The mirror is normally the relational
// store so answers keep flowing through a remote index outage.
func NewMirrored(primary, mirror Store, log *logger.Logger) Store {
	return &mirrored{primary: primary, mirror: mirror, log: log.With("service", "MirroredVectorStore")}
}

func (s *mirrored) Backend() string {
	return s.primary.Backend() + "+" + s.mirror.Backend()
}

func (s *mirrored) Upsert(ctx context.Context, documentID uuid.UUID, chunks []string, vectors [][]float32, extra map[string]any) error {
	// The mirror validates first; it is local and fails fast on invariant errors.
	if err := s.mirror.Upsert(ctx, documentID, chunks, vectors, extra); err != nil {
		return fmt.Errorf("mirror upsert: %w", err)
	}
	if err := s.primary.Upsert(ctx, documentID, chunks, vectors, extra); err != nil {
		return fmt.Errorf("%s upsert: %w", s.primary.Backend(), err)
	}
	return nil
}

func (s *mirrored) DeleteByDocument(ctx context.Context, documentID uuid.UUID) (int, error) {
	n, err := s.primary.DeleteByDocument(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("%s delete: %w", s.primary.Backend(), err)
	}
	m, err := s.mirror.DeleteByDocument(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("mirror delete: %w", err)
	}
	if m > n {
		n = m
	}
	return n, nil
}

func (s *mirrored) Query(ctx context.Context, vector []float32, topK int, filter Filter) ([]Match, error) {
	out, err := s.primary.Query(ctx, vector, topK, filter)
	if err == nil {
		return out, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	s.log.Warn("primary vector query failed; falling back to mirror",
		"primary", s.primary.Backend(),
		"error", err,
	)
	return s.mirror.Query(ctx, vector, topK, filter)
}
