package ingestflow

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"

	"github.com/yungbote/neurobridge-assistant/internal/domain"
	"github.com/yungbote/neurobridge-assistant/internal/modules/assistant/ingest"
	"github.com/yungbote/neurobridge-assistant/internal/observability"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/logger"
)

// Processor is the slice of ingest.Service the activities drive.
type Processor interface {
	Process(ctx context.Context, id uuid.UUID) (ingest.Result, error)
	Fail(ctx context.Context, id uuid.UUID, cause error)
}

type Activities struct {
	Log *logger.Logger
	Svc Processor
}

func (a *Activities) Process(ctx context.Context, in ProcessInput) (ProcessResult, error) {
	out := ProcessResult{DocumentID: in.DocumentID}
	id, err := uuid.Parse(in.DocumentID)
	if err != nil {
		return out, temporal.NewNonRetryableApplicationError("invalid document_id", string(domain.StageChunk), err)
	}
	if in.Attempt > 0 {
		a.Log.Info("retrying document ingestion", "document_id", in.DocumentID, "attempt", in.Attempt)
	}
	res, err := a.Svc.Process(ctx, id)
	if err != nil {
		stage := ingest.StageOf(err)
		if in.Attempt > 0 {
			observability.Current().IncIngestionRetry(string(stage))
		}
		if domain.IsPermanent(err) {
			return out, temporal.NewNonRetryableApplicationError(err.Error(), string(stage), err)
		}
		return out, temporal.NewApplicationErrorWithCause(err.Error(), string(stage), err)
	}
	out.Chunks = res.Chunks
	return out, nil
}

func (a *Activities) Fail(ctx context.Context, in FailInput) error {
	id, err := uuid.Parse(in.DocumentID)
	if err != nil {
		return temporal.NewNonRetryableApplicationError("invalid document_id", string(domain.StageChunk), err)
	}
	a.Svc.Fail(ctx, id, &ingest.StageError{
		Stage: domain.IngestionStage(in.Stage),
		Err:   errors.New(in.Error),
	})
	return nil
}
