package ingest

import (
	"errors"
	"fmt"

	"github.com/yungbote/neurobridge-assistant/internal/domain"
)

// StageError records which step of an ingestion attempt failed.
type StageError struct {
	Stage domain.IngestionStage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage domain.IngestionStage, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}

// StageOf returns the failing stage, or chunk when err carries none.
func StageOf(err error) domain.IngestionStage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return domain.StageChunk
}
