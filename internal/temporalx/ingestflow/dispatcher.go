package ingestflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/api/serviceerror"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/neurobridge-assistant/internal/pkg/logger"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/retry"
)

// Dispatcher starts one workflow per document. A workflow already running for
// the document is left alone.
type Dispatcher struct {
	log       *logger.Logger
	tc        temporalsdkclient.Client
	taskQueue string
	policy    retry.Policy
}

func NewDispatcher(log *logger.Logger, tc temporalsdkclient.Client, taskQueue string, policy retry.Policy) (*Dispatcher, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	return &Dispatcher{
		log:       log.With("service", "TemporalIngestionDispatcher"),
		tc:        tc,
		taskQueue: taskQueue,
		policy:    policy,
	}, nil
}

func (d *Dispatcher) Dispatch(ctx context.Context, documentID uuid.UUID) error {
	id := documentID.String()
	run, err := d.tc.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:        WorkflowID(id),
		TaskQueue: d.taskQueue,
	}, WorkflowName, Input{DocumentID: id, Delays: Schedule(d.policy)})
	if err != nil {
		var started *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &started) {
			d.log.Info("ingestion workflow already running", "document_id", id)
			return nil
		}
		return fmt.Errorf("start ingestion workflow: %w", err)
	}
	d.log.Info("ingestion workflow started", "document_id", id, "run_id", run.GetRunID())
	return nil
}

// Schedule expands a retry policy into the workflow's per-attempt delays.
func Schedule(p retry.Policy) []time.Duration {
	out := make([]time.Duration, 0, p.MaxRetries)
	for attempt := 1; attempt <= p.MaxRetries; attempt++ {
		out = append(out, p.Delay(attempt))
	}
	return out
}
