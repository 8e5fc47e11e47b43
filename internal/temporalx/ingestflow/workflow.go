package ingestflow

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// Workflow makes one Process attempt per step of the schedule, sleeping
// between them with durable timers. Exhaustion, or a permanent failure,
// runs the Fail activity and fails the workflow.
func Workflow(ctx workflow.Context, in Input) (ProcessResult, error) {
	var out ProcessResult
	if strings.TrimSpace(in.DocumentID) == "" {
		return out, temporal.NewNonRetryableApplicationError("missing document_id", "input", nil)
	}
	log := workflow.GetLogger(ctx)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		// Retries are the workflow's job; each step is exactly one attempt.
		RetryPolicy: &temporal.RetryPolicy{MaximumAttempts: 1},
	})

	var lastErr error
	for attempt := 0; attempt <= len(in.Delays); attempt++ {
		if attempt > 0 {
			if err := workflow.Sleep(ctx, in.Delays[attempt-1]); err != nil {
				return out, err
			}
		}
		err := workflow.ExecuteActivity(ctx, ActivityProcess, ProcessInput{
			DocumentID: in.DocumentID,
			Attempt:    attempt,
		}).Get(ctx, &out)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if isPermanent(err) {
			break
		}
		log.Warn("ingestion attempt failed", "document_id", in.DocumentID, "attempt", attempt, "error", err)
	}

	fail := FailInput{DocumentID: in.DocumentID, Stage: stageOf(lastErr), Error: causeOf(lastErr)}
	if err := workflow.ExecuteActivity(ctx, ActivityFail, fail).Get(ctx, nil); err != nil {
		log.Error("ingestion fail activity errored", "document_id", in.DocumentID, "error", err)
	}
	return out, fmt.Errorf("ingestion failed (stage=%s): %w", fail.Stage, lastErr)
}

func isPermanent(err error) bool {
	var appErr *temporal.ApplicationError
	return errors.As(err, &appErr) && appErr.NonRetryable()
}

func stageOf(err error) string {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		if t := appErr.Type(); t != "" {
			return t
		}
	}
	return "unknown"
}

func causeOf(err error) string {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Message()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
