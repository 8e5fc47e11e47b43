package temporalworker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/neurobridge-assistant/internal/pkg/envutil"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/logger"
	"github.com/yungbote/neurobridge-assistant/internal/temporalx"
	"github.com/yungbote/neurobridge-assistant/internal/temporalx/ingestflow"
)

// Runner polls the ingestion task queue.
type Runner struct {
	log  *logger.Logger
	tc   temporalsdkclient.Client
	cfg  temporalx.Config
	proc ingestflow.Processor

	ensureNamespace func(ctx context.Context, log *logger.Logger, cfg temporalx.Config) error
}

func NewRunner(log *logger.Logger, tc temporalsdkclient.Client, cfg temporalx.Config, proc ingestflow.Processor) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if proc == nil {
		return nil, fmt.Errorf("temporal worker missing ingestion service")
	}
	return &Runner{
		log:             log.With("service", "TemporalWorker"),
		tc:              tc,
		cfg:             cfg,
		proc:            proc,
		ensureNamespace: temporalx.EnsureNamespace,
	}, nil
}

// Start launches the worker and returns once it is polling. The worker stops
// when ctx is done.
func (r *Runner) Start(ctx context.Context) error {
	r.log.Info("Starting Temporal worker", "address", r.cfg.Address, "namespace", r.cfg.Namespace, "task_queue", r.cfg.TaskQueue)

	if r.cfg.AutoRegisterNamespace {
		if err := r.ensureNamespace(ctx, r.log, r.cfg); err != nil {
			r.log.Warn("Temporal namespace ensure failed; worker will retry on start", "namespace", r.cfg.Namespace, "error", err)
		}
	}

	maxWait := envutil.Duration("TEMPORAL_WORKER_START_MAX_WAIT_SECONDS", 60*time.Second, time.Second)
	deadline := time.Now().Add(maxWait)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		w := r.newWorker()
		startErr := w.Start()
		if startErr == nil {
			go func() {
				<-ctx.Done()
				w.Stop()
			}()
			r.log.Info("Temporal worker started", "namespace", r.cfg.Namespace, "task_queue", r.cfg.TaskQueue, "attempts", attempt)
			return nil
		}
		w.Stop()

		var nfe *serviceerror.NamespaceNotFound
		missingNamespace := errors.As(startErr, &nfe)
		if missingNamespace && r.cfg.AutoRegisterNamespace {
			r.registerNamespace(ctx, attempt)
		}
		if maxWait <= 0 || time.Now().After(deadline) {
			if missingNamespace {
				return fmt.Errorf("temporal namespace not found (namespace=%s): %w", r.cfg.Namespace, startErr)
			}
			return startErr
		}
		r.log.Warn("Temporal worker failed to start; retrying", "task_queue", r.cfg.TaskQueue, "attempt", attempt, "error", startErr)
		time.Sleep(temporalx.Backoff(r.cfg.DialBackoff, r.cfg.DialBackoffMax, attempt))
	}
}

// registerNamespace retries namespace creation after the worker found it
// missing. Failure is logged; the start loop decides whether to keep going.
func (r *Runner) registerNamespace(ctx context.Context, attempt int) {
	if err := r.ensureNamespace(ctx, r.log, r.cfg); err != nil {
		r.log.Warn("Temporal namespace register failed", "namespace", r.cfg.Namespace, "attempt", attempt, "error", err)
	}
}

func (r *Runner) newWorker() worker.Worker {
	concurrency := envutil.Int("WORKER_CONCURRENCY", 4)
	if concurrency < 1 {
		concurrency = 1
	}
	w := worker.New(r.tc, r.cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: concurrency,
	})
	Register(w, &ingestflow.Activities{Log: r.log, Svc: r.proc})
	return w
}

// Register binds the ingestion workflow and its activities to w.
func Register(w worker.Registry, acts *ingestflow.Activities) {
	w.RegisterWorkflowWithOptions(ingestflow.Workflow, workflow.RegisterOptions{Name: ingestflow.WorkflowName})
	w.RegisterActivityWithOptions(acts.Process, activity.RegisterOptions{Name: ingestflow.ActivityProcess})
	w.RegisterActivityWithOptions(acts.Fail, activity.RegisterOptions{Name: ingestflow.ActivityFail})
}
