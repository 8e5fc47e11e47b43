package ingest

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-assistant/internal/pkg/logger"
)

var ErrDispatcherClosed = errors.New("ingestion dispatcher closed")

// Dispatcher hands a pending document to whatever runs the background
// schedule: a goroutine here, a Temporal workflow in temporalx/ingestflow.
type Dispatcher interface {
	Dispatch(ctx context.Context, documentID uuid.UUID) error
}

// LocalDispatcher runs the background schedule in-process.
type LocalDispatcher struct {
	log    *logger.Logger
	svc    *Service
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewLocalDispatcher runs each dispatched document through svc.Run on its own
// goroutine. Work does not survive a restart; pending documents stay pending.
func NewLocalDispatcher(log *logger.Logger, svc *Service) *LocalDispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &LocalDispatcher{
		log:    log.With("service", "LocalIngestionDispatcher"),
		svc:    svc,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (d *LocalDispatcher) Dispatch(_ context.Context, documentID uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if _, err := d.svc.Run(d.ctx, documentID); err != nil {
			d.log.Warn("background ingestion ended with error", "document_id", documentID, "error", err)
		}
	}()
	return nil
}

// Wait blocks until every dispatched document has finished.
func (d *LocalDispatcher) Wait() { d.wg.Wait() }

// Close stops accepting work, cancels in-flight schedules and waits for them.
func (d *LocalDispatcher) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.cancel()
	d.wg.Wait()
	return nil
}
