// Package ingest turns documents into indexed chunks: chunk, embed, upsert.
// It owns the document lifecycle (pending, ready, failed, deleting) and the
// long retry schedule used in the background.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/neurobridge-assistant/internal/data/db"
	"github.com/yungbote/neurobridge-assistant/internal/data/repos"
	"github.com/yungbote/neurobridge-assistant/internal/domain"
	"github.com/yungbote/neurobridge-assistant/internal/modules/assistant/chunker"
	"github.com/yungbote/neurobridge-assistant/internal/modules/assistant/embedding"
	"github.com/yungbote/neurobridge-assistant/internal/modules/assistant/vectorstore"
	"github.com/yungbote/neurobridge-assistant/internal/observability"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/dbctx"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/logger"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/retry"
	"github.com/yungbote/neurobridge-assistant/internal/platform/gcp"
)

const maxTitleRunes = 300

// Publisher receives lifecycle events. The redis event bus satisfies it.
type Publisher interface {
	Publish(ctx context.Context, ev domain.IngestionEvent) error
}

// SourceReader resolves gs:// sources into text.
type SourceReader interface {
	ReadText(ctx context.Context, uri string) (*gcp.Object, error)
}

type Request struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Source  string `json:"source,omitempty"`
}

type Result struct {
	DocumentID uuid.UUID
	Chunks     int
}

type Service struct {
	log      *logger.Logger
	docs     repos.DocumentRepo
	store    vectorstore.Store
	embedder embedding.Embedder

	events  Publisher
	alerter *observability.Alerter
	sources SourceReader

	chunking    chunker.Options
	background  retry.Policy
	interactive retry.Policy
	now         func() time.Time
}

type Option func(*Service)

func WithEvents(p Publisher) Option {
	return func(s *Service) { s.events = p }
}

func WithAlerter(a *observability.Alerter) Option {
	return func(s *Service) { s.alerter = a }
}

func WithSources(r SourceReader) Option {
	return func(s *Service) { s.sources = r }
}

func WithChunking(o chunker.Options) Option {
	return func(s *Service) { s.chunking = o }
}

// WithPolicies overrides the background and the request-path retry policies.
func WithPolicies(background, interactive retry.Policy) Option {
	return func(s *Service) {
		s.background = background
		s.interactive = interactive
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New builds the ingestion service. embedder should already be throttled for
// bulk use (see embedding.NewThrottled).
func New(log *logger.Logger, docs repos.DocumentRepo, store vectorstore.Store, embedder embedding.Embedder, opts ...Option) *Service {
	s := &Service{
		log:         log.With("service", "IngestionService"),
		docs:        docs,
		store:       store,
		embedder:    embedder,
		chunking:    chunker.Options{MaxSize: chunker.DefaultMaxSize, Overlap: chunker.DefaultOverlap},
		background:  retry.Ingestion,
		interactive: retry.Interactive,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BackgroundPolicy is the schedule Run walks; the workflow runner reuses its delays.
func (s *Service) BackgroundPolicy() retry.Policy { return s.background }

// Create validates req, resolves a gs:// source into content when no content
// is given, and stores a pending document.
func (s *Service) Create(ctx context.Context, req Request) (*domain.Document, error) {
	req, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	doc, err := s.docs.Create(dbctx.New(ctx), &domain.Document{
		Title:   req.Title,
		Content: req.Content,
		Source:  req.Source,
		Status:  domain.DocumentPending,
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, domain.InputError("document already exists")
		}
		return nil, fmt.Errorf("create document: %w", err)
	}
	s.publish(ctx, doc.ID, domain.DocumentPending, domain.StageChunk, 0, 0, nil)
	return doc, nil
}

// Replace swaps the document's text and returns it to pending. Its chunks are
// rebuilt by the next Process.
func (s *Service) Replace(ctx context.Context, id uuid.UUID, req Request) (*domain.Document, error) {
	cur, err := s.docs.GetByID(dbctx.New(ctx), id)
	if err != nil {
		return nil, err
	}
	if cur.Status == domain.DocumentDeleting {
		return nil, fmt.Errorf("document %s is being deleted: %w", id, domain.ErrNotFound)
	}
	if strings.TrimSpace(req.Title) == "" {
		req.Title = cur.Title
	}
	req, err = s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.docs.UpdateFields(dbctx.New(ctx), id, map[string]interface{}{
		"title":   req.Title,
		"content": req.Content,
		"source":  req.Source,
		"status":  domain.DocumentPending,
		"error":   "",
	}); err != nil {
		return nil, err
	}
	s.publish(ctx, id, domain.DocumentPending, domain.StageChunk, 0, 0, nil)
	return s.docs.GetByID(dbctx.New(ctx), id)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	return s.docs.GetByID(dbctx.New(ctx), id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*domain.Document, error) {
	return s.docs.List(dbctx.New(ctx), limit, offset)
}

// Process makes one indexing attempt: chunk, embed every chunk, replace the
// document's vectors, mark it ready. Failures come back as *StageError.
func (s *Service) Process(ctx context.Context, id uuid.UUID) (res Result, err error) {
	ctx, span := observability.StartSpan(ctx, "ingest.process", attribute.String("document.id", id.String()))
	defer func() { observability.EndSpan(span, err) }()

	res.DocumentID = id
	doc, err := s.docs.GetByID(dbctx.New(ctx), id)
	if err != nil {
		return res, stageErr(domain.StageChunk, err)
	}
	if doc.Status == domain.DocumentDeleting {
		return res, stageErr(domain.StageChunk, fmt.Errorf("document %s is being deleted: %w", id, domain.ErrNotFound))
	}

	chunks := chunker.Chunk(doc.Content, s.chunking)
	if len(chunks) == 0 {
		return res, stageErr(domain.StageChunk, domain.InputError("document %s has no text", id))
	}

	vectors := make([][]float32, 0, len(chunks))
	for i, text := range chunks {
		vec, err := s.embedder.Embed(ctx, text)
		if err != nil {
			return res, stageErr(domain.StageEmbed, fmt.Errorf("chunk %d: %w", i, err))
		}
		vectors = append(vectors, vec)
	}

	// Old vectors go first so a shorter replacement leaves no stale tail.
	if _, err := s.store.DeleteByDocument(ctx, id); err != nil {
		return res, stageErr(domain.StageDelete, err)
	}
	extra := map[string]any{vectorstore.MetaDocumentTitle: doc.Title}
	if doc.Source != "" {
		extra["source"] = doc.Source
	}
	if err := s.store.Upsert(ctx, id, chunks, vectors, extra); err != nil {
		return res, stageErr(domain.StageUpsert, err)
	}

	// A Delete that started after the status check owns the document now.
	err = s.docs.UpdateFieldsUnlessStatus(dbctx.New(ctx), id, domain.DocumentDeleting, map[string]interface{}{
		"status":      domain.DocumentReady,
		"error":       "",
		"chunk_count": len(chunks),
	})
	if errors.Is(err, domain.ErrNotFound) {
		if _, derr := s.store.DeleteByDocument(context.WithoutCancel(ctx), id); derr != nil {
			s.log.Warn("failed to drop vectors of deleted document", "document_id", id, "error", derr)
		}
		return res, stageErr(domain.StageUpsert, fmt.Errorf("document %s was deleted during indexing: %w", id, domain.ErrNotFound))
	}
	if err != nil {
		return res, stageErr(domain.StageUpsert, err)
	}
	res.Chunks = len(chunks)
	observability.Current().ObserveIngestion("ready", res.Chunks, s.store.Backend())
	s.publish(ctx, id, domain.DocumentReady, domain.StageDone, res.Chunks, 0, nil)
	s.log.Info("document indexed", "document_id", id, "chunks", res.Chunks, "backend", s.store.Backend())
	return res, nil
}

// IngestNow indexes the document on the caller's path with the short
// interactive policy. A final failure marks the document failed.
func (s *Service) IngestNow(ctx context.Context, id uuid.UUID) (Result, error) {
	return s.run(ctx, id, s.interactive)
}

// Run indexes the document through the full background schedule. It blocks
// for as long as the schedule takes; call it from a worker.
func (s *Service) Run(ctx context.Context, id uuid.UUID) (Result, error) {
	return s.run(ctx, id, s.background)
}

func (s *Service) run(ctx context.Context, id uuid.UUID, p retry.Policy) (Result, error) {
	p = p.WithOnRetry(func(attempt int, delay time.Duration, err error) {
		stage := StageOf(err)
		observability.Current().IncIngestionRetry(string(stage))
		s.log.Warn("ingestion attempt failed; retrying",
			"document_id", id, "stage", stage, "attempt", attempt, "delay", delay.String(), "error", err)
		s.publish(ctx, id, domain.DocumentPending, stage, 0, attempt, err)
	})
	res, err := retry.DoValue(ctx, p, func(ctx context.Context) (Result, error) {
		return s.Process(ctx, id)
	})
	if errors.Is(err, domain.ErrNotFound) {
		s.log.Info("document gone; ingestion abandoned", "document_id", id, "error", err)
		return res, err
	}
	if err != nil {
		s.Fail(context.WithoutCancel(ctx), id, err)
		return res, err
	}
	return res, nil
}

// Fail records a terminal ingestion failure on the document and raises an
// alert. A document that is gone or being deleted is left alone.
func (s *Service) Fail(ctx context.Context, id uuid.UUID, cause error) {
	stage := StageOf(cause)
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	err := s.docs.UpdateFieldsUnlessStatus(dbctx.New(ctx), id, domain.DocumentDeleting, map[string]interface{}{
		"status": domain.DocumentFailed,
		"error":  msg,
	})
	if errors.Is(err, domain.ErrNotFound) {
		s.log.Debug("document gone or deleting; failure not recorded", "document_id", id)
		return
	}
	if err != nil {
		s.log.Error("failed to mark document failed", "document_id", id, "error", err)
	}
	observability.Current().ObserveIngestion("failed", 0, s.store.Backend())
	s.publish(ctx, id, domain.DocumentFailed, stage, 0, 0, cause)
	s.alerter.IngestionFailed(ctx, id.String(), string(stage), cause, map[string]any{
		"backend": s.store.Backend(),
	})
}

// Delete hides the document from retrieval, removes its vectors, then the
// row itself (chunk rows cascade). It returns the number of vectors removed.
// A failure after the first step leaves the document in deleting, still
// hidden; calling Delete again finishes the job.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) (n int, err error) {
	ctx, span := observability.StartSpan(ctx, "ingest.delete", attribute.String("document.id", id.String()))
	defer func() { observability.EndSpan(span, err) }()

	if _, err := s.docs.GetByID(dbctx.New(ctx), id); err != nil {
		return 0, err
	}
	if err := s.docs.SetStatus(dbctx.New(ctx), id, domain.DocumentDeleting, ""); err != nil {
		return 0, err
	}
	s.publish(ctx, id, domain.DocumentDeleting, domain.StageDelete, 0, 0, nil)

	n, err = retry.DoValue(ctx, s.interactive, func(ctx context.Context) (int, error) {
		return s.store.DeleteByDocument(ctx, id)
	})
	if err != nil {
		return 0, stageErr(domain.StageDelete, err)
	}
	if _, err := s.docs.Delete(dbctx.New(ctx), id); err != nil {
		return 0, stageErr(domain.StageDelete, err)
	}
	s.publish(ctx, id, domain.DocumentDeleting, domain.StageDone, n, 0, nil)
	s.log.Info("document deleted", "document_id", id, "vectors", n)
	return n, nil
}

func (s *Service) resolve(ctx context.Context, req Request) (Request, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Source = strings.TrimSpace(req.Source)
	if req.Title == "" {
		return req, domain.InputError("title is required")
	}
	if len([]rune(req.Title)) > maxTitleRunes {
		return req, domain.InputError("title exceeds %d characters", maxTitleRunes)
	}
	if strings.TrimSpace(req.Content) == "" && gcp.IsGSURI(req.Source) {
		if s.sources == nil {
			return req, domain.InputError("object storage is not configured for %s", req.Source)
		}
		obj, err := s.sources.ReadText(ctx, req.Source)
		if err != nil {
			return req, domain.InputError("read source: %v", err)
		}
		req.Content = obj.Text
	}
	if strings.TrimSpace(req.Content) == "" {
		return req, domain.InputError("content is required")
	}
	return req, nil
}

func (s *Service) publish(ctx context.Context, id uuid.UUID, status domain.DocumentStatus, stage domain.IngestionStage, chunks, attempt int, cause error) {
	if s.events == nil {
		return
	}
	ev := domain.IngestionEvent{
		DocumentID: id.String(),
		Status:     status,
		Stage:      stage,
		Chunks:     chunks,
		Attempt:    attempt,
		At:         s.now().UTC(),
	}
	if cause != nil {
		ev.Error = cause.Error()
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn("ingestion event publish failed", "document_id", id, "error", err)
	}
}
