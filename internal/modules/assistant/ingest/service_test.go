package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/neurobridge-assistant/internal/data/repos"
	"github.com/yungbote/neurobridge-assistant/internal/data/repos/testutil"
	"github.com/yungbote/neurobridge-assistant/internal/domain"
	"github.com/yungbote/neurobridge-assistant/internal/modules/assistant/chunker"
	"github.com/yungbote/neurobridge-assistant/internal/modules/assistant/vectorstore"
	"github.com/yungbote/neurobridge-assistant/internal/observability"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/dbctx"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/logger"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/retry"
	"github.com/yungbote/neurobridge-assistant/internal/platform/gcp"
)

const hooksDoc = `React Hooks let function components hold state and side effects.
useState returns the current value and a setter. Calling the setter schedules a re-render.
useEffect runs after render. Return a cleanup function to undo subscriptions.
Rules of Hooks: only call hooks at the top level and only from React functions.
Custom hooks compose the built-in ones and share logic between components.`

var testChunking = chunker.Options{MaxSize: 120, Overlap: 20}

type stubEmbedder struct {
	mu        sync.Mutex
	calls     int
	failFirst int
	err       error
	onEmbed   func()
}

func (e *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.onEmbed != nil {
		e.onEmbed()
	}
	if e.err != nil {
		return nil, e.err
	}
	if e.calls <= e.failFirst {
		return nil, domain.EmbeddingServiceError("embed", errors.New("upstream 503"))
	}
	return []float32{float32(len(text)), 1, float32(strings.Count(text, "e"))}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.IngestionEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev domain.IngestionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) statuses() []domain.DocumentStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.DocumentStatus, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Status)
	}
	return out
}

type fakeSource struct {
	text string
	err  error
}

func (f fakeSource) ReadText(_ context.Context, uri string) (*gcp.Object, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &gcp.Object{Bucket: "notes", Key: strings.TrimPrefix(uri, "gs://notes/"), Text: f.text}, nil
}

type fixture struct {
	svc    *Service
	docs   repos.DocumentRepo
	chunks repos.ChunkRepo
	store  vectorstore.Store
	emb    *stubEmbedder
	events *recordingPublisher
}

var fastPolicy = retry.Policy{Name: "test", Delays: []time.Duration{time.Millisecond}, MaxRetries: 2}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	db := testutil.DB(t)
	log := logger.Nop()
	fx := &fixture{
		docs:   repos.NewDocumentRepo(db, log),
		chunks: repos.NewChunkRepo(db, log),
		emb:    &stubEmbedder{},
		events: &recordingPublisher{},
	}
	fx.store = vectorstore.NewRelational(db, fx.chunks, log, 0)
	base := []Option{
		WithEvents(fx.events),
		WithChunking(testChunking),
		WithPolicies(fastPolicy, fastPolicy),
	}
	fx.svc = New(log, fx.docs, fx.store, fx.emb, append(base, opts...)...)
	return fx
}

func (fx *fixture) chunkCount(t *testing.T, id uuid.UUID) int64 {
	t.Helper()
	n, err := fx.chunks.CountByDocument(dbctx.New(context.Background()), id)
	require.NoError(t, err)
	return n
}

func TestIngestNowIndexesChunks(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	doc, err := fx.svc.Create(ctx, Request{Title: "React Hooks", Content: hooksDoc})
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentPending, doc.Status)

	res, err := fx.svc.IngestNow(ctx, doc.ID)
	require.NoError(t, err)

	want := len(chunker.Chunk(hooksDoc, testChunking))
	require.Greater(t, want, 1)
	assert.Equal(t, want, res.Chunks)
	assert.EqualValues(t, want, fx.chunkCount(t, doc.ID))

	got, err := fx.svc.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentReady, got.Status)
	assert.Equal(t, want, got.ChunkCount)

	matches, err := fx.store.Query(ctx, []float32{100, 1, 5}, 3, vectorstore.Filter{DocumentID: &doc.ID})
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, "React Hooks", vectorstore.MetaString(matches[0].Metadata, vectorstore.MetaDocumentTitle))

	assert.Equal(t, []domain.DocumentStatus{domain.DocumentPending, domain.DocumentReady}, fx.events.statuses())
}

func TestCreateValidates(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.svc.Create(ctx, Request{Title: " ", Content: "text"})
	assert.Equal(t, domain.KindInput, domain.KindOf(err))

	_, err = fx.svc.Create(ctx, Request{Title: "Empty", Content: "  \n"})
	assert.Equal(t, domain.KindInput, domain.KindOf(err))

	_, err = fx.svc.Create(ctx, Request{Title: strings.Repeat("t", maxTitleRunes+1), Content: "text"})
	assert.Equal(t, domain.KindInput, domain.KindOf(err))

	_, err = fx.svc.Create(ctx, Request{Title: "Remote", Source: "gs://notes/hooks.md"})
	assert.Equal(t, domain.KindInput, domain.KindOf(err), "gs source without a reader")
}

func TestCreateReadsObjectSource(t *testing.T) {
	fx := newFixture(t, WithSources(fakeSource{text: hooksDoc}))
	ctx := context.Background()

	doc, err := fx.svc.Create(ctx, Request{Title: "Hooks", Source: "gs://notes/hooks.md"})
	require.NoError(t, err)
	assert.Equal(t, hooksDoc, doc.Content)
	assert.Equal(t, "gs://notes/hooks.md", doc.Source)

	fx = newFixture(t, WithSources(fakeSource{err: errors.New("403")}))
	_, err = fx.svc.Create(ctx, Request{Title: "Hooks", Source: "gs://notes/hooks.md"})
	assert.Equal(t, domain.KindInput, domain.KindOf(err))
}

func TestReplaceRebuildsChunks(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	doc, err := fx.svc.Create(ctx, Request{Title: "React Hooks", Content: hooksDoc})
	require.NoError(t, err)
	_, err = fx.svc.IngestNow(ctx, doc.ID)
	require.NoError(t, err)

	short := "useState holds state."
	updated, err := fx.svc.Replace(ctx, doc.ID, Request{Content: short})
	require.NoError(t, err)
	assert.Equal(t, "React Hooks", updated.Title, "title kept when omitted")
	assert.Equal(t, domain.DocumentPending, updated.Status)

	res, err := fx.svc.IngestNow(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Chunks)
	assert.EqualValues(t, 1, fx.chunkCount(t, doc.ID))

	_, err = fx.svc.Replace(ctx, uuid.New(), Request{Content: short})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteCascadesAndHidesDocument(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	doc, err := fx.svc.Create(ctx, Request{Title: "React Hooks", Content: hooksDoc})
	require.NoError(t, err)
	res, err := fx.svc.IngestNow(ctx, doc.ID)
	require.NoError(t, err)

	n, err := fx.svc.Delete(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Chunks, n)
	assert.EqualValues(t, 0, fx.chunkCount(t, doc.ID))

	_, err = fx.svc.Get(ctx, doc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = fx.svc.Delete(ctx, doc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	removed, err := fx.store.DeleteByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	statuses := fx.events.statuses()
	assert.Contains(t, statuses, domain.DocumentDeleting)
}

func TestProcessRefusesDocumentMidDeletion(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	doc, err := fx.svc.Create(ctx, Request{Title: "React Hooks", Content: hooksDoc})
	require.NoError(t, err)
	require.NoError(t, fx.docs.SetStatus(dbctx.New(ctx), doc.ID, domain.DocumentDeleting, ""))

	_, err = fx.svc.Process(ctx, doc.ID)
	require.Error(t, err)
	assert.True(t, domain.IsPermanent(err))
	assert.Equal(t, 0, fx.emb.calls)
}

func TestRunYieldsToDeleteStartedMidIndexing(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	doc, err := fx.svc.Create(ctx, Request{Title: "React Hooks", Content: hooksDoc})
	require.NoError(t, err)

	var once sync.Once
	fx.emb.onEmbed = func() {
		once.Do(func() {
			require.NoError(t, fx.docs.SetStatus(dbctx.New(ctx), doc.ID, domain.DocumentDeleting, ""))
		})
	}

	_, err = fx.svc.Run(ctx, doc.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, domain.StageUpsert, StageOf(err))
	assert.Equal(t, len(chunker.Chunk(hooksDoc, testChunking)), fx.emb.calls, "no retry after the delete won")

	got, err := fx.svc.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentDeleting, got.Status)
	assert.EqualValues(t, 0, fx.chunkCount(t, doc.ID), "vectors written by the losing attempt are dropped")
	assert.NotContains(t, fx.events.statuses(), domain.DocumentFailed)

	_, err = fx.svc.Delete(ctx, doc.ID)
	require.NoError(t, err)
	_, err = fx.svc.Get(ctx, doc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRunRecoversFromTransientEmbeddingFailure(t *testing.T) {
	fx := newFixture(t)
	fx.emb.failFirst = 1
	ctx := context.Background()

	doc, err := fx.svc.Create(ctx, Request{Title: "React Hooks", Content: hooksDoc})
	require.NoError(t, err)

	res, err := fx.svc.Run(ctx, doc.ID)
	require.NoError(t, err)
	assert.Positive(t, res.Chunks)

	var retried bool
	for _, ev := range fx.events.events {
		if ev.Attempt == 1 && ev.Stage == domain.StageEmbed {
			retried = true
		}
	}
	assert.True(t, retried, "retry event published")
}

func TestRunMarksFailedAndAlertsAfterExhaustion(t *testing.T) {
	var alerts atomic.Int32
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		alerts.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(hook.Close)

	fx := newFixture(t, WithAlerter(observability.NewAlerter(logger.Nop(), hook.URL, time.Minute)))
	fx.emb.err = domain.EmbeddingServiceError("embed", errors.New("quota exceeded"))
	ctx := context.Background()

	doc, err := fx.svc.Create(ctx, Request{Title: "React Hooks", Content: hooksDoc})
	require.NoError(t, err)

	_, err = fx.svc.Run(ctx, doc.ID)
	require.Error(t, err)
	assert.Equal(t, domain.KindEmbeddingService, domain.KindOf(err))
	assert.Equal(t, domain.StageEmbed, StageOf(err))
	assert.Equal(t, fastPolicy.MaxRetries+1, fx.emb.calls)

	got, err := fx.svc.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentFailed, got.Status)
	assert.Contains(t, got.Error, "quota exceeded")
	assert.EqualValues(t, 1, alerts.Load())
}

func TestLocalDispatcherRunsInBackground(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	d := NewLocalDispatcher(logger.Nop(), fx.svc)

	doc, err := fx.svc.Create(ctx, Request{Title: "React Hooks", Content: hooksDoc})
	require.NoError(t, err)
	require.NoError(t, d.Dispatch(ctx, doc.ID))
	d.Wait()

	got, err := fx.svc.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentReady, got.Status)

	require.NoError(t, d.Close())
	assert.ErrorIs(t, d.Dispatch(ctx, doc.ID), ErrDispatcherClosed)
}
