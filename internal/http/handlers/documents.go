package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-assistant/internal/domain"
	"github.com/yungbote/neurobridge-assistant/internal/http/response"
	"github.com/yungbote/neurobridge-assistant/internal/modules/assistant/ingest"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/logger"
)

var errSearchDisabled = errors.New("web search is not configured")

// DocumentService is the slice of ingest.Service the document routes use.
type DocumentService interface {
	Create(ctx context.Context, req ingest.Request) (*domain.Document, error)
	Replace(ctx context.Context, id uuid.UUID, req ingest.Request) (*domain.Document, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Document, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Document, error)
	IngestNow(ctx context.Context, id uuid.UUID) (ingest.Result, error)
	Delete(ctx context.Context, id uuid.UUID) (int, error)
}

type DocumentHandler struct {
	log        *logger.Logger
	docs       DocumentService
	dispatcher ingest.Dispatcher
}

func NewDocumentHandler(log *logger.Logger, docs DocumentService, dispatcher ingest.Dispatcher) *DocumentHandler {
	return &DocumentHandler{
		log:        log.With("handler", "DocumentHandler"),
		docs:       docs,
		dispatcher: dispatcher,
	}
}

type documentRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Source  string `json:"source"`
	Async   bool   `json:"async"`
}

type documentView struct {
	*domain.Document
	Content string `json:"content,omitempty"`
}

// POST /api/documents
func (h *DocumentHandler) Create(c *gin.Context) {
	var req documentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, domain.InputError("invalid request body: %v", err))
		return
	}
	doc, err := h.docs.Create(c.Request.Context(), ingest.Request{Title: req.Title, Content: req.Content, Source: req.Source})
	if err != nil {
		response.RespondError(c, err)
		return
	}
	h.index(c, doc.ID, req.Async, http.StatusCreated)
}

// PUT /api/documents/:id
func (h *DocumentHandler) Replace(c *gin.Context) {
	id, ok := documentID(c)
	if !ok {
		return
	}
	var req documentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, domain.InputError("invalid request body: %v", err))
		return
	}
	if _, err := h.docs.Replace(c.Request.Context(), id, ingest.Request{Title: req.Title, Content: req.Content, Source: req.Source}); err != nil {
		response.RespondError(c, err)
		return
	}
	h.index(c, id, req.Async, http.StatusOK)
}

// GET /api/documents/:id
func (h *DocumentHandler) Get(c *gin.Context) {
	id, ok := documentID(c)
	if !ok {
		return
	}
	doc, err := h.docs.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"document": view(doc, c.Query("include_content") == "true")})
}

// GET /api/documents
func (h *DocumentHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	docs, err := h.docs.List(c.Request.Context(), limit, offset)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	out := make([]documentView, 0, len(docs))
	for _, d := range docs {
		out = append(out, view(d, false))
	}
	response.RespondOK(c, gin.H{"documents": out})
}

// DELETE /api/documents/:id
func (h *DocumentHandler) Delete(c *gin.Context) {
	id, ok := documentID(c)
	if !ok {
		return
	}
	n, err := h.docs.Delete(c.Request.Context(), id)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": true, "chunks_deleted": n})
}

// index runs ingestion inline, or hands it to the dispatcher when async.
func (h *DocumentHandler) index(c *gin.Context, id uuid.UUID, async bool, okStatus int) {
	ctx := c.Request.Context()
	if async && h.dispatcher != nil {
		if err := h.dispatcher.Dispatch(ctx, id); err != nil {
			response.RespondError(c, err)
			return
		}
		doc, err := h.docs.Get(ctx, id)
		if err != nil {
			response.RespondError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"document": view(doc, false)})
		return
	}
	if _, err := h.docs.IngestNow(ctx, id); err != nil {
		response.RespondError(c, err)
		return
	}
	doc, err := h.docs.Get(ctx, id)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(okStatus, gin.H{"document": view(doc, false)})
}

func documentID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil || id == uuid.Nil {
		response.RespondError(c, domain.InputError("invalid document id"))
		return uuid.Nil, false
	}
	return id, true
}

func view(d *domain.Document, withContent bool) documentView {
	v := documentView{Document: d}
	if withContent {
		v.Content = d.Content
	}
	return v
}
