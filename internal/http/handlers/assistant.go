package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/neurobridge-assistant/internal/domain"
	"github.com/yungbote/neurobridge-assistant/internal/http/response"
	"github.com/yungbote/neurobridge-assistant/internal/modules/assistant/intent"
	"github.com/yungbote/neurobridge-assistant/internal/modules/assistant/retrieval"
	"github.com/yungbote/neurobridge-assistant/internal/modules/assistant/synth"
	"github.com/yungbote/neurobridge-assistant/internal/modules/assistant/websearch"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/ctxutil"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/logger"
)

const maxTopK = 50

type Retriever interface {
	FindRelevantChunks(ctx context.Context, query string, topK int, documentID *uuid.UUID) ([]domain.RetrievedContext, error)
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
	HybridSearch(ctx context.Context, queryEmbedding []float32, keywords []string, topK int, documentID *uuid.UUID) ([]domain.RetrievedContext, error)
}

type AssistantHandler struct {
	log       *logger.Logger
	synth     *synth.Synthesizer
	retriever Retriever
	web       synth.Searcher
}

// NewAssistantHandler wires the question routes. web may be nil, in which
// case the search route answers 503 and RAG never adds web sources.
func NewAssistantHandler(log *logger.Logger, s *synth.Synthesizer, retriever Retriever, web synth.Searcher) *AssistantHandler {
	return &AssistantHandler{
		log:       log.With("handler", "AssistantHandler"),
		synth:     s,
		retriever: retriever,
		web:       web,
	}
}

type askRequest struct {
	Query      string                       `json:"query"`
	History    []domain.ConversationMessage `json:"history"`
	Mode       string                       `json:"mode"`
	Urgency    string                       `json:"urgency"`
	SkipSearch bool                         `json:"skip_search"`
	Stream     bool                         `json:"stream"`
}

type ragRequest struct {
	Query      string                       `json:"query"`
	DocumentID string                       `json:"document_id"`
	TopK       int                          `json:"top_k"`
	Keywords   []string                     `json:"keywords"`
	Hybrid     bool                         `json:"hybrid"`
	SkillLevel string                       `json:"skill_level"`
	History    []domain.ConversationMessage `json:"history"`
	IncludeWeb bool                         `json:"include_web"`
	Stream     bool                         `json:"stream"`
}

type searchRequest struct {
	Query          string   `json:"query"`
	Type           string   `json:"type"`
	Count          int      `json:"count"`
	Freshness      string   `json:"freshness"`
	SafeSearch     string   `json:"safe_search"`
	IncludeDomains []string `json:"include_domains"`
	ExcludeDomains []string `json:"exclude_domains"`
}

type answerResponse struct {
	Answer           string                    `json:"answer"`
	Sources          []domain.RetrievedContext `json:"sources"`
	WebSources       []domain.WebResult        `json:"web_sources,omitempty"`
	Confidence       *float64                  `json:"confidence,omitempty"`
	Model            string                    `json:"model"`
	Usage            domain.Usage              `json:"usage"`
	ProcessingTimeMs int64                     `json:"processing_time_ms"`
	Metadata         domain.ResponseMetadata   `json:"metadata"`
}

// POST /api/assistant/ask
func (h *AssistantHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, domain.InputError("invalid request body: %v", err))
		return
	}
	opts := synth.AskOptions{SkipSearch: req.SkipSearch}
	if req.Mode != "" {
		mode, ok := intent.ParseMode(req.Mode)
		if !ok {
			response.RespondError(c, domain.InputError("unknown mode %q", req.Mode))
			return
		}
		opts.Mode = mode
	}
	switch u := intent.Urgency(strings.ToLower(strings.TrimSpace(req.Urgency))); u {
	case "":
	case intent.UrgencyNormal, intent.UrgencyHigh:
		opts.Urgency = u
	default:
		response.RespondError(c, domain.InputError("unknown urgency %q", req.Urgency))
		return
	}
	if err := validateHistory(req.History); err != nil {
		response.RespondError(c, err)
		return
	}

	stream, err := h.synth.AskAIAssistant(c.Request.Context(), req.Query, req.History, opts)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	h.deliver(c, stream, req.Stream, nil)
}

// POST /api/assistant/rag
func (h *AssistantHandler) RAG(c *gin.Context) {
	var req ragRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, domain.InputError("invalid request body: %v", err))
		return
	}
	if err := h.synth.ValidateQuery(req.Query); err != nil {
		response.RespondError(c, err)
		return
	}
	if err := validateHistory(req.History); err != nil {
		response.RespondError(c, err)
		return
	}
	var docID *uuid.UUID
	if strings.TrimSpace(req.DocumentID) != "" {
		id, err := uuid.Parse(strings.TrimSpace(req.DocumentID))
		if err != nil {
			response.RespondError(c, domain.InputError("invalid document_id"))
			return
		}
		docID = &id
	}
	if req.TopK < 0 || req.TopK > maxTopK {
		response.RespondError(c, domain.InputError("top_k must be between 1 and %d", maxTopK))
		return
	}
	opts := synth.RAGOptions{History: req.History}
	if req.SkillLevel != "" {
		level, ok := intent.ParseSkillLevel(req.SkillLevel)
		if !ok {
			response.RespondError(c, domain.InputError("unknown skill_level %q", req.SkillLevel))
			return
		}
		opts.SkillLevel = level
	}
	keywords := req.Keywords
	if len(keywords) == 0 && req.Hybrid {
		keywords = retrieval.ExtractKeywords(req.Query)
	}

	var (
		contexts []domain.RetrievedContext
		web      []domain.WebResult
	)
	g, gctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		var err error
		if len(keywords) > 0 {
			var emb []float32
			if emb, err = h.retriever.EmbedQuery(gctx, req.Query); err != nil {
				return err
			}
			contexts, err = h.retriever.HybridSearch(gctx, emb, keywords, req.TopK, docID)
			return err
		}
		contexts, err = h.retriever.FindRelevantChunks(gctx, req.Query, req.TopK, docID)
		return err
	})
	if req.IncludeWeb && h.web != nil {
		g.Go(func() error {
			res, err := h.web.Search(gctx, websearch.TypeGeneral, req.Query, websearch.Options{})
			if err != nil {
				// Web links are optional on this route.
				h.log.Warn("web search failed; answering from documents only",
					append(ctxutil.LogFields(gctx), "error", err)...)
				return nil
			}
			web = res.Results
			if len(web) > synth.MaxWebSources {
				web = web[:synth.MaxWebSources]
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		response.RespondError(c, err)
		return
	}

	stream, err := h.synth.AskRAGAssistant(c.Request.Context(), req.Query, contexts, opts)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	h.deliver(c, stream, req.Stream, web)
}

// POST /api/assistant/search
func (h *AssistantHandler) Search(c *gin.Context) {
	if h.web == nil {
		response.RespondErrorStatus(c, http.StatusServiceUnavailable, "search_disabled", errSearchDisabled)
		return
	}
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, domain.InputError("invalid request body: %v", err))
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		response.RespondError(c, domain.InputError("query is empty"))
		return
	}
	kind := websearch.SearchType(strings.ToLower(strings.TrimSpace(req.Type)))
	switch kind {
	case "":
		kind = websearch.TypeGeneral
	case websearch.TypeGeneral, websearch.TypeSoftware, websearch.TypeRecent:
	default:
		response.RespondError(c, domain.InputError("unknown search type %q", req.Type))
		return
	}
	res, err := h.web.Search(c.Request.Context(), kind, req.Query, websearch.Options{
		Count:          req.Count,
		Freshness:      req.Freshness,
		SafeSearch:     req.SafeSearch,
		IncludeDomains: req.IncludeDomains,
		ExcludeDomains: req.ExcludeDomains,
	})
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, res)
}

// deliver either streams tokens as plain text or waits and writes JSON.
// Once streaming has begun the status is committed; a later failure only
// ends the body early.
func (h *AssistantHandler) deliver(c *gin.Context, stream *synth.Stream, streaming bool, web []domain.WebResult) {
	defer stream.Close()
	if !streaming {
		resp, err := synth.Collect(stream)
		if err != nil {
			response.RespondError(c, err)
			return
		}
		if len(web) > 0 {
			resp.WebSources = web
		}
		response.RespondOK(c, toAnswer(resp))
		return
	}

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	for tok := range stream.Tokens() {
		if _, err := c.Writer.WriteString(tok); err != nil {
			h.log.Warn("client went away mid-stream", append(ctxutil.LogFields(c.Request.Context()), "error", err)...)
			return
		}
		c.Writer.Flush()
	}
	if _, err := stream.Wait(); err != nil {
		_ = c.Error(err)
		h.log.Error("answer stream failed", append(ctxutil.LogFields(c.Request.Context()), "error", err)...)
	}
}

func toAnswer(resp *domain.AssistantResponse) answerResponse {
	sources := resp.Sources
	if sources == nil {
		sources = []domain.RetrievedContext{}
	}
	return answerResponse{
		Answer:           resp.Content,
		Sources:          sources,
		WebSources:       resp.WebSources,
		Confidence:       resp.Confidence,
		Model:            resp.Model,
		Usage:            resp.Usage,
		ProcessingTimeMs: resp.ProcessingTimeMs,
		Metadata:         resp.Metadata,
	}
}

func validateHistory(history []domain.ConversationMessage) error {
	for i, m := range history {
		switch m.Role {
		case domain.RoleUser, domain.RoleAssistant, domain.RoleSystem:
		default:
			return domain.InputError("history[%d]: unknown role %q", i, m.Role)
		}
	}
	return nil
}
