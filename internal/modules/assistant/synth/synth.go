// Package synth turns a query, optional web results and optional retrieved
// context into a streamed answer from the generation service.
package synth

import (
	"context"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/neurobridge-assistant/internal/domain"
	"github.com/yungbote/neurobridge-assistant/internal/modules/assistant/intent"
	"github.com/yungbote/neurobridge-assistant/internal/modules/assistant/selector"
	"github.com/yungbote/neurobridge-assistant/internal/modules/assistant/websearch"
	"github.com/yungbote/neurobridge-assistant/internal/observability"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/envutil"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/httpx"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/logger"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/retry"
	"github.com/yungbote/neurobridge-assistant/internal/platform/openai"
)

const (
	DefaultMaxQueryChars = 1000
	DefaultMaxTokens     = 2048
	MaxWebSources        = 6

	// NoContextAnswer is returned instead of generating when retrieval found
	// nothing to ground the answer in.
	NoContextAnswer = "I could not find relevant information in your documents to answer this question."
)

type Generator interface {
	ChatStream(ctx context.Context, req openai.ChatRequest) (<-chan openai.StreamEvent, error)
}

type Searcher interface {
	Search(ctx context.Context, kind websearch.SearchType, query string, opts websearch.Options) (*websearch.SearchResponse, error)
}

type Config struct {
	MaxQueryChars int
	MaxTokens     int
}

func ConfigFromEnv() Config {
	return Config{
		MaxQueryChars: envutil.Int("ASSISTANT_MAX_QUERY_CHARS", DefaultMaxQueryChars),
		MaxTokens:     envutil.Int("ASSISTANT_MAX_TOKENS", DefaultMaxTokens),
	}
}

type AskOptions struct {
	// Mode overrides detection when valid.
	Mode intent.Mode
	// Urgency overrides detection when set.
	Urgency    intent.Urgency
	SkipSearch bool
}

type RAGOptions struct {
	SkillLevel intent.SkillLevel
	History    []domain.ConversationMessage
}

type Synthesizer struct {
	log        *logger.Logger
	cfg        Config
	gen        Generator
	classifier *intent.Classifier
	selector   *selector.Selector
	searcher   Searcher
	policy     retry.Policy
}

// New wires a Synthesizer. searcher may be nil, in which case answers are
// never web-augmented.
func New(log *logger.Logger, cfg Config, gen Generator, classifier *intent.Classifier, sel *selector.Selector, searcher Searcher) *Synthesizer {
	if cfg.MaxQueryChars <= 0 {
		cfg.MaxQueryChars = DefaultMaxQueryChars
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	policy := retry.Interactive
	policy.Retryable = httpx.IsRetryableError
	return &Synthesizer{
		log:        log.With("service", "AnswerSynthesizer"),
		cfg:        cfg,
		gen:        gen,
		classifier: classifier,
		selector:   sel,
		searcher:   searcher,
		policy:     policy,
	}
}

func (s *Synthesizer) WithRetryPolicy(p retry.Policy) *Synthesizer {
	cp := *s
	cp.policy = p
	return &cp
}

// ValidateQuery rejects empty and oversized queries.
func (s *Synthesizer) ValidateQuery(query string) error {
	q := strings.TrimSpace(query)
	if q == "" {
		return domain.InputError("query is empty")
	}
	if n := utf8.RuneCountInString(q); n > s.cfg.MaxQueryChars {
		return domain.InputError("query is %d characters, limit is %d", n, s.cfg.MaxQueryChars)
	}
	return nil
}

// AskAIAssistant answers from the model's own knowledge, optionally augmented
// with live web results chosen by the detected learning mode.
func (s *Synthesizer) AskAIAssistant(ctx context.Context, query string, history []domain.ConversationMessage, opts AskOptions) (*Stream, error) {
	if err := s.ValidateQuery(query); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	start := time.Now()

	mode := opts.Mode
	if !mode.Valid() {
		mode = s.classifier.DetectLearningMode(query)
	}
	complexity := s.classifier.DetectComplexity(query)
	urgency := opts.Urgency
	if urgency == "" {
		urgency = s.classifier.DetectUrgency(query)
	}

	meta := domain.ResponseMetadata{
		Mode:       string(mode),
		Complexity: string(complexity),
		Urgency:    string(urgency),
	}

	var web []domain.WebResult
	if !opts.SkipSearch && s.searcher != nil && s.classifier.ShouldPerformSearch(query, mode) {
		kind := s.searchTypeFor(query, mode)
		meta.SearchType = string(kind)
		resp, err := s.searcher.Search(ctx, kind, query, websearch.Options{})
		if err != nil {
			s.log.Warn("web search failed; answering without web context", "type", kind, "error", err)
		} else {
			meta.SearchPerformed = true
			web = resp.Results
			if len(web) > MaxWebSources {
				web = web[:MaxWebSources]
			}
		}
	}
	meta.WebResultCount = len(web)

	model := s.selector.SelectOptimalModel(mode, query, complexity)
	temp := s.selector.Temperature(mode)
	meta.Model = model
	meta.Temperature = temp

	messages := toChatMessages(history)
	messages = append(messages, openai.ChatMessage{
		Role:    string(domain.RoleUser),
		Content: composeAugmentedQuery(query, web, mode, urgency, complexity),
	})

	req := openai.ChatRequest{
		Model:        model,
		SystemPrompt: s.selector.PromptForLearningMode(mode),
		Messages:     messages,
		Temperature:  &temp,
		MaxTokens:    s.cfg.MaxTokens,
	}
	return s.generate(ctx, "ask", meta.Mode, req, start, func(content string, usage openai.Usage) *domain.AssistantResponse {
		return &domain.AssistantResponse{
			Content:          content,
			Usage:            toUsage(usage),
			Model:            model,
			ProcessingTimeMs: time.Since(start).Milliseconds(),
			Sources:          []domain.RetrievedContext{},
			WebSources:       web,
			Metadata:         meta,
		}
	})
}

// AskRAGAssistant answers strictly from the supplied contexts. With no
// contexts it returns the no-context answer without calling the model.
func (s *Synthesizer) AskRAGAssistant(ctx context.Context, query string, contexts []domain.RetrievedContext, opts RAGOptions) (*Stream, error) {
	if err := s.ValidateQuery(query); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	start := time.Now()

	skill := opts.SkillLevel
	if skill == "" {
		skill = s.classifier.DetectSkillLevel(query)
	}
	model := s.selector.RAGModel()
	temp := selector.RAGTemperature
	meta := domain.ResponseMetadata{
		Mode:         "rag",
		Model:        model,
		Temperature:  temp,
		SkillLevel:   string(skill),
		ContextCount: len(contexts),
	}

	if len(contexts) == 0 {
		zero := 0.0
		meta.NoContext = true
		observability.Current().IncAnswer("rag", meta.Mode, "", "no_context")
		return staticStream(&domain.AssistantResponse{
			Content:          NoContextAnswer,
			ProcessingTimeMs: time.Since(start).Milliseconds(),
			Confidence:       &zero,
			Sources:          []domain.RetrievedContext{},
			Metadata:         meta,
		}), nil
	}

	messages := toChatMessages(opts.History)
	messages = append(messages, openai.ChatMessage{
		Role:    string(domain.RoleUser),
		Content: composeRAGQuery(query, contexts, skill),
	})
	req := openai.ChatRequest{
		Model:        model,
		SystemPrompt: selector.RAGSystemPrompt + "\n\n" + selector.SkillDirective(skill),
		Messages:     messages,
		Temperature:  &temp,
		MaxTokens:    s.cfg.MaxTokens,
	}
	confidence := Confidence(contexts)
	return s.generate(ctx, "rag", meta.Mode, req, start, func(content string, usage openai.Usage) *domain.AssistantResponse {
		return &domain.AssistantResponse{
			Content:          content,
			Usage:            toUsage(usage),
			Model:            model,
			ProcessingTimeMs: time.Since(start).Milliseconds(),
			Confidence:       &confidence,
			Sources:          contexts,
			Metadata:         meta,
		}
	})
}

func (s *Synthesizer) generate(ctx context.Context, kind, mode string, req openai.ChatRequest, start time.Time, finish finishFunc) (*Stream, error) {
	ctx, cancel := context.WithCancel(ctx)
	ctx, span := observability.StartSpan(ctx, "synth."+kind,
		attribute.String("llm.model", req.Model),
		attribute.Int("llm.messages", len(req.Messages)),
	)

	events, err := retry.DoValue(ctx, s.policy, func(ctx context.Context) (<-chan openai.StreamEvent, error) {
		return s.gen.ChatStream(ctx, req)
	})
	if err != nil {
		cancel()
		err = domain.GenerationServiceError("chat_stream", err)
		observability.EndSpan(span, err)
		observability.Current().IncAnswer(kind, mode, req.Model, "error")
		return nil, err
	}

	return startStream(ctx, cancel, events, finish, func(err error) {
		status := "ok"
		if err != nil {
			status = "error"
			s.log.Warn("generation stream ended with error", "kind", kind, "model", req.Model, "error", err)
		} else {
			s.log.Debug("answer generated", "kind", kind, "model", req.Model, "duration_ms", time.Since(start).Milliseconds())
		}
		observability.Current().IncAnswer(kind, mode, req.Model, status)
		observability.EndSpan(span, err)
	}), nil
}

// searchTypeFor picks recent results for career questions, engineering
// sources for software questions, and a general search otherwise.
func (s *Synthesizer) searchTypeFor(query string, mode intent.Mode) websearch.SearchType {
	switch {
	case s.classifier.HasCareerTerm(query):
		return websearch.TypeRecent
	case s.classifier.HasSoftwareContext(query),
		mode == intent.ModeDebugCode,
		mode == intent.ModeCodeReview,
		mode == intent.ModeAnalyseCode,
		mode == intent.ModeAnalyzeAlgorithm:
		return websearch.TypeSoftware
	default:
		return websearch.TypeGeneral
	}
}

// Confidence is the mean context similarity as a percentage, capped at 100
// and rounded to one decimal. It is a heuristic ranking signal, not a
// calibrated probability of the answer being correct.
func Confidence(contexts []domain.RetrievedContext) float64 {
	if len(contexts) == 0 {
		return 0
	}
	var sum float64
	for _, c := range contexts {
		sum += math.Max(0, math.Min(1, c.Similarity))
	}
	pct := math.Min(100, sum/float64(len(contexts))*100)
	return math.Round(pct*10) / 10
}

func toChatMessages(history []domain.ConversationMessage) []openai.ChatMessage {
	out := make([]openai.ChatMessage, 0, len(history)+1)
	for _, m := range history {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		role := m.Role
		if role == "" {
			role = domain.RoleUser
		}
		out = append(out, openai.ChatMessage{Role: string(role), Content: m.Content})
	}
	return out
}

func toUsage(u openai.Usage) domain.Usage {
	return domain.Usage{
		InputTokens:  u.InputTokens,
		OutputTokens: u.OutputTokens,
		TotalTokens:  u.InputTokens + u.OutputTokens,
	}
}
