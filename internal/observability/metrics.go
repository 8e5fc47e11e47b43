package observability

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/neurobridge-assistant/internal/pkg/envutil"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	llmRequests *CounterVec
	llmLatency  *HistogramVec
	llmTokens   *CounterVec

	retrievalLatency *HistogramVec
	retrievalResults *HistogramVec
	webSearch        *CounterVec
	webSearchLatency *HistogramVec
	assistantAnswers *CounterVec

	ingestions      *CounterVec
	ingestedChunks  *CounterVec
	ingestionRetry  *CounterVec
	vectorStoreOps  *CounterVec
	vectorStoreTime *HistogramVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", true)
}

// Current returns the process metrics registry, or nil when metrics are off.
// All Observe methods are safe on a nil receiver.
func Current() *Metrics {
	return instance
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = New()
		if log != nil {
			log.Info("metrics initialized")
		}
	})
	return instance
}

// New builds an unregistered registry. Tests use it directly.
func New() *Metrics {
	latency := []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}
	return &Metrics{
		apiRequests: NewCounterVec("nba_api_requests_total", "API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency:  NewHistogramVec("nba_api_request_duration_seconds", "API request latency by method/route/status.", []string{"method", "route", "status"}, latency),
		apiInflight: NewGauge("nba_api_inflight_requests", "In-flight API requests."),

		llmRequests: NewCounterVec("nba_llm_requests_total", "LLM requests by model/endpoint/status.", []string{"model", "endpoint", "status"}),
		llmLatency:  NewHistogramVec("nba_llm_request_duration_seconds", "LLM request latency by model/endpoint/status.", []string{"model", "endpoint", "status"}, []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120}),
		llmTokens:   NewCounterVec("nba_llm_tokens_total", "LLM tokens by model/kind.", []string{"model", "kind"}),

		retrievalLatency: NewHistogramVec("nba_retrieval_duration_seconds", "Retrieval latency by backend/kind.", []string{"backend", "kind"}, latency),
		retrievalResults: NewHistogramVec("nba_retrieval_results", "Contexts returned per retrieval.", []string{"kind"}, []float64{0, 1, 2, 3, 5, 8, 13, 21}),
		webSearch:        NewCounterVec("nba_web_search_total", "Web searches by type/status.", []string{"type", "status"}),
		webSearchLatency: NewHistogramVec("nba_web_search_duration_seconds", "Web search latency by type.", []string{"type"}, latency),
		assistantAnswers: NewCounterVec("nba_assistant_answers_total", "Answers by kind/mode/model/status.", []string{"kind", "mode", "model", "status"}),

		ingestions:      NewCounterVec("nba_ingestions_total", "Document ingestions by status.", []string{"status"}),
		ingestedChunks:  NewCounterVec("nba_ingested_chunks_total", "Chunks written by backend.", []string{"backend"}),
		ingestionRetry:  NewCounterVec("nba_ingestion_retries_total", "Ingestion retries by stage.", []string{"stage"}),
		vectorStoreOps:  NewCounterVec("nba_vector_store_ops_total", "Vector store operations by backend/op/status.", []string{"backend", "op", "status"}),
		vectorStoreTime: NewHistogramVec("nba_vector_store_duration_seconds", "Vector store latency by backend/op.", []string{"backend", "op"}, latency),
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	writers := []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.llmRequests, m.llmLatency, m.llmTokens,
		m.retrievalLatency, m.retrievalResults, m.webSearch, m.webSearchLatency, m.assistantAnswers,
		m.ingestions, m.ingestedChunks, m.ingestionRetry, m.vectorStoreOps, m.vectorStoreTime,
	}
	for _, wr := range writers {
		if err := wr.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) APIInflightInc() {
	if m != nil {
		m.apiInflight.Inc()
	}
}

func (m *Metrics) APIInflightDec() {
	if m != nil {
		m.apiInflight.Dec()
	}
}

func (m *Metrics) ObserveLLMRequest(model, endpoint, status string, dur time.Duration, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = "unknown"
	}
	m.llmRequests.Inc(model, endpoint, status)
	if dur > 0 {
		m.llmLatency.Observe(dur.Seconds(), model, endpoint, status)
	}
	if inputTokens > 0 {
		m.llmTokens.Add(float64(inputTokens), model, "input")
	}
	if outputTokens > 0 {
		m.llmTokens.Add(float64(outputTokens), model, "output")
	}
}

func (m *Metrics) ObserveRetrieval(backend, kind string, dur time.Duration, results int) {
	if m == nil {
		return
	}
	m.retrievalLatency.Observe(dur.Seconds(), backend, kind)
	m.retrievalResults.Observe(float64(results), kind)
}

func (m *Metrics) ObserveWebSearch(searchType, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.webSearch.Inc(searchType, status)
	if dur > 0 {
		m.webSearchLatency.Observe(dur.Seconds(), searchType)
	}
}

func (m *Metrics) IncAnswer(kind, mode, model, status string) {
	if m != nil {
		m.assistantAnswers.Inc(kind, mode, model, status)
	}
}

func (m *Metrics) ObserveIngestion(status string, chunks int, backend string) {
	if m == nil {
		return
	}
	m.ingestions.Inc(status)
	if chunks > 0 {
		m.ingestedChunks.Add(float64(chunks), backend)
	}
}

func (m *Metrics) IncIngestionRetry(stage string) {
	if m != nil {
		m.ingestionRetry.Inc(stage)
	}
}

func (m *Metrics) ObserveVectorStore(backend, op string, dur time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.vectorStoreOps.Inc(backend, op, status)
	m.vectorStoreTime.Observe(dur.Seconds(), backend, op)
}

// StatusLabel renders an HTTP status for metric labels.
func StatusLabel(code int) string {
	if code <= 0 {
		return "error"
	}
	return strconv.Itoa(code)
}
