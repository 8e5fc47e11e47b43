package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/neurobridge-assistant/internal/pkg/logger"
)

// Alerter posts operator-facing alerts to a webhook, rate limited per key.
type Alerter struct {
	log         *logger.Logger
	webhook     string
	minInterval time.Duration
	httpClient  *http.Client

	mu   sync.Mutex
	last map[string]time.Time
	now  func() time.Time
}

func NewAlerter(log *logger.Logger, webhook string, minInterval time.Duration) *Alerter {
	if minInterval <= 0 {
		minInterval = 10 * time.Minute
	}
	return &Alerter{
		log:         log.With("component", "Alerter"),
		webhook:     strings.TrimSpace(webhook),
		minInterval: minInterval,
		httpClient:  &http.Client{Timeout: 5 * time.Second},
		last:        map[string]time.Time{},
		now:         time.Now,
	}
}

func (a *Alerter) Enabled() bool {
	return a != nil && a.webhook != ""
}

// IngestionFailed reports a document that exhausted its ingestion retries.
func (a *Alerter) IngestionFailed(ctx context.Context, documentID, stage string, cause error, meta map[string]any) {
	if a == nil {
		return
	}
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	a.log.Error("document ingestion failed", "document_id", documentID, "stage", stage, "error", msg)
	a.send(ctx, "ingestion:"+documentID, map[string]any{
		"title":       "Document ingestion failed",
		"document_id": documentID,
		"stage":       stage,
		"error":       msg,
		"meta":        meta,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *Alerter) send(ctx context.Context, key string, payload map[string]any) {
	if !a.Enabled() {
		return
	}
	if !a.allow(key) {
		return
	}

	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.webhook, bytes.NewReader(body))
	if err != nil {
		a.log.Warn("alert request build failed", "error", err, "key", key)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.log.Warn("alert post failed", "error", err, "key", key)
		return
	}
	_ = resp.Body.Close()
	a.log.Info("alert sent", "key", key, "status", resp.StatusCode)
}

// allow records an alert for key unless one went out within minInterval.
// Keys older than the window are dropped on every recorded alert.
func (a *Alerter) allow(key string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.now()
	if last, ok := a.last[key]; ok && now.Sub(last) < a.minInterval {
		return false
	}
	for k, t := range a.last {
		if now.Sub(t) >= a.minInterval {
			delete(a.last, k)
		}
	}
	a.last[key] = now
	return true
}
