package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-assistant/internal/modules/assistant/embedding"
	"github.com/yungbote/neurobridge-assistant/internal/modules/assistant/ingest"
	"github.com/yungbote/neurobridge-assistant/internal/modules/assistant/intent"
	"github.com/yungbote/neurobridge-assistant/internal/modules/assistant/retrieval"
	"github.com/yungbote/neurobridge-assistant/internal/modules/assistant/selector"
	"github.com/yungbote/neurobridge-assistant/internal/modules/assistant/synth"
	"github.com/yungbote/neurobridge-assistant/internal/modules/assistant/vectorstore"
	"github.com/yungbote/neurobridge-assistant/internal/modules/assistant/websearch"
	"github.com/yungbote/neurobridge-assistant/internal/observability"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/logger"
	"github.com/yungbote/neurobridge-assistant/internal/platform/redis"
	"github.com/yungbote/neurobridge-assistant/internal/temporalx/ingestflow"
)

type Services struct {
	Embedder   embedding.Embedder
	Store      vectorstore.Store
	Retrieval  *retrieval.Engine
	Web        *websearch.Augmenter
	Classifier *intent.Classifier
	Selector   *selector.Selector
	Synth      *synth.Synthesizer
	Alerter    *observability.Alerter
	Ingest     *ingest.Service
	Dispatcher ingest.Dispatcher

	local *ingest.LocalDispatcher
}

func wireServices(ctx context.Context, db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")
	var out Services

	out.Embedder = embedding.New(log, clients.OpenAI, cfg.EmbeddingDim)

	store, err := resolveVectorStore(ctx, log, cfg, db, reposet.Chunks)
	if err != nil {
		return Services{}, err
	}
	out.Store = store

	out.Retrieval = retrieval.NewEngine(log, out.Embedder, store,
		retrieval.WithDocumentStatuses(retrieval.NewRepoStatuses(reposet.Documents)),
	)

	// Web search; the interface stays nil (not a typed nil) when disabled.
	var searcher synth.Searcher
	if clients.Brave != nil {
		var cache websearch.Cache
		if clients.Redis != nil {
			cache = websearch.NewRedisCache(log, redis.NewJSONCache(clients.Redis, "assistant:websearch:"), cfg.WebSearchCacheTTL)
		} else {
			cache = websearch.NewLRUCache(cfg.WebSearchCacheSize, cfg.WebSearchCacheTTL)
		}
		out.Web = websearch.NewAugmenter(log, clients.Brave, websearch.WithCache(cache))
		searcher = out.Web
	}

	taxonomy, err := intent.TaxonomyFromEnv(log)
	if err != nil {
		return Services{}, fmt.Errorf("load intent taxonomy: %w", err)
	}
	out.Classifier = intent.New(taxonomy)
	out.Selector = selector.New(selector.ConfigFromEnv(), out.Classifier)
	out.Synth = synth.New(log, synth.ConfigFromEnv(), clients.OpenAI, out.Classifier, out.Selector, searcher)

	out.Alerter = observability.NewAlerter(log, cfg.AlertWebhookURL, cfg.AlertMinInterval)

	opts := []ingest.Option{ingest.WithAlerter(out.Alerter)}
	if clients.Events != nil {
		opts = append(opts, ingest.WithEvents(clients.Events))
	}
	if clients.Objects != nil {
		opts = append(opts, ingest.WithSources(clients.Objects))
	}
	ingestEmbedder := embedding.NewThrottled(out.Embedder, cfg.IngestEmbedInterval)
	out.Ingest = ingest.New(log, reposet.Documents, store, ingestEmbedder, opts...)

	if clients.Temporal != nil {
		d, err := ingestflow.NewDispatcher(log, clients.Temporal, clients.TemporalCfg.TaskQueue, out.Ingest.BackgroundPolicy())
		if err != nil {
			return Services{}, err
		}
		out.Dispatcher = d
	} else {
		out.local = ingest.NewLocalDispatcher(log, out.Ingest)
		out.Dispatcher = out.local
	}

	return out, nil
}

func (s *Services) Close() {
	if s == nil {
		return
	}
	if s.local != nil {
		_ = s.local.Close()
		s.local = nil
	}
}
