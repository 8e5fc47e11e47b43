package app

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-assistant/internal/http"
	httpH "github.com/yungbote/neurobridge-assistant/internal/http/handlers"
	"github.com/yungbote/neurobridge-assistant/internal/modules/assistant/synth"
	"github.com/yungbote/neurobridge-assistant/internal/observability"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/envutil"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/logger"
)

type Handlers struct {
	Health    *httpH.HealthHandler
	Assistant *httpH.AssistantHandler
	Document  *httpH.DocumentHandler
}

func wireHandlers(log *logger.Logger, services Services, db *gorm.DB, metrics *observability.Metrics) Handlers {
	log.Info("Wiring handlers...")
	var pinger httpH.Pinger
	if sqlDB, err := db.DB(); err == nil {
		pinger = sqlDB
	}
	var web synth.Searcher
	if services.Web != nil {
		web = services.Web
	}
	return Handlers{
		Health:    httpH.NewHealthHandler(pinger, metrics),
		Assistant: httpH.NewAssistantHandler(log, services.Synth, services.Retrieval, web),
		Document:  httpH.NewDocumentHandler(log, services.Ingest, services.Dispatcher),
	}
}

func wireRouter(log *logger.Logger, cfg Config, handlers Handlers, metrics *observability.Metrics) *gin.Engine {
	return http.NewRouter(http.RouterConfig{
		Log:              log,
		Metrics:          metrics,
		CORSOrigins:      cfg.CORSOrigins,
		Tracing:          envutil.Bool("OTEL_ENABLED", false),
		ServiceName:      envutil.String("OTEL_SERVICE_NAME", "neurobridge-assistant"),
		AssistantHandler: handlers.Assistant,
		DocumentHandler:  handlers.Document,
		HealthHandler:    handlers.Health,
	})
}
