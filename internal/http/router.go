package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/neurobridge-assistant/internal/http/handlers"
	httpMW "github.com/yungbote/neurobridge-assistant/internal/http/middleware"
	"github.com/yungbote/neurobridge-assistant/internal/observability"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	CORSOrigins []string
	// Tracing adds the otelgin middleware.
	Tracing     bool
	ServiceName string

	AssistantHandler *httpH.AssistantHandler
	DocumentHandler  *httpH.DocumentHandler
	HealthHandler    *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Tracing {
		name := cfg.ServiceName
		if name == "" {
			name = "assistant"
		}
		r.Use(otelgin.Middleware(name))
	}
	r.Use(httpMW.RequestIdentity())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/metrics", cfg.HealthHandler.Metrics)
	}

	api := r.Group("/api")
	{
		// Assistant
		if cfg.AssistantHandler != nil {
			api.POST("/assistant/ask", cfg.AssistantHandler.Ask)
			api.POST("/assistant/rag", cfg.AssistantHandler.RAG)
			api.POST("/assistant/search", cfg.AssistantHandler.Search)
		}

		// Documents
		if cfg.DocumentHandler != nil {
			api.POST("/documents", cfg.DocumentHandler.Create)
			api.GET("/documents", cfg.DocumentHandler.List)
			api.GET("/documents/:id", cfg.DocumentHandler.Get)
			api.PUT("/documents/:id", cfg.DocumentHandler.Replace)
			api.DELETE("/documents/:id", cfg.DocumentHandler.Delete)
		}
	}

	return r
}
