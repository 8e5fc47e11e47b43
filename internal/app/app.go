package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-assistant/internal/data/db"
	"github.com/yungbote/neurobridge-assistant/internal/domain"
	"github.com/yungbote/neurobridge-assistant/internal/http"
	"github.com/yungbote/neurobridge-assistant/internal/observability"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/logger"
	"github.com/yungbote/neurobridge-assistant/internal/temporalx/temporalworker"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Clients  Clients
	Repos    Repos
	Services Services
	Metrics  *observability.Metrics

	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	metrics := observability.Init(log)
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: os.Getenv("OTEL_SERVICE_NAME"),
		Environment: logMode,
		Version:     os.Getenv("APP_VERSION"),
	})

	theDB, err := openDatabase(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}
	if err := db.AutoMigrateAll(theDB); err != nil {
		log.Sync()
		return nil, fmt.Errorf("%s automigrate: %w", cfg.DatabaseDriver, err)
	}

	reposet := wireRepos(theDB, log)

	clientset, err := wireClients(ctx, log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}

	serviceset, err := wireServices(ctx, theDB, log, cfg, reposet, clientset)
	if err != nil {
		clientset.Close()
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(log, serviceset, theDB, metrics)
	router := wireRouter(log, cfg, handlerset, metrics)

	return &App{
		Log:          log,
		DB:           theDB,
		Router:       router,
		Cfg:          cfg,
		Clients:      clientset,
		Repos:        reposet,
		Services:     serviceset,
		Metrics:      metrics,
		otelShutdown: otelShutdown,
	}, nil
}

func openDatabase(log *logger.Logger, cfg Config) (*gorm.DB, error) {
	switch cfg.DatabaseDriver {
	case "sqlite":
		d, err := db.OpenSQLite(log, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
		return d, nil
	case "postgres", "":
		pg, err := db.NewPostgresService(log)
		if err != nil {
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		return pg.DB(), nil
	default:
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q (allowed: postgres, sqlite)", cfg.DatabaseDriver)
	}
}

// Serve runs the HTTP API until ctx is done. Ingestion events published on
// redis are mirrored into the log while it runs.
func (a *App) Serve(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Clients.Events != nil {
		err := a.Clients.Events.StartForwarder(ctx, func(ev domain.IngestionEvent) {
			a.Log.Debug("ingestion event",
				"document_id", ev.DocumentID,
				"status", ev.Status,
				"stage", ev.Stage,
				"attempt", ev.Attempt,
			)
		})
		if err != nil {
			a.Log.Warn("ingestion event forwarder not started", "error", err)
		}
	}
	addr := ":" + strings.TrimPrefix(a.Cfg.Port, ":")
	srv := http.NewServer(a.Log, addr, a.Router)
	return srv.Run(ctx)
}

// RunWorker polls the Temporal ingestion queue until ctx is done.
func (a *App) RunWorker(ctx context.Context) error {
	if a == nil {
		return fmt.Errorf("app not initialized")
	}
	runner, err := temporalworker.NewRunner(a.Log, a.Clients.Temporal, a.Clients.TemporalCfg, a.Services.Ingest)
	if err != nil {
		return err
	}
	if err := runner.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	a.Log.Info("Temporal worker stopping")
	return nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Services.Close()
	a.Clients.Close()
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
		a.otelShutdown = nil
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
