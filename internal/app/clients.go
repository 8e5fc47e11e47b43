package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/neurobridge-assistant/internal/pkg/logger"
	"github.com/yungbote/neurobridge-assistant/internal/platform/brave"
	"github.com/yungbote/neurobridge-assistant/internal/platform/gcp"
	"github.com/yungbote/neurobridge-assistant/internal/platform/openai"
	"github.com/yungbote/neurobridge-assistant/internal/platform/redis"
	"github.com/yungbote/neurobridge-assistant/internal/temporalx"
)

// Clients holds the external connections. Everything except OpenAI is
// optional and nil when unconfigured.
type Clients struct {
	OpenAI   openai.Client
	Brave    brave.Client
	Redis    *goredis.Client
	Events   redis.EventBus
	Objects  gcp.ObjectSource
	Temporal temporalsdkclient.Client

	TemporalCfg temporalx.Config
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	// OpenAI
	oa, err := openai.NewClient(log, openai.ConfigFromEnv())
	if err != nil {
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	}
	out.OpenAI = oa

	// Brave
	if bc, err := brave.NewClient(log, brave.ConfigFromEnv()); err != nil {
		log.Warn("Web search disabled", "reason", err.Error())
	} else {
		out.Brave = bc
	}

	// Redis
	if rcfg := redis.ConfigFromEnv(); rcfg.Enabled() {
		rdb, err := redis.Connect(ctx, log, rcfg)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis: %w", err)
		}
		out.Redis = rdb
		bus, err := redis.NewEventBus(log, rdb, cfg.IngestEventsChan)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init ingestion event bus: %w", err)
		}
		out.Events = bus
	}

	// Gcs
	objects, err := resolveObjectSource(ctx, log, cfg)
	if err != nil {
		out.Close()
		return Clients{}, err
	}
	out.Objects = objects

	// Temporal
	out.TemporalCfg = temporalx.LoadConfig()
	tc, err := temporalx.NewClient(log, out.TemporalCfg)
	if err != nil {
		out.Close()
		return Clients{}, fmt.Errorf("init temporal client: %w", err)
	}
	out.Temporal = tc

	return out, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Temporal != nil {
		c.Temporal.Close()
		c.Temporal = nil
	}
	if c.Objects != nil {
		_ = c.Objects.Close()
		c.Objects = nil
	}
	// The event bus owns the redis connection.
	if c.Events != nil {
		_ = c.Events.Close()
		c.Events, c.Redis = nil, nil
	} else if c.Redis != nil {
		_ = c.Redis.Close()
		c.Redis = nil
	}
}
