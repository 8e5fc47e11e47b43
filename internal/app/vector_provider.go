package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	neturl "net/url"
	"os"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-assistant/internal/data/repos"
	"github.com/yungbote/neurobridge-assistant/internal/modules/assistant/vectorstore"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/logger"
	"github.com/yungbote/neurobridge-assistant/internal/platform/hnswindex"
	"github.com/yungbote/neurobridge-assistant/internal/platform/pinecone"
	"github.com/yungbote/neurobridge-assistant/internal/platform/qdrant"
	"github.com/yungbote/neurobridge-assistant/internal/platform/vectorindex"
)

var (
	newPineconeClient      = pinecone.New
	newPineconeVectorStore = pinecone.NewVectorStore
	newQdrantVectorStore   = qdrant.NewVectorStore
)

type VectorProviderBootstrapErrorCode string

const (
	VectorProviderBootstrapErrorConnectFailed      VectorProviderBootstrapErrorCode = "connect_failed"
	VectorProviderBootstrapErrorProviderInitFailed VectorProviderBootstrapErrorCode = "provider_init_failed"
	VectorProviderBootstrapErrorMissingAPIKey      VectorProviderBootstrapErrorCode = "missing_api_key"
)

type VectorProviderBootstrapError struct {
	Code     VectorProviderBootstrapErrorCode
	Provider VectorProvider
	Cause    error
}

func (e *VectorProviderBootstrapError) Error() string {
	if e == nil {
		return "vector provider bootstrap failed"
	}
	return fmt.Sprintf("vector provider bootstrap failed (code=%s provider=%q): %v", e.Code, e.Provider, e.Cause)
}

func (e *VectorProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// resolveVectorStore builds the configured store, wrapped in a mirror when
// VECTOR_MIRROR names a second provider. Writes land in the mirror first.
func resolveVectorStore(ctx context.Context, log *logger.Logger, cfg Config, db *gorm.DB, chunks repos.ChunkRepo) (vectorstore.Store, error) {
	pcfg, err := resolveVectorProviderConfig(cfg)
	if err != nil {
		log.Error("Vector store provider selection failed", "provider", cfg.VectorProvider, "mirror", cfg.VectorMirror, "error", err)
		return nil, err
	}
	log.Info("Selecting vector store provider",
		"provider", pcfg.Provider,
		"mirror", pcfg.Mirror,
		"provider_mode_source", pcfg.ModeSource,
		"namespace", cfg.VectorNamespace,
		"embedding_dim", cfg.EmbeddingDim,
	)

	primary, err := buildVectorStore(ctx, log, pcfg.Provider, pcfg, cfg, db, chunks)
	if err != nil {
		return nil, err
	}
	if pcfg.Mirror == "" {
		return primary, nil
	}
	mirror, err := buildVectorStore(ctx, log, pcfg.Mirror, pcfg, cfg, db, chunks)
	if err != nil {
		return nil, err
	}
	return vectorstore.NewMirrored(primary, mirror, log), nil
}

func buildVectorStore(ctx context.Context, log *logger.Logger, provider VectorProvider, pcfg VectorProviderConfig, cfg Config, db *gorm.DB, chunks repos.ChunkRepo) (vectorstore.Store, error) {
	var (
		index vectorindex.VectorStore
		err   error
	)
	switch provider {
	case VectorProviderSQL:
		return vectorstore.NewRelational(db, chunks, log, cfg.EmbeddingDim), nil

	case VectorProviderMemory:
		index, err = hnswindex.New(hnswindex.Config{Dimensions: cfg.EmbeddingDim})

	case VectorProviderQdrant:
		index, err = newQdrantVectorStore(ctx, log, pcfg.Qdrant)

	case VectorProviderPinecone:
		apiKey := strings.TrimSpace(os.Getenv("PINECONE_API_KEY"))
		if apiKey == "" {
			return nil, &VectorProviderBootstrapError{
				Code:     VectorProviderBootstrapErrorMissingAPIKey,
				Provider: provider,
				Cause:    errors.New("PINECONE_API_KEY is required"),
			}
		}
		var pc pinecone.Client
		pc, err = newPineconeClient(log, pinecone.Config{
			APIKey:     apiKey,
			APIVersion: strings.TrimSpace(os.Getenv("PINECONE_API_VERSION")),
			BaseURL:    strings.TrimSpace(os.Getenv("PINECONE_BASE_URL")),
			Timeout:    30 * time.Second,
		})
		if err == nil {
			index, err = newPineconeVectorStore(ctx, log, pc, pinecone.StoreConfigFromEnv())
		}

	default:
		err = fmt.Errorf("unsupported vector provider %q", provider)
	}
	if err != nil {
		classified := classifyVectorProviderBootstrapError(provider, err)
		log.Error("Vector store provider bootstrap failed", "provider", provider, "error", classified)
		return nil, classified
	}
	return vectorstore.NewRemote(index, string(provider), cfg.VectorNamespace, cfg.EmbeddingDim), nil
}

func classifyVectorProviderBootstrapError(provider VectorProvider, err error) error {
	var already *VectorProviderBootstrapError
	if errors.As(err, &already) {
		return err
	}
	code := VectorProviderBootstrapErrorProviderInitFailed
	var urlErr *neturl.Error
	var netErr net.Error
	errLower := strings.ToLower(err.Error())
	switch {
	case errors.As(err, &urlErr), errors.As(err, &netErr):
		code = VectorProviderBootstrapErrorConnectFailed
	case strings.Contains(errLower, "connection refused"):
		code = VectorProviderBootstrapErrorConnectFailed
	}
	var cfgErr *qdrant.ConfigError
	if errors.As(err, &cfgErr) {
		return mapVectorProviderConfigError(err)
	}
	return &VectorProviderBootstrapError{Code: code, Provider: provider, Cause: err}
}
