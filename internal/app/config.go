package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/yungbote/neurobridge-assistant/internal/pkg/envutil"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/logger"
)

type Config struct {
	LogMode string
	Port    string

	// DatabaseDriver is "postgres" or "sqlite".
	DatabaseDriver string
	SQLitePath     string

	EmbeddingDim int

	VectorProvider string
	// VectorMirror names a second provider that receives every write.
	VectorMirror string
	// VectorProviderModeSource records whether the provider came from the
	// environment or the default.
	VectorProviderModeSource string
	VectorNamespace          string

	ObjectStorageEnabled bool

	WebSearchCacheTTL  time.Duration
	WebSearchCacheSize int
	IngestEventsChan   string

	IngestEmbedInterval time.Duration

	AlertWebhookURL  string
	AlertMinInterval time.Duration

	CORSOrigins []string
}

// LoadEnv reads .env files into the process environment. Missing files are
// not an error; variables already set win.
func LoadEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		_ = godotenv.Load(p)
	}
}

func LoadConfig(log *logger.Logger) Config {
	provider := strings.ToLower(strings.TrimSpace(os.Getenv("VECTOR_PROVIDER")))
	modeSource := "env"
	if provider == "" {
		provider = string(VectorProviderSQL)
		modeSource = "default"
	}
	return Config{
		LogMode:                  envutil.String("LOG_MODE", "development"),
		Port:                     envutil.Lookup("PORT", "8080", log),
		DatabaseDriver:           strings.ToLower(envutil.Lookup("DATABASE_DRIVER", "postgres", log)),
		SQLitePath:               envutil.String("SQLITE_PATH", "assistant.db"),
		EmbeddingDim:             envutil.Int("EMBEDDING_DIM", 1536),
		VectorProvider:           provider,
		VectorMirror:             strings.ToLower(envutil.String("VECTOR_MIRROR", "")),
		VectorProviderModeSource: modeSource,
		VectorNamespace:          envutil.String("VECTOR_NAMESPACE", "documents"),
		ObjectStorageEnabled:     objectStorageConfigured(),
		WebSearchCacheTTL:        envutil.Duration("WEB_SEARCH_CACHE_TTL_SECONDS", 15*time.Minute, time.Second),
		WebSearchCacheSize:       envutil.Int("WEB_SEARCH_CACHE_SIZE", 512),
		IngestEventsChan:         envutil.String("INGEST_EVENTS_CHANNEL", "assistant:ingestion"),
		IngestEmbedInterval:      envutil.Duration("INGEST_EMBED_INTERVAL_MS", 100*time.Millisecond, time.Millisecond),
		AlertWebhookURL:          envutil.String("ALERT_WEBHOOK_URL", ""),
		AlertMinInterval:         envutil.Duration("ALERT_MIN_INTERVAL_SECONDS", 10*time.Minute, time.Second),
		CORSOrigins:              splitCSV(envutil.String("CORS_ALLOWED_ORIGINS", "")),
	}
}

// objectStorageConfigured reports whether gs:// sources can be resolved.
// Any storage or credential variable opts in.
func objectStorageConfigured() bool {
	if strings.TrimSpace(os.Getenv("OBJECT_STORAGE_ENABLED")) != "" {
		return envutil.Bool("OBJECT_STORAGE_ENABLED", false)
	}
	for _, k := range []string{"OBJECT_STORAGE_MODE", "STORAGE_EMULATOR_HOST", "GOOGLE_APPLICATION_CREDENTIALS", "GOOGLE_APPLICATION_CREDENTIALS_JSON"} {
		if strings.TrimSpace(os.Getenv(k)) != "" {
			return true
		}
	}
	return false
}

func splitCSV(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
