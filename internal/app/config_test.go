package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "DATABASE_DRIVER", "EMBEDDING_DIM", "INGEST_EMBED_INTERVAL_MS", "CORS_ALLOWED_ORIGINS",
		"OBJECT_STORAGE_ENABLED", "OBJECT_STORAGE_MODE", "STORAGE_EMULATOR_HOST", "GOOGLE_APPLICATION_CREDENTIALS", "GOOGLE_APPLICATION_CREDENTIALS_JSON"} {
		t.Setenv(k, "")
	}
	cfg := LoadConfig(nil)
	if cfg.Port != "8080" {
		t.Fatalf("port: want=%q got=%q", "8080", cfg.Port)
	}
	if cfg.DatabaseDriver != "postgres" {
		t.Fatalf("driver: want=%q got=%q", "postgres", cfg.DatabaseDriver)
	}
	if cfg.EmbeddingDim != 1536 {
		t.Fatalf("embedding dim: want=%d got=%d", 1536, cfg.EmbeddingDim)
	}
	if cfg.IngestEmbedInterval != 100*time.Millisecond {
		t.Fatalf("embed interval: want=%v got=%v", 100*time.Millisecond, cfg.IngestEmbedInterval)
	}
	if cfg.ObjectStorageEnabled {
		t.Fatalf("object storage: expected disabled without configuration")
	}
	if len(cfg.CORSOrigins) != 0 {
		t.Fatalf("cors origins: want none got=%v", cfg.CORSOrigins)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "SQLite")
	t.Setenv("INGEST_EMBED_INTERVAL_MS", "250")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("OBJECT_STORAGE_ENABLED", "")
	t.Setenv("STORAGE_EMULATOR_HOST", "http://fake-gcs:4443")

	cfg := LoadConfig(nil)
	if cfg.DatabaseDriver != "sqlite" {
		t.Fatalf("driver: want=%q got=%q", "sqlite", cfg.DatabaseDriver)
	}
	if cfg.IngestEmbedInterval != 250*time.Millisecond {
		t.Fatalf("embed interval: want=%v got=%v", 250*time.Millisecond, cfg.IngestEmbedInterval)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("cors origins: got=%v", cfg.CORSOrigins)
	}
	if !cfg.ObjectStorageEnabled {
		t.Fatalf("object storage: expected enabled when an emulator host is set")
	}

	t.Setenv("OBJECT_STORAGE_ENABLED", "false")
	if LoadConfig(nil).ObjectStorageEnabled {
		t.Fatalf("object storage: explicit false must win")
	}
}

func TestLoadEnvDoesNotOverrideProcessEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("ASSISTANT_TEST_FROM_FILE=file\nASSISTANT_TEST_PRESET=file\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("ASSISTANT_TEST_PRESET", "process")
	t.Setenv("ASSISTANT_TEST_FROM_FILE", "")
	os.Unsetenv("ASSISTANT_TEST_FROM_FILE")

	LoadEnv(path, filepath.Join(dir, "missing.env"))

	if got := os.Getenv("ASSISTANT_TEST_FROM_FILE"); got != "file" {
		t.Fatalf("from file: want=%q got=%q", "file", got)
	}
	if got := os.Getenv("ASSISTANT_TEST_PRESET"); got != "process" {
		t.Fatalf("preset: want=%q got=%q", "process", got)
	}
}
