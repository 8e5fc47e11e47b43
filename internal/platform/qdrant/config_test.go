package qdrant

import (
	"errors"
	"testing"
	"time"
)

func TestConfigFromEnvValid(t *testing.T) {
	t.Setenv("QDRANT_URL", "http://qdrant:6333")
	t.Setenv("QDRANT_COLLECTION", "assistant")
	t.Setenv("QDRANT_NAMESPACE_PREFIX", "")
	t.Setenv("QDRANT_TIMEOUT_SECONDS", "3")

	cfg, err := ConfigFromEnv(1536)
	if err != nil {
		t.Fatalf("ConfigFromEnv: %v", err)
	}
	if cfg.URL != "http://qdrant:6333" {
		t.Fatalf("URL: want=%q got=%q", "http://qdrant:6333", cfg.URL)
	}
	if cfg.Collection != "assistant" {
		t.Fatalf("Collection: want=%q got=%q", "assistant", cfg.Collection)
	}
	if cfg.NamespacePrefix != "nba" {
		t.Fatalf("NamespacePrefix: want=%q got=%q", "nba", cfg.NamespacePrefix)
	}
	if cfg.VectorDim != 1536 {
		t.Fatalf("VectorDim: want=%d got=%d", 1536, cfg.VectorDim)
	}
	if cfg.Timeout != 3*time.Second {
		t.Fatalf("Timeout: want=%s got=%s", 3*time.Second, cfg.Timeout)
	}
}

func TestConfigFromEnvErrors(t *testing.T) {
	cases := []struct {
		name string
		url  string
		dim  int
		want ConfigErrorCode
	}{
		{name: "missing url", url: "", dim: 3, want: ConfigErrorMissingURL},
		{name: "relative url", url: "qdrant:6333", dim: 3, want: ConfigErrorInvalidURL},
		{name: "zero dim", url: "http://qdrant:6333", dim: 0, want: ConfigErrorInvalidVectorDim},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("QDRANT_URL", tc.url)
			_, err := ConfigFromEnv(tc.dim)
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigError, got=%T (%v)", err, err)
			}
			if cfgErr.Code != tc.want {
				t.Fatalf("code: want=%q got=%q", tc.want, cfgErr.Code)
			}
		})
	}
}
