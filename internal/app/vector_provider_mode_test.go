package app

import (
	"errors"
	"testing"
)

func TestResolveVectorProviderConfigDefaultsToSQL(t *testing.T) {
	t.Setenv("VECTOR_PROVIDER", "")
	t.Setenv("VECTOR_MIRROR", "")
	cfg := LoadConfig(nil)
	if cfg.VectorProvider != string(VectorProviderSQL) {
		t.Fatalf("provider: want=%q got=%q", VectorProviderSQL, cfg.VectorProvider)
	}
	if cfg.VectorProviderModeSource != "default" {
		t.Fatalf("mode source: want=%q got=%q", "default", cfg.VectorProviderModeSource)
	}

	pcfg, err := resolveVectorProviderConfig(cfg)
	if err != nil {
		t.Fatalf("resolveVectorProviderConfig: %v", err)
	}
	if pcfg.Provider != VectorProviderSQL || pcfg.Mirror != "" {
		t.Fatalf("config: want=sql/none got=%q/%q", pcfg.Provider, pcfg.Mirror)
	}
}

func TestResolveVectorProviderConfigQdrant(t *testing.T) {
	t.Setenv("QDRANT_URL", "http://qdrant:6333")
	t.Setenv("QDRANT_COLLECTION", "assistant")

	pcfg, err := resolveVectorProviderConfig(Config{
		VectorProvider:           "qdrant",
		VectorMirror:             "sql",
		VectorProviderModeSource: "env",
		EmbeddingDim:             1536,
	})
	if err != nil {
		t.Fatalf("resolveVectorProviderConfig: %v", err)
	}
	if pcfg.Provider != VectorProviderQdrant {
		t.Fatalf("provider: want=%q got=%q", VectorProviderQdrant, pcfg.Provider)
	}
	if pcfg.Mirror != VectorProviderSQL {
		t.Fatalf("mirror: want=%q got=%q", VectorProviderSQL, pcfg.Mirror)
	}
	if pcfg.Qdrant.URL != "http://qdrant:6333" {
		t.Fatalf("qdrant.URL: want=%q got=%q", "http://qdrant:6333", pcfg.Qdrant.URL)
	}
	if pcfg.Qdrant.VectorDim != 1536 {
		t.Fatalf("qdrant.VectorDim: want=%d got=%d", 1536, pcfg.Qdrant.VectorDim)
	}
}

func TestResolveVectorProviderConfigMirrorEqualToPrimaryIsDropped(t *testing.T) {
	pcfg, err := resolveVectorProviderConfig(Config{VectorProvider: "memory", VectorMirror: "memory"})
	if err != nil {
		t.Fatalf("resolveVectorProviderConfig: %v", err)
	}
	if pcfg.Mirror != "" {
		t.Fatalf("mirror: want=%q got=%q", "", pcfg.Mirror)
	}
}

func TestResolveVectorProviderConfigErrors(t *testing.T) {
	t.Setenv("QDRANT_URL", "")

	cases := []struct {
		name string
		cfg  Config
		code VectorProviderConfigErrorCode
	}{
		{"unknown provider", Config{VectorProvider: "faiss"}, VectorProviderConfigErrorInvalidProvider},
		{"unknown mirror", Config{VectorProvider: "sql", VectorMirror: "faiss"}, VectorProviderConfigErrorInvalidMirror},
		{"qdrant without url", Config{VectorProvider: "qdrant", EmbeddingDim: 8}, VectorProviderConfigErrorMissingQdrantURL},
		{"qdrant mirror without url", Config{VectorProvider: "sql", VectorMirror: "qdrant", EmbeddingDim: 8}, VectorProviderConfigErrorMissingQdrantURL},
	}
	for _, tc := range cases {
		_, err := resolveVectorProviderConfig(tc.cfg)
		if err == nil {
			t.Fatalf("%s: expected error, got nil", tc.name)
		}
		var got *VectorProviderConfigError
		if !errors.As(err, &got) {
			t.Fatalf("%s: want *VectorProviderConfigError, got %T", tc.name, err)
		}
		if got.Code != tc.code {
			t.Fatalf("%s: code want=%q got=%q", tc.name, tc.code, got.Code)
		}
	}
}

func TestResolveVectorProviderConfigInvalidQdrantDim(t *testing.T) {
	t.Setenv("QDRANT_URL", "http://qdrant:6333")
	t.Setenv("QDRANT_COLLECTION", "assistant")

	_, err := resolveVectorProviderConfig(Config{VectorProvider: "qdrant", EmbeddingDim: 0})
	var got *VectorProviderConfigError
	if !errors.As(err, &got) {
		t.Fatalf("want *VectorProviderConfigError, got %T (%v)", err, err)
	}
	if got.Code != VectorProviderConfigErrorInvalidQdrantVector {
		t.Fatalf("code: want=%q got=%q", VectorProviderConfigErrorInvalidQdrantVector, got.Code)
	}
}
