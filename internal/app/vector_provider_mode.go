package app

import (
	"errors"
	"fmt"

	"github.com/yungbote/neurobridge-assistant/internal/platform/qdrant"
)

type VectorProvider string

const (
	VectorProviderSQL      VectorProvider = "sql"
	VectorProviderPinecone VectorProvider = "pinecone"
	VectorProviderQdrant   VectorProvider = "qdrant"
	VectorProviderMemory   VectorProvider = "memory"
)

func (p VectorProvider) Valid() bool {
	switch p {
	case VectorProviderSQL, VectorProviderPinecone, VectorProviderQdrant, VectorProviderMemory:
		return true
	}
	return false
}

type VectorProviderConfigErrorCode string

const (
	VectorProviderConfigErrorInvalidProvider      VectorProviderConfigErrorCode = "invalid_provider"
	VectorProviderConfigErrorInvalidMirror        VectorProviderConfigErrorCode = "invalid_mirror"
	VectorProviderConfigErrorMissingQdrantURL     VectorProviderConfigErrorCode = "missing_qdrant_url"
	VectorProviderConfigErrorInvalidQdrantURL     VectorProviderConfigErrorCode = "invalid_qdrant_url"
	VectorProviderConfigErrorMissingQdrantColl    VectorProviderConfigErrorCode = "missing_qdrant_collection"
	VectorProviderConfigErrorInvalidQdrantVector  VectorProviderConfigErrorCode = "invalid_qdrant_vector_dim"
	VectorProviderConfigErrorUnknownQdrantFailure VectorProviderConfigErrorCode = "qdrant_config_error"
)

type VectorProviderConfigError struct {
	Code     VectorProviderConfigErrorCode
	Provider VectorProvider
	Cause    error
}

func (e *VectorProviderConfigError) Error() string {
	if e == nil {
		return "invalid vector provider config"
	}
	return fmt.Sprintf("invalid vector provider config (code=%s provider=%q): %v", e.Code, e.Provider, e.Cause)
}

func (e *VectorProviderConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

type VectorProviderConfig struct {
	Provider   VectorProvider
	Mirror     VectorProvider
	ModeSource string
	Qdrant     qdrant.Config
}

// resolveVectorProviderConfig validates the provider pair before anything
// is dialled. A mirror equal to the primary is ignored.
func resolveVectorProviderConfig(cfg Config) (VectorProviderConfig, error) {
	out := VectorProviderConfig{
		Provider:   VectorProvider(cfg.VectorProvider),
		Mirror:     VectorProvider(cfg.VectorMirror),
		ModeSource: cfg.VectorProviderModeSource,
	}
	if !out.Provider.Valid() {
		return VectorProviderConfig{}, &VectorProviderConfigError{
			Code:     VectorProviderConfigErrorInvalidProvider,
			Provider: out.Provider,
			Cause:    fmt.Errorf("unsupported vector provider %q (allowed: sql, pinecone, qdrant, memory)", out.Provider),
		}
	}
	if out.Mirror == out.Provider {
		out.Mirror = ""
	}
	if out.Mirror != "" && !out.Mirror.Valid() {
		return VectorProviderConfig{}, &VectorProviderConfigError{
			Code:     VectorProviderConfigErrorInvalidMirror,
			Provider: out.Mirror,
			Cause:    fmt.Errorf("unsupported vector mirror %q", out.Mirror),
		}
	}
	if out.Provider == VectorProviderQdrant || out.Mirror == VectorProviderQdrant {
		qcfg, err := qdrant.ConfigFromEnv(cfg.EmbeddingDim)
		if err != nil {
			return VectorProviderConfig{}, mapVectorProviderConfigError(err)
		}
		out.Qdrant = qcfg
	}
	return out, nil
}

func mapVectorProviderConfigError(err error) error {
	code := VectorProviderConfigErrorUnknownQdrantFailure
	var qerr *qdrant.ConfigError
	if errors.As(err, &qerr) {
		switch qerr.Code {
		case qdrant.ConfigErrorMissingURL:
			code = VectorProviderConfigErrorMissingQdrantURL
		case qdrant.ConfigErrorInvalidURL:
			code = VectorProviderConfigErrorInvalidQdrantURL
		case qdrant.ConfigErrorMissingCollection:
			code = VectorProviderConfigErrorMissingQdrantColl
		case qdrant.ConfigErrorInvalidVectorDim:
			code = VectorProviderConfigErrorInvalidQdrantVector
		}
	}
	return &VectorProviderConfigError{Code: code, Provider: VectorProviderQdrant, Cause: err}
}
