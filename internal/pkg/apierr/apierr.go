package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/yungbote/neurobridge-assistant/internal/domain"
)

// Error is the HTTP-boundary view of a failure.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// FromError maps domain error kinds onto HTTP statuses. Errors already
// carrying an *Error pass through unchanged.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	if errors.Is(err, domain.ErrNotFound) {
		return New(http.StatusNotFound, "not_found", err)
	}
	switch domain.KindOf(err) {
	case domain.KindInput:
		return New(http.StatusBadRequest, "invalid_query", err)
	case domain.KindEmbeddingService:
		return New(http.StatusServiceUnavailable, "embedding_unavailable", err)
	case domain.KindGenerationService:
		return New(http.StatusServiceUnavailable, "generation_unavailable", err)
	case domain.KindSearchService:
		return New(http.StatusBadGateway, "search_unavailable", err)
	case domain.KindInvariant:
		return New(http.StatusInternalServerError, "invariant_violation", err)
	default:
		return New(http.StatusInternalServerError, "internal_error", err)
	}
}
