package domain

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

type ErrorKind string

const (
	KindUnknown           ErrorKind = ""
	KindInput             ErrorKind = "input"
	KindEmbeddingService  ErrorKind = "embedding_service"
	KindGenerationService ErrorKind = "generation_service"
	KindSearchService     ErrorKind = "search_service"
	KindInvariant         ErrorKind = "invariant"
)

// Error tags a failure with the pipeline stage that produced it.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newKind(kind ErrorKind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func InputError(format string, args ...any) error {
	return &Error{Kind: KindInput, Err: fmt.Errorf(format, args...)}
}

func InvariantError(format string, args ...any) error {
	return &Error{Kind: KindInvariant, Err: fmt.Errorf(format, args...)}
}

func EmbeddingServiceError(op string, err error) error {
	return newKind(KindEmbeddingService, op, err)
}

func GenerationServiceError(op string, err error) error {
	return newKind(KindGenerationService, op, err)
}

func SearchServiceError(op string, err error) error {
	return newKind(KindSearchService, op, err)
}

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

// IsPermanent reports errors that no amount of retrying will fix.
func IsPermanent(err error) bool {
	switch KindOf(err) {
	case KindInput, KindInvariant:
		return true
	}
	return errors.Is(err, ErrNotFound)
}
