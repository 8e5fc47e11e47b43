package qdrant

import (
	"errors"
	"testing"
)

func TestTranslateFilterMapDocumentScope(t *testing.T) {
	got, err := translateFilterMap(map[string]any{
		"document_id": map[string]any{"$eq": "doc-1"},
		"chunk_index": map[string]any{"$in": []any{0, 1}},
		"lang":        map[string]any{"$ne": "fr"},
	})
	if err != nil {
		t.Fatalf("translateFilterMap: %v", err)
	}
	if len(got.Must) != 2 {
		t.Fatalf("must length: want=2 got=%d", len(got.Must))
	}
	if len(got.MustNot) != 1 {
		t.Fatalf("must_not length: want=1 got=%d", len(got.MustNot))
	}

	docCond := findConditionByKey(got.Must, "document_id")
	if docCond == nil {
		t.Fatalf("missing document_id condition")
	}
	docMatch, ok := docCond["match"].(map[string]any)
	if !ok || docMatch["value"] != "doc-1" {
		t.Fatalf("document_id match: got=%v", docCond["match"])
	}

	idxCond := findConditionByKey(got.Must, "chunk_index")
	if idxCond == nil {
		t.Fatalf("missing chunk_index condition")
	}
	anyVals, _ := idxCond["match"].(map[string]any)["any"].([]any)
	if len(anyVals) != 2 {
		t.Fatalf("chunk_index any: got=%v", idxCond["match"])
	}
}

func TestTranslateFilterMapScalarShorthand(t *testing.T) {
	got, err := translateFilterMap(map[string]any{"document_id": "doc-9"})
	if err != nil {
		t.Fatalf("translateFilterMap: %v", err)
	}
	cond := findConditionByKey(got.Must, "document_id")
	if cond == nil {
		t.Fatalf("missing document_id condition")
	}
}

func TestTranslateFilterMapUnsupportedOperator(t *testing.T) {
	for name, filter := range map[string]map[string]any{
		"field_gt":  {"chunk_index": map[string]any{"$gt": 2}},
		"top_level": {"$or": []any{}},
	} {
		_, err := translateFilterMap(filter)
		var opErr *OperationError
		if !errors.As(err, &opErr) {
			t.Fatalf("%s: expected OperationError, got=%T", name, err)
		}
		if opErr.Code != OperationErrorUnsupportedFilter {
			t.Fatalf("%s: error code: want=%q got=%q", name, OperationErrorUnsupportedFilter, opErr.Code)
		}
	}
}

func TestTranslateFilterMapEmptyIn(t *testing.T) {
	_, err := translateFilterMap(map[string]any{"document_id": map[string]any{"$in": []any{}}})
	var opErr *OperationError
	if !errors.As(err, &opErr) || opErr.Code != OperationErrorValidation {
		t.Fatalf("expected validation error, got=%v", err)
	}
}

func findConditionByKey(items []any, key string) map[string]any {
	for _, raw := range items {
		cond, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if condKey, _ := cond["key"].(string); condKey == key {
			return cond
		}
	}
	return nil
}
