package qdrant

import (
	"fmt"
	"sort"
	"strings"
)

// Qdrant filters are built from the Mongo-style maps the VectorStore
// contract uses ({"field": value} or {"field": {"$eq"|"$ne"|"$in": ...}}).
type translatedFilter struct {
	Must    []any
	MustNot []any
}

func (f translatedFilter) asMap() map[string]any {
	out := map[string]any{}
	if len(f.Must) > 0 {
		out["must"] = f.Must
	}
	if len(f.MustNot) > 0 {
		out["must_not"] = f.MustNot
	}
	return out
}

func translateFilterMap(filter map[string]any) (translatedFilter, error) {
	var out translatedFilter
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		field := strings.TrimSpace(key)
		if field == "" {
			continue
		}
		if strings.HasPrefix(field, "$") {
			return translatedFilter{}, opErr("filter_translate", OperationErrorUnsupportedFilter,
				fmt.Sprintf("unsupported top-level filter operator %q", field), nil)
		}
		ops, isOps := filter[key].(map[string]any)
		if !isOps {
			scalar, ok := toScalarValue(filter[key])
			if !ok {
				return translatedFilter{}, opErr("filter_translate", OperationErrorValidation,
					fmt.Sprintf("field %q expects scalar value or operator object", field), nil)
			}
			out.Must = append(out.Must, matchCondition(field, scalar))
			continue
		}
		if len(ops) == 0 {
			return translatedFilter{}, opErr("filter_translate", OperationErrorValidation,
				fmt.Sprintf("field %q has empty operator map", field), nil)
		}
		opNames := make([]string, 0, len(ops))
		for op := range ops {
			opNames = append(opNames, op)
		}
		sort.Strings(opNames)
		for _, op := range opNames {
			val := ops[op]
			name := strings.ToLower(strings.TrimSpace(op))
			switch name {
			case "$eq", "$ne":
				scalar, ok := toScalarValue(val)
				if !ok {
					return translatedFilter{}, opErr("filter_translate", OperationErrorValidation,
						fmt.Sprintf("operator %s for field %q expects scalar value", op, field), nil)
				}
				if name == "$eq" {
					out.Must = append(out.Must, matchCondition(field, scalar))
				} else {
					out.MustNot = append(out.MustNot, matchCondition(field, scalar))
				}
			case "$in":
				values, ok := toScalarSlice(val)
				if !ok || len(values) == 0 {
					return translatedFilter{}, opErr("filter_translate", OperationErrorValidation,
						fmt.Sprintf("operator $in for field %q expects a non-empty scalar array", field), nil)
				}
				out.Must = append(out.Must, map[string]any{"key": field, "match": map[string]any{"any": values}})
			default:
				return translatedFilter{}, opErr("filter_translate", OperationErrorUnsupportedFilter,
					fmt.Sprintf("unsupported filter operator %q for field %q", op, field), nil)
			}
		}
	}
	return out, nil
}

func matchCondition(key string, value any) map[string]any {
	return map[string]any{"key": key, "match": map[string]any{"value": value}}
}

func toScalarSlice(value any) ([]any, bool) {
	switch typed := value.(type) {
	case []string:
		out := make([]any, 0, len(typed))
		for _, v := range typed {
			out = append(out, v)
		}
		return out, true
	case []any:
		out := make([]any, 0, len(typed))
		for _, v := range typed {
			s, ok := toScalarValue(v)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

func toScalarValue(value any) (any, bool) {
	switch typed := value.(type) {
	case string, bool, int, int64, float64:
		return typed, true
	case int32:
		return int(typed), true
	case float32:
		return float64(typed), true
	default:
		return nil, false
	}
}
