// Package ctxutil carries per-request identifiers through context so logs,
// error bodies and ingestion events can be correlated.
package ctxutil

import "context"

type requestInfoKey struct{}

type RequestInfo struct {
	TraceID   string
	RequestID string
}

func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, info)
}

func RequestInfoFrom(ctx context.Context) (RequestInfo, bool) {
	if ctx == nil {
		return RequestInfo{}, false
	}
	info, ok := ctx.Value(requestInfoKey{}).(RequestInfo)
	return info, ok
}

// LogFields returns trace_id/request_id pairs for the logger, skipping blanks.
func LogFields(ctx context.Context) []any {
	info, ok := RequestInfoFrom(ctx)
	if !ok {
		return nil
	}
	var out []any
	if info.TraceID != "" {
		out = append(out, "trace_id", info.TraceID)
	}
	if info.RequestID != "" {
		out = append(out, "request_id", info.RequestID)
	}
	return out
}
