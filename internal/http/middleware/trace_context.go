package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/neurobridge-assistant/internal/pkg/ctxutil"
)

const (
	HeaderTraceID   = "X-Trace-Id"
	HeaderRequestID = "X-Request-Id"
)

// RequestIdentity assigns every request a request id and a trace id. The trace
// id prefers the active otel span so logs line up with exported traces.
func RequestIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		info := ctxutil.RequestInfo{
			RequestID: headerOr(c, HeaderRequestID, uuid.NewString),
			TraceID:   headerOr(c, HeaderTraceID, func() string { return spanTraceID(c) }),
		}
		if info.TraceID == "" {
			info.TraceID = info.RequestID
		}
		c.Request = c.Request.WithContext(ctxutil.WithRequestInfo(c.Request.Context(), info))
		c.Header(HeaderTraceID, info.TraceID)
		c.Header(HeaderRequestID, info.RequestID)
		c.Next()
	}
}

func headerOr(c *gin.Context, name string, fallback func() string) string {
	if v := strings.TrimSpace(c.GetHeader(name)); v != "" && len(v) <= 128 {
		return v
	}
	return fallback()
}

func spanTraceID(c *gin.Context) string {
	sc := trace.SpanContextFromContext(c.Request.Context())
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
