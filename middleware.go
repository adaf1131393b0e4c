package respenvelope

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"go.opentelemetry.io/otel/trace"
)

// HeaderTraceID is the header carrying the request's trace id.
const HeaderTraceID = "X-Request-Id"

type ctxKey string

const traceKey ctxKey = "respenvelope.trace_id"

// TraceIDFromRequest returns the request's trace id: the X-Request-Id
// header, then the id stored by TraceMiddleware, then the trace id of the
// active OpenTelemetry span. It returns "" if none is known.
func TraceIDFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	if id := r.Header.Get(HeaderTraceID); id != "" {
		return id
	}
	return TraceIDFromContext(r.Context())
}

// TraceIDFromContext returns the trace id stored in ctx or carried by its
// span.
func TraceIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(traceKey).(string); ok && v != "" {
		return v
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// WithTraceID adds a trace ID to the context.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey, id)
}

// TraceMiddleware propagates or generates a trace id for each request and
// echoes it in the response header.
func TraceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := TraceIDFromRequest(r)
		if id == "" {
			id = newTraceID()
		}
		w.Header().Set(HeaderTraceID, id)
		next.ServeHTTP(w, r.WithContext(WithTraceID(r.Context(), id)))
	})
}

func newTraceID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
