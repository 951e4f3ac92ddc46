package lgr

import (
	"context"

	"github.com/google/uuid"
	"github.com/mdobak/go-xerrors"
	"go.opentelemetry.io/otel/trace"
)

// NewTraceContext returns ctx carrying a fresh trace and span, so every record
// logged through it shares the same trace_id.
func NewTraceContext(ctx context.Context) context.Context {
	traceID := trace.TraceID(uuid.New())

	span := uuid.New()
	var spanID trace.SpanID
	copy(spanID[:], span[:len(spanID)])

	return trace.ContextWithSpanContext(ctx, trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))
}

// TraceID returns the trace carried by ctx, or an empty string.
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}

// WithStack attaches the caller's stack to err unless err already carries one.
func WithStack(err error) error {
	if err == nil || xerrors.StackTrace(err) != nil {
		return err
	}
	return xerrors.WithStackTrace(err, 1)
}
