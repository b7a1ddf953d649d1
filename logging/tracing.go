package logging

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	otlog "github.com/opentracing/opentracing-go/log"
)

// TracingAudit wraps a QueryAudit, starting an opentracing span around
// each statement in addition to forwarding the event to Next. Use
// StartSpan to open the span before a statement runs and defer its
// Finish; Query itself only annotates whatever span is already active
// on ctx, matching the suspension-point convention the engine uses for
// connection-acquire/query/release boundaries.
type TracingAudit struct {
	Tracer opentracing.Tracer
	Next   QueryAudit
}

// NewTracingAudit wraps next, using tracer (or the process-wide global
// tracer if nil).
func NewTracingAudit(tracer opentracing.Tracer, next QueryAudit) *TracingAudit {
	if tracer == nil {
		tracer = opentracing.GlobalTracer()
	}
	if next == nil {
		next = NopAudit{}
	}
	return &TracingAudit{Tracer: tracer, Next: next}
}

// StartSpan opens a child span for a statement under the span already
// active on ctx, if any, tagged as a database-client span per
// opentracing-go's ext conventions.
func (a *TracingAudit) StartSpan(ctx context.Context, operationName string) (opentracing.Span, context.Context) {
	span, spanCtx := opentracing.StartSpanFromContextWithTracer(ctx, a.Tracer, operationName)
	ext.DBType.Set(span, "postgresql")
	ext.SpanKind.Set(span, "client")
	return span, spanCtx
}

func (a *TracingAudit) Query(ctx context.Context, sql string, params []any, d time.Duration, err error) {
	if span := opentracing.SpanFromContext(ctx); span != nil {
		span.SetTag("db.statement", sql)
		span.LogFields(otlog.String("event", "query"), otlog.Int64("duration_ms", d.Milliseconds()))
		if err != nil {
			ext.Error.Set(span, true)
			span.LogFields(otlog.Error(err))
		}
	}
	a.Next.Query(ctx, sql, params, d, err)
}
