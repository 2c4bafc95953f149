package obs

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxStatementLength = 300

// PGXTracer hooks into pgx's QueryTracer to emit one span per statement.
type PGXTracer struct{}

func (PGXTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	statement := strings.TrimSpace(data.SQL)
	operation := "query"
	if fields := strings.Fields(statement); len(fields) > 0 {
		operation = strings.ToLower(fields[0])
	}
	ctx, span := otel.Tracer("partner-portal/pgx").Start(ctx, "db."+operation,
		trace.WithSpanKind(trace.SpanKindClient))
	if len(statement) > maxStatementLength {
		statement = statement[:maxStatementLength] + "..."
	}
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.statement", statement),
	)
	return ctx
}

func (PGXTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	span := trace.SpanFromContext(ctx)
	if data.Err != nil {
		span.RecordError(data.Err)
		span.SetStatus(codes.Error, data.Err.Error())
	}
	span.End()
}
