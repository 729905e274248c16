// Package observability provides local tracing and Prometheus metrics
// instrumentation for the engine.
//
// Tracing never leaves the process: there is no collector to talk to, since
// every engine command runs as a single offline invocation (view, export,
// tour, compare, incident-pack, verify) rather than a long-lived service.
// InitTracer installs a SpanExporter that writes finished spans through the
// same Logger interface the rest of the engine uses, so `--log-level debug`
// surfaces span timing without ever opening a network connection.
package observability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// Logger is the minimal logging surface the span exporter writes through.
// commbus.Logger satisfies this.
type Logger interface {
	Debug(msg string, args ...any)
}

// logSpanExporter is a sdktrace.SpanExporter that renders each finished
// span as a single debug log line instead of shipping it anywhere.
type logSpanExporter struct {
	logger Logger
}

func (e *logSpanExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, s := range spans {
		e.logger.Debug("span finished",
			"name", s.Name(),
			"trace_id", s.SpanContext().TraceID().String(),
			"span_id", s.SpanContext().SpanID().String(),
			"duration_ms", s.EndTime().Sub(s.StartTime()).Milliseconds(),
			"attributes", attributesToMap(s.Attributes()),
		)
	}
	return nil
}

func (e *logSpanExporter) Shutdown(context.Context) error { return nil }

func attributesToMap(attrs []attribute.KeyValue) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[string(a.Key)] = a.Value.Emit()
	}
	return m
}

// InitTracer installs a TracerProvider that exports spans through logger
// rather than over the network. commandName identifies which CLI command
// this process invocation is running (e.g. "tour", "export"). Returns a
// shutdown function that must be called before the process exits.
func InitTracer(commandName string, logger Logger) (func(context.Context) error, error) {
	if commandName == "" {
		return nil, fmt.Errorf("observability: commandName must not be empty")
	}
	if logger == nil {
		return nil, fmt.Errorf("observability: logger must not be nil")
	}

	ctx := context.Background()
	invocationID := uuid.NewString()
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName("vifei"),
			semconv.ServiceVersion("0.1.0"),
			attribute.String("vifei.command", commandName),
			attribute.String("vifei.invocation_id", invocationID),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("observability: building resource: %w", err)
	}

	exporter := &logSpanExporter{logger: logger}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}

// StartSpan is a small convenience wrapper so call sites don't need to pull
// in the otel package directly for the common case of timing one operation.
func StartSpan(ctx context.Context, tracerName, spanName string) (context.Context, func()) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, spanName)
	start := time.Now()
	return ctx, func() {
		span.SetAttributes(attribute.Int64("duration_ms", time.Since(start).Milliseconds()))
		span.End()
	}
}
