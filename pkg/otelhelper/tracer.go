// Package otelhelper wires OpenTelemetry tracing for the flowgrid binaries
// and defines the span attribute keys shared across packages.
package otelhelper

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otlptracehttp "go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys shared across packages.
const (
	WorkflowIDKey  = "flowgrid.workflow.id"
	ExecutionIDKey = "flowgrid.execution.id"
	NodeIDKey      = "flowgrid.node.id"
	NodeKindKey    = "flowgrid.node.kind"
	ActionTypeKey  = "flowgrid.action.type"
	TriggerTypeKey = "flowgrid.trigger.type"
	EventNameKey   = "flowgrid.event.name"
	WorkerIDKey    = "flowgrid.worker.id"
)

// InitTracing installs a global OTLP/HTTP tracer provider for the process and
// returns its shutdown function. Exporter endpoint and headers come from the
// standard OTEL_* environment variables.
func InitTracing(ctx context.Context, serviceName string) (func(context.Context) error, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceNamespace("flowgrid"),
		),
	)
	if err != nil {
		return nil, err
	}

	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return provider.Shutdown, nil
}

// nolint:ireturn,spancheck // Returning interface is intentional for OpenTelemetry tracing
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}
