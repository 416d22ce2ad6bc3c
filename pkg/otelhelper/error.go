package otelhelper

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SetError marks the span failed and records the error together with any
// identifying attributes (node id, action type).
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err, trace.WithAttributes(attrs...))
}
