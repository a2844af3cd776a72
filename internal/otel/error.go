package otel

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

func RecordError(err error, span trace.Span, attrs ...attribute.KeyValue) {
	if err == nil {
		return
	}
	span.AddEvent(err.Error(), trace.WithAttributes(attrs...))
	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err)
}
