package otel

import (
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/Alturino/marketclub/internal/constants"
)

var Tracer = otel.Tracer(
	constants.APP_MARKETCLUB,
	trace.WithInstrumentationAttributes(semconv.ServiceNameKey.String(constants.APP_MARKETCLUB)),
)
