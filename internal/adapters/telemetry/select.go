package telemetry

import (
	"context"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.trai.ch/claimgraph/internal/adapters/telemetry/progrock"
	"go.trai.ch/claimgraph/internal/core/domain"
	"go.trai.ch/claimgraph/internal/core/ports"
	"go.trai.ch/zerr"
)

// ShutdownFunc flushes and releases a tracer.
type ShutdownFunc func(context.Context) error

// New returns the tracer configured by kind. For the OTel kind, finished
// spans are logged and also handed to extra.
func New(kind string, logger ports.Logger, extra ...sdktrace.SpanProcessor) (ports.Tracer, ShutdownFunc, error) {
	switch kind {
	case domain.TelemetryNone, "":
		return NewNoOpTracer(), noShutdown, nil
	case domain.TelemetryOTel:
		processors := append([]sdktrace.SpanProcessor{NewSpanLogger(logger)}, extra...)
		tp := NewTracerProvider(processors...)
		return NewOTelTracerFromProvider(tp, InstrumentationName), tp.Shutdown, nil
	case domain.TelemetryProgrock:
		tracer := progrock.New()
		return tracer, func(context.Context) error { return tracer.Close() }, nil
	default:
		return nil, nil, zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "unknown telemetry kind"), "kind", kind)
	}
}

func noShutdown(context.Context) error { return nil }
