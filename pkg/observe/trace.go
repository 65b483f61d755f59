package observe

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linq2js/resignal"
)

// Default tracer name for instrumented effects.
const defaultTracerName = "resignal"

// TraceConfig configures effect tracing.
type TraceConfig struct {
	// TracerName is the name of the tracer (default: "resignal").
	TracerName string

	// Attributes are added to every span the wrapper starts.
	Attributes []attribute.KeyValue
}

// TraceOption configures effect tracing.
type TraceOption func(*TraceConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TraceOption {
	return func(c *TraceConfig) {
		c.TracerName = name
	}
}

// WithAttributes adds constant attributes to every span.
func WithAttributes(attrs ...attribute.KeyValue) TraceOption {
	return func(c *TraceConfig) {
		c.Attributes = append(c.Attributes, attrs...)
	}
}

// TraceEffect wraps an effect function in an OpenTelemetry span. The span
// starts when the effect runs and ends when the invocation's context is
// disposed, so asynchronous resolutions keep the span open until they settle
// or are cancelled. A synchronous error records on the span and sets its
// status.
//
// The tracer comes from the global tracer provider; configure it in main()
// before invoking instrumented signals.
func TraceEffect[T any](name string, fn resignal.EffectFunc[T], opts ...TraceOption) resignal.EffectFunc[T] {
	config := TraceConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	tracer := otel.Tracer(config.TracerName)

	return func(ec *resignal.Context) (resignal.Result[T], error) {
		_, span := tracer.Start(
			ec.StdContext(),
			name,
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(config.Attributes...),
		)
		ec.OnDispose(func() { span.End() })

		res, err := fn(ec)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		return res, err
	}
}
