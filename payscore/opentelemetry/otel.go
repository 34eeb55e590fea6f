package opentelemetry

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName is the tracer name used when none is supplied.
const InstrumentationName = "github.com/LerianStudio/lib-payscore"

// Tracer returns t, or the global tracer for this library when t is nil.
//
//nolint:ireturn
func Tracer(t trace.Tracer) trace.Tracer {
	if t != nil {
		return t
	}

	return otel.Tracer(InstrumentationName)
}

// HandleSpanError marks the span as failed and records err.
func HandleSpanError(span trace.Span, message string, err error) {
	if span == nil || err == nil {
		return
	}

	span.SetStatus(codes.Error, message+": "+err.Error())
	span.RecordError(err)
}

// HandleSpanEvent adds a named event to the span.
func HandleSpanEvent(span trace.Span, eventName string, attributes ...attribute.KeyValue) {
	if span == nil {
		return
	}

	span.AddEvent(eventName, trace.WithAttributes(attributes...))
}

// InjectHTTPContext writes the trace context of ctx into outgoing headers.
func InjectHTTPContext(ctx context.Context, headers http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(headers))
}

// ExtractHTTPContext returns the fiber user context enriched with the trace
// context carried by the request headers.
func ExtractHTTPContext(c *fiber.Ctx) context.Context {
	carrier := propagation.HeaderCarrier{}

	for key, values := range c.GetReqHeaders() {
		if len(values) > 0 {
			carrier.Set(key, values[0])
		}
	}

	return otel.GetTextMapPropagator().Extract(c.UserContext(), carrier)
}
