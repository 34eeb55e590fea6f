package payscore

import (
	"context"

	"github.com/LerianStudio/lib-payscore/payscore/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type contextKey string

const trackingKey = contextKey("payscore_tracking")

type tracking struct {
	logger log.Logger
	tracer trace.Tracer
}

func trackingFrom(ctx context.Context) tracking {
	if ctx == nil {
		return tracking{}
	}

	t, _ := ctx.Value(trackingKey).(tracking)

	return t
}

// ContextWithLogger returns a copy of ctx carrying logger.
func ContextWithLogger(ctx context.Context, logger log.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	t := trackingFrom(ctx)
	t.logger = logger

	return context.WithValue(ctx, trackingKey, t)
}

// NewLoggerFromContext returns the logger stored in ctx, or a NopLogger.
//
//nolint:ireturn
func NewLoggerFromContext(ctx context.Context) log.Logger {
	return log.OrNop(trackingFrom(ctx).logger)
}

// ContextWithTracer returns a copy of ctx carrying tracer.
func ContextWithTracer(ctx context.Context, tracer trace.Tracer) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	t := trackingFrom(ctx)
	t.tracer = tracer

	return context.WithValue(ctx, trackingKey, t)
}

// NewTracerFromContext returns the tracer stored in ctx, or the global tracer
// named after this library.
//
//nolint:ireturn
func NewTracerFromContext(ctx context.Context) trace.Tracer {
	if t := trackingFrom(ctx).tracer; t != nil {
		return t
	}

	return otel.Tracer("github.com/LerianStudio/lib-payscore")
}
