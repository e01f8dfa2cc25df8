// Package telemetry records fallback and model-attempt events with
// OpenTelemetry. Without a configured SDK the global providers are no-ops.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "palm-reader"

// Recorder implements usecase.Recorder.
type Recorder struct {
	tracer    trace.Tracer
	fallbacks metric.Int64Counter
	attempts  metric.Int64Counter
}

func New(tracer trace.Tracer, meter metric.Meter) (*Recorder, error) {
	if tracer == nil {
		return nil, errors.New("telemetry: tracer must not be nil")
	}
	if meter == nil {
		return nil, errors.New("telemetry: meter must not be nil")
	}
	fallbacks, err := meter.Int64Counter("palm.fallbacks",
		metric.WithDescription("Responses served from local fallback content"))
	if err != nil {
		return nil, fmt.Errorf("telemetry: create fallbacks counter: %w", err)
	}
	attempts, err := meter.Int64Counter("palm.model_attempts",
		metric.WithDescription("Calls made to the generative model"))
	if err != nil {
		return nil, fmt.Errorf("telemetry: create model attempts counter: %w", err)
	}
	return &Recorder{tracer: tracer, fallbacks: fallbacks, attempts: attempts}, nil
}

// NewGlobal builds a Recorder from the global OpenTelemetry providers.
func NewGlobal() (*Recorder, error) {
	return New(otel.Tracer(instrumentationName), otel.Meter(instrumentationName))
}

func (r *Recorder) Fallback(ctx context.Context, endpoint, reason string) {
	r.fallbacks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.String("reason", reason),
	))
	trace.SpanFromContext(ctx).AddEvent("fallback", trace.WithAttributes(
		attribute.String("reason", reason),
	))
	slog.DebugContext(ctx, "fallback recorded", "endpoint", endpoint, "reason", reason)
}

func (r *Recorder) ModelAttempt(ctx context.Context, op string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	r.attempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("outcome", outcome),
	))
}

func (r *Recorder) StartSpan(ctx context.Context, name string) (context.Context, func(error)) {
	ctx, span := r.tracer.Start(ctx, name)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}
