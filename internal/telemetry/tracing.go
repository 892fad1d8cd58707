/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package telemetry configures OpenTelemetry tracing for the webhook gateway.
//
// Each webhook call produces a webhook.handle span with webhook.validate and
// command.dispatch children. Custom span attributes use the `botgate.` prefix.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "github.com/marcus-qen/botgate"
)

// Tracer returns the package-level tracer.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// InitTraceProvider initialises the OTel trace provider with an OTLP gRPC exporter.
// If endpoint is empty, tracing is disabled (noop provider is used).
// Returns a shutdown function that must be called on application exit.
func InitTraceProvider(ctx context.Context, endpoint string, version string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithHost(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String("botgate"),
			semconv.ServiceVersionKey.String(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// --- Span helpers ---

// StartWebhookSpan creates the parent span for one inbound webhook call.
func StartWebhookSpan(ctx context.Context, clientIP string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "webhook.handle",
		trace.WithAttributes(
			attribute.String("botgate.client_ip", clientIP),
		),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// EndWebhookSpan records the call outcome and ends the span.
func EndWebhookSpan(span trace.Span, outcome string) {
	span.SetAttributes(attribute.String("botgate.outcome", outcome))
	span.End()
}

// StartValidationSpan creates a child span for the validation pipeline.
func StartValidationSpan(ctx context.Context) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "webhook.validate")
}

// EndValidationSpan marks the span failed when kind is non-empty and ends it.
func EndValidationSpan(span trace.Span, stage, kind string, err error) {
	if err != nil {
		span.SetAttributes(
			attribute.String("botgate.stage", stage),
			attribute.String("botgate.failure_kind", kind),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)
	}
	span.End()
}

// StartDispatchSpan creates a child span for one command dispatch.
func StartDispatchSpan(ctx context.Context, command string, userID int64) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "command.dispatch",
		trace.WithAttributes(
			attribute.String("botgate.command", command),
			attribute.Int64("botgate.user_id", userID),
		),
	)
}

// EndDispatchSpan enriches the dispatch span with its outcome.
func EndDispatchSpan(span trace.Span, outcome string, err error) {
	span.SetAttributes(attribute.String("botgate.dispatch_outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	span.End()
}
