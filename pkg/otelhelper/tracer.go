// Package otelhelper provides distributed tracing functionality for pipeline
// run monitoring.
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

const (
	// Common attribute keys.
	PipelineIDKey = "lensflow.pipeline.id"
	RunIDKey      = "lensflow.run.id"
	JobIDKey      = "lensflow.job.id"
	NodeIDKey     = "lensflow.node.id"
	PluginIDKey   = "lensflow.plugin.id"
	ToolIDKey     = "lensflow.tool.id"
	WorkerIDKey   = "lensflow.worker.id"
)

// nolint:ireturn // Returning interface is intentional for OpenTelemetry tracing
func NewTracer(ctx context.Context, serviceName string) (trace.Tracer, error) {
	provider, err := newTracerProvider(ctx, serviceName)
	if err != nil {
		return nil, err
	}

	return provider.Tracer(serviceName), nil
}

// PipelineAttrs returns the span options for a pipeline run span.
func PipelineAttrs(pipelineID, runID string) []trace.SpanStartOption {
	return []trace.SpanStartOption{trace.WithAttributes(
		attribute.String(PipelineIDKey, pipelineID),
		attribute.String(RunIDKey, runID),
	)}
}

// NodeAttrs returns the span options for a node execution span.
func NodeAttrs(pipelineID, runID, nodeID, pluginID, toolID string) []trace.SpanStartOption {
	return []trace.SpanStartOption{trace.WithAttributes(
		attribute.String(PipelineIDKey, pipelineID),
		attribute.String(RunIDKey, runID),
		attribute.String(NodeIDKey, nodeID),
		attribute.String(PluginIDKey, pluginID),
		attribute.String(ToolIDKey, toolID),
	)}
}

func newTracerProvider(ctx context.Context, serviceName string) (*sdktrace.TracerProvider, error) {
	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, err
	}

	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(r),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}))

	return tp, nil
}
