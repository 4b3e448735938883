// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry installs the global OpenTelemetry tracer provider.
//
// Traces go to an OTLP collector over gRPC, to a writer as JSON (stdout
// exporter), or nowhere. With no provider installed, otel.Tracer returns a
// no-op tracer and instrumented code pays almost nothing.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// ErrUnknownExporter is returned for an exporter name Init does not know.
var ErrUnknownExporter = errors.New("unknown trace exporter")

const (
	ExporterOTLP   = "otlp"
	ExporterStdout = "stdout"
	ExporterNone   = "none"
)

// Config selects and configures the trace exporter.
type Config struct {
	ServiceName    string
	ServiceVersion string

	// Exporter is otlp, stdout or none. Empty resolves to otlp when
	// OTLPEndpoint is set, none otherwise.
	Exporter     string
	OTLPEndpoint string

	// Writer receives stdout exporter output. Defaults to os.Stdout.
	Writer io.Writer
}

// ShutdownFunc flushes and stops the exporter.
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Resolve returns the effective exporter name for cfg.
func (c Config) Resolve() string {
	if c.Exporter != "" {
		return c.Exporter
	}
	if c.OTLPEndpoint != "" {
		return ExporterOTLP
	}
	return ExporterNone
}

// Init installs a tracer provider per cfg and the W3C propagators. The
// returned ShutdownFunc is never nil.
func Init(ctx context.Context, cfg Config) (ShutdownFunc, error) {
	exporterName := cfg.Resolve()
	if exporterName == ExporterNone {
		slog.Debug("tracing disabled")
		return noopShutdown, nil
	}

	var (
		exporter sdktrace.SpanExporter
		closers  []func() error
		err      error
	)
	switch exporterName {
	case ExporterOTLP:
		if cfg.OTLPEndpoint == "" {
			return noopShutdown, errors.New("otlp exporter requires an endpoint")
		}
		conn, cerr := grpc.NewClient(cfg.OTLPEndpoint,
			grpc.WithTransportCredentials(insecure.NewCredentials()))
		if cerr != nil {
			return noopShutdown, fmt.Errorf("failed to create gRPC connection: %w", cerr)
		}
		closers = append(closers, conn.Close)
		exporter, err = otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	case ExporterStdout:
		w := cfg.Writer
		if w == nil {
			w = os.Stdout
		}
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(w))
	default:
		return noopShutdown, fmt.Errorf("%w: %s", ErrUnknownExporter, exporterName)
	}
	if err != nil {
		for _, c := range closers {
			_ = c()
		}
		return noopShutdown, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	name := cfg.ServiceName
	if name == "" {
		name = "proofgraph"
	}
	attrs := []attribute.KeyValue{attribute.String("service.name", name)}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, attribute.String("service.version", cfg.ServiceVersion))
	}
	res := resource.NewWithAttributes("", attrs...)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	slog.Info("tracing enabled", "exporter", exporterName, "endpoint", cfg.OTLPEndpoint)

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		var errs []error
		if err := tp.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
		for _, c := range closers {
			if err := c(); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}, nil
}
