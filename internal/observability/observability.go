// Package observability configures the process-wide slog logger. Local
// runs get a plain text or JSON handler on stderr; when an OTLP endpoint
// is configured through the standard OTEL_* environment variables, records
// are bridged into the OpenTelemetry log pipeline instead.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

const instrumentationName = "zohoq"

// loggerProvider is retained for flush-on-exit; nil when logging locally.
var loggerProvider *sdklog.LoggerProvider

// Instrument installs the default slog logger. format is "text" or "json";
// level filters both the local handlers and the OTel pipeline.
func Instrument(level slog.Level, format string) error {
	exporter, err := newExporter()
	if err != nil {
		return fmt.Errorf("creating log exporter: %w", err)
	}

	if exporter == nil {
		var handler slog.Handler
		opts := &slog.HandlerOptions{Level: level}
		switch format {
		case "json":
			handler = slog.NewJSONHandler(os.Stderr, opts)
		default:
			handler = slog.NewTextHandler(os.Stderr, opts)
		}
		slog.SetDefault(slog.New(handler))
		return nil
	}

	processor := minsev.NewLogProcessor(sdklog.NewBatchProcessor(exporter), severity(level))
	loggerProvider = sdklog.NewLoggerProvider(sdklog.WithProcessor(processor))
	slog.SetDefault(otelslog.NewLogger(instrumentationName, otelslog.WithLoggerProvider(loggerProvider)))
	return nil
}

// Shutdown flushes any buffered log records. No-op for local handlers.
func Shutdown(ctx context.Context) error {
	if loggerProvider == nil {
		return nil
	}
	return loggerProvider.Shutdown(ctx)
}

// newExporter picks an exporter from the standard OTel environment
// variables. Returns nil when none is configured (local logging).
func newExporter() (sdklog.Exporter, error) {
	if os.Getenv("OTEL_LOGS_EXPORTER") == "console" {
		return stdoutlog.New()
	}

	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT")
	if endpoint == "" {
		endpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	if endpoint == "" {
		return nil, nil
	}

	// Endpoint/headers/TLS are picked up from the environment by the
	// exporters themselves.
	if os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL") == "grpc" {
		return otlploggrpc.New(context.Background())
	}
	return otlploghttp.New(context.Background())
}

// severity maps an slog level onto the minimum OTel severity to export.
func severity(level slog.Level) minsev.Severity {
	switch {
	case level <= slog.LevelDebug:
		return minsev.SeverityDebug
	case level <= slog.LevelInfo:
		return minsev.SeverityInfo
	case level <= slog.LevelWarn:
		return minsev.SeverityWarn
	default:
		return minsev.SeverityError
	}
}
