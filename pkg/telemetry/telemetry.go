// pkg/telemetry/telemetry.go
package telemetry

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/shared"
	cerr "github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

var (
	tracer   trace.Tracer = noop.NewTracerProvider().Tracer(shared.BinaryName)
	shutdown              = func(context.Context) error { return nil }
)

// Init configures OpenTelemetry; call this early, before any command runs.
// When enabled is false a noop provider is installed. Spans are appended as
// JSON lines to dir/telemetry.jsonl.
func Init(service, dir string, enabled bool) error {
	if !enabled {
		tp := noop.NewTracerProvider()
		otel.SetTracerProvider(tp)
		tracer = tp.Tracer(service)
		return nil
	}

	if err := os.MkdirAll(dir, shared.DirPermStandard); err != nil {
		return cerr.Wrap(err, "failed to create telemetry directory")
	}

	file, err := os.OpenFile(filepath.Join(dir, shared.TelemetryFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, shared.RuntimeFilePerms)
	if err != nil {
		return cerr.Wrap(err, "failed to open telemetry file")
	}

	exp, err := stdouttrace.New(
		stdouttrace.WithWriter(file),
		stdouttrace.WithoutTimestamps(),
	)
	if err != nil {
		_ = file.Close()
		return cerr.Wrap(err, "failed to create file exporter")
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(
			sdkresource.NewWithAttributes(
				semconv.SchemaURL,
				attribute.String("service.name", service),
				attribute.String("service.version", shared.Version),
				attribute.String("host.name", hostname()),
			),
		),
	)

	otel.SetTracerProvider(tp)
	tracer = tp.Tracer(service)
	shutdown = func(ctx context.Context) error {
		err := tp.Shutdown(ctx)
		_ = file.Close()
		return err
	}
	return nil
}

// Shutdown flushes pending spans. Safe to call when Init was never called.
func Shutdown(ctx context.Context) error {
	return shutdown(ctx)
}

// Start a telemetry span with optional attributes.
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// TruncateArgs joins args for a span attribute, capped at 256 bytes.
func TruncateArgs(args []string) string {
	full := strings.Join(args, " ")
	if len(full) > 256 {
		return full[:256] + "..."
	}
	return full
}

func hostname() string {
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "unknown"
}
