// pkg/vmid_io/context.go

package vmid_io

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/shared"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/telemetry"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/vmid_err"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type RuntimeContext struct {
	Ctx        context.Context
	Log        *zap.Logger
	Timestamp  time.Time
	Span       trace.Span
	Command    string
	Attributes map[string]string
}

// NewContext starts the command span and a logger tagged with its trace ID.
func NewContext(parent context.Context, cmdName string) *RuntimeContext {
	if parent == nil {
		parent = context.Background()
	}
	ctx, span := telemetry.Start(parent, cmdName)
	traceID := span.SpanContext().TraceID().String()

	log := otelzap.L().Logger.With(
		zap.String("command", cmdName),
		zap.String("trace_id", traceID),
	)

	return &RuntimeContext{
		Ctx:        ctx,
		Span:       span,
		Log:        log,
		Timestamp:  time.Now(),
		Command:    cmdName,
		Attributes: make(map[string]string),
	}
}

// HandlePanic recovers panics, logs them, and converts to an error.
func (rc *RuntimeContext) HandlePanic(errPtr *error) {
	if r := recover(); r != nil {
		*errPtr = cerr.AssertionFailedf("panic: %v", r)
		rc.Log.Error("Panic recovered", zap.Any("panic", r))
	}
}

// End logs the outcome, records span attributes and closes the span.
func (rc *RuntimeContext) End(errPtr *error) {
	defer rc.Span.End()

	var err error
	if errPtr != nil {
		err = *errPtr
	}
	duration := time.Since(rc.Timestamp)

	switch {
	case err == nil:
		rc.Log.Info("Command completed", zap.Duration("duration", duration))
	case vmid_err.IsExpectedUserError(err):
		rc.Log.Info("Command ended by operator", zap.Duration("duration", duration), zap.Error(err))
	default:
		rc.Log.Error("Command failed", zap.Duration("duration", duration), zap.Error(err))
	}

	attrs := []attribute.KeyValue{
		attribute.Bool("success", err == nil),
		attribute.Int64("duration_ms", duration.Milliseconds()),
		attribute.String("os", runtime.GOOS),
		attribute.String("args", telemetry.TruncateArgs(os.Args[1:])),
		attribute.String("version", shared.Version),
		attribute.String("error_type", classifyError(err)),
		attribute.Int("exit_code", vmid_err.GetExitCode(err)),
	}
	for k, v := range rc.Attributes {
		attrs = append(attrs, attribute.String(k, v))
	}
	rc.Span.SetAttributes(attrs...)
	if err != nil && !vmid_err.IsExpectedUserError(err) {
		rc.Span.RecordError(err)
	}
}

func classifyError(err error) string {
	if err == nil {
		return ""
	}
	if vmid_err.IsExpectedUserError(err) {
		return "user"
	}
	if cat, ok := vmid_err.CategoryOf(err); ok {
		return cat.String()
	}
	return "system"
}
