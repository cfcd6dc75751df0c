// pkg/execute/execute.go

package execute

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/telemetry"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/vmid_err"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"mvdan.cc/sh/v3/syntax"
)

// Run executes a command without a shell and returns its combined output.
// Output is captured, never mirrored to the terminal.
func Run(ctx context.Context, opts Options) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cmdStr := Render(opts.Command, opts.Args...)

	ctx, span := telemetry.Start(ctx, "execute.Run",
		attribute.String("command", opts.Command),
		attribute.String("args", telemetry.TruncateArgs(opts.Args)),
	)
	defer span.End()
	log := otelzap.Ctx(ctx)

	timeout := defaultTimeout(opts.Timeout)
	attempts := max(1, opts.Retries)

	var (
		output string
		err    error
	)
	for i := 1; i <= attempts; i++ {
		output, err = runOnce(ctx, timeout, opts)
		if err == nil {
			log.Debug("Execution succeeded", zap.String("command", cmdStr), zap.Int("attempt", i))
			return output, nil
		}

		span.RecordError(err)
		log.Warn("Execution failed",
			zap.String("command", cmdStr),
			zap.Int("attempt", i),
			zap.String("summary", vmid_err.ExtractSummary(output, 2)),
			zap.Error(err),
		)

		if ctx.Err() != nil || i == attempts {
			break
		}
		select {
		case <-ctx.Done():
		case <-time.After(opts.Delay):
		}
	}

	if attempts > 1 {
		return output, cerr.Wrapf(err, "%s failed after %d attempts: %s", cmdStr, attempts, vmid_err.ExtractSummary(output, 2))
	}
	return output, cerr.Wrapf(err, "%s failed: %s", cmdStr, vmid_err.ExtractSummary(output, 2))
}

func runOnce(parent context.Context, timeout time.Duration, opts Options) (string, error) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, opts.Command, opts.Args...)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = cerr.Newf("timed out after %s", timeout)
	}
	return buf.String(), err
}

// Render quotes a command line the way a POSIX shell would need it.
func Render(command string, args ...string) string {
	parts := make([]string, 0, len(args)+1)
	for _, s := range append([]string{command}, args...) {
		q, err := syntax.Quote(s, syntax.LangBash)
		if err != nil {
			q = s
		}
		parts = append(parts, q)
	}
	return strings.Join(parts, " ")
}

func defaultTimeout(t time.Duration) time.Duration {
	if t > 0 {
		return t
	}
	return DefaultTimeout
}
