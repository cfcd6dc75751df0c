// pkg/journal/journal.go

package journal

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/shared"
	"github.com/charmbracelet/lipgloss"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Reporter receives operator-facing progress lines.
type Reporter interface {
	Report(ctx context.Context, sev Severity, msg string)
}

func Infof(ctx context.Context, r Reporter, format string, args ...interface{}) {
	r.Report(ctx, SeverityInfo, fmt.Sprintf(format, args...))
}

func Errorf(ctx context.Context, r Reporter, format string, args ...interface{}) {
	r.Report(ctx, SeverityError, fmt.Sprintf(format, args...))
}

func Successf(ctx context.Context, r Reporter, format string, args ...interface{}) {
	r.Report(ctx, SeveritySuccess, fmt.Sprintf(format, args...))
}

func Summaryf(ctx context.Context, r Reporter, format string, args ...interface{}) {
	r.Report(ctx, SeveritySummary, fmt.Sprintf(format, args...))
}

type runIDKey struct{}

// WithRunID tags every line reported under ctx with id.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

func runID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// Options tweak how a Journal renders.
type Options struct {
	NoColor bool
	Now     func() time.Time
}

// Journal writes each line to the console in colour and appends the plain
// form to the journal file.
type Journal struct {
	mu      sync.Mutex
	console io.Writer
	file    *os.File
	path    string
	now     func() time.Time
	styles  map[Severity]lipgloss.Style
	color   bool
	err     error
}

// Open appends to path, creating it and its directory as needed.
func Open(path string, console io.Writer, opts Options) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), shared.DirPermStandard); err != nil {
		return nil, cerr.Wrapf(err, "create journal directory for %s", path)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, shared.RuntimeFilePerms)
	if err != nil {
		return nil, cerr.Wrapf(err, "open journal %s", path)
	}
	j := NewConsoleOnly(console, opts)
	j.file = f
	j.path = path
	return j, nil
}

// NewConsoleOnly reports to console alone. Used when the journal file
// cannot be opened.
func NewConsoleOnly(console io.Writer, opts Options) *Journal {
	if console == nil {
		console = io.Discard
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	r := lipgloss.NewRenderer(console)
	return &Journal{
		console: console,
		now:     now,
		color:   !opts.NoColor,
		styles: map[Severity]lipgloss.Style{
			SeverityInfo:    r.NewStyle().Foreground(lipgloss.Color("12")),
			SeverityError:   r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
			SeveritySuccess: r.NewStyle().Foreground(lipgloss.Color("10")),
			SeveritySummary: r.NewStyle().Foreground(lipgloss.Color("11")),
		},
	}
}

// Path is the journal file, empty when console only.
func (j *Journal) Path() string { return j.path }

// Report emits one line. The first file write failure is kept for Err.
func (j *Journal) Report(ctx context.Context, sev Severity, msg string) {
	msg = strings.TrimRight(msg, "\n")

	j.mu.Lock()
	defer j.mu.Unlock()

	ts := j.now()
	plain := FormatLine(sev, ts, msg)

	tag := "[" + sev.String() + "]"
	if j.color {
		tag = j.styles[sev].Render(tag)
	}
	fmt.Fprintf(j.console, "%s %s %s\n", tag, ts.Format(TimeLayout), msg)

	if j.file != nil {
		if err := appendLine(j.file, plain+"\n"); err != nil && j.err == nil {
			j.err = cerr.Wrapf(err, "write journal %s", j.path)
			otelzap.Ctx(ctx).Warn("Journal write failed", zap.String("path", j.path), zap.Error(err))
		}
	}

	log := otelzap.Ctx(ctx)
	fields := []zap.Field{
		zap.String("severity", sev.String()),
		zap.String("run_id", runID(ctx)),
	}
	if sev == SeverityError {
		log.Warn(msg, fields...)
	} else {
		log.Info(msg, fields...)
	}
}

// Err returns the first journal file write failure, if any.
func (j *Journal) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	return err
}
