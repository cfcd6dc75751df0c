// pkg/pve/cli.go

package pve

import (
	"bufio"
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/execute"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// RunFunc executes one command and returns its combined output.
type RunFunc func(ctx context.Context, name string, args ...string) (string, error)

// QueryRetryDelay is the pause between attempts of a read-only command.
const QueryRetryDelay = 2 * time.Second

// CLIProvider drives qm and pct on the local node.
type CLIProvider struct {
	run   RunFunc
	query RunFunc
}

// NewCLIProvider runs every command through execute.Run bounded by timeout.
// Read-only commands (list, config) get up to retries attempts; stop and
// start run exactly once.
func NewCLIProvider(timeout time.Duration, retries int) *CLIProvider {
	return &CLIProvider{
		run:   execRunner(timeout, 1, 0),
		query: execRunner(timeout, retries, QueryRetryDelay),
	}
}

func execRunner(timeout time.Duration, retries int, delay time.Duration) RunFunc {
	return func(ctx context.Context, name string, args ...string) (string, error) {
		return execute.Run(ctx, execute.Options{
			Command: name,
			Args:    args,
			Timeout: timeout,
			Retries: retries,
			Delay:   delay,
		})
	}
}

// NewCLIProviderWithRunner substitutes the command runner; used by tests.
func NewCLIProviderWithRunner(run RunFunc) *CLIProvider {
	return &CLIProvider{run: run, query: run}
}

func (p *CLIProvider) For(kind Kind) ControlPlane {
	return &cliPlane{kind: kind, run: p.run, query: p.query}
}

type cliPlane struct {
	kind  Kind
	run   RunFunc
	query RunFunc
}

func (c *cliPlane) Kind() Kind { return c.kind }

func (c *cliPlane) exec(ctx context.Context, run RunFunc, verb string, id int) (string, error) {
	tool := c.kind.Tool()
	otelzap.Ctx(ctx).Debug("Running control plane command",
		zap.String("tool", tool), zap.String("verb", verb), zap.Int("vmid", id))
	out, err := run(ctx, tool, verb, strconv.Itoa(id))
	if err != nil {
		return out, cerr.Wrapf(err, "%s %s %d", tool, verb, id)
	}
	return out, nil
}

func (c *cliPlane) Stop(ctx context.Context, id int) (string, error) {
	return c.exec(ctx, c.run, "stop", id)
}

func (c *cliPlane) Start(ctx context.Context, id int) (string, error) {
	return c.exec(ctx, c.run, "start", id)
}

func (c *cliPlane) InspectConfig(ctx context.Context, id int) (string, error) {
	return c.exec(ctx, c.query, "config", id)
}

func (c *cliPlane) List(ctx context.Context) ([]Resource, error) {
	out, err := c.query(ctx, c.kind.Tool(), "list")
	if err != nil {
		return nil, cerr.Wrapf(err, "%s list", c.kind.Tool())
	}
	return ParseList(out), nil
}

// ParseList reads `qm list` or `pct list` output. The second column is the
// label for both: NAME for qm, Status for pct.
//
//	VMID NAME      STATUS  MEM(MB) BOOTDISK(GB) PID
//	VMID Status    Lock    Name
//
// Rows that don't start with a number (the header, blank lines) are skipped.
func ParseList(out string) []Resource {
	var res []Resource
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		res = append(res, Resource{ID: id, Label: fields[1]})
	}
	return res
}
