// pkg/rename/orchestrator.go

package rename

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/artifacts"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/journal"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/pve"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/telemetry"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/vmid_err"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Stop failure policies.
const (
	StopPolicyWarn  = "warn"
	StopPolicyFatal = "fatal"
)

type Options struct {
	// StopPolicy decides whether a failed stop aborts the run. Default warn.
	StopPolicy string
	// DryRun reports every step without touching the control plane or disk.
	DryRun bool
}

// Orchestrator runs the rename sequence for one request at a time.
type Orchestrator struct {
	provider pve.Provider
	layout   artifacts.Layout
	reporter journal.Reporter
	opts     Options
}

func New(provider pve.Provider, layout artifacts.Layout, reporter journal.Reporter, opts Options) *Orchestrator {
	if opts.StopPolicy == "" {
		opts.StopPolicy = StopPolicyWarn
	}
	return &Orchestrator{provider: provider, layout: layout, reporter: reporter, opts: opts}
}

// ChangeIdentifier stops the resource, moves its configuration and storage
// to the new identifier, verifies and starts it.
//
// A non-nil error means the run aborted (invalid request, missing or
// occupied configuration, fatal stop, failed configuration move). Step
// failures that don't abort are recorded in the Outcome only.
func (o *Orchestrator) ChangeIdentifier(ctx context.Context, req Request) (*Outcome, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx = journal.WithRunID(ctx, req.RunID)
	ctx, span := telemetry.Start(ctx, "rename.ChangeIdentifier",
		attribute.String("kind", req.Kind.String()),
		attribute.Int("old_id", req.OldID),
		attribute.Int("new_id", req.NewID),
		attribute.String("run_id", req.RunID),
		attribute.Bool("dry_run", o.opts.DryRun),
	)
	defer span.End()

	log := otelzap.Ctx(ctx)
	log.Info("Starting identifier change",
		zap.String("kind", req.Kind.String()),
		zap.Int("old_id", req.OldID),
		zap.Int("new_id", req.NewID),
		zap.String("run_id", req.RunID),
		zap.Bool("dry_run", o.opts.DryRun))

	outcome := newOutcome(req, o.opts.DryRun)
	plane := o.provider.For(req.Kind)
	oldConf := o.layout.ConfigPath(req.Kind, req.OldID)
	newConf := o.layout.ConfigPath(req.Kind, req.NewID)

	// ASSESS: nothing is stopped or moved unless the configuration can move
	if err := o.preflight(ctx, req, oldConf, newConf); err != nil {
		outcome.Aborted = true
		recordAbort(span, err)
		return outcome, err
	}

	prefix := ""
	if o.opts.DryRun {
		prefix = "[dry-run] "
	}
	journal.Infof(ctx, o.reporter, "%sChanging %s ID from %d to %d", prefix, req.Kind.Noun(), req.OldID, req.NewID)

	// INTERVENE
	if err := o.stop(ctx, plane, req, outcome); err != nil {
		outcome.Aborted = true
		recordAbort(span, err)
		RenderSummary(ctx, o.reporter, outcome)
		return outcome, err
	}
	if err := o.renameConfig(ctx, req, oldConf, newConf, outcome); err != nil {
		outcome.Aborted = true
		recordAbort(span, err)
		RenderSummary(ctx, o.reporter, outcome)
		return outcome, err
	}
	o.renameStorage(ctx, req, outcome)

	// EVALUATE
	o.verify(ctx, plane, req, outcome)
	o.start(ctx, plane, req, outcome)

	RenderSummary(ctx, o.reporter, outcome)

	failed := len(outcome.Failed())
	span.SetAttributes(attribute.Int("failed_steps", failed))
	if failed > 0 {
		span.SetStatus(codes.Error, "one or more steps failed")
	}
	log.Info("Identifier change finished", zap.Int("failed_steps", failed), zap.String("run_id", req.RunID))
	return outcome, nil
}

func (o *Orchestrator) preflight(ctx context.Context, req Request, oldConf, newConf string) error {
	exists, err := artifacts.Exists(oldConf)
	if err != nil {
		journal.Errorf(ctx, o.reporter, "Cannot access configuration file %s: %v", oldConf, err)
		return vmid_err.NewCommandFailureError("cannot access configuration file "+oldConf, err)
	}
	if !exists {
		journal.Errorf(ctx, o.reporter, "Configuration file %s not found for %s %d", oldConf, req.Kind.Noun(), req.OldID)
		return vmid_err.NewMissingConfigurationError(oldConf)
	}

	taken, err := artifacts.Exists(newConf)
	if err != nil {
		journal.Errorf(ctx, o.reporter, "Cannot access configuration file %s: %v", newConf, err)
		return vmid_err.NewCommandFailureError("cannot access configuration file "+newConf, err)
	}
	if taken {
		journal.Errorf(ctx, o.reporter, "Configuration file %s already exists, %s %d is taken", newConf, req.Kind.Noun(), req.NewID)
		return vmid_err.NewTargetExistsError(newConf)
	}
	return nil
}

func (o *Orchestrator) stop(ctx context.Context, plane pve.ControlPlane, req Request, outcome *Outcome) error {
	ctx, span := stepSpan(ctx, StepStop, req.OldID)
	defer span.End()

	if o.opts.DryRun {
		journal.Infof(ctx, o.reporter, "[dry-run] Would stop %s %d", req.Kind.Noun(), req.OldID)
		outcome.set(StepStop, StatusPlanned, fmt.Sprintf("%s stop %d", req.Kind.Tool(), req.OldID), nil)
		return nil
	}

	journal.Infof(ctx, o.reporter, "Stopping %s %d", req.Kind.Noun(), req.OldID)
	out, err := plane.Stop(ctx, req.OldID)
	if err == nil {
		journal.Successf(ctx, o.reporter, "%s %d stopped", req.Kind.Title(), req.OldID)
		outcome.set(StepStop, StatusOK, "", nil)
		return nil
	}

	why := reason(out, err)
	span.RecordError(err)
	span.SetStatus(codes.Error, why)
	journal.Errorf(ctx, o.reporter, "Failed to stop %s %d: %s", req.Kind.Noun(), req.OldID, why)
	outcome.set(StepStop, StatusFailed, why, err)

	if o.opts.StopPolicy == StopPolicyFatal {
		journal.Errorf(ctx, o.reporter, "Aborting: stop policy is fatal, nothing was renamed")
		return vmid_err.NewCommandFailureError(fmt.Sprintf("failed to stop %s %d", req.Kind.Noun(), req.OldID), err)
	}
	journal.Infof(ctx, o.reporter, "Continuing despite stop failure (stop policy: %s)", o.opts.StopPolicy)
	return nil
}

func (o *Orchestrator) renameConfig(ctx context.Context, req Request, oldConf, newConf string, outcome *Outcome) error {
	ctx, span := stepSpan(ctx, StepRenameConfig, req.OldID)
	defer span.End()

	if o.opts.DryRun {
		journal.Infof(ctx, o.reporter, "[dry-run] Would rename configuration %s to %s", oldConf, newConf)
		outcome.set(StepRenameConfig, StatusPlanned, newConf, nil)
		return nil
	}

	journal.Infof(ctx, o.reporter, "Renaming configuration %s to %s", oldConf, newConf)
	err := artifacts.Move(oldConf, newConf)
	var detail string
	switch {
	case err == nil:
		journal.Successf(ctx, o.reporter, "Configuration renamed to %s", newConf)
		outcome.set(StepRenameConfig, StatusOK, newConf, nil)
		return nil
	case errors.Is(err, artifacts.ErrSourceMissing):
		// removed between preflight and now
		journal.Errorf(ctx, o.reporter, "Configuration file %s not found for %s %d", oldConf, req.Kind.Noun(), req.OldID)
		detail = oldConf + " not found"
		err = vmid_err.NewMissingConfigurationError(oldConf)
	case errors.Is(err, artifacts.ErrTargetExists):
		journal.Errorf(ctx, o.reporter, "Configuration file %s already exists, %s %d is taken", newConf, req.Kind.Noun(), req.NewID)
		detail = newConf + " already exists"
		err = vmid_err.NewTargetExistsError(newConf)
	default:
		journal.Errorf(ctx, o.reporter, "Failed to rename configuration %s: %v", oldConf, err)
		detail = reason("", err)
		err = vmid_err.NewCommandFailureError("failed to rename configuration "+oldConf, err)
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "configuration rename failed")
	outcome.set(StepRenameConfig, StatusFailed, detail, err)
	return err
}

func (o *Orchestrator) renameStorage(ctx context.Context, req Request, outcome *Outcome) {
	ctx, span := stepSpan(ctx, StepRenameStorage, req.OldID)
	defer span.End()

	oldStore := o.layout.StoragePath(req.Kind, req.OldID)
	newStore := o.layout.StoragePath(req.Kind, req.NewID)

	present, err := artifacts.Exists(oldStore)
	if err != nil {
		journal.Errorf(ctx, o.reporter, "Cannot access storage %s: %v", oldStore, err)
		outcome.set(StepRenameStorage, StatusFailed, err.Error(), err)
		span.RecordError(err)
		return
	}
	if !present {
		journal.Infof(ctx, o.reporter, "No %s found for %s %d at %s", req.Kind.StorageNoun(), req.Kind.Noun(), req.OldID, oldStore)
		outcome.set(StepRenameStorage, StatusSkipped, "no "+req.Kind.StorageNoun(), nil)
		return
	}

	shape := "file"
	if artifacts.IsDir(oldStore) {
		shape = "directory"
	}

	if o.opts.DryRun {
		journal.Infof(ctx, o.reporter, "[dry-run] Would move %s %s %s to %s", req.Kind.StorageNoun(), shape, oldStore, newStore)
		outcome.set(StepRenameStorage, StatusPlanned, newStore, nil)
		return
	}

	journal.Infof(ctx, o.reporter, "Moving %s %s %s to %s", req.Kind.StorageNoun(), shape, oldStore, newStore)
	if err := artifacts.Move(oldStore, newStore); err != nil {
		var why string
		if errors.Is(err, artifacts.ErrTargetExists) {
			why = fmt.Sprintf("%s already exists, left %s in place", newStore, oldStore)
		} else {
			why = err.Error()
		}
		journal.Errorf(ctx, o.reporter, "Failed to move %s: %s", req.Kind.StorageNoun(), why)
		outcome.set(StepRenameStorage, StatusFailed, why, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, why)
		return
	}
	journal.Successf(ctx, o.reporter, "Moved %s to %s", req.Kind.StorageNoun(), newStore)
	outcome.set(StepRenameStorage, StatusOK, newStore, nil)
}

func (o *Orchestrator) verify(ctx context.Context, plane pve.ControlPlane, req Request, outcome *Outcome) {
	ctx, span := stepSpan(ctx, StepVerify, req.NewID)
	defer span.End()

	if o.opts.DryRun {
		journal.Infof(ctx, o.reporter, "[dry-run] Would verify configuration of %s %d", req.Kind.Noun(), req.NewID)
		outcome.set(StepVerify, StatusPlanned, "", nil)
		return
	}

	journal.Infof(ctx, o.reporter, "Verifying configuration of %s %d", req.Kind.Noun(), req.NewID)
	out, err := plane.InspectConfig(ctx, req.NewID)
	if err != nil {
		why := reason(out, err)
		journal.Errorf(ctx, o.reporter, "Verification of %s %d failed: %s", req.Kind.Noun(), req.NewID, why)
		outcome.set(StepVerify, StatusFailed, why, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, why)
		return
	}
	journal.Successf(ctx, o.reporter, "Configuration of %s %d verified", req.Kind.Noun(), req.NewID)
	outcome.set(StepVerify, StatusOK, "", nil)
}

func (o *Orchestrator) start(ctx context.Context, plane pve.ControlPlane, req Request, outcome *Outcome) {
	ctx, span := stepSpan(ctx, StepStart, req.NewID)
	defer span.End()

	if o.opts.DryRun {
		journal.Infof(ctx, o.reporter, "[dry-run] Would start %s %d", req.Kind.Noun(), req.NewID)
		outcome.set(StepStart, StatusPlanned, fmt.Sprintf("%s start %d", req.Kind.Tool(), req.NewID), nil)
		return
	}

	journal.Infof(ctx, o.reporter, "Starting %s %d", req.Kind.Noun(), req.NewID)
	out, err := plane.Start(ctx, req.NewID)
	if err != nil {
		why := reason(out, err)
		journal.Errorf(ctx, o.reporter, "Failed to start %s %d: %s", req.Kind.Noun(), req.NewID, why)
		outcome.set(StepStart, StatusFailed, why, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, why)
		return
	}
	journal.Successf(ctx, o.reporter, "%s %d started", req.Kind.Title(), req.NewID)
	outcome.set(StepStart, StatusOK, "", nil)
}

func stepSpan(ctx context.Context, step Step, id int) (context.Context, trace.Span) {
	return telemetry.Start(ctx, "rename."+string(step), attribute.Int("vmid", id))
}

func recordAbort(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if cat, ok := vmid_err.CategoryOf(err); ok {
		span.SetAttributes(attribute.String("abort_category", cat.String()))
	}
}

// reason condenses command output, falling back to the error itself.
func reason(out string, err error) string {
	if strings.TrimSpace(out) != "" {
		return vmid_err.ExtractSummary(out, 1)
	}
	if err == nil {
		return "unknown error"
	}
	return cerr.UnwrapAll(err).Error()
}
