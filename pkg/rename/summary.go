// pkg/rename/summary.go

package rename

import (
	"context"
	"fmt"

	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/journal"
)

// RenderSummary reports one SUMMARY line per step with its real status,
// then the overall verdict.
func RenderSummary(ctx context.Context, r journal.Reporter, o *Outcome) {
	req := o.Request
	for _, res := range o.Steps {
		journal.Summaryf(ctx, r, "%s", stepLine(req, res))
	}

	failed := len(o.Failed())
	switch {
	case o.Aborted:
		journal.Summaryf(ctx, r, "%s ID change from %d to %d aborted", req.Kind.Title(), req.OldID, req.NewID)
	case o.DryRun:
		journal.Summaryf(ctx, r, "Dry run of %s ID change from %d to %d complete, nothing was changed", req.Kind.Noun(), req.OldID, req.NewID)
	case failed == 0:
		journal.Summaryf(ctx, r, "%s ID changed from %d to %d", req.Kind.Title(), req.OldID, req.NewID)
	default:
		journal.Summaryf(ctx, r, "%s ID changed from %d to %d with %d failed step(s)", req.Kind.Title(), req.OldID, req.NewID, failed)
	}
}

func stepLine(req Request, res StepResult) string {
	var subject string
	switch res.Step {
	case StepStop:
		subject = fmt.Sprintf("Stop %s %d", req.Kind.Noun(), req.OldID)
	case StepRenameConfig:
		subject = fmt.Sprintf("Rename configuration %d.conf to %d.conf", req.OldID, req.NewID)
	case StepRenameStorage:
		subject = fmt.Sprintf("Move %s %d to %d", req.Kind.StorageNoun(), req.OldID, req.NewID)
	case StepVerify:
		subject = fmt.Sprintf("Verify configuration of %s %d", req.Kind.Noun(), req.NewID)
	case StepStart:
		subject = fmt.Sprintf("Start %s %d", req.Kind.Noun(), req.NewID)
	default:
		subject = string(res.Step)
	}
	line := fmt.Sprintf("%s: %s", subject, res.Status)
	if res.Status == StatusFailed || res.Status == StatusSkipped {
		if res.Detail != "" {
			line += " (" + res.Detail + ")"
		}
	}
	return line
}
