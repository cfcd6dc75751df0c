// pkg/rename/outcome.go

package rename

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Step is one stage of the rename sequence.
type Step string

const (
	StepStop          Step = "stop"
	StepRenameConfig  Step = "rename-config"
	StepRenameStorage Step = "rename-storage"
	StepVerify        Step = "verify"
	StepStart         Step = "start"
)

// Steps is the fixed execution order.
var Steps = []Step{StepStop, StepRenameConfig, StepRenameStorage, StepVerify, StepStart}

// Status is what happened to a step.
type Status string

const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped" // nothing to do, e.g. no storage
	StatusPlanned Status = "planned" // dry run
	StatusNotRun  Status = "not run" // sequence aborted earlier
)

type StepResult struct {
	Step   Step
	Status Status
	Detail string
	Err    error
}

// Outcome is the per-step record of one run. The summary and exit status
// are derived from it.
type Outcome struct {
	Request Request
	DryRun  bool
	Aborted bool
	Steps   []StepResult
}

func newOutcome(req Request, dryRun bool) *Outcome {
	o := &Outcome{Request: req, DryRun: dryRun}
	for _, s := range Steps {
		o.Steps = append(o.Steps, StepResult{Step: s, Status: StatusNotRun})
	}
	return o
}

func (o *Outcome) set(step Step, status Status, detail string, err error) {
	for i := range o.Steps {
		if o.Steps[i].Step == step {
			o.Steps[i] = StepResult{Step: step, Status: status, Detail: detail, Err: err}
			return
		}
	}
}

// Result returns the record for step.
func (o *Outcome) Result(step Step) StepResult {
	for _, r := range o.Steps {
		if r.Step == step {
			return r
		}
	}
	return StepResult{Step: step, Status: StatusNotRun}
}

// Failed lists the steps that failed, in order.
func (o *Outcome) Failed() []StepResult {
	var out []StepResult
	for _, r := range o.Steps {
		if r.Status == StatusFailed {
			out = append(out, r)
		}
	}
	return out
}

// Err aggregates every failed step, or nil when none failed.
func (o *Outcome) Err() error {
	var result *multierror.Error
	for _, r := range o.Failed() {
		err := r.Err
		if err == nil {
			err = fmt.Errorf("%s", r.Detail)
		}
		result = multierror.Append(result, fmt.Errorf("%s: %w", r.Step, err))
	}
	return result.ErrorOrNil()
}
