// pkg/interaction/collector.go

package interaction

import (
	"context"
	"errors"
	"fmt"

	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/journal"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/pve"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/rename"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/vmid_err"
	"github.com/charmbracelet/huh"
	"github.com/google/uuid"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Preset holds answers supplied on the command line. Empty fields are prompted for.
type Preset struct {
	Kind string
	From string
	To   string
	Yes  bool
}

// ListFunc shows the operator what exists before they type identifiers.
type ListFunc func(ctx context.Context, kind pve.Kind)

// Collector turns operator answers into a confirmed rename.Request.
type Collector struct {
	prompter Prompter
	reporter journal.Reporter
	list     ListFunc
}

func NewCollector(p Prompter, r journal.Reporter, list ListFunc) *Collector {
	return &Collector{prompter: p, reporter: r, list: list}
}

// Collect returns an InvalidInput error for any bad answer, and a
// UserDeclined error (exit 0) unless the operator confirms.
func (c *Collector) Collect(ctx context.Context, preset Preset) (rename.Request, error) {
	logger := otelzap.Ctx(ctx)

	kind, err := c.kind(ctx, preset.Kind)
	if err != nil {
		return rename.Request{}, c.reject(ctx, err)
	}
	logger.Debug("Resource kind selected", zap.String("kind", kind.String()))

	if (preset.From == "" || preset.To == "") && c.list != nil {
		c.list(ctx, kind)
	}

	oldID, err := c.identifier(ctx, preset.From, fmt.Sprintf("Current %s ID", kind.Noun()))
	if err != nil {
		return rename.Request{}, c.reject(ctx, err)
	}
	newID, err := c.identifier(ctx, preset.To, fmt.Sprintf("New %s ID", kind.Noun()))
	if err != nil {
		return rename.Request{}, c.reject(ctx, err)
	}

	req := rename.Request{Kind: kind, OldID: oldID, NewID: newID, RunID: uuid.NewString()}
	if err := req.Validate(); err != nil {
		return rename.Request{}, c.reject(ctx, err)
	}

	if preset.Yes {
		logger.Info("Confirmation skipped by flag", zap.String("request", req.String()))
		return req, nil
	}

	question := fmt.Sprintf("Change %s ID from %d to %d? The %s will be stopped and restarted.",
		kind.Noun(), oldID, newID, kind.Noun())
	answer, err := c.prompter.Confirm(ctx, question)
	if err != nil || !IsConfirmed(answer) {
		if err != nil && !errors.Is(err, huh.ErrUserAborted) {
			logger.Debug("Confirmation not read", zap.Error(err))
		}
		journal.Infof(ctx, c.reporter, "Operation cancelled, %s %d was not changed", kind.Noun(), oldID)
		return rename.Request{}, vmid_err.NewUserDeclinedError("change " + req.String())
	}

	logger.Info("Rename confirmed", zap.String("request", req.String()), zap.String("run_id", req.RunID))
	return req, nil
}

func (c *Collector) kind(ctx context.Context, flag string) (pve.Kind, error) {
	if flag != "" {
		return ParseKindFlag(flag)
	}
	answer, err := c.prompter.ChooseKind(ctx)
	if err != nil {
		return "", c.promptError("resource type", err)
	}
	return ParseKindChoice(answer)
}

func (c *Collector) identifier(ctx context.Context, preset, label string) (int, error) {
	value := preset
	if value == "" {
		answer, err := c.prompter.AskID(ctx, label)
		if err != nil {
			return 0, c.promptError(label, err)
		}
		value = answer
	}
	return ParseIdentifier(label, value)
}

// promptError keeps an aborted form an exit-0 decline and makes
// anything else (EOF, closed stdin) an invalid answer.
func (c *Collector) promptError(label string, err error) error {
	if errors.Is(err, huh.ErrUserAborted) {
		return vmid_err.NewUserDeclinedError("rename")
	}
	return vmid_err.NewInvalidInputError(fmt.Sprintf("no answer for %s: %v", label, err))
}

// reject journals why input was refused, then passes the error on.
func (c *Collector) reject(ctx context.Context, err error) error {
	if vmid_err.IsExpectedUserError(err) {
		journal.Infof(ctx, c.reporter, "Operation cancelled, nothing was changed")
		return err
	}
	var ce *vmid_err.ClassifiedError
	if errors.As(err, &ce) {
		journal.Errorf(ctx, c.reporter, "Invalid input: %s", ce.Message)
	} else {
		journal.Errorf(ctx, c.reporter, "Invalid input: %v", err)
	}
	return err
}
