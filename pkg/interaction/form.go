// pkg/interaction/form.go

package interaction

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"
)

// FormPrompter asks through huh forms. Identifier fields re-prompt in place
// until the value parses.
type FormPrompter struct {
	// Accessible renders plain prompts for screen readers.
	Accessible bool
}

func (p *FormPrompter) run(fields ...huh.Field) error {
	return huh.NewForm(huh.NewGroup(fields...)).WithAccessible(p.Accessible).Run()
}

func (p *FormPrompter) ChooseKind(ctx context.Context) (string, error) {
	choice := "1"
	err := p.run(
		huh.NewSelect[string]().
			Title("Select the resource type").
			Options(
				huh.NewOption("Virtual Machine (qm)", "1"),
				huh.NewOption("Container (pct)", "2"),
			).
			Value(&choice),
	)
	return choice, err
}

func (p *FormPrompter) AskID(ctx context.Context, label string) (string, error) {
	var value string
	err := p.run(
		huh.NewInput().
			Title(label).
			Validate(func(s string) error {
				_, err := ParseIdentifier(label, s)
				return err
			}).
			Value(&value),
	)
	return value, err
}

func (p *FormPrompter) Confirm(ctx context.Context, question string) (string, error) {
	var answer string
	err := p.run(
		huh.NewInput().
			Title(question).
			Description(fmt.Sprintf("Type '%s' to proceed, anything else cancels", ConfirmWord)).
			Value(&answer),
	)
	return answer, err
}
