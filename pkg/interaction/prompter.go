// pkg/interaction/prompter.go

package interaction

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// Prompter asks the operator for raw answers. Validation is the collector's job.
type Prompter interface {
	ChooseKind(ctx context.Context) (string, error)
	AskID(ctx context.Context, label string) (string, error)
	Confirm(ctx context.Context, question string) (string, error)
}

// NewPrompter picks the form prompter on a terminal and the line prompter
// otherwise. accessible switches the form to plain screen-reader prompts.
func NewPrompter(in *os.File, out io.Writer, accessible bool) Prompter {
	if term.IsTerminal(int(in.Fd())) {
		return &FormPrompter{Accessible: accessible}
	}
	return NewLinePrompter(in, out)
}

// LinePrompter reads one line per question. Every answer is final.
type LinePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{in: bufio.NewReader(in), out: out}
}

func (p *LinePrompter) ChooseKind(ctx context.Context) (string, error) {
	fmt.Fprintln(p.out, "Select the resource type:")
	fmt.Fprintln(p.out, "  1) Virtual Machine (qm)")
	fmt.Fprintln(p.out, "  2) Container (pct)")
	return ReadLine(ctx, p.in, p.out, "Enter choice [1-2]")
}

func (p *LinePrompter) AskID(ctx context.Context, label string) (string, error) {
	return ReadLine(ctx, p.in, p.out, label)
}

func (p *LinePrompter) Confirm(ctx context.Context, question string) (string, error) {
	return ReadLine(ctx, p.in, p.out, fmt.Sprintf("%s Type '%s' to confirm", question, ConfirmWord))
}
