// cmd/rename/rename.go

package rename

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/config"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/interaction"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/journal"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/pve"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/rename"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/vmid_cli"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/vmid_err"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/vmid_io"
	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

var (
	kindFlag string
	fromFlag string
	toFlag   string
	yesFlag  bool
	dryRun   bool
)

// RenameCmd changes the ID of one VM or container.
var RenameCmd = &cobra.Command{
	Use:   "rename",
	Short: "Change the ID of a VM or container",
	Long: `Interactively change the ID of a virtual machine (qm) or container (pct).

The sequence is: stop the resource, rename its configuration file, move its
local storage, verify the new configuration and start it under the new ID.
Nothing is touched until you type 'yes' at the confirmation prompt.

A missing configuration file for the current ID, or an existing one for the
new ID, aborts before anything is stopped. Other step failures are logged and
the sequence continues; the command then exits with status 3.

EXAMPLES:
  # Fully interactive
  vmidctl rename

  # Pre-filled, still asks for confirmation
  vmidctl rename --kind ct --from 101 --to 205

  # Show what would happen
  vmidctl rename --kind vm --from 100 --to 200 --dry-run --yes`,
	Args: cobra.NoArgs,
	RunE: vmid_cli.Wrap(runRename),
}

func init() {
	RenameCmd.Flags().StringVar(&kindFlag, "kind", "", "Resource kind: vm or ct (prompted if empty)")
	RenameCmd.Flags().StringVar(&fromFlag, "from", "", "Current ID (prompted if empty)")
	RenameCmd.Flags().StringVar(&toFlag, "to", "", "New ID (prompted if empty)")
	RenameCmd.Flags().BoolVarP(&yesFlag, "yes", "y", false, "Skip the confirmation prompt")
	RenameCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report every step without changing anything")
}

// session is everything one rename needs from the outside world.
type session struct {
	cfg      *config.Config
	in       io.Reader
	out      io.Writer
	provider pve.Provider
	reporter journal.Reporter
}

func runRename(rc *vmid_io.RuntimeContext, cmd *cobra.Command, args []string) error {
	cfg, ok := config.FromContext(rc.Ctx)
	if !ok {
		return vmid_err.NewConfigError("configuration not loaded", nil)
	}

	jr, err := journal.Open(cfg.LogFile, os.Stdout, journal.Options{NoColor: cfg.NoColor})
	if err != nil {
		otelzap.Ctx(rc.Ctx).Warn("Journal unavailable, console only", zap.Error(err))
		fmt.Fprintf(os.Stderr, "⚠️  Cannot write %s, logging to the console only: %v\n", cfg.LogFile, err)
		jr = journal.NewConsoleOnly(os.Stdout, journal.Options{NoColor: cfg.NoColor})
	}
	defer func() {
		if cerr := jr.Close(); cerr != nil {
			otelzap.Ctx(rc.Ctx).Warn("Failed to close journal", zap.Error(cerr))
		}
	}()

	s := session{
		cfg:      cfg,
		in:       os.Stdin,
		out:      os.Stdout,
		provider: pve.NewProvider(cfg.PVE()),
		reporter: jr,
	}
	preset := interaction.Preset{Kind: kindFlag, From: fromFlag, To: toFlag, Yes: yesFlag}
	runID, err := s.run(rc.Ctx, preset, dryRun)
	if runID != "" {
		rc.Attributes["run_id"] = runID
	}
	if jerr := jr.Err(); jerr != nil {
		otelzap.Ctx(rc.Ctx).Warn("Journal incomplete", zap.Error(jerr))
	}
	return err
}

// run collects the request, runs the sequence and maps the outcome to an error.
func (s session) run(ctx context.Context, preset interaction.Preset, dryRun bool) (string, error) {
	var prompter interaction.Prompter
	if f, ok := s.in.(*os.File); ok {
		prompter = interaction.NewPrompter(f, s.out, s.cfg.Accessible)
	} else {
		prompter = interaction.NewLinePrompter(s.in, s.out)
	}

	collector := interaction.NewCollector(prompter, s.reporter, func(ctx context.Context, kind pve.Kind) {
		rename.ShowResources(ctx, s.provider.For(kind), s.reporter, s.out)
	})
	req, err := collector.Collect(ctx, preset)
	if err != nil {
		return "", err
	}

	orch := rename.New(s.provider, s.cfg.Layout, s.reporter, s.cfg.RenameOptions(dryRun))
	outcome, err := orch.ChangeIdentifier(ctx, req)
	if err != nil {
		return req.RunID, err
	}
	if ferr := outcome.Err(); ferr != nil {
		return req.RunID, vmid_err.NewPartialFailureError(
			fmt.Sprintf("%s finished with %d failed step(s)", req, len(outcome.Failed())), ferr)
	}
	return req.RunID, nil
}
