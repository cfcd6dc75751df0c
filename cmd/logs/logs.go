// cmd/logs/logs.go

package logs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/config"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/journal"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/vmid_cli"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/vmid_err"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/vmid_io"
	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

var (
	lines  int
	follow bool
)

// LogsCmd prints the rename journal.
var LogsCmd = &cobra.Command{
	Use:     "logs",
	Aliases: []string{"log", "tail"},
	Short:   "Show the rename journal",
	Long: `Print the last lines of the rename journal. With --follow, keep printing
lines as they are appended until interrupted.

EXAMPLES:
  vmidctl logs
  vmidctl logs --lines 100
  vmidctl logs -f`,
	Args: cobra.NoArgs,
	RunE: vmid_cli.Wrap(runLogs),
}

func init() {
	LogsCmd.Flags().IntVarP(&lines, "lines", "n", 20, "Number of lines to print (0 for all)")
	LogsCmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
}

func runLogs(rc *vmid_io.RuntimeContext, cmd *cobra.Command, args []string) error {
	cfg, ok := config.FromContext(rc.Ctx)
	if !ok {
		return vmid_err.NewConfigError("configuration not loaded", nil)
	}
	if lines < 0 {
		return vmid_err.NewInvalidInputError(fmt.Sprintf("--lines must not be negative, got %d", lines))
	}

	otelzap.Ctx(rc.Ctx).Debug("Reading journal",
		zap.String("path", cfg.LogFile),
		zap.Int("lines", lines),
		zap.Bool("follow", follow))

	if err := printTail(os.Stdout, cfg.LogFile, lines); err != nil {
		return err
	}
	if !follow {
		return nil
	}
	if err := journal.Follow(rc.Ctx, cfg.LogFile, os.Stdout); err != nil {
		return vmid_err.NewCommandFailureError("failed to follow journal", err)
	}
	return nil
}

// printTail writes the last n journal lines to w. A journal that doesn't
// exist yet prints nothing.
func printTail(w io.Writer, path string, n int) error {
	tail, err := journal.Tail(path, n)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return vmid_err.NewCommandFailureError(fmt.Sprintf("failed to read %s", path), err)
	}
	for _, line := range tail {
		fmt.Fprintln(w, line)
	}
	return nil
}
