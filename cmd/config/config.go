// cmd/config/config.go

package config

import (
	"fmt"
	"io"
	"os"

	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/config"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/vmid_cli"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/vmid_err"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/vmid_io"
	"github.com/spf13/cobra"
)

// ConfigCmd prints the effective configuration.
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	Long: `Print the configuration vmidctl would run with after merging defaults,
the config file, VMIDCTL_* environment variables and flags. The API token is
redacted.`,
	Args: cobra.NoArgs,
	RunE: vmid_cli.Wrap(func(rc *vmid_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		cfg, ok := config.FromContext(rc.Ctx)
		if !ok {
			return vmid_err.NewConfigError("configuration not loaded", nil)
		}
		return dump(os.Stdout, cfg)
	}),
}

func dump(w io.Writer, cfg *config.Config) error {
	source := cfg.Source
	if source == "" {
		source = "none, defaults and environment only"
	}
	fmt.Fprintf(w, "# source: %s\n", source)
	return vmid_io.WriteYAML(w, cfg.Redacted())
}
