// cmd/list/list.go

package list

import (
	"fmt"
	"os"

	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/config"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/pve"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/vmid_cli"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/vmid_err"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/vmid_io"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

var format string

// ListCmd prints the VMs and/or containers on this node.
var ListCmd = &cobra.Command{
	Use:   "list [vm|ct]",
	Short: "List virtual machines and containers on this node",
	Long: `List the IDs of virtual machines (qm) and containers (pct) on this node.
The label column is the VM name or the container status.

EXAMPLES:
  vmidctl list
  vmidctl list ct
  vmidctl list vm --format json`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"vm", "ct"},
	RunE:      vmid_cli.Wrap(runList),
}

func init() {
	ListCmd.Flags().StringVarP(&format, "format", "o", string(pve.FormatTable), "Output format: table, json or yaml")
}

func runList(rc *vmid_io.RuntimeContext, cmd *cobra.Command, args []string) error {
	logger := otelzap.Ctx(rc.Ctx)

	cfg, ok := config.FromContext(rc.Ctx)
	if !ok {
		return vmid_err.NewConfigError("configuration not loaded", nil)
	}
	f, err := parseFormat(format)
	if err != nil {
		return err
	}
	kinds, err := selectKinds(args)
	if err != nil {
		return err
	}

	provider := pve.NewProvider(cfg.PVE())
	var listings []pve.Listing
	var errs *multierror.Error
	for _, kind := range kinds {
		resources, err := provider.For(kind).List(rc.Ctx)
		if err != nil {
			logger.Error("Listing failed", zap.String("kind", kind.String()), zap.Error(err))
			errs = multierror.Append(errs, fmt.Errorf("list %ss: %w", kind.Noun(), err))
			continue
		}
		logger.Debug("Resources listed", zap.String("kind", kind.String()), zap.Int("count", len(resources)))
		listings = append(listings, pve.Listing{Kind: kind, Resources: resources})
	}

	if len(listings) > 0 {
		if err := pve.WriteListings(os.Stdout, listings, f); err != nil {
			return vmid_err.NewCommandFailureError("failed to print listing", err)
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return vmid_err.NewCommandFailureError("listing incomplete", err)
	}
	return nil
}

func selectKinds(args []string) ([]pve.Kind, error) {
	if len(args) == 0 {
		return pve.Kinds, nil
	}
	kind, err := pve.ParseKind(args[0])
	if err != nil {
		return nil, vmid_err.NewInvalidInputError(err.Error(), "use vm or ct")
	}
	return []pve.Kind{kind}, nil
}

func parseFormat(s string) (pve.Format, error) {
	switch f := pve.Format(s); f {
	case pve.FormatTable, pve.FormatJSON, pve.FormatYAML:
		return f, nil
	default:
		return "", vmid_err.NewInvalidInputError(fmt.Sprintf("unsupported format %q", s), "use table, json or yaml")
	}
}
