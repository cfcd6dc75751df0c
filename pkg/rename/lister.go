// pkg/rename/lister.go

package rename

import (
	"context"
	"io"

	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/journal"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/pve"
)

// ShowResources prints the kind's current resources for the operator.
// A failure is reported as ERROR and otherwise ignored; the listing is
// never checked against what the operator types next.
func ShowResources(ctx context.Context, plane pve.ControlPlane, r journal.Reporter, w io.Writer) {
	kind := plane.Kind()
	journal.Infof(ctx, r, "Listing %ss", kind.Noun())

	resources, err := plane.List(ctx)
	if err != nil {
		journal.Errorf(ctx, r, "Failed to list %ss: %v", kind.Noun(), err)
		return
	}
	if err := pve.WriteTable(w, kind, resources); err != nil {
		journal.Errorf(ctx, r, "Failed to print %s listing: %v", kind.Noun(), err)
	}
}
