// pkg/rename/request.go

package rename

import (
	"fmt"

	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/pve"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/vmid_err"
)

// Request is one confirmed identifier change.
type Request struct {
	Kind  pve.Kind
	OldID int
	NewID int
	RunID string
}

// Validate rejects requests no step should ever see.
func (r Request) Validate() error {
	if !r.Kind.Valid() {
		return vmid_err.NewInvalidInputError(fmt.Sprintf("unknown resource kind %q", r.Kind))
	}
	if r.OldID <= 0 || r.NewID <= 0 {
		return vmid_err.NewInvalidInputError("identifiers must be positive integers")
	}
	if r.OldID == r.NewID {
		return vmid_err.NewInvalidInputError(
			fmt.Sprintf("old and new identifier are both %d", r.OldID),
			"choose a new identifier that differs from the current one",
		)
	}
	return nil
}

func (r Request) String() string {
	return fmt.Sprintf("%s %d -> %d", r.Kind.Noun(), r.OldID, r.NewID)
}
