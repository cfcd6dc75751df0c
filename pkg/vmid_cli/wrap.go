// pkg/vmid_cli/wrap.go

package vmid_cli

import (
	"context"

	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/vmid_err"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/vmid_io"
	cerr "github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Wrap gives a command a RuntimeContext with panic recovery, logging and a span.
func Wrap(fn func(rc *vmid_io.RuntimeContext, cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		parent := cmd.Context()
		if parent == nil {
			parent = context.Background()
		}

		rc := vmid_io.NewContext(parent, cmd.Name())
		defer rc.End(&err)
		defer rc.HandlePanic(&err)

		rc.Log.Debug("Command started", zap.Strings("args", args))

		err = fn(rc, cmd, args)
		if err != nil && !vmid_err.IsExpectedUserError(err) {
			if _, classified := vmid_err.CategoryOf(err); !classified {
				err = cerr.WithStack(err)
			}
		}
		return err
	}
}
