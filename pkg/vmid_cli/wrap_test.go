package vmid_cli

import (
	"context"
	"errors"
	"testing"

	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/vmid_err"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/vmid_io"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap/zaptest"
)

func newCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.SetContext(context.Background())
	return cmd
}

func TestWrap(t *testing.T) {
	t.Cleanup(otelzap.ReplaceGlobals(otelzap.New(zaptest.NewLogger(t))))

	t.Run("passes context and args", func(t *testing.T) {
		var gotArgs []string
		run := Wrap(func(rc *vmid_io.RuntimeContext, cmd *cobra.Command, args []string) error {
			require.NotNil(t, rc.Ctx)
			assert.Equal(t, "test", rc.Command)
			gotArgs = args
			return nil
		})
		require.NoError(t, run(newCmd(), []string{"a"}))
		assert.Equal(t, []string{"a"}, gotArgs)
	})

	t.Run("recovers panic", func(t *testing.T) {
		run := Wrap(func(rc *vmid_io.RuntimeContext, cmd *cobra.Command, args []string) error {
			panic("kaboom")
		})
		err := run(newCmd(), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "kaboom")
		assert.Equal(t, 1, vmid_err.GetExitCode(err))
	})

	t.Run("keeps classification", func(t *testing.T) {
		run := Wrap(func(rc *vmid_io.RuntimeContext, cmd *cobra.Command, args []string) error {
			return vmid_err.NewPartialFailureError("rename finished with failures", errors.New("start failed"))
		})
		err := run(newCmd(), nil)
		assert.Equal(t, 3, vmid_err.GetExitCode(err))
	})

	t.Run("declined exits zero", func(t *testing.T) {
		run := Wrap(func(rc *vmid_io.RuntimeContext, cmd *cobra.Command, args []string) error {
			return vmid_err.NewUserDeclinedError("rename")
		})
		err := run(newCmd(), nil)
		require.Error(t, err)
		assert.Equal(t, 0, vmid_err.GetExitCode(err))
	})

	t.Run("plain error gets stack", func(t *testing.T) {
		base := errors.New("plain")
		run := Wrap(func(rc *vmid_io.RuntimeContext, cmd *cobra.Command, args []string) error {
			return base
		})
		err := run(newCmd(), nil)
		assert.ErrorIs(t, err, base)
		assert.Equal(t, 1, vmid_err.GetExitCode(err))
	})
}
