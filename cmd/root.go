/* cmd/root.go */

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	configcmd "github.com/CodeMonkeyCybersecurity/vmidctl/cmd/config"
	"github.com/CodeMonkeyCybersecurity/vmidctl/cmd/list"
	"github.com/CodeMonkeyCybersecurity/vmidctl/cmd/logs"
	renamecmd "github.com/CodeMonkeyCybersecurity/vmidctl/cmd/rename"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/cli"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/config"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/logger"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/shared"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/telemetry"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/vmid_err"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// RootCmd is the base command for vmidctl.
var RootCmd = &cobra.Command{
	Use:   shared.BinaryName,
	Short: "Change the ID of a Proxmox VE virtual machine or container",
	Long: `vmidctl renames the identifier (VMID) of a virtual machine or container on the
local Proxmox VE node. It stops the resource, moves its configuration file and
local storage to the new ID, verifies the configuration and starts it again.

Every step is written to the console and appended to the journal
(` + shared.JournalFile + ` by default).`,
	Version:           shared.Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	pf := RootCmd.PersistentFlags()
	pf.String("config", shared.ConfigFile, "Path to the vmidctl config file")
	pf.String("log-file", shared.JournalFile, "Journal file that every step is appended to")
	pf.String("backend", "cli", "Control plane backend: cli (qm/pct) or api (PVE REST API)")
	pf.String("stop-policy", "warn", "What a failed stop does: warn (continue) or fatal (abort)")
	pf.Duration("command-timeout", config.DefaultCommandTimeout, "Upper bound for each qm/pct command or API call")
	pf.Int("command-retries", config.DefaultCommandRetries, "Attempts for read-only qm/pct commands (list, config)")
	pf.Bool("accessible", false, "Plain-text prompts for screen readers")
	pf.Bool("debug", false, "Show debug logging on the console")
	pf.Bool("no-color", false, "Disable coloured console output")
	pf.Bool("telemetry", false, "Write OpenTelemetry spans next to the diagnostic log")

	RootCmd.AddCommand(
		renamecmd.RenameCmd,
		list.ListCmd,
		logs.LogsCmd,
		configcmd.ConfigCmd,
	)
}

// setup loads configuration, then starts logging and telemetry for every subcommand.
func setup(cmd *cobra.Command, args []string) error {
	v := viper.New()
	config.SetDefaults(v)
	if err := cli.BindFlagsToViper(cmd.Flags(), v, v.IsSet); err != nil {
		return vmid_err.NewConfigError("failed to bind flags", err)
	}

	path := cli.GetStringOrEmpty(cmd.Flags(), "config")
	explicit := cmd.Flags().Changed("config")
	if env := os.Getenv(shared.EnvPrefix + "_CONFIG"); env != "" && !explicit {
		path, explicit = env, true
	}

	cfg, err := config.Load(v, path, explicit)
	if err != nil {
		return err
	}

	logDir := filepath.Dir(cfg.LogFile)
	log := logger.Initialize(logger.Options{Dir: logDir, Debug: cfg.Debug})
	if err := telemetry.Init(shared.BinaryName, logDir, cfg.Telemetry); err != nil {
		log.Warn("Telemetry disabled", zap.Error(err))
	}
	log.Debug("Configuration loaded",
		zap.String("source", cfg.Source),
		zap.String("backend", cfg.Backend),
		zap.String("stop_policy", cfg.StopPolicy),
		zap.Duration("command_timeout", cfg.CommandTimeout),
		zap.Int("command_retries", cfg.CommandRetries))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(config.NewContext(ctx, cfg))
	return nil
}

// Execute runs the root command and exits with the code its error maps to.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := RootCmd.ExecuteContext(ctx)
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if terr := telemetry.Shutdown(shutdownCtx); terr != nil {
		logger.L().Warn("Failed to flush telemetry", zap.Error(terr))
	}
	cancel()

	if err != nil && !vmid_err.IsExpectedUserError(err) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	if serr := logger.Sync(); serr != nil {
		fmt.Fprintf(os.Stderr, "⚠️  Failed to flush logs: %v\n", serr)
	}
	os.Exit(vmid_err.GetExitCode(err))
}
