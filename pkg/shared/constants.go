// pkg/shared/constants.go

package shared

// Version is stamped at build time with -ldflags "-X ...shared.Version=...".
var Version = "dev"

const (
	BinaryName = "vmidctl"
	EnvPrefix  = "VMIDCTL"

	ConfigDir  = "/etc/vmidctl"
	ConfigFile = ConfigDir + "/config.yaml"

	LogDir         = "/var/log/vmidctl"
	JournalFile    = LogDir + "/vmid-change.log"
	DiagnosticFile = "vmidctl.jsonl"
	TelemetryFile  = "telemetry.jsonl"
)

// Proxmox VE on-disk layout for a stock single-node install.
const (
	QemuConfigDir   = "/etc/pve/qemu-server"
	LXCConfigDir    = "/etc/pve/lxc"
	QemuStorageRoot = "/var/lib/vz/images"
	LXCStorageRoot  = "/var/lib/lxc"
	ConfigExt       = ".conf"
)

const (
	DefaultAPIPort = 8006
	DefaultAPIHost = "localhost"
	DefaultAPINode = "pve"
)

const (
	DirPermStandard  = 0755
	RuntimeFilePerms = 0640
)

// Exit codes returned by the binary.
const (
	ExitOK             = 0
	ExitFailure        = 1
	ExitPartialFailure = 3
)
