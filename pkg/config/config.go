// pkg/config/config.go

package config

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/artifacts"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/pve"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/rename"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/shared"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/vmid_err"
	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"
)

// DefaultCommandTimeout bounds each qm/pct invocation.
const DefaultCommandTimeout = 2 * time.Minute

// DefaultCommandRetries is the attempt count for read-only qm/pct commands.
const DefaultCommandRetries = 2

// APIConfig locates the node's Proxmox VE REST API.
type APIConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port" validate:"min=1,max=65535"`
	Node     string `mapstructure:"node" yaml:"node"`
	Token    string `mapstructure:"token" yaml:"token,omitempty"` // PVEAPIToken=user@realm!id=secret
	Insecure bool   `mapstructure:"insecure" yaml:"insecure"`     // skip TLS verification
}

// Config is the effective vmidctl configuration.
type Config struct {
	LogFile        string        `mapstructure:"log_file" yaml:"log_file" validate:"required"`
	Backend        string        `mapstructure:"backend" yaml:"backend" validate:"oneof=cli api"`
	StopPolicy     string        `mapstructure:"stop_policy" yaml:"stop_policy" validate:"oneof=warn fatal"`
	CommandTimeout time.Duration `mapstructure:"command_timeout" yaml:"command_timeout" validate:"gt=0"`
	CommandRetries int           `mapstructure:"command_retries" yaml:"command_retries" validate:"min=1,max=10"`
	Telemetry      bool          `mapstructure:"telemetry" yaml:"telemetry"`
	Debug          bool          `mapstructure:"debug" yaml:"debug"`
	NoColor        bool          `mapstructure:"no_color" yaml:"no_color"`
	Accessible     bool          `mapstructure:"accessible" yaml:"accessible"` // plain prompts for screen readers

	artifacts.Layout `mapstructure:",squash" yaml:",inline"`

	API APIConfig `mapstructure:"api" yaml:"api"`

	// Source is the config file that was read, empty if none.
	Source string `mapstructure:"-" yaml:"-"`
}

// SetDefaults registers every key so env lookups and Unmarshal see them.
func SetDefaults(v *viper.Viper) {
	layout := artifacts.DefaultLayout()

	v.SetDefault("log_file", shared.JournalFile)
	v.SetDefault("backend", string(pve.BackendCLI))
	v.SetDefault("stop_policy", rename.StopPolicyWarn)
	v.SetDefault("command_timeout", DefaultCommandTimeout)
	v.SetDefault("command_retries", DefaultCommandRetries)
	v.SetDefault("telemetry", false)
	v.SetDefault("debug", false)
	v.SetDefault("no_color", false)
	v.SetDefault("accessible", false)
	v.SetDefault("vm.config_dir", layout.VM.ConfigDir)
	v.SetDefault("vm.storage_root", layout.VM.StorageRoot)
	v.SetDefault("ct.config_dir", layout.CT.ConfigDir)
	v.SetDefault("ct.storage_root", layout.CT.StorageRoot)
	v.SetDefault("api.host", shared.DefaultAPIHost)
	v.SetDefault("api.port", shared.DefaultAPIPort)
	v.SetDefault("api.node", shared.DefaultAPINode)
	v.SetDefault("api.token", "")
	v.SetDefault("api.insecure", true)
}

// Load layers defaults, the config file, VMIDCTL_* env and any flags already
// bound to v. An explicitly requested path must exist; the default one may not.
func Load(v *viper.Viper, path string, explicit bool) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(shared.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var source string
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, vmid_err.NewConfigError("failed to read config file "+path, err)
			}
			source = path
		} else if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, vmid_err.NewConfigError("cannot open config file "+path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, vmid_err.NewConfigError("failed to parse configuration", err)
	}
	cfg.Source = source

	// PROXMOX_TOKEN wins over both the file and VMIDCTL_API_TOKEN
	if t := os.Getenv("PROXMOX_TOKEN"); t != "" {
		cfg.API.Token = t
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks field constraints, then the API fields when that backend is chosen.
func (c *Config) Validate() error {
	var result error
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				result = multierror.Append(result, errors.New(describe(fe)))
			}
		} else {
			result = multierror.Append(result, err)
		}
	}
	if c.Backend == string(pve.BackendAPI) {
		if c.API.Host == "" {
			result = multierror.Append(result, errors.New("api.host is required when backend is api"))
		}
		if c.API.Node == "" {
			result = multierror.Append(result, errors.New("api.node is required when backend is api"))
		}
		if c.API.Token == "" {
			result = multierror.Append(result, errors.New("api.token (or PROXMOX_TOKEN) is required when backend is api"))
		}
	}
	if result != nil {
		return vmid_err.NewConfigError("invalid configuration", result)
	}
	return nil
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return field + " must be one of: " + fe.Param()
	case "gt":
		return field + " must be greater than " + fe.Param()
	case "min", "max":
		return field + " is out of range"
	default:
		return field + " failed " + fe.Tag() + " check"
	}
}

// PVE returns the settings the control plane provider needs.
func (c *Config) PVE() pve.Settings {
	return pve.Settings{
		Backend:        pve.Backend(c.Backend),
		CommandTimeout: c.CommandTimeout,
		CommandRetries: c.CommandRetries,
		API: pve.APISettings{
			Host:     c.API.Host,
			Port:     c.API.Port,
			Node:     c.API.Node,
			Token:    c.API.Token,
			Insecure: c.API.Insecure,
		},
	}
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.API.Token != "" {
		c.API.Token = "****"
	}
	return c
}

type ctxKey struct{}

// NewContext attaches cfg to ctx.
func NewContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, ctxKey{}, cfg)
}

// FromContext returns the configuration loaded for this invocation.
func FromContext(ctx context.Context) (*Config, bool) {
	cfg, ok := ctx.Value(ctxKey{}).(*Config)
	return cfg, ok && cfg != nil
}

// RenameOptions maps the configuration onto orchestrator options.
func (c *Config) RenameOptions(dryRun bool) rename.Options {
	return rename.Options{StopPolicy: c.StopPolicy, DryRun: dryRun}
}
