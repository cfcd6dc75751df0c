// pkg/cli/cli.go
//
// Flag helpers shared by the vmidctl command tree.
package cli

import (
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// FlagKey maps a flag name to its config key: --stop-policy binds stop_policy.
func FlagKey(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

// BindFlagsToViper binds every flag in fs whose key is already known to v,
// so a flag only overrides the file or env when it is set.
// Flags outside the config (like --config itself) are skipped.
func BindFlagsToViper(fs *pflag.FlagSet, v *viper.Viper, known func(key string) bool) error {
	var result error
	fs.VisitAll(func(f *pflag.Flag) {
		key := FlagKey(f.Name)
		if known != nil && !known(key) {
			return
		}
		if err := v.BindPFlag(key, f); err != nil {
			result = multierror.Append(result, err)
		}
	})
	return result
}

// GetStringOrEmpty returns the flag value, or "" if the flag isn't defined.
func GetStringOrEmpty(fs *pflag.FlagSet, name string) string {
	val, err := fs.GetString(name)
	if err != nil {
		return ""
	}
	return val
}
