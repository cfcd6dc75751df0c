// pkg/artifacts/layout.go

package artifacts

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/pve"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/shared"
)

// Paths locates one kind's artifacts on disk.
type Paths struct {
	ConfigDir   string `mapstructure:"config_dir" yaml:"config_dir" validate:"required"`
	StorageRoot string `mapstructure:"storage_root" yaml:"storage_root" validate:"required"`
}

// Layout maps each kind to where its configuration and storage live.
type Layout struct {
	VM Paths `mapstructure:"vm" yaml:"vm"`
	CT Paths `mapstructure:"ct" yaml:"ct"`
}

// DefaultLayout is the stock single-node Proxmox layout.
func DefaultLayout() Layout {
	return Layout{
		VM: Paths{ConfigDir: shared.QemuConfigDir, StorageRoot: shared.QemuStorageRoot},
		CT: Paths{ConfigDir: shared.LXCConfigDir, StorageRoot: shared.LXCStorageRoot},
	}
}

func (l Layout) paths(kind pve.Kind) Paths {
	if kind == pve.Container {
		return l.CT
	}
	return l.VM
}

// ConfigPath is <configDir>/<id>.conf.
func (l Layout) ConfigPath(kind pve.Kind, id int) string {
	return filepath.Join(l.paths(kind).ConfigDir, strconv.Itoa(id)+shared.ConfigExt)
}

// StoragePath is <storageRoot>/<id>.
func (l Layout) StoragePath(kind pve.Kind, id int) string {
	return filepath.Join(l.paths(kind).StorageRoot, strconv.Itoa(id))
}

// Exists reports whether path names anything, following no symlinks.
// Errors other than not-exist are returned so callers don't mistake
// a permission problem for absence.
func Exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// IsDir reports whether path exists and is a directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
