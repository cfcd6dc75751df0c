// pkg/artifacts/move.go

package artifacts

import (
	"errors"
	"io/fs"
	"os"

	cerr "github.com/cockroachdb/errors"
)

var (
	// ErrTargetExists is returned when the destination of a move is occupied.
	ErrTargetExists = errors.New("target already exists")
	// ErrSourceMissing is returned when the source of a move does not exist.
	ErrSourceMissing = errors.New("source does not exist")
)

// Move renames oldPath to newPath within one filesystem and never overwrites
// newPath. Files and directories are handled alike.
func Move(oldPath, newPath string) error {
	if _, err := os.Lstat(oldPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cerr.Wrapf(ErrSourceMissing, "move %s", oldPath)
		}
		return cerr.Wrapf(err, "stat %s", oldPath)
	}
	if err := renameNoReplace(oldPath, newPath); err != nil {
		return cerr.Wrapf(err, "move %s to %s", oldPath, newPath)
	}
	return nil
}

// checkedRename is the fallback when the kernel or filesystem cannot refuse
// the overwrite itself. There is a window between the check and the rename.
func checkedRename(oldPath, newPath string) error {
	if _, err := os.Lstat(newPath); err == nil {
		return ErrTargetExists
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.Rename(oldPath, newPath)
}
