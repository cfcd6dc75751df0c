//go:build !linux

// pkg/artifacts/rename_other.go

package artifacts

func renameNoReplace(oldPath, newPath string) error {
	return checkedRename(oldPath, newPath)
}
