//go:build unix

// pkg/journal/lock_unix.go

package journal

import (
	"os"

	"golang.org/x/sys/unix"
)

// appendLine writes line under an exclusive flock so concurrent vmidctl
// runs never interleave within a line.
func appendLine(f *os.File, line string) error {
	fd := int(f.Fd())
	if err := unix.Flock(fd, unix.LOCK_EX); err != nil {
		return err
	}
	defer func() { _ = unix.Flock(fd, unix.LOCK_UN) }()
	_, err := f.WriteString(line)
	return err
}
