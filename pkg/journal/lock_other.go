//go:build !unix

// pkg/journal/lock_other.go

package journal

import "os"

func appendLine(f *os.File, line string) error {
	_, err := f.WriteString(line)
	return err
}
