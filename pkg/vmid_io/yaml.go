// pkg/vmid_io/yaml.go

package vmid_io

import (
	"io"

	"gopkg.in/yaml.v3"
)

// WriteYAML encodes v to w with two-space indentation.
func WriteYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
