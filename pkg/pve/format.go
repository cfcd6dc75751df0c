// pkg/pve/format.go

package pve

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/vmid_io"
	"github.com/olekukonko/tablewriter"
)

// Format is an output format for listings.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// Listing is the serialisable form of one kind's resources.
type Listing struct {
	Kind      Kind       `json:"kind" yaml:"kind"`
	Resources []Resource `json:"resources" yaml:"resources"`
}

// LabelHeader names the label column for a kind.
func LabelHeader(kind Kind) string {
	if kind == Container {
		return "STATUS"
	}
	return "NAME"
}

// WriteListing renders resources to w in the requested format.
func WriteListing(w io.Writer, kind Kind, resources []Resource, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(Listing{Kind: kind, Resources: nonNil(resources)})
	case FormatYAML:
		return vmid_io.WriteYAML(w, Listing{Kind: kind, Resources: nonNil(resources)})
	case FormatTable, "":
		return WriteTable(w, kind, resources)
	default:
		return fmt.Errorf("unsupported format %q (expected table, json or yaml)", format)
	}
}

// WriteListings renders several kinds at once: one JSON or YAML document
// holding every listing, or one table per kind.
func WriteListings(w io.Writer, listings []Listing, format Format) error {
	if len(listings) == 1 {
		return WriteListing(w, listings[0].Kind, listings[0].Resources, format)
	}
	for i := range listings {
		listings[i].Resources = nonNil(listings[i].Resources)
	}
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(listings)
	case FormatYAML:
		return vmid_io.WriteYAML(w, listings)
	case FormatTable, "":
		for i, l := range listings {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "%ss\n", l.Kind.Title())
			if err := WriteTable(w, l.Kind, l.Resources); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported format %q (expected table, json or yaml)", format)
	}
}

// WriteTable prints a VMID/label table.
func WriteTable(w io.Writer, kind Kind, resources []Resource) error {
	table := tablewriter.NewWriter(w)
	table.Header("VMID", LabelHeader(kind))
	for _, r := range resources {
		if err := table.Append(strconv.Itoa(r.ID), r.Label); err != nil {
			return err
		}
	}
	return table.Render()
}

func nonNil(r []Resource) []Resource {
	if r == nil {
		return []Resource{}
	}
	return r
}
