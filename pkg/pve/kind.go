// pkg/pve/kind.go

package pve

import (
	"fmt"
	"strings"
)

// Kind is the family of virtualization resource being renamed.
type Kind string

const (
	VirtualMachine Kind = "vm"
	Container      Kind = "ct"
)

// Kinds lists the supported kinds in menu order.
var Kinds = []Kind{VirtualMachine, Container}

func (k Kind) Valid() bool {
	return k == VirtualMachine || k == Container
}

// Tool is the node-local CLI that manages this kind.
func (k Kind) Tool() string {
	if k == Container {
		return "pct"
	}
	return "qm"
}

// APIPath is the PVE REST collection for this kind.
func (k Kind) APIPath() string {
	if k == Container {
		return "lxc"
	}
	return "qemu"
}

func (k Kind) Title() string {
	if k == Container {
		return "Container"
	}
	return "Virtual Machine"
}

// Noun is the short lowercase word used in journal messages.
func (k Kind) Noun() string {
	if k == Container {
		return "container"
	}
	return "VM"
}

// StorageNoun names what lives under the kind's storage root.
func (k Kind) StorageNoun() string {
	if k == Container {
		return "root filesystem"
	}
	return "disk images"
}

func (k Kind) String() string { return string(k) }

// ParseKind accepts vm|ct and their long forms, case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vm", "qm", "qemu", "virtualmachine":
		return VirtualMachine, nil
	case "ct", "pct", "lxc", "container":
		return Container, nil
	}
	return "", fmt.Errorf("unknown kind %q (expected vm or ct)", s)
}
