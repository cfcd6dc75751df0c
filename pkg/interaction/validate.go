// pkg/interaction/validate.go
package interaction

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/pve"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/vmid_err"
)

// ConfirmWord is the only answer that lets a rename proceed.
const ConfirmWord = "yes"

// ParseKindChoice maps the menu answer onto a kind: 1 is a VM, 2 a container.
func ParseKindChoice(answer string) (pve.Kind, error) {
	switch strings.TrimSpace(answer) {
	case "1":
		return pve.VirtualMachine, nil
	case "2":
		return pve.Container, nil
	}
	return "", vmid_err.NewInvalidInputError(
		fmt.Sprintf("invalid choice %q", answer),
		"enter 1 for a virtual machine or 2 for a container",
	)
}

// ParseKindFlag accepts the --kind values vm and ct.
func ParseKindFlag(value string) (pve.Kind, error) {
	kind, err := pve.ParseKind(value)
	if err != nil {
		return "", vmid_err.NewInvalidInputError(err.Error())
	}
	return kind, nil
}

// ParseIdentifier accepts a positive decimal integer written without sign
// or leading zeros, exactly as Proxmox names its files.
func ParseIdentifier(label, value string) (int, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return 0, vmid_err.NewInvalidInputError(label + " is empty")
	}
	for _, r := range v {
		if r < '0' || r > '9' {
			return 0, vmid_err.NewInvalidInputError(
				fmt.Sprintf("%s %q must contain digits only", label, value))
		}
	}
	if v[0] == '0' {
		return 0, vmid_err.NewInvalidInputError(
			fmt.Sprintf("%s %q must be a positive number without leading zeros", label, value))
	}
	id, err := strconv.Atoi(v)
	if err != nil {
		return 0, vmid_err.NewInvalidInputError(fmt.Sprintf("%s %q is out of range", label, value))
	}
	return id, nil
}

// IsConfirmed reports whether answer is exactly the confirmation word.
func IsConfirmed(answer string) bool {
	return strings.TrimRight(answer, "\r\n") == ConfirmWord
}
