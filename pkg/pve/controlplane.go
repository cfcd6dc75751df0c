// pkg/pve/controlplane.go

package pve

import (
	"context"
	"time"
)

// Resource is one row of a kind listing. Label is the VM name or the
// container status, matching what qm/pct print.
type Resource struct {
	ID    int    `json:"vmid" yaml:"vmid"`
	Label string `json:"label" yaml:"label"`
}

// ControlPlane drives one kind of resource on the local node.
type ControlPlane interface {
	Kind() Kind
	Stop(ctx context.Context, id int) (string, error)
	Start(ctx context.Context, id int) (string, error)
	// InspectConfig returns the resource configuration as text. An error
	// means the control plane does not recognise the identifier.
	InspectConfig(ctx context.Context, id int) (string, error)
	List(ctx context.Context) ([]Resource, error)
}

// Provider hands out the control plane for a kind.
type Provider interface {
	For(kind Kind) ControlPlane
}

// Backend selects how the control plane is reached.
type Backend string

const (
	BackendCLI Backend = "cli"
	BackendAPI Backend = "api"
)

// APISettings locates the node's REST API.
type APISettings struct {
	Host     string
	Port     int
	Node     string
	Token    string
	Insecure bool
}

// Settings is what NewProvider needs from the loaded configuration.
type Settings struct {
	Backend        Backend
	CommandTimeout time.Duration
	// CommandRetries is the attempt count for read-only qm/pct commands.
	CommandRetries int
	API            APISettings
}

// NewProvider builds the provider for the configured backend.
func NewProvider(s Settings) Provider {
	if s.Backend == BackendAPI {
		return NewAPIProvider(s.API, s.CommandTimeout)
	}
	return NewCLIProvider(s.CommandTimeout, s.CommandRetries)
}
