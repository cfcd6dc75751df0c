// pkg/execute/types.go

package execute

import "time"

// Options configures one external command invocation.
type Options struct {
	Command string
	Args    []string
	Timeout time.Duration // per attempt; 0 means DefaultTimeout
	Retries int           // attempts; values below 1 mean a single attempt
	Delay   time.Duration // pause between attempts
}

// DefaultTimeout bounds a command when Options.Timeout is unset.
const DefaultTimeout = 30 * time.Second
