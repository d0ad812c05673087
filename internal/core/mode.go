// Package core is the orchestration layer.  It composes transports,
// the command server and the optional command sets into complete
// operational modes and provides a builder that selects the right mode
// from a Config.
//
// Architecture layers (bottom → top):
//
//	transport  →  telnet/command  →  server  →  core  →  cmd (CLI)
package core

import "context"

// Mode represents a complete operational mode of tinytelnet (network
// server, serial link, or interactive client).  Each mode owns its full
// lifecycle from opening its channels to teardown.
type Mode interface {
	Run(ctx context.Context) error
	// String describes the mode for --dry-run and logs.
	String() string
}
