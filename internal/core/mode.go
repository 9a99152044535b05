// Package core is the orchestration layer.  It runs the session state
// machine over a framed connection and provides the modes smtpc can
// run in, plus a builder that selects one from a Config.
//
// Architecture layers (bottom → top):
//
//	transport  →  wire  →  smtp  →  session  →  core  →  cmd (CLI)
package core

import "context"

// Mode is a complete operational mode of smtpc (interactive client or
// bridge).  Each mode owns its full lifecycle from connection
// establishment to teardown.
type Mode interface {
	Run(ctx context.Context) error
}
