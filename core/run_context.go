package core

import (
	"context"

	"github.com/agentkit-go/agentkit/logging"
)

// RunContext carries per-run state shared by instructions providers,
// guardrails, lifecycle hooks and tools. It is created by the runner at the
// start of a run and must not be retained after the run finishes.
type RunContext struct {
	// Context is the caller's context; long-running callbacks should honor
	// its cancellation.
	Context context.Context

	// RunID uniquely identifies this run.
	RunID string

	// SessionID names the session the run reads from and appends to. Empty
	// when the run is session-less.
	SessionID string

	// UserData is the caller-supplied value passed through run options. The
	// SDK never inspects it; tools and callbacks type-assert it back.
	UserData any

	// Usage accumulates token consumption across every model request the
	// run performs, including nested agent-as-tool runs.
	Usage *UsageTracker

	// Logger receives diagnostic output for this run.
	Logger logging.Logger
}

// NewRunContext creates a run context with a fresh usage tracker and the
// package default logger. The runner fills in session and user data fields.
func NewRunContext(ctx context.Context, runID string) *RunContext {
	return &RunContext{
		Context: ctx,
		RunID:   runID,
		Usage:   NewUsageTracker(),
		Logger:  logging.Default(),
	}
}
