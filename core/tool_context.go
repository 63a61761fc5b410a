package core

import (
	"context"

	"github.com/agentkit-go/agentkit/logging"
)

// ToolContext is handed to tools during execution. It exposes the run
// context plus the identity of the originating function call and the agent
// that requested it.
type ToolContext struct {
	runCtx         *RunContext
	agentName      string
	functionCallID string
}

// NewToolContext creates a tool execution context bound to a run.
func NewToolContext(rc *RunContext, agentName, functionCallID string) *ToolContext {
	return &ToolContext{runCtx: rc, agentName: agentName, functionCallID: functionCallID}
}

// Context returns the run's context for cancellation and deadlines.
func (tc *ToolContext) Context() context.Context { return tc.runCtx.Context }

// RunID returns the identifier of the enclosing run.
func (tc *ToolContext) RunID() string { return tc.runCtx.RunID }

// SessionID returns the enclosing run's session id ("" when session-less).
func (tc *ToolContext) SessionID() string { return tc.runCtx.SessionID }

// AgentName returns the name of the agent that issued the function call.
func (tc *ToolContext) AgentName() string { return tc.agentName }

// FunctionCallID returns the id of the function call being executed.
func (tc *ToolContext) FunctionCallID() string { return tc.functionCallID }

// UserData returns the caller-supplied context value for this run.
func (tc *ToolContext) UserData() any { return tc.runCtx.UserData }

// Logger returns the run's logger.
func (tc *ToolContext) Logger() logging.Logger { return tc.runCtx.Logger }

// RunContext exposes the underlying run context. Intended for SDK internals
// such as nested agent-as-tool execution; most tools should use the narrower
// accessors above.
func (tc *ToolContext) RunContext() *RunContext { return tc.runCtx }
