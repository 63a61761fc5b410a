package runner

import (
	"github.com/agentkit-go/agentkit/agent"
	"github.com/agentkit-go/agentkit/core"
	"github.com/agentkit-go/agentkit/tool"
)

// RunHooks receives lifecycle callbacks for every agent participating in a
// run, unlike agent.Hooks which is scoped to a single agent. Implementations
// should embed BaseRunHooks so additional callbacks do not break them. A
// non-nil error from any callback aborts the run.
//
// OnToolStart and OnToolEnd may fire concurrently when a turn carries
// several tool calls; implementations must be safe for concurrent use.
type RunHooks interface {
	// OnAgentStart fires when an agent becomes the active agent, at the
	// start of the run or after a handoff.
	OnAgentStart(rc *core.RunContext, a *agent.Agent) error

	// OnAgentEnd fires when the active agent produces the final output.
	OnAgentEnd(rc *core.RunContext, a *agent.Agent, output any) error

	// OnHandoff fires when control transfers between agents.
	OnHandoff(rc *core.RunContext, from, to *agent.Agent) error

	// OnToolStart fires before each tool invocation.
	OnToolStart(rc *core.RunContext, a *agent.Agent, t tool.Tool) error

	// OnToolEnd fires after a tool invocation succeeds.
	OnToolEnd(rc *core.RunContext, a *agent.Agent, t tool.Tool, result any) error
}

// BaseRunHooks is a no-op RunHooks implementation intended for embedding.
type BaseRunHooks struct{}

var _ RunHooks = BaseRunHooks{}

// OnAgentStart implements RunHooks.
func (BaseRunHooks) OnAgentStart(rc *core.RunContext, a *agent.Agent) error { return nil }

// OnAgentEnd implements RunHooks.
func (BaseRunHooks) OnAgentEnd(rc *core.RunContext, a *agent.Agent, output any) error { return nil }

// OnHandoff implements RunHooks.
func (BaseRunHooks) OnHandoff(rc *core.RunContext, from, to *agent.Agent) error { return nil }

// OnToolStart implements RunHooks.
func (BaseRunHooks) OnToolStart(rc *core.RunContext, a *agent.Agent, t tool.Tool) error { return nil }

// OnToolEnd implements RunHooks.
func (BaseRunHooks) OnToolEnd(rc *core.RunContext, a *agent.Agent, t tool.Tool, result any) error {
	return nil
}
