package agent

import (
	"github.com/agentkit-go/agentkit/core"
	"github.com/agentkit-go/agentkit/tool"
)

// Hooks receives lifecycle callbacks scoped to a single agent. Implementations
// should embed BaseHooks so additional callbacks do not break them. A non-nil
// error from any callback aborts the run.
type Hooks interface {
	// OnStart fires when the agent becomes the active agent, at the start
	// of a run or after a handoff to it.
	OnStart(rc *core.RunContext, a *Agent) error

	// OnEnd fires when the agent produces the run's final output.
	OnEnd(rc *core.RunContext, a *Agent, output any) error

	// OnHandoff fires on the receiving agent when control transfers to it.
	OnHandoff(rc *core.RunContext, a *Agent, source *Agent) error

	// OnToolStart fires before each tool invocation the agent requested.
	OnToolStart(rc *core.RunContext, a *Agent, t tool.Tool) error

	// OnToolEnd fires after a tool invocation succeeds.
	OnToolEnd(rc *core.RunContext, a *Agent, t tool.Tool, result any) error
}

// BaseHooks is a no-op Hooks implementation intended for embedding.
type BaseHooks struct{}

var _ Hooks = BaseHooks{}

// OnStart implements Hooks.
func (BaseHooks) OnStart(rc *core.RunContext, a *Agent) error { return nil }

// OnEnd implements Hooks.
func (BaseHooks) OnEnd(rc *core.RunContext, a *Agent, output any) error { return nil }

// OnHandoff implements Hooks.
func (BaseHooks) OnHandoff(rc *core.RunContext, a *Agent, source *Agent) error { return nil }

// OnToolStart implements Hooks.
func (BaseHooks) OnToolStart(rc *core.RunContext, a *Agent, t tool.Tool) error { return nil }

// OnToolEnd implements Hooks.
func (BaseHooks) OnToolEnd(rc *core.RunContext, a *Agent, t tool.Tool, result any) error {
	return nil
}
