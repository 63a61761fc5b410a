package agent

import (
	"slices"

	"github.com/agentkit-go/agentkit/model"
	"github.com/agentkit-go/agentkit/tool"
)

// Options configures an Agent. Options are consumed by New and Clone through
// option functions:
//
//	assistant := agent.New("Assistant", func(o *agent.Options) {
//	    o.Instructions = agent.NewInstructionsFromText("You respond in haiku.")
//	    o.Tools = []tool.Tool{weatherTool}
//	})
type Options struct {
	// Name identifies the agent. Seeded by the New constructor; override it
	// in Clone to derive a differently named variant.
	Name string

	// Description explains what the agent does. It is surfaced to sibling
	// agents as the default handoff tool description.
	Description string

	// Instructions becomes the system prompt. Static text or a dynamic
	// provider; the zero value sends no system prompt.
	Instructions Instructions

	// Model generates the agent's completions. Leave nil to defer to the
	// run configuration (model or provider lookup).
	Model model.Model

	// ModelName is resolved through a model.Provider at run time when Model
	// is nil.
	ModelName string

	// ModelSettings are the agent's sampling and tool-use defaults.
	// Run-level settings override them field by field.
	ModelSettings model.Settings

	// Tools the agent may call.
	Tools []tool.Tool

	// Handoffs the agent may delegate to.
	Handoffs []*Handoff

	// OutputType, when set, makes the agent produce structured output
	// validated against the type's JSON schema. A final message that fails
	// to parse stops the run.
	OutputType *OutputType

	// InputGuardrails validate the user input; they only run when this
	// agent is the first agent of a run.
	InputGuardrails []InputGuardrail

	// OutputGuardrails validate the agent's final output.
	OutputGuardrails []OutputGuardrail

	// Hooks receives this agent's lifecycle callbacks.
	Hooks Hooks

	// ToolUseBehavior controls whether tool results conclude the run or
	// feed back into another model turn.
	ToolUseBehavior ToolUseBehavior

	// ResetToolChoice controls whether a forcing ToolChoice (required, or a
	// specific tool) resets to auto after tools execute, preventing
	// infinite tool-call loops. Defaults to true.
	ResetToolChoice *bool
}

// Agent is an LLM configured with instructions, tools, handoffs and
// guardrails. Agents are immutable once constructed; derive variants with
// Clone instead of mutating shared state.
type Agent struct {
	opts Options
}

// New creates an agent with the given name.
func New(name string, optFns ...func(o *Options)) *Agent {
	opts := Options{Name: name}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Agent{opts: opts}
}

// Clone returns a copy of the agent with the overrides applied. The copy
// owns fresh tool, handoff and guardrail slices, so appending inside an
// override does not mutate the original; the referenced tools, model and
// hooks themselves are shared.
func (a *Agent) Clone(optFns ...func(o *Options)) *Agent {
	opts := a.opts
	opts.Tools = slices.Clone(a.opts.Tools)
	opts.Handoffs = slices.Clone(a.opts.Handoffs)
	opts.InputGuardrails = slices.Clone(a.opts.InputGuardrails)
	opts.OutputGuardrails = slices.Clone(a.opts.OutputGuardrails)
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Agent{opts: opts}
}

// Name returns the agent's identifier.
func (a *Agent) Name() string { return a.opts.Name }

// Description returns the agent's human-readable purpose.
func (a *Agent) Description() string { return a.opts.Description }

// Instructions returns the agent's system prompt declaration.
func (a *Agent) Instructions() Instructions { return a.opts.Instructions }

// Model returns the agent's model, or nil when resolution is deferred to
// run configuration.
func (a *Agent) Model() model.Model { return a.opts.Model }

// ModelName returns the model name to resolve through a provider when no
// concrete model is attached.
func (a *Agent) ModelName() string { return a.opts.ModelName }

// ModelSettings returns the agent's default model settings.
func (a *Agent) ModelSettings() model.Settings { return a.opts.ModelSettings }

// Tools returns the agent's tools.
func (a *Agent) Tools() []tool.Tool { return a.opts.Tools }

// Handoffs returns the agent's handoff targets.
func (a *Agent) Handoffs() []*Handoff { return a.opts.Handoffs }

// OutputType returns the structured output declaration, or nil for plain
// text agents.
func (a *Agent) OutputType() *OutputType { return a.opts.OutputType }

// InputGuardrails returns the agent's input guardrails.
func (a *Agent) InputGuardrails() []InputGuardrail { return a.opts.InputGuardrails }

// OutputGuardrails returns the agent's output guardrails.
func (a *Agent) OutputGuardrails() []OutputGuardrail { return a.opts.OutputGuardrails }

// Hooks returns the agent-scoped lifecycle hooks (possibly nil).
func (a *Agent) Hooks() Hooks { return a.opts.Hooks }

// ToolUseBehavior returns how tool results conclude a turn.
func (a *Agent) ToolUseBehavior() ToolUseBehavior { return a.opts.ToolUseBehavior }

// ResetToolChoice reports whether a forcing tool choice resets to auto after
// tool execution. Defaults to true.
func (a *Agent) ResetToolChoice() bool {
	if a.opts.ResetToolChoice == nil {
		return true
	}
	return *a.opts.ResetToolChoice
}

// ToolUseBehavior controls how tool results conclude a turn. The zero value
// sends every tool result back to the model for another reasoning pass.
type ToolUseBehavior struct {
	// StopOnFirstTool promotes the first executed tool's result to the
	// run's final output, skipping the closing model turn.
	StopOnFirstTool bool

	// StopAtToolNames promotes the result of any listed tool to the final
	// output; unlisted tools feed back into the model as usual.
	StopAtToolNames []string
}

// ShouldStop reports whether a result of the named tool concludes the run.
func (b ToolUseBehavior) ShouldStop(toolName string) bool {
	if b.StopOnFirstTool {
		return true
	}
	return slices.Contains(b.StopAtToolNames, toolName)
}
