package agent

import (
	"fmt"

	"github.com/agentkit-go/agentkit/core"
	"github.com/agentkit-go/agentkit/internal/util"
	"github.com/agentkit-go/agentkit/model"
)

// HandoffInputData is the conversation state a handoff target inherits.
type HandoffInputData struct {
	// History is the conversation so far, including items generated during
	// the current run up to and including the handoff tool output.
	History []core.Item
}

// HandoffInputFilter rewrites the conversation state during a handoff, for
// example to drop tool chatter the target agent should not see.
type HandoffInputFilter func(data HandoffInputData) HandoffInputData

// HandoffOptions configures a Handoff.
type HandoffOptions struct {
	// ToolName overrides the generated transfer_to_<agent_name> tool name.
	ToolName string

	// ToolDescription overrides the generated tool description.
	ToolDescription string

	// OnHandoff runs when the model invokes the handoff, before the target
	// agent takes over. A non-nil error aborts the run.
	OnHandoff func(rc *core.RunContext) error

	// InputFilter rewrites the history the target agent sees.
	InputFilter HandoffInputFilter

	// Disabled hides the handoff from the model.
	Disabled bool
}

// Handoff lets an agent delegate the conversation to another agent. The
// model sees the handoff as a regular function tool; invoking it switches
// the active agent for the rest of the run.
type Handoff struct {
	target *Agent
	opts   HandoffOptions
}

// NewHandoff creates a handoff to the target agent.
func NewHandoff(target *Agent, optFns ...func(o *HandoffOptions)) *Handoff {
	opts := HandoffOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Handoff{target: target, opts: opts}
}

// NewHandoffs creates plain handoffs to each target agent. It keeps the
// common case terse:
//
//	o.Handoffs = agent.NewHandoffs(billing, refunds)
func NewHandoffs(targets ...*Agent) []*Handoff {
	handoffs := make([]*Handoff, 0, len(targets))
	for _, t := range targets {
		handoffs = append(handoffs, NewHandoff(t))
	}
	return handoffs
}

// Agent returns the handoff target.
func (h *Handoff) Agent() *Agent { return h.target }

// Enabled reports whether the handoff is exposed to the model.
func (h *Handoff) Enabled() bool { return !h.opts.Disabled }

// ToolName returns the function name the model calls to trigger the handoff.
func (h *Handoff) ToolName() string {
	if h.opts.ToolName != "" {
		return h.opts.ToolName
	}
	return DefaultHandoffToolName(h.target.Name())
}

// ToolDescription returns the description advertised to the model.
func (h *Handoff) ToolDescription() string {
	if h.opts.ToolDescription != "" {
		return h.opts.ToolDescription
	}
	desc := fmt.Sprintf("Handoff to the %s agent to handle the request.", h.target.Name())
	if d := h.target.Description(); d != "" {
		desc += " " + d
	}
	return desc
}

// InputFilter returns the history filter, or nil when the target inherits
// the full conversation.
func (h *Handoff) InputFilter() HandoffInputFilter { return h.opts.InputFilter }

// OnHandoff returns the callback invoked when the handoff triggers, or nil.
func (h *Handoff) OnHandoff() func(rc *core.RunContext) error { return h.opts.OnHandoff }

// ToolDefinition returns the function declaration advertised to the model.
// Handoff tools take no arguments.
func (h *Handoff) ToolDefinition() model.ToolDefinition {
	return model.ToolDefinition{
		Name:        h.ToolName(),
		Description: h.ToolDescription(),
		Parameters: map[string]any{
			"type":                 "object",
			"properties":           map[string]any{},
			"additionalProperties": false,
		},
	}
}

// DefaultHandoffToolName derives the transfer tool name for an agent, e.g.
// "Billing Agent" becomes "transfer_to_billing_agent".
func DefaultHandoffToolName(agentName string) string {
	return "transfer_to_" + util.SnakeCase(agentName)
}
