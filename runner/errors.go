package runner

import (
	"fmt"

	"github.com/agentkit-go/agentkit/agent"
)

// MaxTurnsExceededError reports that a run consumed its turn budget without
// producing a final output. It usually means the model is stuck re-invoking
// tools; raise MaxTurns when a workflow legitimately needs more steps.
type MaxTurnsExceededError struct {
	// MaxTurns is the budget that was exhausted.
	MaxTurns int
}

func (e *MaxTurnsExceededError) Error() string {
	return fmt.Sprintf("max turns (%d) exceeded", e.MaxTurns)
}

// ModelBehaviorError reports that the model produced something the run cannot
// recover from, such as a final message that does not conform to the agent's
// declared output type.
type ModelBehaviorError struct {
	// Reason describes what the model did wrong.
	Reason string
}

func (e *ModelBehaviorError) Error() string {
	return fmt.Sprintf("model behavior error: %s", e.Reason)
}

// UserError reports a configuration mistake by the SDK user, such as running
// an agent with no resolvable model or duplicate tool names.
type UserError struct {
	Msg string
}

func (e *UserError) Error() string { return e.Msg }

// InputGuardrailTripwireError halts a run whose input tripped a guardrail.
type InputGuardrailTripwireError struct {
	// Guardrail names the guardrail that tripped.
	Guardrail string

	// Output is the verdict the guardrail returned, including any
	// diagnostics it attached.
	Output agent.GuardrailOutput
}

func (e *InputGuardrailTripwireError) Error() string {
	return fmt.Sprintf("input guardrail %q tripwire triggered", e.Guardrail)
}

// OutputGuardrailTripwireError halts a run whose final output tripped a
// guardrail.
type OutputGuardrailTripwireError struct {
	// Guardrail names the guardrail that tripped.
	Guardrail string

	// Output is the verdict the guardrail returned.
	Output agent.GuardrailOutput
}

func (e *OutputGuardrailTripwireError) Error() string {
	return fmt.Sprintf("output guardrail %q tripwire triggered", e.Guardrail)
}
