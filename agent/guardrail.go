package agent

import "github.com/agentkit-go/agentkit/core"

// GuardrailOutput is the verdict of a guardrail function.
type GuardrailOutput struct {
	// OutputInfo carries optional guardrail-specific diagnostics, surfaced
	// on the tripwire error when the guardrail trips.
	OutputInfo any

	// TripwireTriggered halts the run with a tripwire error when true.
	TripwireTriggered bool
}

// InputGuardrailFunc checks the user input of a run.
type InputGuardrailFunc func(rc *core.RunContext, a *Agent, input string) (GuardrailOutput, error)

// InputGuardrail validates user input. Input guardrails run concurrently
// with the first model call; when one trips, the run is cancelled before the
// model response is consumed.
type InputGuardrail struct {
	// Name identifies the guardrail in errors and logs.
	Name string

	// Func performs the check. A non-nil error aborts the run.
	Func InputGuardrailFunc
}

// Run executes the guardrail.
func (g InputGuardrail) Run(rc *core.RunContext, a *Agent, input string) (GuardrailOutput, error) {
	if g.Func == nil {
		return GuardrailOutput{}, nil
	}
	return g.Func(rc, a, input)
}

// OutputGuardrailFunc checks the final output of a run.
type OutputGuardrailFunc func(rc *core.RunContext, a *Agent, output any) (GuardrailOutput, error)

// OutputGuardrail validates an agent's final output before it is returned
// to the caller.
type OutputGuardrail struct {
	// Name identifies the guardrail in errors and logs.
	Name string

	// Func performs the check. A non-nil error aborts the run.
	Func OutputGuardrailFunc
}

// Run executes the guardrail.
func (g OutputGuardrail) Run(rc *core.RunContext, a *Agent, output any) (GuardrailOutput, error) {
	if g.Func == nil {
		return GuardrailOutput{}, nil
	}
	return g.Func(rc, a, output)
}
