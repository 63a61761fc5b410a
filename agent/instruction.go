package agent

import "github.com/agentkit-go/agentkit/core"

// InstructionsProvider supplies dynamic instruction text at runtime.
// Implementations can derive instructions from run state (user data, session
// identity) or from the agent being prompted.
type InstructionsProvider interface {
	Instructions(rc *core.RunContext, a *Agent) (string, error)
}

// InstructionsFunc is a functional adapter to allow ordinary functions to be
// used as InstructionsProviders.
type InstructionsFunc func(rc *core.RunContext, a *Agent) (string, error)

// Instructions implements InstructionsProvider.
func (f InstructionsFunc) Instructions(rc *core.RunContext, a *Agent) (string, error) {
	return f(rc, a)
}

// Instructions represents either a static instruction string or a dynamic
// provider. This mirrors a union of string | provider in a Go-idiomatic way.
type Instructions struct {
	text     string
	provider InstructionsProvider
}

// NewInstructionsFromText creates Instructions from a static string.
func NewInstructionsFromText(text string) Instructions { return Instructions{text: text} }

// NewInstructionsFromProvider creates Instructions from a dynamic provider.
func NewInstructionsFromProvider(p InstructionsProvider) Instructions {
	return Instructions{provider: p}
}

// NewInstructionsFromFunc creates Instructions from a function.
func NewInstructionsFromFunc(f func(rc *core.RunContext, a *Agent) (string, error)) Instructions {
	return Instructions{provider: InstructionsFunc(f)}
}

// IsStatic returns true if the instructions are backed by a static string.
func (i Instructions) IsStatic() bool { return i.provider == nil }

// IsZero returns true if no instructions were configured.
func (i Instructions) IsZero() bool { return i.provider == nil && i.text == "" }

// Resolve returns the instruction text, invoking the provider if needed.
func (i Instructions) Resolve(rc *core.RunContext, a *Agent) (string, error) {
	if i.provider != nil {
		return i.provider.Instructions(rc, a)
	}
	return i.text, nil
}
