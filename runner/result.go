package runner

import (
	"encoding/json"
	"fmt"

	"github.com/agentkit-go/agentkit/agent"
	"github.com/agentkit-go/agentkit/core"
)

// GuardrailResult pairs a guardrail name with the verdict it returned.
type GuardrailResult struct {
	Name   string
	Output agent.GuardrailOutput
}

// Result is the outcome of a completed run.
type Result struct {
	// Input is the text the run started from.
	Input string

	// NewItems are the conversation items the run generated: assistant
	// messages, tool outputs and handoff records, in order.
	NewItems []core.Item

	// FinalOutput is the run's final output: a string for plain-text
	// agents, a value of the declared output type for structured agents,
	// or a tool result promoted by ToolUseBehavior.
	FinalOutput any

	// LastAgent is the agent that produced the final output. After
	// handoffs this is the specialist that answered, which is useful for
	// routing follow-up questions.
	LastAgent *agent.Agent

	// Usage aggregates model token consumption across the run, including
	// nested agent-as-tool runs.
	Usage core.Usage

	// InputGuardrailResults holds the verdicts of input guardrails that
	// completed before the run finished.
	InputGuardrailResults []GuardrailResult

	// OutputGuardrailResults holds the verdicts of output guardrails.
	OutputGuardrailResults []GuardrailResult

	inputItem core.Item
}

// FinalOutputText renders the final output as text: strings pass through and
// structured outputs marshal to JSON.
func (r *Result) FinalOutputText() string {
	switch v := r.FinalOutput.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

// ToInputList returns the run's input item followed by everything the run
// generated, ready to seed a follow-up run.
func (r *Result) ToInputList() []core.Item {
	out := make([]core.Item, 0, len(r.NewItems)+1)
	out = append(out, r.inputItem)
	out = append(out, r.NewItems...)
	return out
}

// FinalOutputAs asserts the final output to T. ok is false when the run
// produced a different type.
func FinalOutputAs[T any](r *Result) (T, bool) {
	v, ok := r.FinalOutput.(T)
	return v, ok
}
