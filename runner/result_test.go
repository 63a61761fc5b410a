package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentkit-go/agentkit/core"
)

func TestResult_FinalOutputText(t *testing.T) {
	assert.Empty(t, (&Result{}).FinalOutputText())
	assert.Equal(t, "plain text", (&Result{FinalOutput: "plain text"}).FinalOutputText())

	structured := &Result{FinalOutput: weatherReport{City: "Tokyo", Celsius: 27.5}}
	assert.JSONEq(t, `{"city":"Tokyo","celsius":27.5}`, structured.FinalOutputText())
}

func TestFinalOutputAs(t *testing.T) {
	r := &Result{FinalOutput: weatherReport{City: "Tokyo"}}

	report, ok := FinalOutputAs[weatherReport](r)
	require.True(t, ok)
	assert.Equal(t, "Tokyo", report.City)

	_, ok = FinalOutputAs[string](r)
	assert.False(t, ok)
}

func TestResult_ToInputList(t *testing.T) {
	input := core.NewUserItem("hi")
	reply := core.NewItem("Assistant", core.NewAssistantContent("hello"))

	r := &Result{NewItems: []core.Item{reply}, inputItem: input}

	list := r.ToInputList()
	require.Len(t, list, 2)
	assert.Equal(t, "hi", list[0].Content.Text())
	assert.Equal(t, "hello", list[1].Content.Text())
}

func TestRunConfig_WorkflowName(t *testing.T) {
	assert.Equal(t, "Agent workflow", RunConfig{}.workflowName())
	assert.Equal(t, "Support triage", RunConfig{WorkflowName: "Support triage"}.workflowName())
}

func TestErrorMessages(t *testing.T) {
	assert.EqualError(t, &MaxTurnsExceededError{MaxTurns: 3}, "max turns (3) exceeded")
	assert.EqualError(t, &ModelBehaviorError{Reason: "no final response"}, "model behavior error: no final response")
	assert.EqualError(t, &UserError{Msg: "agent must not be nil"}, "agent must not be nil")
	assert.EqualError(t, &InputGuardrailTripwireError{Guardrail: "block_math"}, `input guardrail "block_math" tripwire triggered`)
	assert.EqualError(t, &OutputGuardrailTripwireError{Guardrail: "no_pii"}, `output guardrail "no_pii" tripwire triggered`)
}
