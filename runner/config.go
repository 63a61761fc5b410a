package runner

import (
	"github.com/agentkit-go/agentkit/agent"
	"github.com/agentkit-go/agentkit/model"
	"github.com/agentkit-go/agentkit/session"
)

// RunConfig applies global overrides to a single run. It lets an application
// swap providers, layer model settings or add guardrails without touching
// agent definitions:
//
//	provider := openai.NewProvider(func(o *openai.ProviderOptions) {
//	    o.APIKey = geminiKey
//	    o.BaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
//	})
//
//	cfg := &runner.RunConfig{
//	    ModelName:       "gemini-2.0-flash",
//	    ModelProvider:   provider,
//	    TracingDisabled: true,
//	}
type RunConfig struct {
	// Model overrides every agent's model for this run.
	Model model.Model

	// ModelName overrides every agent's model by name, resolved through
	// ModelProvider. Ignored when Model is set.
	ModelName string

	// ModelProvider resolves model names (ModelName above, and
	// agent.ModelName when the agent carries no concrete model).
	ModelProvider model.Provider

	// ModelSettings override agent-level settings field by field.
	ModelSettings *model.Settings

	// HandoffInputFilter rewrites the conversation on any handoff that does
	// not declare its own filter.
	HandoffInputFilter agent.HandoffInputFilter

	// InputGuardrails run against the run input in addition to the starting
	// agent's own guardrails.
	InputGuardrails []agent.InputGuardrail

	// OutputGuardrails run against the final output in addition to the last
	// agent's own guardrails.
	OutputGuardrails []agent.OutputGuardrail

	// TracingDisabled turns off span creation for this run.
	TracingDisabled bool

	// WorkflowName labels the run in traces and logs.
	WorkflowName string
}

// RunOptions configures a single Run or RunStreamed call.
type RunOptions struct {
	// UserData is exposed to instructions providers, guardrails, hooks and
	// tools through the run context. The SDK never inspects it.
	UserData any

	// MaxTurns caps model invocations for this run. 0 uses the runner's
	// default.
	MaxTurns int

	// Hooks receives run-scoped lifecycle callbacks.
	Hooks RunHooks

	// Config carries per-run overrides.
	Config *RunConfig

	// Session supplies prior conversation items before the run starts and
	// persists the run's items after it succeeds.
	Session session.Session
}

// workflowName returns the trace label for a run. The default mirrors what
// applications see when they never name their workflows.
func (c RunConfig) workflowName() string {
	if c.WorkflowName != "" {
		return c.WorkflowName
	}
	return "Agent workflow"
}
