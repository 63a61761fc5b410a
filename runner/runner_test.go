package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentkit-go/agentkit/agent"
	"github.com/agentkit-go/agentkit/core"
	"github.com/agentkit-go/agentkit/model"
	"github.com/agentkit-go/agentkit/session"
	"github.com/agentkit-go/agentkit/tool"
)

func weatherTool() tool.Tool {
	return tool.NewFunctionTool("get_weather", "Get the weather for a city.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"city": map[string]any{"type": "string"},
			},
			"required": []string{"city"},
		},
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			city, _ := args["city"].(string)
			return "Sunny in " + city, nil
		})
}

func failingTool(name string) tool.Tool {
	return tool.NewFunctionTool(name, "Always fails.",
		map[string]any{"type": "object"},
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			return nil, errors.New("kaboom")
		})
}

// recordingHooks captures lifecycle notifications in call order.
type recordingHooks struct {
	BaseRunHooks
	mu     sync.Mutex
	events []string
}

func (h *recordingHooks) record(ev string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
}

func (h *recordingHooks) Events() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.events))
	copy(out, h.events)
	return out
}

func (h *recordingHooks) OnAgentStart(rc *core.RunContext, a *agent.Agent) error {
	h.record("agent_start:" + a.Name())
	return nil
}

func (h *recordingHooks) OnAgentEnd(rc *core.RunContext, a *agent.Agent, output any) error {
	h.record("agent_end:" + a.Name())
	return nil
}

func (h *recordingHooks) OnHandoff(rc *core.RunContext, from, to *agent.Agent) error {
	h.record(fmt.Sprintf("handoff:%s->%s", from.Name(), to.Name()))
	return nil
}

func (h *recordingHooks) OnToolStart(rc *core.RunContext, a *agent.Agent, t tool.Tool) error {
	h.record("tool_start:" + t.Name())
	return nil
}

func (h *recordingHooks) OnToolEnd(rc *core.RunContext, a *agent.Agent, t tool.Tool, result any) error {
	h.record("tool_end:" + t.Name())
	return nil
}

type stubProvider struct {
	models map[string]model.Model
}

func (p stubProvider) Get(name string) (model.Model, error) {
	m, ok := p.models[name]
	if !ok {
		return nil, fmt.Errorf("unknown model %q", name)
	}
	return m, nil
}

func TestRun_SimpleText(t *testing.T) {
	m := model.NewMockModel("mock-model", "mock")
	m.EnqueueText("Hello there!")
	a := agent.New("Assistant", func(o *agent.Options) { o.Model = m })

	res, err := New().Run(context.Background(), a, "Hi")
	require.NoError(t, err)

	assert.Equal(t, "Hi", res.Input)
	assert.Equal(t, "Hello there!", res.FinalOutput)
	assert.Equal(t, "Hello there!", res.FinalOutputText())
	assert.Same(t, a, res.LastAgent)
	require.Len(t, res.NewItems, 1)
	assert.Equal(t, "Assistant", res.NewItems[0].Author)

	assert.Equal(t, int64(1), res.Usage.Requests)
	assert.Equal(t, int64(10), res.Usage.PromptTokens)
	assert.Equal(t, int64(5), res.Usage.CompletionTokens)
	assert.Equal(t, int64(15), res.Usage.TotalTokens)

	// Blocking runs do not ask the model to stream.
	require.Len(t, m.Requests(), 1)
	assert.False(t, m.Requests()[0].Stream)
}

func TestRun_NilAgent(t *testing.T) {
	_, err := New().Run(context.Background(), nil, "Hi")

	var ue *UserError
	require.ErrorAs(t, err, &ue)
}

func TestRun_NoModel(t *testing.T) {
	a := agent.New("Assistant")

	_, err := New().Run(context.Background(), a, "Hi")

	var ue *UserError
	require.ErrorAs(t, err, &ue)
	assert.Contains(t, ue.Msg, `no model configured for agent "Assistant"`)
}

func TestRun_ToolLoop(t *testing.T) {
	m := model.NewMockModel("mock-model", "mock")
	m.EnqueueFunctionCalls(core.FunctionCall{ID: "call_1", Name: "get_weather", Arguments: `{"city":"Tokyo"}`})
	m.EnqueueText("It is sunny in Tokyo.")
	a := agent.New("Assistant", func(o *agent.Options) {
		o.Model = m
		o.Tools = []tool.Tool{weatherTool()}
	})

	res, err := New().Run(context.Background(), a, "Weather in Tokyo?")
	require.NoError(t, err)

	assert.Equal(t, "It is sunny in Tokyo.", res.FinalOutput)

	// Function call item, tool output item, final message.
	require.Len(t, res.NewItems, 3)
	calls := res.NewItems[0].Content.FunctionCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "get_weather", calls[0].Name)

	frs := res.NewItems[1].Content.FunctionResponses()
	require.Len(t, frs, 1)
	assert.Equal(t, "call_1", frs[0].ID)
	assert.Equal(t, "Sunny in Tokyo", frs[0].Response)
	assert.Empty(t, frs[0].Error)

	// The second request carries the tool result back to the model.
	reqs := m.Requests()
	require.Len(t, reqs, 2)
	last := reqs[1].Contents
	require.Len(t, last, 3)
	assert.Equal(t, core.RoleUser, last[0].Role)
	assert.Equal(t, core.RoleAssistant, last[1].Role)
	assert.Equal(t, core.RoleTool, last[2].Role)

	assert.Equal(t, int64(2), res.Usage.Requests)
	assert.Equal(t, int64(30), res.Usage.TotalTokens)
}

func TestRun_ToolErrorBecomesFunctionResponse(t *testing.T) {
	m := model.NewMockModel("mock-model", "mock")
	m.EnqueueFunctionCalls(core.FunctionCall{ID: "call_1", Name: "explode", Arguments: `{}`})
	m.EnqueueText("The tool failed, sorry.")
	a := agent.New("Assistant", func(o *agent.Options) {
		o.Model = m
		o.Tools = []tool.Tool{failingTool("explode")}
	})

	res, err := New().Run(context.Background(), a, "Go")
	require.NoError(t, err)

	assert.Equal(t, "The tool failed, sorry.", res.FinalOutput)
	frs := res.NewItems[1].Content.FunctionResponses()
	require.Len(t, frs, 1)
	assert.Contains(t, frs[0].Error, "kaboom")
}

func TestRun_UnknownToolBecomesFunctionResponse(t *testing.T) {
	m := model.NewMockModel("mock-model", "mock")
	m.EnqueueFunctionCalls(core.FunctionCall{ID: "call_1", Name: "missing_tool", Arguments: `{}`})
	m.EnqueueText("Recovered.")
	a := agent.New("Assistant", func(o *agent.Options) {
		o.Model = m
		o.Tools = []tool.Tool{weatherTool()}
	})

	res, err := New().Run(context.Background(), a, "Go")
	require.NoError(t, err)

	assert.Equal(t, "Recovered.", res.FinalOutput)
	frs := res.NewItems[1].Content.FunctionResponses()
	require.Len(t, frs, 1)
	assert.Contains(t, frs[0].Error, `tool "missing_tool" not found`)
}

func TestRun_MalformedArgumentsBecomeFunctionResponse(t *testing.T) {
	m := model.NewMockModel("mock-model", "mock")
	m.EnqueueFunctionCalls(core.FunctionCall{ID: "call_1", Name: "get_weather", Arguments: `{"city":`})
	m.EnqueueText("Recovered.")
	a := agent.New("Assistant", func(o *agent.Options) {
		o.Model = m
		o.Tools = []tool.Tool{weatherTool()}
	})

	res, err := New().Run(context.Background(), a, "Go")
	require.NoError(t, err)

	assert.Equal(t, "Recovered.", res.FinalOutput)
	frs := res.NewItems[1].Content.FunctionResponses()
	require.Len(t, frs, 1)
	assert.Contains(t, frs[0].Error, "unmarshal arguments")
}

func TestRun_MaxTurnsExceeded(t *testing.T) {
	m := model.NewMockModel("mock-model", "mock")
	m.EnqueueFunctionCalls(core.FunctionCall{ID: "call_1", Name: "get_weather", Arguments: `{"city":"Tokyo"}`})
	m.EnqueueFunctionCalls(core.FunctionCall{ID: "call_2", Name: "get_weather", Arguments: `{"city":"Osaka"}`})
	a := agent.New("Assistant", func(o *agent.Options) {
		o.Model = m
		o.Tools = []tool.Tool{weatherTool()}
	})

	_, err := New().Run(context.Background(), a, "Loop forever", func(o *RunOptions) {
		o.MaxTurns = 2
	})

	var mte *MaxTurnsExceededError
	require.ErrorAs(t, err, &mte)
	assert.Equal(t, 2, mte.MaxTurns)
	assert.EqualError(t, mte, "max turns (2) exceeded")
}

func TestRun_ModelError(t *testing.T) {
	m := model.NewMockModel("mock-model", "mock")
	m.FailWith(errors.New("rate limited"))
	a := agent.New("Assistant", func(o *agent.Options) { o.Model = m })

	_, err := New().Run(context.Background(), a, "Hi")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "model generate")
	assert.Contains(t, err.Error(), "rate limited")
}

func TestRun_Handoff(t *testing.T) {
	billingModel := model.NewMockModel("mock-model", "mock")
	billingModel.EnqueueText("Your invoice is paid.")
	billing := agent.New("Billing Agent", func(o *agent.Options) { o.Model = billingModel })

	triageModel := model.NewMockModel("mock-model", "mock")
	triageModel.EnqueueFunctionCalls(core.FunctionCall{ID: "call_1", Name: "transfer_to_billing_agent", Arguments: `{}`})
	triage := agent.New("Triage Agent", func(o *agent.Options) {
		o.Model = triageModel
		o.Handoffs = agent.NewHandoffs(billing)
	})

	res, err := New().Run(context.Background(), triage, "Was my invoice paid?")
	require.NoError(t, err)

	assert.Same(t, billing, res.LastAgent)
	assert.Equal(t, "Your invoice is paid.", res.FinalOutput)

	// Transfer call, transfer acknowledgement, final message.
	require.Len(t, res.NewItems, 3)
	frs := res.NewItems[1].Content.FunctionResponses()
	require.Len(t, frs, 1)
	assert.Equal(t, `{"assistant":"Billing Agent"}`, frs[0].Response)

	// The handoff target inherits the conversation.
	reqs := billingModel.Requests()
	require.Len(t, reqs, 1)
	assert.Len(t, reqs[0].Contents, 3)
}

func TestRun_MultipleHandoffsFirstWins(t *testing.T) {
	billingModel := model.NewMockModel("mock-model", "mock")
	billingModel.EnqueueText("Billing here.")
	billing := agent.New("Billing Agent", func(o *agent.Options) { o.Model = billingModel })
	refunds := agent.New("Refunds Agent", func(o *agent.Options) {
		o.Model = model.NewMockModel("mock-model", "mock")
	})

	triageModel := model.NewMockModel("mock-model", "mock")
	triageModel.EnqueueFunctionCalls(
		core.FunctionCall{ID: "call_1", Name: "transfer_to_billing_agent", Arguments: `{}`},
		core.FunctionCall{ID: "call_2", Name: "transfer_to_refunds_agent", Arguments: `{}`},
	)
	triage := agent.New("Triage Agent", func(o *agent.Options) {
		o.Model = triageModel
		o.Handoffs = agent.NewHandoffs(billing, refunds)
	})

	res, err := New().Run(context.Background(), triage, "Help")
	require.NoError(t, err)

	assert.Same(t, billing, res.LastAgent)

	// Transfer call, rejection for the loser, acknowledgement for the
	// winner, final message.
	require.Len(t, res.NewItems, 4)

	rejected := res.NewItems[1].Content.FunctionResponses()
	require.Len(t, rejected, 1)
	assert.Equal(t, "call_2", rejected[0].ID)
	assert.Equal(t, "Multiple handoffs detected, ignoring this one.", rejected[0].Response)

	accepted := res.NewItems[2].Content.FunctionResponses()
	require.Len(t, accepted, 1)
	assert.Equal(t, "call_1", accepted[0].ID)
	assert.Equal(t, `{"assistant":"Billing Agent"}`, accepted[0].Response)
}

func TestRun_HandoffCallbackAndFilter(t *testing.T) {
	specialistModel := model.NewMockModel("mock-model", "mock")
	specialistModel.EnqueueText("Done.")
	specialist := agent.New("Specialist", func(o *agent.Options) { o.Model = specialistModel })

	var callbackRan bool
	handoff := agent.NewHandoff(specialist, func(o *agent.HandoffOptions) {
		o.OnHandoff = func(rc *core.RunContext) error {
			callbackRan = true
			return nil
		}
		o.InputFilter = func(data agent.HandoffInputData) agent.HandoffInputData {
			// Keep only the newest item.
			data.History = data.History[len(data.History)-1:]
			return data
		}
	})

	frontModel := model.NewMockModel("mock-model", "mock")
	frontModel.EnqueueFunctionCalls(core.FunctionCall{ID: "call_1", Name: "transfer_to_specialist", Arguments: `{}`})
	front := agent.New("Front Desk", func(o *agent.Options) {
		o.Model = frontModel
		o.Handoffs = []*agent.Handoff{handoff}
	})

	res, err := New().Run(context.Background(), front, "Escalate this")
	require.NoError(t, err)

	assert.True(t, callbackRan)
	assert.Same(t, specialist, res.LastAgent)

	// The filter trimmed the specialist's view down to one item.
	reqs := specialistModel.Requests()
	require.Len(t, reqs, 1)
	assert.Len(t, reqs[0].Contents, 1)
}

func TestRun_ToolChoiceResetAfterForcedCall(t *testing.T) {
	m := model.NewMockModel("mock-model", "mock")
	m.EnqueueFunctionCalls(core.FunctionCall{ID: "call_1", Name: "get_weather", Arguments: `{"city":"Tokyo"}`})
	m.EnqueueText("Sunny.")
	a := agent.New("Assistant", func(o *agent.Options) {
		o.Model = m
		o.Tools = []tool.Tool{weatherTool()}
		o.ModelSettings = model.Settings{ToolChoice: model.ToolChoiceTool("get_weather")}
	})

	_, err := New().Run(context.Background(), a, "Weather?")
	require.NoError(t, err)

	reqs := m.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, model.ToolChoiceTool("get_weather"), reqs[0].Settings.ToolChoice)
	assert.Equal(t, model.ToolChoiceAuto, reqs[1].Settings.ToolChoice)
}

func TestRun_ToolChoiceResetDisabled(t *testing.T) {
	m := model.NewMockModel("mock-model", "mock")
	m.EnqueueFunctionCalls(core.FunctionCall{ID: "call_1", Name: "get_weather", Arguments: `{"city":"Tokyo"}`})
	m.EnqueueText("Sunny.")
	a := agent.New("Assistant", func(o *agent.Options) {
		o.Model = m
		o.Tools = []tool.Tool{weatherTool()}
		o.ModelSettings = model.Settings{ToolChoice: model.ToolChoiceRequired}
		o.ResetToolChoice = model.Bool(false)
	})

	_, err := New().Run(context.Background(), a, "Weather?")
	require.NoError(t, err)

	reqs := m.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, model.ToolChoiceRequired, reqs[1].Settings.ToolChoice)
}

func TestRun_DuplicateToolName(t *testing.T) {
	m := model.NewMockModel("mock-model", "mock")
	a := agent.New("Assistant", func(o *agent.Options) {
		o.Model = m
		o.Tools = []tool.Tool{weatherTool(), weatherTool()}
	})

	_, err := New().Run(context.Background(), a, "Hi")

	var ue *UserError
	require.ErrorAs(t, err, &ue)
	assert.Contains(t, ue.Msg, `declares tool "get_weather" twice`)
}

type weatherReport struct {
	City    string  `json:"city"`
	Celsius float64 `json:"celsius"`
}

func TestRun_StructuredOutput(t *testing.T) {
	m := model.NewMockModel("mock-model", "mock")
	m.EnqueueText(`{"city":"Tokyo","celsius":27.5}`)
	a := agent.New("Weather Reporter", func(o *agent.Options) {
		o.Model = m
		o.OutputType = agent.MustForType[weatherReport]()
	})

	res, err := New().Run(context.Background(), a, "Weather in Tokyo?")
	require.NoError(t, err)

	report, ok := FinalOutputAs[weatherReport](res)
	require.True(t, ok)
	assert.Equal(t, "Tokyo", report.City)
	assert.InDelta(t, 27.5, report.Celsius, 1e-9)

	// The schema is sent with the request.
	req := m.LastRequest()
	require.NotNil(t, req)
	require.NotNil(t, req.OutputSchema)
	assert.Equal(t, "weatherReport", req.OutputSchema.Name)
	assert.True(t, req.OutputSchema.Strict)
}

func TestRun_StructuredOutputParseFailure(t *testing.T) {
	m := model.NewMockModel("mock-model", "mock")
	m.EnqueueText("It is sunny, about 27 degrees.")
	a := agent.New("Weather Reporter", func(o *agent.Options) {
		o.Model = m
		o.OutputType = agent.MustForType[weatherReport]()
	})

	_, err := New().Run(context.Background(), a, "Weather in Tokyo?")

	var mbe *ModelBehaviorError
	require.ErrorAs(t, err, &mbe)
	assert.Contains(t, mbe.Reason, "does not conform")
}

func TestRun_InputGuardrailTripwire(t *testing.T) {
	m := model.NewMockModel("mock-model", "mock")
	m.EnqueueText("Sure, the answer is 4.")
	a := agent.New("Tutor", func(o *agent.Options) {
		o.Model = m
		o.InputGuardrails = []agent.InputGuardrail{{
			Name: "block_homework",
			Func: func(rc *core.RunContext, a *agent.Agent, input string) (agent.GuardrailOutput, error) {
				return agent.GuardrailOutput{
					OutputInfo:        "homework detected",
					TripwireTriggered: true,
				}, nil
			},
		}}
	})

	_, err := New().Run(context.Background(), a, "Do my math homework")

	var te *InputGuardrailTripwireError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "block_homework", te.Guardrail)
	assert.Equal(t, "homework detected", te.Output.OutputInfo)
}

func TestRun_InputGuardrailPasses(t *testing.T) {
	m := model.NewMockModel("mock-model", "mock")
	m.EnqueueText("2 + 2 = 4")
	a := agent.New("Tutor", func(o *agent.Options) {
		o.Model = m
		o.InputGuardrails = []agent.InputGuardrail{{
			Name: "block_homework",
			Func: func(rc *core.RunContext, a *agent.Agent, input string) (agent.GuardrailOutput, error) {
				return agent.GuardrailOutput{OutputInfo: "clean"}, nil
			},
		}}
	})

	res, err := New().Run(context.Background(), a, "What is 2+2?")
	require.NoError(t, err)

	require.Len(t, res.InputGuardrailResults, 1)
	assert.Equal(t, "block_homework", res.InputGuardrailResults[0].Name)
	assert.Equal(t, "clean", res.InputGuardrailResults[0].Output.OutputInfo)
}

func TestRun_InputGuardrailError(t *testing.T) {
	m := model.NewMockModel("mock-model", "mock")
	m.EnqueueText("Hello.")
	a := agent.New("Assistant", func(o *agent.Options) {
		o.Model = m
		o.InputGuardrails = []agent.InputGuardrail{{
			Name: "broken",
			Func: func(rc *core.RunContext, a *agent.Agent, input string) (agent.GuardrailOutput, error) {
				return agent.GuardrailOutput{}, errors.New("classifier offline")
			},
		}}
	})

	_, err := New().Run(context.Background(), a, "Hi")

	require.Error(t, err)
	assert.Contains(t, err.Error(), `input guardrail "broken"`)
	assert.Contains(t, err.Error(), "classifier offline")
}

func TestRun_OutputGuardrailTripwire(t *testing.T) {
	m := model.NewMockModel("mock-model", "mock")
	m.EnqueueText("My SSN is 123-45-6789.")
	a := agent.New("Assistant", func(o *agent.Options) {
		o.Model = m
		o.OutputGuardrails = []agent.OutputGuardrail{{
			Name: "no_pii",
			Func: func(rc *core.RunContext, a *agent.Agent, output any) (agent.GuardrailOutput, error) {
				return agent.GuardrailOutput{TripwireTriggered: true}, nil
			},
		}}
	})

	_, err := New().Run(context.Background(), a, "Tell me a secret")

	var te *OutputGuardrailTripwireError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "no_pii", te.Guardrail)
}

func TestRun_ConfigGuardrailsApply(t *testing.T) {
	m := model.NewMockModel("mock-model", "mock")
	m.EnqueueText("Fine.")
	a := agent.New("Assistant", func(o *agent.Options) { o.Model = m })

	res, err := New().Run(context.Background(), a, "Hi", func(o *RunOptions) {
		o.Config = &RunConfig{
			InputGuardrails: []agent.InputGuardrail{{
				Name: "global_input",
				Func: func(rc *core.RunContext, a *agent.Agent, input string) (agent.GuardrailOutput, error) {
					return agent.GuardrailOutput{}, nil
				},
			}},
			OutputGuardrails: []agent.OutputGuardrail{{
				Name: "global_output",
				Func: func(rc *core.RunContext, a *agent.Agent, output any) (agent.GuardrailOutput, error) {
					return agent.GuardrailOutput{}, nil
				},
			}},
		}
	})
	require.NoError(t, err)

	require.Len(t, res.InputGuardrailResults, 1)
	assert.Equal(t, "global_input", res.InputGuardrailResults[0].Name)
	require.Len(t, res.OutputGuardrailResults, 1)
	assert.Equal(t, "global_output", res.OutputGuardrailResults[0].Name)
}

func TestRun_RunHooksOrder(t *testing.T) {
	m := model.NewMockModel("mock-model", "mock")
	m.EnqueueFunctionCalls(core.FunctionCall{ID: "call_1", Name: "get_weather", Arguments: `{"city":"Tokyo"}`})
	m.EnqueueText("Sunny.")
	a := agent.New("Assistant", func(o *agent.Options) {
		o.Model = m
		o.Tools = []tool.Tool{weatherTool()}
	})

	hooks := &recordingHooks{}
	_, err := New().Run(context.Background(), a, "Weather?", func(o *RunOptions) {
		o.Hooks = hooks
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"agent_start:Assistant",
		"tool_start:get_weather",
		"tool_end:get_weather",
		"agent_end:Assistant",
	}, hooks.Events())
}

func TestRun_RunHooksOrderAcrossHandoff(t *testing.T) {
	billingModel := model.NewMockModel("mock-model", "mock")
	billingModel.EnqueueText("Done.")
	billing := agent.New("Billing Agent", func(o *agent.Options) { o.Model = billingModel })

	triageModel := model.NewMockModel("mock-model", "mock")
	triageModel.EnqueueFunctionCalls(core.FunctionCall{ID: "call_1", Name: "transfer_to_billing_agent", Arguments: `{}`})
	triage := agent.New("Triage Agent", func(o *agent.Options) {
		o.Model = triageModel
		o.Handoffs = agent.NewHandoffs(billing)
	})

	hooks := &recordingHooks{}
	_, err := New().Run(context.Background(), triage, "Help", func(o *RunOptions) {
		o.Hooks = hooks
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"agent_start:Triage Agent",
		"handoff:Triage Agent->Billing Agent",
		"agent_start:Billing Agent",
		"agent_end:Billing Agent",
	}, hooks.Events())
}

func TestRun_HookErrorAborts(t *testing.T) {
	m := model.NewMockModel("mock-model", "mock")
	m.EnqueueFunctionCalls(core.FunctionCall{ID: "call_1", Name: "get_weather", Arguments: `{"city":"Tokyo"}`})
	a := agent.New("Assistant", func(o *agent.Options) {
		o.Model = m
		o.Tools = []tool.Tool{weatherTool()}
	})

	hooks := &abortingHooks{}
	_, err := New().Run(context.Background(), a, "Weather?", func(o *RunOptions) {
		o.Hooks = hooks
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "run hook OnToolStart")
}

type abortingHooks struct {
	BaseRunHooks
}

func (abortingHooks) OnToolStart(rc *core.RunContext, a *agent.Agent, t tool.Tool) error {
	return errors.New("denied")
}

func TestRun_AgentHooksFire(t *testing.T) {
	m := model.NewMockModel("mock-model", "mock")
	m.EnqueueText("Hello.")

	hooks := &recordingAgentHooks{}
	a := agent.New("Assistant", func(o *agent.Options) {
		o.Model = m
		o.Hooks = hooks
	})

	_, err := New().Run(context.Background(), a, "Hi")
	require.NoError(t, err)

	assert.Equal(t, []string{"start:Assistant", "end:Assistant"}, hooks.events)
}

type recordingAgentHooks struct {
	agent.BaseHooks
	events []string
}

func (h *recordingAgentHooks) OnStart(rc *core.RunContext, a *agent.Agent) error {
	h.events = append(h.events, "start:"+a.Name())
	return nil
}

func (h *recordingAgentHooks) OnEnd(rc *core.RunContext, a *agent.Agent, output any) error {
	h.events = append(h.events, "end:"+a.Name())
	return nil
}

func TestRun_SessionPersistsItems(t *testing.T) {
	ctx := context.Background()
	sess := session.NewInMemorySession("sess-1")

	m := model.NewMockModel("mock-model", "mock")
	m.EnqueueText("Hello!")
	a := agent.New("Assistant", func(o *agent.Options) { o.Model = m })

	res, err := New().Run(ctx, a, "Hi", func(o *RunOptions) { o.Session = sess })
	require.NoError(t, err)

	stored, err := sess.GetItems(ctx, 0)
	require.NoError(t, err)
	require.Len(t, stored, 1+len(res.NewItems))
	assert.Equal(t, core.AuthorUser, stored[0].Author)
	assert.Equal(t, "Hi", stored[0].Content.Text())

	// A follow-up run sees the stored history.
	m.EnqueueText("I already said hello.")
	_, err = New().Run(ctx, a, "Say hello again", func(o *RunOptions) { o.Session = sess })
	require.NoError(t, err)

	req := m.LastRequest()
	require.NotNil(t, req)
	assert.Len(t, req.Contents, 3) // stored user + assistant, new user
}

func TestRun_SessionNotPersistedOnError(t *testing.T) {
	ctx := context.Background()
	sess := session.NewInMemorySession("sess-1")

	m := model.NewMockModel("mock-model", "mock")
	m.EnqueueText("leaked secret")
	a := agent.New("Assistant", func(o *agent.Options) {
		o.Model = m
		o.OutputGuardrails = []agent.OutputGuardrail{{
			Name: "always_trip",
			Func: func(rc *core.RunContext, a *agent.Agent, output any) (agent.GuardrailOutput, error) {
				return agent.GuardrailOutput{TripwireTriggered: true}, nil
			},
		}}
	})

	_, err := New().Run(ctx, a, "Hi", func(o *RunOptions) { o.Session = sess })
	require.Error(t, err)

	stored, err := sess.GetItems(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestRun_ToolUseBehaviorStopOnFirstTool(t *testing.T) {
	m := model.NewMockModel("mock-model", "mock")
	m.EnqueueFunctionCalls(core.FunctionCall{ID: "call_1", Name: "get_weather", Arguments: `{"city":"Tokyo"}`})
	a := agent.New("Assistant", func(o *agent.Options) {
		o.Model = m
		o.Tools = []tool.Tool{weatherTool()}
		o.ToolUseBehavior = agent.ToolUseBehavior{StopOnFirstTool: true}
	})

	res, err := New().Run(context.Background(), a, "Weather?")
	require.NoError(t, err)

	assert.Equal(t, "Sunny in Tokyo", res.FinalOutput)
	// No closing model turn.
	assert.Len(t, m.Requests(), 1)
}

func TestRun_ToolUseBehaviorStopAtToolNames(t *testing.T) {
	m := model.NewMockModel("mock-model", "mock")
	m.EnqueueFunctionCalls(core.FunctionCall{ID: "call_1", Name: "get_weather", Arguments: `{"city":"Tokyo"}`})
	m.EnqueueText("Sunny.")
	a := agent.New("Assistant", func(o *agent.Options) {
		o.Model = m
		o.Tools = []tool.Tool{weatherTool()}
		o.ToolUseBehavior = agent.ToolUseBehavior{StopAtToolNames: []string{"other_tool"}}
	})

	res, err := New().Run(context.Background(), a, "Weather?")
	require.NoError(t, err)

	// get_weather is not in the stop list, so the loop continues.
	assert.Equal(t, "Sunny.", res.FinalOutput)
	assert.Len(t, m.Requests(), 2)
}

func TestRun_ConfigModelOverridesAgent(t *testing.T) {
	agentModel := model.NewMockModel("agent-model", "mock")
	configModel := model.NewMockModel("config-model", "mock")
	configModel.EnqueueText("From the override.")
	a := agent.New("Assistant", func(o *agent.Options) { o.Model = agentModel })

	res, err := New().Run(context.Background(), a, "Hi", func(o *RunOptions) {
		o.Config = &RunConfig{Model: configModel}
	})
	require.NoError(t, err)

	assert.Equal(t, "From the override.", res.FinalOutput)
	assert.Empty(t, agentModel.Requests())
	assert.Len(t, configModel.Requests(), 1)
}

func TestRun_ModelProviderResolvesNames(t *testing.T) {
	m := model.NewMockModel("gemini-2.0-flash", "gemini")
	m.EnqueueText("Resolved.")
	provider := stubProvider{models: map[string]model.Model{"gemini-2.0-flash": m}}

	a := agent.New("Assistant", func(o *agent.Options) { o.ModelName = "gemini-2.0-flash" })

	res, err := New().Run(context.Background(), a, "Hi", func(o *RunOptions) {
		o.Config = &RunConfig{ModelProvider: provider}
	})
	require.NoError(t, err)
	assert.Equal(t, "Resolved.", res.FinalOutput)

	// A named model without a provider is a configuration error.
	_, err = New().Run(context.Background(), a, "Hi")
	var ue *UserError
	require.ErrorAs(t, err, &ue)
	assert.Contains(t, ue.Msg, "no model provider is configured")
}

func TestRun_ConfigModelNameOverridesAgent(t *testing.T) {
	agentModel := model.NewMockModel("agent-model", "mock")
	override := model.NewMockModel("override-model", "mock")
	override.EnqueueText("Override wins.")
	provider := stubProvider{models: map[string]model.Model{"override-model": override}}

	a := agent.New("Assistant", func(o *agent.Options) { o.Model = agentModel })

	res, err := New().Run(context.Background(), a, "Hi", func(o *RunOptions) {
		o.Config = &RunConfig{ModelName: "override-model", ModelProvider: provider}
	})
	require.NoError(t, err)

	assert.Equal(t, "Override wins.", res.FinalOutput)
	assert.Empty(t, agentModel.Requests())
}

func TestRun_ConfigModelSettingsOverrideAgent(t *testing.T) {
	m := model.NewMockModel("mock-model", "mock")
	m.EnqueueText("Hi.")
	a := agent.New("Assistant", func(o *agent.Options) {
		o.Model = m
		o.ModelSettings = model.Settings{Temperature: model.Float(0.9), TopP: model.Float(0.5)}
	})

	_, err := New().Run(context.Background(), a, "Hi", func(o *RunOptions) {
		o.Config = &RunConfig{ModelSettings: &model.Settings{Temperature: model.Float(0.1)}}
	})
	require.NoError(t, err)

	req := m.LastRequest()
	require.NotNil(t, req)
	require.NotNil(t, req.Settings.Temperature)
	assert.InDelta(t, 0.1, *req.Settings.Temperature, 1e-9)
	// Fields the override leaves unset keep the agent's values.
	require.NotNil(t, req.Settings.TopP)
	assert.InDelta(t, 0.5, *req.Settings.TopP, 1e-9)
}

func TestRun_MaxHistoryItemsTrimsRequest(t *testing.T) {
	ctx := context.Background()
	sess := session.NewInMemorySession("sess-1")
	require.NoError(t, sess.AddItems(ctx,
		core.NewUserItem("one"),
		core.NewItem("Assistant", core.NewAssistantContent("two")),
		core.NewUserItem("three"),
		core.NewItem("Assistant", core.NewAssistantContent("four")),
	))

	m := model.NewMockModel("mock-model", "mock")
	m.EnqueueText("Trimmed.")
	a := agent.New("Assistant", func(o *agent.Options) { o.Model = m })

	r := New(func(o *Options) { o.MaxHistoryItems = 2 })
	_, err := r.Run(ctx, a, "five", func(o *RunOptions) { o.Session = sess })
	require.NoError(t, err)

	req := m.LastRequest()
	require.NotNil(t, req)
	require.Len(t, req.Contents, 2)
	assert.Equal(t, "four", req.Contents[0].Text())
	assert.Equal(t, "five", req.Contents[1].Text())
}

func TestRun_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := model.NewMockModel("mock-model", "mock")
	m.EnqueueText("Never delivered.")
	a := agent.New("Assistant", func(o *agent.Options) { o.Model = m })

	_, err := New().Run(ctx, a, "Hi")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_UserDataReachesTools(t *testing.T) {
	m := model.NewMockModel("mock-model", "mock")
	m.EnqueueFunctionCalls(core.FunctionCall{ID: "call_1", Name: "whoami", Arguments: `{}`})
	m.EnqueueText("You are user-42.")

	whoami := tool.NewFunctionTool("whoami", "Report the user.",
		map[string]any{"type": "object"},
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			return toolCtx.UserData(), nil
		})

	a := agent.New("Assistant", func(o *agent.Options) {
		o.Model = m
		o.Tools = []tool.Tool{whoami}
	})

	res, err := New().Run(context.Background(), a, "Who am I?", func(o *RunOptions) {
		o.UserData = "user-42"
	})
	require.NoError(t, err)

	frs := res.NewItems[1].Content.FunctionResponses()
	require.Len(t, frs, 1)
	assert.Equal(t, "user-42", frs[0].Response)
}

func TestNew_Defaults(t *testing.T) {
	r := New()
	assert.Equal(t, DefaultMaxTurns, r.opts.MaxTurns)
	assert.NotNil(t, r.opts.Logger)

	r = New(func(o *Options) {
		o.MaxTurns = -1
		o.Logger = nil
		o.EventBufferSize = 0
	})
	assert.Equal(t, DefaultMaxTurns, r.opts.MaxTurns)
	assert.NotNil(t, r.opts.Logger)
	assert.Positive(t, r.opts.EventBufferSize)
}
