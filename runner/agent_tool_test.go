package runner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentkit-go/agentkit/agent"
	"github.com/agentkit-go/agentkit/core"
	"github.com/agentkit-go/agentkit/model"
	"github.com/agentkit-go/agentkit/tool"
)

func TestAgentTool_Defaults(t *testing.T) {
	sub := agent.New("Research Agent", func(o *agent.Options) {
		o.Description = "Digs up facts."
	})

	at := AgentTool(sub, "", "")
	assert.Equal(t, "research_agent", at.Name())
	assert.Equal(t, "Digs up facts.", at.Description())

	params := at.Parameters()
	assert.Equal(t, "object", params["type"])
	props, ok := params["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "input")
}

func TestAgentTool_Call(t *testing.T) {
	m := model.NewMockModel("mock-model", "mock")
	m.EnqueueText("42")
	sub := agent.New("Calculator", func(o *agent.Options) { o.Model = m })

	rc := core.NewRunContext(context.Background(), core.NewID())
	toolCtx := core.NewToolContext(rc, "Orchestrator", "call_1")

	at := AgentTool(sub, "ask_calculator", "Ask the calculator.")
	out, err := at.Call(toolCtx, map[string]any{"input": "what is 6*7?"})
	require.NoError(t, err)
	assert.Equal(t, "42", out)

	// The nested run's usage rolls up into the calling run.
	assert.Equal(t, int64(1), rc.Usage.Snapshot().Requests)

	// The wrapped agent saw the forwarded input, not the outer conversation.
	req := m.LastRequest()
	require.NotNil(t, req)
	require.Len(t, req.Contents, 1)
	assert.Equal(t, "what is 6*7?", req.Contents[0].Text())
}

func TestAgentTool_RunError(t *testing.T) {
	sub := agent.New("Broken") // no model configured

	rc := core.NewRunContext(context.Background(), core.NewID())
	toolCtx := core.NewToolContext(rc, "Orchestrator", "call_1")

	at := AgentTool(sub, "ask_broken", "")
	_, err := at.Call(toolCtx, map[string]any{"input": "hi"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), `agent "Broken" run`)
}

func TestAgentTool_Orchestration(t *testing.T) {
	subModel := model.NewMockModel("mock-model", "mock")
	subModel.EnqueueText("Paris")
	sub := agent.New("Geography Agent", func(o *agent.Options) { o.Model = subModel })

	orchModel := model.NewMockModel("mock-model", "mock")
	orchModel.EnqueueFunctionCalls(core.FunctionCall{
		ID:        "call_1",
		Name:      "geography_agent",
		Arguments: `{"input":"capital of France?"}`,
	})
	orchModel.EnqueueText("The capital of France is Paris.")
	orch := agent.New("Orchestrator", func(o *agent.Options) {
		o.Model = orchModel
		o.Tools = []tool.Tool{AgentTool(sub, "", "")}
	})

	res, err := New().Run(context.Background(), orch, "capital of France?")
	require.NoError(t, err)

	assert.Equal(t, "The capital of France is Paris.", res.FinalOutput)
	assert.Same(t, orch, res.LastAgent)

	frs := res.NewItems[1].Content.FunctionResponses()
	require.Len(t, frs, 1)
	assert.Equal(t, "Paris", frs[0].Response)

	// Two orchestrator requests plus one nested request.
	assert.Equal(t, int64(3), res.Usage.Requests)
}

func TestAgentTool_MaxTurnsOption(t *testing.T) {
	m := model.NewMockModel("mock-model", "mock")
	m.EnqueueFunctionCalls(core.FunctionCall{ID: "call_1", Name: "get_weather", Arguments: `{"city":"Tokyo"}`})
	sub := agent.New("Looper", func(o *agent.Options) {
		o.Model = m
		o.Tools = []tool.Tool{weatherTool()}
	})

	rc := core.NewRunContext(context.Background(), core.NewID())
	toolCtx := core.NewToolContext(rc, "Orchestrator", "call_1")

	at := AgentTool(sub, "looper", "", func(o *AgentToolOptions) {
		o.MaxTurns = 1
	})
	_, err := at.Call(toolCtx, map[string]any{"input": "go"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "max turns (1) exceeded")
}
