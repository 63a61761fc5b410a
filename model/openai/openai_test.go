package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentkit-go/agentkit/core"
	"github.com/agentkit-go/agentkit/model"
)

func testModel() *Model {
	return NewModel(func(o *Options) { o.APIKey = "test-key" })
}

func TestBuildMessages_PairsToolResponsesWithCalls(t *testing.T) {
	req := model.Request{
		Instructions: "You are helpful.",
		Contents: []core.Content{
			core.NewUserContent("What's the weather in Oslo?"),
			{
				Role: core.RoleAssistant,
				Parts: []core.Part{core.FunctionCallPart{FunctionCall: core.FunctionCall{
					ID:        "call_1",
					Name:      "get_weather",
					Arguments: `{"city":"Oslo"}`,
				}}},
			},
			core.NewToolContent(core.FunctionResponse{ID: "call_1", Name: "get_weather", Response: "rainy"}),
		},
	}

	toolResponses, order := collectToolResponses(req)
	messages := buildMessages(req, toolResponses, order)

	require.Len(t, messages, 4)
	assert.Equal(t, "You are helpful.", messages[0].OfSystem.Content.OfString.Value)
	assert.Equal(t, "What's the weather in Oslo?", messages[1].OfUser.Content.OfString.Value)

	require.NotNil(t, messages[2].OfAssistant)
	require.Len(t, messages[2].OfAssistant.ToolCalls, 1)
	assert.Equal(t, "call_1", messages[2].OfAssistant.ToolCalls[0].ID)
	assert.Equal(t, "get_weather", messages[2].OfAssistant.ToolCalls[0].Function.Name)

	require.NotNil(t, messages[3].OfTool)
	assert.Equal(t, "call_1", messages[3].OfTool.ToolCallID)
	assert.Equal(t, "rainy", messages[3].OfTool.Content.OfString.Value)
}

func TestBuildMessages_AppendsOrphanToolResponses(t *testing.T) {
	req := model.Request{
		Contents: []core.Content{
			core.NewUserContent("hi"),
			core.NewToolContent(core.FunctionResponse{ID: "call_x", Name: "noop", Response: "done"}),
		},
	}

	toolResponses, order := collectToolResponses(req)
	messages := buildMessages(req, toolResponses, order)

	require.Len(t, messages, 2)
	require.NotNil(t, messages[1].OfTool)
	assert.Equal(t, "call_x", messages[1].OfTool.ToolCallID)
}

func TestBuildMessages_ToolErrorBecomesContent(t *testing.T) {
	req := model.Request{
		Contents: []core.Content{
			core.NewToolContent(core.FunctionResponse{ID: "call_1", Name: "get_weather", Error: "city not found"}),
		},
	}

	toolResponses, order := collectToolResponses(req)
	messages := buildMessages(req, toolResponses, order)

	require.Len(t, messages, 1)
	assert.Equal(t, "city not found", messages[0].OfTool.Content.OfString.Value)
}

func TestBuildParams_Defaults(t *testing.T) {
	m := testModel()
	params := m.buildParams(model.Request{}, nil)

	assert.Equal(t, "gpt-4o-mini", string(params.Model))
	assert.InDelta(t, 0.7, params.Temperature.Value, 1e-9)
	assert.EqualValues(t, 4096, params.MaxCompletionTokens.Value)
	assert.Empty(t, params.Tools)
}

func TestBuildParams_SettingsOverride(t *testing.T) {
	m := testModel()
	req := model.Request{
		Stream: true,
		Settings: model.Settings{
			Temperature: model.Float(0.1),
			TopP:        model.Float(0.9),
			MaxTokens:   model.Int(256),
		},
	}
	params := m.buildParams(req, nil)

	assert.InDelta(t, 0.1, params.Temperature.Value, 1e-9)
	assert.InDelta(t, 0.9, params.TopP.Value, 1e-9)
	assert.EqualValues(t, 256, params.MaxCompletionTokens.Value)
	assert.True(t, params.StreamOptions.IncludeUsage.Value)
}

func TestBuildParams_Tools(t *testing.T) {
	m := testModel()
	req := model.Request{
		Tools: []model.ToolDefinition{{
			Name:        "get_weather",
			Description: "Look up current weather",
			Parameters:  map[string]any{"type": "object"},
		}},
		Settings: model.Settings{
			ToolChoice:        model.ToolChoiceRequired,
			ParallelToolCalls: model.Bool(false),
		},
	}
	params := m.buildParams(req, nil)

	require.Len(t, params.Tools, 1)
	assert.Equal(t, "get_weather", params.Tools[0].Function.Name)
	assert.Equal(t, "Look up current weather", params.Tools[0].Function.Description.Value)
	assert.Equal(t, "required", params.ToolChoice.OfAuto.Value)
	assert.False(t, params.ParallelToolCalls.Value)
}

func TestToolChoiceParam_NamedTool(t *testing.T) {
	tc := toolChoiceParam(model.ToolChoiceTool("get_weather"))
	require.NotNil(t, tc.OfChatCompletionNamedToolChoice)
	assert.Equal(t, "get_weather", tc.OfChatCompletionNamedToolChoice.Function.Name)
}

func TestToolChoiceParam_Modes(t *testing.T) {
	for _, mode := range []model.ToolChoice{model.ToolChoiceAuto, model.ToolChoiceRequired, model.ToolChoiceNone} {
		tc := toolChoiceParam(mode)
		assert.Equal(t, string(mode), tc.OfAuto.Value)
	}
}

func TestBuildParams_OutputSchema(t *testing.T) {
	m := testModel()
	req := model.Request{
		OutputSchema: &model.OutputSchema{
			Name:        "weather",
			Description: "Structured weather report",
			Schema:      map[string]any{"type": "object"},
			Strict:      true,
		},
	}
	params := m.buildParams(req, nil)

	require.NotNil(t, params.ResponseFormat.OfJSONSchema)
	js := params.ResponseFormat.OfJSONSchema.JSONSchema
	assert.Equal(t, "weather", js.Name)
	assert.Equal(t, "Structured weather report", js.Description.Value)
	assert.True(t, js.Strict.Value)
}

func TestProvider_Get(t *testing.T) {
	p := NewProvider(func(o *ProviderOptions) {
		o.APIKey = "test-key"
		o.BaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	})

	m, err := p.Get("gemini-2.0-flash")
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.0-flash", m.Info().Name)
	assert.Equal(t, "openai", m.Info().Provider)

	_, err = p.Get("")
	assert.Error(t, err)
}

func TestModel_Info(t *testing.T) {
	m := testModel()
	info := m.Info()
	assert.Equal(t, "gpt-4o-mini", info.Name)
	assert.Equal(t, "openai", info.Provider)
	assert.True(t, info.SupportsTools)
}
