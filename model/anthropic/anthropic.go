// Package anthropic provides a model wrapper for the Anthropic Claude
// Messages API, including streaming and tool use. Structured output is
// emulated through a system prompt since the API has no response_format.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/agentkit-go/agentkit/core"
	"github.com/agentkit-go/agentkit/model"
)

// aggCall collects streamed tool_use input fragments per content block index.
type aggCall struct{ id, name, args string }

// Options configures the Anthropic model adapter (model id, temperature,
// max tokens, API key). Per-request model.Settings override the defaults.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

func applyOptions(optFns []func(o *Options)) Options {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}

// Model wraps the Anthropic Messages API behind the generic model.Model interface.
type Model struct {
	client *anthropic.Client
	opts   Options
}

// NewModel creates a new Anthropic model using the official client.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := applyOptions(optFns)

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Model{client: &client, opts: opts}
}

// NewModelFromClient creates a new Anthropic model from an existing client.
func NewModelFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Model {
	return &Model{client: client, opts: applyOptions(optFns)}
}

// Generate implements unified streaming / non-streaming generation.
// It adapts the Anthropic Messages API (with tool use) into model.Response events.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		params := m.buildParams(req)
		if req.Stream {
			m.handleStreaming(ctx, params, out, errCh)
			return
		}
		m.handleNonStreaming(ctx, params, out, errCh)
	}()

	return out, errCh
}

// buildParams assembles the Messages API request: system blocks, message
// history, tools, tool choice and sampling settings.
func (m *Model) buildParams(req model.Request) anthropic.MessageNewParams {
	s := req.Settings

	params := anthropic.MessageNewParams{
		Model:       m.opts.Model,
		Messages:    buildMessages(req.Contents),
		MaxTokens:   m.opts.MaxTokens,
		Temperature: anthropic.Float(m.opts.Temperature),
	}
	if s.Temperature != nil {
		params.Temperature = anthropic.Float(*s.Temperature)
	}
	if s.TopP != nil {
		params.TopP = anthropic.Float(*s.TopP)
	}
	if s.MaxTokens != nil {
		params.MaxTokens = *s.MaxTokens
	}

	if blocks := systemBlocks(req); len(blocks) > 0 {
		params.System = blocks
	}

	if len(req.Tools) > 0 {
		params.Tools = buildTools(req.Tools)
		if s.ToolChoice != "" {
			params.ToolChoice = toolChoiceParam(s.ToolChoice, s.ParallelToolCalls)
		}
	}

	return params
}

// systemBlocks merges the request instructions, any system-role contents and
// the structured output directive into the system prompt.
func systemBlocks(req model.Request) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam
	if req.Instructions != "" {
		blocks = append(blocks, anthropic.TextBlockParam{Text: req.Instructions})
	}
	for _, c := range req.Contents {
		if c.Role != core.RoleSystem {
			continue
		}
		if text := c.Text(); text != "" {
			blocks = append(blocks, anthropic.TextBlockParam{Text: text})
		}
	}
	if req.OutputSchema != nil {
		if schemaJSON, err := json.Marshal(req.OutputSchema.Schema); err == nil {
			blocks = append(blocks, anthropic.TextBlockParam{
				Text: "Respond only with a single JSON object conforming to this JSON schema, with no surrounding text or code fences:\n" + string(schemaJSON),
			})
		}
	}
	return blocks
}

// buildMessages converts normalized contents into Anthropic messages. Tool
// results must arrive in user-role messages, so tool contents map to user
// messages holding tool_result blocks in conversation order.
func buildMessages(contents []core.Content) []anthropic.MessageParam {
	var messages []anthropic.MessageParam

	for _, c := range contents {
		switch c.Role {
		case core.RoleSystem:
			continue // merged into params.System
		case core.RoleAssistant:
			if blocks := assistantBlocks(c.Parts); len(blocks) > 0 {
				messages = append(messages, anthropic.NewAssistantMessage(blocks...))
			}
		case core.RoleTool:
			var blocks []anthropic.ContentBlockParamUnion
			for _, fr := range c.FunctionResponses() {
				blocks = append(blocks, anthropic.NewToolResultBlock(fr.ID, fr.Text(), fr.Error != ""))
			}
			if len(blocks) > 0 {
				messages = append(messages, anthropic.NewUserMessage(blocks...))
			}
		default: // user and unknown roles
			if blocks := textBlocks(c.Parts); len(blocks) > 0 {
				messages = append(messages, anthropic.NewUserMessage(blocks...))
			}
		}
	}

	return messages
}

func textBlocks(parts []core.Part) []anthropic.ContentBlockParamUnion {
	var blocks []anthropic.ContentBlockParamUnion
	for _, p := range parts {
		if tp, ok := p.(core.TextPart); ok && tp.Text != "" {
			blocks = append(blocks, anthropic.NewTextBlock(tp.Text))
		}
	}
	return blocks
}

func assistantBlocks(parts []core.Part) []anthropic.ContentBlockParamUnion {
	var blocks []anthropic.ContentBlockParamUnion
	for _, p := range parts {
		switch part := p.(type) {
		case core.TextPart:
			if part.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(part.Text))
			}
		case core.FunctionCallPart:
			var input any
			if part.FunctionCall.Arguments != "" {
				if err := json.Unmarshal([]byte(part.FunctionCall.Arguments), &input); err != nil {
					input = part.FunctionCall.Arguments // fallback to raw string
				}
			}
			blocks = append(blocks, anthropic.NewToolUseBlock(
				part.FunctionCall.ID,
				input,
				part.FunctionCall.Name,
			))
		}
	}
	return blocks
}

// buildTools converts tool definitions to the Anthropic tool format.
func buildTools(tools []model.ToolDefinition) []anthropic.ToolUnionParam {
	anthropicTools := make([]anthropic.ToolUnionParam, len(tools))

	for i, tdef := range tools {
		inputSchema := anthropic.ToolInputSchemaParam{
			Type: constant.Object("object"),
		}
		if tdef.Parameters != nil {
			if properties, exists := tdef.Parameters["properties"]; exists {
				inputSchema.Properties = properties
			}
			if required, exists := tdef.Parameters["required"]; exists {
				inputSchema.Required = requiredStrings(required)
			}
		}

		tu := anthropic.ToolUnionParamOfTool(inputSchema, tdef.Name)
		if tdef.Description != "" && tu.OfTool != nil {
			tu.OfTool.Description = anthropic.String(tdef.Description)
		}
		anthropicTools[i] = tu
	}

	return anthropicTools
}

// requiredStrings normalizes a schema required list, which is []string when
// hand-written and []any after a JSON round trip.
func requiredStrings(required any) []string {
	switch vals := required.(type) {
	case []string:
		return vals
	case []any:
		var out []string
		for _, v := range vals {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// toolChoiceParam maps the portable ToolChoice onto the Anthropic union.
// ParallelToolCalls maps to DisableParallelToolUse where the mode allows it.
func toolChoiceParam(tc model.ToolChoice, parallel *bool) anthropic.ToolChoiceUnionParam {
	switch {
	case tc.IsNamed():
		p := &anthropic.ToolChoiceToolParam{Name: string(tc)}
		if parallel != nil {
			p.DisableParallelToolUse = anthropic.Bool(!*parallel)
		}
		return anthropic.ToolChoiceUnionParam{OfTool: p}
	case tc == model.ToolChoiceRequired:
		p := &anthropic.ToolChoiceAnyParam{}
		if parallel != nil {
			p.DisableParallelToolUse = anthropic.Bool(!*parallel)
		}
		return anthropic.ToolChoiceUnionParam{OfAny: p}
	case tc == model.ToolChoiceNone:
		return anthropic.ToolChoiceUnionParam{OfNone: &anthropic.ToolChoiceNoneParam{}}
	default:
		p := &anthropic.ToolChoiceAutoParam{}
		if parallel != nil {
			p.DisableParallelToolUse = anthropic.Bool(!*parallel)
		}
		return anthropic.ToolChoiceUnionParam{OfAuto: p}
	}
}

// handleStreaming forwards partial deltas while accumulating the complete
// message, which is emitted once the stream drains.
func (m *Model) handleStreaming(
	ctx context.Context,
	params anthropic.MessageNewParams,
	out chan<- model.Response,
	errCh chan<- error,
) {
	stream := m.client.Messages.NewStreaming(ctx, params)

	message := anthropic.Message{}
	toolAgg := map[int64]*aggCall{}

	for stream.Next() {
		event := stream.Current()
		if err := message.Accumulate(event); err != nil {
			errCh <- fmt.Errorf("anthropic accumulate error: %w", err)
			return
		}

		switch ev := event.AsAny().(type) {
		case anthropic.ContentBlockStartEvent:
			if ev.ContentBlock.Type == "tool_use" {
				toolAgg[ev.Index] = &aggCall{id: ev.ContentBlock.ID, name: ev.ContentBlock.Name}
			}
		case anthropic.ContentBlockDeltaEvent:
			switch delta := ev.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if delta.Text == "" {
					continue
				}
				out <- model.Response{
					Partial: true,
					Content: core.Content{
						Role:  core.RoleAssistant,
						Parts: []core.Part{core.TextPart{Text: delta.Text}},
					},
				}
			case anthropic.InputJSONDelta:
				ac, ok := toolAgg[ev.Index]
				if !ok || delta.PartialJSON == "" {
					continue
				}
				ac.args += delta.PartialJSON
				out <- model.Response{
					Partial: true,
					Content: core.Content{
						Role: core.RoleAssistant,
						Parts: []core.Part{core.FunctionCallPart{FunctionCall: core.FunctionCall{
							ID:        ac.id,
							Name:      ac.name,
							Arguments: ac.args,
						}}},
					},
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		errCh <- fmt.Errorf("anthropic streaming error: %w", err)
		return
	}

	out <- messageToResponse(&message)
}

// handleNonStreaming processes a normal (non-streaming) completion.
func (m *Model) handleNonStreaming(
	ctx context.Context,
	params anthropic.MessageNewParams,
	out chan<- model.Response,
	errCh chan<- error,
) {
	resp, err := m.client.Messages.New(ctx, params)
	if err != nil {
		errCh <- fmt.Errorf("anthropic api error: %w", err)
		return
	}
	out <- messageToResponse(resp)
}

// messageToResponse converts a complete API message (accumulated or direct)
// into the final model.Response.
func messageToResponse(msg *anthropic.Message) model.Response {
	var parts []core.Part
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			textBlock := block.AsText()
			if textBlock.Text != "" {
				parts = append(parts, core.TextPart{Text: textBlock.Text})
			}
		case "tool_use":
			toolBlock := block.AsToolUse()
			args := ""
			if toolBlock.JSON.Input.Valid() {
				args = toolBlock.JSON.Input.Raw()
			}
			parts = append(parts, core.FunctionCallPart{
				FunctionCall: core.FunctionCall{
					ID:        toolBlock.ID,
					Name:      toolBlock.Name,
					Arguments: args,
				},
			})
		}
	}

	finishReason := "stop"
	if msg.StopReason != "" {
		finishReason = string(msg.StopReason)
	}

	return model.Response{
		ID:           msg.ID,
		Partial:      false,
		Content:      core.Content{Role: core.RoleAssistant, Parts: parts},
		FinishReason: finishReason,
		Usage: &model.TokenUsage{
			PromptTokens:     msg.Usage.InputTokens,
			CompletionTokens: msg.Usage.OutputTokens,
			TotalTokens:      msg.Usage.InputTokens + msg.Usage.OutputTokens,
		},
	}
}

// Info returns metadata describing this Anthropic model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          string(m.opts.Model),
		Provider:      "anthropic",
		SupportsTools: true,
	}
}

var _ model.Model = (*Model)(nil)
