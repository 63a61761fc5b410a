package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/agentkit-go/agentkit/core"
)

// MockModel is a lightweight in-memory Model useful for tests & examples.
// Responses can be scripted in call order (Enqueue and friends) or keyed by
// prompt text (AddResponse); scripted responses take precedence. Every
// received Request is recorded for later inspection.
type MockModel struct {
	mu        sync.Mutex
	info      Info
	responses map[string]string
	script    []Response
	requests  []Request
	err       error
}

// NewMockModel constructs a MockModel with basic tool support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info: Info{
			Name:          name,
			Provider:      provider,
			SupportsTools: true,
		},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// Enqueue appends a scripted response consumed by the next Generate call.
func (m *MockModel) Enqueue(resp Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, resp)
}

// EnqueueText scripts a plain assistant text completion.
func (m *MockModel) EnqueueText(text string) {
	m.Enqueue(Response{
		Content:      core.NewAssistantContent(text),
		FinishReason: "stop",
	})
}

// EnqueueFunctionCalls scripts an assistant turn consisting of the given
// function calls.
func (m *MockModel) EnqueueFunctionCalls(calls ...core.FunctionCall) {
	parts := make([]core.Part, 0, len(calls))
	for _, fc := range calls {
		parts = append(parts, core.FunctionCallPart{FunctionCall: fc})
	}
	m.Enqueue(Response{
		Content:      core.Content{Role: core.RoleAssistant, Parts: parts},
		FinishReason: "tool_calls",
	})
}

// FailWith makes the next Generate call fail with err instead of producing a
// response.
func (m *MockModel) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Requests returns a copy of all requests received so far.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// LastRequest returns the most recent request, or nil before the first call.
func (m *MockModel) LastRequest() *Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	req := m.requests[len(m.requests)-1]
	return &req
}

// defaultMockUsage keeps usage aggregation observable in tests without
// scripting explicit token counts.
var defaultMockUsage = TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}

// Generate implements Model; emits optional streaming text chunks then the
// final response.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	m.mu.Lock()
	m.requests = append(m.requests, req)
	failErr := m.err
	m.err = nil
	var scripted *Response
	if failErr == nil && len(m.script) > 0 {
		r := m.script[0]
		m.script = m.script[1:]
		scripted = &r
	}
	m.mu.Unlock()

	go func() {
		defer close(respCh)
		defer close(errCh)

		if failErr != nil {
			errCh <- failErr
			return
		}

		final := m.buildFinal(scripted, req)
		if req.Stream {
			for _, r := range final.Content.Text() {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{
					Partial: true,
					Content: core.Content{
						Role:  core.RoleAssistant,
						Parts: []core.Part{core.TextPart{Text: string(r)}},
					},
				}:
				}
			}
		}

		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case respCh <- final:
		}
	}()
	return respCh, errCh
}

func (m *MockModel) buildFinal(scripted *Response, req Request) Response {
	if scripted != nil {
		final := *scripted
		if final.ID == "" {
			final.ID = core.NewID()
		}
		if final.Usage == nil {
			u := defaultMockUsage
			final.Usage = &u
		}
		return final
	}

	var inputText string
	if len(req.Contents) > 0 {
		inputText = req.Contents[len(req.Contents)-1].Text()
	}

	m.mu.Lock()
	full := m.responses[inputText]
	m.mu.Unlock()
	if full == "" {
		full = fmt.Sprintf("Mock response to: %s", inputText)
	}

	u := defaultMockUsage
	return Response{
		ID:           core.NewID(),
		Content:      core.NewAssistantContent(full),
		FinishReason: "stop",
		Usage:        &u,
	}
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
