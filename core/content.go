package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Conversation roles used by Content.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Part represents a polymorphic segment of role-based content. Concrete part
// types implement the unexported isPart marker enabling a closed set.
type Part interface{ isPart() }

// TextPart is a plain text content segment.
type TextPart struct {
	Text     string         // Plain UTF-8 text
	Metadata map[string]any // Optional producer-provided metadata
}

// isPart implements the Part interface for TextPart.
func (TextPart) isPart() {}

// FunctionCall describes a tool/function invocation request.
type FunctionCall struct {
	ID        string `json:"id,omitempty"`        // Stable call id assigned by the model or runner
	Name      string `json:"name"`                // Tool / function name
	Arguments string `json:"arguments,omitempty"` // Serialized argument payload (JSON)
}

// FunctionCallPart wraps a FunctionCall as a content part.
type FunctionCallPart struct {
	FunctionCall FunctionCall
	Metadata     map[string]any
}

// isPart implements the Part interface for FunctionCallPart.
func (FunctionCallPart) isPart() {}

// FunctionResponse describes the outcome of a function call.
type FunctionResponse struct {
	ID       string `json:"id,omitempty"`       // Matches originating FunctionCall ID
	Name     string `json:"name"`               // Function name
	Response any    `json:"response,omitempty"` // Successful result (any JSON-marshalable shape)
	Error    string `json:"error,omitempty"`    // Populated on failure
}

// Text renders the response as the string a model should see: the error
// message on failure, the string itself for string results, JSON otherwise.
func (fr FunctionResponse) Text() string {
	if fr.Error != "" {
		return fr.Error
	}
	switch v := fr.Response.(type) {
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

// FunctionResponsePart wraps a FunctionResponse as a content part.
type FunctionResponsePart struct {
	FunctionResponse FunctionResponse
	Metadata         map[string]any
}

// isPart implements the Part interface for FunctionResponsePart.
func (FunctionResponsePart) isPart() {}

// Content holds role + ordered parts. Content values round-trip through JSON
// so sessions can persist them; see MarshalJSON / UnmarshalJSON.
type Content struct {
	Role  string // Conversation role (user, assistant, tool, system)
	Parts []Part // Ordered heterogeneous parts
}

// NewUserContent builds user-role content with a single text part.
func NewUserContent(text string) Content {
	return Content{Role: RoleUser, Parts: []Part{TextPart{Text: text}}}
}

// NewAssistantContent builds assistant-role content with a single text part.
func NewAssistantContent(text string) Content {
	return Content{Role: RoleAssistant, Parts: []Part{TextPart{Text: text}}}
}

// NewToolContent builds tool-role content from one or more function responses.
func NewToolContent(responses ...FunctionResponse) Content {
	parts := make([]Part, 0, len(responses))
	for _, fr := range responses {
		parts = append(parts, FunctionResponsePart{FunctionResponse: fr})
	}
	return Content{Role: RoleTool, Parts: parts}
}

// Text concatenates all text parts preserving their original order.
func (c Content) Text() string {
	var sb strings.Builder
	for _, p := range c.Parts {
		if tp, ok := p.(TextPart); ok {
			sb.WriteString(tp.Text)
		}
	}
	return sb.String()
}

// FunctionCalls returns any FunctionCall parts preserving their original order.
func (c Content) FunctionCalls() []FunctionCall {
	var calls []FunctionCall
	for _, p := range c.Parts {
		if fc, ok := p.(FunctionCallPart); ok {
			calls = append(calls, fc.FunctionCall)
		}
	}
	return calls
}

// FunctionResponses returns any FunctionResponse parts preserving their
// original order.
func (c Content) FunctionResponses() []FunctionResponse {
	var responses []FunctionResponse
	for _, p := range c.Parts {
		if fr, ok := p.(FunctionResponsePart); ok {
			responses = append(responses, fr.FunctionResponse)
		}
	}
	return responses
}

// Part type discriminators used in the JSON envelope.
const (
	partTypeText             = "text"
	partTypeFunctionCall     = "function_call"
	partTypeFunctionResponse = "function_response"
)

// partEnvelope is the wire form of a Part. A single flat struct keeps the
// stored payload stable across part kinds; Type selects which fields apply.
type partEnvelope struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Arguments string          `json:"arguments,omitempty"`
	Response  json.RawMessage `json:"response,omitempty"`
	Error     string          `json:"error,omitempty"`
	Metadata  map[string]any  `json:"metadata,omitempty"`
}

func encodePart(p Part) (partEnvelope, error) {
	switch v := p.(type) {
	case TextPart:
		return partEnvelope{Type: partTypeText, Text: v.Text, Metadata: v.Metadata}, nil
	case FunctionCallPart:
		return partEnvelope{
			Type:      partTypeFunctionCall,
			ID:        v.FunctionCall.ID,
			Name:      v.FunctionCall.Name,
			Arguments: v.FunctionCall.Arguments,
			Metadata:  v.Metadata,
		}, nil
	case FunctionResponsePart:
		env := partEnvelope{
			Type:     partTypeFunctionResponse,
			ID:       v.FunctionResponse.ID,
			Name:     v.FunctionResponse.Name,
			Error:    v.FunctionResponse.Error,
			Metadata: v.Metadata,
		}
		if v.FunctionResponse.Response != nil {
			raw, err := json.Marshal(v.FunctionResponse.Response)
			if err != nil {
				return partEnvelope{}, fmt.Errorf("marshal function response: %w", err)
			}
			env.Response = raw
		}
		return env, nil
	default:
		return partEnvelope{}, fmt.Errorf("unsupported part type %T", p)
	}
}

func decodePart(env partEnvelope) (Part, error) {
	switch env.Type {
	case partTypeText:
		return TextPart{Text: env.Text, Metadata: env.Metadata}, nil
	case partTypeFunctionCall:
		return FunctionCallPart{
			FunctionCall: FunctionCall{ID: env.ID, Name: env.Name, Arguments: env.Arguments},
			Metadata:     env.Metadata,
		}, nil
	case partTypeFunctionResponse:
		fr := FunctionResponse{ID: env.ID, Name: env.Name, Error: env.Error}
		if len(env.Response) > 0 {
			var resp any
			if err := json.Unmarshal(env.Response, &resp); err != nil {
				return nil, fmt.Errorf("unmarshal function response: %w", err)
			}
			fr.Response = resp
		}
		return FunctionResponsePart{FunctionResponse: fr, Metadata: env.Metadata}, nil
	default:
		return nil, fmt.Errorf("unknown part type %q", env.Type)
	}
}

// MarshalJSON encodes the content as a role plus typed part envelopes.
// FunctionResponse.Response values are stored as raw JSON, so decoding yields
// generic JSON shapes (maps, slices, float64) rather than original Go types.
func (c Content) MarshalJSON() ([]byte, error) {
	envs := make([]partEnvelope, 0, len(c.Parts))
	for _, p := range c.Parts {
		env, err := encodePart(p)
		if err != nil {
			return nil, err
		}
		envs = append(envs, env)
	}
	return json.Marshal(struct {
		Role  string         `json:"role,omitempty"`
		Parts []partEnvelope `json:"parts"`
	}{Role: c.Role, Parts: envs})
}

// UnmarshalJSON decodes content previously encoded by MarshalJSON. Unknown
// part types are rejected so silently corrupted history cannot pass through.
func (c *Content) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role  string         `json:"role"`
		Parts []partEnvelope `json:"parts"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parts := make([]Part, 0, len(raw.Parts))
	for _, env := range raw.Parts {
		p, err := decodePart(env)
		if err != nil {
			return err
		}
		parts = append(parts, p)
	}
	c.Role = raw.Role
	c.Parts = parts
	return nil
}
