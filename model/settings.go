package model

// ToolChoice constrains which tool (if any) the model must call on the next
// generation. The zero value leaves the decision to the provider default
// (equivalent to auto). Any value other than the predefined constants names
// one specific tool the model is forced to call.
type ToolChoice string

const (
	// ToolChoiceAuto lets the model decide whether to call a tool.
	ToolChoiceAuto ToolChoice = "auto"
	// ToolChoiceRequired forces the model to call some tool.
	ToolChoiceRequired ToolChoice = "required"
	// ToolChoiceNone forbids tool calls for the next generation.
	ToolChoiceNone ToolChoice = "none"
)

// ToolChoiceTool forces the model to call the named tool.
func ToolChoiceTool(name string) ToolChoice { return ToolChoice(name) }

// IsNamed reports whether the choice forces one specific tool rather than a
// generic mode.
func (tc ToolChoice) IsNamed() bool {
	switch tc {
	case "", ToolChoiceAuto, ToolChoiceRequired, ToolChoiceNone:
		return false
	default:
		return true
	}
}

// Forces reports whether the choice compels the model to produce a tool call
// (required, or a specific named tool). Such settings are subject to the
// runner's reset-to-auto behavior after the forced call executes.
func (tc ToolChoice) Forces() bool {
	return tc == ToolChoiceRequired || tc.IsNamed()
}

// Settings carries provider-agnostic sampling and tool-use parameters.
// Pointer fields distinguish "unset" from explicit zero values so that
// settings can be layered: run-level settings override agent-level ones
// field by field (see Resolve).
type Settings struct {
	Temperature       *float64   `json:"temperature,omitempty"`
	TopP              *float64   `json:"top_p,omitempty"`
	MaxTokens         *int64     `json:"max_tokens,omitempty"`
	ToolChoice        ToolChoice `json:"tool_choice,omitempty"`
	ParallelToolCalls *bool      `json:"parallel_tool_calls,omitempty"`
}

// Resolve layers an override on top of s and returns the effective settings.
// Unset override fields keep the receiver's values.
func (s Settings) Resolve(override *Settings) Settings {
	if override == nil {
		return s
	}
	out := s
	if override.Temperature != nil {
		out.Temperature = override.Temperature
	}
	if override.TopP != nil {
		out.TopP = override.TopP
	}
	if override.MaxTokens != nil {
		out.MaxTokens = override.MaxTokens
	}
	if override.ToolChoice != "" {
		out.ToolChoice = override.ToolChoice
	}
	if override.ParallelToolCalls != nil {
		out.ParallelToolCalls = override.ParallelToolCalls
	}
	return out
}

// Float returns a pointer to v for use in Settings literals.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v for use in Settings literals.
func Int(v int64) *int64 { return &v }

// Bool returns a pointer to v for use in Settings literals.
func Bool(v bool) *bool { return &v }
