// Package agent defines the Agent type and its supporting declarations:
// instructions, handoffs, guardrails, lifecycle hooks and structured output
// types.
//
// An Agent bundles:
//
//  1. Identity and instructions (static text or a dynamic provider)
//  2. Capabilities (tools the model may call, handoffs it may delegate to)
//  3. Safety checks (input/output guardrails with tripwire semantics)
//  4. An output contract (free text, or a strict JSON schema via OutputType)
//
// Design principles:
//   - Agents are plain immutable values; derive variants with Clone
//   - No hidden execution state: running agents is the runner package's job
//   - Dynamic behavior enters through small interfaces (InstructionsProvider, Hooks)
//
// The package intentionally keeps model access, tool execution and session
// persistence in their respective packages to avoid cyclic deps.
package agent
