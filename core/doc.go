// Package core provides the foundational domain types shared by every layer
// of agentkit. It defines:
//
//   - Content and Parts (role-based conversation segments, including
//     function calls and function responses)
//   - Items (persisted conversation entries with provenance metadata)
//   - Usage accounting (per-run token aggregation)
//   - RunContext / ToolContext (scoped state handed to instructions
//     providers, guardrails, hooks and tools)
//
// The package intentionally keeps implementation concerns (model providers,
// persistence, the run loop) out of scope so that higher layers can depend
// on it without cycles.
package core
