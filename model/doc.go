// Package model defines the provider-agnostic abstractions and concrete
// helpers for interacting with language models inside agentkit.
//
// Core goals:
//   - Unify streaming + non-streaming generation behind a single interface
//   - Normalize tool exposure (ToolDefinition), tool-choice forcing
//     (ToolChoice) and structured output (OutputSchema)
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate lightweight scripting for tests (MockModel)
//
// Providers (e.g. OpenAI, Anthropic) implement the Model interface from this
// package so higher layers (agents, the runner) remain decoupled from vendor
// SDKs.
package model
