// Package runner executes agents: it drives the turn loop that calls the
// model, executes requested tools, follows handoffs and produces the final
// output.
//
// A Runner is a stateless executor. Run blocks until the run completes;
// RunStreamed returns a StreamingResult whose event channel carries raw
// model deltas and item-level progress while the run executes in the
// background. Both share one loop:
//
//  1. Load session history (when a session is attached)
//  2. Call the model with instructions, conversation and tool declarations
//  3. Execute requested tool calls (bounded parallelism, panic isolation)
//  4. Feed tool results back, or transfer control on a handoff
//  5. Finish when the model answers without tool calls, validating output
//     types and output guardrails
//
// Design principles:
//   - The Runner holds no per-run state; cancel runs through the context
//   - Tool failures become function responses the model can react to; only
//     guardrail tripwires, turn budgets, transport and schema errors abort
//   - Input guardrails race the first model call and cancel it on a tripwire
//
// Runs are traced with OpenTelemetry spans (run, turn, tool) and logged
// through the logging package.
package runner
