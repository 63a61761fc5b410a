// Package agentkit builds multi-agent LLM workflows: it wires agents
// (instructions, tools, handoffs, guardrails) to chat model providers and
// drives the tool-calling loop for you. Most applications:
//
//  1. Declare tools (tool.NewTypedTool) and agents (agent.New)
//  2. Pick a provider model (model/openai, model/anthropic) or any
//     OpenAI-compatible endpoint via the openai adapter's BaseURL
//  3. Execute with Run or RunStreamed, or with a dedicated runner.Runner
//
// A minimal agent:
//
//	m := openai.NewModel(func(o *openai.Options) { o.Model = "gpt-4o-mini" })
//	a := agent.New("Assistant", func(o *agent.Options) {
//		o.Instructions = agent.NewInstructionsFromText("You are a helpful assistant.")
//		o.Model = m
//	})
//
//	res, err := agentkit.Run(ctx, a, "Write a haiku about recursion.")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(res.FinalOutputText())
//
// Run and RunStreamed share a process-wide default runner. Swap it with
// SetDefault to change turn budgets, logging or tracing globally, or build a
// runner.New for one workflow.
package agentkit

import (
	"context"
	"sync"

	"github.com/agentkit-go/agentkit/agent"
	"github.com/agentkit-go/agentkit/runner"
)

var (
	defaultMu     sync.RWMutex
	defaultRunner = runner.New()
)

// Default returns the process-wide runner used by Run and RunStreamed.
func Default() *runner.Runner {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultRunner
}

// SetDefault replaces the process-wide runner. Nil is ignored.
func SetDefault(r *runner.Runner) {
	if r == nil {
		return
	}
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultRunner = r
}

// Run executes the agent with the default runner and blocks until the run
// produces a final output or fails. See runner.Runner.Run.
func Run(ctx context.Context, a *agent.Agent, input string, optFns ...func(o *runner.RunOptions)) (*runner.Result, error) {
	return Default().Run(ctx, a, input, optFns...)
}

// RunStreamed executes the agent with the default runner and returns a
// StreamingResult that emits events while the run progresses. See
// runner.Runner.RunStreamed.
func RunStreamed(ctx context.Context, a *agent.Agent, input string, optFns ...func(o *runner.RunOptions)) (*runner.StreamingResult, error) {
	return Default().RunStreamed(ctx, a, input, optFns...)
}
