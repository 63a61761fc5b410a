package runner

import (
	"fmt"

	"github.com/agentkit-go/agentkit/agent"
	"github.com/agentkit-go/agentkit/core"
	"github.com/agentkit-go/agentkit/internal/util"
	"github.com/agentkit-go/agentkit/tool"
)

// AgentToolOptions configures an agent exposed as a callable tool.
type AgentToolOptions struct {
	// MaxTurns caps the nested run. Zero uses the runner's default.
	MaxTurns int

	// Runner executes the nested run. Defaults to a runner with default
	// options.
	Runner *Runner

	// Config is the run configuration for the nested run. The wrapped agent
	// must be able to resolve a model from it or from its own options.
	Config *RunConfig
}

// AgentTool wraps an agent as a tool so another agent can invoke it without
// handing the conversation over. The orchestrating agent keeps control: the
// wrapped agent sees only the forwarded input, and its final output text
// comes back as the tool result.
//
// An empty name defaults to the snake_cased agent name, an empty description
// to the agent's description. The nested run's token usage is merged into
// the calling run.
func AgentTool(a *agent.Agent, name, description string, optFns ...func(o *AgentToolOptions)) tool.Tool {
	opts := AgentToolOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Runner == nil {
		opts.Runner = New()
	}
	if name == "" {
		name = util.SnakeCase(a.Name())
	}
	if description == "" {
		description = a.Description()
	}
	return &agentTool{agent: a, name: name, description: description, opts: opts}
}

type agentTool struct {
	agent       *agent.Agent
	name        string
	description string
	opts        AgentToolOptions
}

var _ tool.Tool = (*agentTool)(nil)

func (t *agentTool) Name() string { return t.name }

func (t *agentTool) Description() string { return t.description }

func (t *agentTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"input": map[string]any{
				"type":        "string",
				"description": "The request to forward to the agent.",
			},
		},
		"required":             []string{"input"},
		"additionalProperties": false,
	}
}

func (t *agentTool) Call(toolCtx *core.ToolContext, args map[string]any) (any, error) {
	input, _ := args["input"].(string)

	res, err := t.opts.Runner.Run(toolCtx.Context(), t.agent, input, func(o *RunOptions) {
		o.UserData = toolCtx.UserData()
		o.MaxTurns = t.opts.MaxTurns
		o.Config = t.opts.Config
	})
	if err != nil {
		return nil, fmt.Errorf("agent %q run: %w", t.agent.Name(), err)
	}

	toolCtx.RunContext().Usage.Merge(res.Usage)

	return res.FinalOutputText(), nil
}
