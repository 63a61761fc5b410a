package runner

import (
	"context"

	"github.com/agentkit-go/agentkit/agent"
	"github.com/agentkit-go/agentkit/logging"
)

// DefaultMaxTurns caps model invocations per run unless configured otherwise.
const DefaultMaxTurns = 10

// Options holds configuration overrides passed to New().
type Options struct {
	// Logger receives run diagnostics. Defaults to the package default
	// logger (silent unless the application enabled one).
	Logger logging.Logger

	// MaxTurns caps model invocations per run; individual runs can
	// override it through RunOptions.
	MaxTurns int

	// EventBufferSize sets channel buffering for RunStreamed events.
	EventBufferSize int

	// MaxParallelTools bounds concurrent tool executions within one turn.
	MaxParallelTools int

	// MaxHistoryItems caps how many conversation items a model request
	// carries; older items are dropped from the request, never from the
	// session. 0 means unlimited.
	MaxHistoryItems int

	// MaxHistoryTokens caps the token footprint of a model request's
	// conversation, counted with tiktoken. 0 disables token trimming.
	MaxHistoryTokens int

	// TracingDisabled turns off OpenTelemetry spans for every run.
	TracingDisabled bool
}

// Runner drives agents through the model/tool loop until a final output is
// produced: it resolves models, streams responses, executes tools and
// handoffs, enforces guardrails, and persists session history. A Runner
// holds no per-run state and is safe for concurrent use.
type Runner struct {
	opts Options
}

// New constructs a Runner with optional overrides.
func New(optFns ...func(o *Options)) *Runner {
	opts := Options{
		Logger:           logging.Default(),
		MaxTurns:         DefaultMaxTurns,
		EventBufferSize:  64,
		MaxParallelTools: 4,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = DefaultMaxTurns
	}
	if opts.EventBufferSize <= 0 {
		opts.EventBufferSize = 64
	}

	return &Runner{opts: opts}
}

// Run executes the agent until it produces a final output and returns the
// collected result. Cancel the context to abort the run.
func (r *Runner) Run(ctx context.Context, a *agent.Agent, input string, optFns ...func(o *RunOptions)) (*Result, error) {
	opts := RunOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return r.run(ctx, a, input, opts, nil)
}

// RunStreamed executes the agent asynchronously, emitting events as the run
// progresses. The returned StreamingResult's Events channel closes when the
// run finishes; Result() then reports the outcome.
func (r *Runner) RunStreamed(ctx context.Context, a *agent.Agent, input string, optFns ...func(o *RunOptions)) (*StreamingResult, error) {
	if a == nil {
		return nil, &UserError{Msg: "agent must not be nil"}
	}

	opts := RunOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	sr := newStreamingResult(r.opts.EventBufferSize)

	go func() {
		res, err := r.run(ctx, a, input, opts, func(ev StreamEvent) {
			select {
			case sr.events <- ev:
			case <-ctx.Done():
			}
		})
		sr.finish(res, err)
	}()

	return sr, nil
}
