package runner

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// tracerName identifies this instrumentation scope to the tracer provider.
const tracerName = "github.com/agentkit-go/agentkit/runner"

// Span names emitted by the runner.
const (
	spanRun  = "agentkit.run"
	spanTurn = "agentkit.turn"
	spanTool = "agentkit.tool"
)

// tracer returns the otel tracer for a run, or a no-op tracer when tracing
// is disabled at the runner or run level. The SDK never installs a tracer
// provider itself; spans are recorded only when the application registered
// one globally.
func (r *Runner) tracer(cfg RunConfig) trace.Tracer {
	if r.opts.TracingDisabled || cfg.TracingDisabled {
		return noop.NewTracerProvider().Tracer(tracerName)
	}
	return otel.Tracer(tracerName)
}
