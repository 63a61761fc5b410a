package runner

import (
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/agentkit-go/agentkit/core"
	"github.com/agentkit-go/agentkit/tool"
)

// toolExecution pairs a model function call with the tool serving it. impl
// is nil when the model named a tool the agent does not have; the execution
// then fails with a not-found response instead of aborting the run.
type toolExecution struct {
	call core.FunctionCall
	impl tool.Tool
}

// toolOutcome is the result of one tool execution. err covers argument
// parsing failures, tool errors and recovered panics; it is reported back to
// the model as a failed function response, not to the caller.
type toolOutcome struct {
	execution toolExecution
	result    any
	err       error
}

// executeTools runs a turn's tool calls, bounded by MaxParallelTools, and
// returns the outcomes in call order. Tool failures land in the outcomes;
// the returned error is reserved for aborts (hook failures).
func (s *runState) executeTools(execs []toolExecution) ([]toolOutcome, error) {
	n := len(execs)
	if n == 0 {
		return nil, nil
	}

	// Fast path: single call, execute inline.
	if n == 1 {
		oc, err := s.executeTool(execs[0])
		if err != nil {
			return nil, err
		}
		return []toolOutcome{oc}, nil
	}

	maxPar := s.runner.opts.MaxParallelTools
	if maxPar <= 0 || maxPar > n {
		maxPar = n
	}

	outcomes := make([]toolOutcome, n)
	abortErrs := make([]error, n)
	sem := make(chan struct{}, maxPar)

	var wg sync.WaitGroup

	batchStart := time.Now()
	for i := range execs {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, ex toolExecution) {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[idx], abortErrs[idx] = s.executeTool(ex)
		}(i, execs[i])
	}
	wg.Wait()

	for _, err := range abortErrs {
		if err != nil {
			return nil, err
		}
	}

	s.rc.Logger.Debug("run.tools.batch",
		"run_id", s.rc.RunID,
		"agent", s.current.Name(),
		"count", n,
		"parallelism", maxPar,
		"duration_ms", time.Since(batchStart).Milliseconds(),
	)

	return outcomes, nil
}

// executeTool runs one tool call with panic recovery. The returned error
// aborts the run (hook failure); tool failures are carried in the outcome so
// the model can read them and correct itself.
func (s *runState) executeTool(ex toolExecution) (toolOutcome, error) {
	rc := s.rc
	a := s.current
	oc := toolOutcome{execution: ex}

	if err := rc.Context.Err(); err != nil {
		oc.err = err
		return oc, nil
	}

	if ex.impl == nil {
		oc.err = fmt.Errorf("tool %q not found on agent %q", ex.call.Name, a.Name())
		rc.Logger.Warn("run.tool.unknown", "run_id", rc.RunID, "agent", a.Name(), "tool", ex.call.Name)
		return oc, nil
	}

	_, span := s.tracer.Start(rc.Context, spanTool, trace.WithAttributes(
		attribute.String("agentkit.tool", ex.call.Name),
		attribute.String("agentkit.agent", a.Name()),
	))
	defer span.End()

	if err := s.fireToolStart(a, ex.impl); err != nil {
		return oc, err
	}

	toolCtx := core.NewToolContext(rc, a.Name(), ex.call.ID)
	start := time.Now()

	func() { // panic safety
		defer func() {
			if r := recover(); r != nil {
				oc.err = fmt.Errorf("tool %s panicked: %v", ex.call.Name, r)
				rc.Logger.Error("run.tool.panic",
					"run_id", rc.RunID,
					"agent", a.Name(),
					"tool", ex.call.Name,
					"recover", r,
					"stack", string(debug.Stack()),
				)
			}
		}()

		args, err := decodeArguments(ex.call.Arguments)
		if err != nil {
			oc.err = err
			return
		}
		oc.result, oc.err = ex.impl.Call(toolCtx, args)
	}()

	rc.Logger.Info("run.tool.executed",
		"run_id", rc.RunID,
		"agent", a.Name(),
		"tool", ex.call.Name,
		"duration_ms", time.Since(start).Milliseconds(),
		"error", oc.err != nil,
	)

	if oc.err != nil {
		span.RecordError(oc.err)
		span.SetStatus(codes.Error, oc.err.Error())
		return oc, nil
	}

	if err := s.fireToolEnd(a, ex.impl, oc.result); err != nil {
		return oc, err
	}

	return oc, nil
}

// decodeArguments parses the model supplied JSON argument payload. An empty
// or null payload is a call with no arguments.
func decodeArguments(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("unmarshal arguments: %w", err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}
