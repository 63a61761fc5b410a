package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/agentkit-go/agentkit/agent"
	"github.com/agentkit-go/agentkit/core"
	"github.com/agentkit-go/agentkit/model"
	"github.com/agentkit-go/agentkit/tool"
)

// runState carries the mutable state of one run through its turns.
type runState struct {
	runner *Runner
	opts   RunOptions
	config RunConfig
	rc     *core.RunContext
	tracer trace.Tracer
	emit   func(StreamEvent) // nil for blocking runs

	current *agent.Agent
	input   string

	// working is the model-visible conversation: session history, the input
	// item, then everything generated so far. Handoff input filters rewrite
	// it without touching newItems.
	working []core.Item

	// newItems accumulates items generated by this run, reported on the
	// Result and persisted to the session.
	newItems  []core.Item
	inputItem core.Item

	// lastToolChoice is the effective tool choice of the latest request;
	// toolChoiceCleared forces subsequent requests back to auto after a
	// forced tool call executed.
	lastToolChoice    model.ToolChoice
	toolChoiceCleared bool

	inputGuardrailResults  []GuardrailResult
	outputGuardrailResults []GuardrailResult
}

// handoffCall pairs a model function call with the handoff it names.
type handoffCall struct {
	call    core.FunctionCall
	handoff *agent.Handoff
}

// run is the single implementation behind Run and RunStreamed.
func (r *Runner) run(ctx context.Context, startAgent *agent.Agent, input string, opts RunOptions, emit func(StreamEvent)) (*Result, error) {
	if startAgent == nil {
		return nil, &UserError{Msg: "agent must not be nil"}
	}

	cfg := RunConfig{}
	if opts.Config != nil {
		cfg = *opts.Config
	}

	rc := core.NewRunContext(ctx, core.NewID())
	rc.UserData = opts.UserData
	rc.Logger = r.opts.Logger
	if opts.Session != nil {
		rc.SessionID = opts.Session.SessionID()
	}

	tracer := r.tracer(cfg)
	runCtx, runSpan := tracer.Start(ctx, spanRun, trace.WithAttributes(
		attribute.String("agentkit.workflow", cfg.workflowName()),
		attribute.String("agentkit.agent", startAgent.Name()),
		attribute.String("agentkit.run_id", rc.RunID),
	))
	defer runSpan.End()
	rc.Context = runCtx

	s := &runState{
		runner:  r,
		opts:    opts,
		config:  cfg,
		rc:      rc,
		tracer:  tracer,
		emit:    emit,
		current: startAgent,
		input:   input,
	}

	res, err := s.loop()
	if err != nil {
		runSpan.RecordError(err)
		runSpan.SetStatus(codes.Error, err.Error())
		rc.Logger.Error("run.failed",
			"run_id", rc.RunID,
			"agent", s.current.Name(),
			"error", err.Error(),
		)
		return nil, err
	}
	return res, nil
}

// loop drives turns until a final output, an error or the turn budget.
func (s *runState) loop() (*Result, error) {
	rc := s.rc

	maxTurns := s.opts.MaxTurns
	if maxTurns <= 0 {
		maxTurns = s.runner.opts.MaxTurns
	}

	if s.opts.Session != nil {
		history, err := s.opts.Session.GetItems(rc.Context, 0)
		if err != nil {
			return nil, fmt.Errorf("load session history: %w", err)
		}
		s.working = history
	}

	s.inputItem = core.NewUserItem(s.input)
	s.working = append(s.working, s.inputItem)

	rc.Logger.Info("run.start",
		"run_id", rc.RunID,
		"agent", s.current.Name(),
		"session_id", rc.SessionID,
		"max_turns", maxTurns,
	)

	if err := s.fireAgentStart(s.current); err != nil {
		return nil, err
	}

	for turn := 1; ; turn++ {
		if turn > maxTurns {
			return nil, &MaxTurnsExceededError{MaxTurns: maxTurns}
		}

		resp, toolReg, handoffReg, err := s.executeTurn(turn)
		if err != nil {
			return nil, err
		}

		assistantItem := core.NewItem(s.current.Name(), resp.Content)
		s.working = append(s.working, assistantItem)
		s.newItems = append(s.newItems, assistantItem)

		calls := resp.Content.FunctionCalls()
		if len(calls) == 0 || resp.Content.Text() != "" {
			s.emitEvent(RunItemEvent{Name: EventMessageOutputCreated, Item: assistantItem})
		}

		// No function calls: the message is the final output.
		if len(calls) == 0 {
			return s.finishFromText(resp.Content.Text())
		}

		var handoffs []handoffCall
		var execs []toolExecution
		for _, fc := range calls {
			if h, ok := handoffReg[fc.Name]; ok {
				s.emitEvent(RunItemEvent{Name: EventHandoffRequested, Item: assistantItem})
				handoffs = append(handoffs, handoffCall{call: fc, handoff: h})
				continue
			}
			s.emitEvent(RunItemEvent{Name: EventToolCalled, Item: assistantItem})
			execs = append(execs, toolExecution{call: fc, impl: toolReg[fc.Name]})
		}

		outcomes, err := s.executeTools(execs)
		if err != nil {
			return nil, err
		}

		var promoted *toolOutcome
		behavior := s.current.ToolUseBehavior()
		for i := range outcomes {
			oc := &outcomes[i]
			fr := core.FunctionResponse{ID: oc.execution.call.ID, Name: oc.execution.call.Name}
			if oc.err != nil {
				fr.Error = oc.err.Error()
			} else {
				fr.Response = oc.result
			}
			item := core.NewItem(s.current.Name(), core.NewToolContent(fr))
			s.working = append(s.working, item)
			s.newItems = append(s.newItems, item)
			s.emitEvent(RunItemEvent{Name: EventToolOutput, Item: item})

			if promoted == nil && oc.err == nil && behavior.ShouldStop(oc.execution.call.Name) {
				promoted = oc
			}
		}

		// ToolUseBehavior may promote a tool result to the final output,
		// skipping the closing model turn and output-type parsing.
		if promoted != nil {
			rc.Logger.Info("run.tool_output_promoted",
				"run_id", rc.RunID,
				"agent", s.current.Name(),
				"tool", promoted.execution.call.Name,
			)
			return s.finish(promoted.result)
		}

		// A forced tool choice resets to auto once the forced call ran, so
		// the next turn does not re-invoke the same tool forever.
		if s.lastToolChoice.Forces() && len(outcomes) > 0 && s.current.ResetToolChoice() {
			s.toolChoiceCleared = true
		}

		if len(handoffs) > 0 {
			if err := s.performHandoff(handoffs); err != nil {
				return nil, err
			}
		}
	}
}

// executeTurn resolves the model, assembles the request and performs one
// generation, racing input guardrails on the first turn.
func (s *runState) executeTurn(turn int) (*model.Response, map[string]tool.Tool, map[string]*agent.Handoff, error) {
	rc := s.rc

	m, err := s.resolveModel(s.current)
	if err != nil {
		return nil, nil, nil, err
	}

	req, toolReg, handoffReg, err := s.buildRequest(m.Info().Name)
	if err != nil {
		return nil, nil, nil, err
	}

	turnCtx, span := s.tracer.Start(rc.Context, spanTurn, trace.WithAttributes(
		attribute.Int("agentkit.turn", turn),
		attribute.String("agentkit.agent", s.current.Name()),
		attribute.String("agentkit.model", m.Info().Name),
	))
	defer span.End()

	rc.Logger.Debug("run.turn",
		"run_id", rc.RunID,
		"turn", turn,
		"agent", s.current.Name(),
		"model", m.Info().Name,
		"tools", len(req.Tools),
	)

	var resp *model.Response
	if turn == 1 {
		resp, err = s.callModelWithInputGuardrails(turnCtx, m, req)
	} else {
		resp, err = s.callModel(turnCtx, m, req)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, nil, err
	}

	return resp, toolReg, handoffReg, nil
}

// buildRequest assembles the model request for the current agent: resolved
// instructions, trimmed conversation, tool and handoff declarations and the
// effective settings.
func (s *runState) buildRequest(modelName string) (model.Request, map[string]tool.Tool, map[string]*agent.Handoff, error) {
	a := s.current

	instructions, err := a.Instructions().Resolve(s.rc, a)
	if err != nil {
		return model.Request{}, nil, nil, fmt.Errorf("resolve instructions for agent %q: %w", a.Name(), err)
	}

	toolReg := make(map[string]tool.Tool, len(a.Tools()))
	defs := make([]model.ToolDefinition, 0, len(a.Tools())+len(a.Handoffs()))
	for _, t := range a.Tools() {
		name := t.Name()
		if _, exists := toolReg[name]; exists {
			return model.Request{}, nil, nil, &UserError{Msg: fmt.Sprintf("agent %q declares tool %q twice", a.Name(), name)}
		}
		toolReg[name] = t
		defs = append(defs, model.ToolDefinition{
			Name:        name,
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}

	handoffReg := make(map[string]*agent.Handoff)
	for _, h := range a.Handoffs() {
		if !h.Enabled() {
			continue
		}
		name := h.ToolName()
		_, dupTool := toolReg[name]
		_, dupHandoff := handoffReg[name]
		if dupTool || dupHandoff {
			return model.Request{}, nil, nil, &UserError{Msg: fmt.Sprintf("agent %q declares tool %q twice", a.Name(), name)}
		}
		handoffReg[name] = h
		defs = append(defs, h.ToolDefinition())
	}

	settings := a.ModelSettings().Resolve(s.config.ModelSettings)
	if s.toolChoiceCleared && settings.ToolChoice.Forces() {
		settings.ToolChoice = model.ToolChoiceAuto
	}
	s.lastToolChoice = settings.ToolChoice

	req := model.Request{
		Instructions: instructions,
		Contents:     s.requestContents(modelName),
		Settings:     settings,
		Stream:       s.emit != nil,
	}
	if len(defs) > 0 {
		req.Tools = defs
	}
	if ot := a.OutputType(); ot != nil {
		schema := ot.Schema()
		req.OutputSchema = &schema
	}

	return req, toolReg, handoffReg, nil
}

// requestContents projects the working conversation into request contents,
// applying the runner's history limits to the request only.
func (s *runState) requestContents(modelName string) []core.Content {
	items := s.working
	if max := s.runner.opts.MaxHistoryItems; max > 0 && len(items) > max {
		items = items[len(items)-max:]
	}
	if budget := s.runner.opts.MaxHistoryTokens; budget > 0 {
		items = trimToTokenBudget(items, budget, modelName)
	}

	contents := make([]core.Content, 0, len(items))
	for _, it := range items {
		contents = append(contents, it.Content)
	}
	return contents
}

// resolveModel picks the model for an agent: run config model, run config
// model name via provider, agent model, agent model name via provider.
func (s *runState) resolveModel(a *agent.Agent) (model.Model, error) {
	cfg := s.config
	if cfg.Model != nil {
		return cfg.Model, nil
	}
	if cfg.ModelName != "" {
		if cfg.ModelProvider == nil {
			return nil, &UserError{Msg: fmt.Sprintf("run config names model %q but carries no model provider", cfg.ModelName)}
		}
		m, err := cfg.ModelProvider.Get(cfg.ModelName)
		if err != nil {
			return nil, fmt.Errorf("resolve model %q: %w", cfg.ModelName, err)
		}
		return m, nil
	}
	if m := a.Model(); m != nil {
		return m, nil
	}
	if name := a.ModelName(); name != "" {
		if cfg.ModelProvider == nil {
			return nil, &UserError{Msg: fmt.Sprintf("agent %q names model %q but no model provider is configured", a.Name(), name)}
		}
		m, err := cfg.ModelProvider.Get(name)
		if err != nil {
			return nil, fmt.Errorf("resolve model %q: %w", name, err)
		}
		return m, nil
	}
	return nil, &UserError{Msg: fmt.Sprintf("no model configured for agent %q", a.Name())}
}

// callModel drives one generation to completion and returns the final
// response. Partial responses stream out as raw response events. Both model
// channels are drained so the producer can always finish.
func (s *runState) callModel(ctx context.Context, m model.Model, req model.Request) (*model.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	respCh, errCh := m.Generate(ctx, req)

	var final *model.Response
	var genErr error
	for respCh != nil || errCh != nil {
		select {
		case resp, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			if genErr != nil {
				continue
			}
			if resp.Partial {
				if delta := resp.Content.Text(); delta != "" {
					s.emitEvent(RawResponseEvent{Delta: delta})
				}
				continue
			}
			r := resp
			final = &r
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil && genErr == nil {
				genErr = err
			}
		}
	}

	if genErr != nil {
		return nil, fmt.Errorf("model generate: %w", genErr)
	}
	if final == nil {
		return nil, &ModelBehaviorError{Reason: "model closed the stream without a final response"}
	}

	if final.Usage != nil {
		s.rc.Usage.AddRequest(final.Usage.PromptTokens, final.Usage.CompletionTokens, final.Usage.TotalTokens)
	} else {
		s.rc.Usage.AddRequest(0, 0, 0)
	}

	return final, nil
}

// callModelWithInputGuardrails races the first model call against the run's
// input guardrails. A tripwire cancels the in-flight generation and aborts
// the run before its response is consumed.
func (s *runState) callModelWithInputGuardrails(ctx context.Context, m model.Model, req model.Request) (*model.Response, error) {
	guardrails := make([]agent.InputGuardrail, 0, len(s.current.InputGuardrails())+len(s.config.InputGuardrails))
	guardrails = append(guardrails, s.current.InputGuardrails()...)
	guardrails = append(guardrails, s.config.InputGuardrails...)

	if len(guardrails) == 0 {
		return s.callModel(ctx, m, req)
	}

	g, gctx := errgroup.WithContext(ctx)

	grc := *s.rc
	grc.Context = gctx

	results := make([]GuardrailResult, len(guardrails))
	ran := make([]bool, len(guardrails))

	for i, ig := range guardrails {
		i, ig := i, ig
		g.Go(func() error {
			out, err := ig.Run(&grc, s.current, s.input)
			if err != nil {
				return fmt.Errorf("input guardrail %q: %w", ig.Name, err)
			}
			results[i] = GuardrailResult{Name: ig.Name, Output: out}
			ran[i] = true
			if out.TripwireTriggered {
				return &InputGuardrailTripwireError{Guardrail: ig.Name, Output: out}
			}
			return nil
		})
	}

	var resp *model.Response
	g.Go(func() error {
		r, err := s.callModel(gctx, m, req)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})

	err := g.Wait()
	for i := range results {
		if ran[i] {
			s.inputGuardrailResults = append(s.inputGuardrailResults, results[i])
		}
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// runOutputGuardrails validates the final output with the last agent's and
// the run config's output guardrails in parallel. The first tripwire wins.
func (s *runState) runOutputGuardrails(output any) error {
	guardrails := make([]agent.OutputGuardrail, 0, len(s.current.OutputGuardrails())+len(s.config.OutputGuardrails))
	guardrails = append(guardrails, s.current.OutputGuardrails()...)
	guardrails = append(guardrails, s.config.OutputGuardrails...)

	if len(guardrails) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(s.rc.Context)

	grc := *s.rc
	grc.Context = gctx

	results := make([]GuardrailResult, len(guardrails))
	ran := make([]bool, len(guardrails))

	for i, og := range guardrails {
		i, og := i, og
		g.Go(func() error {
			out, err := og.Run(&grc, s.current, output)
			if err != nil {
				return fmt.Errorf("output guardrail %q: %w", og.Name, err)
			}
			results[i] = GuardrailResult{Name: og.Name, Output: out}
			ran[i] = true
			if out.TripwireTriggered {
				return &OutputGuardrailTripwireError{Guardrail: og.Name, Output: out}
			}
			return nil
		})
	}

	err := g.Wait()
	for i := range results {
		if ran[i] {
			s.outputGuardrailResults = append(s.outputGuardrailResults, results[i])
		}
	}
	return err
}

// finishFromText concludes the run from a final assistant message. An agent
// with a declared output type must produce a conforming JSON document; a
// message that does not parse stops the run instead of degrading to text.
func (s *runState) finishFromText(text string) (*Result, error) {
	var output any = text
	if ot := s.current.OutputType(); ot != nil {
		v, err := ot.Parse([]byte(text))
		if err != nil {
			return nil, &ModelBehaviorError{
				Reason: fmt.Sprintf("final output does not conform to the %s schema: %v", ot.Name(), err),
			}
		}
		output = v
	}
	return s.finish(output)
}

// finish concludes the run: output guardrails, end hooks, session
// persistence, result assembly.
func (s *runState) finish(output any) (*Result, error) {
	rc := s.rc

	if err := s.runOutputGuardrails(output); err != nil {
		return nil, err
	}
	if err := s.fireAgentEnd(s.current, output); err != nil {
		return nil, err
	}

	if s.opts.Session != nil {
		items := make([]core.Item, 0, len(s.newItems)+1)
		items = append(items, s.inputItem)
		items = append(items, s.newItems...)
		if err := s.opts.Session.AddItems(rc.Context, items...); err != nil {
			return nil, fmt.Errorf("persist session items: %w", err)
		}
	}

	usage := rc.Usage.Snapshot()

	rc.Logger.Info("run.complete",
		"run_id", rc.RunID,
		"agent", s.current.Name(),
		"new_items", len(s.newItems),
		"requests", usage.Requests,
		"total_tokens", usage.TotalTokens,
	)

	return &Result{
		Input:                  s.input,
		NewItems:               s.newItems,
		FinalOutput:            output,
		LastAgent:              s.current,
		Usage:                  usage,
		InputGuardrailResults:  s.inputGuardrailResults,
		OutputGuardrailResults: s.outputGuardrailResults,
		inputItem:              s.inputItem,
	}, nil
}

// performHandoff transfers control to the first requested handoff target.
// Extra handoff calls from the same turn are answered with rejections so the
// model sees a response for every call it made.
func (s *runState) performHandoff(calls []handoffCall) error {
	rc := s.rc

	for _, extra := range calls[1:] {
		fr := core.FunctionResponse{
			ID:       extra.call.ID,
			Name:     extra.call.Name,
			Response: "Multiple handoffs detected, ignoring this one.",
		}
		item := core.NewItem(s.current.Name(), core.NewToolContent(fr))
		s.working = append(s.working, item)
		s.newItems = append(s.newItems, item)
		s.emitEvent(RunItemEvent{Name: EventToolOutput, Item: item})
	}

	winner := calls[0]
	target := winner.handoff.Agent()

	transfer, _ := json.Marshal(map[string]string{"assistant": target.Name()})
	fr := core.FunctionResponse{
		ID:       winner.call.ID,
		Name:     winner.call.Name,
		Response: string(transfer),
	}
	item := core.NewItem(s.current.Name(), core.NewToolContent(fr))
	s.working = append(s.working, item)
	s.newItems = append(s.newItems, item)
	s.emitEvent(RunItemEvent{Name: EventHandoffOccurred, Item: item})

	if cb := winner.handoff.OnHandoff(); cb != nil {
		if err := cb(rc); err != nil {
			return fmt.Errorf("handoff callback for agent %q: %w", target.Name(), err)
		}
	}
	if err := s.fireHandoff(s.current, target); err != nil {
		return err
	}

	filter := winner.handoff.InputFilter()
	if filter == nil {
		filter = s.config.HandoffInputFilter
	}
	if filter != nil {
		data := filter(agent.HandoffInputData{History: slices.Clone(s.working)})
		s.working = data.History
	}

	rc.Logger.Info("run.handoff",
		"run_id", rc.RunID,
		"from", s.current.Name(),
		"to", target.Name(),
	)

	s.current = target
	s.toolChoiceCleared = false
	s.emitEvent(AgentUpdatedEvent{Agent: target})

	return s.fireAgentStart(target)
}

func (s *runState) emitEvent(ev StreamEvent) {
	if s.emit != nil {
		s.emit(ev)
	}
}

func (s *runState) fireAgentStart(a *agent.Agent) error {
	if s.opts.Hooks != nil {
		if err := s.opts.Hooks.OnAgentStart(s.rc, a); err != nil {
			return fmt.Errorf("run hook OnAgentStart: %w", err)
		}
	}
	if h := a.Hooks(); h != nil {
		if err := h.OnStart(s.rc, a); err != nil {
			return fmt.Errorf("agent %q hook OnStart: %w", a.Name(), err)
		}
	}
	return nil
}

func (s *runState) fireAgentEnd(a *agent.Agent, output any) error {
	if s.opts.Hooks != nil {
		if err := s.opts.Hooks.OnAgentEnd(s.rc, a, output); err != nil {
			return fmt.Errorf("run hook OnAgentEnd: %w", err)
		}
	}
	if h := a.Hooks(); h != nil {
		if err := h.OnEnd(s.rc, a, output); err != nil {
			return fmt.Errorf("agent %q hook OnEnd: %w", a.Name(), err)
		}
	}
	return nil
}

func (s *runState) fireHandoff(from, to *agent.Agent) error {
	if s.opts.Hooks != nil {
		if err := s.opts.Hooks.OnHandoff(s.rc, from, to); err != nil {
			return fmt.Errorf("run hook OnHandoff: %w", err)
		}
	}
	if h := to.Hooks(); h != nil {
		if err := h.OnHandoff(s.rc, to, from); err != nil {
			return fmt.Errorf("agent %q hook OnHandoff: %w", to.Name(), err)
		}
	}
	return nil
}

func (s *runState) fireToolStart(a *agent.Agent, t tool.Tool) error {
	if s.opts.Hooks != nil {
		if err := s.opts.Hooks.OnToolStart(s.rc, a, t); err != nil {
			return fmt.Errorf("run hook OnToolStart: %w", err)
		}
	}
	if h := a.Hooks(); h != nil {
		if err := h.OnToolStart(s.rc, a, t); err != nil {
			return fmt.Errorf("agent %q hook OnToolStart: %w", a.Name(), err)
		}
	}
	return nil
}

func (s *runState) fireToolEnd(a *agent.Agent, t tool.Tool, result any) error {
	if s.opts.Hooks != nil {
		if err := s.opts.Hooks.OnToolEnd(s.rc, a, t, result); err != nil {
			return fmt.Errorf("run hook OnToolEnd: %w", err)
		}
	}
	if h := a.Hooks(); h != nil {
		if err := h.OnToolEnd(s.rc, a, t, result); err != nil {
			return fmt.Errorf("agent %q hook OnToolEnd: %w", a.Name(), err)
		}
	}
	return nil
}
