package runner

import (
	"github.com/agentkit-go/agentkit/agent"
	"github.com/agentkit-go/agentkit/core"
)

// Names carried by RunItemEvent.
const (
	EventMessageOutputCreated = "message_output_created"
	EventToolCalled           = "tool_called"
	EventToolOutput           = "tool_output"
	EventHandoffRequested     = "handoff_requested"
	EventHandoffOccurred      = "handoff_occurred"
)

// StreamEvent is one observation from a streamed run. The set of
// implementations is closed: RawResponseEvent, RunItemEvent and
// AgentUpdatedEvent.
type StreamEvent interface{ isStreamEvent() }

// RawResponseEvent carries one raw text delta from the model stream. This is
// the event to watch for token-by-token output:
//
//	for ev := range stream.Events() {
//	    if raw, ok := ev.(runner.RawResponseEvent); ok {
//	        fmt.Print(raw.Delta)
//	    }
//	}
type RawResponseEvent struct {
	Delta string
}

func (RawResponseEvent) isStreamEvent() {}

// RunItemEvent reports that the run appended a conversation item: an
// assistant message, a requested tool call, a tool output or a handoff.
type RunItemEvent struct {
	// Name classifies the item; see the Event constants.
	Name string

	// Item is the conversation item the event refers to.
	Item core.Item
}

func (RunItemEvent) isStreamEvent() {}

// AgentUpdatedEvent reports that a handoff switched the active agent.
type AgentUpdatedEvent struct {
	Agent *agent.Agent
}

func (AgentUpdatedEvent) isStreamEvent() {}

// StreamingResult exposes a running invocation as an event stream plus a
// blocking accessor for the final outcome.
type StreamingResult struct {
	events chan StreamEvent
	done   chan struct{}

	result *Result
	err    error
}

func newStreamingResult(buffer int) *StreamingResult {
	return &StreamingResult{
		events: make(chan StreamEvent, buffer),
		done:   make(chan struct{}),
	}
}

// Events returns the stream of run events. The channel closes when the run
// finishes; call Result afterwards for the outcome.
func (s *StreamingResult) Events() <-chan StreamEvent { return s.events }

// Result blocks until the run completes and returns its outcome. The error
// is the same terminal error a blocking Run would have returned.
func (s *StreamingResult) Result() (*Result, error) {
	<-s.done
	return s.result, s.err
}

// finish records the outcome and releases both channels. Called exactly once,
// after the final event was sent.
func (s *StreamingResult) finish(res *Result, err error) {
	s.result = res
	s.err = err
	close(s.events)
	close(s.done)
}
