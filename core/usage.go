package core

import "sync"

// Usage aggregates model token consumption over a run.
type Usage struct {
	Requests         int64 `json:"requests"`
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// Add folds another aggregate into this one.
func (u *Usage) Add(other Usage) {
	u.Requests += other.Requests
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// UsageTracker accumulates Usage from concurrent producers. Parallel tool
// executions (including nested agent-as-tool runs) report into the same
// tracker as the main loop, so all methods are safe for concurrent use.
type UsageTracker struct {
	mu    sync.Mutex
	usage Usage
}

// NewUsageTracker creates an empty tracker.
func NewUsageTracker() *UsageTracker { return &UsageTracker{} }

// AddRequest records the token counts of one completed model request.
func (t *UsageTracker) AddRequest(prompt, completion, total int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.usage.Requests++
	t.usage.PromptTokens += prompt
	t.usage.CompletionTokens += completion
	t.usage.TotalTokens += total
}

// Merge folds a finished sub-run's aggregate into this tracker.
func (t *UsageTracker) Merge(u Usage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.usage.Add(u)
}

// Snapshot returns a copy of the accumulated totals.
func (t *UsageTracker) Snapshot() Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.usage
}
