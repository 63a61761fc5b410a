package session

import (
	"context"

	"github.com/agentkit-go/agentkit/core"
)

// Session stores conversation history for one session id. The runner reads
// the history at the start of a run and appends the items the run produced
// once it completes, so multi-turn conversations keep context without the
// caller replaying messages by hand.
type Session interface {
	// SessionID identifies the conversation thread.
	SessionID() string

	// GetItems returns history in chronological order. A positive limit
	// returns only the latest limit items (still oldest first);
	// limit <= 0 returns everything.
	GetItems(ctx context.Context, limit int) ([]core.Item, error)

	// AddItems appends items to the history.
	AddItems(ctx context.Context, items ...core.Item) error

	// PopItem removes and returns the most recent item, or nil when the
	// session is empty. Useful for undoing the last turn.
	PopItem(ctx context.Context) (*core.Item, error)

	// Clear removes all items for this session.
	Clear(ctx context.Context) error
}
