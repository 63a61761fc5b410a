package core

import (
	"time"

	"github.com/google/uuid"
)

// AuthorUser is the Author value for items originating from the caller
// rather than from an agent.
const AuthorUser = "user"

// Item is a single conversation entry: a user message, an assistant message
// or a tool result, together with provenance metadata. Items are what
// sessions persist and what finished runs report back. After creation an
// item should be treated as immutable.
type Item struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"` // Agent name, or AuthorUser
	CreatedAt time.Time `json:"created_at"`
	Content   Content   `json:"content"`
}

// NewItem creates an item authored by 'author' with a fresh id and UTC
// timestamp.
func NewItem(author string, content Content) Item {
	return Item{
		ID:        NewID(),
		Author:    author,
		CreatedAt: time.Now().UTC(),
		Content:   content,
	}
}

// NewUserItem is a convenience wrapper for a user-authored text message.
func NewUserItem(text string) Item {
	return NewItem(AuthorUser, NewUserContent(text))
}

// Text concatenates the item's text parts.
func (i Item) Text() string { return i.Content.Text() }

// FunctionCalls returns any function call parts contained in the item.
func (i Item) FunctionCalls() []FunctionCall { return i.Content.FunctionCalls() }

// FunctionResponses returns any function response parts contained in the item.
func (i Item) FunctionResponses() []FunctionResponse { return i.Content.FunctionResponses() }

// NewID generates a unique identifier used for items, runs and function
// calls throughout the SDK.
func NewID() string { return uuid.NewString() }
