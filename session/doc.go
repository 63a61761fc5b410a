// Package session defines the Session history protocol and its concrete
// backends. A Session gives an agent conversational memory: the runner loads
// prior items before each run and appends the new ones afterwards, keyed by
// a caller-chosen session id.
//
// Three backends ship out of the box:
//
//   - InMemorySession: process local, for tests and demos
//   - PostgresSession: durable JSONB rows via pgx
//   - RedisSession: Redis lists with optional idle TTL
//
// All backends implement the same five operations (GetItems, AddItems,
// PopItem, Clear, SessionID), so swapping storage is a wiring change only.
package session
