package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agentkit-go/agentkit/core"
)

const defaultRedisPrefix = "agentkit:session"

// RedisOptions configures a RedisSession.
type RedisOptions struct {
	// Prefix namespaces the session list key, default "agentkit:session".
	Prefix string

	// TTL expires idle sessions. The clock restarts on every write; zero
	// keeps sessions forever.
	TTL time.Duration
}

// RedisSession persists session items in a Redis list under
// <prefix>:<session_id>. Items append with RPUSH and pop with RPOP, so the
// list order is the conversation order.
type RedisSession struct {
	sessionID string
	client    *redis.Client
	prefix    string
	ttl       time.Duration
}

// NewRedisSession wraps an existing Redis client. The caller keeps ownership
// of the client.
func NewRedisSession(sessionID string, client *redis.Client, optFns ...func(o *RedisOptions)) *RedisSession {
	opts := RedisOptions{Prefix: defaultRedisPrefix}
	for _, fn := range optFns {
		fn(&opts)
	}
	if sessionID == "" {
		sessionID = core.NewID()
	}
	return &RedisSession{
		sessionID: sessionID,
		client:    client,
		prefix:    opts.Prefix,
		ttl:       opts.TTL,
	}
}

func (s *RedisSession) key() string {
	return s.prefix + ":" + s.sessionID
}

// SessionID implements Session.
func (s *RedisSession) SessionID() string { return s.sessionID }

// GetItems implements Session.
func (s *RedisSession) GetItems(ctx context.Context, limit int) ([]core.Item, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}

	vals, err := s.client.LRange(ctx, s.key(), start, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("range session items: %w", err)
	}

	items := make([]core.Item, 0, len(vals))
	for _, v := range vals {
		var item core.Item
		if err := json.Unmarshal([]byte(v), &item); err != nil {
			return nil, fmt.Errorf("decode session item: %w", err)
		}
		items = append(items, item)
	}
	return items, nil
}

// AddItems implements Session.
func (s *RedisSession) AddItems(ctx context.Context, items ...core.Item) error {
	if len(items) == 0 {
		return nil
	}

	vals := make([]any, 0, len(items))
	for _, item := range items {
		payload, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("encode session item: %w", err)
		}
		vals = append(vals, payload)
	}

	if err := s.client.RPush(ctx, s.key(), vals...).Err(); err != nil {
		return fmt.Errorf("append session items: %w", err)
	}
	if s.ttl > 0 {
		if err := s.client.Expire(ctx, s.key(), s.ttl).Err(); err != nil {
			return fmt.Errorf("refresh session ttl: %w", err)
		}
	}
	return nil
}

// PopItem implements Session.
func (s *RedisSession) PopItem(ctx context.Context) (*core.Item, error) {
	val, err := s.client.RPop(ctx, s.key()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("pop session item: %w", err)
	}

	var item core.Item
	if err := json.Unmarshal(val, &item); err != nil {
		return nil, fmt.Errorf("decode session item: %w", err)
	}
	return &item, nil
}

// Clear implements Session.
func (s *RedisSession) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key()).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

var _ Session = (*RedisSession)(nil)
