package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentkit-go/agentkit/core"
)

const defaultPostgresTable = "conversation_turns"

var identPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresOptions configures a PostgresSession.
type PostgresOptions struct {
	// TableName overrides the default "conversation_turns" table.
	TableName string
}

// PostgresSession persists session items in a PostgreSQL table:
//
//	CREATE TABLE IF NOT EXISTS conversation_turns (
//	    session_id TEXT NOT NULL,
//	    idx        BIGSERIAL,
//	    payload    JSONB NOT NULL,
//	    PRIMARY KEY (session_id, idx)
//	);
//
// Multiple sessions share one table, keyed by session_id. The schema is
// created on construction if missing.
type PostgresSession struct {
	sessionID string
	pool      *pgxpool.Pool
	table     string
	ownsPool  bool
}

// NewPostgresSession connects to the given DSN and ensures the backing
// table exists. Close releases the connection pool.
func NewPostgresSession(ctx context.Context, sessionID, dsn string, optFns ...func(o *PostgresOptions)) (*PostgresSession, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	s, err := NewPostgresSessionFromPool(ctx, sessionID, pool, optFns...)
	if err != nil {
		pool.Close()
		return nil, err
	}
	s.ownsPool = true
	return s, nil
}

// NewPostgresSessionFromPool uses an existing pool, ensuring the backing
// table exists. The caller keeps ownership of the pool; Close is a no-op.
func NewPostgresSessionFromPool(ctx context.Context, sessionID string, pool *pgxpool.Pool, optFns ...func(o *PostgresOptions)) (*PostgresSession, error) {
	opts := PostgresOptions{TableName: defaultPostgresTable}
	for _, fn := range optFns {
		fn(&opts)
	}
	if !identPattern.MatchString(opts.TableName) {
		return nil, fmt.Errorf("invalid table name %q", opts.TableName)
	}

	s := &PostgresSession{sessionID: sessionID, pool: pool, table: opts.TableName}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure session schema: %w", err)
	}
	return s, nil
}

func (s *PostgresSession) ensureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    session_id TEXT NOT NULL,
    idx        BIGSERIAL,
    payload    JSONB NOT NULL,
    PRIMARY KEY (session_id, idx)
)`, s.table)
	_, err := s.pool.Exec(ctx, ddl)
	return err
}

// SessionID implements Session.
func (s *PostgresSession) SessionID() string { return s.sessionID }

// GetItems implements Session.
func (s *PostgresSession) GetItems(ctx context.Context, limit int) ([]core.Item, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if limit > 0 {
		// Latest n rows, re-sorted into chronological order.
		sql := fmt.Sprintf(`SELECT payload FROM (
    SELECT payload, idx FROM %s WHERE session_id = $1 ORDER BY idx DESC LIMIT $2
) latest ORDER BY idx ASC`, s.table)
		rows, err = s.pool.Query(ctx, sql, s.sessionID, limit)
	} else {
		sql := fmt.Sprintf("SELECT payload FROM %s WHERE session_id = $1 ORDER BY idx ASC", s.table)
		rows, err = s.pool.Query(ctx, sql, s.sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("query session items: %w", err)
	}
	defer rows.Close()

	var items []core.Item
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan session item: %w", err)
		}
		var item core.Item
		if err := json.Unmarshal(payload, &item); err != nil {
			return nil, fmt.Errorf("decode session item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// AddItems implements Session.
func (s *PostgresSession) AddItems(ctx context.Context, items ...core.Item) error {
	if len(items) == 0 {
		return nil
	}

	sql := fmt.Sprintf("INSERT INTO %s (session_id, payload) VALUES ($1, $2)", s.table)
	batch := &pgx.Batch{}
	for _, item := range items {
		payload, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("encode session item: %w", err)
		}
		batch.Queue(sql, s.sessionID, payload)
	}

	results := s.pool.SendBatch(ctx, batch)
	var execErr error
	for range items {
		if _, err := results.Exec(); err != nil && execErr == nil {
			execErr = fmt.Errorf("insert session item: %w", err)
		}
	}
	if err := results.Close(); err != nil && execErr == nil {
		execErr = fmt.Errorf("close insert batch: %w", err)
	}
	return execErr
}

// PopItem implements Session.
func (s *PostgresSession) PopItem(ctx context.Context) (*core.Item, error) {
	sql := fmt.Sprintf(`DELETE FROM %s
WHERE ctid = (
    SELECT ctid FROM %s WHERE session_id = $1 ORDER BY idx DESC LIMIT 1
)
RETURNING payload`, s.table, s.table)

	var payload []byte
	if err := s.pool.QueryRow(ctx, sql, s.sessionID).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("pop session item: %w", err)
	}

	var item core.Item
	if err := json.Unmarshal(payload, &item); err != nil {
		return nil, fmt.Errorf("decode session item: %w", err)
	}
	return &item, nil
}

// Clear implements Session.
func (s *PostgresSession) Clear(ctx context.Context) error {
	sql := fmt.Sprintf("DELETE FROM %s WHERE session_id = $1", s.table)
	if _, err := s.pool.Exec(ctx, sql, s.sessionID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Close releases the connection pool when this session owns it.
func (s *PostgresSession) Close() {
	if s.ownsPool {
		s.pool.Close()
	}
}

var _ Session = (*PostgresSession)(nil)
