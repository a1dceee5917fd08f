package session

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLiteStore implements StateStore on the client_state table.
type SQLiteStore struct {
	DB  *sql.DB
	Now func() time.Time
}

// Load reads every state key.
func (s *SQLiteStore) Load(ctx context.Context) (State, error) {
	const query = `SELECT key, value FROM client_state WHERE key IN (?, ?, ?)`
	rows, err := s.DB.QueryContext(ctx, query, keyConversationID, keyResume, keyCoverLetter)
	if err != nil {
		return State{}, fmt.Errorf("load client state: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string, len(stateKeys))
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return State{}, fmt.Errorf("load client state: %w", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return State{}, fmt.Errorf("load client state: %w", err)
	}
	return stateFromValues(values), nil
}

// Save upserts every state key in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, st State) error {
	const query = `
INSERT INTO client_state (key, value, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save client state: %w", err)
	}
	defer tx.Rollback()

	now := s.now()
	values := st.values()
	for _, key := range stateKeys {
		if _, err := tx.ExecContext(ctx, query, key, values[key], now); err != nil {
			return fmt.Errorf("save client state %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save client state: %w", err)
	}
	return nil
}

// Clear deletes every state key.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	const query = `DELETE FROM client_state WHERE key IN (?, ?, ?)`
	if _, err := s.DB.ExecContext(ctx, query, keyConversationID, keyResume, keyCoverLetter); err != nil {
		return fmt.Errorf("clear client state: %w", err)
	}
	return nil
}

func (s *SQLiteStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}
