package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/cf-pulse/internal/db"
)

// SQLiteStore persists turns in the conversation_turns table.
type SQLiteStore struct {
	db *db.DB
	k  int
}

// NewSQLiteStore creates a store over database with a window of k turns.
func NewSQLiteStore(database *db.DB, k int) *SQLiteStore {
	return &SQLiteStore{db: database, k: windowSize(k)}
}

func (s *SQLiteStore) Window() int { return s.k }

// Append inserts the turn and touches the conversation row in one transaction.
func (s *SQLiteStore) Append(ctx context.Context, conversationID string, turn Turn) error {
	if err := validate(turn); err != nil {
		return err
	}
	if turn.ID == "" {
		turn.ID = uuid.New().String()
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}
	id := Identity(conversationID)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO conversations (id, created_at, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		id, turn.Timestamp, turn.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("upserting conversation: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO conversation_turns (id, conversation_id, role, content, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		turn.ID, id, string(turn.Role), turn.Content, turn.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("appending turn: %w", err)
	}
	return tx.Commit()
}

// RecentWindow selects the newest k turns and returns them oldest first.
func (s *SQLiteStore) RecentWindow(ctx context.Context, conversationID string) ([]Turn, error) {
	return s.query(ctx,
		`SELECT id, role, content, created_at FROM (
		     SELECT seq, id, role, content, created_at FROM conversation_turns
		     WHERE conversation_id = ? ORDER BY seq DESC LIMIT ?
		 ) ORDER BY seq ASC`,
		Identity(conversationID), s.k,
	)
}

func (s *SQLiteStore) History(ctx context.Context, conversationID string) ([]Turn, error) {
	return s.query(ctx,
		`SELECT id, role, content, created_at FROM conversation_turns
		 WHERE conversation_id = ? ORDER BY seq ASC`,
		Identity(conversationID),
	)
}

// Conversations lists known conversation identities, most recently active first.
func (s *SQLiteStore) Conversations(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM conversations ORDER BY updated_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying turns: %w", err)
	}
	defer rows.Close()

	turns := []Turn{}
	for rows.Next() {
		var t Turn
		var role string
		if err := rows.Scan(&t.ID, &role, &t.Content, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		t.Role = Role(role)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}
