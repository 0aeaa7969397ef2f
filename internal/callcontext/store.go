package callcontext

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/voiceline/voiceline/internal/db"
)

// Store persists call contexts in SQLite. It is the durable side of the
// write-through pair; the cache mirrors it for live calls.
type Store struct {
	db *db.DB
}

func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

func (s *Store) Create(ctx context.Context, cc *CallContext) error {
	history, derived, err := marshalColumns(cc)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO call_contexts (call_id, user_id, customer_number, state, status, history, derived, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		cc.CallID, cc.UserID, cc.CustomerNumber, string(cc.State), string(cc.Status),
		history, derived, cc.StartedAt.UTC())
	if err != nil {
		return fmt.Errorf("inserting call context %s: %w", cc.CallID, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, callID string) (*CallContext, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT call_id, user_id, customer_number, state, status, history, derived, started_at, completed_at
		FROM call_contexts WHERE call_id = ?`, callID)

	cc, err := scanContext(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading call context %s: %w", callID, err)
	}
	return cc, nil
}

// Save writes the full mutable portion of the context back to the database.
func (s *Store) Save(ctx context.Context, cc *CallContext) error {
	history, derived, err := marshalColumns(cc)
	if err != nil {
		return err
	}

	var completedAt any
	if cc.CompletedAt != nil {
		completedAt = cc.CompletedAt.UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE call_contexts
		SET state = ?, status = ?, history = ?, derived = ?, completed_at = ?
		WHERE call_id = ?`,
		string(cc.State), string(cc.Status), history, derived, completedAt, cc.CallID)
	if err != nil {
		return fmt.Errorf("saving call context %s: %w", cc.CallID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByUser returns the user's calls, most recent first.
func (s *Store) ListByUser(ctx context.Context, userID string, limit int) ([]*CallContext, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT call_id, user_id, customer_number, state, status, history, derived, started_at, completed_at
		FROM call_contexts WHERE user_id = ?
		ORDER BY started_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing calls for %s: %w", userID, err)
	}
	defer rows.Close()

	var out []*CallContext
	for rows.Next() {
		cc, err := scanContext(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning call row: %w", err)
		}
		out = append(out, cc)
	}
	return out, rows.Err()
}

func marshalColumns(cc *CallContext) (history, derived []byte, err error) {
	h := cc.History
	if h == nil {
		h = []Turn{}
	}
	history, err = json.Marshal(h)
	if err != nil {
		return nil, nil, fmt.Errorf("marshaling history: %w", err)
	}
	derived, err = json.Marshal(cc.Derived)
	if err != nil {
		return nil, nil, fmt.Errorf("marshaling derived state: %w", err)
	}
	return history, derived, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContext(row rowScanner) (*CallContext, error) {
	var cc CallContext
	var state, status string
	var history, derived []byte
	var startedAt time.Time
	var completedAt sql.NullTime

	err := row.Scan(&cc.CallID, &cc.UserID, &cc.CustomerNumber, &state, &status,
		&history, &derived, &startedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	cc.State = State(state)
	cc.Status = Status(status)
	cc.StartedAt = startedAt
	if completedAt.Valid {
		t := completedAt.Time
		cc.CompletedAt = &t
	}
	if err := json.Unmarshal(history, &cc.History); err != nil {
		return nil, fmt.Errorf("unmarshaling history: %w", err)
	}
	if err := json.Unmarshal(derived, &cc.Derived); err != nil {
		return nil, fmt.Errorf("unmarshaling derived state: %w", err)
	}
	return &cc, nil
}
