// Package script stores the per-user caller script: the greetings the agent
// opens with and the rules it follows when booking appointments.
package script

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/voiceline/voiceline/internal/db"
)

// Default greetings used when a user has not configured a script.
const (
	DefaultGreeting         = "Hello, thank you for calling. How can I assist you today?"
	DefaultOutboundGreeting = "Hello, this is an automated call from our AI assistant. How can I help you today?"
)

// Script is one version of a user's caller script. Saving always creates a
// new row; the newest row wins.
type Script struct {
	ID               string    `json:"id" yaml:"-"`
	UserID           string    `json:"user_id" yaml:"-"`
	Name             string    `json:"name" yaml:"name"`
	Greeting         string    `json:"greeting" yaml:"greeting"`
	OutboundGreeting string    `json:"outbound_greeting" yaml:"outbound_greeting"`
	SchedulingRules  string    `json:"scheduling_rules" yaml:"scheduling_rules"`
	CreatedAt        time.Time `json:"created_at" yaml:"-"`
	UpdatedAt        time.Time `json:"updated_at" yaml:"-"`
}

// Provider is the read interface the dialogue engine uses. A nil script with
// a nil error means the user has no script configured.
type Provider interface {
	GetScript(ctx context.Context, userID string) (*Script, error)
}

type Store struct {
	db *db.DB
}

func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Save stores a new script version for the user.
func (s *Store) Save(ctx context.Context, sc *Script) (*Script, error) {
	now := time.Now().UTC()
	saved := *sc
	saved.ID = uuid.New().String()
	saved.CreatedAt = now
	saved.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scripts (id, user_id, name, greeting, outbound_greeting, scheduling_rules, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		saved.ID, saved.UserID, saved.Name, saved.Greeting, saved.OutboundGreeting,
		saved.SchedulingRules, saved.CreatedAt, saved.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("saving script for %s: %w", sc.UserID, err)
	}
	return &saved, nil
}

// GetScript returns the user's most recent script, or nil if none exists.
func (s *Store) GetScript(ctx context.Context, userID string) (*Script, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, greeting, outbound_greeting, scheduling_rules, created_at, updated_at
		FROM scripts WHERE user_id = ?
		ORDER BY created_at DESC LIMIT 1`, userID)

	sc, err := scanScript(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading script for %s: %w", userID, err)
	}
	return sc, nil
}

// List returns all script versions for a user, newest first.
func (s *Store) List(ctx context.Context, userID string) ([]*Script, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, greeting, outbound_greeting, scheduling_rules, created_at, updated_at
		FROM scripts WHERE user_id = ?
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing scripts for %s: %w", userID, err)
	}
	defer rows.Close()

	var out []*Script
	for rows.Next() {
		sc, err := scanScript(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning script row: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScript(row rowScanner) (*Script, error) {
	var sc Script
	err := row.Scan(&sc.ID, &sc.UserID, &sc.Name, &sc.Greeting, &sc.OutboundGreeting,
		&sc.SchedulingRules, &sc.CreatedAt, &sc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &sc, nil
}

// Greetings returns the effective greetings for a possibly nil script.
func Greetings(sc *Script) (inbound, outbound string) {
	inbound, outbound = DefaultGreeting, DefaultOutboundGreeting
	if sc == nil {
		return inbound, outbound
	}
	if sc.Greeting != "" {
		inbound = sc.Greeting
	}
	if sc.OutboundGreeting != "" {
		outbound = sc.OutboundGreeting
	}
	return inbound, outbound
}
