// Package userconfig maps telephony identities (phone numbers, account
// credentials) to the users that own them.
package userconfig

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/voiceline/voiceline/internal/db"
)

// ErrNoUsers means no user is configured at all, so an incoming call cannot
// be routed to anyone.
var ErrNoUsers = errors.New("no users configured")

// UserConfig holds a user's telephony settings.
type UserConfig struct {
	UserID      string    `json:"user_id"`
	PhoneNumber string    `json:"phone_number"`
	AccountSID  string    `json:"account_sid"`
	AuthToken   string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Store struct {
	db *db.DB
}

func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Upsert creates or replaces the user's telephony configuration.
func (s *Store) Upsert(ctx context.Context, uc *UserConfig) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_config (user_id, phone_number, account_sid, auth_token, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			phone_number = excluded.phone_number,
			account_sid = excluded.account_sid,
			auth_token = excluded.auth_token,
			updated_at = excluded.updated_at`,
		uc.UserID, uc.PhoneNumber, uc.AccountSID, uc.AuthToken, now, now)
	if err != nil {
		return fmt.Errorf("upserting config for %s: %w", uc.UserID, err)
	}
	return nil
}

// Get returns the configuration for a user, or nil if none exists.
func (s *Store) Get(ctx context.Context, userID string) (*UserConfig, error) {
	return s.queryOne(ctx, `
		SELECT user_id, phone_number, account_sid, auth_token, created_at, updated_at
		FROM user_config WHERE user_id = ?`, userID)
}

// GetByPhoneNumber returns the user owning the given number, or nil.
func (s *Store) GetByPhoneNumber(ctx context.Context, number string) (*UserConfig, error) {
	return s.queryOne(ctx, `
		SELECT user_id, phone_number, account_sid, auth_token, created_at, updated_at
		FROM user_config WHERE phone_number = ?`, number)
}

// First returns the earliest configured user, or nil when none exist.
func (s *Store) First(ctx context.Context) (*UserConfig, error) {
	return s.queryOne(ctx, `
		SELECT user_id, phone_number, account_sid, auth_token, created_at, updated_at
		FROM user_config ORDER BY created_at ASC LIMIT 1`)
}

func (s *Store) queryOne(ctx context.Context, query string, args ...any) (*UserConfig, error) {
	var uc UserConfig
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&uc.UserID, &uc.PhoneNumber, &uc.AccountSID, &uc.AuthToken, &uc.CreatedAt, &uc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading user config: %w", err)
	}
	return &uc, nil
}

// Resolver routes an incoming call to a user by the number it arrived on.
// When the number matches no configured user, the first configured user is
// used as a fallback so single-tenant deployments need no number mapping.
type Resolver struct {
	store *Store
}

func NewResolver(store *Store) *Resolver {
	return &Resolver{store: store}
}

// ResolveByNumber finds the user for the called number.
func (r *Resolver) ResolveByNumber(ctx context.Context, calledNumber string) (*UserConfig, error) {
	if calledNumber != "" {
		uc, err := r.store.GetByPhoneNumber(ctx, calledNumber)
		if err != nil {
			return nil, err
		}
		if uc != nil {
			return uc, nil
		}
	}
	return r.FallbackFirstUser(ctx, calledNumber)
}

// FallbackFirstUser routes to the earliest configured user. It exists for
// single-tenant deployments without number mappings and should not be relied
// on once multiple users are configured.
func (r *Resolver) FallbackFirstUser(ctx context.Context, calledNumber string) (*UserConfig, error) {
	uc, err := r.store.First(ctx)
	if err != nil {
		return nil, err
	}
	if uc == nil {
		return nil, ErrNoUsers
	}
	log.Printf("userconfig: no user owns number %q, falling back to first user %s", calledNumber, uc.UserID)
	return uc, nil
}
