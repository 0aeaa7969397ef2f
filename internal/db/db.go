package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB with voiceline-specific helpers.
type DB struct {
	*sql.DB
	path string
}

// Open creates or opens a SQLite database at the given path.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	d := &DB{DB: sqlDB, path: path}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return d, nil
}

// OpenMemory creates an in-memory SQLite database (useful for testing).
func OpenMemory() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}

	d := &DB{DB: sqlDB, path: ":memory:"}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return d, nil
}

// migrate runs all schema migrations.
func (d *DB) migrate() error {
	_, err := d.Exec(schema)
	return err
}

// schema contains the full database schema. New tables are added here.
const schema = `
CREATE TABLE IF NOT EXISTS call_contexts (
    call_id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    customer_number TEXT NOT NULL DEFAULT '',
    state TEXT NOT NULL DEFAULT 'awaiting_first_turn' CHECK(state IN ('awaiting_first_turn','in_conversation','ended')),
    status TEXT NOT NULL DEFAULT 'active' CHECK(status IN ('active','completed')),
    history TEXT NOT NULL DEFAULT '[]',
    derived TEXT NOT NULL DEFAULT '{}',
    started_at DATETIME NOT NULL,
    completed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_call_contexts_user ON call_contexts(user_id, started_at);
CREATE INDEX IF NOT EXISTS idx_call_contexts_status ON call_contexts(status);

CREATE TABLE IF NOT EXISTS appointments (
    id TEXT PRIMARY KEY,
    call_id TEXT NOT NULL UNIQUE,
    user_id TEXT NOT NULL,
    customer_name TEXT NOT NULL,
    customer_phone TEXT NOT NULL DEFAULT '',
    appointment_date TEXT NOT NULL,
    appointment_time TEXT NOT NULL,
    notes TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_appointments_user ON appointments(user_id, appointment_date);

CREATE TABLE IF NOT EXISTS scripts (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    greeting TEXT NOT NULL DEFAULT '',
    outbound_greeting TEXT NOT NULL DEFAULT '',
    scheduling_rules TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scripts_user ON scripts(user_id, created_at);

CREATE TABLE IF NOT EXISTS user_config (
    user_id TEXT PRIMARY KEY,
    phone_number TEXT NOT NULL DEFAULT '',
    account_sid TEXT NOT NULL DEFAULT '',
    auth_token TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_user_config_number ON user_config(phone_number);
`
