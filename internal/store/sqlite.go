// Package store persists games, bets, boxes and users in SQLite and applies
// ledger effects to user balances.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteDB is the storage collaborator backed by a single SQLite file.
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB opens (or creates) the database at path.
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// Migrate runs database migrations.
func (s *SQLiteDB) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			level INTEGER NOT NULL DEFAULT 0,
			balance TEXT NOT NULL DEFAULT '0',
			xp INTEGER NOT NULL DEFAULT 0,
			rakeback TEXT NOT NULL DEFAULT '0',
			affiliate_of TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS boxes (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			amount TEXT NOT NULL,
			active INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS box_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			box_id TEXT NOT NULL,
			name TEXT NOT NULL,
			image TEXT NOT NULL DEFAULT '',
			amount_fixed TEXT NOT NULL,
			tickets INTEGER NOT NULL,
			position INTEGER NOT NULL,
			FOREIGN KEY (box_id) REFERENCES boxes(id)
		)`,
		`CREATE TABLE IF NOT EXISTS games (
			id TEXT PRIMARY KEY,
			amount TEXT NOT NULL,
			entry_fee TEXT NOT NULL,
			player_count INTEGER NOT NULL,
			mode TEXT NOT NULL,
			options TEXT NOT NULL,
			boxes TEXT NOT NULL,
			rounds TEXT NOT NULL,
			state TEXT NOT NULL,
			seed_server TEXT NOT NULL,
			seed_hash TEXT NOT NULL,
			seed_public TEXT NOT NULL DEFAULT '',
			block_id INTEGER NOT NULL DEFAULT 0,
			jackpot_ticket INTEGER NOT NULL DEFAULT 0,
			fallback_used INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS bets (
			id TEXT PRIMARY KEY,
			game_id TEXT NOT NULL,
			user_id TEXT NOT NULL DEFAULT '',
			bot INTEGER NOT NULL DEFAULT 0,
			slot INTEGER NOT NULL,
			amount TEXT NOT NULL,
			outcomes TEXT NOT NULL DEFAULT '[]',
			payout TEXT NOT NULL DEFAULT '0',
			multiplier INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			FOREIGN KEY (game_id) REFERENCES games(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bets_game_id ON bets(game_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_bets_game_slot ON bets(game_id, slot)`,
		`CREATE INDEX IF NOT EXISTS idx_games_state ON games(state)`,
		`CREATE INDEX IF NOT EXISTS idx_box_items_box ON box_items(box_id, position)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
