package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

var sqliteDialect = dialect{
	name: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			external_id TEXT NOT NULL UNIQUE,
			internet_message_id TEXT,
			subject TEXT,
			sender_address TEXT,
			sender_name TEXT,
			recipients TEXT,
			received_at TIMESTAMP,
			body TEXT,
			has_attachments BOOLEAN,
			mailbox TEXT,
			created_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS classifications (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			message_id INTEGER NOT NULL UNIQUE REFERENCES messages(id),
			is_claim BOOLEAN NOT NULL,
			confidence INTEGER NOT NULL,
			category TEXT NOT NULL,
			severity TEXT NOT NULL,
			reason TEXT,
			keywords TEXT,
			summary TEXT,
			raw_response TEXT,
			parse_error TEXT,
			classified_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_classifications_classified_at ON classifications(classified_at)`,
		`CREATE TABLE IF NOT EXISTS processing_runs (
			id TEXT PRIMARY KEY,
			started_at TIMESTAMP NOT NULL,
			completed_at TIMESTAMP NOT NULL,
			processed INTEGER NOT NULL,
			claims_detected INTEGER NOT NULL,
			error TEXT,
			status TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_processing_runs_completed_at ON processing_runs(status, completed_at)`,
	},
	insertMessage: `INSERT OR IGNORE INTO messages
		(external_id, internet_message_id, subject, sender_address, sender_name, recipients, received_at, body, has_attachments, mailbox, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
}

// NewSQLiteStore opens (and migrates) a SQLite database. ":memory:" is accepted.
func NewSQLiteStore(ctx context.Context, dbPath string, logger *zap.Logger) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// each connection to :memory: is a separate database, and SQLite
	// serialises writers anyway
	db.SetMaxOpenConns(1)

	return newSQLStore(ctx, db, sqliteDialect, logger)
}
