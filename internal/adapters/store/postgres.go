package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

var postgresDialect = dialect{
	name: "postgres",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS messages (
			id BIGSERIAL PRIMARY KEY,
			external_id TEXT NOT NULL UNIQUE,
			internet_message_id TEXT,
			subject TEXT,
			sender_address TEXT,
			sender_name TEXT,
			recipients TEXT,
			received_at TIMESTAMPTZ,
			body TEXT,
			has_attachments BOOLEAN,
			mailbox TEXT,
			created_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS classifications (
			id BIGSERIAL PRIMARY KEY,
			message_id BIGINT NOT NULL UNIQUE REFERENCES messages(id),
			is_claim BOOLEAN NOT NULL,
			confidence INTEGER NOT NULL,
			category TEXT NOT NULL,
			severity TEXT NOT NULL,
			reason TEXT,
			keywords TEXT,
			summary TEXT,
			raw_response TEXT,
			parse_error TEXT,
			classified_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_classifications_classified_at ON classifications(classified_at)`,
		`CREATE TABLE IF NOT EXISTS processing_runs (
			id TEXT PRIMARY KEY,
			started_at TIMESTAMPTZ NOT NULL,
			completed_at TIMESTAMPTZ NOT NULL,
			processed INTEGER NOT NULL,
			claims_detected INTEGER NOT NULL,
			error TEXT,
			status TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_processing_runs_completed_at ON processing_runs(status, completed_at)`,
	},
	insertMessage: `INSERT INTO messages
		(external_id, internet_message_id, subject, sender_address, sender_name, recipients, received_at, body, has_attachments, mailbox, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (external_id) DO NOTHING`,
	numbered: true,
}

// NewPostgresStore connects to PostgreSQL through pgx and migrates the schema
func NewPostgresStore(ctx context.Context, dsn string, logger *zap.Logger) (*SQLStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	return newSQLStore(ctx, db, postgresDialect, logger)
}
