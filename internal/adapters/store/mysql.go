package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

var mysqlDialect = dialect{
	name: "mysql",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS messages (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			external_id VARCHAR(512) NOT NULL UNIQUE,
			internet_message_id VARCHAR(998),
			subject TEXT,
			sender_address VARCHAR(320),
			sender_name VARCHAR(255),
			recipients TEXT,
			received_at DATETIME(6),
			body MEDIUMTEXT,
			has_attachments BOOLEAN,
			mailbox VARCHAR(255),
			created_at DATETIME(6)
		)`,
		`CREATE TABLE IF NOT EXISTS classifications (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			message_id BIGINT NOT NULL UNIQUE,
			is_claim BOOLEAN NOT NULL,
			confidence INT NOT NULL,
			category VARCHAR(64) NOT NULL,
			severity VARCHAR(16) NOT NULL,
			reason TEXT,
			keywords TEXT,
			summary TEXT,
			raw_response MEDIUMTEXT,
			parse_error TEXT,
			classified_at DATETIME(6) NOT NULL,
			INDEX idx_classifications_classified_at (classified_at),
			FOREIGN KEY (message_id) REFERENCES messages(id)
		)`,
		`CREATE TABLE IF NOT EXISTS processing_runs (
			id VARCHAR(36) PRIMARY KEY,
			started_at DATETIME(6) NOT NULL,
			completed_at DATETIME(6) NOT NULL,
			processed INT NOT NULL,
			claims_detected INT NOT NULL,
			error TEXT,
			status VARCHAR(16) NOT NULL,
			INDEX idx_processing_runs_completed_at (status, completed_at)
		)`,
	},
	// only a duplicate key is ignored, other insert errors still surface
	insertMessage: `INSERT INTO messages
		(external_id, internet_message_id, subject, sender_address, sender_name, recipients, received_at, body, has_attachments, mailbox, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE id = id`,
}

// NewMySQLStore connects to MySQL and migrates the schema. Timestamps are
// parsed into time.Time in UTC whatever the DSN says.
func NewMySQLStore(ctx context.Context, dsn string, logger *zap.Logger) (*SQLStore, error) {
	mysqlCfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid MySQL DSN: %w", err)
	}
	mysqlCfg.ParseTime = true
	mysqlCfg.Loc = time.UTC

	db, err := sql.Open("mysql", mysqlCfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	return newSQLStore(ctx, db, mysqlDialect, logger)
}
