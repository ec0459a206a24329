package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/llm-claim-detector/internal/core"
)

// maxExternalIDLength is the width of the MySQL external_id column, enforced for every engine
const maxExternalIDLength = 512

var (
	// ErrNotFound is returned when a referenced message does not exist
	ErrNotFound = errors.New("message not found")

	// ErrAlreadyClassified is returned when a message already has a result
	ErrAlreadyClassified = errors.New("message already classified")
)

// dialect holds what differs between the supported SQL engines
type dialect struct {
	name          string
	schema        []string
	insertMessage string
	numbered      bool
}

// bind rewrites ? placeholders into $n for engines that need numbered ones
func (d dialect) bind(query string) string {
	if !d.numbered {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// SQLStore is a database/sql implementation of core.Store
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	logger  *zap.Logger
}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect, logger *zap.Logger) (*SQLStore, error) {
	s := &SQLStore{db: db, dialect: d, logger: logger}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply %s schema: %w", s.dialect.name, err)
		}
	}
	return nil
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// IsMessageRecorded reports whether a message with this external id exists
func (s *SQLStore) IsMessageRecorded(ctx context.Context, externalID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		s.dialect.bind(`SELECT COUNT(*) FROM messages WHERE external_id = ?`),
		externalID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to query message: %w", err)
	}
	return n > 0, nil
}

// SaveMessage inserts the message unless its external id is already stored
// and returns the internal id in both cases
func (s *SQLStore) SaveMessage(ctx context.Context, m *core.Message) (int64, error) {
	if len(m.ExternalID) > maxExternalIDLength {
		return 0, fmt.Errorf("external id is %d bytes, the limit is %d", len(m.ExternalID), maxExternalIDLength)
	}

	recipients, err := json.Marshal(nonNil(m.Recipients))
	if err != nil {
		return 0, fmt.Errorf("failed to encode recipients: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.dialect.bind(s.dialect.insertMessage),
		m.ExternalID,
		m.InternetMessageID,
		m.Subject,
		m.SenderAddress,
		m.SenderName,
		string(recipients),
		m.ReceivedAt.UTC(),
		m.Body,
		m.HasAttachments,
		m.Mailbox,
		time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert message: %w", err)
	}

	var id int64
	err = s.db.QueryRowContext(ctx,
		s.dialect.bind(`SELECT id FROM messages WHERE external_id = ?`),
		m.ExternalID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to read message id: %w", err)
	}
	return id, nil
}

// SaveClassification stores a result for a saved message
func (s *SQLStore) SaveClassification(ctx context.Context, messageID int64, r core.ClassificationResult) (int64, error) {
	keywords, err := json.Marshal(nonNil(r.Keywords))
	if err != nil {
		return 0, fmt.Errorf("failed to encode keywords: %w", err)
	}

	args := []interface{}{
		messageID,
		r.IsClaim,
		r.Confidence,
		r.Category,
		r.Severity,
		r.Reason,
		string(keywords),
		r.Summary,
		r.RawResponse,
		r.ParseError,
		time.Now().UTC(),
	}
	query := `INSERT INTO classifications
		(message_id, is_claim, confidence, category, severity, reason, keywords, summary, raw_response, parse_error, classified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if s.dialect.numbered {
		var id int64
		if err := s.db.QueryRowContext(ctx, s.dialect.bind(query+` RETURNING id`), args...).Scan(&id); err != nil {
			return 0, fmt.Errorf("failed to insert classification: %w", err)
		}
		return id, nil
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert classification: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read classification id: %w", err)
	}
	return id, nil
}

// LastSuccessfulRunCompletion returns the completion time of the latest
// successful run, or nil when there is none
func (s *SQLStore) LastSuccessfulRunCompletion(ctx context.Context) (*time.Time, error) {
	var completed time.Time
	err := s.db.QueryRowContext(ctx, s.dialect.bind(`
		SELECT completed_at FROM processing_runs
		WHERE status = ?
		ORDER BY completed_at DESC
		LIMIT 1`), core.RunStatusSuccess).Scan(&completed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query processing runs: %w", err)
	}
	return &completed, nil
}

// RecordRun stores a finished processing run
func (s *SQLStore) RecordRun(ctx context.Context, run *core.ProcessingRun) error {
	_, err := s.db.ExecContext(ctx, s.dialect.bind(`
		INSERT INTO processing_runs
		(id, started_at, completed_at, processed, claims_detected, error, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		run.ID,
		run.StartedAt.UTC(),
		run.CompletedAt.UTC(),
		run.Processed,
		run.ClaimsDetected,
		run.Error,
		run.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to insert processing run: %w", err)
	}
	return nil
}

// ListClassifications returns stored results joined with their message, newest first
func (s *SQLStore) ListClassifications(ctx context.Context, f core.ClassificationFilter) ([]core.ClassifiedMessage, error) {
	query := `
		SELECT c.id, m.id, m.external_id, m.subject, m.sender_address, m.received_at, c.classified_at,
			c.is_claim, c.confidence, c.category, c.severity, c.reason, c.keywords, c.summary,
			c.raw_response, c.parse_error
		FROM classifications c
		JOIN messages m ON m.id = c.message_id
		WHERE 1 = 1`
	var args []interface{}
	if f.ClaimsOnly {
		query += ` AND c.is_claim = ?`
		args = append(args, true)
	}
	if f.Category != "" {
		query += ` AND c.category = ?`
		args = append(args, f.Category)
	}
	if !f.Since.IsZero() {
		query += ` AND c.classified_at >= ?`
		args = append(args, f.Since.UTC())
	}
	if f.MinConfidence > 0 {
		query += ` AND c.confidence >= ?`
		args = append(args, f.MinConfidence)
	}
	query += ` ORDER BY c.classified_at DESC, c.id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.bind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query classifications: %w", err)
	}
	defer rows.Close()

	var out []core.ClassifiedMessage
	for rows.Next() {
		var (
			cm       core.ClassifiedMessage
			keywords string
		)
		if err := rows.Scan(
			&cm.ID, &cm.MessageID, &cm.ExternalID, &cm.Subject, &cm.Sender, &cm.ReceivedAt, &cm.ClassifiedAt,
			&cm.Result.IsClaim, &cm.Result.Confidence, &cm.Result.Category, &cm.Result.Severity,
			&cm.Result.Reason, &keywords, &cm.Result.Summary, &cm.Result.RawResponse, &cm.Result.ParseError,
		); err != nil {
			return nil, fmt.Errorf("failed to scan classification: %w", err)
		}
		if err := json.Unmarshal([]byte(keywords), &cm.Result.Keywords); err != nil {
			s.logger.Warn("Stored keywords are not valid JSON",
				zap.Int64("classification_id", cm.ID),
				zap.Error(err))
		}
		out = append(out, cm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate classifications: %w", err)
	}
	return out, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
