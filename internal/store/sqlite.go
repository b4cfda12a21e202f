// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteJournal implements Journal using SQLite.
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLiteJournal creates a new SQLite-backed journal.
func NewSQLiteJournal(dbPath string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	j := &SQLiteJournal{db: db}
	if err := j.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return j, nil
}

// initSchema creates all required tables and indexes.
func (j *SQLiteJournal) initSchema() error {
	schema := `
	-- Gate decisions, delivered and suppressed
	CREATE TABLE IF NOT EXISTS decisions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		alert_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		type TEXT NOT NULL,
		source TEXT NOT NULL,
		delivered INTEGER NOT NULL,
		reason TEXT,
		evaluated_at DATETIME NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_decisions_symbol ON decisions(symbol);
	CREATE INDEX IF NOT EXISTS idx_decisions_evaluated ON decisions(evaluated_at);

	-- User feedback on delivered alerts
	CREATE TABLE IF NOT EXISTS feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		alert_id TEXT NOT NULL,
		rating TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_feedback_alert ON feedback(alert_id);
	`

	_, err := j.db.Exec(schema)
	return err
}

// RecordDecision appends one gate decision.
func (j *SQLiteJournal) RecordDecision(ctx context.Context, rec DecisionRecord) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO decisions (alert_id, symbol, type, source, delivered, reason, evaluated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.AlertID, rec.Symbol, rec.Type, rec.Source, boolToInt(rec.Delivered), rec.Reason, rec.EvaluatedAt)
	if err != nil {
		return fmt.Errorf("recording decision: %w", err)
	}
	return nil
}

// RecordFeedback appends one feedback event.
func (j *SQLiteJournal) RecordFeedback(ctx context.Context, rec FeedbackRecord) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO feedback (alert_id, rating, created_at)
		VALUES (?, ?, ?)`,
		rec.AlertID, rec.Rating, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("recording feedback: %w", err)
	}
	return nil
}

// GetDecisions returns decisions matching the filter, newest first.
func (j *SQLiteJournal) GetDecisions(ctx context.Context, filter DecisionFilter) ([]DecisionRecord, error) {
	query := `SELECT alert_id, symbol, type, source, delivered, reason, evaluated_at FROM decisions`
	var conditions []string
	var args []interface{}

	if filter.Symbol != "" {
		conditions = append(conditions, "symbol = ?")
		args = append(args, filter.Symbol)
	}
	if filter.Delivered != nil {
		conditions = append(conditions, "delivered = ?")
		args = append(args, boolToInt(*filter.Delivered))
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "evaluated_at >= ?")
		args = append(args, filter.Since)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY evaluated_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying decisions: %w", err)
	}
	defer rows.Close()

	var records []DecisionRecord
	for rows.Next() {
		var rec DecisionRecord
		var delivered int
		var reason sql.NullString
		if err := rows.Scan(&rec.AlertID, &rec.Symbol, &rec.Type, &rec.Source, &delivered, &reason, &rec.EvaluatedAt); err != nil {
			return nil, fmt.Errorf("scanning decision: %w", err)
		}
		rec.Delivered = delivered != 0
		rec.Reason = reason.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetFeedback returns feedback events, newest first.
func (j *SQLiteJournal) GetFeedback(ctx context.Context, limit int) ([]FeedbackRecord, error) {
	query := `SELECT alert_id, rating, created_at FROM feedback ORDER BY created_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := j.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying feedback: %w", err)
	}
	defer rows.Close()

	var records []FeedbackRecord
	for rows.Next() {
		var rec FeedbackRecord
		if err := rows.Scan(&rec.AlertID, &rec.Rating, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning feedback: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close closes the underlying database.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Ensure SQLiteJournal implements Journal
var _ Journal = (*SQLiteJournal)(nil)
