// Package store provides the session journal: a persistent audit trail of
// gate decisions and user feedback. Gate state itself is in-memory and
// session-scoped; the journal is write-behind observability and is never
// read back into gating.
package store

import (
	"context"
	"time"
)

// DecisionRecord is one evaluated alert and its outcome.
type DecisionRecord struct {
	AlertID     string
	Symbol      string
	Type        string
	Source      string // "stream" or "poll"
	Delivered   bool
	Reason      string // suppression reason, empty on delivery
	EvaluatedAt time.Time
}

// FeedbackRecord is one user feedback event.
type FeedbackRecord struct {
	AlertID   string
	Rating    string
	CreatedAt time.Time
}

// DecisionFilter restricts journal queries.
type DecisionFilter struct {
	Symbol    string
	Delivered *bool
	Since     time.Time
	Limit     int
}

// Journal defines the session audit log.
type Journal interface {
	RecordDecision(ctx context.Context, rec DecisionRecord) error
	RecordFeedback(ctx context.Context, rec FeedbackRecord) error
	GetDecisions(ctx context.Context, filter DecisionFilter) ([]DecisionRecord, error)
	GetFeedback(ctx context.Context, limit int) ([]FeedbackRecord, error)
	Close() error
}
