package models

import "time"

// FeedbackRating is a user's verdict on a delivered alert.
type FeedbackRating string

const (
	FeedbackHelpful    FeedbackRating = "helpful"
	FeedbackNotHelpful FeedbackRating = "not_helpful"
)

// Valid reports whether the rating is one of the known values.
func (r FeedbackRating) Valid() bool {
	return r == FeedbackHelpful || r == FeedbackNotHelpful
}

// Feedback records a user's rating of a single alert.
type Feedback struct {
	AlertID   string         `json:"alert_id"`
	Rating    FeedbackRating `json:"rating"`
	CreatedAt time.Time      `json:"created_at"`
}
