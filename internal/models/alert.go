// Package models defines the core data types shared across the application.
package models

import "time"

// AlertType classifies what kind of signal an alert carries.
type AlertType string

const (
	// AlertOpportunity signals a potential entry.
	AlertOpportunity AlertType = "opportunity"
	// AlertProtect signals a protective action on an existing position.
	AlertProtect AlertType = "protect"
)

// Safety holds server-computed risk bounds for an alert.
// Informational only; the delivery gate does not act on these.
type Safety struct {
	MaxLoss             float64 `json:"max_loss"`
	SlippageEstimate    float64 `json:"slippage_estimate"`
	ExecutionConfidence float64 `json:"execution_confidence"`
}

// Throttle carries server-declared throttle hints for an alert.
type Throttle struct {
	CooldownSec int    `json:"cooldown_sec"`
	DedupeKey   string `json:"dedupe_key"`
	Suppressed  bool   `json:"suppressed"`
}

// Alert is a candidate notification produced by the upstream alert service.
type Alert struct {
	ID        string    `json:"id"`
	Type      AlertType `json:"type"`
	Symbol    string    `json:"symbol"`
	Message   string    `json:"message"`
	Actions   []string  `json:"actions"`
	Safety    Safety    `json:"safety"`
	Throttle  Throttle  `json:"throttle"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the alert has expired as of now.
// Expiry is checked against wall-clock time at evaluation, never at
// creation; an alert can expire while sitting in a queue.
func (a *Alert) Expired(now time.Time) bool {
	return !now.Before(a.ExpiresAt)
}

// HasAction reports whether the named action is declared on the alert.
func (a *Alert) HasAction(action string) bool {
	for _, act := range a.Actions {
		if act == action {
			return true
		}
	}
	return false
}
