package gate

import (
	"time"

	"tradepulse/internal/models"
)

// Reason explains why an alert was suppressed.
type Reason string

const (
	ReasonNotArmed         Reason = "not_armed"
	ReasonQuietHours       Reason = "quiet_hours"
	ReasonExpired          Reason = "expired"
	ReasonServerSuppressed Reason = "server_suppressed"
	ReasonDuplicate        Reason = "duplicate"
	ReasonCooldown         Reason = "cooldown"
)

// Decision is the outcome of evaluating one alert against the gate.
type Decision struct {
	Deliver bool
	Reason  Reason // set when Deliver is false
}

// Deliver is the positive decision.
var Deliver = Decision{Deliver: true}

// Suppress builds a negative decision with the given reason.
func Suppress(reason Reason) Decision {
	return Decision{Reason: reason}
}

// Evaluate decides whether a candidate alert is delivered or suppressed.
//
// It is a pure function of the alert, a read-only view of session state,
// the global armed switch, and the configured quiet-hours windows; it
// performs no mutation. On Deliver the caller must MarkAsSeen the alert id
// and, when the alert carries a nonzero cooldown, AddCooldown its dedupe
// key.
//
// Rules apply in order; the first match wins:
//
//	1. not armed
//	2. quiet hours
//	3. expired
//	4. server suppressed
//	5. duplicate id
//	6. dedupe key cooling down
func Evaluate(alert *models.Alert, state *State, armed bool, quietHours []Window) Decision {
	return EvaluateAt(state.Now(), alert, state, armed, quietHours)
}

// EvaluateAt is Evaluate with an explicit evaluation time.
func EvaluateAt(now time.Time, alert *models.Alert, state *State, armed bool, quietHours []Window) Decision {
	if !armed {
		return Suppress(ReasonNotArmed)
	}
	if InQuietHours(now, quietHours) {
		return Suppress(ReasonQuietHours)
	}
	if alert.Expired(now) {
		return Suppress(ReasonExpired)
	}
	if alert.Throttle.Suppressed {
		return Suppress(ReasonServerSuppressed)
	}
	if state.IsDuplicate(alert.ID) {
		return Suppress(ReasonDuplicate)
	}
	if state.IsCoolingDown(alert.Throttle.DedupeKey) {
		return Suppress(ReasonCooldown)
	}
	return Deliver
}
