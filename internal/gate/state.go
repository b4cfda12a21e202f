// Package gate implements the alert delivery gate: per-session state,
// the deliver/suppress decision function, and feedback-driven throttling.
package gate

import (
	"sync"
	"time"

	"tradepulse/internal/models"
)

// State holds the per-session gating state: cooldown expiries keyed by
// dedupe key, the set of alert ids already shown, user feedback, and the
// last notification timestamp.
//
// One State exists per user session. Mutations arrive from a single writer
// (the session loop); readers may run concurrently. All operations are
// O(map size) and never block on I/O, so a coarse mutex is sufficient.
type State struct {
	mu sync.RWMutex

	now func() time.Time

	cooldowns  map[string]time.Time // dedupe key -> expiry
	seen       map[string]struct{}
	feedback   map[string]models.FeedbackRating
	notHelpful int // incremental counter alongside the feedback map

	lastNotification time.Time
	drawerOpen       bool
}

// NewState creates an empty session state using the wall clock.
func NewState() *State {
	return NewStateWithClock(time.Now)
}

// NewStateWithClock creates an empty session state with an injected clock.
// Tests use this to make cooldown and interval behavior deterministic.
func NewStateWithClock(now func() time.Time) *State {
	return &State{
		now:       now,
		cooldowns: make(map[string]time.Time),
		seen:      make(map[string]struct{}),
		feedback:  make(map[string]models.FeedbackRating),
	}
}

// Now returns the state's current clock reading.
func (s *State) Now() time.Time {
	return s.now()
}

// AddCooldown sets the cooldown expiry for a dedupe key to now + cooldownSec.
// An existing entry for the same key is overwritten, not extended.
func (s *State) AddCooldown(dedupeKey string, cooldownSec int) {
	if dedupeKey == "" || cooldownSec <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cooldowns[dedupeKey] = s.now().Add(time.Duration(cooldownSec) * time.Second)
}

// IsCoolingDown reports whether a dedupe key has an unexpired cooldown.
func (s *State) IsCoolingDown(dedupeKey string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	expiry, ok := s.cooldowns[dedupeKey]
	return ok && expiry.After(s.now())
}

// ClearExpiredCooldowns removes all cooldown entries whose expiry has
// passed. Called lazily once per evaluation batch rather than on a timer,
// keeping behavior deterministic under a controlled clock.
func (s *State) ClearExpiredCooldowns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for key, expiry := range s.cooldowns {
		if !expiry.After(now) {
			delete(s.cooldowns, key)
		}
	}
}

// IsDuplicate reports whether an alert id has already been shown.
func (s *State) IsDuplicate(alertID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.seen[alertID]
	return ok
}

// MarkAsSeen records an alert id as shown. Once marked, the id stays
// excluded until ClearSeenAlerts.
func (s *State) MarkAsSeen(alertID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[alertID] = struct{}{}
}

// ClearSeenAlerts resets the seen set (session reset).
func (s *State) ClearSeenAlerts() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = make(map[string]struct{})
}

// SetFeedback records the user's rating for an alert, overwriting any
// prior rating for the same id.
func (s *State) SetFeedback(alertID string, rating models.FeedbackRating) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.feedback[alertID]
	s.feedback[alertID] = rating

	// Keep the running counter in step with the map across overwrites.
	if had && prev == models.FeedbackNotHelpful {
		s.notHelpful--
	}
	if rating == models.FeedbackNotHelpful {
		s.notHelpful++
	}
}

// Feedback returns the recorded rating for an alert id, if any.
func (s *State) Feedback(alertID string) (models.FeedbackRating, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rating, ok := s.feedback[alertID]
	return rating, ok
}

// NotHelpfulCount returns the number of alerts the user marked not helpful.
func (s *State) NotHelpfulCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.notHelpful
}

// CanNotify reports whether at least minInterval has passed since the
// last recorded notification. Always true before the first notification.
func (s *State) CanNotify(minInterval time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastNotification.IsZero() {
		return true
	}
	return s.now().Sub(s.lastNotification) >= minInterval
}

// RecordNotification sets the last notification timestamp to now.
func (s *State) RecordNotification() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastNotification = s.now()
}

// SetDrawerOpen records whether the alert drawer is open in the
// presentation layer.
func (s *State) SetDrawerOpen(open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drawerOpen = open
}

// DrawerOpen reports the drawer-open flag.
func (s *State) DrawerOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.drawerOpen
}

// CooldownCount returns the number of tracked cooldown entries, expired
// or not. Intended for diagnostics.
func (s *State) CooldownCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cooldowns)
}

// SeenCount returns the number of alert ids marked as seen.
func (s *State) SeenCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}
