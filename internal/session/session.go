// Package session owns the per-user alert pipeline: it serializes alert
// candidates from the stream and the poller through the delivery gate,
// applies adaptive throttling, and fans delivered alerts out to
// subscribers and notification channels.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	apperrors "tradepulse/internal/errors"
	"tradepulse/internal/gate"
	"tradepulse/internal/logging"
	"tradepulse/internal/models"
	"tradepulse/internal/notify"
	"tradepulse/internal/poll"
	"tradepulse/internal/store"
	"tradepulse/internal/stream"
)

// ReasonThrottled marks an alert held back by the minimum notification
// interval. It is applied after the gate's own rules, so it never shadows
// a gate suppression reason.
const ReasonThrottled = "throttled"

// Alert sources.
const (
	SourceStream = "stream"
	SourcePoll   = "poll"
)

// Config holds session configuration.
type Config struct {
	// BaseNotifyInterval is the minimum time between notifications at the
	// normal throttle level.
	BaseNotifyInterval time.Duration
	// ThrottleFactor multiplies the base interval while the adaptive
	// throttle is active.
	ThrottleFactor int
	// AdaptiveEnabled is the initial adaptive-mode preference.
	AdaptiveEnabled bool
	// SubscriberBuffer is the size of each subscriber's channel buffer.
	SubscriberBuffer int
	// EventBuffer is the size of the single-writer mailbox.
	EventBuffer int
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		BaseNotifyInterval: 30 * time.Second,
		ThrottleFactor:     gate.DefaultIntervalFactor,
		SubscriberBuffer:   16,
		EventBuffer:        256,
	}
}

// Metrics counts session outcomes.
type Metrics struct {
	Delivered  uint64
	Suppressed uint64
	// SubscriberDrops counts deliveries a slow subscriber missed.
	SubscriberDrops uint64
	ByReason        map[string]uint64
}

// Internal mailbox events. All gate mutations flow through these so the
// run loop remains the single writer.
type alertEvent struct {
	alert  models.Alert
	source string
}

type snapshotEvent struct {
	snapshot models.Snapshot
}

type feedbackEvent struct {
	alertID string
	rating  models.FeedbackRating
}

type adaptiveEvent struct {
	enabled bool
}

type drawerEvent struct {
	open bool
}

type resetEvent struct{}

// Session is the per-user alert pipeline.
type Session struct {
	config   Config
	logger   zerolog.Logger
	state    *gate.State
	journal  store.Journal
	notifier notify.Notifier

	events chan interface{}

	mu          sync.RWMutex
	armed       bool
	quiet       []gate.Window
	quietSpecs  []string
	adaptive    bool
	connected   bool
	level       gate.ThrottleLevel
	subscribers []chan models.Alert
	started     bool
	stop        chan struct{}
	done        chan struct{}

	delivered       uint64
	suppressed      uint64
	subscriberDrops uint64
	reasonsMu       sync.Mutex
	byReason        map[string]uint64
}

// NewSession creates a session with fresh, empty gate state.
func NewSession(config Config, logger zerolog.Logger) *Session {
	return NewSessionWithState(config, gate.NewState(), logger)
}

// NewSessionWithState creates a session over pre-built gate state. Tests
// use this to inject a controlled clock.
func NewSessionWithState(config Config, state *gate.State, logger zerolog.Logger) *Session {
	if config.EventBuffer <= 0 {
		config.EventBuffer = DefaultConfig().EventBuffer
	}
	if config.SubscriberBuffer <= 0 {
		config.SubscriberBuffer = DefaultConfig().SubscriberBuffer
	}
	return &Session{
		config:   config,
		logger:   logger.With().Str("component", "session").Logger(),
		state:    state,
		events:   make(chan interface{}, config.EventBuffer),
		adaptive: config.AdaptiveEnabled,
		level:    gate.LevelNormal,
		byReason: make(map[string]uint64),
	}
}

// SetJournal attaches an audit journal. Optional; nil disables journaling.
func (s *Session) SetJournal(journal store.Journal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journal = journal
}

// SetNotifier attaches a notification channel for delivered alerts.
func (s *Session) SetNotifier(notifier notify.Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifier = notifier
}

// State exposes the session's gate state for read-side diagnostics.
func (s *Session) State() *gate.State {
	return s.state
}

// Attach wires a stream ingestor and a polling fetcher into the session
// mailbox. Either may be nil.
func (s *Session) Attach(ingestor *stream.Ingestor, fetcher *poll.Fetcher) {
	if ingestor != nil {
		ingestor.OnAlert(func(alert models.Alert) {
			s.HandleAlert(alert, SourceStream)
		})
		ingestor.OnStateChange(func(state stream.ConnState) {
			s.setConnected(state == stream.StateConnected)
		})
		ingestor.OnError(func(err error) {
			s.logger.Warn().Err(err).Msg("Stream transport error")
		})
	}
	if fetcher != nil {
		fetcher.OnSnapshot(s.HandleSnapshot)
	}
}

// Start begins the single-writer event loop. No-op when already started.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stop, s.done
	s.mu.Unlock()

	go s.run(ctx, stop, done)
}

// Stop shuts the event loop down and closes all subscriber channels.
func (s *Session) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	close(s.stop)
	done := s.done
	s.mu.Unlock()

	<-done

	s.mu.Lock()
	for _, ch := range s.subscribers {
		close(ch)
	}
	s.subscribers = nil
	s.mu.Unlock()
}

// HandleAlert enqueues a single alert candidate for evaluation.
func (s *Session) HandleAlert(alert models.Alert, source string) {
	s.enqueue(alertEvent{alert: alert, source: source})
}

// HandleSnapshot enqueues a full snapshot: global armed and quiet-hours
// state plus every active alert as a candidate.
func (s *Session) HandleSnapshot(snapshot models.Snapshot) {
	s.enqueue(snapshotEvent{snapshot: snapshot})
}

// SubmitFeedback records the user's rating of an alert.
func (s *Session) SubmitFeedback(alertID string, rating models.FeedbackRating) error {
	if !rating.Valid() {
		return apperrors.Wrapf(apperrors.ErrInvalidRating, "rating %q", rating)
	}
	s.enqueue(feedbackEvent{alertID: alertID, rating: rating})
	return nil
}

// SetAdaptiveMode toggles the adaptive throttle preference.
func (s *Session) SetAdaptiveMode(enabled bool) {
	s.enqueue(adaptiveEvent{enabled: enabled})
}

// SetDrawerOpen records the presentation layer's drawer state.
func (s *Session) SetDrawerOpen(open bool) {
	s.enqueue(drawerEvent{open: open})
}

// Reset clears the seen-alert set (session reset).
func (s *Session) Reset() {
	s.enqueue(resetEvent{})
}

// Subscribe returns a channel receiving every delivered alert. Sends are
// non-blocking; a slow subscriber misses alerts rather than stalling the
// pipeline.
func (s *Session) Subscribe() <-chan models.Alert {
	ch := make(chan models.Alert, s.config.SubscriberBuffer)
	s.mu.Lock()
	s.subscribers = append(s.subscribers, ch)
	s.mu.Unlock()
	return ch
}

// Connected reports whether the live stream is currently connected.
func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Armed reports the last known global armed state.
func (s *Session) Armed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.armed
}

// QuietHours returns the currently configured quiet-hours strings.
func (s *Session) QuietHours() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.quietSpecs...)
}

// ThrottleLevel returns the adaptive throttle controller's current level.
func (s *Session) ThrottleLevel() gate.ThrottleLevel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.level
}

// GetMetrics returns delivery counters.
func (s *Session) GetMetrics() Metrics {
	s.reasonsMu.Lock()
	byReason := make(map[string]uint64, len(s.byReason))
	for k, v := range s.byReason {
		byReason[k] = v
	}
	s.reasonsMu.Unlock()

	return Metrics{
		Delivered:       atomic.LoadUint64(&s.delivered),
		Suppressed:      atomic.LoadUint64(&s.suppressed),
		SubscriberDrops: atomic.LoadUint64(&s.subscriberDrops),
		ByReason:        byReason,
	}
}

func (s *Session) enqueue(ev interface{}) {
	s.mu.RLock()
	started := s.started
	stop := s.stop
	s.mu.RUnlock()
	if !started {
		return
	}
	select {
	case s.events <- ev:
	case <-stop:
	}
}

func (s *Session) setConnected(connected bool) {
	s.mu.Lock()
	s.connected = connected
	s.mu.Unlock()
}

// run is the single writer over gate state.
func (s *Session) run(ctx context.Context, stop, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case ev := <-s.events:
			switch e := ev.(type) {
			case alertEvent:
				s.evaluate(ctx, e.alert, e.source)
			case snapshotEvent:
				s.applySnapshot(ctx, e.snapshot)
			case feedbackEvent:
				s.applyFeedback(ctx, e.alertID, e.rating)
			case adaptiveEvent:
				s.applyAdaptive(e.enabled)
			case drawerEvent:
				s.state.SetDrawerOpen(e.open)
			case resetEvent:
				s.state.ClearSeenAlerts()
			}
		}
	}
}

// evaluate runs one candidate through the gate and performs the
// delivery side effects on success.
func (s *Session) evaluate(ctx context.Context, alert models.Alert, source string) {
	s.state.ClearExpiredCooldowns()

	s.mu.RLock()
	armed := s.armed
	quiet := s.quiet
	adaptive := s.adaptive
	s.mu.RUnlock()

	decision := gate.Evaluate(&alert, s.state, armed, quiet)

	reason := string(decision.Reason)
	if decision.Deliver {
		level := gate.Level(s.state.NotHelpfulCount(), adaptive)
		interval := gate.EffectiveMinInterval(s.config.BaseNotifyInterval, s.config.ThrottleFactor, level)
		if !s.state.CanNotify(interval) {
			decision.Deliver = false
			reason = ReasonThrottled
		}
	}

	if !decision.Deliver {
		atomic.AddUint64(&s.suppressed, 1)
		s.countReason(reason)
		logging.LogSuppression(s.logger, alert.ID, alert.Symbol, reason)
		s.record(ctx, alert, source, false, reason)
		return
	}

	s.state.MarkAsSeen(alert.ID)
	if alert.Throttle.CooldownSec > 0 && alert.Throttle.DedupeKey != "" {
		s.state.AddCooldown(alert.Throttle.DedupeKey, alert.Throttle.CooldownSec)
	}
	s.state.RecordNotification()

	atomic.AddUint64(&s.delivered, 1)
	logging.LogDelivery(s.logger, alert.ID, alert.Symbol, string(alert.Type), source)
	s.record(ctx, alert, source, true, "")
	s.publish(ctx, alert)
}

// applySnapshot updates global state and feeds every snapshot alert
// through the same gate path as streamed alerts.
func (s *Session) applySnapshot(ctx context.Context, snapshot models.Snapshot) {
	windows, err := gate.ParseWindows(snapshot.QuietHours)

	s.mu.Lock()
	s.armed = snapshot.Armed
	if err == nil {
		s.quiet = windows
		s.quietSpecs = append([]string(nil), snapshot.QuietHours...)
	}
	s.mu.Unlock()

	if err != nil {
		// Keep the previously valid windows.
		s.logger.Warn().Err(err).Msg("Rejecting invalid quiet hours from snapshot")
	}

	for _, alert := range snapshot.Alerts {
		s.evaluate(ctx, alert, SourcePoll)
	}
}

func (s *Session) applyFeedback(ctx context.Context, alertID string, rating models.FeedbackRating) {
	s.state.SetFeedback(alertID, rating)
	count := s.state.NotHelpfulCount()

	s.mu.Lock()
	prev := s.level
	s.level = gate.Level(count, s.adaptive)
	level := s.level
	s.mu.Unlock()

	logging.LogFeedback(s.logger, alertID, string(rating), count)
	if level != prev && level == gate.LevelSuggestAdaptive {
		s.logger.Info().Int("not_helpful", count).Msg("Suggesting adaptive throttle mode")
	}

	if journal := s.getJournal(); journal != nil {
		rec := store.FeedbackRecord{AlertID: alertID, Rating: string(rating), CreatedAt: s.state.Now()}
		if err := journal.RecordFeedback(ctx, rec); err != nil {
			s.logger.Warn().Err(err).Msg("Journal feedback write failed")
		}
	}
}

func (s *Session) applyAdaptive(enabled bool) {
	count := s.state.NotHelpfulCount()
	s.mu.Lock()
	s.adaptive = enabled
	s.level = gate.Level(count, enabled)
	s.mu.Unlock()
}

func (s *Session) getJournal() store.Journal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.journal
}

func (s *Session) record(ctx context.Context, alert models.Alert, source string, delivered bool, reason string) {
	journal := s.getJournal()
	if journal == nil {
		return
	}
	rec := store.DecisionRecord{
		AlertID:     alert.ID,
		Symbol:      alert.Symbol,
		Type:        string(alert.Type),
		Source:      source,
		Delivered:   delivered,
		Reason:      reason,
		EvaluatedAt: s.state.Now(),
	}
	if err := journal.RecordDecision(ctx, rec); err != nil {
		s.logger.Warn().Err(err).Msg("Journal decision write failed")
	}
}

// publish fans a delivered alert out to subscribers and the notifier.
func (s *Session) publish(ctx context.Context, alert models.Alert) {
	s.mu.RLock()
	subscribers := make([]chan models.Alert, len(s.subscribers))
	copy(subscribers, s.subscribers)
	notifier := s.notifier
	s.mu.RUnlock()

	for _, ch := range subscribers {
		select {
		case ch <- alert:
		default:
			// Slow subscriber; drop rather than stall the pipeline.
			atomic.AddUint64(&s.subscriberDrops, 1)
		}
	}

	if notifier != nil && notifier.IsEnabled() {
		// Notifier channels may do I/O; keep it off the event loop.
		go func() {
			if err := notifier.Send(ctx, alert); err != nil {
				s.logger.Warn().Err(err).Str("channel", notifier.Name()).Msg("Notification send failed")
			}
		}()
	}
}

func (s *Session) countReason(reason string) {
	s.reasonsMu.Lock()
	s.byReason[reason]++
	s.reasonsMu.Unlock()
}
