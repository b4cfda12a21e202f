// Package stream maintains the live websocket connection to the upstream
// alert feed and emits parsed alerts in arrival order.
package stream

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	apperrors "tradepulse/internal/errors"
	"tradepulse/internal/models"
	"tradepulse/pkg/utils"
)

// ConnState represents the ingestor's connection state.
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
)

// Config holds ingestor configuration.
type Config struct {
	// URL is the websocket endpoint, e.g. wss://host/ws/alerts.
	URL string
	// HandshakeTimeout bounds the websocket dial.
	HandshakeTimeout time.Duration
	// BaseDelay is the first reconnect delay; doubles per consecutive
	// failure up to MaxDelay, with jitter.
	BaseDelay time.Duration
	// MaxDelay caps the reconnect delay.
	MaxDelay time.Duration
}

// DefaultConfig returns the default ingestor configuration.
func DefaultConfig(url string) Config {
	return Config{
		URL:              url,
		HandshakeTimeout: 10 * time.Second,
		BaseDelay:        time.Second,
		MaxDelay:         30 * time.Second,
	}
}

// Ingestor is the websocket alert feed client.
//
// State machine: Disconnected -> Connecting -> Connected, back to
// Disconnected on close or error. Reconnects are attempted only while
// enabled, with capped exponential backoff and jitter. Disable closes the
// underlying connection synchronously and stops reconnect attempts.
//
// Each successfully parsed alert is emitted exactly once, in arrival
// order, on the goroutine that reads the socket. There is no replay
// across reconnects; the polling fetcher reconciles missed alerts.
type Ingestor struct {
	config Config
	logger zerolog.Logger
	dialer *websocket.Dialer

	onAlert func(models.Alert)
	onState func(ConnState)
	onError func(error)

	mu      sync.RWMutex
	state   ConnState
	conn    *websocket.Conn
	enabled bool
	stop    chan struct{}
	done    chan struct{}

	// Metrics
	alertsReceived  uint64
	payloadsDropped uint64
}

// NewIngestor creates a new alert feed ingestor.
func NewIngestor(config Config, logger zerolog.Logger) *Ingestor {
	return &Ingestor{
		config: config,
		logger: logger.With().Str("component", "stream").Logger(),
		dialer: &websocket.Dialer{HandshakeTimeout: config.HandshakeTimeout},
		state:  StateDisconnected,
	}
}

// OnAlert sets the alert handler. Must be set before Enable.
func (in *Ingestor) OnAlert(handler func(models.Alert)) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.onAlert = handler
}

// OnStateChange sets the connection state handler.
func (in *Ingestor) OnStateChange(handler func(ConnState)) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.onState = handler
}

// OnError sets the error handler. Errors delivered here are transport
// level and already handled by the reconnect loop; handlers should treat
// them as observability signals.
func (in *Ingestor) OnError(handler func(error)) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.onError = handler
}

// Enable starts the connect/read/reconnect loop. It is a no-op when
// already enabled.
func (in *Ingestor) Enable(ctx context.Context) {
	in.mu.Lock()
	if in.enabled {
		in.mu.Unlock()
		return
	}
	in.enabled = true
	in.stop = make(chan struct{})
	in.done = make(chan struct{})
	stop, done := in.stop, in.done
	in.mu.Unlock()

	go in.run(ctx, stop, done)
}

// Disable stops the ingestor: the underlying connection is closed
// synchronously and no further reconnects are attempted. Safe to call
// from teardown paths and when already disabled.
func (in *Ingestor) Disable() {
	in.mu.Lock()
	if !in.enabled {
		in.mu.Unlock()
		return
	}
	in.enabled = false
	close(in.stop)
	if in.conn != nil {
		in.conn.Close()
		in.conn = nil
	}
	done := in.done
	in.mu.Unlock()

	<-done
}

// State returns the current connection state.
func (in *Ingestor) State() ConnState {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.state
}

// IsConnected reports whether the feed is currently connected.
func (in *Ingestor) IsConnected() bool {
	return in.State() == StateConnected
}

// AlertsReceived returns the number of alerts parsed and emitted.
func (in *Ingestor) AlertsReceived() uint64 {
	return atomic.LoadUint64(&in.alertsReceived)
}

// PayloadsDropped returns the number of malformed payloads dropped.
func (in *Ingestor) PayloadsDropped() uint64 {
	return atomic.LoadUint64(&in.payloadsDropped)
}

// run is the connect/read/reconnect loop.
func (in *Ingestor) run(ctx context.Context, stop, done chan struct{}) {
	defer close(done)
	defer in.setState(StateDisconnected)

	attempt := 0
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		in.setState(StateConnecting)

		conn, _, err := in.dialer.DialContext(ctx, in.config.URL, nil)
		if err != nil {
			in.reportError(apperrors.NewTransportError("dial", in.config.URL, err))
			in.setState(StateDisconnected)
			if !in.waitBackoff(ctx, stop, attempt) {
				return
			}
			attempt++
			continue
		}

		in.mu.Lock()
		if !in.enabled {
			// Disabled during the dial; release the socket and leave.
			in.mu.Unlock()
			conn.Close()
			return
		}
		in.conn = conn
		in.mu.Unlock()

		in.setState(StateConnected)
		attempt = 0

		in.readLoop(conn)

		in.mu.Lock()
		in.conn = nil
		enabled := in.enabled
		in.mu.Unlock()

		in.setState(StateDisconnected)

		if !enabled {
			return
		}
		if !in.waitBackoff(ctx, stop, attempt) {
			return
		}
		attempt++
	}
}

// readLoop reads messages until the connection errors or closes.
// Malformed payloads are logged and dropped; the connection survives.
func (in *Ingestor) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			in.mu.RLock()
			enabled := in.enabled
			in.mu.RUnlock()
			if enabled {
				in.reportError(apperrors.NewTransportError("read", in.config.URL, err))
			}
			return
		}

		var alert models.Alert
		if err := json.Unmarshal(data, &alert); err != nil || alert.ID == "" {
			if err == nil {
				err = apperrors.ErrEmptyAlertID
			}
			perr := apperrors.NewParseError("stream", data, err)
			atomic.AddUint64(&in.payloadsDropped, 1)
			in.logger.Warn().Err(perr).Str("payload", perr.Payload).Msg("Dropping malformed alert payload")
			continue
		}

		atomic.AddUint64(&in.alertsReceived, 1)

		in.mu.RLock()
		handler := in.onAlert
		in.mu.RUnlock()
		if handler != nil {
			handler(alert)
		}
	}
}

// waitBackoff sleeps for the backoff delay of the given attempt.
// Returns false when the ingestor was stopped during the wait.
func (in *Ingestor) waitBackoff(ctx context.Context, stop chan struct{}, attempt int) bool {
	delay := utils.CalculateBackoff(attempt, in.config.BaseDelay, in.config.MaxDelay, 2.0)
	delay = utils.AddJitter(delay)

	in.logger.Debug().Dur("delay", delay).Int("attempt", attempt).Msg("Reconnect backoff")

	select {
	case <-time.After(delay):
		return true
	case <-stop:
		return false
	case <-ctx.Done():
		return false
	}
}

func (in *Ingestor) setState(state ConnState) {
	in.mu.Lock()
	if in.state == state {
		in.mu.Unlock()
		return
	}
	in.state = state
	handler := in.onState
	in.mu.Unlock()

	if handler != nil {
		handler(state)
	}
}

func (in *Ingestor) reportError(err error) {
	in.mu.RLock()
	handler := in.onError
	in.mu.RUnlock()
	if handler != nil {
		handler(err)
	}
}
