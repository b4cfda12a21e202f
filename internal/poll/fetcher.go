// Package poll periodically pulls the current alert snapshot as a
// complement and fallback to the live stream.
package poll

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tradepulse/internal/models"
	"tradepulse/internal/upstream"
)

// DefaultInterval is the default polling interval.
const DefaultInterval = 2 * time.Minute

// Fetcher runs the snapshot polling loop. A fetch failure retains the
// last known-good snapshot untouched and records the error; the loop
// itself never stops on error.
type Fetcher struct {
	client   *upstream.Client
	interval time.Duration
	logger   zerolog.Logger

	onSnapshot func(models.Snapshot)

	mu        sync.RWMutex
	snapshot  *models.Snapshot
	lastErr   error
	lastFetch time.Time
	running   bool
	stop      chan struct{}
	done      chan struct{}
	kick      chan struct{}
}

// NewFetcher creates a new snapshot fetcher. A zero interval falls back
// to DefaultInterval.
func NewFetcher(client *upstream.Client, interval time.Duration, logger zerolog.Logger) *Fetcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Fetcher{
		client:   client,
		interval: interval,
		logger:   logger.With().Str("component", "poll").Logger(),
		kick:     make(chan struct{}, 1),
	}
}

// OnSnapshot sets the handler invoked with each successfully fetched
// snapshot. Must be set before Start.
func (f *Fetcher) OnSnapshot(handler func(models.Snapshot)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onSnapshot = handler
}

// Start begins the polling loop with an immediate first fetch. It is a
// no-op when already running.
func (f *Fetcher) Start(ctx context.Context) {
	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return
	}
	f.running = true
	f.stop = make(chan struct{})
	f.done = make(chan struct{})
	stop, done := f.stop, f.done
	f.mu.Unlock()

	go f.loop(ctx, stop, done)
}

// Stop cancels the polling loop and its pending timer. Safe to call from
// teardown paths and when already stopped.
func (f *Fetcher) Stop() {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return
	}
	f.running = false
	close(f.stop)
	done := f.done
	f.mu.Unlock()

	<-done
}

// Kick requests an immediate fetch outside the regular interval, e.g.
// when the user's window regains focus. Coalesces when one is pending.
func (f *Fetcher) Kick() {
	select {
	case f.kick <- struct{}{}:
	default:
	}
}

// Snapshot returns the last known-good snapshot, or nil before the first
// successful fetch.
func (f *Fetcher) Snapshot() *models.Snapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.snapshot
}

// LastError returns the error of the most recent fetch attempt, nil when
// it succeeded.
func (f *Fetcher) LastError() error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.lastErr
}

// LastFetch returns the time of the most recent successful fetch.
func (f *Fetcher) LastFetch() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.lastFetch
}

func (f *Fetcher) loop(ctx context.Context, stop, done chan struct{}) {
	defer close(done)

	f.fetchOnce(ctx)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-f.kick:
			f.fetchOnce(ctx)
		case <-ticker.C:
			f.fetchOnce(ctx)
		}
	}
}

// fetchOnce performs one snapshot fetch. The stored snapshot is replaced
// only on success; there is no partial overwrite.
func (f *Fetcher) fetchOnce(ctx context.Context) {
	snapshot, err := f.client.FetchSnapshot(ctx)

	f.mu.Lock()
	if err != nil {
		f.lastErr = err
		f.mu.Unlock()
		f.logger.Warn().Err(err).Msg("Snapshot fetch failed, retaining last known-good")
		return
	}
	f.snapshot = snapshot
	f.lastErr = nil
	f.lastFetch = time.Now()
	handler := f.onSnapshot
	f.mu.Unlock()

	f.logger.Debug().Int("alerts", len(snapshot.Alerts)).Bool("armed", snapshot.Armed).Msg("Snapshot fetched")

	if handler != nil {
		handler(*snapshot)
	}
}
