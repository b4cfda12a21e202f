// Package notify delivers gated alerts to the presentation layer.
package notify

import (
	"context"

	"tradepulse/internal/models"
)

// Notifier defines the interface for a delivery channel.
type Notifier interface {
	Name() string
	Send(ctx context.Context, alert models.Alert) error
	IsEnabled() bool
}

// MultiNotifier fans a delivered alert out to several channels. A failing
// channel does not block the others; the first error is returned.
type MultiNotifier struct {
	channels []Notifier
}

// NewMultiNotifier creates a notifier over the given channels.
func NewMultiNotifier(channels ...Notifier) *MultiNotifier {
	return &MultiNotifier{channels: channels}
}

// Name implements Notifier.
func (m *MultiNotifier) Name() string { return "multi" }

// IsEnabled reports whether any channel is enabled.
func (m *MultiNotifier) IsEnabled() bool {
	for _, ch := range m.channels {
		if ch.IsEnabled() {
			return true
		}
	}
	return false
}

// Send implements Notifier.
func (m *MultiNotifier) Send(ctx context.Context, alert models.Alert) error {
	var firstErr error
	for _, ch := range m.channels {
		if !ch.IsEnabled() {
			continue
		}
		if err := ch.Send(ctx, alert); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
