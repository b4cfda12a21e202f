package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"tradepulse/internal/models"
)

// TerminalNotifier prints delivered alerts to the terminal.
type TerminalNotifier struct {
	out     io.Writer
	enabled bool
	mu      sync.Mutex
}

// NewTerminalNotifier creates a terminal notifier writing to stdout.
func NewTerminalNotifier() *TerminalNotifier {
	return &TerminalNotifier{out: os.Stdout, enabled: true}
}

// NewTerminalNotifierWithWriter creates a terminal notifier with a custom writer.
func NewTerminalNotifierWithWriter(w io.Writer) *TerminalNotifier {
	return &TerminalNotifier{out: w, enabled: true}
}

// Name implements Notifier.
func (t *TerminalNotifier) Name() string { return "terminal" }

// IsEnabled implements Notifier.
func (t *TerminalNotifier) IsEnabled() bool { return t.enabled }

// SetEnabled toggles the channel.
func (t *TerminalNotifier) SetEnabled(enabled bool) { t.enabled = enabled }

// Send implements Notifier.
func (t *TerminalNotifier) Send(_ context.Context, alert models.Alert) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	badge := "OPPORTUNITY"
	if alert.Type == models.AlertProtect {
		badge = "PROTECT"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n[%s] %s  %s\n", badge, alert.Symbol, time.Now().Format("15:04:05"))
	fmt.Fprintf(&b, "  %s\n", alert.Message)
	if len(alert.Actions) > 0 {
		fmt.Fprintf(&b, "  actions: %s\n", strings.Join(alert.Actions, ", "))
	}
	if alert.Safety.MaxLoss != 0 {
		fmt.Fprintf(&b, "  max loss: %.2f  slippage: %.2f  confidence: %.0f%%\n",
			alert.Safety.MaxLoss, alert.Safety.SlippageEstimate, alert.Safety.ExecutionConfidence*100)
	}

	_, err := io.WriteString(t.out, b.String())
	return err
}

// Ensure TerminalNotifier implements Notifier
var _ Notifier = (*TerminalNotifier)(nil)
