package notify

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"tradepulse/internal/models"
)

func TestTerminalNotifierSend(t *testing.T) {
	var buf bytes.Buffer
	n := NewTerminalNotifierWithWriter(&buf)

	alert := models.Alert{
		ID:      "a1",
		Type:    models.AlertProtect,
		Symbol:  "TSLA",
		Message: "TSLA breached stop level",
		Actions: []string{"sell_now", "snooze"},
		Safety:  models.Safety{MaxLoss: 120.50, SlippageEstimate: 0.35, ExecutionConfidence: 0.9},
	}
	if err := n.Send(context.Background(), alert); err != nil {
		t.Fatalf("Send: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"PROTECT", "TSLA", "breached stop level", "sell_now, snooze", "max loss: 120.50"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTerminalNotifierOpportunityBadge(t *testing.T) {
	var buf bytes.Buffer
	n := NewTerminalNotifierWithWriter(&buf)

	alert := models.Alert{ID: "a1", Type: models.AlertOpportunity, Symbol: "AAPL", Message: "m"}
	if err := n.Send(context.Background(), alert); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !strings.Contains(buf.String(), "OPPORTUNITY") {
		t.Errorf("output missing opportunity badge:\n%s", buf.String())
	}
}

type stubNotifier struct {
	name    string
	enabled bool
	err     error
	sent    int
}

func (s *stubNotifier) Name() string    { return s.name }
func (s *stubNotifier) IsEnabled() bool { return s.enabled }
func (s *stubNotifier) Send(context.Context, models.Alert) error {
	s.sent++
	return s.err
}

func TestMultiNotifier(t *testing.T) {
	failing := &stubNotifier{name: "failing", enabled: true, err: errors.New("boom")}
	disabled := &stubNotifier{name: "disabled"}
	ok := &stubNotifier{name: "ok", enabled: true}

	m := NewMultiNotifier(failing, disabled, ok)
	if !m.IsEnabled() {
		t.Fatal("multi should be enabled when any channel is")
	}

	err := m.Send(context.Background(), models.Alert{ID: "a1"})
	if err == nil || err.Error() != "boom" {
		t.Errorf("Send = %v, want the first channel error", err)
	}
	if failing.sent != 1 || ok.sent != 1 {
		t.Errorf("sends = %d/%d, a failing channel must not block others", failing.sent, ok.sent)
	}
	if disabled.sent != 0 {
		t.Error("disabled channel must not be called")
	}
}

func TestMultiNotifierAllDisabled(t *testing.T) {
	m := NewMultiNotifier(&stubNotifier{name: "a"}, &stubNotifier{name: "b"})
	if m.IsEnabled() {
		t.Error("multi with only disabled channels should report disabled")
	}
}
