package notify

import (
	"io"
	"log/slog"
	"testing"

	"github.com/voxtype/voxtype/internal/connection"
)

func newTestNotifier(enabled bool) (*Notifier, *[]string, *[]string) {
	n := New(enabled, slog.New(slog.NewTextHandler(io.Discard, nil)))
	var notices, alerts []string
	n.notifyFn = func(_, msg string) error {
		notices = append(notices, msg)
		return nil
	}
	n.alertFn = func(_, msg string) error {
		alerts = append(alerts, msg)
		return nil
	}
	return n, &notices, &alerts
}

func TestNotifier_ReconnectCycle(t *testing.T) {
	n, notices, alerts := newTestNotifier(true)
	l := n.Listener()

	l.OnState(connection.StateConnecting)
	l.OnState(connection.StateConnected)
	if len(*notices) != 0 {
		t.Errorf("first connect should be silent, got %v", *notices)
	}

	l.OnState(connection.StateReconnecting)
	l.OnState(connection.StateConnecting)
	l.OnState(connection.StateConnected)

	want := []string{"Connection lost, reconnecting", "Connection restored"}
	if len(*notices) != len(want) {
		t.Fatalf("notices = %v, want %v", *notices, want)
	}
	for i := range want {
		if (*notices)[i] != want[i] {
			t.Errorf("notice %d = %q, want %q", i, (*notices)[i], want[i])
		}
	}
	if len(*alerts) != 0 {
		t.Errorf("unexpected alerts: %v", *alerts)
	}
}

func TestNotifier_TerminalFailureAlerts(t *testing.T) {
	n, _, alerts := newTestNotifier(true)
	l := n.Listener()

	l.OnError(connection.ErrRetriesExhausted)
	l.OnState(connection.StateError)

	if len(*alerts) != 2 {
		t.Fatalf("alerts = %v, want give-up alert and failure alert", *alerts)
	}
}

func TestNotifier_CredentialRejection(t *testing.T) {
	n, _, alerts := newTestNotifier(true)
	n.Listener().OnError(connection.ErrInvalidCredential)

	if len(*alerts) != 1 {
		t.Fatalf("alerts = %v, want one credential alert", *alerts)
	}
}

func TestNotifier_DisabledStaysQuiet(t *testing.T) {
	n, notices, alerts := newTestNotifier(false)
	l := n.Listener()

	l.OnState(connection.StateReconnecting)
	l.OnState(connection.StateError)
	l.OnError(connection.ErrRetriesExhausted)
	n.Announce("recording started")

	if len(*notices) != 0 || len(*alerts) != 0 {
		t.Errorf("disabled notifier still fired: %v %v", *notices, *alerts)
	}
}
