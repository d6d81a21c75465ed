package notify

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gen2brain/beeep"

	"github.com/voxtype/voxtype/internal/connection"
	"github.com/voxtype/voxtype/internal/stream"
)

const appTitle = "Voxtype"

// Notifier raises desktop notifications for connection events the user
// should know about: session up, reconnecting, and terminal failures.
// Everything else stays quiet.
type Notifier struct {
	log     *slog.Logger
	enabled bool

	notifyFn func(title, message string) error
	alertFn  func(title, message string) error

	lastState connection.State
}

func New(enabled bool, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{
		log:      log.With("component", "notify"),
		enabled:  enabled,
		notifyFn: func(title, msg string) error { return beeep.Notify(title, msg, "") },
		alertFn:  func(title, msg string) error { return beeep.Alert(title, msg, "") },
	}
}

// Listener returns the subscription surface to register with the stream
// coordinator.
func (n *Notifier) Listener() stream.Listener {
	return stream.Listener{
		OnState: n.onState,
		OnError: n.onError,
	}
}

func (n *Notifier) onState(s connection.State) {
	prev := n.lastState
	n.lastState = s
	if !n.enabled {
		return
	}

	switch s {
	case connection.StateConnected:
		if prev == connection.StateReconnecting {
			n.send(n.notifyFn, "Connection restored")
		}
	case connection.StateReconnecting:
		n.send(n.notifyFn, "Connection lost, reconnecting")
	case connection.StateError:
		n.send(n.alertFn, "Transcription stopped: connection failed")
	}
}

func (n *Notifier) onError(err error) {
	if !n.enabled {
		return
	}
	switch {
	case errors.Is(err, connection.ErrInvalidCredential):
		n.send(n.alertFn, "API key rejected, check your credentials")
	case errors.Is(err, connection.ErrRetriesExhausted):
		n.send(n.alertFn, "Gave up reconnecting")
	}
}

func (n *Notifier) send(fn func(title, message string) error, message string) {
	if err := fn(appTitle, message); err != nil {
		n.log.Debug("desktop notification failed", "error", err)
	}
}

// Announce raises a one-off informational notification, e.g. "recording
// started".
func (n *Notifier) Announce(format string, args ...any) {
	if !n.enabled {
		return
	}
	n.send(n.notifyFn, fmt.Sprintf(format, args...))
}
