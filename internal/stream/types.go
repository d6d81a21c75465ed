package stream

import (
	"errors"
	"time"

	"github.com/voxtype/voxtype/internal/connection"
	"github.com/voxtype/voxtype/internal/decode"
)

var (
	// ErrNotConfigured is returned by Start before Configure has supplied
	// a credential.
	ErrNotConfigured = errors.New("stream: not configured")

	// ErrAlreadyRunning is returned by Start while a session is active.
	ErrAlreadyRunning = errors.New("stream: already running")
)

// Config is the caller-supplied session configuration. The credential is
// opaque and is handed to the connection layer untouched.
type Config struct {
	Credential    string
	Model         string
	Language      string
	AutoReconnect bool
}

// Listener is one subscriber's callback surface. Nil fields are skipped.
// Callbacks run on the dispatch goroutine in arrival order; a slow
// callback delays later notifications for every subscriber but nothing
// is dropped or reordered.
type Listener struct {
	OnTranscript func(decode.TranscriptEvent)
	OnState      func(connection.State)
	OnError      func(error)
	OnLevel      func(float64)
}

// Diagnostics is an on-demand snapshot assembled from the connection and
// decoder counters. It is never persisted.
type Diagnostics struct {
	SessionID       string
	State           connection.State
	ConnectAttempts uint64
	RetryAttempt    int
	MessagesSent    uint64
	Decoded         uint64
	ParseErrors     uint64
	LastLatency     time.Duration
	Uptime          time.Duration
}
