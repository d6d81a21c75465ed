package connection

import (
	"errors"
	"time"
)

var (
	// ErrNotConnected is returned by Send when no transport is open. The
	// frame is dropped, never queued.
	ErrNotConnected = errors.New("not connected")
	// ErrConnectTimeout marks a handshake that did not complete within
	// the connect timeout.
	ErrConnectTimeout = errors.New("connect timeout")
	// ErrInvalidCredential marks a handshake rejected by the service.
	// Configuration errors are never retried automatically.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrStaleConnection marks a connection that stopped receiving
	// traffic without signaling closure.
	ErrStaleConnection = errors.New("stale connection")
	// ErrRetriesExhausted marks the terminal error state: the attempt
	// ceiling was reached and no further reconnect is scheduled.
	ErrRetriesExhausted = errors.New("reconnect attempts exhausted")
)

// Config controls one Manager. The timeouts default to the fixed product
// values; tests shrink them.
type Config struct {
	// APIBaseURL is the service base, e.g. "https://api.deepgram.com/v1".
	// http(s) schemes are rewritten to ws(s) at dial time.
	APIBaseURL string

	ConnectTimeout time.Duration
	HealthInterval time.Duration
	StaleThreshold time.Duration

	Policy RetryPolicy
}

const (
	defaultConnectTimeout = 15 * time.Second
	defaultHealthInterval = 30 * time.Second
	defaultStaleThreshold = 60 * time.Second

	writeWait  = 10 * time.Second
	pingPeriod = 25 * time.Second

	sendBuffer = 64
)

func normalizeConfig(cfg Config) Config {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.HealthInterval <= 0 {
		cfg.HealthInterval = defaultHealthInterval
	}
	if cfg.StaleThreshold <= 0 {
		cfg.StaleThreshold = defaultStaleThreshold
	}
	cfg.Policy = normalizePolicy(cfg.Policy)
	return cfg
}

// StreamConfig is the per-session recognition configuration, passed to the
// service as query parameters at connection establishment.
type StreamConfig struct {
	Model          string
	Language       string
	SampleRate     int
	Channels       int
	Encoding       string
	InterimResults bool
	SmartFormat    bool
}

func normalizeStreamConfig(cfg StreamConfig) StreamConfig {
	if cfg.Encoding == "" {
		cfg.Encoding = "linear16"
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	return cfg
}

// Callbacks are the Manager's typed callback slots. They are invoked from
// the Manager's own goroutines and must not call back into the Manager.
type Callbacks struct {
	// OnStateChange fires on every state transition.
	OnStateChange func(State)
	// OnMessage receives each raw inbound message. Returning true reports
	// the message parsed successfully, which resets the retry counter.
	OnMessage func(raw []byte) bool
	// OnError receives transport and lifecycle errors. Terminal
	// conditions wrap ErrRetriesExhausted or ErrInvalidCredential;
	// everything else is transient and recovered internally.
	OnError func(error)
}

// Stats is a point-in-time snapshot of the Manager's counters, read
// atomically with respect to state transitions.
type Stats struct {
	State           State
	ConnectAttempts uint64
	RetryAttempt    int
	MessagesSent    uint64
	LastInbound     time.Time
	Uptime          time.Duration
}
