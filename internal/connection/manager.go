package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voxtype/voxtype/internal/metrics"
)

// closeStreamMsg is the distinguished control message for graceful stream
// termination.
const closeStreamMsg = `{"type":"CloseStream"}`

// wsSession is one physical websocket connection with its pumps. The
// Manager replaces sessions across reconnects; goroutines belonging to a
// replaced session become no-ops through the epoch/active guards.
type wsSession struct {
	conn *websocket.Conn
	send chan []byte

	closing chan struct{}
	done    chan struct{}

	closingOnce sync.Once
	doneOnce    sync.Once

	// failErr overrides the read error when the Manager closed the
	// transport itself, e.g. on a failed health check. Guarded by the
	// Manager's mutex.
	failErr error
}

// stop tears the session down. A graceful stop asks the write pump to send
// CloseStream and a close frame first; a hard stop closes the transport
// immediately.
func (s *wsSession) stop(graceful bool) {
	if graceful {
		s.closingOnce.Do(func() { close(s.closing) })
		return
	}
	s.doneOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

// Manager owns exactly one logical streaming session to the recognition
// service: the connect/disconnect/reconnect state machine, the retry
// counter, and the idle-connection health check. All state and counters
// are mutated only by the Manager itself.
type Manager struct {
	cfg     Config
	cb      Callbacks
	log     *slog.Logger
	metrics *metrics.Metrics

	mu          sync.Mutex
	state       State
	active      *wsSession
	epoch       uint64
	epochCtx    context.Context
	epochCancel context.CancelFunc

	credential    string
	streamCfg     StreamConfig
	autoReconnect bool

	attempt         int
	connectAttempts uint64
	messagesSent    uint64
	lastInbound     time.Time
	connectedAt     time.Time
}

func NewManager(cfg Config, cb Callbacks, log *slog.Logger, m *metrics.Metrics) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		cfg:     normalizeConfig(cfg),
		cb:      cb,
		log:     log.With("component", "connection"),
		metrics: m,
		state:   StateDisconnected,
	}
}

// Connect begins a new session. Any prior connection attempt is cancelled
// first, so calling Connect twice is safe. The credential is opaque: it is
// sent in the handshake header and never logged or persisted.
func (m *Manager) Connect(credential string, streamCfg StreamConfig, autoReconnect bool) error {
	if strings.TrimSpace(credential) == "" {
		return fmt.Errorf("%w: empty token", ErrInvalidCredential)
	}

	m.mu.Lock()
	m.teardownLocked(false)
	epoch := m.epoch
	m.epochCtx, m.epochCancel = context.WithCancel(context.Background())
	m.credential = credential
	m.streamCfg = normalizeStreamConfig(streamCfg)
	m.autoReconnect = autoReconnect
	m.attempt = 0
	m.setStateLocked(StateConnecting)
	m.mu.Unlock()

	go m.dial(epoch)
	return nil
}

// Disconnect always succeeds: it sends the graceful termination message
// when connected, cancels every pending backoff and health-check timer,
// and leaves the Manager Disconnected. No reconnect can fire afterwards.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.teardownLocked(true)
	m.setStateLocked(StateDisconnected)
	m.mu.Unlock()
}

// ForceReconnect tears down any existing transport and restarts the
// connect sequence immediately with a fresh retry counter. Used for manual
// recovery and for configuration changes that need a new session.
func (m *Manager) ForceReconnect() error {
	m.mu.Lock()
	if m.credential == "" {
		m.mu.Unlock()
		return fmt.Errorf("%w: no session configured", ErrNotConnected)
	}
	m.teardownLocked(false)
	epoch := m.epoch
	m.epochCtx, m.epochCancel = context.WithCancel(context.Background())
	m.attempt = 0
	m.setStateLocked(StateConnecting)
	m.mu.Unlock()

	go m.dial(epoch)
	return nil
}

// Send forwards one audio frame over the open transport. When not
// Connected the frame is dropped and logged; callers never block waiting
// for a connection.
func (m *Manager) Send(pcm []byte) error {
	m.mu.Lock()
	s := m.active
	connected := m.state == StateConnected
	m.mu.Unlock()

	if !connected || s == nil {
		m.log.Debug("dropping audio frame, not connected")
		if m.metrics != nil {
			m.metrics.BuffersDropped.Inc()
		}
		return ErrNotConnected
	}

	select {
	case s.send <- pcm:
		return nil
	default:
		m.log.Warn("send buffer full, dropping audio frame")
		if m.metrics != nil {
			m.metrics.BuffersDropped.Inc()
		}
		return nil
	}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Stats returns a consistent snapshot of the Manager's counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := Stats{
		State:           m.state,
		ConnectAttempts: m.connectAttempts,
		RetryAttempt:    m.attempt,
		MessagesSent:    m.messagesSent,
		LastInbound:     m.lastInbound,
	}
	if m.state == StateConnected && !m.connectedAt.IsZero() {
		stats.Uptime = time.Since(m.connectedAt)
	}
	return stats
}

// teardownLocked invalidates the current epoch and stops the active
// transport. Goroutines spawned under the old epoch (dials, backoff
// timers, health checks) fail their epoch guard and exit without
// touching the state machine. Caller holds mu.
func (m *Manager) teardownLocked(graceful bool) {
	m.epoch++
	if m.epochCancel != nil {
		m.epochCancel()
	}
	if m.active != nil {
		m.active.stop(graceful)
		m.active = nil
	}
}

func (m *Manager) setStateLocked(next State) {
	if m.state == next {
		return
	}
	m.log.Info("connection state changed", "from", m.state.String(), "to", next.String())
	m.state = next
	if m.metrics != nil {
		m.metrics.ConnectionState.Set(float64(next))
	}
	if m.cb.OnStateChange != nil {
		m.cb.OnStateChange(next)
	}
}

func (m *Manager) emitErrorLocked(err error) {
	if m.cb.OnError != nil {
		m.cb.OnError(err)
	}
}

func (m *Manager) dial(epoch uint64) {
	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return
	}
	cfg := m.cfg
	streamCfg := m.streamCfg
	credential := m.credential
	parentCtx := m.epochCtx
	m.connectAttempts++
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.ConnectAttempts.Inc()
	}

	wsURL, err := buildListenURL(cfg.APIBaseURL, streamCfg)
	if err != nil {
		m.handleDialFailure(epoch, err, true)
		return
	}

	header := http.Header{}
	header.Set("Authorization", "Token "+credential)

	ctx, cancel := context.WithTimeout(parentCtx, cfg.ConnectTimeout)
	defer cancel()

	dialer := websocket.Dialer{HandshakeTimeout: cfg.ConnectTimeout}
	start := time.Now()
	conn, resp, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		permanent := false
		var netErr net.Error
		switch {
		case resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden):
			err = fmt.Errorf("%w: service rejected handshake (%d)", ErrInvalidCredential, resp.StatusCode)
			permanent = true
		case errors.Is(err, context.DeadlineExceeded),
			errors.As(err, &netErr) && netErr.Timeout():
			err = fmt.Errorf("%w: no handshake within %s", ErrConnectTimeout, cfg.ConnectTimeout)
		default:
			err = fmt.Errorf("dial recognition service: %w", err)
		}
		m.handleDialFailure(epoch, err, permanent)
		return
	}

	if m.metrics != nil {
		m.metrics.ConnectDuration.Observe(time.Since(start).Seconds())
	}

	s := &wsSession{
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		_ = conn.Close()
		return
	}
	m.active = s
	now := time.Now()
	m.lastInbound = now
	m.connectedAt = now
	m.setStateLocked(StateConnected)
	m.mu.Unlock()

	m.log.Info("session established", "model", streamCfg.Model, "sample_rate", streamCfg.SampleRate)

	go m.readLoop(epoch, s)
	go m.writePump(s)
	go m.healthLoop(epoch, s)
}

func (m *Manager) handleDialFailure(epoch uint64, err error, permanent bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch {
		return
	}

	m.emitErrorLocked(err)
	if permanent {
		// Configuration errors are surfaced once and never retried.
		m.setStateLocked(StateError)
		return
	}
	m.retryOrFailLocked(epoch, StateError)
}

// onConnLost handles a transport that stopped reading: server close,
// transport error, or a health-check teardown.
func (m *Manager) onConnLost(epoch uint64, s *wsSession, readErr error) {
	s.stop(false)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch || m.active != s {
		// Replaced by a newer session or an explicit disconnect.
		return
	}
	m.active = nil

	if s.failErr != nil {
		readErr = s.failErr
	}

	if websocket.IsCloseError(readErr, websocket.CloseNormalClosure) {
		m.setStateLocked(StateDisconnected)
		return
	}

	m.emitErrorLocked(fmt.Errorf("connection lost: %w", readErr))
	m.retryOrFailLocked(epoch, StateReconnecting)
}

// retryOrFailLocked either schedules the next reconnection attempt after a
// backoff delay, or enters the terminal Error state when auto-reconnect is
// off or the attempt ceiling is reached. Caller holds mu.
func (m *Manager) retryOrFailLocked(epoch uint64, transitional State) {
	if !m.autoReconnect {
		m.setStateLocked(StateError)
		return
	}
	if m.attempt >= m.cfg.Policy.MaxAttempts {
		m.setStateLocked(StateError)
		m.emitErrorLocked(fmt.Errorf("%w: giving up after %d attempts", ErrRetriesExhausted, m.attempt))
		return
	}

	m.setStateLocked(transitional)
	m.attempt++
	delay := m.cfg.Policy.Delay(m.attempt)
	if m.metrics != nil {
		m.metrics.ReconnectAttempts.Inc()
	}
	m.log.Info("scheduling reconnect",
		"attempt", m.attempt,
		"max_attempts", m.cfg.Policy.MaxAttempts,
		"delay", delay)

	ctx := m.epochCtx
	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return
		}

		m.mu.Lock()
		if m.epoch != epoch {
			m.mu.Unlock()
			return
		}
		m.setStateLocked(StateConnecting)
		m.mu.Unlock()
		m.dial(epoch)
	}()
}

func (m *Manager) readLoop(epoch uint64, s *wsSession) {
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			m.onConnLost(epoch, s, err)
			return
		}

		m.mu.Lock()
		current := m.epoch == epoch && m.active == s
		if current {
			m.lastInbound = time.Now()
		}
		m.mu.Unlock()
		if !current {
			return
		}

		if m.cb.OnMessage != nil && m.cb.OnMessage(raw) {
			m.mu.Lock()
			if m.epoch == epoch {
				// A successfully parsed message proves the session
				// healthy; reconnection starts over from the base delay.
				m.attempt = 0
			}
			m.mu.Unlock()
		}
	}
}

func (m *Manager) writePump(s *wsSession) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case pcm := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.BinaryMessage, pcm); err != nil {
				m.log.Error("websocket write error", "error", err)
				s.stop(false)
				return
			}
			m.mu.Lock()
			m.messagesSent++
			m.mu.Unlock()
			if m.metrics != nil {
				m.metrics.MessagesSent.Inc()
			}

		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.stop(false)
				return
			}

		case <-s.closing:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.TextMessage, []byte(closeStreamMsg))
			_ = s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			s.stop(false)
			return

		case <-s.done:
			return
		}
	}
}

// healthLoop guards against silently-dead connections that never signal
// closure: if nothing arrived within the staleness threshold, the
// transport is torn down and the reconnect path takes over.
func (m *Manager) healthLoop(epoch uint64, s *wsSession) {
	ticker := time.NewTicker(m.cfg.HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			if m.epoch != epoch || m.active != s {
				m.mu.Unlock()
				return
			}
			stale := time.Since(m.lastInbound) > m.cfg.StaleThreshold
			if stale {
				s.failErr = ErrStaleConnection
			}
			m.mu.Unlock()

			if stale {
				m.log.Warn("no inbound traffic within staleness threshold, failing connection",
					"threshold", m.cfg.StaleThreshold)
				s.stop(false)
				return
			}

		case <-s.closing:
			return
		case <-s.done:
			return
		}
	}
}
