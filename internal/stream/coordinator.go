package stream

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voxtype/voxtype/internal/capture"
	"github.com/voxtype/voxtype/internal/connection"
	"github.com/voxtype/voxtype/internal/decode"
	"github.com/voxtype/voxtype/internal/metrics"
)

// switchDelay is the pause between tearing down a session and redialing
// with a new model, giving the service time to finalize the old stream.
const switchDelay = 250 * time.Millisecond

// Coordinator wires capture, connection, and decoding into one pipeline
// and presents the consumer surface: transcript events, state changes,
// errors, levels, and a diagnostics snapshot. Captured audio flows to the
// connection only while it is Connected; anything earlier is dropped, not
// queued, because stale audio has no transcription value.
type Coordinator struct {
	log     *slog.Logger
	metrics *metrics.Metrics

	capture  *capture.Capture
	conn     *connection.Manager
	decoder  *decode.Decoder
	notifier *notifier

	mu         sync.Mutex
	cfg        Config
	configured bool
	running    bool
	generation uint64
	sessionID  string
}

// New builds a Coordinator around an existing capture pipeline and
// decoder. The connection manager is constructed here so its callbacks
// can feed the coordinator's dispatch queue.
func New(capt *capture.Capture, dec *decode.Decoder, connCfg connection.Config, log *slog.Logger, m *metrics.Metrics) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	c := &Coordinator{
		log:      log.With("component", "stream"),
		metrics:  m,
		capture:  capt,
		decoder:  dec,
		notifier: newNotifier(),
	}
	c.conn = connection.NewManager(connCfg, connection.Callbacks{
		OnStateChange: c.onState,
		OnMessage:     c.onMessage,
		OnError:       c.onError,
	}, log, m)
	return c
}

// Subscribe registers a listener and returns its id for Unsubscribe.
func (c *Coordinator) Subscribe(l Listener) string {
	return c.notifier.subscribe(l)
}

func (c *Coordinator) Unsubscribe(id string) {
	c.notifier.unsubscribe(id)
}

// Configure stores the session parameters for the next Start. Calling it
// while running only affects future sessions.
func (c *Coordinator) Configure(cfg Config) error {
	if strings.TrimSpace(cfg.Credential) == "" {
		return fmt.Errorf("%w: missing credential", ErrNotConfigured)
	}
	c.mu.Lock()
	c.cfg = cfg
	c.configured = true
	c.mu.Unlock()
	return nil
}

// Start begins capture and connection together. A capture failure aborts
// the start; connection failures surface through the error callbacks and
// the reconnect machinery instead.
func (c *Coordinator) Start() error {
	c.mu.Lock()
	if !c.configured {
		c.mu.Unlock()
		return ErrNotConfigured
	}
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	cfg := c.cfg
	c.running = true
	c.generation++
	c.sessionID = uuid.New().String()
	sessionID := c.sessionID
	c.mu.Unlock()

	if err := c.capture.Start(c.onBuffer, c.onLevel); err != nil {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		return fmt.Errorf("start capture: %w", err)
	}

	if err := c.conn.Connect(cfg.Credential, c.streamConfig(cfg), cfg.AutoReconnect); err != nil {
		c.capture.Stop()
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		return fmt.Errorf("start connection: %w", err)
	}

	c.log.Info("session started", "session_id", sessionID, "model", cfg.Model)
	return nil
}

// Stop tears the pipeline down: capture first so no new buffers are
// generated, then a graceful disconnect. Safe to call when not running.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.generation++
	sessionID := c.sessionID
	c.mu.Unlock()

	c.capture.Stop()
	c.conn.Disconnect()
	c.log.Info("session stopped", "session_id", sessionID)
}

// SwitchModel changes the recognition model. A live session is redialed
// with the new model after a short delay, preserving the configured
// auto-reconnect preference; otherwise only the pending configuration is
// updated.
func (c *Coordinator) SwitchModel(model string) error {
	c.mu.Lock()
	if !c.configured {
		c.mu.Unlock()
		return ErrNotConfigured
	}
	c.cfg.Model = model
	cfg := c.cfg
	live := c.running && c.conn.State() != connection.StateDisconnected
	if !live {
		c.mu.Unlock()
		return nil
	}
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	c.log.Info("switching model", "model", model)
	c.conn.Disconnect()

	go func() {
		time.Sleep(switchDelay)
		c.mu.Lock()
		stale := !c.running || c.generation != gen
		c.mu.Unlock()
		if stale {
			return
		}
		if err := c.conn.Connect(cfg.Credential, c.streamConfig(cfg), cfg.AutoReconnect); err != nil {
			c.onError(fmt.Errorf("reconnect with model %q: %w", model, err))
		}
	}()
	return nil
}

// Diagnostics assembles a snapshot from the connection and decoder
// counters. Pure read, no side effects.
func (c *Coordinator) Diagnostics() Diagnostics {
	c.mu.Lock()
	sessionID := c.sessionID
	c.mu.Unlock()

	connStats := c.conn.Stats()
	decStats := c.decoder.Stats()
	return Diagnostics{
		SessionID:       sessionID,
		State:           connStats.State,
		ConnectAttempts: connStats.ConnectAttempts,
		RetryAttempt:    connStats.RetryAttempt,
		MessagesSent:    connStats.MessagesSent,
		Decoded:         decStats.Decoded,
		ParseErrors:     decStats.ParseErrors,
		LastLatency:     decStats.LastLatency,
		Uptime:          connStats.Uptime,
	}
}

// Close releases the dispatch goroutine. The coordinator is unusable
// afterwards.
func (c *Coordinator) Close() {
	c.Stop()
	c.notifier.close()
}

func (c *Coordinator) streamConfig(cfg Config) connection.StreamConfig {
	return connection.StreamConfig{
		Model:          cfg.Model,
		Language:       cfg.Language,
		SampleRate:     capture.TargetSampleRate,
		Channels:       capture.TargetChannels,
		InterimResults: true,
		SmartFormat:    true,
	}
}

// onBuffer forwards one captured buffer to the connection. Send drops the
// frame itself when the session is not Connected.
func (c *Coordinator) onBuffer(buf capture.AudioBuffer) {
	if err := c.conn.Send(buf.PCM); err != nil {
		if !errors.Is(err, connection.ErrNotConnected) {
			c.log.Warn("forwarding audio buffer", "error", err)
		}
		return
	}
	if c.metrics != nil {
		c.metrics.BuffersSentUpstream.Inc()
	}
}

func (c *Coordinator) onLevel(level float64) {
	c.notifier.enqueue(notification{level: &level})
}

// onMessage decodes one inbound frame. The return value reports whether
// the frame decoded cleanly, which the connection layer uses to reset its
// retry counter.
func (c *Coordinator) onMessage(raw []byte) bool {
	event, err := c.decoder.Decode(raw)
	if err != nil {
		if errors.Is(err, decode.ErrService) {
			c.notifier.enqueue(notification{err: err})
		}
		return false
	}
	if event != nil {
		c.notifier.enqueue(notification{event: event})
		if c.metrics != nil {
			c.metrics.EventsPublished.Inc()
		}
	}
	return true
}

func (c *Coordinator) onState(s connection.State) {
	c.notifier.enqueue(notification{state: &s})
}

func (c *Coordinator) onError(err error) {
	c.notifier.enqueue(notification{err: err})
}
