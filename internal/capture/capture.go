package capture

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/voxtype/voxtype/internal/audio"
	"github.com/voxtype/voxtype/internal/metrics"
)

// Capture owns the microphone lifecycle and the conversion pipeline from
// the device format to the 16 kHz mono 16-bit wire format. The hardware
// callback never blocks: converted buffers go through a bounded queue and
// are delivered to the consumer on a dedicated goroutine; when the queue
// is full the buffer is dropped and counted.
type Capture struct {
	cfg     Config
	source  Source
	log     *slog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	running bool
	quit    chan struct{}
	drained chan struct{}

	stopped atomic.Bool
	paused  atomic.Bool

	// Owned by the hardware callback while running.
	resampler *audio.Resampler
	handoff   chan AudioBuffer
}

func New(cfg Config, source Source, log *slog.Logger, m *metrics.Metrics) *Capture {
	if log == nil {
		log = slog.Default()
	}
	return &Capture{
		cfg:     normalizeConfig(cfg),
		source:  source,
		log:     log.With("component", "capture"),
		metrics: m,
	}
}

// Start opens the device and begins delivering converted buffers to
// onBuffer and input levels to onLevel. Both callbacks run off the
// hardware thread. Device errors are returned immediately; there is no
// automatic retry.
func (c *Capture) Start(onBuffer BufferFunc, onLevel LevelFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return ErrAlreadyStarted
	}

	resampler, err := audio.NewResampler(c.cfg.DeviceSampleRate, TargetSampleRate)
	if err != nil {
		return ErrFormatUnsupported
	}

	c.resampler = resampler
	c.handoff = make(chan AudioBuffer, handoffDepth)
	c.quit = make(chan struct{})
	c.drained = make(chan struct{})
	c.stopped.Store(false)
	c.paused.Store(false)

	if err := c.source.Open(c.cfg, func(in []float32) { c.onSamples(in, onLevel) }); err != nil {
		c.resampler = nil
		c.handoff = nil
		return err
	}
	c.running = true

	go c.deliver(onBuffer, c.handoff, c.quit, c.drained)

	c.log.Info("capture started",
		"device_rate", c.cfg.DeviceSampleRate,
		"device_channels", c.cfg.DeviceChannels,
		"target_rate", TargetSampleRate)
	return nil
}

// Stop releases the device and stops delivery. Buffers already queued are
// still delivered before Stop returns. Safe to call when not started.
func (c *Capture) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.stopped.Store(true)

	if err := c.source.Close(); err != nil {
		c.log.Warn("closing input device", "error", err)
	}
	close(c.quit)
	drained := c.drained
	c.mu.Unlock()

	<-drained
	c.log.Info("capture stopped")
}

// Pause suspends buffer delivery without releasing the device. Level
// updates keep flowing so a meter stays live while paused.
func (c *Capture) Pause() { c.paused.Store(true) }

// Resume re-enables buffer delivery after Pause.
func (c *Capture) Resume() { c.paused.Store(false) }

func (c *Capture) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// onSamples is the hardware callback: convert, then hand off without
// blocking. A conversion producing no frames (tiny chunk swallowed by the
// resampler) is not an error; the samples carry into the next chunk.
func (c *Capture) onSamples(in []float32, onLevel LevelFunc) {
	if c.stopped.Load() {
		return
	}

	mono := audio.DownmixFloat32(in, c.cfg.DeviceChannels)

	if onLevel != nil {
		onLevel(audio.Level(mono))
	}
	if c.paused.Load() {
		return
	}

	resampled := c.resampler.Process(mono)
	if len(resampled) == 0 {
		return
	}
	pcm := audio.Int16ToPCMBytes(audio.Float32ToInt16(resampled))

	buf := AudioBuffer{
		PCM:        pcm,
		SampleRate: TargetSampleRate,
		Channels:   TargetChannels,
		Frames:     len(resampled),
		Captured:   time.Now(),
	}

	select {
	case c.handoff <- buf:
	default:
		if c.metrics != nil {
			c.metrics.BuffersDropped.Inc()
		}
	}
}

// deliver runs the consumer side of the hand-off queue. After quit it
// drains whatever the callback managed to enqueue, then signals drained.
func (c *Capture) deliver(onBuffer BufferFunc, handoff chan AudioBuffer, quit, drained chan struct{}) {
	defer close(drained)
	for {
		select {
		case buf := <-handoff:
			c.emit(onBuffer, buf)
		case <-quit:
			for {
				select {
				case buf := <-handoff:
					c.emit(onBuffer, buf)
				default:
					return
				}
			}
		}
	}
}

func (c *Capture) emit(onBuffer BufferFunc, buf AudioBuffer) {
	if c.metrics != nil {
		c.metrics.BuffersCaptured.Inc()
	}
	if onBuffer != nil {
		onBuffer(buf)
	}
}
