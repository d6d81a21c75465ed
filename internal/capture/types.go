package capture

import (
	"errors"
	"time"
)

var (
	// ErrDeviceUnavailable is returned when no usable input device exists
	// or the selected device cannot be opened.
	ErrDeviceUnavailable = errors.New("capture: input device unavailable")

	// ErrPermissionDenied is returned when the platform refuses microphone
	// access.
	ErrPermissionDenied = errors.New("capture: microphone access denied")

	// ErrFormatUnsupported is returned when the device cannot provide a
	// format convertible to the target wire format.
	ErrFormatUnsupported = errors.New("capture: audio format unsupported")

	// ErrAlreadyStarted is returned by Start when capture is running.
	ErrAlreadyStarted = errors.New("capture: already started")
)

// AudioBuffer is one captured chunk in the target wire format. It is
// immutable after creation; ownership transfers to the receiver of the
// buffer callback and the capture side never touches it again.
type AudioBuffer struct {
	PCM        []byte
	SampleRate int
	Channels   int
	Frames     int
	Captured   time.Time
}

// BufferFunc receives converted audio buffers off the hardware thread.
type BufferFunc func(AudioBuffer)

// LevelFunc receives the input level of each hardware callback, linear
// over [0,1].
type LevelFunc func(float64)

const (
	// Wire format expected by the recognition service.
	TargetSampleRate = 16000
	TargetChannels   = 1

	defaultDeviceRate     = 44100
	defaultDeviceChannels = 1
	defaultFramesPerCB    = 1024

	// Depth of the hand-off queue between the hardware callback and the
	// delivery goroutine. The callback drops when the queue is full.
	handoffDepth = 32
)

// Config describes the device-side capture format. The zero value picks
// sensible defaults for a desktop microphone.
type Config struct {
	DeviceSampleRate int
	DeviceChannels   int
	FramesPerBuffer  int
}

func normalizeConfig(cfg Config) Config {
	if cfg.DeviceSampleRate <= 0 {
		cfg.DeviceSampleRate = defaultDeviceRate
	}
	if cfg.DeviceChannels <= 0 {
		cfg.DeviceChannels = defaultDeviceChannels
	}
	if cfg.FramesPerBuffer <= 0 {
		cfg.FramesPerBuffer = defaultFramesPerCB
	}
	return cfg
}
