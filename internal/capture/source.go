package capture

import (
	"fmt"
	"strings"

	"github.com/gordonklaus/portaudio"
)

// Source is the audio input the capture pipeline reads from. Open installs
// a callback invoked on the hardware thread with interleaved float32
// samples; Close releases the device. Implementations must not call the
// callback after Close returns.
type Source interface {
	Open(cfg Config, onSamples func([]float32)) error
	Close() error
}

// portaudioSource drives the default system input device through
// PortAudio. One Initialize/Terminate pair brackets each open stream.
type portaudioSource struct {
	stream *portaudio.Stream
}

// NewPortAudioSource returns a Source backed by the default input device.
func NewPortAudioSource() Source {
	return &portaudioSource{}
}

func (p *portaudioSource) Open(cfg Config, onSamples func([]float32)) error {
	if err := portaudio.Initialize(); err != nil {
		return classifyDeviceError(err)
	}

	stream, err := portaudio.OpenDefaultStream(
		cfg.DeviceChannels, 0, float64(cfg.DeviceSampleRate), cfg.FramesPerBuffer,
		func(in []float32) { onSamples(in) },
	)
	if err != nil {
		_ = portaudio.Terminate()
		return classifyDeviceError(err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return classifyDeviceError(err)
	}
	p.stream = stream
	return nil
}

func (p *portaudioSource) Close() error {
	if p.stream == nil {
		return nil
	}
	stopErr := p.stream.Stop()
	closeErr := p.stream.Close()
	p.stream = nil
	termErr := portaudio.Terminate()

	if stopErr != nil {
		return stopErr
	}
	if closeErr != nil {
		return closeErr
	}
	return termErr
}

// classifyDeviceError maps host API failures onto the package sentinels so
// callers can distinguish a missing device from a denied permission.
func classifyDeviceError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "permission") || strings.Contains(msg, "access denied"):
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	case strings.Contains(msg, "sample rate") || strings.Contains(msg, "format") ||
		strings.Contains(msg, "channel count"):
		return fmt.Errorf("%w: %v", ErrFormatUnsupported, err)
	default:
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
}
