package decode

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/voxtype/voxtype/internal/metrics"
)

var (
	// ErrMalformed marks an inbound message that does not match the
	// service schema.
	ErrMalformed = errors.New("malformed server message")
	// ErrService marks an error frame sent by the recognition service.
	ErrService = errors.New("recognition service error")
)

// Decoder turns raw inbound messages into TranscriptEvents and keeps
// error/latency counters. A malformed message is counted and reported but
// never stops the stream.
type Decoder struct {
	log     *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu          sync.Mutex
	decoded     uint64
	parseErrors uint64
	lastLatency time.Duration
}

func New(log *slog.Logger, m *metrics.Metrics) *Decoder {
	if log == nil {
		log = slog.Default()
	}
	return &Decoder{
		log:     log.With("component", "decoder"),
		metrics: m,
		now:     time.Now,
	}
}

// Decode parses one raw message. It returns (nil, nil) for control frames
// and results that carry no transcript text; those are not errors.
func (d *Decoder) Decode(raw []byte) (*TranscriptEvent, error) {
	var msg serverMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		d.recordParseError()
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch msg.Type {
	case "Results":
	case "Error":
		detail := strings.TrimSpace(msg.Message)
		if detail == "" {
			detail = "no detail provided"
		}
		return nil, fmt.Errorf("%w: %s", ErrService, detail)
	case "":
		d.recordParseError()
		return nil, fmt.Errorf("%w: missing message type", ErrMalformed)
	default:
		// Metadata, SpeechStarted, UtteranceEnd and similar control
		// frames carry no transcript.
		return nil, nil
	}

	if len(msg.Channel.Alternatives) == 0 {
		d.recordParseError()
		return nil, fmt.Errorf("%w: results without alternatives", ErrMalformed)
	}

	alt := msg.Channel.Alternatives[0]
	text := strings.TrimSpace(alt.Transcript)
	if text == "" {
		return nil, nil
	}

	event := &TranscriptEvent{
		Text:       text,
		IsFinal:    msg.IsFinal || msg.SpeechFinal,
		Confidence: clampConfidence(alt.Confidence),
		Words:      alt.Words,
		Captured:   d.now(),
	}
	if len(alt.Words) > 0 && alt.Words[0].Speaker != nil {
		event.SpeakerID = alt.Words[0].Speaker
	}
	if msg.Timestamp != "" {
		if sent, err := time.Parse(time.RFC3339Nano, msg.Timestamp); err == nil {
			event.Latency = d.now().Sub(sent)
		}
	}

	d.recordDecoded(event.Latency)
	return event, nil
}

// Stats returns a snapshot of the decoder counters.
func (d *Decoder) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Stats{
		Decoded:     d.decoded,
		ParseErrors: d.parseErrors,
		LastLatency: d.lastLatency,
	}
}

func (d *Decoder) recordDecoded(latency time.Duration) {
	d.mu.Lock()
	d.decoded++
	if latency > 0 {
		d.lastLatency = latency
	}
	d.mu.Unlock()

	if d.metrics != nil {
		d.metrics.MessagesDecoded.Inc()
		if latency > 0 {
			d.metrics.TranscriptLatency.Observe(latency.Seconds())
		}
	}
}

func (d *Decoder) recordParseError() {
	d.mu.Lock()
	d.parseErrors++
	d.mu.Unlock()

	if d.metrics != nil {
		d.metrics.ParseErrors.Inc()
	}
	d.log.Warn("dropping malformed server message")
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
