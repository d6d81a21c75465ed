package decode

import "time"

// WordTiming is per-word timing metadata attached to a transcript.
type WordTiming struct {
	Word       string  `json:"word"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence,omitempty"`
	Speaker    *int    `json:"speaker,omitempty"`
}

// TranscriptEvent is one decoded recognition result. Final events are
// settled; interim events may be replaced by later results for the same
// audio span.
type TranscriptEvent struct {
	Text       string
	IsFinal    bool
	Confidence float64
	Words      []WordTiming
	SpeakerID  *int
	Captured   time.Time
	Latency    time.Duration
}

// Stats is a snapshot of the decoder's counters.
type Stats struct {
	Decoded     uint64
	ParseErrors uint64
	LastLatency time.Duration
}

type serverMessage struct {
	Type        string  `json:"type"`
	Message     string  `json:"message,omitempty"`
	IsFinal     bool    `json:"is_final"`
	SpeechFinal bool    `json:"speech_final"`
	Duration    float64 `json:"duration"`
	Start       float64 `json:"start"`
	Timestamp   string  `json:"timestamp,omitempty"`

	Channel struct {
		Alternatives []struct {
			Transcript string       `json:"transcript"`
			Confidence float64      `json:"confidence"`
			Words      []WordTiming `json:"words"`
		} `json:"alternatives"`
	} `json:"channel"`
}
