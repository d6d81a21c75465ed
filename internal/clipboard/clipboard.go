package clipboard

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/atotto/clipboard"

	"github.com/voxtype/voxtype/internal/decode"
	"github.com/voxtype/voxtype/internal/stream"
)

// Writer hands finished transcript text to the system clipboard so the
// user can paste it wherever the cursor is. Interim results never touch
// the clipboard.
type Writer struct {
	log    *slog.Logger
	copyFn func(string) error

	mu       sync.Mutex
	segments []string
}

func New(log *slog.Logger) *Writer {
	if log == nil {
		log = slog.Default()
	}
	return &Writer{
		log:    log.With("component", "clipboard"),
		copyFn: clipboard.WriteAll,
	}
}

// Copy places text on the system clipboard.
func (w *Writer) Copy(text string) error {
	return w.copyFn(text)
}

// Reset clears the accumulated session text, for the start of a new
// recording.
func (w *Writer) Reset() {
	w.mu.Lock()
	w.segments = nil
	w.mu.Unlock()
}

// Text returns the session transcript accumulated so far.
func (w *Writer) Text() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return strings.Join(w.segments, " ")
}

// Listener returns the subscription surface: every final segment is
// appended to the session text and the whole text is re-copied, so the
// clipboard always holds the complete transcript.
func (w *Writer) Listener() stream.Listener {
	return stream.Listener{OnTranscript: w.onTranscript}
}

func (w *Writer) onTranscript(ev decode.TranscriptEvent) {
	if !ev.IsFinal || strings.TrimSpace(ev.Text) == "" {
		return
	}
	w.mu.Lock()
	w.segments = append(w.segments, ev.Text)
	text := strings.Join(w.segments, " ")
	w.mu.Unlock()

	if err := w.copyFn(text); err != nil {
		w.log.Warn("writing to clipboard", "error", err)
	}
}
