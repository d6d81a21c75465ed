package clipboard

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/voxtype/voxtype/internal/decode"
)

func newTestWriter(copied *[]string, copyErr error) *Writer {
	w := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	w.copyFn = func(text string) error {
		if copyErr != nil {
			return copyErr
		}
		*copied = append(*copied, text)
		return nil
	}
	return w
}

func TestWriter_AccumulatesFinals(t *testing.T) {
	var copied []string
	w := newTestWriter(&copied, nil)
	l := w.Listener()

	l.OnTranscript(decode.TranscriptEvent{Text: "hello", IsFinal: true})
	l.OnTranscript(decode.TranscriptEvent{Text: "ignored interim", IsFinal: false})
	l.OnTranscript(decode.TranscriptEvent{Text: "world", IsFinal: true})

	want := []string{"hello", "hello world"}
	if len(copied) != len(want) {
		t.Fatalf("copies = %v, want %v", copied, want)
	}
	for i := range want {
		if copied[i] != want[i] {
			t.Errorf("copy %d = %q, want %q", i, copied[i], want[i])
		}
	}
	if w.Text() != "hello world" {
		t.Errorf("session text = %q", w.Text())
	}
}

func TestWriter_SkipsBlankFinals(t *testing.T) {
	var copied []string
	w := newTestWriter(&copied, nil)

	w.Listener().OnTranscript(decode.TranscriptEvent{Text: "   ", IsFinal: true})
	if len(copied) != 0 {
		t.Errorf("blank final reached the clipboard: %v", copied)
	}
}

func TestWriter_Reset(t *testing.T) {
	var copied []string
	w := newTestWriter(&copied, nil)
	l := w.Listener()

	l.OnTranscript(decode.TranscriptEvent{Text: "first session", IsFinal: true})
	w.Reset()
	l.OnTranscript(decode.TranscriptEvent{Text: "second session", IsFinal: true})

	if got := copied[len(copied)-1]; got != "second session" {
		t.Errorf("clipboard after reset = %q", got)
	}
}

func TestWriter_CopyErrorIsNonFatal(t *testing.T) {
	var copied []string
	w := newTestWriter(&copied, errors.New("no display"))
	l := w.Listener()

	l.OnTranscript(decode.TranscriptEvent{Text: "hello", IsFinal: true})
	// The segment is still accumulated even when the clipboard is
	// unavailable.
	if w.Text() != "hello" {
		t.Errorf("session text = %q", w.Text())
	}
}
