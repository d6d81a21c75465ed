package history

import (
	"context"
	"log/slog"
	"sync"

	"github.com/voxtype/voxtype/internal/decode"
	"github.com/voxtype/voxtype/internal/stream"
)

// Recorder persists the final transcript segments of the active session.
// Interim events are ignored; they are provisional by definition.
type Recorder struct {
	store *Store
	log   *slog.Logger

	mu        sync.Mutex
	sessionID string
}

func NewRecorder(store *Store, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{
		store: store,
		log:   log.With("component", "history"),
	}
}

// Begin opens a new history session and makes it the recording target.
func (r *Recorder) Begin(ctx context.Context, model, language string) (string, error) {
	session := &Session{Language: language}
	if model != "" {
		session.Models = []string{model}
	}
	if err := r.store.CreateSession(ctx, session); err != nil {
		return "", err
	}
	r.mu.Lock()
	r.sessionID = session.ID
	r.mu.Unlock()
	return session.ID, nil
}

// End closes the active session. Events arriving afterwards are dropped.
func (r *Recorder) End(ctx context.Context) error {
	r.mu.Lock()
	id := r.sessionID
	r.sessionID = ""
	r.mu.Unlock()
	if id == "" {
		return nil
	}
	return r.store.EndSession(ctx, id)
}

// NoteModel appends a model to the active session's model list, for when
// the session switches models mid-recording.
func (r *Recorder) NoteModel(ctx context.Context, model string) error {
	r.mu.Lock()
	id := r.sessionID
	r.mu.Unlock()
	if id == "" {
		return nil
	}
	return r.store.RecordModel(ctx, id, model)
}

// Listener returns the subscription surface to register with the stream
// coordinator.
func (r *Recorder) Listener() stream.Listener {
	return stream.Listener{OnTranscript: r.onTranscript}
}

func (r *Recorder) onTranscript(ev decode.TranscriptEvent) {
	if !ev.IsFinal {
		return
	}
	r.mu.Lock()
	id := r.sessionID
	r.mu.Unlock()
	if id == "" {
		return
	}

	entry := &Entry{
		SessionID:  id,
		Text:       ev.Text,
		Confidence: ev.Confidence,
		SpeakerID:  ev.SpeakerID,
		Captured:   ev.Captured,
	}
	if err := r.store.AppendEntry(context.Background(), entry); err != nil {
		r.log.Error("persisting transcript segment", "error", err)
	}
}
