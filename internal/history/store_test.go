package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/voxtype/voxtype/internal/decode"
	"github.com/voxtype/voxtype/internal/shared"
)

func transcriptEvent(text string, final bool) decode.TranscriptEvent {
	return decode.TranscriptEvent{Text: text, IsFinal: final, Confidence: 0.9, Captured: time.Now()}
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	return db
}

func setupStore(t *testing.T) *Store {
	store := NewStore(setupTestDB(t))
	if err := store.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return store
}

func TestStore_Migrate(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	if err := store.Migrate(); err != nil {
		t.Errorf("Migrate() error = %v", err)
	}
	if !db.Migrator().HasTable(&Session{}) {
		t.Error("expected Session table to exist")
	}
	if !db.Migrator().HasTable(&Entry{}) {
		t.Error("expected Entry table to exist")
	}
}

func TestStore_CreateSession(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	session := &Session{Models: shared.StringSlice{"nova-2"}, Language: "en"}
	if err := store.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if session.ID == "" {
		t.Error("expected generated session id")
	}
	if session.StartedAt.IsZero() {
		t.Error("expected start timestamp")
	}

	got, err := store.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if len(got.Models) != 1 || got.Models[0] != "nova-2" {
		t.Errorf("models = %v, want [nova-2]", got.Models)
	}
	if got.Language != "en" {
		t.Errorf("language = %q, want en", got.Language)
	}
}

func TestStore_GetSession_NotFound(t *testing.T) {
	store := setupStore(t)
	_, err := store.GetSession(context.Background(), "sess_missing")
	if !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_AppendEntry_PreservesOrder(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	session := &Session{}
	if err := store.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	texts := []string{"hello world", "this is", "a transcript"}
	for _, text := range texts {
		if err := store.AppendEntry(ctx, &Entry{SessionID: session.ID, Text: text, Confidence: 0.95}); err != nil {
			t.Fatalf("AppendEntry() error = %v", err)
		}
	}

	got, err := store.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if len(got.Entries) != len(texts) {
		t.Fatalf("entries = %d, want %d", len(got.Entries), len(texts))
	}

	transcript, err := store.Transcript(ctx, session.ID)
	if err != nil {
		t.Fatalf("Transcript() error = %v", err)
	}
	if transcript != "hello world this is a transcript" {
		t.Errorf("transcript = %q", transcript)
	}
}

func TestStore_EndSession(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	session := &Session{}
	if err := store.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	if err := store.EndSession(ctx, session.ID); err != nil {
		t.Fatalf("EndSession() error = %v", err)
	}
	got, _ := store.GetSession(ctx, session.ID)
	if got.EndedAt == nil {
		t.Fatal("expected end timestamp")
	}
	first := *got.EndedAt

	// Ending again keeps the original stamp.
	time.Sleep(10 * time.Millisecond)
	if err := store.EndSession(ctx, session.ID); err != nil {
		t.Fatalf("second EndSession() error = %v", err)
	}
	got, _ = store.GetSession(ctx, session.ID)
	if !got.EndedAt.Equal(first) {
		t.Errorf("end timestamp moved from %v to %v", first, *got.EndedAt)
	}

	if err := store.EndSession(ctx, "sess_missing"); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_RecordModel(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	session := &Session{Models: shared.StringSlice{"nova-2"}}
	if err := store.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	if err := store.RecordModel(ctx, session.ID, "nova-3"); err != nil {
		t.Fatalf("RecordModel() error = %v", err)
	}
	// Repeats are ignored.
	if err := store.RecordModel(ctx, session.ID, "nova-3"); err != nil {
		t.Fatalf("RecordModel() error = %v", err)
	}

	got, _ := store.GetSession(ctx, session.ID)
	if len(got.Models) != 2 || got.Models[0] != "nova-2" || got.Models[1] != "nova-3" {
		t.Errorf("models = %v, want [nova-2 nova-3]", got.Models)
	}
}

func TestStore_ListSessions_NewestFirst(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	old := &Session{StartedAt: time.Now().Add(-time.Hour)}
	recent := &Session{StartedAt: time.Now()}
	for _, s := range []*Session{old, recent} {
		if err := store.CreateSession(ctx, s); err != nil {
			t.Fatalf("CreateSession() error = %v", err)
		}
	}

	sessions, err := store.ListSessions(ctx, 0)
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("sessions = %d, want 2", len(sessions))
	}
	if sessions[0].ID != recent.ID {
		t.Error("expected newest session first")
	}

	limited, err := store.ListSessions(ctx, 1)
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("limited sessions = %d, want 1", len(limited))
	}
}

func TestStore_DeleteSession(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	session := &Session{}
	if err := store.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if err := store.AppendEntry(ctx, &Entry{SessionID: session.ID, Text: "hello"}); err != nil {
		t.Fatalf("AppendEntry() error = %v", err)
	}

	if err := store.DeleteSession(ctx, session.ID); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	if _, err := store.GetSession(ctx, session.ID); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	var count int64
	store.db.Model(&Entry{}).Count(&count)
	if count != 0 {
		t.Errorf("orphaned entries remain: %d", count)
	}

	if err := store.DeleteSession(ctx, "sess_missing"); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRecorder_PersistsOnlyFinals(t *testing.T) {
	store := setupStore(t)
	rec := NewRecorder(store, nil)
	ctx := context.Background()

	id, err := rec.Begin(ctx, "nova-2", "en")
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	listener := rec.Listener()
	listener.OnTranscript(transcriptEvent("partial thought", false))
	listener.OnTranscript(transcriptEvent("settled thought", true))

	got, err := store.GetSession(ctx, id)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if len(got.Entries) != 1 {
		t.Fatalf("entries = %d, want 1 (finals only)", len(got.Entries))
	}
	if got.Entries[0].Text != "settled thought" {
		t.Errorf("text = %q", got.Entries[0].Text)
	}

	if err := rec.End(ctx); err != nil {
		t.Fatalf("End() error = %v", err)
	}
	// After End nothing more is recorded.
	listener.OnTranscript(transcriptEvent("too late", true))
	got, _ = store.GetSession(ctx, id)
	if len(got.Entries) != 1 {
		t.Errorf("entries = %d after end, want 1", len(got.Entries))
	}
}
