package history

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/voxtype/voxtype/internal/shared"
)

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&Session{}, &Entry{})
}

func (s *Store) CreateSession(ctx context.Context, session *Session) error {
	if session.ID == "" {
		session.ID = shared.NewID("sess_")
	}
	if session.StartedAt.IsZero() {
		session.StartedAt = time.Now()
	}
	return s.db.WithContext(ctx).Create(session).Error
}

// EndSession stamps the session's end time. Ending twice keeps the first
// stamp.
func (s *Store) EndSession(ctx context.Context, id string) error {
	now := time.Now()
	result := s.db.WithContext(ctx).Model(&Session{}).
		Where("id = ? AND ended_at IS NULL", id).
		Update("ended_at", now)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(&Session{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return shared.ErrNotFound
		}
	}
	return nil
}

// RecordModel appends a model name to the session's model list the first
// time it is used.
func (s *Store) RecordModel(ctx context.Context, id, model string) error {
	session, err := s.GetSession(ctx, id)
	if err != nil {
		return err
	}
	for _, m := range session.Models {
		if m == model {
			return nil
		}
	}
	session.Models = append(session.Models, model)
	return s.db.WithContext(ctx).Model(&Session{}).
		Where("id = ?", id).
		Update("models", session.Models).Error
}

func (s *Store) AppendEntry(ctx context.Context, entry *Entry) error {
	if entry.ID == "" {
		entry.ID = shared.NewID("ent_")
	}
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	var session Session
	err := s.db.WithContext(ctx).
		Preload("Entries", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Where("id = ?", id).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrNotFound
	}
	return &session, err
}

// ListSessions returns sessions newest-first. A non-positive limit means
// no limit.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]*Session, error) {
	var sessions []*Session
	q := s.db.WithContext(ctx).Order("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&sessions).Error
	return sessions, err
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&Entry{}, "session_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&Session{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
	return err
}

// Transcript joins a session's final segments into one text block.
func (s *Store) Transcript(ctx context.Context, id string) (string, error) {
	session, err := s.GetSession(ctx, id)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(session.Entries))
	for _, e := range session.Entries {
		parts = append(parts, e.Text)
	}
	return strings.Join(parts, " "), nil
}
