package history

import (
	"time"

	"github.com/voxtype/voxtype/internal/shared"
)

// Session is one recording session's transcript history. Models collects
// every recognition model used during the session, in order of first use.
type Session struct {
	ID        string             `gorm:"primaryKey" json:"id"`
	StartedAt time.Time          `gorm:"not null" json:"started_at"`
	EndedAt   *time.Time         `json:"ended_at,omitempty"`
	Models    shared.StringSlice `gorm:"type:text" json:"models"`
	Language  string             `json:"language,omitempty"`
	Entries   []Entry            `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"entries,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Entry is one final transcript segment. Interim results are never
// persisted; the entry sequence is the canonical transcript.
type Entry struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	SessionID  string    `gorm:"not null;index" json:"session_id"`
	Text       string    `gorm:"not null" json:"text"`
	Confidence float64   `json:"confidence"`
	SpeakerID  *int      `json:"speaker_id,omitempty"`
	Captured   time.Time `json:"captured"`
	CreatedAt  time.Time `json:"created_at"`
}
