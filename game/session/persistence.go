package session

import (
	"time"

	"github.com/wricardo/stickcarrier/game/service"
)

// SessionPersistence defines the interface for persisting sessions
type SessionPersistence interface {
	// Save persists a session to storage
	Save(session *service.Session) error

	// Load retrieves a session from storage by ID. The returned session has
	// no level loaded.
	Load(id string) (*service.Session, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// PersistedSessionData represents the JSON structure for persisted sessions.
// In-flight motion is not saved; a restored session starts its level over.
type PersistedSessionData struct {
	ID             string           `json:"id"`
	LevelID        string           `json:"level_id"`
	Progress       service.Progress `json:"progress"`
	CreatedAt      time.Time        `json:"created_at"`
	LastAccessedAt time.Time        `json:"last_accessed_at"`
}
