package service

import (
	"context"
	"time"

	"github.com/wricardo/stickcarrier/game/config"
	"github.com/wricardo/stickcarrier/game/level"
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, levelID string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	SendIntent(ctx context.Context, sessionID string, intent level.Intent) (*IntentResult, error)
	// LoadLevel switches the session to levelID. "next" loads the level after
	// the current one and "replay" (or "") restarts the current one.
	LoadLevel(ctx context.Context, sessionID, levelID string) (*SessionInfo, error)

	// Game State
	GetState(ctx context.Context, sessionID string) (*level.Snapshot, error)
	GetHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Configuration
	ListLevels(ctx context.Context) ([]*config.LevelInfo, error)
	GetLevelConfig(ctx context.Context, levelID string) (*config.LevelConfig, error)
	SaveLevelConfig(ctx context.Context, levelID string, cfg *config.LevelConfig) error

	// Tick advances every loaded level by one frame.
	Tick(dt time.Duration)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, levelID string) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ConfigManager handles level loading
type ConfigManager interface {
	LoadLevel(id string) (*config.LevelConfig, error)
	ListLevels() ([]*config.LevelInfo, error)
	GetDefault() (*config.LevelConfig, string)
	SaveLevel(id string, cfg *config.LevelConfig) error
	NextLevel(id string) (string, bool)
}

// Publisher fans session updates out to live clients.
type Publisher interface {
	Publish(sessionID string, events []level.Event, state *level.Snapshot)
}

// Recorder persists gameplay events.
type Recorder interface {
	Record(sessionID string, e level.Event) error
}

// Session represents an active game session
type Session struct {
	ID      string
	LevelID string
	// Level is nil until the service loads it; sessions restored from disk
	// start their level over.
	Level          *level.Level
	Progress       Progress
	History        []level.Event
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
