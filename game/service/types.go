package service

import (
	"errors"
	"slices"
	"time"

	"github.com/wricardo/stickcarrier/game/level"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNoNextLevel     = errors.New("no next level")
)

// MaxHistory bounds the events kept per session.
const MaxHistory = 500

// Progress is what a session keeps across levels.
type Progress struct {
	HighScore       int      `json:"high_score"`
	LastScore       int      `json:"last_score"`
	Wins            int      `json:"wins"`
	Losses          int      `json:"losses"`
	LevelsCompleted []string `json:"levels_completed,omitempty"`
}

// RecordWin books a won level.
func (p *Progress) RecordWin(levelID string, score int) {
	p.Wins++
	p.LastScore = score
	if score > p.HighScore {
		p.HighScore = score
	}
	if !p.Completed(levelID) {
		p.LevelsCompleted = append(p.LevelsCompleted, levelID)
	}
}

// RecordLoss books a level lost on time.
func (p *Progress) RecordLoss() {
	p.Losses++
	p.LastScore = 0
}

// Completed reports whether levelID has been won at least once.
func (p *Progress) Completed(levelID string) bool {
	return slices.Contains(p.LevelsCompleted, levelID)
}

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string          `json:"id"`
	LevelID        string          `json:"level_id"`
	LevelName      string          `json:"level_name"`
	Status         level.Status    `json:"status"`
	Progress       Progress        `json:"progress"`
	CreatedAt      time.Time       `json:"created_at"`
	LastAccessedAt time.Time       `json:"last_accessed_at"`
	State          *level.Snapshot `json:"state,omitempty"`
}

// IntentResult contains the result of an intent
type IntentResult struct {
	Accepted bool            `json:"accepted"`
	Message  string          `json:"message"`
	Events   []level.Event   `json:"events,omitempty"`
	State    *level.Snapshot `json:"state"`
}

// HistoryOptions configures event history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated event history
type HistoryResponse struct {
	Events      []level.Event `json:"events"`
	TotalEvents int           `json:"total_events"`
	Page        int           `json:"page"`
	PageSize    int           `json:"page_size"`
	TotalPages  int           `json:"total_pages"`
	HasNext     bool          `json:"has_next"`
	HasPrevious bool          `json:"has_previous"`
}
