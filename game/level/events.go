package level

import (
	"fmt"
	"strings"

	"github.com/wricardo/stickcarrier/game/engine"
)

// Status is the outcome of a loaded level.
type Status string

const (
	StatusPlaying Status = "playing"
	StatusWon     Status = "won"
	StatusLost    Status = "lost"
)

// EventType names what happened.
type EventType string

const (
	EventMove         EventType = "move"
	EventRotate       EventType = "rotate"
	EventBlocked      EventType = "blocked"
	EventPickup       EventType = "pickup"
	EventDrop         EventType = "drop"
	EventWinTriggered EventType = "win_triggered"
	EventWinFinalized EventType = "win_finalized"
	EventTimeUp       EventType = "time_up"
	EventState        EventType = "state"
)

// Event is one gameplay notification. Time is seconds since the level was
// loaded.
type Event struct {
	Type     EventType    `json:"type"`
	Level    string       `json:"level"`
	Time     float64      `json:"time"`
	Position *engine.Vec3 `json:"position,omitempty"`
	Object   string       `json:"object,omitempty"`
	From     string       `json:"from,omitempty"`
	To       string       `json:"to,omitempty"`
	Score    int          `json:"score,omitempty"`
	Message  string       `json:"message,omitempty"`
}

// EventSink receives events synchronously, on the goroutine that drives the
// level.
type EventSink func(Event)

// Action is the kind of player intent.
type Action string

const (
	ActionMove     Action = "move"
	ActionRotate   Action = "rotate"
	ActionInteract Action = "interact"
)

// Intent is a player command. Direction is used by move, Sign by rotate
// (positive is clockwise).
type Intent struct {
	Action    Action `json:"intent"`
	Direction string `json:"direction,omitempty"`
	Sign      int    `json:"sign,omitempty"`
}

// ParseIntent builds an intent from loose transport input. Rotation accepts
// "cw"/"ccw", "right"/"left" or a signed number in dir.
func ParseIntent(action, dir string) (Intent, error) {
	switch Action(strings.ToLower(strings.TrimSpace(action))) {
	case ActionMove:
		return Intent{Action: ActionMove, Direction: dir}, nil
	case ActionRotate:
		switch strings.ToLower(strings.TrimSpace(dir)) {
		case "", "cw", "clockwise", "right", "1", "+1":
			return Intent{Action: ActionRotate, Sign: 1}, nil
		case "ccw", "counterclockwise", "anticlockwise", "left", "-1":
			return Intent{Action: ActionRotate, Sign: -1}, nil
		}
		return Intent{}, fmt.Errorf("%w: rotation %q", ErrUnknownIntent, dir)
	case ActionInteract:
		return Intent{Action: ActionInteract}, nil
	}
	return Intent{}, fmt.Errorf("%w: %q", ErrUnknownIntent, action)
}
