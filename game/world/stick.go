package world

import (
	"github.com/wricardo/stickcarrier/game/engine"
)

// DefaultHalfLength is the distance from a stick's centre to each end.
const DefaultHalfLength = 0.5

// StickSpec places a stick in a level file.
type StickSpec struct {
	ID         string  `json:"id"`
	X          int     `json:"x"`
	Z          int     `json:"z"`
	Yaw        float64 `json:"yaw"`
	HalfLength float64 `json:"half_length,omitempty"`
	// MissingExtremity builds a stick without end markers. Pickup of such a
	// stick is refused as a content defect.
	MissingExtremity bool `json:"missing_extremity,omitempty"`
}

// Stick is a carryable rod lying along its local Z axis. End A is at +Z and
// end B at -Z. It is not safe for concurrent use.
type Stick struct {
	id      string
	pos     engine.Vec3
	yaw     float64
	half    float64
	markers bool
	held    bool
}

var _ engine.Carryable = (*Stick)(nil)

// NewStick creates a free-standing stick.
func NewStick(id string, pos engine.Vec3, yaw, halfLength float64, markers bool) *Stick {
	if halfLength <= 0 {
		halfLength = DefaultHalfLength
	}
	return &Stick{id: id, pos: pos, yaw: yaw, half: halfLength, markers: markers}
}

func (s *Stick) ID() string { return s.id }

func (s *Stick) Position() engine.Vec3 { return s.pos }

func (s *Stick) Yaw() float64 { return s.yaw }

func (s *Stick) SetTransform(pos engine.Vec3, yaw float64) {
	s.pos, s.yaw = pos, yaw
}

func (s *Stick) LocalExtremities() (engine.Vec3, engine.Vec3, bool) {
	if !s.markers {
		return engine.Vec3{}, engine.Vec3{}, false
	}
	return engine.Vec3{Z: s.half}, engine.Vec3{Z: -s.half}, true
}

// Hold hands the stick to an actor's anchor.
func (s *Stick) Hold() error {
	if s.held {
		return engine.ErrAlreadyHeld
	}
	s.held = true
	return nil
}

// Release returns the stick to the world.
func (s *Stick) Release() { s.held = false }

// Held reports whether an actor owns the stick.
func (s *Stick) Held() bool { return s.held }

// distanceTo measures from p to the stick's body: the segment between its
// ends, or its centre when the end markers are missing.
func (s *Stick) distanceTo(p engine.Vec3) float64 {
	a, b, ok := engine.WorldExtremities(s)
	if !ok {
		return p.Dist(s.pos)
	}
	ab := b.Sub(a)
	lenSq := ab.X*ab.X + ab.Y*ab.Y + ab.Z*ab.Z
	if lenSq == 0 {
		return p.Dist(a)
	}
	ap := p.Sub(a)
	t := clamp((ap.X*ab.X+ap.Y*ab.Y+ap.Z*ab.Z)/lenSq, 0, 1)
	return p.Dist(a.Add(ab.Scale(t)))
}

// StickState is a broadcastable view of a stick.
type StickState struct {
	ID       string       `json:"id"`
	Position engine.Vec3  `json:"position"`
	Yaw      float64      `json:"yaw"`
	Held     bool         `json:"held"`
	EndA     *engine.Vec3 `json:"end_a,omitempty"`
	EndB     *engine.Vec3 `json:"end_b,omitempty"`
}

// State returns the stick's current view.
func (s *Stick) State() StickState {
	st := StickState{ID: s.id, Position: s.pos, Yaw: s.yaw, Held: s.held}
	if a, b, ok := engine.WorldExtremities(s); ok {
		st.EndA, st.EndB = &a, &b
	}
	return st
}
