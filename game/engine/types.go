package engine

import (
	"fmt"
	"math"
	"strings"
)

// Vec3 is a point or offset in world space. Y is up.
type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Up is the world up axis.
var Up = Vec3{Y: 1}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

func (v Vec3) Scale(k float64) Vec3 { return Vec3{v.X * k, v.Y * k, v.Z * k} }

// Dist returns the euclidean distance between v and o.
func (v Vec3) Dist(o Vec3) float64 {
	d := v.Sub(o)
	return math.Sqrt(d.X*d.X + d.Y*d.Y + d.Z*d.Z)
}

// Lerp interpolates from v to o.
func (v Vec3) Lerp(o Vec3, t float64) Vec3 {
	return Vec3{
		X: v.X + (o.X-v.X)*t,
		Y: v.Y + (o.Y-v.Y)*t,
		Z: v.Z + (o.Z-v.Z)*t,
	}
}

// RotateY rotates v about the up axis by deg degrees. A positive angle turns
// +Z toward +X, matching the heading convention.
func (v Vec3) RotateY(deg float64) Vec3 {
	sin, cos := sincosDeg(deg)
	return Vec3{
		X: v.X*cos + v.Z*sin,
		Y: v.Y,
		Z: -v.X*sin + v.Z*cos,
	}
}

// sincosDeg is exact for multiples of 90 so grid positions stay on the grid.
func sincosDeg(deg float64) (sin, cos float64) {
	if q := deg / 90; q == math.Trunc(q) && math.Abs(q) < 1<<31 {
		switch (int(q)%4 + 4) % 4 {
		case 0:
			return 0, 1
		case 1:
			return 1, 0
		case 2:
			return 0, -1
		default:
			return -1, 0
		}
	}
	return math.Sincos(deg * math.Pi / 180)
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%.3f,%.3f,%.3f)", v.X, v.Y, v.Z)
}

// Heading is a cardinal facing in degrees: 0 faces +Z, 90 faces +X,
// 180 faces -Z and 270 faces -X.
type Heading int

const (
	HeadingNorth Heading = 0
	HeadingEast  Heading = 90
	HeadingSouth Heading = 180
	HeadingWest  Heading = 270
)

// SnapHeading rounds a yaw in degrees to the nearest cardinal heading.
func SnapHeading(yaw float64) Heading {
	h := int(math.Round(yaw/90)) * 90 % 360
	if h < 0 {
		h += 360
	}
	return Heading(h)
}

// Add turns the heading by deg degrees, which should be a multiple of 90.
func (h Heading) Add(deg int) Heading {
	return Heading(((int(h)+deg)%360 + 360) % 360)
}

// Forward returns the unit vector the heading faces.
func (h Heading) Forward() Vec3 {
	switch h {
	case HeadingEast:
		return Vec3{X: 1}
	case HeadingSouth:
		return Vec3{Z: -1}
	case HeadingWest:
		return Vec3{X: -1}
	default:
		return Vec3{Z: 1}
	}
}

// NormalizeAngle maps an angle in degrees into (-180,180] rounded to the
// nearest degree.
func NormalizeAngle(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg > 180 {
		deg -= 360
	}
	if deg <= -180 {
		deg += 360
	}
	return math.Round(deg)
}

// Direction is a one-cell step along a world axis. Moving never changes facing.
type Direction string

const (
	North Direction = "north"
	South Direction = "south"
	East  Direction = "east"
	West  Direction = "west"
)

// ParseDirection accepts compass names plus the keyboard-style aliases
// forward/back/left/right and up/down.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "north", "forward", "up", "w":
		return North, nil
	case "south", "back", "backward", "down", "s":
		return South, nil
	case "east", "right", "d":
		return East, nil
	case "west", "left", "a":
		return West, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

// Vector returns the unit step for the direction.
func (d Direction) Vector() (Vec3, bool) {
	switch d {
	case North:
		return Vec3{Z: 1}, true
	case South:
		return Vec3{Z: -1}, true
	case East:
		return Vec3{X: 1}, true
	case West:
		return Vec3{X: -1}, true
	}
	return Vec3{}, false
}

// MotionState is the actor's exclusive activity.
type MotionState int

const (
	StateIdle MotionState = iota
	StateMoving
	StateRotating
	StatePickingUp
	StateWon
)

var motionStateNames = map[MotionState]string{
	StateIdle:      "idle",
	StateMoving:    "moving",
	StateRotating:  "rotating",
	StatePickingUp: "picking_up",
	StateWon:       "won",
}

func (s MotionState) String() string {
	if name, ok := motionStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText encodes the state by name.
func (s MotionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *MotionState) UnmarshalText(b []byte) error {
	for state, name := range motionStateNames {
		if name == string(b) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown motion state %q", string(b))
}

// AnimationID tells the presentation layer which clip should play.
type AnimationID int

const (
	AnimIdle   AnimationID = 0
	AnimMove   AnimationID = 2
	AnimRotate AnimationID = 3
	AnimPickUp AnimationID = 5
	AnimWin    AnimationID = 6
)

// Extremity names one end of a carryable object.
type Extremity string

const (
	ExtremityA Extremity = "A"
	ExtremityB Extremity = "B"
)

// ActorSnapshot is a read-only view of the actor for transports and tests.
type ActorSnapshot struct {
	Position  Vec3        `json:"position"`
	Yaw       float64     `json:"yaw"`
	Heading   Heading     `json:"heading"`
	State     MotionState `json:"state"`
	Animation AnimationID `json:"animation"`
	Carrying  string      `json:"carrying,omitempty"`
	NearPoint Extremity   `json:"near_point,omitempty"`
	Pending   string      `json:"pending_pickup,omitempty"`
}
