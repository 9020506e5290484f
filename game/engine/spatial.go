package engine

// SpatialQuery answers overlap and probe questions against the level's
// tagged geometry.
type SpatialQuery interface {
	// GroundBelow reports whether a ground surface lies under p within the
	// probe distance.
	GroundBelow(p Vec3) bool
	ObstacleOverlap(p Vec3, radius float64) bool
	GoalOverlap(p Vec3, radius float64) bool
	BlockingOverlap(p Vec3, radius float64) bool
	// FindNearbyCarryable returns the closest free carryable within radius.
	FindNearbyCarryable(p Vec3, radius float64) (Carryable, bool)
}

// Carryable is a rigid object the actor can pick up. Its two extremities are
// stored as offsets in the object's own frame.
type Carryable interface {
	ID() string
	Position() Vec3
	Yaw() float64
	SetTransform(pos Vec3, yaw float64)
	// LocalExtremities returns the A and B markers. ok is false when the
	// content is missing either marker.
	LocalExtremities() (a, b Vec3, ok bool)
	// Hold moves ownership from the world to the actor's anchor. It fails
	// with ErrAlreadyHeld if someone else owns the object.
	Hold() error
	// Release returns ownership to the world.
	Release()
}

// WorldExtremities returns the world positions of both extremities of c.
func WorldExtremities(c Carryable) (a, b Vec3, ok bool) {
	la, lb, ok := c.LocalExtremities()
	if !ok {
		return Vec3{}, Vec3{}, false
	}
	pos, yaw := c.Position(), c.Yaw()
	return pos.Add(la.RotateY(yaw)), pos.Add(lb.RotateY(yaw)), true
}

// Observer receives the actor's feedback signals. The game session
// controller implements it.
type Observer interface {
	// OnBlocked fires when a carried object collides mid-motion and the
	// motion is rolled back or reversed.
	OnBlocked()
	// OnWinTriggered fires once when the actor enters Won; pos is where the
	// victory effect should spawn.
	OnWinTriggered(pos Vec3)
	// OnWinFinalized fires once, WinDelay after OnWinTriggered.
	OnWinFinalized()
}

// StateObserver is implemented by observers that want every state change.
type StateObserver interface {
	OnStateChanged(from, to MotionState)
}

// CarryObserver is implemented by observers that track pickups and drops.
type CarryObserver interface {
	OnPickedUp(id string)
	OnDropped(id string, at Vec3)
}

// NopObserver ignores every signal.
type NopObserver struct{}

func (NopObserver) OnBlocked()          {}
func (NopObserver) OnWinTriggered(Vec3) {}
func (NopObserver) OnWinFinalized()     {}
