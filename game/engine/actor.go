package engine

import (
	"errors"
	"math"

	"go.uber.org/zap"

	"github.com/wricardo/stickcarrier/game/tween"
)

// Deps are the collaborators an Actor is constructed with.
type Deps struct {
	Space     SpatialQuery
	Observer  Observer
	Scheduler *tween.Scheduler
	Logger    *zap.Logger
}

type carrySlot struct {
	obj  Carryable
	near Extremity
	// object position relative to the anchor and object yaw relative to the
	// actor, both captured at pickup
	localPos Vec3
	localYaw float64
}

// Actor is the grid walker. It owns position, facing and the carry slot and
// runs the Idle/Moving/Rotating/PickingUp/Won state machine. Motions are
// scheduler tasks; the actor never blocks.
type Actor struct {
	tuning Tuning
	space  SpatialQuery
	obs    Observer
	sched  *tween.Scheduler
	log    *zap.Logger

	pos     Vec3
	yaw     float64
	heading Heading
	state   MotionState
	anim    AnimationID
	carry   *carrySlot

	// move bookkeeping
	prevPos Vec3
	target  Vec3

	// rotation bookkeeping
	fromHeading Heading
	travelled   float64
	reversed    bool
	pending     Carryable

	moveTask   *tween.Task
	rotateTask *tween.Task
	grabTask   *tween.Task
	winTask    *tween.Task

	closed bool
}

// NewActor places an actor at the spawn marker. The position is snapped to
// the grid at the fixed height and the yaw to the nearest cardinal heading.
// A nil tuning means DefaultTuning.
func NewActor(tuning *Tuning, spawn Vec3, spawnYaw float64, deps Deps) (*Actor, error) {
	t := DefaultTuning()
	if tuning != nil {
		t = *tuning
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if deps.Space == nil {
		return nil, errors.New("actor requires a spatial query service")
	}
	if deps.Scheduler == nil {
		return nil, errors.New("actor requires a scheduler")
	}
	if deps.Observer == nil {
		deps.Observer = NopObserver{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	a := &Actor{
		tuning: t,
		space:  deps.Space,
		obs:    deps.Observer,
		sched:  deps.Scheduler,
		log:    deps.Logger.Named("actor"),
		state:  StateIdle,
		anim:   AnimIdle,
	}
	a.pos = a.snap(spawn)
	a.heading = SnapHeading(spawnYaw)
	a.yaw = float64(a.heading)
	return a, nil
}

// State returns the current motion state.
func (a *Actor) State() MotionState { return a.state }

// Position returns the current, possibly interpolated, position.
func (a *Actor) Position() Vec3 { return a.pos }

// Heading returns the logical facing. During a rotation it is already the
// rotation's target.
func (a *Actor) Heading() Heading { return a.heading }

// Yaw returns the rendered yaw in degrees.
func (a *Actor) Yaw() float64 { return a.yaw }

// Animation returns the clip code the presentation layer should play.
func (a *Actor) Animation() AnimationID { return a.anim }

// Tuning returns a copy of the actor's tuning.
func (a *Actor) Tuning() Tuning { return a.tuning }

// Closed reports whether Teardown has run.
func (a *Actor) Closed() bool { return a.closed }

// Carried returns the object in the carry slot, if any.
func (a *Actor) Carried() (Carryable, bool) {
	if a.carry == nil {
		return nil, false
	}
	return a.carry.obj, true
}

// Snapshot returns a read-only view of the actor.
func (a *Actor) Snapshot() ActorSnapshot {
	s := ActorSnapshot{
		Position:  a.pos,
		Yaw:       a.yaw,
		Heading:   a.heading,
		State:     a.state,
		Animation: a.anim,
	}
	if a.carry != nil {
		s.Carrying = a.carry.obj.ID()
		s.NearPoint = a.carry.near
	}
	if a.pending != nil {
		s.Pending = a.pending.ID()
	}
	return s
}

// Move starts a one-cell step. The intent is dropped unless the actor is
// idle, the target has ground beneath it and no obstacle overlaps it.
func (a *Actor) Move(dir Direction) bool {
	if !a.acceptsInput() {
		return false
	}
	step, ok := dir.Vector()
	if !ok {
		return false
	}

	next := a.snap(a.pos.Add(step.Scale(a.tuning.MoveDistance)))
	if !a.space.GroundBelow(next) || a.space.ObstacleOverlap(next, a.tuning.ObstacleRadius) {
		a.log.Debug("move rejected", zap.String("direction", string(dir)), zap.Stringer("target", next))
		return false
	}

	a.prevPos = a.pos
	a.target = next
	a.setState(StateMoving, AnimMove)

	a.moveTask.Cancel()
	from := a.pos
	a.moveTask = a.sched.Animate(a.tuning.MoveDuration(), tween.Linear).
		OnUpdate(func(p float64) {
			a.setPosition(from.Lerp(next, p))
			if a.carry != nil && a.carriedBlocked() {
				a.rollbackMove()
			}
		}).
		OnComplete(a.finishMove)
	return true
}

// Rotate turns the actor 90 degrees; a positive sign turns clockwise seen
// from above. Rotation is always attempted; collisions are handled in flight.
func (a *Actor) Rotate(sign int) bool {
	if !a.acceptsInput() || sign == 0 {
		return false
	}
	if sign > 0 {
		a.startRotation(90)
	} else {
		a.startRotation(-90)
	}
	return true
}

// Interact picks up a nearby carryable or drops the carried one.
func (a *Actor) Interact() bool {
	if !a.acceptsInput() {
		return false
	}
	if a.carry != nil {
		return a.Drop() == nil
	}
	obj, ok := a.space.FindNearbyCarryable(a.pos, a.tuning.PickupRadius)
	if !ok {
		return false
	}
	return a.beginPickup(obj, true)
}

// Teardown cancels every scheduled motion and timer. After it returns no
// callback of this actor fires and all input is ignored.
func (a *Actor) Teardown() {
	if a.closed {
		return
	}
	a.closed = true
	for _, t := range []*tween.Task{a.moveTask, a.rotateTask, a.grabTask, a.winTask} {
		t.Cancel()
	}
	a.moveTask, a.rotateTask, a.grabTask, a.winTask = nil, nil, nil, nil
	a.pending = nil
}

func (a *Actor) acceptsInput() bool {
	return !a.closed && a.state == StateIdle
}

func (a *Actor) rollbackMove() {
	a.moveTask.Cancel()
	a.moveTask = nil
	a.setPosition(a.prevPos)
	a.setState(StateIdle, AnimIdle)
	a.log.Debug("carried object blocked, move rolled back", zap.Stringer("position", a.pos))
	a.obs.OnBlocked()
}

func (a *Actor) finishMove() {
	a.moveTask = nil
	a.setPosition(a.target)
	a.setState(StateIdle, AnimIdle)

	if a.carry != nil && a.space.GoalOverlap(a.pos, a.tuning.GoalRadius) {
		a.win()
	}
}

func (a *Actor) startRotation(delta int) {
	a.fromHeading = a.heading
	a.heading = a.heading.Add(delta)
	a.reversed = false
	a.travelled = 0
	a.setState(StateRotating, AnimRotate)

	a.rotateTask.Cancel()
	start, sweep := a.yaw, float64(delta)
	a.rotateTask = a.sched.Animate(a.tuning.RotationDuration, tween.Linear).
		OnUpdate(func(p float64) {
			a.travelled = sweep * p
			a.setYaw(start + a.travelled)
			if !a.reversed && a.carry != nil && a.carriedBlocked() {
				a.reverseRotation()
			}
		}).
		OnComplete(a.finishRotation)
}

// reverseRotation sends the actor back to the heading it started from. The
// way back is not checked for collisions, so a rotation reverses at most once.
func (a *Actor) reverseRotation() {
	a.rotateTask.Cancel()
	a.reversed = true
	a.heading = a.fromHeading
	a.pending = nil
	a.log.Debug("carried object blocked, rotation reversed", zap.Int("heading", int(a.heading)))
	a.obs.OnBlocked()

	start, sweep := a.yaw, -a.travelled
	a.rotateTask = a.sched.Animate(a.tuning.RotationDuration, tween.Linear).
		OnUpdate(func(p float64) {
			a.setYaw(start + sweep*p)
		}).
		OnComplete(func() {
			a.rotateTask = nil
			a.setYaw(float64(a.heading))
			a.setState(StateIdle, AnimIdle)
		})
}

func (a *Actor) finishRotation() {
	a.rotateTask = nil
	a.setYaw(float64(a.heading))

	if a.pending != nil {
		obj := a.pending
		a.pending = nil
		a.beginPickup(obj, false)
		return
	}
	a.setState(StateIdle, AnimIdle)
}

func (a *Actor) win() {
	if a.state == StateWon {
		return
	}
	a.moveTask.Cancel()
	a.rotateTask.Cancel()
	a.grabTask.Cancel()
	a.pending = nil

	a.setState(StateWon, AnimWin)
	a.log.Info("win triggered", zap.Stringer("position", a.pos))
	a.obs.OnWinTriggered(a.pos.Add(Up.Scale(a.tuning.WinEffectHeight)))

	a.winTask = a.sched.After(a.tuning.WinDelay, func() {
		a.winTask = nil
		a.obs.OnWinFinalized()
	})
}

func (a *Actor) setState(to MotionState, anim AnimationID) {
	from := a.state
	a.state = to
	a.anim = anim
	if from == to {
		return
	}
	if so, ok := a.obs.(StateObserver); ok {
		so.OnStateChanged(from, to)
	}
}

func (a *Actor) setPosition(p Vec3) {
	a.pos = p
	a.syncCarried()
}

func (a *Actor) setYaw(deg float64) {
	a.yaw = wrapDegrees(deg)
	a.syncCarried()
}

// anchor is the carry anchor in world space.
func (a *Actor) anchor() Vec3 {
	return a.pos.Add(a.tuning.AnchorOffset.RotateY(a.yaw))
}

// syncCarried re-derives the carried object's transform from the anchor.
func (a *Actor) syncCarried() {
	if a.carry == nil {
		return
	}
	pos := a.anchor().Add(a.carry.localPos.RotateY(a.yaw))
	a.carry.obj.SetTransform(pos, wrapDegrees(a.yaw+a.carry.localYaw))
}

// carriedBlocked samples the two extremities of the carried object only.
func (a *Actor) carriedBlocked() bool {
	ea, eb, ok := WorldExtremities(a.carry.obj)
	if !ok {
		return false
	}
	r := a.tuning.BlockRadius
	return a.space.BlockingOverlap(ea, r) || a.space.BlockingOverlap(eb, r)
}

func (a *Actor) snap(p Vec3) Vec3 {
	return Vec3{X: math.Round(p.X), Y: a.tuning.FixedY, Z: math.Round(p.Z)}
}

func wrapDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}
