package engine

import (
	"math"

	"go.uber.org/zap"
)

// requiredHeading applies the pickup orientation table. Both angles are
// normalized to (-180,180]. Object headings outside the table need no
// alignment.
func requiredHeading(objYaw, actorYaw float64) (target float64, aligned bool) {
	obj, actor := math.Abs(objYaw), math.Abs(actorYaw)
	switch obj {
	case 90:
		if actor != 180 {
			return math.Copysign(180, objYaw), false
		}
	case 0, 180:
		if actor != 90 {
			return 90, false
		}
	}
	return actorYaw, true
}

// beginPickup runs the carry negotiation for obj. With allowDefer set a
// misaligned actor rotates first and retries once the rotation completes;
// the retry itself never defers again.
func (a *Actor) beginPickup(obj Carryable, allowDefer bool) bool {
	a.setState(StatePickingUp, a.anim)

	if _, _, ok := obj.LocalExtremities(); !ok {
		a.log.Warn("pickup aborted", zap.String("object", obj.ID()), zap.Error(ErrMissingExtremity))
		a.setState(StateIdle, AnimIdle)
		return false
	}

	objYaw := NormalizeAngle(obj.Yaw())
	actorYaw := NormalizeAngle(float64(a.heading))
	target, aligned := requiredHeading(objYaw, actorYaw)
	if !aligned {
		if !allowDefer {
			a.log.Debug("pickup still misaligned after rotation",
				zap.String("object", obj.ID()), zap.Float64("object_yaw", objYaw), zap.Int("heading", int(a.heading)))
			a.setState(StateIdle, AnimIdle)
			return false
		}
		delta := int(NormalizeAngle(target - actorYaw))
		a.log.Debug("pickup deferred", zap.String("object", obj.ID()), zap.Int("rotate_by", delta))
		a.startRotation(delta)
		a.pending = obj
		return true
	}

	a.setState(StatePickingUp, AnimPickUp)
	a.grabTask = a.sched.After(a.tuning.GrabDelay, func() {
		a.grabTask = nil
		a.attach(obj)
	})
	return true
}

// attach transfers ownership of obj to the anchor. The nearer extremity is
// placed on the anchor and the object follows the anchor from then on.
func (a *Actor) attach(obj Carryable) {
	ea, eb, ok := WorldExtremities(obj)
	if !ok {
		a.log.Warn("pickup aborted", zap.String("object", obj.ID()), zap.Error(ErrMissingExtremity))
		a.setState(StateIdle, AnimIdle)
		return
	}
	if err := obj.Hold(); err != nil {
		a.log.Warn("pickup aborted", zap.String("object", obj.ID()), zap.Error(err))
		a.setState(StateIdle, AnimIdle)
		return
	}

	anchor := a.anchor()
	near, nearPos := ExtremityB, eb
	if anchor.Dist(ea) < anchor.Dist(eb) {
		near, nearPos = ExtremityA, ea
	}
	placed := anchor.Sub(nearPos.Sub(obj.Position()))

	a.carry = &carrySlot{
		obj:      obj,
		near:     near,
		localPos: placed.Sub(anchor).RotateY(-a.yaw),
		localYaw: obj.Yaw() - a.yaw,
	}
	a.syncCarried()
	a.setState(StateIdle, AnimIdle)

	a.log.Info("picked up", zap.String("object", obj.ID()), zap.String("near_point", string(near)))
	if co, ok := a.obs.(CarryObserver); ok {
		co.OnPickedUp(obj.ID())
	}
}

// Drop releases the carried object onto the cell ahead of the actor. The
// object lands perpendicular to the facing with its near extremity on the
// drop cell. Nothing changes when the drop fails.
func (a *Actor) Drop() error {
	if a.closed {
		return ErrActorClosed
	}
	if a.state != StateIdle {
		return ErrNotIdle
	}
	if a.carry == nil {
		return ErrNotCarrying
	}

	cell := a.snap(a.pos.Add(a.heading.Forward().Scale(a.tuning.DropDistance)))
	if !a.space.GroundBelow(cell) {
		a.log.Debug("drop rejected", zap.Stringer("cell", cell), zap.Error(ErrNoGroundAtDrop))
		return ErrNoGroundAtDrop
	}

	obj := a.carry.obj
	la, lb, ok := obj.LocalExtremities()
	if !ok {
		return ErrMissingExtremity
	}
	local := lb
	if a.carry.near == ExtremityA {
		local = la
	}

	yaw := wrapDegrees(float64(a.heading) + a.tuning.DropYawOffset)
	at := cell.Sub(local.RotateY(yaw))
	obj.SetTransform(at, yaw)
	obj.Release()
	a.carry = nil

	a.log.Info("dropped", zap.String("object", obj.ID()), zap.Stringer("position", at))
	if co, ok := a.obs.(CarryObserver); ok {
		co.OnDropped(obj.ID(), at)
	}
	return nil
}
