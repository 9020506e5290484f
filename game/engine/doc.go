// Package engine implements the stick carrier's actor state machine.
//
// An Actor walks a grid one cell at a time, turns in 90 degree steps, and can
// pick up, carry and drop a rigid two-ended object (a Carryable). Every
// motion is a task on a tween.Scheduler, so the actor only changes when the
// owner advances the scheduler's clock.
//
// States:
//
//	Idle       accepts move, rotate and interact intents
//	Moving     one-cell step in flight; rolled back if the carried object hits a blocker
//	Rotating   turn in flight; reversed once if the carried object hits a blocker
//	PickingUp  grab delay before the object is attached
//	Won        terminal; every intent is ignored
//
// The actor never looks at level content directly. Ground, obstacle, goal and
// blocking queries go through SpatialQuery, and feedback goes to an Observer
// passed in at construction.
//
// Usage:
//
//	sched := tween.NewScheduler()
//	actor, err := engine.NewActor(nil, spawn, 0, engine.Deps{
//		Space:     w,
//		Observer:  lvl,
//		Scheduler: sched,
//		Logger:    logger,
//	})
//	if err != nil {
//		return err
//	}
//	actor.Move(engine.North)
//	sched.Advance(time.Second / 60)
package engine
