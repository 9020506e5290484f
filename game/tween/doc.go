// Package tween drives timed, cancellable transitions on a frame clock.
//
// A Scheduler owns every live Task. Nothing here runs on its own goroutine or
// reads the wall clock: the owner calls Advance once per frame with the frame
// delta and the scheduler steps every task that was live when the pass began.
//
// Task Lifecycle:
//
// A task is created live, receives one OnUpdate call per Advance with the
// eased progress in [0,1], and ends in exactly one of two ways:
//   - completion: progress reached 1 during an update that did not cancel it,
//     OnComplete fires once;
//   - cancellation: Cancel was called (possibly from inside OnUpdate),
//     OnCancel fires once and the scheduler forgets the task immediately.
//
// Usage:
//
//	sched := tween.NewScheduler()
//	from, to := 0.0, 10.0
//	sched.Animate(200*time.Millisecond, tween.Linear).
//		OnUpdate(func(p float64) { x = tween.Lerp(from, to, p) }).
//		OnComplete(func() { x = to })
//
//	sched.After(4*time.Second, finalize)
//
//	for frame := range frames {
//		sched.Advance(frame.Delta)
//	}
package tween
