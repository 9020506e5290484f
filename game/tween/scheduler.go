package tween

import "time"

type taskState int

const (
	taskLive taskState = iota
	taskCompleted
	taskCancelled
)

// Scheduler is a frame-driven timer queue. It is not safe for concurrent use;
// the owner serialises Advance with every other call.
type Scheduler struct {
	now   time.Duration
	tasks []*Task
}

// NewScheduler creates an empty scheduler at time zero.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Now returns the accumulated scheduler time.
func (s *Scheduler) Now() time.Duration {
	return s.now
}

// Len returns the number of live tasks.
func (s *Scheduler) Len() int {
	return len(s.tasks)
}

// Animate starts a transition lasting d. Callbacks are attached with the
// Task's On* methods before the next Advance.
func (s *Scheduler) Animate(d time.Duration, ease Ease) *Task {
	if ease == nil {
		ease = Linear
	}
	if d < 0 {
		d = 0
	}
	t := &Task{
		sched:    s,
		start:    s.now,
		duration: d,
		ease:     ease,
	}
	s.tasks = append(s.tasks, t)
	return t
}

// After schedules fn to run once d has elapsed.
func (s *Scheduler) After(d time.Duration, fn func()) *Task {
	return s.Animate(d, Linear).OnComplete(fn)
}

// Advance moves the clock forward by dt and steps every task that was live
// when the call began. Tasks started by callbacks during this pass get their
// first update on the next pass.
func (s *Scheduler) Advance(dt time.Duration) {
	if dt < 0 {
		dt = 0
	}
	s.now += dt

	live := make([]*Task, len(s.tasks))
	copy(live, s.tasks)

	for _, t := range live {
		if t.state != taskLive {
			continue
		}
		t.step(s.now)
	}
}

// CancelAll cancels every live task. Used on level teardown so no stale
// callback can fire afterwards.
func (s *Scheduler) CancelAll() {
	live := make([]*Task, len(s.tasks))
	copy(live, s.tasks)
	for _, t := range live {
		t.Cancel()
	}
}

func (s *Scheduler) remove(t *Task) {
	for i, other := range s.tasks {
		if other == t {
			last := len(s.tasks) - 1
			copy(s.tasks[i:], s.tasks[i+1:])
			s.tasks[last] = nil
			s.tasks = s.tasks[:last]
			return
		}
	}
}

// Task is one scheduled transition or timer.
type Task struct {
	sched    *Scheduler
	start    time.Duration
	duration time.Duration
	ease     Ease
	progress float64
	state    taskState

	onUpdate   func(p float64)
	onComplete func()
	onCancel   func()
}

// OnUpdate sets the per-tick callback. It receives eased progress.
func (t *Task) OnUpdate(fn func(p float64)) *Task {
	t.onUpdate = fn
	return t
}

// OnComplete sets the callback fired once when the task finishes uncancelled.
func (t *Task) OnComplete(fn func()) *Task {
	t.onComplete = fn
	return t
}

// OnCancel sets the callback fired once when the task is cancelled.
func (t *Task) OnCancel(fn func()) *Task {
	t.onCancel = fn
	return t
}

// Cancel stops the task immediately. It is safe on a nil, finished or
// already cancelled task.
func (t *Task) Cancel() {
	if t == nil || t.state != taskLive {
		return
	}
	t.state = taskCancelled
	t.sched.remove(t)
	if t.onCancel != nil {
		t.onCancel()
	}
}

// Active reports whether the task is still live.
func (t *Task) Active() bool {
	return t != nil && t.state == taskLive
}

// Cancelled reports whether the task ended by cancellation.
func (t *Task) Cancelled() bool {
	return t != nil && t.state == taskCancelled
}

// Progress returns the last linear progress seen by the task.
func (t *Task) Progress() float64 {
	if t == nil {
		return 0
	}
	return t.progress
}

// Duration returns the configured length of the task.
func (t *Task) Duration() time.Duration {
	return t.duration
}

func (t *Task) step(now time.Duration) {
	p := 1.0
	if t.duration > 0 {
		p = float64(now-t.start) / float64(t.duration)
		if p > 1 {
			p = 1
		}
	}
	t.progress = p

	if t.onUpdate != nil {
		t.onUpdate(t.ease(p))
	}
	if t.state != taskLive || p < 1 {
		return
	}

	t.state = taskCompleted
	t.sched.remove(t)
	if t.onComplete != nil {
		t.onComplete()
	}
}
