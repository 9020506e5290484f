package level

import (
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/stickcarrier/game/config"
	"github.com/wricardo/stickcarrier/game/engine"
	"github.com/wricardo/stickcarrier/game/tween"
	"github.com/wricardo/stickcarrier/game/world"
)

var (
	ErrLevelOver     = errors.New("level is over")
	ErrUnknownIntent = errors.New("unknown intent")
)

// Level is one loaded level: the world, the actor, its scheduler and the
// countdown. It is not safe for concurrent use.
type Level struct {
	id    string
	name  string
	world *world.World
	sched *tween.Scheduler
	actor *engine.Actor
	log   *zap.Logger
	sink  EventSink

	limit    time.Duration
	elapsed  time.Duration
	status   Status
	score    int
	unloaded bool
}

var (
	_ engine.Observer      = (*Level)(nil)
	_ engine.StateObserver = (*Level)(nil)
	_ engine.CarryObserver = (*Level)(nil)
)

// Load builds the world for cfg and places the actor on its spawn. A nil
// sink discards events.
func Load(id string, cfg *config.LevelConfig, tuning config.Tuning, logger *zap.Logger, sink EventSink) (*Level, error) {
	if cfg == nil {
		return nil, errors.New("level config is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		sink = func(Event) {}
	}

	w, err := world.New(cfg.Layout, cfg.Sticks, tuning.WorldOptions())
	if err != nil {
		return nil, fmt.Errorf("building level %s: %w", id, err)
	}

	l := &Level{
		id:     id,
		name:   cfg.Name,
		world:  w,
		sched:  tween.NewScheduler(),
		log:    logger.With(zap.String("level", id)),
		sink:   sink,
		limit:  time.Duration(cfg.TimeLimit() * float64(time.Second)),
		status: StatusPlaying,
	}

	actor, err := engine.NewActor(&tuning.Actor, w.Spawn(), cfg.SpawnYaw, engine.Deps{
		Space:     w,
		Observer:  l,
		Scheduler: l.sched,
		Logger:    l.log,
	})
	if err != nil {
		return nil, fmt.Errorf("placing actor in level %s: %w", id, err)
	}
	l.actor = actor

	l.log.Info("level loaded", zap.Stringer("spawn", actor.Position()), zap.Duration("limit", l.limit))
	return l, nil
}

func (l *Level) ID() string { return l.id }
func (l *Level) Name() string { return l.name }
func (l *Level) Status() Status { return l.status }
func (l *Level) Score() int { return l.score }
func (l *Level) Actor() *engine.Actor { return l.actor }
func (l *Level) World() *world.World { return l.world }
func (l *Level) Elapsed() time.Duration { return l.elapsed }

// TimeLeft returns the remaining time, never negative.
func (l *Level) TimeLeft() time.Duration {
	if l.elapsed >= l.limit {
		return 0
	}
	return l.limit - l.elapsed
}

// Apply forwards an intent to the actor. It reports whether the actor
// accepted it; rejected intents change nothing.
func (l *Level) Apply(in Intent) (bool, error) {
	if l.unloaded || l.status != StatusPlaying {
		return false, ErrLevelOver
	}

	switch in.Action {
	case ActionMove:
		dir, err := engine.ParseDirection(in.Direction)
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrUnknownIntent, err)
		}
		from := l.actor.Position()
		if !l.actor.Move(dir) {
			return false, nil
		}
		l.emit(Event{Type: EventMove, Position: &from, To: string(dir)})
		return true, nil

	case ActionRotate:
		if in.Sign == 0 {
			return false, fmt.Errorf("%w: rotation needs a sign", ErrUnknownIntent)
		}
		from := l.actor.Heading()
		if !l.actor.Rotate(in.Sign) {
			return false, nil
		}
		l.emit(Event{
			Type: EventRotate,
			From: fmt.Sprint(int(from)),
			To:   fmt.Sprint(int(l.actor.Heading())),
		})
		return true, nil

	case ActionInteract:
		if _, carrying := l.actor.Carried(); carrying {
			if err := l.actor.Drop(); err != nil {
				l.log.Debug("drop refused", zap.Error(err))
				return false, nil
			}
			return true, nil
		}
		return l.actor.Interact(), nil
	}
	return false, fmt.Errorf("%w: %q", ErrUnknownIntent, in.Action)
}

// Tick advances the countdown, then every scheduled motion, by dt. When the
// countdown runs out before a finalized win the level is lost and the actor
// is torn down.
func (l *Level) Tick(dt time.Duration) {
	if l.unloaded || l.status != StatusPlaying || dt <= 0 {
		return
	}

	l.elapsed += dt
	if l.elapsed >= l.limit {
		l.elapsed = l.limit
		l.status = StatusLost
		l.actor.Teardown()
		l.log.Info("time is up")
		l.emit(Event{Type: EventTimeUp, Message: "time is up"})
		return
	}
	l.sched.Advance(dt)
}

// Unload tears the actor down and cancels every pending task. It is
// idempotent.
func (l *Level) Unload() {
	if l.unloaded {
		return
	}
	l.unloaded = true
	l.actor.Teardown()
	l.sched.CancelAll()
	l.log.Debug("level unloaded")
}

// Unloaded reports whether Unload has run.
func (l *Level) Unloaded() bool { return l.unloaded }

// OnBlocked implements engine.Observer.
func (l *Level) OnBlocked() {
	pos := l.actor.Position()
	l.emit(Event{Type: EventBlocked, Position: &pos})
}

// OnWinTriggered implements engine.Observer.
func (l *Level) OnWinTriggered(pos engine.Vec3) {
	l.emit(Event{Type: EventWinTriggered, Position: &pos})
}

// OnWinFinalized implements engine.Observer. A win that lands after the
// countdown ran out does not count.
func (l *Level) OnWinFinalized() {
	if l.status != StatusPlaying {
		return
	}
	l.status = StatusWon
	l.score = scoreFor(l.TimeLeft(), l.limit)
	l.log.Info("level won", zap.Int("score", l.score))
	l.emit(Event{Type: EventWinFinalized, Score: l.score})
}

// OnStateChanged implements engine.StateObserver.
func (l *Level) OnStateChanged(from, to engine.MotionState) {
	l.emit(Event{Type: EventState, From: from.String(), To: to.String()})
}

// OnPickedUp implements engine.CarryObserver.
func (l *Level) OnPickedUp(id string) {
	pos := l.actor.Position()
	l.emit(Event{Type: EventPickup, Object: id, Position: &pos})
}

// OnDropped implements engine.CarryObserver.
func (l *Level) OnDropped(id string, at engine.Vec3) {
	l.emit(Event{Type: EventDrop, Object: id, Position: &at})
}

func (l *Level) emit(e Event) {
	e.Level = l.id
	e.Time = l.elapsed.Seconds()
	l.sink(e)
}

// scoreFor is the share of the timer left, as a percentage.
func scoreFor(left, limit time.Duration) int {
	if limit <= 0 {
		return 0
	}
	score := int(math.Round(float64(left) / float64(limit) * 100))
	return max(0, min(100, score))
}

// Snapshot is a broadcastable view of the level.
type Snapshot struct {
	Level     string               `json:"level"`
	Name      string               `json:"name"`
	Status    Status               `json:"status"`
	Score     int                  `json:"score"`
	TimeLeft  float64              `json:"time_left"`
	TimeLimit float64              `json:"time_limit"`
	Actor     engine.ActorSnapshot `json:"actor"`
	World     world.Snapshot       `json:"world"`
}

// Snapshot returns the current view of the level.
func (l *Level) Snapshot() Snapshot {
	return Snapshot{
		Level:     l.id,
		Name:      l.name,
		Status:    l.status,
		Score:     l.score,
		TimeLeft:  l.TimeLeft().Seconds(),
		TimeLimit: l.limit.Seconds(),
		Actor:     l.actor.Snapshot(),
		World:     l.world.Snapshot(),
	}
}
