package world_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/stickcarrier/game/engine"
	"github.com/wricardo/stickcarrier/game/tween"
	"github.com/wricardo/stickcarrier/game/world"
)

func mustWorld(t *testing.T, layout []string, sticks ...world.StickSpec) *world.World {
	t.Helper()
	w, err := world.New(layout, sticks, world.DefaultOptions())
	require.NoError(t, err)
	return w
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name    string
		layout  []string
		sticks  []world.StickSpec
		opts    *world.Options
		wantErr error
	}{
		{name: "empty", layout: nil, wantErr: world.ErrEmptyLayout},
		{name: "ragged", layout: []string{"SG", "G"}, wantErr: world.ErrRaggedLayout},
		{name: "unknown tile", layout: []string{"S?"}, wantErr: world.ErrUnknownTile},
		{name: "no spawn", layout: []string{"GG"}, wantErr: world.ErrNoSpawn},
		{
			name:    "stick outside",
			layout:  []string{"SG"},
			sticks:  []world.StickSpec{{ID: "s", X: 5, Z: 0}},
			wantErr: world.ErrStickOutOfBounds,
		},
		{
			name:    "duplicate stick",
			layout:  []string{"SGG"},
			sticks:  []world.StickSpec{{ID: "s", X: 1}, {ID: "s", X: 2}},
			wantErr: world.ErrDuplicateStick,
		},
		{
			name:    "bad probe",
			layout:  []string{"SG"},
			opts:    &world.Options{ProbeHeight: 0, ProbeDistance: 5},
			wantErr: world.ErrInvalidProbeRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := world.DefaultOptions()
			if tt.opts != nil {
				opts = *tt.opts
			}
			_, err := world.New(tt.layout, tt.sticks, opts)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNew_Coordinates(t *testing.T) {
	w := mustWorld(t, []string{
		"S.",
		"GX",
	}, world.StickSpec{X: 1, Z: 1, Yaw: 90})

	assert.Equal(t, 2, w.Width())
	assert.Equal(t, 2, w.Depth())
	assert.Equal(t, engine.Vec3{X: 0, Z: 1}, w.Spawn(), "first row is north")

	tile, ok := w.TileAt(1, 0)
	require.True(t, ok)
	assert.Equal(t, world.TileGoal, tile)
	_, ok = w.TileAt(2, 0)
	assert.False(t, ok)

	s, ok := w.Stick("stick-1")
	require.True(t, ok, "unnamed sticks get a positional id")
	assert.Equal(t, engine.Vec3{X: 1, Z: 1}, s.Position())
	assert.Equal(t, 90.0, s.Yaw())

	assert.Len(t, w.Boxes(world.Ground), 3)
	assert.Len(t, w.Boxes(world.Goal), 1)
	assert.Empty(t, w.Boxes(world.Obstacle))
}

func TestGroundBelow(t *testing.T) {
	w := mustWorld(t, []string{"SG.#b"})

	tests := []struct {
		name string
		p    engine.Vec3
		want bool
	}{
		{"spawn", engine.Vec3{X: 0}, true},
		{"ground", engine.Vec3{X: 1}, true},
		{"void", engine.Vec3{X: 2}, false},
		{"wall stops the ray", engine.Vec3{X: 3}, false},
		{"post has ground", engine.Vec3{X: 4}, true},
		{"off grid", engine.Vec3{X: 7}, false},
		{"north of grid", engine.Vec3{X: 1, Z: 1}, false},
		{"far below", engine.Vec3{X: 1, Y: -10}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.GroundBelow(tt.p))
		})
	}
}

func TestOverlaps(t *testing.T) {
	w := mustWorld(t, []string{"S#bX"})

	assert.True(t, w.ObstacleOverlap(engine.Vec3{X: 1}, 0.3))
	assert.False(t, w.ObstacleOverlap(engine.Vec3{X: 0}, 0.3), "neighbouring cell centre is clear")
	assert.False(t, w.ObstacleOverlap(engine.Vec3{X: 2}, 0.3), "posts are not obstacles")

	assert.True(t, w.BlockingOverlap(engine.Vec3{X: 1}, 0.2), "walls block")
	assert.True(t, w.BlockingOverlap(engine.Vec3{X: 1.5}, 0.2), "a point on the cell edge touches the post")
	assert.False(t, w.BlockingOverlap(engine.Vec3{X: 0}, 0.2))
	assert.False(t, w.BlockingOverlap(engine.Vec3{X: 2, Y: 3}, 0.2), "above the volume")

	assert.True(t, w.GoalOverlap(engine.Vec3{X: 3}, 0.3))
	assert.False(t, w.GoalOverlap(engine.Vec3{X: 2}, 0.3))
}

func TestFindNearbyCarryable(t *testing.T) {
	w := mustWorld(t, []string{"SGGG"},
		world.StickSpec{ID: "near", X: 1},
		world.StickSpec{ID: "far", X: 3},
	)

	obj, ok := w.FindNearbyCarryable(engine.Vec3{}, 1)
	require.True(t, ok)
	assert.Equal(t, "near", obj.ID())

	require.NoError(t, obj.Hold())
	assert.ErrorIs(t, obj.Hold(), engine.ErrAlreadyHeld)
	_, ok = w.FindNearbyCarryable(engine.Vec3{}, 1)
	assert.False(t, ok, "held sticks are not offered")

	obj.Release()
	_, ok = w.FindNearbyCarryable(engine.Vec3{X: 0.2, Z: 0.9}, 1)
	assert.True(t, ok, "distance is measured to the stick body")
}

func TestFindNearbyCarryable_MissingMarkersUsesCentre(t *testing.T) {
	w := mustWorld(t, []string{"SG"}, world.StickSpec{ID: "broken", X: 1, MissingExtremity: true})

	obj, ok := w.FindNearbyCarryable(engine.Vec3{}, 1)
	require.True(t, ok)
	_, _, markers := obj.LocalExtremities()
	assert.False(t, markers)

	_, ok = w.FindNearbyCarryable(engine.Vec3{Z: 0.5}, 1)
	assert.False(t, ok)
}

func TestSnapshot(t *testing.T) {
	layout := []string{
		"..X",
		"SGb",
	}
	w := mustWorld(t, layout, world.StickSpec{ID: "s", X: 1, Z: 0})

	snap := w.Snapshot()
	assert.Equal(t, layout, snap.Layout)
	require.Len(t, snap.Sticks, 1)
	assert.Equal(t, "s", snap.Sticks[0].ID)
	require.NotNil(t, snap.Sticks[0].EndA)
	assert.InDelta(t, 0.5, snap.Sticks[0].EndA.Z, 1e-9)
	assert.InDelta(t, -0.5, snap.Sticks[0].EndB.Z, 1e-9)
}

type recorder struct {
	engine.NopObserver
	blocked   int
	triggered int
}

func (r *recorder) OnBlocked()                 { r.blocked++ }
func (r *recorder) OnWinTriggered(engine.Vec3) { r.triggered++ }

func run(s *tween.Scheduler, d time.Duration) {
	const frame = time.Second / 60
	for elapsed := time.Duration(0); elapsed < d; elapsed += frame {
		s.Advance(frame)
	}
}

func newActor(t *testing.T, w *world.World, obs engine.Observer) (*engine.Actor, *tween.Scheduler) {
	t.Helper()
	sched := tween.NewScheduler()
	a, err := engine.NewActor(nil, w.Spawn(), 90, engine.Deps{Space: w, Observer: obs, Scheduler: sched})
	require.NoError(t, err)
	return a, sched
}

func TestActor_CarriesStickToGoal(t *testing.T) {
	w := mustWorld(t, []string{
		".....",
		"GGGGG",
		"SGGGX",
	}, world.StickSpec{ID: "s", X: 1, Z: 0})
	obs := &recorder{}
	actor, sched := newActor(t, w, obs)

	require.True(t, actor.Interact())
	run(sched, 300*time.Millisecond)
	_, carrying := actor.Carried()
	require.True(t, carrying)

	stick, _ := w.Stick("s")
	assert.True(t, stick.Held())

	for i := 0; i < 4; i++ {
		require.True(t, actor.Move(engine.East), "step %d", i)
		run(sched, 250*time.Millisecond)
	}

	assert.Equal(t, engine.StateWon, actor.State())
	assert.Equal(t, 1, obs.triggered)
	assert.Equal(t, 0, obs.blocked)
}

func TestActor_PostBlocksCarriedStick(t *testing.T) {
	w := mustWorld(t, []string{
		".....",
		"GGGbG",
		"SGGGX",
	}, world.StickSpec{ID: "s", X: 1, Z: 0})
	obs := &recorder{}
	actor, sched := newActor(t, w, obs)

	require.True(t, actor.Interact())
	run(sched, 300*time.Millisecond)

	require.True(t, actor.Move(engine.East))
	run(sched, 250*time.Millisecond)
	require.Equal(t, engine.Vec3{X: 1}, actor.Position())

	require.True(t, actor.Move(engine.East))
	run(sched, 250*time.Millisecond)

	assert.Equal(t, engine.Vec3{X: 1}, actor.Position(), "the stick end clips the post and the step is rolled back")
	assert.Equal(t, engine.StateIdle, actor.State())
	assert.Equal(t, 1, obs.blocked)
}

func TestCategory_String(t *testing.T) {
	assert.Equal(t, "blocking", world.Blocking.String())
	assert.Equal(t, "category(9)", world.Category(9).String())
	assert.True(t, world.TilePost.Walkable())
	assert.False(t, world.TileWall.Walkable())
	assert.False(t, world.TileVoid.Walkable())
}
