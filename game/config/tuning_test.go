package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/stickcarrier/game/engine"
)

func TestLoadTuning_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadTuning(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultTuning(), cfg)

	cfg, err = LoadTuning("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTuning(), cfg)
}

func TestLoadTuning_OverridesOnlyWhatIsSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
actor:
  move_speed: 4
  rotation_duration: 250ms
  anchor_offset: {x: 0, y: 0, z: 0.6}
  win_delay: 2s
world:
  volume_inset: 0.1
`), 0644))

	cfg, err := LoadTuning(path)
	require.NoError(t, err)

	assert.Equal(t, 4.0, cfg.Actor.MoveSpeed)
	assert.Equal(t, 250*time.Millisecond, cfg.Actor.RotationDuration)
	assert.Equal(t, 2*time.Second, cfg.Actor.WinDelay)
	assert.Equal(t, engine.Vec3{Z: 0.6}, cfg.Actor.AnchorOffset)
	assert.Equal(t, 250*time.Millisecond, cfg.Actor.MoveDuration())

	def := engine.DefaultTuning()
	assert.Equal(t, def.GrabDelay, cfg.Actor.GrabDelay)
	assert.Equal(t, def.BlockRadius, cfg.Actor.BlockRadius)

	opts := cfg.WorldOptions()
	assert.Equal(t, 0.1, opts.VolumeInset)
	assert.Equal(t, 2.0, opts.ProbeHeight)
}

func TestLoadTuning_Invalid(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("actor:\n  move_speed: 0\n"), 0644))
	_, err := LoadTuning(bad)
	assert.ErrorIs(t, err, engine.ErrInvalidTuning)

	inset := filepath.Join(dir, "inset.yaml")
	require.NoError(t, os.WriteFile(inset, []byte("world:\n  volume_inset: 0.7\n"), 0644))
	_, err = LoadTuning(inset)
	assert.ErrorIs(t, err, engine.ErrInvalidTuning)

	garbage := filepath.Join(dir, "garbage.yaml")
	require.NoError(t, os.WriteFile(garbage, []byte("actor: [1, 2"), 0644))
	_, err = LoadTuning(garbage)
	assert.Error(t, err)
}
