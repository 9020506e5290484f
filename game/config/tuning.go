package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wricardo/stickcarrier/game/engine"
	"github.com/wricardo/stickcarrier/game/world"
)

// Tuning is the YAML tuning file: actor constants plus collider geometry.
type Tuning struct {
	Actor engine.Tuning `yaml:"actor" json:"actor"`
	World WorldTuning   `yaml:"world" json:"world"`
}

// WorldTuning shapes the spatial queries.
type WorldTuning struct {
	ProbeHeight   float64 `yaml:"probe_height" json:"probe_height"`
	ProbeDistance float64 `yaml:"probe_distance" json:"probe_distance"`
	VolumeInset   float64 `yaml:"volume_inset" json:"volume_inset"`
}

// DefaultTuning returns Tuning with sensible defaults.
func DefaultTuning() Tuning {
	opts := world.DefaultOptions()
	return Tuning{
		Actor: engine.DefaultTuning(),
		World: WorldTuning{
			ProbeHeight:   opts.ProbeHeight,
			ProbeDistance: opts.ProbeDistance,
			VolumeInset:   opts.VolumeInset,
		},
	}
}

// WorldOptions converts the tuning into world build options.
func (t Tuning) WorldOptions() world.Options {
	return world.Options{
		FixedY:        t.Actor.FixedY,
		ProbeHeight:   t.World.ProbeHeight,
		ProbeDistance: t.World.ProbeDistance,
		VolumeInset:   t.World.VolumeInset,
	}
}

// Validate checks both halves of the tuning.
func (t Tuning) Validate() error {
	if err := t.Actor.Validate(); err != nil {
		return err
	}
	if t.World.ProbeHeight <= 0 || t.World.ProbeDistance <= 0 {
		return fmt.Errorf("%w: ground probe height and distance must be positive", engine.ErrInvalidTuning)
	}
	if t.World.VolumeInset < 0 || t.World.VolumeInset >= 0.5 {
		return fmt.Errorf("%w: volume_inset must be in [0, 0.5), got %v", engine.ErrInvalidTuning, t.World.VolumeInset)
	}
	return nil
}

// LoadTuning loads tuning from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadTuning(path string) (Tuning, error) {
	cfg := DefaultTuning()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading tuning %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing tuning %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("tuning %s: %w", path, err)
	}
	return cfg, nil
}
