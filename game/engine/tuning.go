package engine

import (
	"fmt"
	"time"
)

// Tuning holds every constant the actor state machine depends on.
type Tuning struct {
	MoveDistance     float64       `json:"move_distance" yaml:"move_distance"`
	MoveSpeed        float64       `json:"move_speed" yaml:"move_speed"`
	RotationDuration time.Duration `json:"rotation_duration" yaml:"rotation_duration"`
	FixedY           float64       `json:"fixed_y" yaml:"fixed_y"`

	ObstacleRadius float64 `json:"obstacle_radius" yaml:"obstacle_radius"`
	GoalRadius     float64 `json:"goal_radius" yaml:"goal_radius"`
	BlockRadius    float64 `json:"block_radius" yaml:"block_radius"`
	PickupRadius   float64 `json:"pickup_radius" yaml:"pickup_radius"`

	// AnchorOffset is the carry anchor ("mouth") in the actor's frame.
	AnchorOffset Vec3 `json:"anchor_offset" yaml:"anchor_offset"`

	GrabDelay       time.Duration `json:"grab_delay" yaml:"grab_delay"`
	WinDelay        time.Duration `json:"win_delay" yaml:"win_delay"`
	WinEffectHeight float64       `json:"win_effect_height" yaml:"win_effect_height"`

	DropDistance  float64 `json:"drop_distance" yaml:"drop_distance"`
	DropYawOffset float64 `json:"drop_yaw_offset" yaml:"drop_yaw_offset"`
}

// DefaultTuning returns the stock values.
func DefaultTuning() Tuning {
	return Tuning{
		MoveDistance:     1,
		MoveSpeed:        5,
		RotationDuration: 500 * time.Millisecond,
		FixedY:           0,
		ObstacleRadius:   0.3,
		GoalRadius:       0.3,
		BlockRadius:      0.2,
		PickupRadius:     1,
		AnchorOffset:     Vec3{Z: 0.5},
		GrabDelay:        200 * time.Millisecond,
		WinDelay:         4 * time.Second,
		WinEffectHeight:  1,
		DropDistance:     1,
		DropYawOffset:    90,
	}
}

// MoveDuration is the time one grid step takes.
func (t *Tuning) MoveDuration() time.Duration {
	return time.Duration(t.MoveDistance / t.MoveSpeed * float64(time.Second))
}

// Validate checks the tuning for values the state machine cannot run with.
func (t *Tuning) Validate() error {
	if t.MoveDistance <= 0 {
		return fmt.Errorf("%w: move_distance must be positive, got %v", ErrInvalidTuning, t.MoveDistance)
	}
	if t.MoveSpeed <= 0 {
		return fmt.Errorf("%w: move_speed must be positive, got %v", ErrInvalidTuning, t.MoveSpeed)
	}
	if t.RotationDuration < 0 {
		return fmt.Errorf("%w: rotation_duration cannot be negative", ErrInvalidTuning)
	}
	if t.GrabDelay < 0 || t.WinDelay < 0 {
		return fmt.Errorf("%w: delays cannot be negative", ErrInvalidTuning)
	}
	for name, r := range map[string]float64{
		"obstacle_radius": t.ObstacleRadius,
		"goal_radius":     t.GoalRadius,
		"block_radius":    t.BlockRadius,
		"pickup_radius":   t.PickupRadius,
	} {
		if r <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidTuning, name, r)
		}
	}
	if t.DropDistance <= 0 {
		return fmt.Errorf("%w: drop_distance must be positive, got %v", ErrInvalidTuning, t.DropDistance)
	}
	return nil
}
