// Package config provides level and tuning configuration for the stick carrier.
//
// Levels are JSON files in a configs directory; the file name without its
// extension is the level id. Each level defines:
//   - a text layout using the world legend (. G # b X S)
//   - stick placements
//   - the spawn yaw and the level timer
//
// The manager remembers an xxhash of each file it reads, so the watcher only
// reports files whose content changed.
//
// Tuning is a YAML file holding every actor constant (speeds, radii, delays,
// anchor offset) and the collider geometry. A missing tuning file means
// defaults.
//
// Usage:
//
//	manager, err := config.NewManager("configs", logger)
//	if err != nil {
//		return err
//	}
//	lvl, err := manager.LoadLevel("level1")
//	levels, err := manager.ListLevels()
//	go manager.Watch(ctx, func(id string) { ... })
//
//	tuning, err := config.LoadTuning("tuning.yaml")
//
// Validation:
//
// Level files are first checked against an embedded JSON schema, then for:
//   - rectangular layout with known tiles
//   - exactly one spawn and at least one goal
//   - sticks inside the grid on ground
//   - a goal reachable from the spawn over walkable cells
package config
