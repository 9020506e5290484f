package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wricardo/stickcarrier/game/world"
)

const (
	DefaultTimeLimitSeconds = 100
	MaxLayoutSize           = 64
)

// LevelConfig is the on-disk format of one level.
type LevelConfig struct {
	Name             string            `json:"name"`
	Description      string            `json:"description"`
	Order            int               `json:"order"`
	Layout           []string          `json:"layout"`
	Sticks           []world.StickSpec `json:"sticks"`
	SpawnYaw         float64           `json:"spawn_yaw"`
	TimeLimitSeconds float64           `json:"time_limit_seconds,omitempty"`
	Legend           map[string]string `json:"legend,omitempty"`
}

// TimeLimit returns the level timer length in seconds, falling back to the
// default when unset.
func (c *LevelConfig) TimeLimit() float64 {
	if c.TimeLimitSeconds <= 0 {
		return DefaultTimeLimitSeconds
	}
	return c.TimeLimitSeconds
}

// ValidateLevelConfig checks a level for correctness and solvability of the
// walk: the goal must be reachable from the spawn over walkable cells.
func ValidateLevelConfig(cfg *LevelConfig) error {
	if cfg.Name == "" {
		return fmt.Errorf("level validation: name is required")
	}
	if cfg.Description == "" {
		return fmt.Errorf("level validation: description is required")
	}
	if cfg.TimeLimitSeconds < 0 {
		return fmt.Errorf("level validation: time_limit_seconds cannot be negative, got %v", cfg.TimeLimitSeconds)
	}
	if len(cfg.Layout) == 0 {
		return fmt.Errorf("level validation: layout is empty")
	}
	if len(cfg.Layout) > MaxLayoutSize {
		return fmt.Errorf("level validation: layout has %d rows, max %d", len(cfg.Layout), MaxLayoutSize)
	}

	width := len(cfg.Layout[0])
	if width == 0 || width > MaxLayoutSize {
		return fmt.Errorf("level validation: row width must be between 1 and %d, got %d", MaxLayoutSize, width)
	}

	g := newGrid(cfg.Layout)
	spawns, goals := 0, 0
	for i, row := range cfg.Layout {
		if len(row) != width {
			return fmt.Errorf("level validation: row %d must have %d characters, got %d", i+1, width, len(row))
		}
		for j := 0; j < len(row); j++ {
			tile, err := world.ParseTile(row[j])
			if err != nil {
				return fmt.Errorf("level validation: row %d, col %d: %w", i+1, j+1, err)
			}
			switch tile {
			case world.TileSpawn:
				spawns++
			case world.TileGoal:
				goals++
			}
		}
	}
	if spawns != 1 {
		return fmt.Errorf("level validation: exactly one spawn (S) is required, found %d", spawns)
	}
	if goals == 0 {
		return fmt.Errorf("level validation: at least one goal (X) is required")
	}

	if len(cfg.Sticks) == 0 {
		return fmt.Errorf("level validation: at least one stick is required")
	}
	seen := make(map[string]bool, len(cfg.Sticks))
	for i, s := range cfg.Sticks {
		if s.ID != "" {
			if seen[s.ID] {
				return fmt.Errorf("level validation: duplicate stick id %q", s.ID)
			}
			seen[s.ID] = true
		}
		tile, ok := g.at(s.X, s.Z)
		if !ok {
			return fmt.Errorf("level validation: stick %d at (%d,%d) is outside the grid", i+1, s.X, s.Z)
		}
		if !tile.Has(world.Ground) {
			return fmt.Errorf("level validation: stick %d at (%d,%d) is not on ground", i+1, s.X, s.Z)
		}
		if s.HalfLength < 0 {
			return fmt.Errorf("level validation: stick %d has negative half_length", i+1)
		}
	}

	if !g.goalReachable() {
		return fmt.Errorf("level validation: no goal is reachable from the spawn")
	}
	return nil
}

// grid indexes a validated layout by world cell (x, z).
type grid struct {
	rows  []string
	depth int
}

func newGrid(layout []string) grid {
	return grid{rows: layout, depth: len(layout)}
}

func (g grid) at(x, z int) (world.Tile, bool) {
	row := g.depth - 1 - z
	if row < 0 || row >= g.depth || x < 0 || x >= len(g.rows[row]) {
		return 0, false
	}
	return world.Tile(g.rows[row][x]), true
}

// goalReachable flood-fills from the spawn over walkable cells.
func (g grid) goalReachable() bool {
	type cell struct{ x, z int }

	var start cell
	found := false
	for z := 0; z < g.depth && !found; z++ {
		for x := 0; x < len(g.rows[0]); x++ {
			if t, _ := g.at(x, z); t == world.TileSpawn {
				start, found = cell{x, z}, true
				break
			}
		}
	}
	if !found {
		return false
	}

	visited := map[cell]bool{start: true}
	queue := []cell{start}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if t, _ := g.at(c.x, c.z); t == world.TileGoal {
			return true
		}
		for _, d := range []cell{{0, 1}, {0, -1}, {1, 0}, {-1, 0}} {
			next := cell{c.x + d.x, c.z + d.z}
			if visited[next] {
				continue
			}
			t, ok := g.at(next.x, next.z)
			if !ok || !t.Walkable() {
				continue
			}
			visited[next] = true
			queue = append(queue, next)
		}
	}
	return false
}

// ValidationResult captures the outcome of validating a single level file.
type ValidationResult struct {
	File   string   `json:"file"`
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// ValidateFile loads and validates one level file.
func ValidateFile(path string) ValidationResult {
	result := ValidationResult{File: filepath.Base(path), Valid: true}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("failed to read file: %v", err))
		return result
	}

	var cfg LevelConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("invalid JSON: %v", err))
		return result
	}

	if err := checkSchema(data); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	if err := ValidateLevelConfig(&cfg); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
	}
	return result
}

// ValidateDir validates every level file in dir.
func ValidateDir(dir string) ([]ValidationResult, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list level files: %w", err)
	}
	results := make([]ValidationResult, 0, len(files))
	for _, f := range files {
		results = append(results, ValidateFile(f))
	}
	return results, nil
}
