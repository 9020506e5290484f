// Command analyze prints quick, human-readable heuristics about the level
// files in a directory. It summarizes dimensions, sticks and time limits, and
// compares the shortest spawn-to-goal walk against the level timer.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/wricardo/stickcarrier/game/config"
	"github.com/wricardo/stickcarrier/game/engine"
	"github.com/wricardo/stickcarrier/game/world"
)

// Cell denotes a layout coordinate: Row 0 is the northmost row.
type Cell struct {
	Row, Col int
}

// Analysis is the summary of one level.
type Analysis struct {
	ID          string
	Name        string
	Width       int
	Depth       int
	Sticks      int
	Walkable    int
	TimeLimit   float64
	Spawn       Cell
	Goals       []Cell
	Steps       int // shortest walk to any goal, -1 when unreachable
	MinSeconds  float64
	Unreachable []Cell
}

func main() {
	dir := flag.String("dir", "configs", "Directory containing level files")
	tuningPath := flag.String("tuning", "", "Tuning file used for move timing (defaults when empty)")
	flag.Parse()

	tuning, err := config.LoadTuning(*tuningPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading tuning: %v\n", err)
		os.Exit(1)
	}

	manager, err := config.NewManager(*dir, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening levels: %v\n", err)
		os.Exit(1)
	}
	levels, err := manager.ListLevels()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing levels: %v\n", err)
		os.Exit(1)
	}

	for _, info := range levels {
		fmt.Printf("\n=== Analyzing %s ===\n", info.LevelID)
		cfg, err := manager.LoadLevel(info.LevelID)
		if err != nil {
			fmt.Printf("Error loading level: %v\n", err)
			continue
		}
		report(os.Stdout, analyze(info.LevelID, cfg, tuning.Actor))
	}
}

// analyze walks the layout breadth-first from the spawn over walkable tiles.
func analyze(id string, cfg *config.LevelConfig, tuning engine.Tuning) Analysis {
	a := Analysis{
		ID:        id,
		Name:      cfg.Name,
		Depth:     len(cfg.Layout),
		Sticks:    len(cfg.Sticks),
		TimeLimit: cfg.TimeLimit(),
		Steps:     -1,
	}
	if a.Depth > 0 {
		a.Width = len(cfg.Layout[0])
	}

	walkable := func(c Cell) bool {
		if c.Row < 0 || c.Row >= a.Depth || c.Col < 0 || c.Col >= len(cfg.Layout[c.Row]) {
			return false
		}
		tile, err := world.ParseTile(cfg.Layout[c.Row][c.Col])
		return err == nil && tile.Walkable()
	}

	for r, row := range cfg.Layout {
		for c := 0; c < len(row); c++ {
			switch world.Tile(row[c]) {
			case world.TileSpawn:
				a.Spawn = Cell{r, c}
			case world.TileGoal:
				a.Goals = append(a.Goals, Cell{r, c})
			}
			if walkable(Cell{r, c}) {
				a.Walkable++
			}
		}
	}

	dist := map[Cell]int{a.Spawn: 0}
	queue := []Cell{a.Spawn}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range []Cell{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
			next := Cell{cur.Row + d.Row, cur.Col + d.Col}
			if _, seen := dist[next]; seen || !walkable(next) {
				continue
			}
			dist[next] = dist[cur] + 1
			queue = append(queue, next)
		}
	}

	for _, g := range a.Goals {
		if d, ok := dist[g]; ok && (a.Steps < 0 || d < a.Steps) {
			a.Steps = d
		}
	}
	if a.Steps >= 0 {
		a.MinSeconds = float64(a.Steps) * tuning.MoveDuration().Seconds()
	}

	for r, row := range cfg.Layout {
		for c := 0; c < len(row); c++ {
			cell := Cell{r, c}
			if _, ok := dist[cell]; !ok && walkable(cell) {
				a.Unreachable = append(a.Unreachable, cell)
			}
		}
	}
	return a
}

func report(w io.Writer, a Analysis) {
	fmt.Fprintf(w, "Name: %s\n", a.Name)
	fmt.Fprintf(w, "Size: %d x %d (%d walkable)\n", a.Width, a.Depth, a.Walkable)
	fmt.Fprintf(w, "Sticks: %d\n", a.Sticks)
	fmt.Fprintf(w, "Time Limit: %.0fs\n", a.TimeLimit)
	fmt.Fprintf(w, "Spawn: row %d, col %d\n", a.Spawn.Row, a.Spawn.Col)

	if a.Steps < 0 {
		fmt.Fprintf(w, "⚠️  CRITICAL: no goal is reachable from the spawn!\n")
	} else {
		fmt.Fprintf(w, "Shortest walk: %d steps, %.1fs without turns\n", a.Steps, a.MinSeconds)
		if a.MinSeconds > a.TimeLimit {
			fmt.Fprintf(w, "⚠️  WARNING: the shortest walk takes longer than the time limit!\n")
		} else {
			fmt.Fprintf(w, "✅ Goal reachable within the time limit\n")
		}
	}

	if len(a.Unreachable) > 0 {
		fmt.Fprintf(w, "⚠️  WARNING: %d walkable cells are unreachable from the spawn\n", len(a.Unreachable))
		for i, c := range a.Unreachable {
			if i < 5 {
				fmt.Fprintf(w, "   Unreachable: row %d, col %d\n", c.Row, c.Col)
			}
		}
		if len(a.Unreachable) > 5 {
			fmt.Fprintf(w, "   ... and %d more\n", len(a.Unreachable)-5)
		}
	}
}
