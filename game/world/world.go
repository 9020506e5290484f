package world

import (
	"errors"
	"fmt"
	"math"

	"github.com/wricardo/stickcarrier/game/engine"
)

var (
	ErrEmptyLayout       = errors.New("layout is empty")
	ErrRaggedLayout      = errors.New("layout rows differ in width")
	ErrNoSpawn           = errors.New("layout has no spawn")
	ErrStickOutOfBounds  = errors.New("stick is outside the grid")
	ErrDuplicateStick    = errors.New("duplicate stick id")
	ErrInvalidProbeRange = errors.New("ground probe must have positive height and distance")
)

// Options tune the collider geometry.
type Options struct {
	// FixedY is the height actors and sticks live at.
	FixedY float64
	// ProbeHeight and ProbeDistance shape the downward ground ray.
	ProbeHeight   float64
	ProbeDistance float64
	// VolumeInset shrinks obstacle, goal and blocking volumes horizontally
	// on every side.
	VolumeInset float64
}

// DefaultOptions returns the stock geometry.
func DefaultOptions() Options {
	return Options{
		ProbeHeight:   2,
		ProbeDistance: 5,
		VolumeInset:   0.05,
	}
}

// World is a tagged grid level. Layout row 0 is the northmost row; column 0
// is the westmost column. Cell (x, z) is centred on world (x, FixedY, z).
type World struct {
	opts   Options
	width  int
	depth  int
	tiles  [][]Tile
	boxes  [numCategories][]Box
	spawn  engine.Vec3
	sticks []*Stick
	byID   map[string]*Stick
}

var _ engine.SpatialQuery = (*World)(nil)

// New builds a world from a layout and stick placements.
func New(layout []string, sticks []StickSpec, opts Options) (*World, error) {
	if opts.ProbeHeight <= 0 || opts.ProbeDistance <= 0 {
		return nil, ErrInvalidProbeRange
	}
	if len(layout) == 0 || len(layout[0]) == 0 {
		return nil, ErrEmptyLayout
	}

	w := &World{
		opts:  opts,
		width: len(layout[0]),
		depth: len(layout),
		byID:  make(map[string]*Stick, len(sticks)),
	}
	w.tiles = make([][]Tile, w.depth)

	spawnFound := false
	for row, line := range layout {
		if len(line) != w.width {
			return nil, fmt.Errorf("%w: row %d has width %d, want %d", ErrRaggedLayout, row, len(line), w.width)
		}
		z := w.depth - 1 - row
		w.tiles[z] = make([]Tile, w.width)
		for x := 0; x < w.width; x++ {
			tile, err := ParseTile(line[x])
			if err != nil {
				return nil, fmt.Errorf("row %d col %d: %w", row, x, err)
			}
			w.tiles[z][x] = tile
			if tile == TileSpawn && !spawnFound {
				w.spawn = w.cellCentre(x, z)
				spawnFound = true
			}
			for _, c := range tile.Categories() {
				w.boxes[c] = append(w.boxes[c], w.boxFor(x, z, c))
			}
		}
	}
	if !spawnFound {
		return nil, ErrNoSpawn
	}

	for i, spec := range sticks {
		id := spec.ID
		if id == "" {
			id = fmt.Sprintf("stick-%d", i+1)
		}
		if _, dup := w.byID[id]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateStick, id)
		}
		if !w.inBounds(spec.X, spec.Z) {
			return nil, fmt.Errorf("%w: %s at (%d,%d)", ErrStickOutOfBounds, id, spec.X, spec.Z)
		}
		s := NewStick(id, w.cellCentre(spec.X, spec.Z), spec.Yaw, spec.HalfLength, !spec.MissingExtremity)
		w.sticks = append(w.sticks, s)
		w.byID[id] = s
	}
	return w, nil
}

func (w *World) cellCentre(x, z int) engine.Vec3 {
	return engine.Vec3{X: float64(x), Y: w.opts.FixedY, Z: float64(z)}
}

func (w *World) boxFor(x, z int, c Category) Box {
	fx, fz, y := float64(x), float64(z), w.opts.FixedY
	if c == Ground {
		return Box{
			Min:      engine.Vec3{X: fx - 0.5, Y: y - 1.5, Z: fz - 0.5},
			Max:      engine.Vec3{X: fx + 0.5, Y: y - 0.5, Z: fz + 0.5},
			Category: c,
		}
	}
	half := 0.5 - w.opts.VolumeInset
	return Box{
		Min:      engine.Vec3{X: fx - half, Y: y - 0.5, Z: fz - half},
		Max:      engine.Vec3{X: fx + half, Y: y + 1.5, Z: fz + half},
		Category: c,
	}
}

func (w *World) inBounds(x, z int) bool {
	return x >= 0 && x < w.width && z >= 0 && z < w.depth
}

// Width returns the number of columns.
func (w *World) Width() int { return w.width }

// Depth returns the number of rows.
func (w *World) Depth() int { return w.depth }

// Spawn returns the centre of the spawn cell.
func (w *World) Spawn() engine.Vec3 { return w.spawn }

// Options returns the geometry the world was built with.
func (w *World) Options() Options { return w.opts }

// TileAt returns the tile of cell (x, z).
func (w *World) TileAt(x, z int) (Tile, bool) {
	if !w.inBounds(x, z) {
		return 0, false
	}
	return w.tiles[z][x], true
}

// CellOf returns the cell containing p.
func (w *World) CellOf(p engine.Vec3) (x, z int) {
	return int(math.Round(p.X)), int(math.Round(p.Z))
}

// Boxes returns the colliders of one category.
func (w *World) Boxes(c Category) []Box {
	if c >= numCategories {
		return nil
	}
	return w.boxes[c]
}

// Sticks returns every stick in placement order.
func (w *World) Sticks() []*Stick { return w.sticks }

// Stick looks a stick up by id.
func (w *World) Stick(id string) (*Stick, bool) {
	s, ok := w.byID[id]
	return s, ok
}

// GroundBelow casts a ray down from above p. Obstacles stop the ray, so only
// an unobstructed ground surface counts.
func (w *World) GroundBelow(p engine.Vec3) bool {
	origin := p.Add(engine.Up.Scale(w.opts.ProbeHeight))
	nearest := math.Inf(1)
	hitGround := false
	for _, c := range []Category{Ground, Obstacle} {
		for _, b := range w.boxes[c] {
			d, ok := b.RayDown(origin, w.opts.ProbeDistance)
			if !ok || d >= nearest {
				continue
			}
			nearest = d
			hitGround = c == Ground
		}
	}
	return hitGround
}

func (w *World) overlap(c Category, p engine.Vec3, r float64) bool {
	for _, b := range w.boxes[c] {
		if b.OverlapsSphere(p, r) {
			return true
		}
	}
	return false
}

func (w *World) ObstacleOverlap(p engine.Vec3, r float64) bool { return w.overlap(Obstacle, p, r) }

func (w *World) GoalOverlap(p engine.Vec3, r float64) bool { return w.overlap(Goal, p, r) }

func (w *World) BlockingOverlap(p engine.Vec3, r float64) bool { return w.overlap(Blocking, p, r) }

// FindNearbyCarryable returns the closest free stick whose body lies within r
// of p.
func (w *World) FindNearbyCarryable(p engine.Vec3, r float64) (engine.Carryable, bool) {
	var best *Stick
	bestDist := math.Inf(1)
	for _, s := range w.sticks {
		if s.held {
			continue
		}
		if d := s.distanceTo(p); d <= r && d < bestDist {
			best, bestDist = s, d
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}

// Snapshot is a broadcastable view of the world.
type Snapshot struct {
	Width  int          `json:"width"`
	Depth  int          `json:"depth"`
	Layout []string     `json:"layout"`
	Sticks []StickState `json:"sticks"`
}

// Snapshot returns the layout (northmost row first) and the stick states.
func (w *World) Snapshot() Snapshot {
	s := Snapshot{
		Width:  w.width,
		Depth:  w.depth,
		Layout: make([]string, 0, w.depth),
		Sticks: make([]StickState, 0, len(w.sticks)),
	}
	for z := w.depth - 1; z >= 0; z-- {
		row := make([]byte, w.width)
		for x, t := range w.tiles[z] {
			row[x] = byte(t)
		}
		s.Layout = append(s.Layout, string(row))
	}
	for _, st := range w.sticks {
		s.Sticks = append(s.Sticks, st.State())
	}
	return s
}
