package world

import (
	"errors"
	"fmt"
)

// Category is the semantic class of a collider. Level content is translated
// to categories once when the world is built.
type Category uint8

const (
	Ground Category = iota
	Obstacle
	Goal
	Blocking
	Carryable

	numCategories
)

var categoryNames = [numCategories]string{
	Ground:    "ground",
	Obstacle:  "obstacle",
	Goal:      "goal",
	Blocking:  "blocking",
	Carryable: "carryable",
}

func (c Category) String() string {
	if c < numCategories {
		return categoryNames[c]
	}
	return fmt.Sprintf("category(%d)", uint8(c))
}

// Tile is one character of a level layout.
type Tile byte

const (
	TileVoid   Tile = '.'
	TileGround Tile = 'G'
	TileWall   Tile = '#'
	TilePost   Tile = 'b'
	TileGoal   Tile = 'X'
	TileSpawn  Tile = 'S'
)

var ErrUnknownTile = errors.New("unknown tile")

var legend = map[Tile][]Category{
	TileVoid:   nil,
	TileGround: {Ground},
	TileWall:   {Ground, Obstacle, Blocking},
	TilePost:   {Ground, Blocking},
	TileGoal:   {Ground, Goal},
	TileSpawn:  {Ground},
}

// ParseTile validates a layout character.
func ParseTile(ch byte) (Tile, error) {
	t := Tile(ch)
	if _, ok := legend[t]; !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTile, string(ch))
	}
	return t, nil
}

// Categories returns the collider categories the tile produces.
func (t Tile) Categories() []Category {
	return legend[t]
}

// Has reports whether the tile produces a collider of category c.
func (t Tile) Has(c Category) bool {
	for _, own := range legend[t] {
		if own == c {
			return true
		}
	}
	return false
}

// Walkable reports whether an actor may stand on the tile.
func (t Tile) Walkable() bool {
	return t.Has(Ground) && !t.Has(Obstacle)
}

// Legend describes every tile character, for level authors and tool output.
func Legend() map[string]string {
	return map[string]string{
		string(TileVoid):   "void (no ground)",
		string(TileGround): "ground",
		string(TileWall):   "wall (obstacle, blocks the carried stick)",
		string(TilePost):   "post (walkable, blocks the carried stick)",
		string(TileGoal):   "goal",
		string(TileSpawn):  "spawn",
	}
}
