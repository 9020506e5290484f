package world

import (
	"math"

	"github.com/wricardo/stickcarrier/game/engine"
)

// Box is an axis-aligned collider.
type Box struct {
	Min      engine.Vec3 `json:"min"`
	Max      engine.Vec3 `json:"max"`
	Category Category    `json:"category"`
}

// OverlapsSphere reports whether the sphere at c with radius r touches the box.
func (b Box) OverlapsSphere(c engine.Vec3, r float64) bool {
	dx := c.X - clamp(c.X, b.Min.X, b.Max.X)
	dy := c.Y - clamp(c.Y, b.Min.Y, b.Max.Y)
	dz := c.Z - clamp(c.Z, b.Min.Z, b.Max.Z)
	return dx*dx+dy*dy+dz*dz <= r*r
}

// RayDown intersects a ray pointing straight down from origin with the box.
// It returns the distance to the entry point.
func (b Box) RayDown(origin engine.Vec3, maxDist float64) (float64, bool) {
	if origin.X < b.Min.X || origin.X > b.Max.X || origin.Z < b.Min.Z || origin.Z > b.Max.Z {
		return 0, false
	}
	if origin.Y < b.Min.Y {
		return 0, false
	}
	dist := math.Max(0, origin.Y-b.Max.Y)
	if dist > maxDist {
		return 0, false
	}
	return dist, true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
