package tween

import "math"

// Ease maps linear progress in [0,1] to eased progress.
type Ease func(p float64) float64

// Linear is the identity ease.
func Linear(p float64) float64 { return p }

// InOutQuad accelerates through the first half and decelerates through the second.
func InOutQuad(p float64) float64 {
	if p < 0.5 {
		return 2 * p * p
	}
	return 1 - math.Pow(-2*p+2, 2)/2
}

// OutBounce settles with decaying bounces, used for the win panel drop.
func OutBounce(p float64) float64 {
	const (
		n1 = 7.5625
		d1 = 2.75
	)
	switch {
	case p < 1/d1:
		return n1 * p * p
	case p < 2/d1:
		p -= 1.5 / d1
		return n1*p*p + 0.75
	case p < 2.5/d1:
		p -= 2.25 / d1
		return n1*p*p + 0.9375
	default:
		p -= 2.625 / d1
		return n1*p*p + 0.984375
	}
}

// Lerp interpolates between a and b.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// LerpAngle interpolates between two angles in degrees along the shortest arc.
func LerpAngle(a, b, t float64) float64 {
	return a + ShortestArc(a, b)*t
}

// ShortestArc returns the signed rotation in degrees from a to b, in (-180,180].
func ShortestArc(a, b float64) float64 {
	d := math.Mod(b-a, 360)
	if d > 180 {
		d -= 360
	} else if d <= -180 {
		d += 360
	}
	return d
}
