// Package world is the spatial query service behind the actor: a grid level
// built from a text layout, with axis-aligned colliders sorted into closed
// categories and a set of carryable sticks.
//
// Layout legend:
//
//	.  void (no ground)
//	G  ground
//	#  wall: ground, obstacle and blocking volume
//	b  post: ground and blocking volume
//	X  goal: ground and goal volume
//	S  spawn: ground
//
// The first layout row is the northmost one (+Z). Categories are resolved
// when the world is built, so queries never look at tile characters.
package world
