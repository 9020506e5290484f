package engine

import "errors"

var (
	ErrNotIdle          = errors.New("actor is not idle")
	ErrNotCarrying      = errors.New("actor is not carrying anything")
	ErrNoGroundAtDrop   = errors.New("no ground beneath drop cell")
	ErrMissingExtremity = errors.New("carryable is missing an extremity marker")
	ErrAlreadyHeld      = errors.New("carryable is already held")
	ErrInvalidDirection = errors.New("invalid direction")
	ErrActorClosed      = errors.New("actor has been torn down")
	ErrInvalidTuning    = errors.New("invalid tuning")
)
