package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when no transition is configured for
	// the (role, state, action) triple.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidState is returned when a state is not valid for the workflow.
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidRole is returned for role values outside the closed set.
	ErrInvalidRole = errors.New("invalid role")

	// ErrGuardFailed is returned when a transition exists but its guard
	// condition rejects it (e.g. roster check outstanding).
	ErrGuardFailed = errors.New("guard condition failed")
)
