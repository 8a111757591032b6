package workflow

import "context"

// StateMachine tracks the current state of one workflow entity and validates
// role-gated transitions against it.
type StateMachine interface {
	// State returns the current state.
	State() State

	// CanFire returns true if the role may invoke the action in the current
	// state. Guards are evaluated, so an action whose guard rejects (e.g.
	// approve before the roster check) reports false here as well; the
	// availability check and the disabled-control predicate always agree.
	CanFire(ctx context.Context, role Role, action Action) bool

	// Fire executes the action, transitioning to the new state if allowed.
	Fire(ctx context.Context, role Role, action Action) error

	// PermittedActions returns the actions the role may invoke in the
	// current state, guards included.
	PermittedActions(ctx context.Context, role Role) []Action
}
