package workflow

import (
	"context"
	"fmt"
	"sort"
)

// GuardFunc evaluates whether a configured transition may fire.
type GuardFunc func(ctx context.Context) bool

// StateMachineBuilder builds a configured state machine.
type StateMachineBuilder interface {
	// Configure returns a state configuration for the given state.
	Configure(state State) StateConfiguration

	// Build creates a new state machine instance with the given initial state.
	Build(initialState State) StateMachine
}

// StateConfiguration configures the transitions leaving a specific state.
type StateConfiguration interface {
	// Permit allows the role to move to the target state via the action.
	Permit(role Role, action Action, toState State) StateConfiguration

	// PermitIf is Permit with a guard that must pass for the transition to
	// fire or even be offered.
	PermitIf(role Role, action Action, toState State, guard GuardFunc) StateConfiguration
}

// transitionKey identifies one row of the transition table.
type transitionKey struct {
	role   Role
	action Action
}

// transition is a target state with an optional guard.
type transition struct {
	toState State
	guard   GuardFunc
}

type stateConfig struct {
	fromState   State
	transitions map[transitionKey][]transition
}

type stateMachineBuilder struct {
	validStates    map[State]bool
	configurations map[State]*stateConfig
}

type stateMachine struct {
	currentState   State
	configurations map[State]*stateConfig
}

// NewBuilder creates a builder whose states are restricted to the given set.
func NewBuilder(validStates map[State]bool) StateMachineBuilder {
	return &stateMachineBuilder{
		validStates:    validStates,
		configurations: make(map[State]*stateConfig),
	}
}

// NewJobSearchBuilder creates a builder over the job workflow state set.
func NewJobSearchBuilder() StateMachineBuilder {
	return NewBuilder(jobStates)
}

// NewCertificateBuilder creates a builder over the certificate workflow
// state set.
func NewCertificateBuilder() StateMachineBuilder {
	return NewBuilder(certificateStates)
}

// Configure returns a state configuration for the given state.
func (b *stateMachineBuilder) Configure(state State) StateConfiguration {
	if !b.validStates[state] {
		panic(fmt.Sprintf("invalid state: %s", state))
	}

	config, exists := b.configurations[state]
	if !exists {
		config = &stateConfig{
			fromState:   state,
			transitions: make(map[transitionKey][]transition),
		}
		b.configurations[state] = config
	}

	return &builderStateConfig{builder: b, config: config}
}

// builderStateConfig validates targets against the builder's state set
// before recording them.
type builderStateConfig struct {
	builder *stateMachineBuilder
	config  *stateConfig
}

// Permit allows the role to move to the target state via the action.
func (c *builderStateConfig) Permit(role Role, action Action, toState State) StateConfiguration {
	return c.PermitIf(role, action, toState, nil)
}

// PermitIf records a guarded transition for the (role, action) pair.
func (c *builderStateConfig) PermitIf(role Role, action Action, toState State, guard GuardFunc) StateConfiguration {
	if !c.builder.validStates[toState] {
		panic(fmt.Sprintf("invalid target state: %s", toState))
	}

	key := transitionKey{role: role, action: action}
	c.config.transitions[key] = append(c.config.transitions[key], transition{
		toState: toState,
		guard:   guard,
	})

	return c
}

// Build creates a new state machine instance with the given initial state.
func (b *stateMachineBuilder) Build(initialState State) StateMachine {
	if !b.validStates[initialState] {
		panic(fmt.Sprintf("invalid initial state: %s", initialState))
	}

	// Deep copy configurations so the builder can be reused safely.
	configsCopy := make(map[State]*stateConfig)
	for state, config := range b.configurations {
		transitionsCopy := make(map[transitionKey][]transition)
		for key, transitions := range config.transitions {
			transitionsCopy[key] = append([]transition{}, transitions...)
		}
		configsCopy[state] = &stateConfig{
			fromState:   state,
			transitions: transitionsCopy,
		}
	}

	return &stateMachine{
		currentState:   initialState,
		configurations: configsCopy,
	}
}

// State returns the current state.
func (m *stateMachine) State() State {
	return m.currentState
}

// CanFire returns true if the role may invoke the action in the current
// state and at least one of its guards passes.
func (m *stateMachine) CanFire(ctx context.Context, role Role, action Action) bool {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return false
	}

	transitions, exists := config.transitions[transitionKey{role: role, action: action}]
	if !exists || len(transitions) == 0 {
		return false
	}

	for _, t := range transitions {
		if t.guard == nil || t.guard(ctx) {
			return true
		}
	}
	return false
}

// Fire executes the action, transitioning to the new state if allowed.
func (m *stateMachine) Fire(ctx context.Context, role Role, action Action) error {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return fmt.Errorf("%w: no actions leave state %s", ErrInvalidTransition, m.currentState)
	}

	transitions, exists := config.transitions[transitionKey{role: role, action: action}]
	if !exists || len(transitions) == 0 {
		return fmt.Errorf("%w: role %s cannot invoke action %d from state %s",
			ErrInvalidTransition, role, action, m.currentState)
	}

	// Try each transition in order until one's guard passes.
	for _, t := range transitions {
		if t.guard == nil || t.guard(ctx) {
			m.currentState = t.toState
			return nil
		}
	}

	return fmt.Errorf("%w: action %d from state %s", ErrGuardFailed, action, m.currentState)
}

// PermittedActions returns the actions the role may invoke in the current
// state, in ascending action-code order.
func (m *stateMachine) PermittedActions(ctx context.Context, role Role) []Action {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return []Action{}
	}

	actions := make([]Action, 0, len(config.transitions))
	for key := range config.transitions {
		if key.role != role {
			continue
		}
		if m.CanFire(ctx, role, key.action) {
			actions = append(actions, key.action)
		}
	}

	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })
	return actions
}
