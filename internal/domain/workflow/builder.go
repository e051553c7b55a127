package workflow

import (
	"context"
	"fmt"
	"sort"
)

// GuardFunc evaluates whether a transition may proceed. A nil return allows
// the transition; a non-nil error explains why it was refused.
type GuardFunc func(ctx context.Context) error

// StateMachineBuilder builds a configured state machine
type StateMachineBuilder interface {
	// Configure returns a state configuration for the given state
	Configure(state State) StateConfiguration

	// Build creates a new state machine instance with the given initial state
	Build(initialState State) StateMachine
}

// StateConfiguration configures transitions for a specific state
type StateConfiguration interface {
	// Permit allows a trigger to transition to the target state
	Permit(trigger Trigger, toState State) StateConfiguration

	// PermitIf allows a trigger to transition to the target state if the guard passes
	PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration
}

// transition represents a state transition with optional guard
type transition struct {
	toState State
	guard   GuardFunc
}

// stateConfig implements StateConfiguration
type stateConfig struct {
	fromState   State
	transitions map[Trigger]transition
}

// stateMachineBuilder implements StateMachineBuilder
type stateMachineBuilder struct {
	configurations map[State]*stateConfig
}

// stateMachine implements StateMachine
type stateMachine struct {
	currentState   State
	configurations map[State]*stateConfig
}

// NewBuilder creates a new state machine builder
func NewBuilder() StateMachineBuilder {
	return &stateMachineBuilder{
		configurations: make(map[State]*stateConfig),
	}
}

// Configure returns a state configuration for the given state
func (b *stateMachineBuilder) Configure(state State) StateConfiguration {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", state))
	}

	config, exists := b.configurations[state]
	if !exists {
		config = &stateConfig{
			fromState:   state,
			transitions: make(map[Trigger]transition),
		}
		b.configurations[state] = config
	}

	return config
}

// Build creates a new state machine instance with the given initial state
func (b *stateMachineBuilder) Build(initialState State) StateMachine {
	if !initialState.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initialState))
	}

	// Copy so later Configure calls don't leak into built machines
	configsCopy := make(map[State]*stateConfig, len(b.configurations))
	for state, config := range b.configurations {
		transitionsCopy := make(map[Trigger]transition, len(config.transitions))
		for trigger, t := range config.transitions {
			transitionsCopy[trigger] = t
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

// Permit allows a trigger to transition to the target state
func (c *stateConfig) Permit(trigger Trigger, toState State) StateConfiguration {
	return c.PermitIf(trigger, toState, nil)
}

// PermitIf allows a trigger to transition to the target state if the guard passes.
// Each trigger leads to exactly one target per source state; configuring the
// same trigger twice is a programming error.
func (c *stateConfig) PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration {
	if !toState.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", toState))
	}
	if _, exists := c.transitions[trigger]; exists {
		panic(fmt.Sprintf("trigger %s already configured for state %s", trigger, c.fromState))
	}

	c.transitions[trigger] = transition{
		toState: toState,
		guard:   guard,
	}

	return c
}

// State returns the current state
func (m *stateMachine) State() State {
	return m.currentState
}

// CanFire returns true if the trigger is permitted in the current state.
// Guards are not evaluated.
func (m *stateMachine) CanFire(trigger Trigger) bool {
	_, ok := m.Target(trigger)
	return ok
}

// Target returns the state the trigger would lead to from the current state
func (m *stateMachine) Target(trigger Trigger) (State, bool) {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return "", false
	}

	t, exists := config.transitions[trigger]
	if !exists {
		return "", false
	}
	return t.toState, true
}

// Fire attempts to execute the trigger, transitioning to the new state if allowed
func (m *stateMachine) Fire(ctx context.Context, trigger Trigger) error {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return fmt.Errorf("%w: cannot fire trigger %s from state %s (no configuration)", ErrInvalidTransition, trigger, m.currentState)
	}

	t, exists := config.transitions[trigger]
	if !exists {
		return fmt.Errorf("%w: cannot fire trigger %s from state %s", ErrInvalidTransition, trigger, m.currentState)
	}

	if t.guard != nil {
		if err := t.guard(ctx); err != nil {
			return fmt.Errorf("%w: trigger %s from state %s: %w", ErrGuardFailed, trigger, m.currentState, err)
		}
	}

	m.currentState = t.toState
	return nil
}

// PermittedTriggers returns all triggers that can be fired in the current state, sorted
func (m *stateMachine) PermittedTriggers() []Trigger {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return []Trigger{}
	}

	triggers := make([]Trigger, 0, len(config.transitions))
	for trigger := range config.transitions {
		triggers = append(triggers, trigger)
	}
	sort.Slice(triggers, func(i, j int) bool { return triggers[i] < triggers[j] })

	return triggers
}
