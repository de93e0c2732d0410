package workflow

import (
	"fmt"
)

// StateMachineBuilder builds a configured state machine
type StateMachineBuilder interface {
	// Configure returns a state configuration for the given status
	Configure(status Status) StateConfiguration

	// Build creates a new state machine instance with the given initial status
	Build(initial Status) StateMachine
}

// StateConfiguration configures transitions for a specific status
type StateConfiguration interface {
	// Permit allows an action to move the report to the target status
	Permit(action Action, to Status) StateConfiguration
}

// stateConfig implements StateConfiguration
type stateConfig struct {
	from        Status
	transitions map[Action]Status
}

// stateMachineBuilder implements StateMachineBuilder
type stateMachineBuilder struct {
	configurations map[Status]*stateConfig
}

// stateMachine implements StateMachine
type stateMachine struct {
	current        Status
	configurations map[Status]*stateConfig
}

// NewBuilder creates a new state machine builder
func NewBuilder() StateMachineBuilder {
	return &stateMachineBuilder{
		configurations: make(map[Status]*stateConfig),
	}
}

// Configure returns a state configuration for the given status
func (b *stateMachineBuilder) Configure(status Status) StateConfiguration {
	if !status.IsValid() {
		panic(fmt.Sprintf("invalid status: %s", status))
	}

	config, exists := b.configurations[status]
	if !exists {
		config = &stateConfig{
			from:        status,
			transitions: make(map[Action]Status),
		}
		b.configurations[status] = config
	}

	return config
}

// Build creates a new state machine instance with the given initial status
func (b *stateMachineBuilder) Build(initial Status) StateMachine {
	if !initial.IsValid() {
		panic(fmt.Sprintf("invalid initial status: %s", initial))
	}

	// Copy so later Configure calls do not leak into built machines
	configsCopy := make(map[Status]*stateConfig, len(b.configurations))
	for status, config := range b.configurations {
		transitionsCopy := make(map[Action]Status, len(config.transitions))
		for action, to := range config.transitions {
			transitionsCopy[action] = to
		}
		configsCopy[status] = &stateConfig{
			from:        status,
			transitions: transitionsCopy,
		}
	}

	return &stateMachine{
		current:        initial,
		configurations: configsCopy,
	}
}

// Permit allows an action to move the report to the target status
func (c *stateConfig) Permit(action Action, to Status) StateConfiguration {
	if !to.IsValid() {
		panic(fmt.Sprintf("invalid target status: %s", to))
	}
	if !action.IsTransition() {
		panic(fmt.Sprintf("action %s does not change status", action))
	}

	c.transitions[action] = to
	return c
}

// State returns the current status
func (m *stateMachine) State() Status {
	return m.current
}

// CanFire returns true if the action is permitted in the current status
func (m *stateMachine) CanFire(action Action) bool {
	_, ok := m.target(action)
	return ok
}

// Fire moves the machine to the status configured for action
func (m *stateMachine) Fire(action Action) error {
	to, ok := m.target(action)
	if !ok {
		return fmt.Errorf("%w: cannot %s a report in status %s", ErrInvalidTransition, action, m.current)
	}
	m.current = to
	return nil
}

// PermittedActions returns all actions that can be fired in the current status
func (m *stateMachine) PermittedActions() []Action {
	config, exists := m.configurations[m.current]
	if !exists {
		return []Action{}
	}

	actions := make([]Action, 0, len(config.transitions))
	for action := range config.transitions {
		actions = append(actions, action)
	}
	return actions
}

func (m *stateMachine) target(action Action) (Status, bool) {
	config, exists := m.configurations[m.current]
	if !exists {
		return "", false
	}
	to, exists := config.transitions[action]
	return to, exists
}

// ReportLifecycle returns a builder configured with the report approval lifecycle
func ReportLifecycle() StateMachineBuilder {
	builder := NewBuilder()

	builder.Configure(StatusDraft).
		Permit(ActionSubmit, StatusSubmitted)

	builder.Configure(StatusSubmitted).
		Permit(ActionApprove, StatusCoordinatorReviewed).
		Permit(ActionReject, StatusRejected).
		Permit(ActionCancel, StatusDraft)

	builder.Configure(StatusCoordinatorReviewed).
		Permit(ActionApprove, StatusManagerApproved).
		Permit(ActionReject, StatusRejected)

	builder.Configure(StatusManagerApproved).
		Permit(ActionApprove, StatusFinalApproved).
		Permit(ActionReject, StatusRejected)

	builder.Configure(StatusRejected).
		Permit(ActionResubmit, StatusSubmitted)

	// final_approved has no outgoing transitions

	return builder
}
