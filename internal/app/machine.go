package app

import "github.com/bft-labs/farmer/internal/domain"

// Action is a context or collaborator effect attached to a transition.
type Action int

const (
	// ActionAssignError records the failed invocation's reason in the context.
	ActionAssignError Action = iota + 1
	// ActionClearError drops the reason when leaving the failure state.
	ActionClearError
	// ActionEnterTrialMode switches the farm client to trial mode before the target is entered.
	ActionEnterTrialMode
)

// String returns a human-readable representation of the action.
func (a Action) String() string {
	switch a {
	case ActionAssignError:
		return "assign_error"
	case ActionClearError:
		return "clear_error"
	case ActionEnterTrialMode:
		return "enter_trial_mode"
	default:
		return "unknown"
	}
}

// Transition is the outcome of evaluating an event against a state.
type Transition struct {
	From    domain.State
	To      domain.State
	Event   domain.EventKind
	Actions []Action
}

// Has reports whether the transition carries the action.
func (t Transition) Has(a Action) bool {
	for _, x := range t.Actions {
		if x == a {
			return true
		}
	}
	return false
}

// Guards are the synchronous predicates consulted when loading completes.
type Guards struct {
	IsTrial bool
	HasFarm bool
}

// hasFarm is the loading-completion guard: trial mode counts as owning a farm.
func (g Guards) hasFarm() bool {
	return g.IsTrial || g.HasFarm
}

// candidate is one row of the transition table. Rows for the same
// state and event are tried in order and the first passing guard wins.
type candidate struct {
	to      domain.State
	guard   func(Guards) bool
	actions []Action
}

type tableKey struct {
	state domain.State
	event domain.EventKind
}

var transitionTable = map[tableKey][]candidate{
	{domain.StateInitial, domain.EventGetStarted}: {
		{to: domain.StateLoading},
	},
	{domain.StateLoading, domain.EventDone}: {
		{to: domain.StateFarming, guard: Guards.hasFarm},
		{to: domain.StateRegistering},
	},
	{domain.StateLoading, domain.EventFailed}: {
		{to: domain.StateFailure, actions: []Action{ActionAssignError}},
	},
	{domain.StateRegistering, domain.EventDonate}: {
		{to: domain.StateCreating},
	},
	{domain.StateCreating, domain.EventDone}: {
		{to: domain.StateFarming},
	},
	{domain.StateCreating, domain.EventFailed}: {
		{to: domain.StateFailure, actions: []Action{ActionAssignError}},
	},
	{domain.StateFarming, domain.EventSave}: {
		{to: domain.StateSaving},
	},
	{domain.StateFarming, domain.EventUpgrade}: {
		{to: domain.StateUpgrading},
	},
	{domain.StateSaving, domain.EventDone}: {
		{to: domain.StateFarming},
	},
	{domain.StateSaving, domain.EventFailed}: {
		{to: domain.StateFailure, actions: []Action{ActionAssignError}},
	},
	{domain.StateUpgrading, domain.EventDone}: {
		{to: domain.StateFarming},
	},
	{domain.StateUpgrading, domain.EventFailed}: {
		{to: domain.StateFailure, actions: []Action{ActionAssignError}},
	},
	{domain.StateFailure, domain.EventNetworkChanged}: {
		{to: domain.StateLoading, actions: []Action{ActionClearError}},
	},
	{domain.StateFailure, domain.EventTrial}: {
		{to: domain.StateFarming, actions: []Action{ActionEnterTrialMode, ActionClearError}},
	},
}

// Next evaluates ev against state. It is pure: guards are passed in already
// evaluated. ok is false when the state has no handler for the event, in
// which case the event must be ignored.
func Next(state domain.State, ev domain.Event, g Guards) (Transition, bool) {
	for _, c := range transitionTable[tableKey{state, ev.Kind}] {
		if c.guard != nil && !c.guard(g) {
			continue
		}
		return Transition{
			From:    state,
			To:      c.to,
			Event:   ev.Kind,
			Actions: append([]Action(nil), c.actions...),
		}, true
	}
	return Transition{}, false
}

// Operation identifies the remote call a state invokes on entry.
type Operation int

const (
	OpInitialize Operation = iota + 1
	OpCreateFarm
	OpSave
	OpLevelUp
)

// String returns the operation name used in logs and metrics.
func (o Operation) String() string {
	switch o {
	case OpInitialize:
		return "initialize"
	case OpCreateFarm:
		return "create_farm"
	case OpSave:
		return "save"
	case OpLevelUp:
		return "level_up"
	default:
		return "unknown"
	}
}

// FailureKind classifies the operation's failures.
func (o Operation) FailureKind() domain.FailureKind {
	switch o {
	case OpInitialize:
		return domain.FailureConnectivity
	case OpCreateFarm:
		return domain.FailureCreation
	case OpSave:
		return domain.FailurePersistence
	case OpLevelUp:
		return domain.FailureUpgrade
	default:
		return domain.FailureNone
	}
}

var invocationTable = map[domain.State]Operation{
	domain.StateLoading:   OpInitialize,
	domain.StateCreating:  OpCreateFarm,
	domain.StateSaving:    OpSave,
	domain.StateUpgrading: OpLevelUp,
}

// InvocationFor returns the operation started when state is entered.
func InvocationFor(state domain.State) (Operation, bool) {
	op, ok := invocationTable[state]
	return op, ok
}
