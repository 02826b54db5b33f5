package app

import (
	"testing"

	"github.com/bft-labs/farmer/internal/domain"
)

func allKinds() []domain.EventKind {
	return append(domain.UserEvents(), domain.EventDone, domain.EventFailed)
}

func TestNext_TransitionTable(t *testing.T) {
	type key struct {
		s domain.State
		e domain.EventKind
	}
	// Guards are zero, so loading completion takes the registering branch.
	want := map[key]domain.State{
		{domain.StateInitial, domain.EventGetStarted}:     domain.StateLoading,
		{domain.StateLoading, domain.EventDone}:           domain.StateRegistering,
		{domain.StateLoading, domain.EventFailed}:         domain.StateFailure,
		{domain.StateRegistering, domain.EventDonate}:     domain.StateCreating,
		{domain.StateCreating, domain.EventDone}:          domain.StateFarming,
		{domain.StateCreating, domain.EventFailed}:        domain.StateFailure,
		{domain.StateFarming, domain.EventSave}:           domain.StateSaving,
		{domain.StateFarming, domain.EventUpgrade}:        domain.StateUpgrading,
		{domain.StateSaving, domain.EventDone}:            domain.StateFarming,
		{domain.StateSaving, domain.EventFailed}:          domain.StateFailure,
		{domain.StateUpgrading, domain.EventDone}:         domain.StateFarming,
		{domain.StateUpgrading, domain.EventFailed}:       domain.StateFailure,
		{domain.StateFailure, domain.EventNetworkChanged}: domain.StateLoading,
		{domain.StateFailure, domain.EventTrial}:          domain.StateFarming,
	}

	for _, s := range domain.AllStates() {
		for _, k := range allKinds() {
			tr, ok := Next(s, domain.NewEvent(k), Guards{})
			to, handled := want[key{s, k}]
			if ok != handled {
				t.Errorf("Next(%s, %s) ok = %v, want %v", s, k, ok, handled)
				continue
			}
			if !ok {
				continue
			}
			if tr.To != to {
				t.Errorf("Next(%s, %s).To = %s, want %s", s, k, tr.To, to)
			}
			if tr.From != s || tr.Event != k {
				t.Errorf("Next(%s, %s) = %+v, from/event not echoed", s, k, tr)
			}
		}
	}
}

func TestNext_FarmCreatedIsNeverHandled(t *testing.T) {
	for _, s := range domain.AllStates() {
		if _, ok := Next(s, domain.NewEvent(domain.EventFarmCreated), Guards{HasFarm: true}); ok {
			t.Errorf("FARM_CREATED handled in %s", s)
		}
	}
}

func TestNext_LoadingGuardChain(t *testing.T) {
	tests := []struct {
		name   string
		guards Guards
		want   domain.State
	}{
		{"no farm, no trial", Guards{}, domain.StateRegistering},
		{"has farm", Guards{HasFarm: true}, domain.StateFarming},
		{"has farm and trial", Guards{HasFarm: true, IsTrial: true}, domain.StateFarming},
		{"trial only", Guards{IsTrial: true}, domain.StateFarming},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, ok := Next(domain.StateLoading, domain.NewEvent(domain.EventDone), tt.guards)
			if !ok {
				t.Fatal("loading completion not handled")
			}
			if tr.To != tt.want {
				t.Errorf("To = %s, want %s", tr.To, tt.want)
			}
		})
	}
}

func TestNext_Actions(t *testing.T) {
	tests := []struct {
		name  string
		state domain.State
		kind  domain.EventKind
		want  []Action
	}{
		{"loading failure assigns error", domain.StateLoading, domain.EventFailed, []Action{ActionAssignError}},
		{"save failure assigns error", domain.StateSaving, domain.EventFailed, []Action{ActionAssignError}},
		{"retry clears error", domain.StateFailure, domain.EventNetworkChanged, []Action{ActionClearError}},
		{"trial enters trial mode", domain.StateFailure, domain.EventTrial, []Action{ActionEnterTrialMode, ActionClearError}},
		{"save has no actions", domain.StateFarming, domain.EventSave, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, ok := Next(tt.state, domain.NewEvent(tt.kind), Guards{})
			if !ok {
				t.Fatal("not handled")
			}
			if len(tr.Actions) != len(tt.want) {
				t.Fatalf("Actions = %v, want %v", tr.Actions, tt.want)
			}
			for i := range tt.want {
				if tr.Actions[i] != tt.want[i] {
					t.Errorf("Actions[%d] = %s, want %s", i, tr.Actions[i], tt.want[i])
				}
			}
		})
	}
}

func TestNext_ActionsAreCopied(t *testing.T) {
	tr, _ := Next(domain.StateFailure, domain.NewEvent(domain.EventTrial), Guards{})
	tr.Actions[0] = ActionAssignError

	again, _ := Next(domain.StateFailure, domain.NewEvent(domain.EventTrial), Guards{})
	if again.Actions[0] != ActionEnterTrialMode {
		t.Error("mutating a returned transition changed the table")
	}
}

func TestInvocationFor(t *testing.T) {
	want := map[domain.State]Operation{
		domain.StateLoading:   OpInitialize,
		domain.StateCreating:  OpCreateFarm,
		domain.StateSaving:    OpSave,
		domain.StateUpgrading: OpLevelUp,
	}

	for _, s := range domain.AllStates() {
		op, ok := InvocationFor(s)
		if ok != s.Invoking() {
			t.Errorf("InvocationFor(%s) ok = %v, want %v", s, ok, s.Invoking())
		}
		if ok && op != want[s] {
			t.Errorf("InvocationFor(%s) = %s, want %s", s, op, want[s])
		}
	}
}

func TestOperation_FailureKind(t *testing.T) {
	tests := []struct {
		op   Operation
		want domain.FailureKind
	}{
		{OpInitialize, domain.FailureConnectivity},
		{OpCreateFarm, domain.FailureCreation},
		{OpSave, domain.FailurePersistence},
		{OpLevelUp, domain.FailureUpgrade},
		{Operation(0), domain.FailureNone},
	}

	for _, tt := range tests {
		if got := tt.op.FailureKind(); got != tt.want {
			t.Errorf("%s.FailureKind() = %s, want %s", tt.op, got, tt.want)
		}
	}
}
