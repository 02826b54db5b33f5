package app

import "github.com/bft-labs/farmer/internal/domain"

// Reduce applies the context actions of tr. ev is the event that caused
// tr; for ActionAssignError it must carry the invocation error.
// ActionEnterTrialMode touches the client, not the context, and is
// handled by the interpreter.
func Reduce(c domain.Context, tr Transition, ev domain.Event, op Operation) domain.Context {
	for _, a := range tr.Actions {
		switch a {
		case ActionAssignError:
			c.ErrorCode = domain.CodeOf(ev.Err)
			c.Failure = op.FailureKind()
		case ActionClearError:
			c.ErrorCode = domain.ErrCodeNone
			c.Failure = domain.FailureNone
		}
	}
	return c
}
