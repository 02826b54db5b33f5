package farmer

import (
	"time"

	"github.com/bft-labs/farmer/internal/app"
	"github.com/bft-labs/farmer/internal/domain"
)

// TransitionEvent is emitted after every state transition.
type TransitionEvent struct {
	From      State
	To        State
	Event     EventKind
	ErrorCode ErrorCode
}

// InvocationEvent is emitted when a remote operation settles.
type InvocationEvent struct {
	// Operation is one of "initialize", "create_farm", "save", "level_up".
	Operation string
	Duration  time.Duration
	Error     error
}

// IgnoredEvent is emitted when the current state has no handler for an event.
type IgnoredEvent struct {
	State State
	Event EventKind
}

// EventHandler receives notifications from a Farmer. Transition and
// ignored events arrive on the event loop; invocation events arrive on the
// invocation goroutine. Handlers must return quickly.
type EventHandler interface {
	OnTransition(event TransitionEvent)
	OnInvocation(event InvocationEvent)
	OnIgnored(event IgnoredEvent)
}

// BaseEventHandler provides no-op implementations of EventHandler.
// Embed it to implement only the callbacks you need.
type BaseEventHandler struct{}

func (BaseEventHandler) OnTransition(TransitionEvent) {}
func (BaseEventHandler) OnInvocation(InvocationEvent) {}
func (BaseEventHandler) OnIgnored(IgnoredEvent)       {}

// handlerEmitter adapts EventHandler to app.EventEmitter.
type handlerEmitter struct {
	handler EventHandler
}

func (e handlerEmitter) OnTransition(tr app.Transition, snap domain.Snapshot) {
	e.handler.OnTransition(TransitionEvent{
		From:      tr.From,
		To:        tr.To,
		Event:     tr.Event,
		ErrorCode: snap.ErrorCode,
	})
}

func (e handlerEmitter) OnInvocation(op app.Operation, duration time.Duration, err error) {
	e.handler.OnInvocation(InvocationEvent{
		Operation: op.String(),
		Duration:  duration,
		Error:     err,
	})
}

func (e handlerEmitter) OnIgnored(state domain.State, kind domain.EventKind) {
	e.handler.OnIgnored(IgnoredEvent{State: state, Event: kind})
}

// multiEmitter fans out to every configured emitter.
type multiEmitter []app.EventEmitter

func (m multiEmitter) OnTransition(tr app.Transition, snap domain.Snapshot) {
	for _, e := range m {
		e.OnTransition(tr, snap)
	}
}

func (m multiEmitter) OnInvocation(op app.Operation, duration time.Duration, err error) {
	for _, e := range m {
		e.OnInvocation(op, duration, err)
	}
}

func (m multiEmitter) OnIgnored(state domain.State, kind domain.EventKind) {
	for _, e := range m {
		e.OnIgnored(state, kind)
	}
}
