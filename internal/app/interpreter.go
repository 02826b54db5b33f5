package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/farmer/internal/domain"
	"github.com/bft-labs/farmer/internal/ports"
)

// DefaultOperationTimeout bounds a single remote invocation.
const DefaultOperationTimeout = 2 * time.Minute

// Config contains configuration for the interpreter.
type Config struct {
	// OperationTimeout bounds each invocation. Zero disables the timeout.
	OperationTimeout time.Duration

	// ShutdownTimeout bounds Stop. Zero means ShutdownTimeout.
	ShutdownTimeout time.Duration
}

// EventEmitter observes the interpreter. OnTransition and OnIgnored are
// called from the event loop; OnInvocation is called from the invocation
// goroutine. Implementations must be safe for concurrent use and return quickly.
type EventEmitter interface {
	OnTransition(tr Transition, snap domain.Snapshot)
	OnInvocation(op Operation, duration time.Duration, err error)
	OnIgnored(state domain.State, kind domain.EventKind)
}

// Interpreter runs the farm state machine. Events are processed one at a
// time in submission order; each transition completes before the next
// event is looked at. Remote operations run on their own goroutine and
// report back through the same queue.
type Interpreter struct {
	id        string
	config    Config
	client    ports.FarmClient
	logger    ports.Logger
	emitter   EventEmitter
	lifecycle *Lifecycle
	queue     *eventQueue
	done      chan struct{}

	mu    sync.RWMutex
	state domain.State
	ctx   domain.Context

	// Owned by the event loop.
	seq      uint64
	cancelOp context.CancelFunc

	subMu   sync.Mutex
	subs    map[int]func(domain.Snapshot)
	nextSub int
}

// NewInterpreter creates an interpreter in the initial state. The client is
// owned by the interpreter from here on. emitter may be nil.
func NewInterpreter(config Config, client ports.FarmClient, logger ports.Logger, emitter EventEmitter) *Interpreter {
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = ShutdownTimeout
	}
	return &Interpreter{
		id:        uuid.NewString(),
		config:    config,
		client:    client,
		logger:    logger,
		emitter:   emitter,
		lifecycle: NewLifecycle(logger),
		queue:     newEventQueue(),
		done:      make(chan struct{}),
		state:     domain.StateInitial,
		subs:      make(map[int]func(domain.Snapshot)),
	}
}

// ID returns the session identifier used in logs.
func (i *Interpreter) ID() string {
	return i.id
}

// RunState returns the interpreter's own run state.
func (i *Interpreter) RunState() RunState {
	return i.lifecycle.State()
}

// Start launches the event loop. An interpreter can be started once.
func (i *Interpreter) Start(ctx context.Context) error {
	if err := i.lifecycle.TransitionTo(RunRunning, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	i.lifecycle.SetCancel(cancel)

	i.lifecycle.AddWorker()
	go func() {
		defer i.lifecycle.WorkerDone()
		defer close(i.done)
		i.loop(runCtx)
	}()

	i.logger.Info("interpreter started",
		ports.String("session", i.id),
		ports.String("state", i.Snapshot().State.String()),
	)
	return nil
}

// Stop cancels any in-flight invocation and waits for the event loop to
// exit. Events still queued are dropped.
func (i *Interpreter) Stop() error {
	if err := i.lifecycle.TransitionTo(RunStopping, "Stop() called"); err != nil {
		return err
	}

	i.lifecycle.Cancel()
	err := i.lifecycle.WaitWithTimeout(i.config.ShutdownTimeout)

	if dropped := i.queue.len(); dropped > 0 {
		i.logger.Debug("dropping queued events", ports.Int("count", dropped))
	}
	_ = i.lifecycle.TransitionTo(RunStopped, "event loop exited")

	i.logger.Info("interpreter stopped", ports.String("session", i.id))
	return err
}

// Send enqueues a user event. It never blocks. Events the current state
// has no handler for are ignored when processed.
func (i *Interpreter) Send(ev domain.Event) error {
	if ev.Kind.Internal() {
		return fmt.Errorf("send %s: %w", ev.Kind, domain.ErrInternalEvent)
	}
	if !i.lifecycle.Running() {
		return domain.ErrNotRunning
	}
	// The loop also exits when the context passed to Start is cancelled.
	select {
	case <-i.done:
		return domain.ErrNotRunning
	default:
	}
	i.queue.push(ev)
	return nil
}

// Snapshot returns the current state and error code.
func (i *Interpreter) Snapshot() domain.Snapshot {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return domain.Snapshot{State: i.state, ErrorCode: i.ctx.ErrorCode}
}

// Context returns a copy of the orchestrator context.
func (i *Interpreter) Context() domain.Context {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.ctx
}

// Subscribe registers fn for state-change notifications. fn receives the
// current snapshot immediately and then one snapshot per transition, on the
// event loop goroutine. fn must not call Subscribe or the returned func.
// The returned func unsubscribes.
func (i *Interpreter) Subscribe(fn func(domain.Snapshot)) (unsubscribe func()) {
	i.subMu.Lock()
	id := i.nextSub
	i.nextSub++
	i.subs[id] = fn
	fn(i.Snapshot())
	i.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			i.subMu.Lock()
			delete(i.subs, id)
			i.subMu.Unlock()
		})
	}
}

func (i *Interpreter) notify(snap domain.Snapshot) {
	i.subMu.Lock()
	defer i.subMu.Unlock()
	for _, fn := range i.subs {
		fn(snap)
	}
}

func (i *Interpreter) loop(ctx context.Context) {
	defer i.abortInvocation()

	for {
		for {
			if ctx.Err() != nil {
				return
			}
			ev, ok := i.queue.pop()
			if !ok {
				break
			}
			i.dispatch(ctx, ev)
		}

		select {
		case <-ctx.Done():
			return
		case <-i.queue.signal:
		}
	}
}

// dispatch processes one event to completion.
func (i *Interpreter) dispatch(ctx context.Context, ev domain.Event) {
	state := i.Snapshot().State

	if ev.Kind.Internal() && (!state.Invoking() || ev.Seq != i.seq) {
		i.logger.Debug("dropping stale invocation outcome",
			ports.String("state", state.String()),
			ports.String("event", ev.Kind.String()),
			ports.Uint64("seq", ev.Seq),
		)
		return
	}

	var g Guards
	if ev.Kind == domain.EventDone {
		g = Guards{IsTrial: i.client.IsTrial(), HasFarm: i.client.HasFarm()}
	}

	tr, ok := Next(state, ev, g)
	if !ok {
		i.logger.Debug("event ignored",
			ports.String("state", state.String()),
			ports.String("event", ev.Kind.String()),
		)
		if i.emitter != nil {
			i.emitter.OnIgnored(state, ev.Kind)
		}
		return
	}

	if ev.Kind.Internal() {
		i.abortInvocation()
	}
	if tr.Has(ActionEnterTrialMode) {
		i.client.EnterTrialMode()
	}

	op, _ := InvocationFor(state)

	i.mu.Lock()
	i.ctx = Reduce(i.ctx, tr, ev, op)
	i.state = tr.To
	snap := domain.Snapshot{State: i.state, ErrorCode: i.ctx.ErrorCode}
	i.mu.Unlock()

	fields := []ports.Field{
		ports.String("from", tr.From.String()),
		ports.String("to", tr.To.String()),
		ports.String("event", tr.Event.String()),
	}
	if snap.ErrorCode != domain.ErrCodeNone {
		fields = append(fields, ports.String("error_code", string(snap.ErrorCode)))
	}
	i.logger.Info("state transition", fields...)

	if i.emitter != nil {
		i.emitter.OnTransition(tr, snap)
	}
	i.notify(snap)

	if next, ok := InvocationFor(tr.To); ok {
		i.invoke(ctx, next, ev)
	}
}

// invoke starts op for the state just entered. trigger is the event that
// caused the entry and carries payloads such as the DONATE charity.
func (i *Interpreter) invoke(ctx context.Context, op Operation, trigger domain.Event) {
	i.seq++
	seq := i.seq

	var opCtx context.Context
	var cancel context.CancelFunc
	if i.config.OperationTimeout > 0 {
		opCtx, cancel = context.WithTimeout(ctx, i.config.OperationTimeout)
	} else {
		opCtx, cancel = context.WithCancel(ctx)
	}
	i.cancelOp = cancel

	i.lifecycle.AddWorker()
	go func() {
		defer i.lifecycle.WorkerDone()

		start := time.Now()
		err := i.call(opCtx, op, trigger)
		duration := time.Since(start)

		if ctx.Err() != nil {
			// Interpreter is stopping; nobody will consume the outcome.
			return
		}
		if i.emitter != nil {
			i.emitter.OnInvocation(op, duration, err)
		}

		if err != nil {
			i.logger.Warn("invocation failed",
				ports.String("operation", op.String()),
				ports.String("failure", string(op.FailureKind())),
				ports.Duration("duration", duration),
				ports.Err(err),
			)
			i.queue.push(domain.Event{Kind: domain.EventFailed, Seq: seq, Err: err})
			return
		}

		i.logger.Debug("invocation done",
			ports.String("operation", op.String()),
			ports.Duration("duration", duration),
		)
		i.queue.push(domain.Event{Kind: domain.EventDone, Seq: seq})
	}()
}

// abortInvocation releases the context of the current invocation, if any.
func (i *Interpreter) abortInvocation() {
	if i.cancelOp != nil {
		i.cancelOp()
		i.cancelOp = nil
	}
}

// call runs op and returns once it settles or ctx ends, whichever comes
// first. A client that ignores ctx is left running in the background.
func (i *Interpreter) call(ctx context.Context, op Operation, trigger domain.Event) error {
	result := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				result <- fmt.Errorf("%s: panic: %v", op, r)
			}
		}()
		result <- i.run(ctx, op, trigger)
	}()

	var err error
	select {
	case err = <-result:
	case <-ctx.Done():
		err = ctx.Err()
	}

	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &domain.LedgerError{Code: domain.ErrCodeTimeout, Op: op.String(), Err: err}
	}
	return err
}

func (i *Interpreter) run(ctx context.Context, op Operation, trigger domain.Event) error {
	switch op {
	case OpInitialize:
		return i.client.Initialize(ctx)
	case OpCreateFarm:
		if trigger.Charity == nil {
			return domain.ErrMissingCharity
		}
		return i.client.CreateFarm(ctx, *trigger.Charity)
	case OpSave:
		return i.client.Save(ctx)
	case OpLevelUp:
		return i.client.LevelUp(ctx)
	default:
		return fmt.Errorf("unknown operation %d", op)
	}
}
