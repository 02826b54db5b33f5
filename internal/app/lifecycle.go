package app

import (
	"context"
	"sync"
	"time"

	"github.com/bft-labs/farmer/internal/domain"
	"github.com/bft-labs/farmer/internal/ports"
)

// ShutdownTimeout is the maximum time to wait for graceful shutdown.
const ShutdownTimeout = 30 * time.Second

// RunState is the run status of the interpreter itself, independent of
// the farm state it orchestrates.
type RunState int

const (
	RunIdle RunState = iota
	RunRunning
	RunStopping
	RunStopped
)

// String returns a human-readable representation of the run state.
func (s RunState) String() string {
	switch s {
	case RunIdle:
		return "Idle"
	case RunRunning:
		return "Running"
	case RunStopping:
		return "Stopping"
	case RunStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// Lifecycle guards the interpreter's start/stop sequence. An interpreter
// runs at most once: Idle -> Running -> Stopping -> Stopped.
type Lifecycle struct {
	mu     sync.RWMutex
	state  RunState
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger ports.Logger
}

// NewLifecycle creates a lifecycle in RunIdle.
func NewLifecycle(logger ports.Logger) *Lifecycle {
	return &Lifecycle{
		state:  RunIdle,
		logger: logger,
	}
}

// State returns the current run state.
func (l *Lifecycle) State() RunState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// TransitionTo attempts to move to newState.
// Returns an error if the transition is not valid.
func (l *Lifecycle) TransitionTo(newState RunState, reason string) error {
	l.mu.Lock()
	oldState := l.state

	var err error
	switch oldState {
	case RunIdle:
		if newState != RunRunning {
			err = domain.ErrNotRunning
		}
	case RunRunning:
		if newState != RunStopping {
			err = domain.ErrAlreadyRunning
		}
	case RunStopping:
		if newState != RunStopped {
			err = domain.ErrNotRunning
		}
	case RunStopped:
		if newState == RunRunning {
			err = domain.ErrAlreadyStopped
		} else {
			err = domain.ErrNotRunning
		}
	}
	if err != nil {
		l.mu.Unlock()
		return err
	}

	l.state = newState
	l.mu.Unlock()

	l.logger.Debug("interpreter run state",
		ports.String("from", oldState.String()),
		ports.String("to", newState.String()),
		ports.String("reason", reason),
	)
	return nil
}

// Running reports whether events are accepted.
func (l *Lifecycle) Running() bool {
	return l.State() == RunRunning
}

// SetCancel stores the cancel function for graceful shutdown.
func (l *Lifecycle) SetCancel(cancel context.CancelFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancel = cancel
}

// Cancel triggers graceful shutdown.
func (l *Lifecycle) Cancel() {
	l.mu.Lock()
	cancel := l.cancel
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// AddWorker increments the worker count.
func (l *Lifecycle) AddWorker() {
	l.wg.Add(1)
}

// WorkerDone decrements the worker count.
func (l *Lifecycle) WorkerDone() {
	l.wg.Done()
}

// WaitWithTimeout waits for all workers to finish with a timeout.
// Returns ErrShutdownTimeout if the timeout expires.
func (l *Lifecycle) WaitWithTimeout(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		l.logger.Warn("shutdown timeout, abandoning workers",
			ports.Duration("timeout", timeout),
		)
		return domain.ErrShutdownTimeout
	}
}
