package farmer

import (
	"github.com/bft-labs/farmer/internal/app"
	"github.com/bft-labs/farmer/internal/domain"
	"github.com/bft-labs/farmer/internal/ports"
)

// State is the farm orchestrator's state.
type State = domain.State

// Farm states.
const (
	StateInitial     = domain.StateInitial
	StateLoading     = domain.StateLoading
	StateRegistering = domain.StateRegistering
	StateCreating    = domain.StateCreating
	StateFarming     = domain.StateFarming
	StateSaving      = domain.StateSaving
	StateUpgrading   = domain.StateUpgrading
	StateFailure     = domain.StateFailure
)

// EventKind identifies a user intent.
type EventKind = domain.EventKind

// User intents accepted by Send.
const (
	EventGetStarted     = domain.EventGetStarted
	EventNetworkChanged = domain.EventNetworkChanged
	EventDonate         = domain.EventDonate
	EventSave           = domain.EventSave
	EventUpgrade        = domain.EventUpgrade
	EventTrial          = domain.EventTrial
	EventFarmCreated    = domain.EventFarmCreated
)

// Event is an intent submitted to the orchestrator.
type Event = domain.Event

// Charity is the donation target chosen when a farm is created.
type Charity = domain.Charity

// Farm is the user's ledger-backed resource.
type Farm = domain.Farm

// Snapshot is the externally visible state: the state name and the last
// error code.
type Snapshot = domain.Snapshot

// ErrorCode classifies the last failure.
type ErrorCode = domain.ErrorCode

// Error codes.
const (
	ErrCodeNone          = domain.ErrCodeNone
	ErrCodeNoConnection  = domain.ErrCodeNoConnection
	ErrCodeWrongNetwork  = domain.ErrCodeWrongNetwork
	ErrCodeTimeout       = domain.ErrCodeTimeout
	ErrCodeEmptyResponse = domain.ErrCodeEmptyResponse
)

// LedgerError is a failure reported by the ledger gateway or its transport.
type LedgerError = domain.LedgerError

// Errors returned by the public API.
var (
	ErrAlreadyRunning  = domain.ErrAlreadyRunning
	ErrNotRunning      = domain.ErrNotRunning
	ErrAlreadyStopped  = domain.ErrAlreadyStopped
	ErrShutdownTimeout = domain.ErrShutdownTimeout
	ErrInvalidConfig   = domain.ErrInvalidConfig
	ErrInternalEvent   = domain.ErrInternalEvent
)

// RunState is the run status of a Farmer instance.
type RunState = app.RunState

// Run states.
const (
	RunIdle     = app.RunIdle
	RunRunning  = app.RunRunning
	RunStopping = app.RunStopping
	RunStopped  = app.RunStopped
)

// Logger is the interface for structured logging.
type Logger = ports.Logger

// LogField represents a structured log field.
type LogField = ports.Field

// HTTPClient is the interface for making HTTP requests.
// *http.Client satisfies this interface.
type HTTPClient = ports.HTTPClient

// FarmClient performs the remote farm operations the orchestrator invokes.
type FarmClient = ports.FarmClient

// ParseEventKind resolves a user intent by name, case-insensitively.
func ParseEventKind(name string) (EventKind, bool) {
	return domain.ParseEventKind(name)
}
