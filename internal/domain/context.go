package domain

// ErrorCode is the reason attached to the failure state. Besides the
// predefined codes it may hold a free-form message from a caught failure.
type ErrorCode string

const (
	ErrCodeNone          ErrorCode = ""
	ErrCodeNoConnection  ErrorCode = "NO_CONNECTION"
	ErrCodeWrongNetwork  ErrorCode = "WRONG_NETWORK"
	ErrCodeTimeout       ErrorCode = "TIMEOUT"
	ErrCodeEmptyResponse ErrorCode = "EMPTY_RESPONSE"
)

// FailureKind names the invoking state that raised a failure.
type FailureKind string

const (
	FailureNone         FailureKind = ""
	FailureConnectivity FailureKind = "CONNECTIVITY_ERROR"
	FailureCreation     FailureKind = "CREATION_ERROR"
	FailurePersistence  FailureKind = "PERSISTENCE_ERROR"
	FailureUpgrade      FailureKind = "UPGRADE_ERROR"
)

// Context is the mutable value the orchestrator carries across states.
type Context struct {
	ErrorCode ErrorCode
	Failure   FailureKind
}

// Snapshot is what observers see after every transition.
type Snapshot struct {
	State     State     `json:"state"`
	ErrorCode ErrorCode `json:"error_code,omitempty"`
}

// Matches reports whether the snapshot is in the given state.
func (s Snapshot) Matches(st State) bool {
	return s.State == st
}
