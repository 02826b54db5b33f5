package domain

import "strings"

// EventKind tags an Event.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventGetStarted
	EventNetworkChanged
	EventDonate
	EventSave
	EventUpgrade
	EventTrial
	EventFarmCreated

	// Invocation outcomes. These are produced by the interpreter only.
	EventDone
	EventFailed
)

var eventNames = map[EventKind]string{
	EventGetStarted:     "GET_STARTED",
	EventNetworkChanged: "NETWORK_CHANGED",
	EventDonate:         "DONATE",
	EventSave:           "SAVE",
	EventUpgrade:        "UPGRADE",
	EventTrial:          "TRIAL",
	EventFarmCreated:    "FARM_CREATED",
	EventDone:           "done",
	EventFailed:         "error",
}

// String returns the wire name of the event kind.
func (k EventKind) String() string {
	if n, ok := eventNames[k]; ok {
		return n
	}
	return "UNKNOWN"
}

// Internal reports whether the kind is an invocation outcome.
func (k EventKind) Internal() bool {
	return k == EventDone || k == EventFailed
}

// ParseEventKind maps a user intent name (case-insensitive) to its kind.
// Internal kinds are never returned.
func ParseEventKind(name string) (EventKind, bool) {
	want := strings.ToUpper(strings.TrimSpace(name))
	for k, n := range eventNames {
		if !k.Internal() && n == want {
			return k, true
		}
	}
	return EventUnknown, false
}

// UserEvents lists every event kind the UI may send.
func UserEvents() []EventKind {
	return []EventKind{
		EventGetStarted,
		EventNetworkChanged,
		EventDonate,
		EventSave,
		EventUpgrade,
		EventTrial,
		EventFarmCreated,
	}
}

// Charity is the donation target chosen while registering.
type Charity struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

// Event is a user intent or an invocation outcome.
type Event struct {
	Kind EventKind

	// Charity is set for EventDonate.
	Charity *Charity

	// Seq identifies the invocation an outcome belongs to.
	Seq uint64

	// Err is set for EventFailed.
	Err error
}

// NewEvent returns a payload-free event of the given kind.
func NewEvent(kind EventKind) Event {
	return Event{Kind: kind}
}

// Donate returns a DONATE event carrying the charity.
func Donate(c Charity) Event {
	return Event{Kind: EventDonate, Charity: &c}
}
