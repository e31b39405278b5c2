package session

import (
	"time"

	"github.com/EricSciullo/POE-Core-Manager/pkg/lib"
	"github.com/EricSciullo/POE-Core-Manager/pkg/lib/marker"
)

type EventKind int

const (
	EventWaiting EventKind = iota
	EventAttached
	EventTransition
	EventDetached
)

func (k EventKind) String() string {
	switch k {
	case EventWaiting:
		return "waiting"
	case EventAttached:
		return "attached"
	case EventTransition:
		return "transition"
	case EventDetached:
		return "detached"
	default:
		return "unknown"
	}
}

// Event is a snapshot of the session published after every change.
type Event struct {
	Kind    EventKind
	Session string
	PID     int
	Exe     string
	State   lib.LoadState
	Marker  marker.Marker
	Reason  string
	Time    time.Time
}

// Attached reports whether a live target is being monitored.
func (e Event) Attached() bool {
	return e.Kind == EventAttached || e.Kind == EventTransition
}
