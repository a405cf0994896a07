package daemonctl

import (
	"time"

	"github.com/google/uuid"
)

// EventKind enumerates the points in the Supervisor's state machine that
// are worth reporting to an observer. Emitting events never changes the
// outcome of start/stop/connect, but Emit is called synchronously, so a
// slow sink delays the operation that emits to it.
type EventKind int

const (
	Starting EventKind = iota
	Started
	StartFailed
	Stopping
	Stopped
	StopFailed
	Connecting
	Connected
	Aborting
)

func (k EventKind) String() string {
	switch k {
	case Starting:
		return "starting"
	case Started:
		return "started"
	case StartFailed:
		return "start_failed"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	case StopFailed:
		return "stop_failed"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Aborting:
		return "aborting"
	default:
		return "unknown"
	}
}

// Event describes a single lifecycle transition for one daemon. ID is
// unique per event, letting a consumer correlate a Starting/Stopping
// event with its terminal counterpart (Started/StartFailed,
// Stopped/StopFailed) when deriving durations from a stored history.
type Event struct {
	ID         uuid.UUID
	Identifier string
	Kind       EventKind
	At         time.Time
	Detail     string
}

// EventSink receives lifecycle events. Implementations must not block
// the caller for long; the Supervisor calls Emit synchronously.
type EventSink interface {
	Emit(Event)
}

// EventSinkFunc adapts a plain function to EventSink.
type EventSinkFunc func(Event)

// Emit calls fn.
func (fn EventSinkFunc) Emit(e Event) { fn(e) }

// MultiSink fans a single Emit out to several sinks.
type MultiSink []EventSink

// Emit calls Emit on every sink in the slice.
func (m MultiSink) Emit(e Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(e)
		}
	}
}

func (h *Handle) emit(kind EventKind, detail string) {
	if h.sink == nil {
		return
	}
	h.sink.Emit(Event{ID: uuid.New(), Identifier: h.identifier, Kind: kind, At: h.now(), Detail: detail})
}
