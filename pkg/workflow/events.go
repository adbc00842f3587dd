package workflow

// EventType is the streaming contract to the caller: one start, one
// update per completed step in completion order, then exactly one
// terminal done or error.
type EventType string

const (
	EventStart  EventType = "start"
	EventUpdate EventType = "update"
	EventDone   EventType = "done"
	EventError  EventType = "error"
)

// Event is one entry in a run's ordered event stream.
type Event struct {
	Type      EventType  `json:"type"`
	ThreadID  string     `json:"thread_id"`
	Step      string     `json:"step,omitempty"`
	Status    Status     `json:"status"`
	State     *State     `json:"state,omitempty"`
	Interrupt *Interrupt `json:"interrupt,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// EventSink receives execution events in emission order. Implementations
// must not block the executor for long; slow consumers should buffer.
type EventSink interface {
	Publish(event Event)
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(event Event)

func (f EventSinkFunc) Publish(event Event) {
	f(event)
}
