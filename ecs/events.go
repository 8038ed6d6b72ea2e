package ecs

import "github.com/milk9111/tether/coupling"

// EventType names an event payload.
type EventType string

const (
	// EventNotice carries a Notice.
	EventNotice EventType = "notice"
	// EventCoupling carries a coupling.Event.
	EventCoupling EventType = "coupling"
)

// Event is a queued world event.
type Event struct {
	Type EventType
	Data any
}

// Notice is a message delivered to an actor.
type Notice struct {
	To      coupling.ActorID
	Message coupling.Message
}

// EventQueue is a FIFO drained by its consumers.
type EventQueue struct {
	items []Event
}

// Push adds an event.
func (q *EventQueue) Push(evt Event) {
	if q == nil {
		return
	}
	q.items = append(q.items, evt)
}

// Drain returns all events and clears the queue.
func (q *EventQueue) Drain() []Event {
	if q == nil || len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}

func (q *EventQueue) Len() int {
	if q == nil {
		return 0
	}
	return len(q.items)
}
