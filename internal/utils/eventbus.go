package utils

// Event is a broadcast instruction consumed by the websocket hub.
// Room 0 targets every connected client. ExcludeID names a connection
// that must not receive the event (typing indicators skip the sender).
type Event struct {
	Name      string `json:"event"`
	Room      uint64 `json:"-"`
	ExcludeID string `json:"-"`
	Data      any    `json:"data"`
}

type EventBus struct {
	events chan Event
}

func NewEventBus() *EventBus {
	return &EventBus{
		events: make(chan Event, 256),
	}
}

// Publish blocks until the hub accepts the event. Dropping here would
// break the persist-order broadcast guarantee for a room channel;
// undeliverable per-connection sends are dropped downstream instead.
func (eb *EventBus) Publish(ev Event) {
	eb.events <- ev
}

func (eb *EventBus) Events() <-chan Event {
	return eb.events
}
