package domain

// EventType discriminates realtime envelopes on notifications.<userId>.
type EventType string

const (
	EventCreated EventType = "CREATED"
	EventRead    EventType = "READ"
	EventReadAll EventType = "READ_ALL"
)

// Event is the JSON envelope pushed to realtime subscribers.
type Event struct {
	Type EventType `json:"type"`
	ID   *int64    `json:"id,omitempty"`
}

func NewEvent(t EventType, id int64) Event {
	return Event{Type: t, ID: &id}
}
