package schemas

// EventType discriminates the observable event variants published on the bus
// and re-broadcast to WebSocket subscribers and the external broker.
type EventType string

const (
	EventNavigation    EventType = "navigation"
	EventTabCreated    EventType = "tab_created"
	EventTabURLChanged EventType = "tab_url_changed"
	EventError         EventType = "error"
)

// Event is a browser-observable state change.
type Event struct {
	Type    EventType `json:"type"`
	URL     string    `json:"url,omitempty"`
	TabID   uint64    `json:"id,omitempty"`
	Message string    `json:"message,omitempty"`
}

// Navigation builds a navigation event for the given destination.
func Navigation(url string) Event {
	return Event{Type: EventNavigation, URL: url}
}

// TabCreated builds a tab-creation event.
func TabCreated(id uint64, url string) Event {
	return Event{Type: EventTabCreated, TabID: id, URL: url}
}

// TabURLChanged builds a tab URL mutation event.
func TabURLChanged(id uint64, url string) Event {
	return Event{Type: EventTabURLChanged, TabID: id, URL: url}
}

// ErrorEvent builds an error event with a human-readable message.
func ErrorEvent(msg string) Event {
	return Event{Type: EventError, Message: msg}
}
