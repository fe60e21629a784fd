package watcher

import "time"

// EventType represents the type of marker event
type EventType int

const (
	// EventAdded is emitted when a marker file appears (after settling)
	EventAdded EventType = iota
	// EventRemoved is emitted when a marker file is deleted
	EventRemoved
)

// String returns the string representation of the event type
func (t EventType) String() string {
	switch t {
	case EventAdded:
		return "added"
	case EventRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Event represents a marker file event in the dropbox root
type Event struct {
	// Type is the kind of event (added, removed)
	Type EventType

	// Path is the marker file path
	Path string

	// Name is the name of the incoming folder the marker announces
	Name string

	// Size is the marker size in bytes
	Size int64

	// ModTime is the marker's last modification time
	ModTime time.Time
}
