package watcher

import "time"

// EventType represents the type of file system event.
type EventType int

const (
	// EventChanged is emitted when a watched save file has been
	// written (after settling on the fallback backend).
	EventChanged EventType = iota
	// EventRemoved is emitted when a watched save file is deleted or
	// moved out of the directory.
	EventRemoved
)

// String returns the string representation of the event type.
func (t EventType) String() string {
	switch t {
	case EventChanged:
		return "changed"
	case EventRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Event represents a file system event for one watched save file.
type Event struct {
	// Type is the kind of event (changed, removed).
	Type EventType

	// Path is the save file path.
	Path string

	// Size is the file size in bytes (changed events only).
	Size int64

	// ModTime is the file's last modification time (changed events only).
	ModTime time.Time
}
