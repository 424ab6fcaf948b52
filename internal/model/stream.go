package model

import "time"

// GlobalStreamName is the stored name of the stream that mirrors every event.
const GlobalStreamName = "all"

// Stream identifies a named stream or the global stream.
type Stream struct {
	Name string
}

// NewStream returns the named stream.
func NewStream(name string) Stream {
	return Stream{Name: name}
}

// GlobalStream returns the virtual stream holding every event in commit order.
func GlobalStream() Stream {
	return Stream{Name: GlobalStreamName}
}

// IsGlobal reports whether s is the global stream.
func (s Stream) IsGlobal() bool {
	return s.Name == GlobalStreamName
}

// StreamEntry links an event to a stream. Position is nil for global stream entries.
type StreamEntry struct {
	Sequence  int64
	Stream    string
	Position  *int64
	EventID   string
	CreatedAt time.Time
}
