// Package model defines domain models and data structures.
package model

import (
	"hash/fnv"
	"strconv"
	"time"
)

// SerializedRecord is one stored event instance. Data and Metadata are
// opaque serialized payloads. Values are immutable once constructed.
type SerializedRecord struct {
	eventID   string
	data      string
	metadata  string
	eventType string
	timestamp time.Time
}

// NewSerializedRecord validates the identifying strings and builds a record.
// The timestamp is normalised to UTC without a monotonic reading.
func NewSerializedRecord(eventID, data, metadata, eventType string, timestamp time.Time) (SerializedRecord, error) {
	if eventID == "" || eventType == "" {
		return SerializedRecord{}, ErrStringsRequired
	}

	return SerializedRecord{
		eventID:   eventID,
		data:      data,
		metadata:  metadata,
		eventType: eventType,
		timestamp: timestamp.UTC().Round(0),
	}, nil
}

// EventID returns the globally unique event id.
func (r SerializedRecord) EventID() string { return r.eventID }

// Data returns the serialized event data.
func (r SerializedRecord) Data() string { return r.data }

// Metadata returns the serialized event metadata.
func (r SerializedRecord) Metadata() string { return r.metadata }

// EventType returns the event type name.
func (r SerializedRecord) EventType() string { return r.eventType }

// Timestamp returns the instant the event occurred.
func (r SerializedRecord) Timestamp() time.Time { return r.timestamp }

// Equal reports whether both records carry the same values.
func (r SerializedRecord) Equal(other SerializedRecord) bool {
	return r.eventID == other.eventID &&
		r.data == other.data &&
		r.metadata == other.metadata &&
		r.eventType == other.eventType &&
		r.timestamp.Equal(other.timestamp)
}

// Hash returns a value hash consistent with Equal.
func (r SerializedRecord) Hash() uint64 {
	h := fnv.New64a()

	for _, part := range []string{
		r.eventID,
		r.data,
		r.metadata,
		r.eventType,
		strconv.FormatInt(r.timestamp.UnixNano(), 10),
	} {
		_, _ = h.Write([]byte(strconv.Itoa(len(part))))
		_, _ = h.Write([]byte{':'})
		_, _ = h.Write([]byte(part))
	}

	return h.Sum64()
}

// ToMap returns the record as the plain map carried in job arguments.
func (r SerializedRecord) ToMap() map[string]any {
	return map[string]any{
		"event_id":   r.eventID,
		"data":       r.data,
		"metadata":   r.metadata,
		"event_type": r.eventType,
		"timestamp":  r.timestamp.Format(time.RFC3339Nano),
	}
}
