package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/memdeck/pkg/memory"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeMemoryAdded is emitted after the service accepted a new memory.
	EventTypeMemoryAdded = "memdeck.memory.added"

	// EventTypeMemoryDeleted is emitted after the service removed a memory.
	EventTypeMemoryDeleted = "memdeck.memory.deleted"
)

// MemoryEvent is a transport-neutral event payload for a committed write.
type MemoryEvent struct {
	SchemaVersion int         `json:"schema_version"`
	EventType     string      `json:"event_type"`
	EventID       string      `json:"event_id"`
	EmittedAt     time.Time   `json:"emitted_at"`
	Source        EventSource `json:"source"`
	Memory        MemoryRef   `json:"memory"`
}

// EventSource identifies which client and service produced the write.
type EventSource struct {
	Client  string `json:"client"`
	Service string `json:"service,omitempty"`
}

// MemoryRef describes the record the write touched. Deletes only carry the ID.
type MemoryRef struct {
	ID     string `json:"id,omitempty"`
	UserID string `json:"user_id,omitempty"`
	Memory string `json:"memory,omitempty"`
}

// NewMemoryEvent builds a v1 event for record with a fresh event ID.
func NewMemoryEvent(eventType string, record memory.Record, source EventSource) *MemoryEvent {
	return &MemoryEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     eventType,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        source,
		Memory: MemoryRef{
			ID:     record.ID,
			UserID: record.UserID,
			Memory: record.Memory,
		},
	}
}
