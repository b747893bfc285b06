package memory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// HistoryEntry is one change the service recorded against a memory.
type HistoryEntry struct {
	ID        string `json:"id"`
	MemoryID  string `json:"memory_id"`
	OldMemory string `json:"old_memory,omitempty"`
	NewMemory string `json:"new_memory,omitempty"`
	Event     string `json:"event"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
	IsDeleted bool   `json:"is_deleted,omitempty"`
}

// ChangedAt is the latest timestamp on the entry.
func (h HistoryEntry) ChangedAt() (time.Time, bool) {
	if t, ok := ParseTimestamp(h.UpdatedAt); ok {
		return t, true
	}
	return ParseTimestamp(h.CreatedAt)
}

// DecodeHistory resolves a history payload: a bare array, or the service's
// {"status": ..., "data": [...]} wrapper around one. A null payload is an
// empty history.
func DecodeHistory(data []byte) ([]HistoryEntry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrUnknownShape)
	}

	switch trimmed[0] {
	case '[':
		var entries []HistoryEntry
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("decoding history: %w", err)
		}
		return entries, nil
	case '{':
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("decoding history envelope: %w", err)
		}
		switch {
		case env.Data != nil:
			return DecodeHistory(env.Data)
		case env.Results != nil:
			return DecodeHistory(env.Results)
		}
	case 'n':
		if bytes.Equal(trimmed, []byte("null")) {
			return []HistoryEntry{}, nil
		}
	}

	return nil, fmt.Errorf("%w: leading %q", ErrUnknownShape, trimmed[0])
}
