// Package memory defines the records held by the remote memory service and
// the wire shapes the service uses to return them.
//
// A Record is identified solely by its ID: deletion, list identity and
// equality all key off it. Records handed out by this package and its
// consumers are snapshots and must be treated as immutable.
package memory

import (
	"strings"
	"time"
)

// Record is a single stored memory.
type Record struct {
	ID        string         `json:"id"`
	Memory    string         `json:"memory"`
	UserID    string         `json:"user_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt string         `json:"created_at,omitempty"`
	UpdatedAt string         `json:"updated_at,omitempty"`
	Hash      string         `json:"hash,omitempty"`
}

// metadataTagsKey is the metadata entry holding a record's tag set.
const metadataTagsKey = "tags"

// timestampLayouts are tried in order when parsing CreatedAt. The service
// emits RFC3339 with an offset, but naive timestamps show up in older data.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Tags returns the tag strings in the record's metadata bag. Entries that are
// not strings are skipped. The returned slice is freshly allocated.
func (r Record) Tags() []string {
	if r.Metadata == nil {
		return nil
	}

	switch raw := r.Metadata[metadataTagsKey].(type) {
	case []string:
		tags := make([]string, len(raw))
		copy(tags, raw)
		return tags
	case []any:
		tags := make([]string, 0, len(raw))
		for _, value := range raw {
			if tag, ok := value.(string); ok {
				tags = append(tags, tag)
			}
		}
		return tags
	default:
		return nil
	}
}

// HasTag reports whether tag is one of the record's tags (exact match).
func (r Record) HasTag(tag string) bool {
	for _, candidate := range r.Tags() {
		if candidate == tag {
			return true
		}
	}
	return false
}

// CreatedTime parses CreatedAt. The boolean is false when the timestamp is
// absent or cannot be parsed.
func (r Record) CreatedTime() (time.Time, bool) {
	return ParseTimestamp(r.CreatedAt)
}

// ParseTimestamp parses an ISO-8601 timestamp as emitted by the service.
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, true
		}
	}

	return time.Time{}, false
}
