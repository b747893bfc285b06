package deck

import (
	"fmt"
	"strings"

	"github.com/papercomputeco/memdeck/pkg/memory"
)

// SortField names the record attribute a projection is ordered by.
type SortField string

const (
	SortCreatedAt SortField = "created_at"
	SortUserID    SortField = "user_id"
	SortMemory    SortField = "memory"
)

// SortOrder is the direction of a projection.
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// SortFields lists the valid sort fields in display order.
var SortFields = []SortField{SortCreatedAt, SortUserID, SortMemory}

// ParseSortField validates a sort field name.
func ParseSortField(value string) (SortField, error) {
	switch field := SortField(strings.ToLower(strings.TrimSpace(value))); field {
	case SortCreatedAt, SortUserID, SortMemory:
		return field, nil
	default:
		return "", fmt.Errorf("invalid sort field %q (expected created_at, user_id or memory)", value)
	}
}

// ParseSortOrder validates a sort order name.
func ParseSortOrder(value string) (SortOrder, error) {
	switch order := SortOrder(strings.ToLower(strings.TrimSpace(value))); order {
	case OrderAsc, OrderDesc:
		return order, nil
	default:
		return "", fmt.Errorf("invalid sort order %q (expected asc or desc)", value)
	}
}

// Flip returns the opposite order.
func (o SortOrder) Flip() SortOrder {
	if o == OrderAsc {
		return OrderDesc
	}
	return OrderAsc
}

// Spec describes a projection: three filters combined with AND, then a sort.
// The zero value of each filter means "no constraint".
type Spec struct {
	Search    string    `json:"search,omitempty"`
	User      string    `json:"user,omitempty"`
	Tag       string    `json:"tag,omitempty"`
	SortField SortField `json:"sort_field"`
	SortOrder SortOrder `json:"sort_order"`
}

// DefaultSpec is newest first with no filters.
func DefaultSpec() Spec {
	return Spec{SortField: SortCreatedAt, SortOrder: OrderDesc}
}

// ToggleSort selects field. Selecting the current field flips the order; a
// new field starts descending.
func (s Spec) ToggleSort(field SortField) Spec {
	if s.SortField == field {
		s.SortOrder = s.SortOrder.Flip()
		return s
	}
	s.SortField = field
	s.SortOrder = OrderDesc
	return s
}

// ResetFilters clears search, user and tag, keeping the sort.
func (s Spec) ResetFilters() Spec {
	s.Search = ""
	s.User = ""
	s.Tag = ""
	return s
}

// HasFilters reports whether any filter is active.
func (s Spec) HasFilters() bool {
	return s.Search != "" || s.User != "" || s.Tag != ""
}

func (s Spec) normalized() Spec {
	if s.SortField == "" {
		s.SortField = SortCreatedAt
	}
	if s.SortOrder == "" {
		s.SortOrder = OrderDesc
	}
	return s
}

// Summary is the headline view of a collection.
type Summary struct {
	Total       int             `json:"total"`
	ActiveUsers int             `json:"active_users"`
	Recent      []memory.Record `json:"recent"`
}

// Overview is a projection with the facets and counts a view needs to render.
type Overview struct {
	Spec     Spec            `json:"spec"`
	Records  []memory.Record `json:"records"`
	Users    []string        `json:"users"`
	Tags     []string        `json:"tags"`
	Showing  int             `json:"showing"`
	Total    int             `json:"total"`
	Loading  bool            `json:"loading"`
	ErrorMsg string          `json:"error,omitempty"`
}

// Snapshot is the live state of the shared collection.
type Snapshot struct {
	// Records is the last successfully loaded collection. It is kept while a
	// refetch runs and after a refetch fails.
	Records []memory.Record
	Loading bool
	Err     error
}
