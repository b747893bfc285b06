package deck

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/papercomputeco/memdeck/pkg/memory"
)

// epoch stands in for records without a usable created_at.
var epoch = time.Unix(0, 0).UTC()

// Project filters and sorts records according to spec. The input is never
// modified; the result is a new slice.
func Project(records []memory.Record, spec Spec) []memory.Record {
	spec = spec.normalized()

	out := make([]memory.Record, 0, len(records))
	for _, record := range records {
		if Matches(record, spec) {
			out = append(out, record)
		}
	}

	slices.SortStableFunc(out, func(a, b memory.Record) int {
		return Compare(a, b, spec.SortField, spec.SortOrder)
	})

	return out
}

// Matches reports whether record passes every filter in spec.
func Matches(record memory.Record, spec Spec) bool {
	if spec.Search != "" {
		needle := strings.ToLower(spec.Search)
		if !strings.Contains(strings.ToLower(record.Memory), needle) &&
			!strings.Contains(strings.ToLower(record.UserID), needle) {
			return false
		}
	}
	if spec.User != "" && record.UserID != spec.User {
		return false
	}
	if spec.Tag != "" && !record.HasTag(spec.Tag) {
		return false
	}
	return true
}

// Compare orders a and b by field, negated for descending order.
func Compare(a, b memory.Record, field SortField, order SortOrder) int {
	var result int
	switch field {
	case SortUserID:
		result = cmp.Compare(strings.ToLower(a.UserID), strings.ToLower(b.UserID))
	case SortMemory:
		result = cmp.Compare(strings.ToLower(a.Memory), strings.ToLower(b.Memory))
	default:
		result = createdOrEpoch(a).Compare(createdOrEpoch(b))
	}

	if order == OrderDesc {
		return -result
	}
	return result
}

func createdOrEpoch(record memory.Record) time.Time {
	if created, ok := record.CreatedTime(); ok {
		return created
	}
	return epoch
}

// DistinctUsers returns the sorted set of owners in records.
func DistinctUsers(records []memory.Record) []string {
	seen := make(map[string]struct{}, len(records))
	for _, record := range records {
		seen[record.UserID] = struct{}{}
	}
	return sortedKeys(seen)
}

// DistinctTags returns the sorted set of tags across records.
func DistinctTags(records []memory.Record) []string {
	seen := make(map[string]struct{})
	for _, record := range records {
		for _, tag := range record.Tags() {
			seen[tag] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// Summarize counts records and owners and picks the recent most recently
// created records.
func Summarize(records []memory.Record, recent int) Summary {
	newest := Project(records, DefaultSpec())
	if recent >= 0 && len(newest) > recent {
		newest = newest[:recent]
	}

	return Summary{
		Total:       len(records),
		ActiveUsers: len(DistinctUsers(records)),
		Recent:      newest,
	}
}

// Build assembles the Overview for snapshot under spec.
func Build(snapshot Snapshot, spec Spec) Overview {
	spec = spec.normalized()
	projected := Project(snapshot.Records, spec)

	overview := Overview{
		Spec:    spec,
		Records: projected,
		Users:   DistinctUsers(snapshot.Records),
		Tags:    DistinctTags(snapshot.Records),
		Showing: len(projected),
		Total:   len(snapshot.Records),
		Loading: snapshot.Loading,
	}
	if snapshot.Err != nil {
		overview.ErrorMsg = memory.UserMessage(snapshot.Err)
	}
	return overview
}
