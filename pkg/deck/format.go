package deck

import (
	"fmt"
	"strings"
	"time"
)

// FormatAge renders how long ago created was relative to now, e.g.
// "5 minutes ago". Absent timestamps render as "-".
func FormatAge(created time.Time, ok bool, now time.Time) string {
	if !ok {
		return "-"
	}

	minutes := int(now.Sub(created) / time.Minute)
	switch {
	case minutes < 1:
		return "Just now"
	case minutes < 60:
		return plural(minutes, "minute") + " ago"
	}

	hours := minutes / 60
	if hours < 24 {
		return plural(hours, "hour") + " ago"
	}

	return plural(hours/24, "day") + " ago"
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// DefaultTagColor is used for tags without an assigned color.
const DefaultTagColor = "#6b7280"

var tagColors = map[string]string{
	"work":       "#3b82f6",
	"food":       "#f59e0b",
	"tech":       "#8b5cf6",
	"personal":   "#ec4899",
	"travel":     "#10b981",
	"health":     "#ef4444",
	"sports":     "#14b8a6",
	"preference": "#a855f7",
	"career":     "#6366f1",
}

// TagColor returns the hex color for tag, matched case-insensitively.
func TagColor(tag string) string {
	if color, ok := tagColors[strings.ToLower(tag)]; ok {
		return color
	}
	return DefaultTagColor
}
