package deck

import (
	"fmt"
	"time"

	"github.com/papercomputeco/memdeck/pkg/memory"
)

const (
	demoUserAlice = "alice"
	demoUserBob   = "bob"
	demoUserCarol = "carol"
)

type seedMemory struct {
	User string
	Text string
	Tags []string
	Age  time.Duration
}

// DemoRecords returns a fixed set of records timestamped relative to now,
// used by demo mode to render the deck without a running service.
func DemoRecords(now time.Time) []memory.Record {
	seeds := []seedMemory{
		{User: demoUserAlice, Text: "Prefers green tea over coffee in the morning", Tags: []string{"food", "preference"}, Age: 30 * time.Second},
		{User: demoUserAlice, Text: "Works as a backend engineer on the payments team", Tags: []string{"work", "career"}, Age: 12 * time.Minute},
		{User: demoUserBob, Text: "Training for a half marathon in October", Tags: []string{"sports", "health"}, Age: 2 * time.Hour},
		{User: demoUserBob, Text: "Allergic to peanuts", Tags: []string{"health", "food"}, Age: 5 * time.Hour},
		{User: demoUserCarol, Text: "Planning a trip to Kyoto next spring", Tags: []string{"travel"}, Age: 26 * time.Hour},
		{User: demoUserCarol, Text: "Uses Neovim with a custom Lua config", Tags: []string{"tech", "preference"}, Age: 3 * 24 * time.Hour},
		{User: demoUserAlice, Text: "Has a cat named Miso", Tags: []string{"personal"}, Age: 4 * 24 * time.Hour},
		{User: demoUserBob, Text: "Interested in moving into an engineering manager role", Tags: []string{"career", "work"}, Age: 6 * 24 * time.Hour},
		{User: demoUserCarol, Text: "Vegetarian since 2019", Tags: []string{"food"}, Age: 9 * 24 * time.Hour},
		{User: demoUserAlice, Text: "Reads science fiction before bed", Tags: nil, Age: 14 * 24 * time.Hour},
	}

	records := make([]memory.Record, 0, len(seeds))
	for i, seed := range seeds {
		record := memory.Record{
			ID:        fmt.Sprintf("demo-%02d", i+1),
			Memory:    seed.Text,
			UserID:    seed.User,
			CreatedAt: now.Add(-seed.Age).UTC().Format(time.RFC3339),
		}
		if len(seed.Tags) > 0 {
			record.Metadata = map[string]any{"tags": seed.Tags}
		}
		records = append(records, record)
	}

	return records
}
