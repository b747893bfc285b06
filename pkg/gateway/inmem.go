package gateway

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/memdeck/pkg/memory"
)

// InMemory is a Gateway over a local record list. It backs demo mode and
// tests. Failures can be injected per operation with Fail.
type InMemory struct {
	mu      sync.Mutex
	records []memory.Record
	shape   memory.Shape
	fail    map[string]error
	calls   map[string]int
	now     func() time.Time
}

// Operation names accepted by Fail and Calls.
const (
	OpListAll = "list"
	OpAdd     = "add"
	OpDelete  = "delete"
)

// Ensure InMemory implements Gateway
var _ Gateway = (*InMemory)(nil)

// NewInMemory returns a gateway holding a copy of records. ListAll answers
// in the envelope shape the live service uses.
func NewInMemory(records ...memory.Record) *InMemory {
	return &InMemory{
		records: slices.Clone(records),
		shape:   memory.ShapeEnvelope,
		fail:    make(map[string]error),
		calls:   make(map[string]int),
		now:     time.Now,
	}
}

// WithShape switches the variant ListAll answers in.
func (g *InMemory) WithShape(shape memory.Shape) *InMemory {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.shape = shape
	return g
}

// Fail makes every later call to op return err. A nil err clears it.
func (g *InMemory) Fail(op string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err == nil {
		delete(g.fail, op)
		return
	}
	g.fail[op] = err
}

// Calls reports how many times op reached the gateway after validation.
func (g *InMemory) Calls(op string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[op]
}

// Records returns a copy of the stored records.
func (g *InMemory) Records() []memory.Record {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.records)
}

func (g *InMemory) ListAll(ctx context.Context) (memory.Collection, error) {
	if err := ctx.Err(); err != nil {
		return memory.Collection{}, &memory.TransportError{Op: "list memories", Err: err}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls[OpListAll]++
	if err := g.fail[OpListAll]; err != nil {
		return memory.Collection{}, err
	}

	records := slices.Clone(g.records)
	if g.shape == memory.ShapeArray {
		return memory.NewArrayCollection(records), nil
	}
	return memory.NewEnvelopeCollection(records), nil
}

func (g *InMemory) Add(ctx context.Context, text, ownerID string) (memory.Record, error) {
	if strings.TrimSpace(text) == "" {
		return memory.Record{}, memory.NewValidationError("text", "must not be empty")
	}
	if strings.TrimSpace(ownerID) == "" {
		return memory.Record{}, memory.NewValidationError("user_id", "must not be empty")
	}
	if err := ctx.Err(); err != nil {
		return memory.Record{}, &memory.TransportError{Op: "add memory", Err: err}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls[OpAdd]++
	if err := g.fail[OpAdd]; err != nil {
		return memory.Record{}, err
	}

	record := memory.Record{
		ID:        uuid.NewString(),
		Memory:    text,
		UserID:    ownerID,
		CreatedAt: g.now().UTC().Format(time.RFC3339),
	}
	g.records = append(g.records, record)

	return record, nil
}

func (g *InMemory) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return memory.NewValidationError("id", "must not be empty")
	}
	if err := ctx.Err(); err != nil {
		return &memory.TransportError{Op: "delete memory", Err: err}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls[OpDelete]++
	if err := g.fail[OpDelete]; err != nil {
		return err
	}

	idx := slices.IndexFunc(g.records, func(r memory.Record) bool { return r.ID == id })
	if idx < 0 {
		return &memory.NotFoundError{ID: id}
	}
	g.records = slices.Delete(g.records, idx, idx+1)

	return nil
}
