package deck

import (
	"context"
	"errors"
	"slices"

	"github.com/papercomputeco/memdeck/pkg/cache"
	"github.com/papercomputeco/memdeck/pkg/gateway"
	"github.com/papercomputeco/memdeck/pkg/memory"
	"github.com/papercomputeco/memdeck/pkg/mutation"
)

// CollectionKey is the cache key of the full record collection. Every view
// reads it and every committed write invalidates it.
const CollectionKey = "all_memories"

// CollectionCache is the cache type holding the collection.
type CollectionCache = cache.Cache[[]memory.Record]

// Deck is the live view over the shared collection. It owns no state of its
// own: records live in the injected cache, writes go through the mutation
// coordinator, and views are derived on demand with Project.
type Deck struct {
	cache     *CollectionCache
	gateway   gateway.Gateway
	mutations *mutation.Coordinator
}

// New wires a Deck.
func New(c *CollectionCache, gw gateway.Gateway, mutations *mutation.Coordinator) (*Deck, error) {
	if c == nil {
		return nil, errors.New("deck requires a cache")
	}
	if gw == nil {
		return nil, errors.New("deck requires a gateway")
	}
	if mutations == nil {
		return nil, errors.New("deck requires a mutation coordinator")
	}
	return &Deck{cache: c, gateway: gw, mutations: mutations}, nil
}

// fetch is the collection fetcher handed to the cache.
func (d *Deck) fetch(ctx context.Context) ([]memory.Record, error) {
	collection, err := d.gateway.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return collection.Records(), nil
}

// SubscribeToCollection returns the current snapshot and calls listener with
// every later one. The first subscriber triggers the initial load. The
// returned function stops delivery.
func (d *Deck) SubscribeToCollection(listener func(Snapshot)) (Snapshot, func()) {
	var fn cache.Listener[[]memory.Record]
	if listener != nil {
		fn = func(e cache.Entry[[]memory.Record]) {
			listener(snapshotOf(e))
		}
	}

	entry, unsubscribe := d.cache.Subscribe(CollectionKey, d.fetch, fn)
	return snapshotOf(entry), unsubscribe
}

// Snapshot returns the current state, starting the initial load if nothing
// has subscribed yet. It never retries: an Errored collection is reported as
// is until Refresh or a new subscription asks for another fetch.
func (d *Deck) Snapshot() Snapshot {
	if entry, ok := d.cache.Get(CollectionKey); ok {
		return snapshotOf(entry)
	}
	snapshot, _ := d.SubscribeToCollection(nil)
	return snapshot
}

// Wait blocks until the collection is no longer loading. Like Snapshot it
// does not retry an Errored collection.
func (d *Deck) Wait(ctx context.Context) (Snapshot, error) {
	d.Snapshot()
	entry, err := d.cache.Await(ctx, CollectionKey)
	if err != nil {
		return Snapshot{}, err
	}
	return snapshotOf(entry), nil
}

// Overview derives the view for spec from the current snapshot.
func (d *Deck) Overview(spec Spec) Overview {
	return Build(d.Snapshot(), spec)
}

// Summary derives the headline counts and the recent most recent records.
func (d *Deck) Summary(recent int) Summary {
	return Summarize(d.Snapshot().Records, recent)
}

// Refresh refetches the collection. It is the user-facing retry after a
// failed load. The returned channel closes when the refetch settles.
func (d *Deck) Refresh() <-chan struct{} {
	d.Snapshot()
	return d.cache.Invalidate(CollectionKey)
}

// AddRecord stores a new memory through the coordinator.
func (d *Deck) AddRecord(ctx context.Context, text, ownerID string) (memory.Record, error) {
	return d.mutations.AddRecord(ctx, text, ownerID)
}

// DeleteRecord removes a memory through the coordinator, asking the
// coordinator's Confirmer first.
func (d *Deck) DeleteRecord(ctx context.Context, id string) error {
	return d.mutations.DeleteRecord(ctx, id)
}

// DeleteRecordWith is DeleteRecord guarded by confirmer instead.
func (d *Deck) DeleteRecordWith(ctx context.Context, id string, confirmer mutation.Confirmer) error {
	return d.mutations.WithConfirmer(confirmer).DeleteRecord(ctx, id)
}

// Find returns the record with id from the current snapshot.
func (d *Deck) Find(id string) (memory.Record, bool) {
	records := d.Snapshot().Records
	idx := slices.IndexFunc(records, func(r memory.Record) bool { return r.ID == id })
	if idx < 0 {
		return memory.Record{}, false
	}
	return records[idx], true
}

func snapshotOf(e cache.Entry[[]memory.Record]) Snapshot {
	records := e.Data
	if records == nil {
		records = []memory.Record{}
	}
	return Snapshot{
		Records: records,
		Loading: e.Status == cache.StatusLoading || e.Status == cache.StatusEmpty,
		Err:     e.Err,
	}
}
