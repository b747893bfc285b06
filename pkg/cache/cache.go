// Package cache provides a keyed, revalidating cache for remote data.
//
// Each key holds an Entry that moves through Empty -> Loading -> Ready or
// Errored and back to Loading on invalidation. Concurrent fetches for a key
// collapse into one in-flight call. Every transition is published, in order,
// to the listeners subscribed to that key.
//
// A Cache is constructed once and injected wherever the same data is needed,
// so every view of a key shares one entry. Close tears the whole cache down.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/papercomputeco/memdeck/pkg/logger"
)

// ErrUnknownKey is returned by Await for a key that was never subscribed.
var ErrUnknownKey = errors.New("unknown cache key")

// ErrClosed is reported by fetches that were started after Close.
var ErrClosed = errors.New("cache closed")

// Fetcher loads the value for a key.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Listener receives an entry snapshot after each state transition.
type Listener[T any] func(Entry[T])

// Observer is notified around every underlying fetch.
type Observer interface {
	FetchStarted(key string)
	FetchSettled(key string, elapsed time.Duration, err error)
}

// Options configures a Cache.
type Options struct {
	// Logger is the configured slog logger.
	Logger *slog.Logger

	// FetchTimeout bounds each fetch. Zero means no timeout beyond Close.
	FetchTimeout time.Duration

	// RefreshInterval revalidates every key with at least one subscriber on
	// this period. Zero disables periodic refresh.
	RefreshInterval time.Duration

	// Observer is optional.
	Observer Observer
}

// Cache is a keyed store of revalidating entries.
type Cache[T any] struct {
	mu      sync.Mutex
	entries map[string]*entry[T]
	nextID  uint64
	closed  bool

	group singleflight.Group

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	timeout  time.Duration
	observer Observer
	logger   *slog.Logger
}

type entry[T any] struct {
	state     Entry[T]
	fetcher   Fetcher[T]
	listeners map[uint64]Listener[T]
	waiters   map[uint64]chan Entry[T]

	// pending holds published snapshots not yet delivered. draining is set
	// while some goroutine is delivering them, so delivery stays in order.
	pending  []update[T]
	draining bool
}

type update[T any] struct {
	snapshot Entry[T]
	ids      []uint64
}

// New creates a Cache. Call Close to release it.
func New[T any](opts Options) *Cache[T] {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache[T]{
		entries:  make(map[string]*entry[T]),
		ctx:      ctx,
		cancel:   cancel,
		timeout:  opts.FetchTimeout,
		observer: opts.Observer,
		logger:   log,
	}

	if opts.RefreshInterval > 0 {
		c.wg.Add(1)
		go c.refreshLoop(opts.RefreshInterval)
	}

	return c
}

// Subscribe returns the current entry for key and registers fn for every
// later transition. The first subscription creates the entry and starts the
// fetch. A Ready entry is returned as is; a Loading entry is joined; an
// Errored entry is retried. A non-nil fetch replaces the key's fetcher.
//
// The returned function unregisters fn. It does not cancel a running fetch.
func (c *Cache[T]) Subscribe(key string, fetch Fetcher[T], fn Listener[T]) (Entry[T], func()) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Entry[T]{Key: key}, func() {}
	}

	e, ok := c.entries[key]
	if !ok {
		e = &entry[T]{
			state:     Entry[T]{Key: key, Status: StatusEmpty},
			listeners: make(map[uint64]Listener[T]),
			waiters:   make(map[uint64]chan Entry[T]),
		}
		c.entries[key] = e
	}
	if fetch != nil {
		e.fetcher = fetch
	}

	var start func()
	marked := false
	if e.fetcher != nil && (e.state.Status == StatusEmpty || e.state.Status == StatusErrored) {
		marked = c.markLoadingLocked(e)
		_, start = c.launchLocked(key)
	}

	// Registered after the Loading transition was queued: the caller sees
	// that state in the return value instead.
	var id uint64
	if fn != nil {
		c.nextID++
		id = c.nextID
		e.listeners[id] = fn
	}
	e.state.Subscribers = len(e.listeners)
	snapshot := e.state
	c.mu.Unlock()

	if marked {
		c.drain(e)
	}
	if start != nil {
		start()
	}

	if fn == nil {
		return snapshot, func() {}
	}

	var once sync.Once
	return snapshot, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(e.listeners, id)
			e.state.Subscribers = len(e.listeners)
		})
	}
}

// Invalidate forces key back to Loading and refetches it. If a fetch for
// key is already in flight the call joins it rather than starting another.
// The returned channel is closed once that fetch has settled and been
// published. Keys that were never subscribed have nothing to refetch; the
// returned channel is already closed.
func (c *Cache[T]) Invalidate(key string) <-chan struct{} {
	c.mu.Lock()
	e, ok := c.entries[key]
	if c.closed || !ok || e.fetcher == nil {
		c.mu.Unlock()
		return closedChan()
	}

	marked := c.markLoadingLocked(e)
	done, start := c.launchLocked(key)
	c.mu.Unlock()

	if marked {
		c.drain(e)
	}
	start()

	return done
}

// Get returns the current entry for key without subscribing or fetching.
func (c *Cache[T]) Get(key string) (Entry[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return Entry[T]{Key: key}, false
	}
	return e.state, true
}

// Await blocks until key is no longer Loading and returns that entry.
func (c *Cache[T]) Await(ctx context.Context, key string) (Entry[T], error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return Entry[T]{Key: key}, ErrUnknownKey
	}
	if e.state.Status != StatusLoading {
		snapshot := e.state
		c.mu.Unlock()
		return snapshot, nil
	}

	c.nextID++
	id := c.nextID
	ch := make(chan Entry[T], 1)
	e.waiters[id] = ch
	c.mu.Unlock()

	select {
	case snapshot := <-ch:
		return snapshot, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(e.waiters, id)
		c.mu.Unlock()
		return Entry[T]{Key: key}, ctx.Err()
	}
}

// Keys returns the cached keys in sorted order.
func (c *Cache[T]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Sorted(maps.Keys(c.entries))
}

// Close cancels in-flight fetches, drops every entry and waits for the
// cache's goroutines to exit. Subscribe and Invalidate are no-ops afterwards.
func (c *Cache[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	entries := c.entries
	c.entries = make(map[string]*entry[T])
	for _, e := range entries {
		for id, ch := range e.waiters {
			ch <- e.state
			delete(e.waiters, id)
		}
	}
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

// markLoadingLocked moves e to Loading and queues the transition. Data and
// the last error are kept so consumers can keep showing them while the
// refetch runs. Reports whether a transition happened.
func (c *Cache[T]) markLoadingLocked(e *entry[T]) bool {
	if e.state.Status == StatusLoading {
		return false
	}
	e.state.Status = StatusLoading
	c.enqueueLocked(e)
	return true
}

// enqueueLocked queues the current state for every current listener.
func (c *Cache[T]) enqueueLocked(e *entry[T]) {
	e.pending = append(e.pending, update[T]{
		snapshot: e.state,
		ids:      slices.Sorted(maps.Keys(e.listeners)),
	})
}

// drain delivers queued snapshots in order. Only one goroutine drains an
// entry at a time; others return and leave their updates to it. Listeners
// run without the lock held and may call back into the cache.
func (c *Cache[T]) drain(e *entry[T]) {
	c.mu.Lock()
	if e.draining {
		c.mu.Unlock()
		return
	}
	e.draining = true

	for len(e.pending) > 0 {
		next := e.pending[0]
		e.pending = e.pending[1:]

		fns := make([]Listener[T], 0, len(next.ids))
		for _, id := range next.ids {
			if fn, ok := e.listeners[id]; ok {
				fns = append(fns, fn)
			}
		}
		c.mu.Unlock()

		for _, fn := range fns {
			fn(next.snapshot)
		}

		c.mu.Lock()
	}

	e.draining = false
	c.mu.Unlock()
}

// launchLocked registers the fetch goroutine with the wait group while the
// lock proves the cache is open, and returns a start function to call once
// the lock is released.
func (c *Cache[T]) launchLocked(key string) (<-chan struct{}, func()) {
	done := make(chan struct{})
	c.wg.Add(1)

	return done, func() {
		ch := c.group.DoChan(key, func() (any, error) {
			return nil, c.fetch(key)
		})
		go func() {
			defer c.wg.Done()
			<-ch
			close(done)
		}()
	}
}

// fetch runs the key's fetcher once and settles the entry with the result.
// It executes inside the singleflight group, so at most one runs per key.
func (c *Cache[T]) fetch(key string) error {
	c.mu.Lock()
	e, ok := c.entries[key]
	if c.closed || !ok || e.fetcher == nil {
		c.mu.Unlock()
		return ErrClosed
	}
	fetcher := e.fetcher
	marked := c.markLoadingLocked(e)
	c.mu.Unlock()

	if marked {
		c.drain(e)
	}

	if c.observer != nil {
		c.observer.FetchStarted(key)
	}

	ctx, cancel := c.fetchContext()
	start := time.Now()
	data, err := fetcher(ctx)
	elapsed := time.Since(start)
	cancel()

	// The result is known. An Invalidate from here on, including one made
	// while settle delivers to listeners, must start a new fetch rather
	// than join this one.
	c.group.Forget(key)

	if c.observer != nil {
		c.observer.FetchSettled(key, elapsed, err)
	}

	c.settle(key, e, data, err)
	return err
}

// settle records a fetch result. A failure keeps the last good data. The
// last fetch to resolve wins.
func (c *Cache[T]) settle(key string, e *entry[T], data T, err error) {
	c.mu.Lock()
	if current, ok := c.entries[key]; !ok || current != e {
		c.mu.Unlock()
		return
	}

	if err != nil {
		e.state.Status = StatusErrored
		e.state.Err = err
		c.logger.Warn("cache fetch failed",
			"key", key,
			"stale_data", e.state.HasData,
			"error", err,
		)
	} else {
		e.state.Status = StatusReady
		e.state.Data = data
		e.state.HasData = true
		e.state.Err = nil
		c.logger.Debug("cache fetch settled", "key", key)
	}
	e.state.UpdatedAt = time.Now()

	c.enqueueLocked(e)
	for id, ch := range e.waiters {
		ch <- e.state
		delete(e.waiters, id)
	}
	c.mu.Unlock()

	c.drain(e)
}

func (c *Cache[T]) fetchContext() (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(c.ctx, c.timeout)
	}
	return context.WithCancel(c.ctx)
}

func (c *Cache[T]) refreshLoop(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			for _, key := range c.subscribedKeys() {
				c.Invalidate(key)
			}
		}
	}
}

// subscribedKeys lists keys worth refreshing: subscribed, fetchable and not
// already loading.
func (c *Cache[T]) subscribedKeys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.entries))
	for key, e := range c.entries {
		if len(e.listeners) > 0 && e.fetcher != nil && e.state.Status != StatusLoading {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys
}

func closedChan() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
