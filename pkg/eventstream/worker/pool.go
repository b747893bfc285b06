// Package worker provides an asynchronous worker pool that hands memory
// events to a backing eventstream.Publisher.
//
// The pool decouples broker round trips from the mutation path so a slow or
// unreachable broker never delays an add or delete.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/papercomputeco/memdeck/pkg/eventstream"
	"github.com/papercomputeco/memdeck/pkg/logger"
)

var (
	defaultNumWorkers     uint = 2
	defaultJobQueueSize   uint = 256
	defaultPublishTimeout      = 10 * time.Second
)

var (
	// ErrQueueFull is returned when an event was dropped because the queue
	// had no room.
	ErrQueueFull = errors.New("event queue full, event dropped")

	// ErrPoolClosed is returned for events published after Close.
	ErrPoolClosed = errors.New("event pool closed")
)

// Config is the configuration options for the worker pool.
type Config struct {
	// Publisher receives every queued event. It is closed with the pool.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered event channel (defaults to 256).
	QueueSize uint

	// PublishTimeout bounds each call to the backing publisher.
	PublishTimeout time.Duration

	Logger *slog.Logger
}

// Pool publishes memory events asynchronously. It implements
// eventstream.Publisher.
type Pool struct {
	config Config
	queue  chan *eventstream.MemoryEvent
	wg     sync.WaitGroup
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// Ensure Pool implements eventstream.Publisher
var _ eventstream.Publisher = (*Pool)(nil)

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c Config) (*Pool, error) {
	if c.Publisher == nil {
		return nil, errors.New("worker pool requires a publisher")
	}
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = defaultPublishTimeout
	}
	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	log := c.Logger
	if log == nil {
		log = logger.Nop()
	}

	wp := &Pool{
		config: c,
		queue:  make(chan *eventstream.MemoryEvent, c.QueueSize),
		logger: log,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// PublishMemory queues event and returns without waiting for the broker.
// A full queue drops the event and returns ErrQueueFull.
func (p *Pool) PublishMemory(_ context.Context, event *eventstream.MemoryEvent) error {
	if event == nil {
		return eventstream.ErrNilMemoryEvent
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.queue <- event:
		p.logger.Debug("event queued",
			"event_type", event.EventType,
			"id", event.Memory.ID,
		)
		return nil
	default:
		p.logger.Error("event not queued, queue full, event dropped",
			"event_type", event.EventType,
			"id", event.Memory.ID,
		)
		return ErrQueueFull
	}
}

// Close stops accepting events, waits for queued ones to drain and then
// closes the backing publisher.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	return p.config.Publisher.Close()
}

// worker continuously pulls events off the queue until it is closed.
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("event worker started", "worker_id", id)

	for event := range p.queue {
		p.publish(event)
	}

	p.logger.Debug("event worker stopped", "worker_id", id)
}

func (p *Pool) publish(event *eventstream.MemoryEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.PublishTimeout)
	defer cancel()

	if err := p.config.Publisher.PublishMemory(ctx, event); err != nil {
		p.logger.Warn("publishing memory event failed",
			"event_type", event.EventType,
			"id", event.Memory.ID,
			"error", err,
		)
		return
	}

	p.logger.Debug("event published",
		"event_type", event.EventType,
		"id", event.Memory.ID,
	)
}
