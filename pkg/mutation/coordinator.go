// Package mutation sequences writes against the memory service and keeps the
// shared collection cache honest afterwards.
//
// Every write follows the same order: validate locally, dispatch through the
// gateway, and only once the service has accepted the write, invalidate the
// collection key. A failed write never touches the cache, so views keep the
// last known-good data and never show a phantom add or removal.
package mutation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/papercomputeco/memdeck/pkg/eventstream"
	"github.com/papercomputeco/memdeck/pkg/eventstream/nop"
	"github.com/papercomputeco/memdeck/pkg/gateway"
	"github.com/papercomputeco/memdeck/pkg/logger"
	"github.com/papercomputeco/memdeck/pkg/memory"
)

// Op names a write kind for observers.
type Op string

const (
	OpAdd    Op = "add"
	OpDelete Op = "delete"
)

// Invalidator is the part of the cache the coordinator needs.
type Invalidator interface {
	Invalidate(key string) <-chan struct{}
}

// Observer is told the outcome of every write attempt, including ones
// rejected before dispatch.
type Observer interface {
	MutationSettled(op Op, err error)
}

// Config configures a Coordinator.
type Config struct {
	Gateway gateway.Gateway
	Cache   Invalidator

	// Key is the collection key invalidated after each committed write.
	Key string

	// Confirmer guards deletes. Defaults to Deny.
	Confirmer Confirmer

	// Publisher receives an event per committed write. Defaults to a no-op.
	Publisher eventstream.Publisher
	Source    eventstream.EventSource

	Observer Observer
	Logger   *slog.Logger
}

// Coordinator performs add and delete against the service.
type Coordinator struct {
	gateway   gateway.Gateway
	cache     Invalidator
	key       string
	confirmer Confirmer
	publisher eventstream.Publisher
	source    eventstream.EventSource
	observer  Observer
	logger    *slog.Logger
}

// New validates c and returns a Coordinator.
func New(c Config) (*Coordinator, error) {
	if c.Gateway == nil {
		return nil, errors.New("mutation coordinator requires a gateway")
	}
	if c.Cache == nil {
		return nil, errors.New("mutation coordinator requires a cache")
	}
	if strings.TrimSpace(c.Key) == "" {
		return nil, errors.New("mutation coordinator requires a collection key")
	}

	confirmer := c.Confirmer
	if confirmer == nil {
		confirmer = Deny
	}
	publisher := c.Publisher
	if publisher == nil {
		publisher = nop.NewPublisher()
	}
	log := c.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Coordinator{
		gateway:   c.Gateway,
		cache:     c.Cache,
		key:       c.Key,
		confirmer: confirmer,
		publisher: publisher,
		source:    c.Source,
		observer:  c.Observer,
		logger:    log,
	}, nil
}

// WithConfirmer returns a copy of the coordinator that guards deletes with
// confirmer. Views with their own prompt use it to plug that prompt in. A nil
// confirmer declines every delete.
func (c *Coordinator) WithConfirmer(confirmer Confirmer) *Coordinator {
	if confirmer == nil {
		confirmer = Deny
	}
	clone := *c
	clone.confirmer = confirmer
	return &clone
}

// AddRecord stores text for ownerID. Surrounding whitespace is trimmed and
// empty values are rejected without a request. On success the collection is
// invalidated and the created record returned.
func (c *Coordinator) AddRecord(ctx context.Context, text, ownerID string) (memory.Record, error) {
	text = strings.TrimSpace(text)
	ownerID = strings.TrimSpace(ownerID)

	var err error
	switch {
	case text == "":
		err = memory.NewValidationError("text", "must not be empty")
	case ownerID == "":
		err = memory.NewValidationError("user_id", "must not be empty")
	}
	if err != nil {
		c.settled(OpAdd, err)
		return memory.Record{}, err
	}

	record, err := c.gateway.Add(ctx, text, ownerID)
	if err != nil {
		c.logger.Warn("add memory failed", "user_id", ownerID, "error", err)
		c.settled(OpAdd, err)
		return memory.Record{}, err
	}

	c.cache.Invalidate(c.key)
	c.settled(OpAdd, nil)
	c.logger.Info("memory added", "id", record.ID, "user_id", record.UserID)
	c.publish(ctx, eventstream.EventTypeMemoryAdded, record)

	return record, nil
}

// DeleteRecord removes the record with id once the Confirmer agrees. A
// declined confirmation returns memory.ErrDeleteDeclined and sends nothing.
// The collection is invalidated only after the service confirmed the delete.
func (c *Coordinator) DeleteRecord(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		err := memory.NewValidationError("id", "must not be empty")
		c.settled(OpDelete, err)
		return err
	}

	ok, err := c.confirmer.Confirm(ctx, id)
	if err != nil {
		err = fmt.Errorf("confirming delete of %s: %w", id, err)
		c.settled(OpDelete, err)
		return err
	}
	if !ok {
		c.logger.Debug("delete declined", "id", id)
		c.settled(OpDelete, memory.ErrDeleteDeclined)
		return memory.ErrDeleteDeclined
	}

	if err := c.gateway.Delete(ctx, id); err != nil {
		c.logger.Warn("delete memory failed", "id", id, "error", err)
		c.settled(OpDelete, err)
		return err
	}

	c.cache.Invalidate(c.key)
	c.settled(OpDelete, nil)
	c.logger.Info("memory deleted", "id", id)
	c.publish(ctx, eventstream.EventTypeMemoryDeleted, memory.Record{ID: id})

	return nil
}

func (c *Coordinator) settled(op Op, err error) {
	if c.observer != nil {
		c.observer.MutationSettled(op, err)
	}
}

// publish emits the event for a committed write. The write already
// happened, so failures are only logged.
func (c *Coordinator) publish(ctx context.Context, eventType string, record memory.Record) {
	event := eventstream.NewMemoryEvent(eventType, record, c.source)
	if err := c.publisher.PublishMemory(ctx, event); err != nil {
		c.logger.Warn("publishing memory event failed",
			"event_type", eventType,
			"id", record.ID,
			"error", err,
		)
	}
}
