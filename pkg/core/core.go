// Package core assembles the memdeck client core: the gateway to the memory
// service, the shared collection cache, the mutation coordinator and the deck
// built on top of them. Every command opens one Core and closes it on exit.
package core

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/papercomputeco/memdeck/pkg/cache"
	"github.com/papercomputeco/memdeck/pkg/config"
	"github.com/papercomputeco/memdeck/pkg/deck"
	"github.com/papercomputeco/memdeck/pkg/eventstream"
	"github.com/papercomputeco/memdeck/pkg/eventstream/kafka"
	"github.com/papercomputeco/memdeck/pkg/eventstream/nop"
	"github.com/papercomputeco/memdeck/pkg/eventstream/worker"
	"github.com/papercomputeco/memdeck/pkg/gateway"
	"github.com/papercomputeco/memdeck/pkg/logger"
	"github.com/papercomputeco/memdeck/pkg/memory"
	"github.com/papercomputeco/memdeck/pkg/metrics"
	"github.com/papercomputeco/memdeck/pkg/mutation"
)

// Event stream providers.
const (
	ProviderNop   = "nop"
	ProviderKafka = "kafka"
)

// Options configures Open.
type Options struct {
	// Target is the memory service URL. Ignored when Gateway is set.
	Target  string
	Timeout time.Duration

	// Gateway replaces the HTTP gateway, e.g. with an in-memory one for
	// demo mode.
	Gateway gateway.Gateway

	// FetchTimeout bounds each collection load. Zero means no bound beyond
	// the gateway's own timeout.
	FetchTimeout time.Duration

	// RefreshInterval revalidates the collection while someone watches it.
	RefreshInterval time.Duration

	// Confirmer guards deletes issued through Deck.DeleteRecord.
	Confirmer mutation.Confirmer

	EventProvider string
	KafkaBrokers  []string
	KafkaTopic    string

	// Client names the surface in published events ("cli", "deck", "api").
	Client string

	Metrics *metrics.Collector
	Logger  *slog.Logger
}

// Core is an opened client core.
type Core struct {
	Gateway   gateway.Gateway
	Cache     *deck.CollectionCache
	Mutations *mutation.Coordinator
	Deck      *deck.Deck
	Publisher eventstream.Publisher
	Logger    *slog.Logger
}

// OptionsFromViper reads the service, dashboard and event stream settings.
func OptionsFromViper(v *viper.Viper) (Options, error) {
	timeout, err := config.ParseDuration("service.timeout", v.GetString("service.timeout"))
	if err != nil {
		return Options{}, err
	}
	refresh, err := config.ParseDuration("dashboard.refresh_interval", v.GetString("dashboard.refresh_interval"))
	if err != nil {
		return Options{}, err
	}

	events := config.EventStreamConfig{
		Provider: v.GetString("eventstream.provider"),
		Brokers:  v.GetString("eventstream.brokers"),
		Topic:    v.GetString("eventstream.topic"),
	}

	return Options{
		Target:          v.GetString("service.target"),
		Timeout:         timeout,
		RefreshInterval: refresh,
		EventProvider:   events.Provider,
		KafkaBrokers:    events.BrokerList(),
		KafkaTopic:      events.Topic,
	}, nil
}

// Open wires a Core from o. Call Close when done.
func Open(o Options) (*Core, error) {
	log := o.Logger
	if log == nil {
		log = logger.Nop()
	}

	gw := o.Gateway
	if gw == nil {
		client, err := gateway.NewClient(gateway.Config{
			Target:  o.Target,
			Timeout: o.Timeout,
			Logger:  log,
		})
		if err != nil {
			return nil, fmt.Errorf("creating gateway: %w", err)
		}
		gw = client
	}

	publisher, err := newPublisher(o, log)
	if err != nil {
		return nil, err
	}

	cacheOpts := cache.Options{
		Logger:          log,
		FetchTimeout:    o.FetchTimeout,
		RefreshInterval: o.RefreshInterval,
	}
	mutationCfg := mutation.Config{
		Gateway:   gw,
		Key:       deck.CollectionKey,
		Confirmer: o.Confirmer,
		Publisher: publisher,
		Source:    eventstream.EventSource{Client: o.Client, Service: o.Target},
		Logger:    log,
	}
	if o.Metrics != nil {
		cacheOpts.Observer = o.Metrics
		mutationCfg.Observer = o.Metrics
	}

	store := cache.New[[]memory.Record](cacheOpts)
	mutationCfg.Cache = store

	mutations, err := mutation.New(mutationCfg)
	if err != nil {
		store.Close()
		_ = publisher.Close()
		return nil, err
	}

	d, err := deck.New(store, gw, mutations)
	if err != nil {
		store.Close()
		_ = publisher.Close()
		return nil, err
	}

	return &Core{
		Gateway:   gw,
		Cache:     store,
		Mutations: mutations,
		Deck:      d,
		Publisher: publisher,
		Logger:    log,
	}, nil
}

// Close stops the cache and flushes the event stream.
func (c *Core) Close() error {
	c.Cache.Close()
	return c.Publisher.Close()
}

func newPublisher(o Options, log *slog.Logger) (eventstream.Publisher, error) {
	switch strings.ToLower(strings.TrimSpace(o.EventProvider)) {
	case "", ProviderNop:
		return nop.NewPublisher(), nil
	case ProviderKafka:
		publisher, err := kafka.NewPublisher(kafka.Config{
			Brokers: o.KafkaBrokers,
			Topic:   o.KafkaTopic,
			Logger:  log,
		})
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		pool, err := worker.NewPool(worker.Config{Publisher: publisher, Logger: log})
		if err != nil {
			_ = publisher.Close()
			return nil, fmt.Errorf("creating event pool: %w", err)
		}
		log.Info("publishing memory events to kafka",
			"brokers", strings.Join(o.KafkaBrokers, ","),
			"topic", o.KafkaTopic,
		)
		return pool, nil
	default:
		return nil, errors.New("unknown event stream provider: " + o.EventProvider)
	}
}
