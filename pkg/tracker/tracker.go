package tracker

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vlhsmylv/standlog-script/pkg/capture"
	"github.com/vlhsmylv/standlog-script/pkg/config"
	"github.com/vlhsmylv/standlog-script/pkg/delivery"
	"github.com/vlhsmylv/standlog-script/pkg/events"
	"github.com/vlhsmylv/standlog-script/pkg/funnel"
	"github.com/vlhsmylv/standlog-script/pkg/identity"
	"github.com/vlhsmylv/standlog-script/pkg/log"
	"github.com/vlhsmylv/standlog-script/pkg/persona"
	"github.com/vlhsmylv/standlog-script/pkg/signal"
	"github.com/vlhsmylv/standlog-script/pkg/types"
)

// Tracker is the explicit context object holding every engine. There is no
// global instance: construct one per hosting context and thread it where
// needed.
type Tracker struct {
	cfg config.Config

	ids       *identity.Store
	collector *capture.Collector
	queue     *delivery.Queue
	funnels   *funnel.Engine  // nil when the feature is off
	personas  *persona.Engine // nil when the feature is off
	broker    *events.Broker

	sources []signal.Source
	sigCh   chan signal.Signal
	stopCh  chan struct{}
	doneCh  chan struct{}

	closeOnce sync.Once
	logger    zerolog.Logger
}

// Option overrides a default dependency, mainly for tests
type Option func(*deps)

type deps struct {
	transport delivery.Transport
	durable   identity.DurableScope
}

// WithTransport substitutes the collector transport
func WithTransport(t delivery.Transport) Option {
	return func(d *deps) { d.transport = t }
}

// WithDurableScope substitutes the durable identity scope
func WithDurableScope(s identity.DurableScope) Option {
	return func(d *deps) { d.durable = s }
}

// New validates the configuration and builds the engines it enables. A
// configuration error aborts initialization: nothing is attached, no
// network calls happen, and the caller holds no tracker.
func New(cfg config.Config, opts ...Option) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var d deps
	for _, opt := range opts {
		opt(&d)
	}

	logger := log.WithComponent("tracker")

	if d.durable == nil {
		if cfg.DataDir != "" {
			scope, err := identity.OpenBolt(cfg.DataDir)
			if err != nil {
				// Identity storage loss is never fatal: fall back to the
				// in-memory scope and carry on as a new visitor.
				logger.Debug().Err(err).Msg("durable scope unavailable, using memory scope")
				d.durable = identity.NewMemoryScope()
			} else {
				d.durable = scope
			}
		} else {
			d.durable = identity.NewMemoryScope()
		}
	}
	if d.transport == nil {
		d.transport = delivery.NewHTTPTransport(cfg.Collector, 0)
	}

	broker := events.NewBroker()
	broker.Start()

	ids := identity.NewStore(d.durable)

	queue, err := delivery.NewQueue(delivery.Config{
		Transport:     d.transport,
		Identity:      ids,
		Metadata:      cfg.Metadata,
		FlushSize:     cfg.Flush.Size,
		FlushInterval: cfg.Flush.Interval.D(),
		Broker:        broker,
	})
	if err != nil {
		broker.Stop()
		return nil, err
	}

	t := &Tracker{
		cfg:       cfg,
		ids:       ids,
		collector: capture.NewCollector(ids),
		queue:     queue,
		broker:    broker,
		sigCh:     make(chan signal.Signal, 256),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
		logger:    logger,
	}

	if cfg.Features.Funnels {
		t.funnels = funnel.NewEngine(cfg.Funnels, broker)
	}
	if cfg.Features.Personas {
		t.personas = persona.NewEngine(cfg.EffectivePersonas(), broker)
		t.personas.SetSessionContext(cfg.Metadata)
		if t.funnels != nil {
			// Cross-engine reference by id only: the funnel engine keys
			// completions by the user id stamped on the completing event.
			t.personas.SetCompletionLookup(t.funnels.UserCompleted)
		}
	}

	queue.Start()
	go t.run()

	logger.Info().
		Bool("funnels", t.funnels != nil).
		Bool("personas", t.personas != nil).
		Msg("tracker initialized")
	return t, nil
}

// Attach registers a signal source and starts it. Signals from every
// attached source are processed in arrival order.
func (t *Tracker) Attach(src signal.Source) error {
	src.OnSignal(t.Ingest)
	if err := src.Start(); err != nil {
		return fmt.Errorf("failed to start source: %w", err)
	}
	t.sources = append(t.sources, src)
	return nil
}

// Ingest queues one raw signal. Safe to call from any goroutine; after
// Close it is a no-op.
func (t *Tracker) Ingest(sig signal.Signal) {
	select {
	case t.sigCh <- sig:
	case <-t.stopCh:
	}
}

func (t *Tracker) run() {
	defer close(t.doneCh)
	for {
		select {
		case sig := <-t.sigCh:
			t.Process(sig)
		case <-t.stopCh:
			// Drain whatever arrived before the stop.
			for {
				select {
				case sig := <-t.sigCh:
					t.Process(sig)
				default:
					return
				}
			}
		}
	}
}

// Process runs one signal through the full pipeline synchronously: capture,
// then fan-out to delivery, funnel matching and persona classification.
// The three consumers are independent; none blocks another, and the only
// asynchronous work is the network send. Process never panics into the
// host.
func (t *Tracker) Process(sig signal.Signal) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error().Interface("panic", r).Msg("recovered processing signal")
		}
	}()

	ev, ok := t.collector.Capture(sig)
	if !ok {
		return
	}

	t.queue.Enqueue(ev)
	if t.funnels != nil {
		t.funnels.Process(ev)
	}
	if t.personas != nil {
		t.personas.Ingest(ev.Metadata.UserID, ev)
	}

	t.broker.Publish(&events.Notification{
		Type: events.NotifyEventCaptured,
		Metadata: map[string]string{
			"type":       string(ev.Type),
			"session_id": ev.Metadata.SessionID,
		},
	})
}

// Identity returns the current identifier triple
func (t *Tracker) Identity() types.Identity {
	return t.ids.Identity()
}

// Broker exposes the lifecycle notification broker for view layers
func (t *Tracker) Broker() *events.Broker {
	return t.broker
}

// Funnels returns the funnel engine, or nil when the feature is disabled
func (t *Tracker) Funnels() *funnel.Engine {
	return t.funnels
}

// Personas returns the persona engine, or nil when the feature is disabled
func (t *Tracker) Personas() *persona.Engine {
	return t.personas
}

// Counters returns the capture-side counters for one session
func (t *Tracker) Counters(sessionID string) (capture.SessionCounters, bool) {
	return t.collector.Counters(sessionID)
}

// Close tears the tracker down: sources stop, queued signals drain, and a
// final fire-and-forget flush goes out. In-flight sends are not awaited;
// the hosting context may disappear before they complete.
func (t *Tracker) Close(ctx context.Context) error {
	t.closeOnce.Do(func() {
		for _, src := range t.sources {
			src.Stop()
		}

		close(t.stopCh)
		select {
		case <-t.doneCh:
		case <-ctx.Done():
		}

		t.queue.Close()
		t.broker.Publish(&events.Notification{Type: events.NotifyTrackerClosed})
		t.broker.Stop()

		if err := t.ids.Close(); err != nil {
			t.logger.Debug().Err(err).Msg("identity close failed")
		}
	})
	return nil
}
