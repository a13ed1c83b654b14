package events

import (
	"sync"
	"time"
)

// NotificationType represents the type of tracker lifecycle notification
type NotificationType string

const (
	NotifyEventCaptured    NotificationType = "event.captured"
	NotifySessionCreated   NotificationType = "session.created"
	NotifyBatchFlushed     NotificationType = "batch.flushed"
	NotifyBatchDropped     NotificationType = "batch.dropped"
	NotifyFunnelStep       NotificationType = "funnel.step"
	NotifyFunnelCompleted  NotificationType = "funnel.completed"
	NotifyPersonaAssigned  NotificationType = "persona.assigned"
	NotifyPersonaRevoked   NotificationType = "persona.revoked"
	NotifySessionRolled    NotificationType = "session.rolled"
	NotifyTrackerClosed    NotificationType = "tracker.closed"
)

// Notification is one tracker lifecycle announcement. Payloads are flat
// string metadata; consumers needing engine state ask the engines for
// snapshots instead of reaching into them.
type Notification struct {
	Type      NotificationType
	Timestamp time.Time
	Message   string
	Metadata  map[string]string
}

// Subscriber is a channel that receives notifications
type Subscriber chan *Notification

// Broker manages notification subscriptions and distribution. View layers
// (dashboards, exporters, integrations) subscribe here; the engines only
// publish.
type Broker struct {
	subscribers map[Subscriber]bool
	mu          sync.RWMutex
	notifyCh    chan *Notification
	stopCh      chan struct{}
}

// NewBroker creates a new notification broker
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		notifyCh:    make(chan *Notification, 100),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's distribution loop
func (b *Broker) Start() {
	go b.run()
}

// Stop stops the broker
func (b *Broker) Stop() {
	close(b.stopCh)
}

// Subscribe creates a new subscription and returns a channel
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 50)
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes a subscription
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subscribers, sub)
	close(sub)
}

// Publish publishes a notification to all subscribers. It never blocks the
// tracking path: when the broker is stopped the notification is discarded.
func (b *Broker) Publish(n *Notification) {
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	select {
	case b.notifyCh <- n:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	for {
		select {
		case n := <-b.notifyCh:
			b.broadcast(n)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(n *Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- n:
		default:
			// Subscriber buffer full, skip
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
