/*
Package events provides an in-memory broker for tracker lifecycle
notifications.

The engines (capture, delivery, funnel, persona) publish announcements as
they work; view layers such as dashboards, exporters and integrations
subscribe to react without ever touching engine state. Payloads are flat
string metadata only; anything richer comes from the engines' snapshot
accessors.

Distribution is non-blocking fan-out over buffered channels: a slow
subscriber skips notifications rather than stalling the tracking path, and
delivery is best effort with no acknowledgment. This mirrors the delivery
policy of the whole core: freshness over guarantees.

# Notification Types

Capture and delivery:
  - event.captured: one event normalized and fanned out
  - session.created: collector acknowledged the session, canonical id adopted
  - batch.flushed: a batch transmitted (metadata: reason, size)
  - batch.dropped: a batch discarded after transport failure

Engines:
  - funnel.step, funnel.completed
  - persona.assigned, persona.revoked
  - session.rolled: a profile's session closed after the inactivity gap

Lifecycle:
  - tracker.closed: teardown flush issued

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	go func() {
		for n := range sub {
			if n.Type == events.NotifyFunnelCompleted {
				refreshDashboard(n.Metadata["funnel_id"])
			}
		}
	}()
*/
package events
