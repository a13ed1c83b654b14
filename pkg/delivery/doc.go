/*
Package delivery batches events and relays them to the collector.

Events accumulate in arrival order in an in-memory buffer. Three triggers
flush it: the buffer reaching a fixed size (10), a fixed interval elapsing
with a non-empty buffer (5s), and teardown. A flush swaps the buffer out
synchronously, so events arriving during an in-flight send accumulate in a
fresh buffer, and a given batch's events are always cleared together.
Batches may complete out of order relative to each other; nothing depends
on batch-completion ordering.

Before any batch transmits, the queue guarantees a session-creation call
has completed at least once for the current identity. Session creation is
idempotent on the anonymous id; the collector's canonical session id is
adopted for everything that follows.

Delivery policy is at-most-once, best effort: a transport failure or a
non-success response drops the batch with a debug diagnostic. No retry, no
backoff, no dead-letter buffer. Telemetry loss is the accepted trade-off
against ever blocking the host. The teardown flush is fire-and-forget: it
does not wait for acknowledgment, because the hosting context may be gone
before one arrives.

# Usage

	q, err := delivery.NewQueue(delivery.Config{
		Transport: delivery.NewHTTPTransport("https://collect.example.com", 0),
		Identity:  ids,
		Metadata:  meta,
	})
	if err != nil {
		return err
	}
	q.Start()
	defer q.Close()

	q.Enqueue(ev)
*/
package delivery
