package delivery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/vlhsmylv/standlog-script/pkg/events"
	"github.com/vlhsmylv/standlog-script/pkg/identity"
	"github.com/vlhsmylv/standlog-script/pkg/log"
	"github.com/vlhsmylv/standlog-script/pkg/metrics"
	"github.com/vlhsmylv/standlog-script/pkg/types"
)

const (
	// DefaultFlushSize is the buffer length that triggers a flush
	DefaultFlushSize = 10
	// DefaultFlushInterval is the wall-clock flush cadence for non-empty buffers
	DefaultFlushInterval = 5 * time.Second

	sendTimeout = 10 * time.Second
)

// FlushReason labels what triggered a flush
type FlushReason string

const (
	ReasonSize     FlushReason = "size"
	ReasonInterval FlushReason = "interval"
	ReasonTeardown FlushReason = "teardown"
)

// Config configures a delivery queue
type Config struct {
	Transport Transport
	Identity  *identity.Store
	Metadata  types.SessionMetadata

	FlushSize     int           // 0 means DefaultFlushSize
	FlushInterval time.Duration // 0 means DefaultFlushInterval

	Broker *events.Broker // optional
}

// Queue buffers normalized events in arrival order and flushes them to the
// collector in batches. Delivery is at-most-once and best effort: a failed
// batch is dropped, never retried. The queue guarantees a session-creation
// call has completed at least once before any event batch transmits.
type Queue struct {
	transport Transport
	ids       *identity.Store
	meta      types.SessionMetadata
	broker    *events.Broker
	logger    zerolog.Logger

	flushSize     int
	flushInterval time.Duration

	mu  sync.Mutex
	buf []types.Event

	sessionMu    sync.Mutex
	sessionReady bool

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// NewQueue creates a delivery queue
func NewQueue(cfg Config) (*Queue, error) {
	if cfg.Transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if cfg.Identity == nil {
		return nil, fmt.Errorf("identity store is required")
	}

	q := &Queue{
		transport:     cfg.Transport,
		ids:           cfg.Identity,
		meta:          cfg.Metadata,
		broker:        cfg.Broker,
		logger:        log.WithComponent("delivery"),
		flushSize:     cfg.FlushSize,
		flushInterval: cfg.FlushInterval,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
	if q.flushSize <= 0 {
		q.flushSize = DefaultFlushSize
	}
	if q.flushInterval <= 0 {
		q.flushInterval = DefaultFlushInterval
	}
	return q, nil
}

// Start begins the interval flush loop
func (q *Queue) Start() {
	go q.run()
}

// Enqueue appends one event to the buffer, flushing when the buffer
// reaches the size threshold. The buffer is empty the moment Enqueue
// returns from a size-triggered flush; transmission continues in the
// background and events enqueued meanwhile accumulate in a fresh buffer.
func (q *Queue) Enqueue(ev types.Event) {
	q.mu.Lock()
	q.buf = append(q.buf, ev)
	var batch []types.Event
	if len(q.buf) >= q.flushSize {
		batch = q.buf
		q.buf = nil
	}
	q.mu.Unlock()

	if batch != nil {
		go q.transmit(batch, ReasonSize)
	}
}

// Len returns the current buffer length
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}

// Flush drains the buffer for the given reason. The send happens in the
// background; Flush never blocks on the network.
func (q *Queue) Flush(reason FlushReason) {
	q.mu.Lock()
	batch := q.buf
	q.buf = nil
	q.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	go q.transmit(batch, reason)
}

// Close stops the interval loop and issues a final teardown flush. The
// teardown send is fire-and-forget: Close does not wait for it, matching
// a page being torn down mid-request.
func (q *Queue) Close() {
	q.stopOnce.Do(func() {
		close(q.stopCh)
		<-q.doneCh
		q.Flush(ReasonTeardown)
	})
}

func (q *Queue) run() {
	defer close(q.doneCh)

	ticker := time.NewTicker(q.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			q.Flush(ReasonInterval)
		case <-q.stopCh:
			return
		}
	}
}

// transmit delivers one batch. Any failure drops the batch: no retry, no
// backoff, no dead-letter buffer.
func (q *Queue) transmit(batch []types.Event, reason FlushReason) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	if err := q.ensureSession(ctx); err != nil {
		q.drop(batch, reason, err)
		return
	}

	req := types.EventsRequest{
		SessionID: q.ids.CurrentSessionID(),
		Events:    batch,
	}
	resp, err := q.transport.SendEvents(ctx, req)
	if err != nil {
		q.drop(batch, reason, err)
		return
	}
	if !resp.Success {
		q.drop(batch, reason, fmt.Errorf("collector rejected batch"))
		return
	}

	metrics.BatchesFlushed.WithLabelValues(string(reason)).Inc()
	metrics.BatchSize.Observe(float64(len(batch)))
	if q.broker != nil {
		q.broker.Publish(&events.Notification{
			Type: events.NotifyBatchFlushed,
			Metadata: map[string]string{
				"reason": string(reason),
				"size":   fmt.Sprintf("%d", len(batch)),
			},
		})
	}
}

// ensureSession performs the session-creation call once. The collector is
// idempotent on anonymous id: if the session already exists it returns the
// canonical id, which is adopted either way.
func (q *Queue) ensureSession(ctx context.Context) error {
	q.sessionMu.Lock()
	defer q.sessionMu.Unlock()

	if q.sessionReady {
		return nil
	}

	resp, err := q.transport.CreateSession(ctx, types.SessionRequest{
		AnonymousID: q.ids.EnsureAnonymousID(),
		Metadata:    q.meta,
	})
	if err != nil {
		return fmt.Errorf("session creation failed: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("collector refused session")
	}

	q.ids.AdoptServerSessionID(resp.ID)
	q.sessionReady = true
	metrics.SessionsCreated.Inc()
	if q.broker != nil {
		q.broker.Publish(&events.Notification{
			Type:     events.NotifySessionCreated,
			Metadata: map[string]string{"session_id": resp.ID},
		})
	}
	return nil
}

func (q *Queue) drop(batch []types.Event, reason FlushReason, err error) {
	metrics.BatchesDropped.Inc()
	q.logger.Debug().Err(err).
		Int("batch_size", len(batch)).
		Str("reason", string(reason)).
		Msg("batch dropped")
	if q.broker != nil {
		q.broker.Publish(&events.Notification{
			Type: events.NotifyBatchDropped,
			Metadata: map[string]string{
				"reason": string(reason),
				"size":   fmt.Sprintf("%d", len(batch)),
			},
		})
	}
}
