package tracker

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vlhsmylv/standlog-script/pkg/collector"
	"github.com/vlhsmylv/standlog-script/pkg/config"
	"github.com/vlhsmylv/standlog-script/pkg/identity"
	"github.com/vlhsmylv/standlog-script/pkg/signal"
	"github.com/vlhsmylv/standlog-script/pkg/types"
)

// captureTransport records everything the queue sends
type captureTransport struct {
	mu       sync.Mutex
	sessions int
	events   []types.Event
}

func (c *captureTransport) CreateSession(_ context.Context, req types.SessionRequest) (*types.SessionResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions++
	return &types.SessionResponse{AnonymousID: req.AnonymousID, Success: true}, nil
}

func (c *captureTransport) SendEvents(_ context.Context, req types.EventsRequest) (*types.EventsResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, req.Events...)
	return &types.EventsResponse{Success: true, EventsProcessed: len(req.Events), SessionID: req.SessionID}, nil
}

func (c *captureTransport) eventCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Collector = "http://localhost:9"
	cfg.Flush.Size = 3
	cfg.Funnels = []types.Funnel{{
		ID:   "checkout",
		Name: "Checkout",
		Steps: []types.FunnelStep{
			{ID: "landing", URLPattern: "/products"},
			{ID: "cart", URLPattern: "/cart"},
			{ID: "purchase", EventName: "purchase"},
		},
	}}
	return cfg
}

func pageSignal(url string, ts int64) signal.Signal {
	return signal.Signal{Kind: signal.KindPageLoad, At: ts, Page: signal.PageInfo{URL: url}}
}

func customSignal(name string, ts int64) signal.Signal {
	return signal.Signal{Kind: signal.KindCustom, At: ts, Page: signal.PageInfo{}, Custom: &signal.CustomInfo{Name: name}}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := config.Default() // no collector endpoint
	trk, err := New(cfg)
	assert.Error(t, err)
	assert.Nil(t, trk)
}

func TestTracker_PipelineFanOut(t *testing.T) {
	transport := &captureTransport{}
	trk, err := New(testConfig(),
		WithTransport(transport),
		WithDurableScope(identity.NewMemoryScope()),
	)
	require.NoError(t, err)
	defer trk.Close(context.Background())

	base := int64(1_000_000)
	trk.Process(pageSignal("/products", base))
	trk.Process(pageSignal("/cart", base+1000))
	trk.Process(customSignal("purchase", base+2000))

	ident := trk.Identity()

	// Funnel engine saw the same stream.
	require.NotNil(t, trk.Funnels())
	st, ok := trk.Funnels().SessionState("checkout", ident.SessionID)
	require.True(t, ok)
	assert.Equal(t, types.FunnelCompleted, st.Status)

	// Persona engine built a profile for the visitor.
	require.NotNil(t, trk.Personas())
	profile, ok := trk.Personas().Profile(ident.VisitorID)
	require.True(t, ok)
	assert.EqualValues(t, 2, profile.PageViews)

	// Capture counters tracked the session.
	counters, ok := trk.Counters(ident.SessionID)
	require.True(t, ok)
	assert.EqualValues(t, 2, counters.PageViews)
	assert.EqualValues(t, 1, counters.CustomEvents)

	// Flush size 3 was hit: the batch went out through the transport.
	require.Eventually(t, func() bool { return transport.eventCount() == 3 }, time.Second, 5*time.Millisecond)
}

func TestTracker_FeatureTogglesDisableEngines(t *testing.T) {
	cfg := testConfig()
	cfg.Features.Funnels = false
	cfg.Features.Personas = false

	trk, err := New(cfg,
		WithTransport(&captureTransport{}),
		WithDurableScope(identity.NewMemoryScope()),
	)
	require.NoError(t, err)
	defer trk.Close(context.Background())

	assert.Nil(t, trk.Funnels())
	assert.Nil(t, trk.Personas())

	// Capture and delivery still work.
	trk.Process(pageSignal("/", 1000))
	_, ok := trk.Counters(trk.Identity().SessionID)
	assert.True(t, ok)
}

func TestTracker_AttachDeliversSourceSignals(t *testing.T) {
	transport := &captureTransport{}
	cfg := testConfig()
	cfg.Flush.Size = 2

	trk, err := New(cfg,
		WithTransport(transport),
		WithDurableScope(identity.NewMemoryScope()),
	)
	require.NoError(t, err)

	src := signal.NewChanSource(8)
	require.NoError(t, trk.Attach(src))

	src.Emit(pageSignal("/products", 1000))
	src.Emit(pageSignal("/cart", 2000))

	require.Eventually(t, func() bool { return transport.eventCount() == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, trk.Close(context.Background()))

	// Ingest after close is a no-op, not a panic.
	trk.Ingest(pageSignal("/late", 3000))
	// Close is idempotent.
	require.NoError(t, trk.Close(context.Background()))
}

func TestTracker_CloseFlushesRemainder(t *testing.T) {
	transport := &captureTransport{}
	cfg := testConfig()
	cfg.Flush.Size = 100

	trk, err := New(cfg,
		WithTransport(transport),
		WithDurableScope(identity.NewMemoryScope()),
	)
	require.NoError(t, err)

	trk.Process(pageSignal("/one", 1000))
	trk.Process(pageSignal("/two", 2000))
	require.NoError(t, trk.Close(context.Background()))

	// Teardown flush is fire-and-forget; the send lands shortly after.
	require.Eventually(t, func() bool { return transport.eventCount() == 2 }, time.Second, 5*time.Millisecond)
}

func TestTracker_EndToEndAgainstDevCollector(t *testing.T) {
	srv := collector.NewServer()
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	cfg := testConfig()
	cfg.Collector = ts.URL
	cfg.Flush.Size = 2

	trk, err := New(cfg, WithDurableScope(identity.NewMemoryScope()))
	require.NoError(t, err)
	defer trk.Close(context.Background())

	trk.Process(pageSignal("/products", 1000))
	trk.Process(pageSignal("/cart", 2000))
	trk.Process(pageSignal("/help", 3000))
	trk.Process(pageSignal("/pricing", 4000))

	require.Eventually(t, func() bool { return srv.SessionCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	// The collector-assigned session id is adopted by the tracker.
	require.Eventually(t, func() bool {
		return srv.EventCount(trk.Identity().SessionID) == 4
	}, 2*time.Second, 10*time.Millisecond)
}
