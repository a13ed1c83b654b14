package funnel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vlhsmylv/standlog-script/pkg/types"
)

func checkoutFunnel(opts types.FunnelOptions) types.Funnel {
	return types.Funnel{
		ID:   "checkout",
		Name: "Checkout",
		Steps: []types.FunnelStep{
			{ID: "landing", URLPattern: "/products"},
			{ID: "cart", URLPattern: "/cart"},
			{ID: "purchase", EventName: "purchase"},
		},
		Opts: opts,
	}
}

func pageAt(sessionID, url string, ts int64) types.Event {
	return types.Event{
		Type: types.EventPageview,
		Metadata: types.EventMetadata{
			Timestamp: ts,
			SessionID: sessionID,
			UserID:    "visitor_1",
			URL:       url,
		},
		Data: types.PageviewPayload{URL: url},
	}
}

func customAt(sessionID, name string, ts int64) types.Event {
	return types.Event{
		Type: types.EventCustom,
		Metadata: types.EventMetadata{
			Timestamp: ts,
			SessionID: sessionID,
			UserID:    "visitor_1",
		},
		Data: types.CustomPayload{Name: name},
	}
}

func TestEngine_InOrderCompletion(t *testing.T) {
	e := NewEngine([]types.Funnel{checkoutFunnel(types.FunnelOptions{})}, nil)

	e.Process(pageAt("s1", "/products", 1000))
	e.Process(pageAt("s1", "/cart", 2000))
	e.Process(customAt("s1", "purchase", 3000))

	st, ok := e.SessionState("checkout", "s1")
	require.True(t, ok)
	assert.Equal(t, types.FunnelCompleted, st.Status)
	assert.Equal(t, 2, st.CurrentStep)
	assert.Len(t, st.Completions, 3)

	assert.True(t, e.SessionCompleted("s1"))
	assert.False(t, e.SessionCompleted("s2"))
}

func TestEngine_SkipAheadIsIgnored(t *testing.T) {
	e := NewEngine([]types.Funnel{checkoutFunnel(types.FunnelOptions{})}, nil)

	// Purchase before entering the funnel: no credit.
	e.Process(customAt("s1", "purchase", 1000))
	_, ok := e.SessionState("checkout", "s1")
	require.True(t, ok)

	st, _ := e.SessionState("checkout", "s1")
	assert.Equal(t, -1, st.CurrentStep)
	assert.Empty(t, st.Completions)

	// Cart without landing: still no credit.
	e.Process(pageAt("s1", "/cart", 2000))
	st, _ = e.SessionState("checkout", "s1")
	assert.Equal(t, -1, st.CurrentStep)
}

func TestEngine_BacktrackDisallowedByDefault(t *testing.T) {
	e := NewEngine([]types.Funnel{checkoutFunnel(types.FunnelOptions{})}, nil)

	e.Process(pageAt("s1", "/products", 1000))
	e.Process(pageAt("s1", "/cart", 2000))
	e.Process(pageAt("s1", "/products", 3000))

	st, _ := e.SessionState("checkout", "s1")
	assert.Equal(t, 1, st.CurrentStep, "revisiting an earlier step must not regress")
}

func TestEngine_BacktrackRegressesAndReAdvances(t *testing.T) {
	e := NewEngine([]types.Funnel{checkoutFunnel(types.FunnelOptions{AllowBacktrack: true})}, nil)

	e.Process(pageAt("s1", "/products", 1000))
	e.Process(pageAt("s1", "/cart", 2000))
	e.Process(pageAt("s1", "/products", 3000))

	st, _ := e.SessionState("checkout", "s1")
	assert.Equal(t, 0, st.CurrentStep)
	assert.Len(t, st.Completions, 2, "backtrack must not erase completion records")

	// Re-advancing re-earns the reached count.
	e.Process(pageAt("s1", "/cart", 4000))
	stats, ok := e.Stats("checkout")
	require.True(t, ok)
	assert.EqualValues(t, 2, stats.Steps[1].Reached)
	assert.EqualValues(t, 1, stats.Entered, "entered counts a session once")
}

func TestEngine_WindowExpiry(t *testing.T) {
	window := types.Duration(10 * time.Minute)
	e := NewEngine([]types.Funnel{checkoutFunnel(types.FunnelOptions{Window: window})}, nil)

	start := int64(1_000_000)
	e.Process(pageAt("s1", "/products", start))
	e.Process(pageAt("s1", "/cart", start+5*60*1000))
	// Past the window, measured from the first completed step.
	e.Process(customAt("s1", "purchase", start+11*60*1000))

	st, _ := e.SessionState("checkout", "s1")
	assert.Equal(t, types.FunnelActive, st.Status)
	assert.Equal(t, 1, st.CurrentStep)
}

func TestEngine_StatsShape(t *testing.T) {
	e := NewEngine([]types.Funnel{checkoutFunnel(types.FunnelOptions{})}, nil)

	// Three sessions enter, two reach the cart, one purchases.
	for _, s := range []string{"s1", "s2", "s3"} {
		e.Process(pageAt(s, "/products", 1000))
	}
	e.Process(pageAt("s1", "/cart", 2000))
	e.Process(pageAt("s2", "/cart", 4000))
	e.Process(customAt("s1", "purchase", 5000))

	stats, ok := e.Stats("checkout")
	require.True(t, ok)

	assert.EqualValues(t, 3, stats.Entered)
	assert.EqualValues(t, 1, stats.Completions)
	assert.InDelta(t, 1.0/3.0, stats.CompletionRate, 1e-9)

	require.Len(t, stats.Steps, 3)
	assert.EqualValues(t, 3, stats.Steps[0].Reached)
	assert.EqualValues(t, 2, stats.Steps[1].Reached)
	assert.EqualValues(t, 1, stats.Steps[2].Reached)

	assert.InDelta(t, 1.0, stats.Steps[0].Conversion, 1e-9)
	assert.InDelta(t, 2.0/3.0, stats.Steps[1].Conversion, 1e-9)
	assert.InDelta(t, 0.5, stats.Steps[2].Conversion, 1e-9)

	assert.EqualValues(t, 1, stats.Steps[0].DropoffN)
	assert.InDelta(t, 1.0/3.0, stats.Steps[0].DropoffRate, 1e-9)
}

func TestEngine_TransitionTimings(t *testing.T) {
	e := NewEngine([]types.Funnel{checkoutFunnel(types.FunnelOptions{})}, nil)

	e.Process(pageAt("s1", "/products", 1000))
	e.Process(pageAt("s1", "/cart", 3000)) // 2000ms
	e.Process(pageAt("s2", "/products", 1000))
	e.Process(pageAt("s2", "/cart", 7000)) // 6000ms

	stats, _ := e.Stats("checkout")
	require.Len(t, stats.Timings, 1)

	timing := stats.Timings[0]
	assert.Equal(t, 0, timing.FromStep)
	assert.Equal(t, 1, timing.ToStep)
	assert.EqualValues(t, 2, timing.Count)
	assert.EqualValues(t, 2000, timing.MinMs)
	assert.EqualValues(t, 6000, timing.MaxMs)
	assert.EqualValues(t, 4000, timing.MedianMs)
	assert.InDelta(t, 4000, timing.AvgMs, 1e-9)
}

func TestEngine_SessionsAreIndependent(t *testing.T) {
	e := NewEngine([]types.Funnel{checkoutFunnel(types.FunnelOptions{})}, nil)

	e.Process(pageAt("s1", "/products", 1000))
	e.Process(pageAt("s2", "/cart", 2000))

	s1, _ := e.SessionState("checkout", "s1")
	assert.Equal(t, 0, s1.CurrentStep)

	s2, ok := e.SessionState("checkout", "s2")
	require.True(t, ok)
	assert.Equal(t, -1, s2.CurrentStep, "another session's progress must not leak")
}

func TestEngine_UserCompletedSurvivesSessionRotation(t *testing.T) {
	e := NewEngine([]types.Funnel{checkoutFunnel(types.FunnelOptions{})}, nil)

	asUser := func(ev types.Event, userID string) types.Event {
		ev.Metadata.UserID = userID
		return ev
	}

	e.Process(asUser(pageAt("s1", "/products", 1000), "visitor_a"))
	e.Process(asUser(pageAt("s1", "/cart", 2000), "visitor_a"))
	e.Process(asUser(customAt("s1", "purchase", 3000), "visitor_a"))

	// Another visitor only partway through, under a fresh session.
	e.Process(asUser(pageAt("s2", "/products", 4000), "visitor_b"))

	assert.True(t, e.UserCompleted("visitor_a"))
	assert.False(t, e.UserCompleted("visitor_b"), "reaching step 0 is not completion")
	assert.False(t, e.UserCompleted("visitor_c"))

	// Completion is keyed by the user, not the session that carried it.
	assert.False(t, e.SessionCompleted("s2"))
}

func TestEngine_EventsWithoutSessionIgnored(t *testing.T) {
	e := NewEngine([]types.Funnel{checkoutFunnel(types.FunnelOptions{})}, nil)

	ev := pageAt("", "/products", 1000)
	e.Process(ev)

	_, ok := e.SessionState("checkout", "")
	assert.False(t, ok)
}

func TestEngine_ReplayDeterminism(t *testing.T) {
	stream := []types.Event{
		pageAt("s1", "/products", 1000),
		pageAt("s2", "/products", 1500),
		pageAt("s1", "/cart", 2000),
		customAt("s1", "purchase", 3000),
		pageAt("s2", "/cart", 3500),
	}

	run := func() types.FunnelStats {
		e := NewEngine([]types.Funnel{checkoutFunnel(types.FunnelOptions{})}, nil)
		for _, ev := range stream {
			e.Process(ev)
		}
		stats, _ := e.Stats("checkout")
		return stats
	}

	assert.Equal(t, run(), run(), "identical streams must yield identical aggregates")
}
