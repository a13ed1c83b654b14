package funnel

import (
	"sort"
	"strconv"
	"sync"

	"github.com/vlhsmylv/standlog-script/pkg/events"
	"github.com/vlhsmylv/standlog-script/pkg/metrics"
	"github.com/vlhsmylv/standlog-script/pkg/types"
)

// sessionState wraps the exported funnel state with bookkeeping the
// statistics need but consumers must not see
type sessionState struct {
	types.FunnelState
	entered bool // counted toward the funnel's entered total
}

// funnelStats is the mutable aggregate for one funnel across all sessions
type funnelStats struct {
	entered     int64 // distinct sessions that reached step 0
	completions int64
	reached     []int64
	durations   [][]int64 // durations[k]: elapsed ms for transitions into step k
}

// Engine maintains one ordered step-matching state machine per
// (funnel x session), derived from the event stream. Definitions are fixed
// at construction; states are created lazily on first matching event and
// never shared across sessions.
type Engine struct {
	mu       sync.Mutex
	funnels  []types.Funnel
	matchers [][]stepMatcher
	states   map[string]*sessionState
	stats    map[string]*funnelStats

	// completedUsers records user ids seen on funnel-completing events so
	// completion lookups survive session rotation.
	completedUsers map[string]struct{}

	broker *events.Broker // nil disables notifications
}

// NewEngine compiles the given funnel definitions into an engine. The
// broker may be nil.
func NewEngine(funnels []types.Funnel, broker *events.Broker) *Engine {
	e := &Engine{
		funnels:  make([]types.Funnel, len(funnels)),
		matchers: make([][]stepMatcher, len(funnels)),
		states:   make(map[string]*sessionState),
		stats:    make(map[string]*funnelStats),

		completedUsers: make(map[string]struct{}),

		broker: broker,
	}
	copy(e.funnels, funnels)

	for i, f := range e.funnels {
		ms := make([]stepMatcher, len(f.Steps))
		for j, step := range f.Steps {
			ms[j] = compileStep(step)
		}
		e.matchers[i] = ms
		e.stats[f.ID] = &funnelStats{
			reached:   make([]int64, len(f.Steps)),
			durations: make([][]int64, len(f.Steps)),
		}
	}
	return e
}

// Process tests one event against every step of every funnel and applies
// the strict in-order transition rules. Events with no session id are
// ignored.
func (e *Engine) Process(ev types.Event) {
	if ev.Metadata.SessionID == "" {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for i, f := range e.funnels {
		idx := e.firstMatch(i, ev)
		if idx < 0 {
			continue
		}
		e.transition(f, idx, ev)
	}
}

// firstMatch returns the lowest step index whose matcher accepts the event,
// or -1
func (e *Engine) firstMatch(funnelIdx int, ev types.Event) int {
	for j, m := range e.matchers[funnelIdx] {
		if m.matches(ev) {
			return j
		}
	}
	return -1
}

func (e *Engine) transition(f types.Funnel, idx int, ev types.Event) {
	st := e.ensureState(f, ev.Metadata.SessionID)
	if st.Status == types.FunnelCompleted {
		return
	}
	stats := e.stats[f.ID]

	next := st.CurrentStep + 1
	switch {
	case idx == next:
		// Window check: a bounded funnel stops accepting advances once the
		// elapsed time since the first completed step exceeds the window.
		if f.Opts.Window > 0 && len(st.Completions) > 0 {
			elapsed := ev.Metadata.Timestamp - st.Completions[0].Timestamp
			if elapsed > f.Opts.Window.D().Milliseconds() {
				return
			}
		}

		if len(st.Completions) > 0 {
			prev := st.Completions[len(st.Completions)-1]
			d := ev.Metadata.Timestamp - prev.Timestamp
			if d >= 0 {
				stats.durations[idx] = append(stats.durations[idx], d)
			}
		}

		st.CurrentStep = idx
		st.Completions = append(st.Completions, types.StepCompletion{
			StepIndex: idx,
			Timestamp: ev.Metadata.Timestamp,
		})
		stats.reached[idx]++
		metrics.FunnelSteps.WithLabelValues(f.ID).Inc()

		if idx == 0 && !st.entered {
			st.entered = true
			stats.entered++
		}

		if idx == len(f.Steps)-1 {
			st.Status = types.FunnelCompleted
			stats.completions++
			if ev.Metadata.UserID != "" {
				e.completedUsers[ev.Metadata.UserID] = struct{}{}
			}
			metrics.FunnelCompletions.WithLabelValues(f.ID).Inc()
			e.publish(events.NotifyFunnelCompleted, f, st, idx)
		} else {
			e.publish(events.NotifyFunnelStep, f, st, idx)
		}

	case idx <= st.CurrentStep && f.Opts.AllowBacktrack:
		// Regress without altering prior completion records. Re-advancing
		// later re-earns statistics increments.
		st.CurrentStep = idx

	default:
		// Skips ahead, or backtrack when disallowed: no state change.
	}
}

func (e *Engine) ensureState(f types.Funnel, sessionID string) *sessionState {
	key := f.ID + "\x00" + sessionID
	st, ok := e.states[key]
	if !ok {
		st = &sessionState{
			FunnelState: types.FunnelState{
				FunnelID:    f.ID,
				SessionID:   sessionID,
				CurrentStep: -1,
				Status:      types.FunnelActive,
			},
		}
		e.states[key] = st
	}
	return st
}

func (e *Engine) publish(t events.NotificationType, f types.Funnel, st *sessionState, idx int) {
	if e.broker == nil {
		return
	}
	e.broker.Publish(&events.Notification{
		Type: t,
		Metadata: map[string]string{
			"funnel_id":  f.ID,
			"session_id": st.SessionID,
			"step":       strconv.Itoa(idx),
		},
	})
}

// SessionState returns a snapshot of one session's position in one funnel
func (e *Engine) SessionState(funnelID, sessionID string) (types.FunnelState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.states[funnelID+"\x00"+sessionID]
	if !ok {
		return types.FunnelState{}, false
	}
	out := st.FunnelState
	out.Completions = append([]types.StepCompletion(nil), st.Completions...)
	return out, true
}

// SessionCompleted reports whether the session has completed any funnel
func (e *Engine) SessionCompleted(sessionID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, f := range e.funnels {
		if st, ok := e.states[f.ID+"\x00"+sessionID]; ok && st.Status == types.FunnelCompleted {
			return true
		}
	}
	return false
}

// UserCompleted reports whether the given user has ever completed a funnel,
// regardless of which session carried the completing event
func (e *Engine) UserCompleted(userID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, ok := e.completedUsers[userID]
	return ok
}

// Funnels returns a copy of the compiled definitions
func (e *Engine) Funnels() []types.Funnel {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]types.Funnel, len(e.funnels))
	copy(out, e.funnels)
	return out
}

// Stats returns a read-only aggregate snapshot for one funnel: per-step
// reached counts and conversions, drop-off shape, completion rate, and the
// timing distribution of every step transition.
func (e *Engine) Stats(funnelID string) (types.FunnelStats, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var def *types.Funnel
	for i := range e.funnels {
		if e.funnels[i].ID == funnelID {
			def = &e.funnels[i]
			break
		}
	}
	stats, ok := e.stats[funnelID]
	if def == nil || !ok {
		return types.FunnelStats{}, false
	}

	out := types.FunnelStats{
		FunnelID:    funnelID,
		Entered:     stats.entered,
		Completions: stats.completions,
	}
	if stats.entered > 0 {
		out.CompletionRate = float64(stats.completions) / float64(stats.entered)
	}

	out.Steps = make([]types.StepStats, len(def.Steps))
	for k := range def.Steps {
		ss := types.StepStats{
			StepID:  def.Steps[k].ID,
			Reached: stats.reached[k],
		}
		if k == 0 {
			if ss.Reached > 0 {
				ss.Conversion = 1
			}
		} else if stats.reached[k-1] > 0 {
			ss.Conversion = float64(stats.reached[k]) / float64(stats.reached[k-1])
		}
		if k < len(def.Steps)-1 {
			ss.DropoffN = stats.reached[k] - stats.reached[k+1]
			if stats.reached[k] > 0 {
				ss.DropoffRate = float64(ss.DropoffN) / float64(stats.reached[k])
			}
		}
		out.Steps[k] = ss
	}

	for k := 1; k < len(def.Steps); k++ {
		ds := stats.durations[k]
		if len(ds) == 0 {
			continue
		}
		out.Timings = append(out.Timings, summarize(k, ds))
	}
	return out, true
}

func summarize(toStep int, durations []int64) types.TransitionTiming {
	sorted := append([]int64(nil), durations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum int64
	for _, d := range sorted {
		sum += d
	}
	n := len(sorted)
	median := sorted[n/2]
	if n%2 == 0 {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	return types.TransitionTiming{
		FromStep: toStep - 1,
		ToStep:   toStep,
		Count:    int64(n),
		MinMs:    sorted[0],
		MedianMs: median,
		AvgMs:    float64(sum) / float64(n),
		MaxMs:    sorted[n-1],
	}
}
