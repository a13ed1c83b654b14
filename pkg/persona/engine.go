package persona

import (
	"sort"
	"sync"
	"time"

	"github.com/vlhsmylv/standlog-script/pkg/events"
	"github.com/vlhsmylv/standlog-script/pkg/metrics"
	"github.com/vlhsmylv/standlog-script/pkg/types"
)

// InactivityGap closes a profile session: when the gap between consecutive
// events exceeds it, the session is archived and the next event opens a
// new one.
const InactivityGap = 30 * time.Minute

// activeWindow bounds the segment-level active-user aggregate
const activeWindow = 24 * time.Hour

// CompletionLookup reports whether the given user has completed any funnel.
// It crosses the engine boundary by user id only; the persona engine never
// holds references into the funnel engine's state.
type CompletionLookup func(userID string) bool

// Engine maintains per-user metric profiles from the event stream and
// evaluates declarative rule sets to assign and revoke segment membership.
// Membership is re-evaluated after every event: reassignment is continuous
// and may flap, favoring freshness over stability.
type Engine struct {
	mu       sync.Mutex
	personas []types.Persona
	profiles map[string]*types.UserProfile
	segments map[string]map[string]struct{} // persona id -> member user ids

	meta       types.SessionMetadata
	completion CompletionLookup
	broker     *events.Broker

	lastSeen time.Time // max event time observed, drives the recency window
}

// NewEngine creates a persona engine over the given definitions. The broker
// may be nil.
func NewEngine(personas []types.Persona, broker *events.Broker) *Engine {
	e := &Engine{
		personas: make([]types.Persona, len(personas)),
		profiles: make(map[string]*types.UserProfile),
		segments: make(map[string]map[string]struct{}),
		broker:   broker,
	}
	copy(e.personas, personas)
	for _, p := range e.personas {
		e.segments[p.ID] = make(map[string]struct{})
	}
	return e
}

// SetSessionContext supplies the environment metadata used to attribute
// device and browser to profile sessions
func (e *Engine) SetSessionContext(meta types.SessionMetadata) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.meta = meta
}

// SetCompletionLookup wires the funnel-completion metric
func (e *Engine) SetCompletionLookup(fn CompletionLookup) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.completion = fn
}

// Ingest updates the user's profile from one event, then re-evaluates every
// persona against the refreshed profile
func (e *Engine) Ingest(userID string, ev types.Event) {
	if userID == "" {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	p := e.ensureProfile(userID)
	t := time.UnixMilli(ev.Metadata.Timestamp)
	if t.After(e.lastSeen) {
		e.lastSeen = t
	}

	e.roll(p, t)
	e.apply(p, ev, t)
	e.evaluate(p, t)
}

func (e *Engine) ensureProfile(userID string) *types.UserProfile {
	p, ok := e.profiles[userID]
	if !ok {
		p = &types.UserProfile{
			UserID:   userID,
			Devices:  make(map[string]int),
			Browsers: make(map[string]int),
		}
		e.profiles[userID] = p
	}
	return p
}

// roll starts or rotates the profile's current session for an event at t
func (e *Engine) roll(p *types.UserProfile, t time.Time) {
	if p.Current != nil && t.Sub(p.Current.LastActivity) <= InactivityGap {
		return
	}

	if p.Current != nil {
		p.Sessions = append(p.Sessions, *p.Current)
		if e.broker != nil {
			e.broker.Publish(&events.Notification{
				Type:     events.NotifySessionRolled,
				Metadata: map[string]string{"user_id": p.UserID},
			})
		}
	}

	p.Current = &types.SessionRecord{
		StartedAt:    t,
		LastActivity: t,
		Device:       e.meta.Device,
		Browser:      e.meta.Browser,
	}
	p.SessionCount++
	if e.meta.Device != "" {
		p.Devices[e.meta.Device]++
	}
	if e.meta.Browser != "" {
		p.Browsers[e.meta.Browser]++
	}
}

func (e *Engine) apply(p *types.UserProfile, ev types.Event, t time.Time) {
	if t.After(p.Current.LastActivity) {
		p.Current.LastActivity = t
	}
	if t.After(p.LastActivity) {
		p.LastActivity = t
	}

	switch ev.Type {
	case types.EventPageview:
		p.PageViews++
		p.Current.PageViews++
	case types.EventClick:
		p.Clicks++
		p.Current.Clicks++
	case types.EventCustom:
		if custom, ok := ev.Data.(types.CustomPayload); ok && custom.Name == "conversion" {
			p.Conversions++
			p.Current.Conversions++
		}
	}
}

// evaluate re-runs every persona against the profile and applies membership
// changes. A persona matches when all of its rules hold.
func (e *Engine) evaluate(p *types.UserProfile, t time.Time) {
	completed := false
	if e.completion != nil {
		completed = e.completion(p.UserID)
	}

	for _, persona := range e.personas {
		matched, confidence := evalPersona(persona, p, completed)
		idx := membershipIndex(p, persona.ID)

		switch {
		case matched && idx < 0:
			p.Personas = append(p.Personas, types.Membership{
				PersonaID:  persona.ID,
				AssignedAt: t,
				Confidence: confidence,
			})
			e.segments[persona.ID][p.UserID] = struct{}{}
			metrics.PersonaAssignments.WithLabelValues(persona.ID, "assigned").Inc()
			e.publish(events.NotifyPersonaAssigned, persona.ID, p.UserID)

		case matched:
			p.Personas[idx].Confidence = confidence

		case idx >= 0:
			p.Personas = append(p.Personas[:idx], p.Personas[idx+1:]...)
			delete(e.segments[persona.ID], p.UserID)
			metrics.PersonaAssignments.WithLabelValues(persona.ID, "revoked").Inc()
			e.publish(events.NotifyPersonaRevoked, persona.ID, p.UserID)
		}
	}
}

func (e *Engine) publish(t events.NotificationType, personaID, userID string) {
	if e.broker == nil {
		return
	}
	e.broker.Publish(&events.Notification{
		Type: t,
		Metadata: map[string]string{
			"persona_id": personaID,
			"user_id":    userID,
		},
	})
}

func membershipIndex(p *types.UserProfile, personaID string) int {
	for i, m := range p.Personas {
		if m.PersonaID == personaID {
			return i
		}
	}
	return -1
}

// Profile returns a snapshot copy of one user's profile
func (e *Engine) Profile(userID string) (types.UserProfile, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.profiles[userID]
	if !ok {
		return types.UserProfile{}, false
	}
	return copyProfile(p), true
}

// Segment returns a read-only aggregate snapshot for one persona: current
// members, active users within the 24-hour recency window, average session
// duration, and conversion rate.
func (e *Engine) Segment(personaID string) (types.SegmentStats, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	members, ok := e.segments[personaID]
	if !ok {
		return types.SegmentStats{}, false
	}
	return e.segmentStats(personaID, members), true
}

// Segments returns aggregate snapshots for every persona, ordered by id
func (e *Engine) Segments() []types.SegmentStats {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]types.SegmentStats, 0, len(e.segments))
	for id, members := range e.segments {
		out = append(out, e.segmentStats(id, members))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PersonaID < out[j].PersonaID })
	return out
}

// Personas returns a copy of the definitions
func (e *Engine) Personas() []types.Persona {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]types.Persona, len(e.personas))
	copy(out, e.personas)
	return out
}

func (e *Engine) segmentStats(personaID string, members map[string]struct{}) types.SegmentStats {
	out := types.SegmentStats{PersonaID: personaID, Members: make([]string, 0, len(members))}

	var durSum float64
	var durN, converted int
	for uid := range members {
		out.Members = append(out.Members, uid)
		p := e.profiles[uid]
		if p == nil {
			continue
		}
		if e.lastSeen.Sub(p.LastActivity) <= activeWindow {
			out.ActiveUsers++
		}
		if p.Conversions > 0 {
			converted++
		}
		if d := avgSessionDurationMs(p); d > 0 {
			durSum += d
			durN++
		}
	}
	sort.Strings(out.Members)

	if durN > 0 {
		out.AvgSessionDuration = durSum / float64(durN)
	}
	if len(members) > 0 {
		out.ConversionRate = float64(converted) / float64(len(members))
	}
	return out
}

func copyProfile(p *types.UserProfile) types.UserProfile {
	out := *p
	out.Devices = make(map[string]int, len(p.Devices))
	for k, v := range p.Devices {
		out.Devices[k] = v
	}
	out.Browsers = make(map[string]int, len(p.Browsers))
	for k, v := range p.Browsers {
		out.Browsers[k] = v
	}
	out.Sessions = append([]types.SessionRecord(nil), p.Sessions...)
	out.Personas = append([]types.Membership(nil), p.Personas...)
	if p.Current != nil {
		cur := *p.Current
		out.Current = &cur
	}
	return out
}
