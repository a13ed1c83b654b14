package types

import (
	"time"
)

// EventType identifies the kind of interaction an Event records
type EventType string

const (
	EventPageview         EventType = "pageview"
	EventClick            EventType = "click"
	EventScroll           EventType = "scroll"
	EventFormSubmit       EventType = "form_submit"
	EventCustom           EventType = "custom"
	EventVisibilityChange EventType = "visibility_change"
)

// Payload is the kind-specific body of an Event. Exactly one concrete
// payload type corresponds to each EventType.
type Payload interface {
	Kind() EventType
}

// Event is one normalized interaction record. Events are immutable once
// created; ordering is creation order and must survive batching.
type Event struct {
	Type     EventType     `json:"type"`
	Metadata EventMetadata `json:"metadata"`
	Data     Payload       `json:"data,omitempty"`
}

// EventMetadata carries the identity and timing shared by every event kind
type EventMetadata struct {
	Timestamp int64  `json:"timestamp"` // wall clock, milliseconds
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	URL       string `json:"url,omitempty"`
}

// PageviewPayload describes a page load
type PageviewPayload struct {
	URL      string `json:"url"`
	Title    string `json:"title,omitempty"`
	Referrer string `json:"referrer,omitempty"`
}

func (PageviewPayload) Kind() EventType { return EventPageview }

// ClickPayload describes a pointer click
type ClickPayload struct {
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Selector string `json:"selector"`
	Tag      string `json:"tag,omitempty"`
	Text     string `json:"text,omitempty"`
}

func (ClickPayload) Kind() EventType { return EventClick }

// ScrollPayload describes a scroll position sample
type ScrollPayload struct {
	Position int `json:"position"` // pixels from top
	Extent   int `json:"extent"`   // total scrollable height
	Depth    int `json:"depth"`    // percentage of extent reached, 0-100
}

func (ScrollPayload) Kind() EventType { return EventScroll }

// FormField is one captured form field. Secret-typed fields are redacted
// before the field ever reaches a consumer.
type FormField struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// FormSubmitPayload describes a form submission
type FormSubmitPayload struct {
	Selector string      `json:"selector"`
	Fields   []FormField `json:"fields"`
}

func (FormSubmitPayload) Kind() EventType { return EventFormSubmit }

// CustomPayload describes an application-defined event
type CustomPayload struct {
	Name       string         `json:"name"`
	Properties map[string]any `json:"properties,omitempty"`
}

func (CustomPayload) Kind() EventType { return EventCustom }

// VisibilityPayload describes a tab visibility change
type VisibilityPayload struct {
	Hidden bool `json:"hidden"`
}

func (VisibilityPayload) Kind() EventType { return EventVisibilityChange }

// Identity is the identifier triple attached to every event.
// AnonymousID is stable for the lifetime of the tab; SessionID is stable
// unless the collector reassigns it; VisitorID survives across sessions.
type Identity struct {
	VisitorID   string `json:"visitorId"`
	AnonymousID string `json:"anonymousId"`
	SessionID   string `json:"sessionId"`
}

// Dimensions is a width/height pair
type Dimensions struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// SessionMetadata describes the environment a session runs in, reported
// once at session creation
type SessionMetadata struct {
	Device       string     `json:"device" yaml:"device"` // "desktop", "mobile", "tablet"
	Browser      string     `json:"browser" yaml:"browser"`
	OS           string     `json:"os" yaml:"os"`
	Language     string     `json:"language" yaml:"language"`
	Timezone     string     `json:"timezone" yaml:"timezone"`
	Screen       Dimensions `json:"screen" yaml:"screen"`
	Viewport     Dimensions `json:"viewport" yaml:"viewport"`
	UserAgent    string     `json:"userAgent" yaml:"userAgent"`
	Referrer     string     `json:"referrer" yaml:"referrer"`
	InitialURL   string     `json:"initialUrl" yaml:"initialUrl"`
	InitialTitle string     `json:"initialTitle" yaml:"initialTitle"`
}

// SessionRequest is the body of POST /session
type SessionRequest struct {
	AnonymousID string          `json:"anonymousId"`
	Metadata    SessionMetadata `json:"metadata"`
}

// SessionResponse is the collector's answer to POST /session. ID is the
// canonical session id for all subsequent calls from that tab.
type SessionResponse struct {
	ID          string `json:"id"`
	AnonymousID string `json:"anonymousId"`
	Success     bool   `json:"success"`
}

// EventsRequest is the body of POST /events
type EventsRequest struct {
	SessionID string  `json:"sessionId"`
	Events    []Event `json:"events"`
}

// EventsResponse is the collector's answer to POST /events
type EventsResponse struct {
	Success         bool   `json:"success"`
	EventsProcessed int    `json:"eventsProcessed"`
	SessionID       string `json:"sessionId"`
}

// Funnel is an ordered multi-step conversion flow. Step order is fixed at
// definition time and defines the only valid forward progression.
type Funnel struct {
	ID    string        `json:"id" yaml:"id"`
	Name  string        `json:"name" yaml:"name"`
	Steps []FunnelStep  `json:"steps" yaml:"steps"`
	Opts  FunnelOptions `json:"options" yaml:"options"`
}

// FunnelStep matches events by its configured predicates. A step may
// configure none, one, or several; satisfying any configured predicate
// counts as a match.
type FunnelStep struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	URLPattern string `json:"urlPattern,omitempty" yaml:"urlPattern,omitempty"`
	EventName  string `json:"eventName,omitempty" yaml:"eventName,omitempty"`
	Selector   string `json:"selector,omitempty" yaml:"selector,omitempty"`
}

// FunnelOptions tunes per-funnel matching behavior
type FunnelOptions struct {
	// Window bounds how long a session's run through the funnel stays
	// valid, measured from the first completed step. Zero means unbounded.
	Window Duration `json:"window,omitempty" yaml:"window,omitempty"`
	// AllowBacktrack permits regressing to an earlier step
	AllowBacktrack bool `json:"allowBacktrack,omitempty" yaml:"allowBacktrack,omitempty"`
}

// FunnelStatus is the lifecycle state of one session's run through a funnel
type FunnelStatus string

const (
	FunnelActive    FunnelStatus = "active"
	FunnelCompleted FunnelStatus = "completed"
)

// StepCompletion records one step advance
type StepCompletion struct {
	StepIndex int   `json:"stepIndex"`
	Timestamp int64 `json:"timestamp"`
}

// FunnelState is one session's position in one funnel. CurrentStep is -1
// until the session enters the funnel. Never shared across sessions.
type FunnelState struct {
	FunnelID    string           `json:"funnelId"`
	SessionID   string           `json:"sessionId"`
	CurrentStep int              `json:"currentStep"`
	Completions []StepCompletion `json:"completions"`
	Status      FunnelStatus     `json:"status"`
}

// StepStats is the aggregate view of one funnel step across all sessions
type StepStats struct {
	StepID      string  `json:"stepId"`
	Reached     int64   `json:"reached"`
	Conversion  float64 `json:"conversion"`  // reached[k] / reached[k-1]
	DropoffN    int64   `json:"dropoff"`     // reached[k] - reached[k+1]
	DropoffRate float64 `json:"dropoffRate"` // dropoff / reached[k]
}

// TransitionTiming is the distribution of elapsed time between two adjacent
// step completions, across all sessions
type TransitionTiming struct {
	FromStep int     `json:"fromStep"`
	ToStep   int     `json:"toStep"`
	Count    int64   `json:"count"`
	MinMs    int64   `json:"minMs"`
	MedianMs int64   `json:"medianMs"`
	AvgMs    float64 `json:"avgMs"`
	MaxMs    int64   `json:"maxMs"`
}

// FunnelStats is a read-only snapshot of one funnel's aggregates
type FunnelStats struct {
	FunnelID       string             `json:"funnelId"`
	Entered        int64              `json:"entered"` // sessions that reached step 0
	Completions    int64              `json:"completions"`
	CompletionRate float64            `json:"completionRate"`
	Steps          []StepStats        `json:"steps"`
	Timings        []TransitionTiming `json:"timings"`
}

// Operator is the closed comparator set for persona rules
type Operator string

const (
	OpGreaterThan    Operator = "gt"
	OpLessThan       Operator = "lt"
	OpGreaterOrEqual Operator = "gte"
	OpLessOrEqual    Operator = "lte"
	OpEqual          Operator = "eq"
	OpNotEqual       Operator = "neq"
	OpBetween        Operator = "between"
	OpInSet          Operator = "in"
)

// Metric names a profile measurement a persona rule can read
type Metric string

const (
	MetricPageViews        Metric = "page_views"
	MetricSessionDuration  Metric = "session_duration" // milliseconds
	MetricClicks           Metric = "clicks"
	MetricConversions      Metric = "conversions"
	MetricSessionCount     Metric = "session_count"
	MetricDeviceType       Metric = "device_type"
	MetricMobileRatio      Metric = "mobile_session_ratio"
	MetricFunnelCompletion Metric = "funnel_completion"
)

// Timeframe scopes a rule to the current session or the whole profile
type Timeframe string

const (
	TimeframeSession Timeframe = "session"
	TimeframeAllTime Timeframe = "all_time"
)

// PersonaRule is one metric comparison. Value carries the operand for the
// scalar operators, Range for between, Set for in.
type PersonaRule struct {
	Metric    Metric        `json:"metric" yaml:"metric"`
	Op        Operator      `json:"op" yaml:"op"`
	Value     float64       `json:"value,omitempty" yaml:"value,omitempty"`
	Range     *OperandRange `json:"range,omitempty" yaml:"range,omitempty"`
	Set       []string      `json:"set,omitempty" yaml:"set,omitempty"`
	Timeframe Timeframe     `json:"timeframe" yaml:"timeframe"`
}

// OperandRange is the inclusive [Low, High] operand for OpBetween
type OperandRange struct {
	Low  float64 `json:"low" yaml:"low"`
	High float64 `json:"high" yaml:"high"`
}

// Persona is a named behavioral segment defined by a conjunction of rules.
// Definitions are immutable during evaluation; membership is the only
// mutable part.
type Persona struct {
	ID    string        `json:"id" yaml:"id"`
	Label string        `json:"label" yaml:"label"`
	Rules []PersonaRule `json:"rules" yaml:"rules"`
}

// Membership records one persona a user currently belongs to. Confidence
// is 0-100, proportional to how far the user's metrics exceed the rule
// thresholds; it is not a probability.
type Membership struct {
	PersonaID  string    `json:"personaId"`
	AssignedAt time.Time `json:"assignedAt"`
	Confidence float64   `json:"confidence"`
}

// SessionRecord is one sessionization window of a user profile
type SessionRecord struct {
	StartedAt    time.Time `json:"startedAt"`
	LastActivity time.Time `json:"lastActivity"`
	PageViews    int64     `json:"pageViews"`
	Clicks       int64     `json:"clicks"`
	Conversions  int64     `json:"conversions"`
	Device       string    `json:"device,omitempty"`
	Browser      string    `json:"browser,omitempty"`
}

// Duration of the session so far
func (s *SessionRecord) Duration() time.Duration {
	return s.LastActivity.Sub(s.StartedAt)
}

// UserProfile is the cumulative behavioral record for one user id
type UserProfile struct {
	UserID       string          `json:"userId"`
	PageViews    int64           `json:"pageViews"`
	Clicks       int64           `json:"clicks"`
	Conversions  int64           `json:"conversions"`
	SessionCount int64           `json:"sessionCount"`
	Devices      map[string]int  `json:"devices"`
	Browsers     map[string]int  `json:"browsers"`
	Sessions     []SessionRecord `json:"sessions"` // archived, oldest first
	Current      *SessionRecord  `json:"currentSession,omitempty"`
	Personas     []Membership    `json:"personas"`
	LastActivity time.Time       `json:"lastActivity"`
}

// SegmentStats is a read-only snapshot of one persona's aggregate segment
type SegmentStats struct {
	PersonaID          string   `json:"personaId"`
	Members            []string `json:"members"`
	ActiveUsers        int      `json:"activeUsers"` // activity within 24h
	AvgSessionDuration float64  `json:"avgSessionDurationMs"`
	ConversionRate     float64  `json:"conversionRate"`
}
