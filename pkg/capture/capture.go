package capture

import (
	"strings"
	"sync"
	"time"

	"github.com/vlhsmylv/standlog-script/pkg/identity"
	"github.com/vlhsmylv/standlog-script/pkg/metrics"
	"github.com/vlhsmylv/standlog-script/pkg/signal"
	"github.com/vlhsmylv/standlog-script/pkg/types"
)

const (
	// RedactionMarker replaces the value of secret-typed form fields
	RedactionMarker = "[REDACTED]"

	maxFieldValueLen  = 100
	maxElementTextLen = 80
)

// SessionCounters are the per-session interaction counts this collector
// maintains as a side effect of capture
type SessionCounters struct {
	PageViews    int64
	Clicks       int64
	Scrolls      int64
	FormSubmits  int64
	CustomEvents int64
}

// Collector normalizes raw interaction signals into uniform Events tagged
// with the current identity. Filtering is not its job: a click on an
// untracked region still produces a click event.
type Collector struct {
	ids *identity.Store

	mu       sync.Mutex
	counters map[string]*SessionCounters
}

// NewCollector creates an event collector over the given identity store
func NewCollector(ids *identity.Store) *Collector {
	return &Collector{
		ids:      ids,
		counters: make(map[string]*SessionCounters),
	}
}

// Capture normalizes one raw signal. It returns false for signal kinds the
// collector does not recognize.
func (c *Collector) Capture(sig signal.Signal) (types.Event, bool) {
	switch sig.Kind {
	case signal.KindPageLoad:
		return c.Pageview(sig.At, sig.Page), true
	case signal.KindClick:
		if sig.Click == nil {
			return types.Event{}, false
		}
		return c.Click(sig.At, sig.Page, *sig.Click), true
	case signal.KindScroll:
		if sig.Scroll == nil {
			return types.Event{}, false
		}
		return c.Scroll(sig.At, sig.Page, *sig.Scroll), true
	case signal.KindFormSubmit:
		if sig.Form == nil {
			return types.Event{}, false
		}
		return c.FormSubmit(sig.At, sig.Page, *sig.Form), true
	case signal.KindCustom:
		if sig.Custom == nil {
			return types.Event{}, false
		}
		return c.Custom(sig.At, sig.Page, *sig.Custom), true
	case signal.KindVisibility:
		if sig.Visibility == nil {
			return types.Event{}, false
		}
		return c.VisibilityChange(sig.At, sig.Page, *sig.Visibility), true
	}
	return types.Event{}, false
}

// Pageview normalizes a page load signal
func (c *Collector) Pageview(at int64, page signal.PageInfo) types.Event {
	ev := c.newEvent(types.EventPageview, at, page)
	ev.Data = types.PageviewPayload{
		URL:      page.URL,
		Title:    page.Title,
		Referrer: page.Referrer,
	}
	c.bump(ev.Metadata.SessionID, func(sc *SessionCounters) { sc.PageViews++ })
	return ev
}

// Click normalizes a pointer click signal
func (c *Collector) Click(at int64, page signal.PageInfo, info signal.ClickInfo) types.Event {
	ev := c.newEvent(types.EventClick, at, page)
	ev.Data = types.ClickPayload{
		X:        info.X,
		Y:        info.Y,
		Selector: Descriptor(info.Element),
		Tag:      strings.ToLower(info.Element.Tag),
		Text:     truncate(info.Element.Text, maxElementTextLen),
	}
	c.bump(ev.Metadata.SessionID, func(sc *SessionCounters) { sc.Clicks++ })
	return ev
}

// Scroll normalizes a scroll position signal
func (c *Collector) Scroll(at int64, page signal.PageInfo, info signal.ScrollInfo) types.Event {
	ev := c.newEvent(types.EventScroll, at, page)

	extent := info.DocumentHeight - info.ViewportHeight
	depth := 0
	if extent > 0 {
		depth = info.Position * 100 / extent
		if depth > 100 {
			depth = 100
		}
		if depth < 0 {
			depth = 0
		}
	}
	ev.Data = types.ScrollPayload{
		Position: info.Position,
		Extent:   info.DocumentHeight,
		Depth:    depth,
	}
	c.bump(ev.Metadata.SessionID, func(sc *SessionCounters) { sc.Scrolls++ })
	return ev
}

// FormSubmit normalizes a form submission signal. Secret-typed field values
// are replaced with the redaction marker here, before the event is visible
// to any consumer.
func (c *Collector) FormSubmit(at int64, page signal.PageInfo, info signal.FormInfo) types.Event {
	ev := c.newEvent(types.EventFormSubmit, at, page)

	fields := make([]types.FormField, 0, len(info.Fields))
	for _, f := range info.Fields {
		fields = append(fields, types.FormField{
			Name:  f.Name,
			Type:  f.Type,
			Value: sanitizeFieldValue(f.Type, f.Value),
		})
	}
	ev.Data = types.FormSubmitPayload{
		Selector: Descriptor(info.Element),
		Fields:   fields,
	}
	c.bump(ev.Metadata.SessionID, func(sc *SessionCounters) { sc.FormSubmits++ })
	return ev
}

// Custom normalizes an application-defined signal
func (c *Collector) Custom(at int64, page signal.PageInfo, info signal.CustomInfo) types.Event {
	ev := c.newEvent(types.EventCustom, at, page)
	ev.Data = types.CustomPayload{
		Name:       info.Name,
		Properties: info.Properties,
	}
	c.bump(ev.Metadata.SessionID, func(sc *SessionCounters) { sc.CustomEvents++ })
	return ev
}

// VisibilityChange normalizes a tab visibility signal
func (c *Collector) VisibilityChange(at int64, page signal.PageInfo, info signal.VisibilityInfo) types.Event {
	ev := c.newEvent(types.EventVisibilityChange, at, page)
	ev.Data = types.VisibilityPayload{Hidden: info.Hidden}
	return ev
}

// Counters returns a copy of the per-session counters for sessionID
func (c *Collector) Counters(sessionID string) (SessionCounters, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sc, ok := c.counters[sessionID]
	if !ok {
		return SessionCounters{}, false
	}
	return *sc, true
}

func (c *Collector) newEvent(t types.EventType, at int64, page signal.PageInfo) types.Event {
	if at == 0 {
		at = time.Now().UnixMilli()
	}
	metrics.SignalsCaptured.WithLabelValues(string(t)).Inc()
	return types.Event{
		Type: t,
		Metadata: types.EventMetadata{
			Timestamp: at,
			SessionID: c.ids.CurrentSessionID(),
			UserID:    c.ids.EnsureVisitorID(),
			URL:       page.URL,
		},
	}
}

func (c *Collector) bump(sessionID string, fn func(*SessionCounters)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sc, ok := c.counters[sessionID]
	if !ok {
		sc = &SessionCounters{}
		c.counters[sessionID] = sc
	}
	fn(sc)
}

// Descriptor derives a stable selector for an element: "#id" when the
// element has an id, otherwise "tag.class1.class2", otherwise the bare tag.
func Descriptor(el signal.ElementInfo) string {
	if el.ID != "" {
		return "#" + el.ID
	}
	tag := strings.ToLower(el.Tag)
	if len(el.Classes) == 0 {
		return tag
	}
	classes := make([]string, 0, len(el.Classes))
	for _, cl := range el.Classes {
		cl = strings.TrimSpace(cl)
		if cl != "" {
			classes = append(classes, cl)
		}
	}
	if len(classes) == 0 {
		return tag
	}
	return tag + "." + strings.Join(classes, ".")
}

func sanitizeFieldValue(fieldType, value string) string {
	if isSecretField(fieldType) {
		return RedactionMarker
	}
	return truncate(value, maxFieldValueLen)
}

func isSecretField(fieldType string) bool {
	return strings.EqualFold(fieldType, "password")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
