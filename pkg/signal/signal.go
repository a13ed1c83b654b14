package signal

// Kind identifies a raw interaction signal observed at the host boundary
type Kind string

const (
	KindPageLoad   Kind = "page_load"
	KindClick      Kind = "click"
	KindScroll     Kind = "scroll"
	KindFormSubmit Kind = "form_submit"
	KindCustom     Kind = "custom"
	KindVisibility Kind = "visibility_change"
)

// ElementInfo describes a host document element as the adapter saw it.
// The core derives a stable selector from it; it never touches the host
// environment itself.
type ElementInfo struct {
	ID      string   `json:"id,omitempty"`
	Tag     string   `json:"tag,omitempty"`
	Classes []string `json:"classes,omitempty"`
	Text    string   `json:"text,omitempty"`
}

// FieldInfo is one raw form field, value included. Redaction of secret
// fields happens in pkg/capture before any consumer sees the value.
type FieldInfo struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// PageInfo describes the page the signal occurred on
type PageInfo struct {
	URL      string `json:"url,omitempty"`
	Title    string `json:"title,omitempty"`
	Referrer string `json:"referrer,omitempty"`
}

// ClickInfo is the raw body of a click signal
type ClickInfo struct {
	X       int         `json:"x"`
	Y       int         `json:"y"`
	Element ElementInfo `json:"element"`
}

// ScrollInfo is the raw body of a scroll signal
type ScrollInfo struct {
	Position       int `json:"position"`
	ViewportHeight int `json:"viewportHeight"`
	DocumentHeight int `json:"documentHeight"`
}

// FormInfo is the raw body of a form submission signal
type FormInfo struct {
	Element ElementInfo `json:"element"`
	Fields  []FieldInfo `json:"fields"`
}

// CustomInfo is the raw body of an application-defined signal
type CustomInfo struct {
	Name       string         `json:"name"`
	Properties map[string]any `json:"properties,omitempty"`
}

// VisibilityInfo is the raw body of a visibility change signal
type VisibilityInfo struct {
	Hidden bool `json:"hidden"`
}

// Signal is one raw observation delivered by a Source. At most one of the
// kind-specific bodies is set, matching Kind. At is wall clock milliseconds;
// zero means "stamp at capture time".
type Signal struct {
	Kind       Kind            `json:"kind"`
	At         int64           `json:"at,omitempty"`
	Page       PageInfo        `json:"page"`
	Click      *ClickInfo      `json:"click,omitempty"`
	Scroll     *ScrollInfo     `json:"scroll,omitempty"`
	Form       *FormInfo       `json:"form,omitempty"`
	Custom     *CustomInfo     `json:"custom,omitempty"`
	Visibility *VisibilityInfo `json:"visibility,omitempty"`
}

// Handler consumes signals in arrival order
type Handler func(Signal)

// Source delivers raw interaction signals to a single registered handler.
// Implementations sit at the host boundary (a DOM adapter, a replay file);
// the core registers exactly one handler per source and never reaches past
// this interface.
type Source interface {
	// OnSignal registers the handler. Must be called before Start.
	OnSignal(h Handler)
	// Start begins delivery. Delivery order is arrival order.
	Start() error
	// Stop ends delivery. No handler calls happen after Stop returns.
	Stop()
}

// ChanSource is a programmatic Source backed by a buffered channel. It is
// the adapter used by embedders that observe the host themselves.
type ChanSource struct {
	ch      chan Signal
	handler Handler
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewChanSource creates a channel source with the given buffer
func NewChanSource(buffer int) *ChanSource {
	return &ChanSource{
		ch:     make(chan Signal, buffer),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// OnSignal registers the handler
func (s *ChanSource) OnSignal(h Handler) {
	s.handler = h
}

// Emit queues one signal for delivery. Emit after Stop is a no-op.
func (s *ChanSource) Emit(sig Signal) {
	select {
	case s.ch <- sig:
	case <-s.stopCh:
	}
}

// Start begins the delivery loop
func (s *ChanSource) Start() error {
	go s.run()
	return nil
}

// Stop ends delivery and waits for the loop to drain
func (s *ChanSource) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

func (s *ChanSource) run() {
	defer close(s.doneCh)
	for {
		select {
		case sig := <-s.ch:
			if s.handler != nil {
				s.handler(sig)
			}
		case <-s.stopCh:
			return
		}
	}
}
