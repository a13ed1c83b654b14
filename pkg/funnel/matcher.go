package funnel

import (
	"regexp"
	"strings"

	"github.com/vlhsmylv/standlog-script/pkg/types"
)

// stepMatcher is the compiled form of one step's predicates. A step may
// configure none, one, or several predicate kinds; satisfying any configured
// predicate counts as a match. A malformed pattern compiles to a predicate
// that never matches, so one bad step cannot halt collection.
type stepMatcher struct {
	hasURL   bool
	urlExact string         // substring match when the pattern has no wildcard
	urlRe    *regexp.Regexp // nil when the wildcard pattern failed to compile

	eventName string
	selector  string
}

func compileStep(step types.FunnelStep) stepMatcher {
	m := stepMatcher{
		eventName: step.EventName,
		selector:  strings.TrimSpace(step.Selector),
	}

	if step.URLPattern != "" {
		m.hasURL = true
		if strings.Contains(step.URLPattern, "*") {
			parts := strings.Split(step.URLPattern, "*")
			for i, p := range parts {
				parts[i] = regexp.QuoteMeta(p)
			}
			re, err := regexp.Compile(strings.Join(parts, ".*"))
			if err == nil {
				m.urlRe = re
			}
			// on error urlRe stays nil: the predicate never matches
		} else {
			m.urlExact = step.URLPattern
		}
	}
	return m
}

// matches reports whether the event satisfies any configured predicate
func (m stepMatcher) matches(ev types.Event) bool {
	if m.hasURL && m.matchesURL(ev.Metadata.URL) {
		return true
	}
	if m.eventName != "" && m.matchesEventName(ev) {
		return true
	}
	if m.selector != "" && m.matchesSelector(ev) {
		return true
	}
	return false
}

func (m stepMatcher) matchesURL(url string) bool {
	if url == "" {
		return false
	}
	if m.urlRe != nil {
		return m.urlRe.MatchString(url)
	}
	if m.urlExact != "" {
		return strings.Contains(url, m.urlExact)
	}
	return false
}

func (m stepMatcher) matchesEventName(ev types.Event) bool {
	if string(ev.Type) == m.eventName {
		return true
	}
	if custom, ok := ev.Data.(types.CustomPayload); ok {
		return custom.Name == m.eventName
	}
	return false
}

// matchesSelector applies the element-selector heuristic to events that
// carry an element descriptor: exact match, or either selector containing
// the other (covers "#id" against "form#id" style descriptors).
func (m stepMatcher) matchesSelector(ev types.Event) bool {
	sel := eventSelector(ev)
	if sel == "" {
		return false
	}
	if sel == m.selector {
		return true
	}
	return strings.Contains(sel, m.selector) || strings.Contains(m.selector, sel)
}

func eventSelector(ev types.Event) string {
	switch data := ev.Data.(type) {
	case types.ClickPayload:
		return data.Selector
	case types.FormSubmitPayload:
		return data.Selector
	}
	return ""
}
