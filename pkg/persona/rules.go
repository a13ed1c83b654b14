package persona

import (
	"strconv"

	"github.com/vlhsmylv/standlog-script/pkg/types"
)

// ruleResult is one rule's evaluation: whether it held, and its confidence
// contribution (0-100) when it did
type ruleResult struct {
	matched    bool
	confidence float64
}

// evalPersona evaluates the conjunction of a persona's rules against a
// profile. It returns whether every rule held, and the averaged confidence.
func evalPersona(p types.Persona, profile *types.UserProfile, completed bool) (bool, float64) {
	if len(p.Rules) == 0 {
		return false, 0
	}

	var total float64
	for _, rule := range p.Rules {
		res := evalRule(rule, profile, completed)
		if !res.matched {
			return false, 0
		}
		total += res.confidence
	}
	return true, total / float64(len(p.Rules))
}

// evalRule applies one rule. A rule that cannot be evaluated (unknown
// metric, missing operand) evaluates to false rather than raising, so a
// single bad rule cannot halt classification.
func evalRule(rule types.PersonaRule, profile *types.UserProfile, completed bool) ruleResult {
	if rule.Metric == types.MetricDeviceType {
		return evalStringRule(rule, deviceValue(profile, rule.Timeframe))
	}

	v, ok := metricValue(rule.Metric, rule.Timeframe, profile, completed)
	if !ok {
		return ruleResult{}
	}

	switch rule.Op {
	case types.OpGreaterThan:
		return ruleResult{v > rule.Value, excess(v, rule.Value)}
	case types.OpGreaterOrEqual:
		return ruleResult{v >= rule.Value, excess(v, rule.Value)}
	case types.OpLessThan:
		return ruleResult{v < rule.Value, deficit(v, rule.Value)}
	case types.OpLessOrEqual:
		return ruleResult{v <= rule.Value, deficit(v, rule.Value)}
	case types.OpEqual:
		return ruleResult{v == rule.Value, 100}
	case types.OpNotEqual:
		return ruleResult{v != rule.Value, 100}
	case types.OpBetween:
		if rule.Range == nil {
			return ruleResult{}
		}
		return ruleResult{v >= rule.Range.Low && v <= rule.Range.High, 100}
	case types.OpInSet:
		for _, s := range rule.Set {
			if f, err := strconv.ParseFloat(s, 64); err == nil && f == v {
				return ruleResult{true, 100}
			}
		}
		return ruleResult{}
	}
	return ruleResult{}
}

func evalStringRule(rule types.PersonaRule, value string) ruleResult {
	if value == "" {
		return ruleResult{}
	}
	switch rule.Op {
	case types.OpEqual:
		return ruleResult{len(rule.Set) > 0 && rule.Set[0] == value, 100}
	case types.OpNotEqual:
		return ruleResult{len(rule.Set) > 0 && rule.Set[0] != value, 100}
	case types.OpInSet:
		for _, s := range rule.Set {
			if s == value {
				return ruleResult{true, 100}
			}
		}
	}
	return ruleResult{}
}

// metricValue reads a numeric metric at the rule's timeframe
func metricValue(m types.Metric, tf types.Timeframe, p *types.UserProfile, completed bool) (float64, bool) {
	session := tf == types.TimeframeSession

	switch m {
	case types.MetricPageViews:
		if session {
			return float64(currentSession(p).PageViews), true
		}
		return float64(p.PageViews), true

	case types.MetricClicks:
		if session {
			return float64(currentSession(p).Clicks), true
		}
		return float64(p.Clicks), true

	case types.MetricConversions:
		if session {
			return float64(currentSession(p).Conversions), true
		}
		return float64(p.Conversions), true

	case types.MetricSessionDuration:
		if session {
			return float64(currentSession(p).Duration().Milliseconds()), true
		}
		return avgSessionDurationMs(p), true

	case types.MetricSessionCount:
		return float64(p.SessionCount), true

	case types.MetricMobileRatio:
		return mobileRatio(p), true

	case types.MetricFunnelCompletion:
		if completed {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func currentSession(p *types.UserProfile) *types.SessionRecord {
	if p.Current != nil {
		return p.Current
	}
	return &types.SessionRecord{}
}

func deviceValue(p *types.UserProfile, tf types.Timeframe) string {
	if tf == types.TimeframeSession {
		return currentSession(p).Device
	}
	// lifetime: the most frequently seen device
	best, n := "", 0
	for d, c := range p.Devices {
		if c > n || (c == n && d < best) {
			best, n = d, c
		}
	}
	return best
}

func avgSessionDurationMs(p *types.UserProfile) float64 {
	var sum float64
	var n int
	for i := range p.Sessions {
		sum += float64(p.Sessions[i].Duration().Milliseconds())
		n++
	}
	if p.Current != nil {
		sum += float64(p.Current.Duration().Milliseconds())
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func mobileRatio(p *types.UserProfile) float64 {
	var mobile, total int
	for i := range p.Sessions {
		total++
		if p.Sessions[i].Device == "mobile" {
			mobile++
		}
	}
	if p.Current != nil {
		total++
		if p.Current.Device == "mobile" {
			mobile++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(mobile) / float64(total)
}

// excess scores how far v exceeds threshold t, clamped to [0, 100].
// Meeting the threshold exactly scores 0; doubling it scores 100.
func excess(v, t float64) float64 {
	if t <= 0 {
		if v > 0 {
			return 100
		}
		return 0
	}
	return clamp((v - t) / t * 100)
}

// deficit scores how far v sits below threshold t, clamped to [0, 100]
func deficit(v, t float64) float64 {
	if t <= 0 {
		return 0
	}
	return clamp((t - v) / t * 100)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
