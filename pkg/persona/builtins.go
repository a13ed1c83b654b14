package persona

import (
	"github.com/vlhsmylv/standlog-script/pkg/types"
)

// Builtins returns the stock persona definitions. Custom definitions from
// configuration are evaluated alongside these.
func Builtins() []types.Persona {
	return []types.Persona{
		{
			ID:    "power_user",
			Label: "Power User",
			Rules: []types.PersonaRule{
				{Metric: types.MetricPageViews, Op: types.OpGreaterThan, Value: 10, Timeframe: types.TimeframeSession},
				{Metric: types.MetricSessionDuration, Op: types.OpGreaterThan, Value: 300000, Timeframe: types.TimeframeSession},
				{Metric: types.MetricClicks, Op: types.OpGreaterThan, Value: 50, Timeframe: types.TimeframeSession},
			},
		},
		{
			ID:    "window_shopper",
			Label: "Window Shopper",
			Rules: []types.PersonaRule{
				{Metric: types.MetricPageViews, Op: types.OpGreaterThan, Value: 5, Timeframe: types.TimeframeSession},
				{Metric: types.MetricConversions, Op: types.OpEqual, Value: 0, Timeframe: types.TimeframeAllTime},
			},
		},
		{
			ID:    "mobile_first",
			Label: "Mobile First",
			Rules: []types.PersonaRule{
				{Metric: types.MetricMobileRatio, Op: types.OpGreaterOrEqual, Value: 0.5, Timeframe: types.TimeframeAllTime},
				{Metric: types.MetricSessionCount, Op: types.OpGreaterOrEqual, Value: 2, Timeframe: types.TimeframeAllTime},
			},
		},
		{
			ID:    "converter",
			Label: "Converter",
			Rules: []types.PersonaRule{
				{Metric: types.MetricConversions, Op: types.OpGreaterOrEqual, Value: 1, Timeframe: types.TimeframeAllTime},
			},
		},
		{
			ID:    "bouncer",
			Label: "Bouncer",
			Rules: []types.PersonaRule{
				{Metric: types.MetricPageViews, Op: types.OpLessOrEqual, Value: 1, Timeframe: types.TimeframeSession},
				{Metric: types.MetricSessionDuration, Op: types.OpLessThan, Value: 30000, Timeframe: types.TimeframeSession},
			},
		},
	}
}
