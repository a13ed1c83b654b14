package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vlhsmylv/standlog-script/pkg/persona"
	"github.com/vlhsmylv/standlog-script/pkg/types"
)

// Features are the declarative toggles read at load time. Each gates
// whether the corresponding engine initializes at all.
type Features struct {
	Heatmaps     bool `yaml:"heatmaps"`
	Funnels      bool `yaml:"funnels"`
	Personas     bool `yaml:"personas"`
	Dashboard    bool `yaml:"dashboard"`
	Integrations bool `yaml:"integrations"`
}

// Flush tunes the delivery queue triggers
type Flush struct {
	Size     int            `yaml:"size"`
	Interval types.Duration `yaml:"interval"`
}

// Config is the full tracker configuration, including funnel and persona
// definitions
type Config struct {
	// Collector is the base URL of the collector endpoint. Required.
	Collector string `yaml:"collector"`
	// DataDir holds the durable identity database. Empty selects an
	// in-memory scope.
	DataDir string `yaml:"dataDir"`
	Debug   bool   `yaml:"debug"`

	Features Features              `yaml:"features"`
	Flush    Flush                 `yaml:"flush"`
	Metadata types.SessionMetadata `yaml:"metadata"`

	// DisableBuiltinPersonas drops the stock persona definitions,
	// leaving only the custom ones below
	DisableBuiltinPersonas bool `yaml:"disableBuiltinPersonas"`

	Funnels  []types.Funnel  `yaml:"funnels"`
	Personas []types.Persona `yaml:"personas"`
}

// Default returns the configuration used when a field is absent: every
// feature enabled, debug off, stock flush tuning.
func Default() Config {
	return Config{
		Features: Features{
			Heatmaps:     true,
			Funnels:      true,
			Personas:     true,
			Dashboard:    true,
			Integrations: true,
		},
		Flush: Flush{
			Size:     10,
			Interval: types.Duration(5 * time.Second),
		},
	}
}

// Load reads and validates a configuration file
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration. Definitions fail here, at load time;
// a definition that passes validation can still decline to match at
// runtime, but it can never raise.
func (c Config) Validate() error {
	if c.Collector == "" {
		return fmt.Errorf("collector endpoint is required")
	}
	if c.Flush.Size < 0 {
		return fmt.Errorf("flush size must not be negative")
	}
	if c.Flush.Interval < 0 {
		return fmt.Errorf("flush interval must not be negative")
	}

	seen := make(map[string]bool)
	for i, f := range c.Funnels {
		if f.ID == "" {
			return fmt.Errorf("funnel %d: id is required", i)
		}
		if seen[f.ID] {
			return fmt.Errorf("funnel %q: duplicate id", f.ID)
		}
		seen[f.ID] = true
		if len(f.Steps) == 0 {
			return fmt.Errorf("funnel %q: at least one step is required", f.ID)
		}
		if f.Opts.Window < 0 {
			return fmt.Errorf("funnel %q: window must not be negative", f.ID)
		}
		for j, step := range f.Steps {
			if step.ID == "" {
				return fmt.Errorf("funnel %q: step %d: id is required", f.ID, j)
			}
		}
	}

	seen = make(map[string]bool)
	for i, p := range c.Personas {
		if p.ID == "" {
			return fmt.Errorf("persona %d: id is required", i)
		}
		if seen[p.ID] {
			return fmt.Errorf("persona %q: duplicate id", p.ID)
		}
		seen[p.ID] = true
		if len(p.Rules) == 0 {
			return fmt.Errorf("persona %q: at least one rule is required", p.ID)
		}
		for j, rule := range p.Rules {
			if err := validateRule(rule); err != nil {
				return fmt.Errorf("persona %q: rule %d: %w", p.ID, j, err)
			}
		}
	}
	return nil
}

func validateRule(rule types.PersonaRule) error {
	switch rule.Metric {
	case types.MetricPageViews, types.MetricSessionDuration, types.MetricClicks,
		types.MetricConversions, types.MetricSessionCount, types.MetricDeviceType,
		types.MetricMobileRatio, types.MetricFunnelCompletion:
	default:
		return fmt.Errorf("unknown metric %q", rule.Metric)
	}

	switch rule.Timeframe {
	case types.TimeframeSession, types.TimeframeAllTime:
	default:
		return fmt.Errorf("unknown timeframe %q", rule.Timeframe)
	}

	switch rule.Op {
	case types.OpGreaterThan, types.OpLessThan, types.OpGreaterOrEqual,
		types.OpLessOrEqual, types.OpEqual, types.OpNotEqual:
	case types.OpBetween:
		if rule.Range == nil {
			return fmt.Errorf("between requires a range operand")
		}
		if rule.Range.Low > rule.Range.High {
			return fmt.Errorf("between range is inverted")
		}
	case types.OpInSet:
		if len(rule.Set) == 0 {
			return fmt.Errorf("in requires a set operand")
		}
	default:
		return fmt.Errorf("unknown operator %q", rule.Op)
	}
	return nil
}

// EffectivePersonas returns the persona definitions to evaluate: builtins
// (unless disabled) followed by the custom ones
func (c Config) EffectivePersonas() []types.Persona {
	var out []types.Persona
	if !c.DisableBuiltinPersonas {
		out = persona.Builtins()
	}
	return append(out, c.Personas...)
}
