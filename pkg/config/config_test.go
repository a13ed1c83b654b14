package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vlhsmylv/standlog-script/pkg/types"
)

const validYAML = `
collector: https://collect.example.com
dataDir: /tmp/standlog
debug: true
flush:
  size: 25
  interval: 2s
metadata:
  device: desktop
  browser: firefox
funnels:
  - id: signup
    name: Signup
    options:
      window: 30m
      allowBacktrack: true
    steps:
      - id: landing
        urlPattern: "/pricing"
      - id: form
        selector: "#signup-form"
      - id: done
        eventName: signup_complete
personas:
  - id: researcher
    label: Researcher
    rules:
      - metric: page_views
        op: gt
        value: 20
        timeframe: all_time
`

func TestParse_FullConfig(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	require.NoError(t, err)

	assert.Equal(t, "https://collect.example.com", cfg.Collector)
	assert.Equal(t, "/tmp/standlog", cfg.DataDir)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 25, cfg.Flush.Size)
	assert.Equal(t, 2*time.Second, cfg.Flush.Interval.D())
	assert.Equal(t, "desktop", cfg.Metadata.Device)

	require.Len(t, cfg.Funnels, 1)
	f := cfg.Funnels[0]
	assert.Equal(t, "signup", f.ID)
	assert.True(t, f.Opts.AllowBacktrack)
	assert.Equal(t, 30*time.Minute, f.Opts.Window.D())
	require.Len(t, f.Steps, 3)
	assert.Equal(t, "#signup-form", f.Steps[1].Selector)

	require.Len(t, cfg.Personas, 1)
	assert.Equal(t, types.OpGreaterThan, cfg.Personas[0].Rules[0].Op)
}

func TestParse_DefaultsApply(t *testing.T) {
	cfg, err := Parse([]byte("collector: http://localhost:8080\n"))
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Flush.Size)
	assert.Equal(t, 5*time.Second, cfg.Flush.Interval.D())
	assert.True(t, cfg.Features.Funnels)
	assert.True(t, cfg.Features.Personas)
	assert.False(t, cfg.DisableBuiltinPersonas)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		cfg := Default()
		cfg.Collector = "http://localhost:8080"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid",
			mutate:  func(c *Config) {},
			wantErr: "",
		},
		{
			name:    "missing collector",
			mutate:  func(c *Config) { c.Collector = "" },
			wantErr: "collector",
		},
		{
			name: "funnel without id",
			mutate: func(c *Config) {
				c.Funnels = []types.Funnel{{Steps: []types.FunnelStep{{ID: "a"}}}}
			},
			wantErr: "id is required",
		},
		{
			name: "funnel without steps",
			mutate: func(c *Config) {
				c.Funnels = []types.Funnel{{ID: "f"}}
			},
			wantErr: "at least one step",
		},
		{
			name: "duplicate funnel ids",
			mutate: func(c *Config) {
				c.Funnels = []types.Funnel{
					{ID: "f", Steps: []types.FunnelStep{{ID: "a"}}},
					{ID: "f", Steps: []types.FunnelStep{{ID: "a"}}},
				}
			},
			wantErr: "duplicate id",
		},
		{
			name: "step without id",
			mutate: func(c *Config) {
				c.Funnels = []types.Funnel{{ID: "f", Steps: []types.FunnelStep{{URLPattern: "/x"}}}}
			},
			wantErr: "step 0: id is required",
		},
		{
			name: "persona without rules",
			mutate: func(c *Config) {
				c.Personas = []types.Persona{{ID: "p"}}
			},
			wantErr: "at least one rule",
		},
		{
			name: "unknown metric",
			mutate: func(c *Config) {
				c.Personas = []types.Persona{{ID: "p", Rules: []types.PersonaRule{{
					Metric: "bogus", Op: types.OpGreaterThan, Timeframe: types.TimeframeAllTime,
				}}}}
			},
			wantErr: "unknown metric",
		},
		{
			name: "unknown operator",
			mutate: func(c *Config) {
				c.Personas = []types.Persona{{ID: "p", Rules: []types.PersonaRule{{
					Metric: types.MetricClicks, Op: "like", Timeframe: types.TimeframeAllTime,
				}}}}
			},
			wantErr: "unknown operator",
		},
		{
			name: "between without range",
			mutate: func(c *Config) {
				c.Personas = []types.Persona{{ID: "p", Rules: []types.PersonaRule{{
					Metric: types.MetricClicks, Op: types.OpBetween, Timeframe: types.TimeframeAllTime,
				}}}}
			},
			wantErr: "requires a range",
		},
		{
			name: "inverted range",
			mutate: func(c *Config) {
				c.Personas = []types.Persona{{ID: "p", Rules: []types.PersonaRule{{
					Metric: types.MetricClicks, Op: types.OpBetween,
					Range: &types.OperandRange{Low: 10, High: 5}, Timeframe: types.TimeframeAllTime,
				}}}}
			},
			wantErr: "inverted",
		},
		{
			name: "in without set",
			mutate: func(c *Config) {
				c.Personas = []types.Persona{{ID: "p", Rules: []types.PersonaRule{{
					Metric: types.MetricDeviceType, Op: types.OpInSet, Timeframe: types.TimeframeSession,
				}}}}
			},
			wantErr: "requires a set",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "standlog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validYAML), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://collect.example.com", cfg.Collector)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEffectivePersonas(t *testing.T) {
	cfg := Default()
	cfg.Collector = "http://localhost:8080"
	cfg.Personas = []types.Persona{{ID: "custom", Rules: []types.PersonaRule{{
		Metric: types.MetricClicks, Op: types.OpGreaterThan, Value: 1, Timeframe: types.TimeframeAllTime,
	}}}}

	all := cfg.EffectivePersonas()
	assert.Greater(t, len(all), 1, "builtins should precede custom definitions")
	assert.Equal(t, "custom", all[len(all)-1].ID)

	cfg.DisableBuiltinPersonas = true
	only := cfg.EffectivePersonas()
	require.Len(t, only, 1)
	assert.Equal(t, "custom", only[0].ID)
}
