// Package config loads pipeline configuration from YAML files and the
// environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/dshills/scanflow-go/flow"
)

// Config is the full pipeline configuration.
type Config struct {
	Pipeline PipelineConfig `koanf:"pipeline"`
	LLM      LLMConfig      `koanf:"llm"`
	Store    StoreConfig    `koanf:"store"`
	Log      LogConfig      `koanf:"log"`
	Roles    []RoleConfig   `koanf:"roles"`
}

// PipelineConfig controls run behavior.
type PipelineConfig struct {
	// Topology selects the wiring: "linear" or "hub".
	Topology string `koanf:"topology"`

	// Hub names the hub role when Topology is "hub".
	Hub string `koanf:"hub"`

	// StageTimeout bounds each stage (e.g. "30s").
	StageTimeout time.Duration `koanf:"stage_timeout"`

	// MaxSteps is the per-run loop guard. 0 disables.
	MaxSteps int `koanf:"max_steps"`

	// CacheTTL is how long cached caller state survives between runs.
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

// LLMConfig selects and authenticates the chat provider.
type LLMConfig struct {
	Provider string `koanf:"provider"` // openai, anthropic, google
	Model    string `koanf:"model"`
	APIKey   string `koanf:"api_key"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string `koanf:"driver"` // memory, sqlite, mysql
	DSN    string `koanf:"dsn"`
}

// LogConfig controls the log emitter.
type LogConfig struct {
	Format string `koanf:"format"` // text, json
}

// RoleConfig overrides one role's settings. Roles absent from the config
// keep their defaults.
type RoleConfig struct {
	Role        string   `koanf:"role"`
	Model       string   `koanf:"model"`
	Backstory   string   `koanf:"backstory"`
	Goal        string   `koanf:"goal"`
	Temperature float64  `koanf:"temperature"`
	MaxTokens   int      `koanf:"max_tokens"`
	Analyzers   []string `koanf:"analyzers"`
}

// Load reads configuration with precedence defaults < file < environment.
// path may be empty to skip the file layer. Environment variables use the
// SCANFLOW_ prefix (SCANFLOW_LLM_PROVIDER -> llm.provider).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Defaults
	k.Set("pipeline.topology", "linear")
	k.Set("pipeline.stage_timeout", "30s")
	k.Set("pipeline.max_steps", 50)
	k.Set("pipeline.cache_ttl", "300s")
	k.Set("llm.provider", "openai")
	k.Set("store.driver", "memory")
	k.Set("log.format", "text")

	// 1. Load from file
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// 2. Load from ENV (SCANFLOW_PIPELINE_TOPOLOGY -> pipeline.topology)
	if err := k.Load(env.Provider("SCANFLOW_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "SCANFLOW_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// FlowRoles resolves the configured role set. With no roles configured the
// default five-role set is returned; otherwise configured entries override
// the matching defaults field by field, and unmatched entries define new
// roles. The global llm.model applies to roles without their own model.
func (c *Config) FlowRoles() ([]flow.RoleConfig, error) {
	defaults := flow.DefaultRoles()
	if len(c.Roles) == 0 {
		if c.LLM.Model != "" {
			for i := range defaults {
				if defaults[i].Model == "" {
					defaults[i].Model = c.LLM.Model
				}
			}
		}
		return defaults, nil
	}

	byRole := make(map[flow.Role]int, len(defaults))
	for i, d := range defaults {
		byRole[d.Role] = i
	}

	out := append([]flow.RoleConfig(nil), defaults...)
	for _, rc := range c.Roles {
		role := flow.Role(rc.Role)
		if role == "" {
			return nil, fmt.Errorf("role entry missing role id")
		}

		var cfg flow.RoleConfig
		if i, ok := byRole[role]; ok {
			cfg = out[i]
		} else {
			cfg = flow.RoleConfig{Role: role, Analyzers: []flow.AnalyzerID{flow.AnalyzerGeneral}}
		}

		if rc.Model != "" {
			cfg.Model = rc.Model
		}
		if rc.Backstory != "" {
			cfg.Backstory = rc.Backstory
		}
		if rc.Goal != "" {
			cfg.Goal = rc.Goal
		}
		if rc.Temperature > 0 {
			cfg.Temperature = rc.Temperature
		}
		if rc.MaxTokens > 0 {
			cfg.MaxTokens = rc.MaxTokens
		}
		if len(rc.Analyzers) > 0 {
			cfg.Analyzers = make([]flow.AnalyzerID, 0, len(rc.Analyzers))
			for _, a := range rc.Analyzers {
				cfg.Analyzers = append(cfg.Analyzers, flow.AnalyzerID(a))
			}
		}

		if i, ok := byRole[role]; ok {
			out[i] = cfg
		} else {
			byRole[role] = len(out)
			out = append(out, cfg)
		}
	}

	if c.LLM.Model != "" {
		for i := range out {
			if out[i].Model == "" {
				out[i].Model = c.LLM.Model
			}
		}
	}
	return out, nil
}
