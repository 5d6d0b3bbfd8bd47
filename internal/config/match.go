package config

import (
	"github.com/crystaldolphin/waypoint/internal/config/provider"
	"github.com/crystaldolphin/waypoint/internal/providers"
)

// MatchResult is the resolved LLM provider config and registry name for a model.
type MatchResult struct {
	Provider *provider.ProviderConfig
	Name     string // "anthropic" or "openai"
}

// MatchProvider resolves which provider config and registry entry to use for model.
// If model is empty, agent.model is used.
//
// Priority order:
//  1. Explicit prefix or keyword in the model name, when that provider has a key
//  2. Fallback: the first provider with a key, in registry order
func (c *Config) MatchProvider(model string) MatchResult {
	if model == "" {
		model = c.Agent.Model
	}

	if spec := providers.FindByModel(model); spec != nil {
		if p := c.ProviderByName(spec.Name); p != nil && p.APIKey != "" {
			return MatchResult{Provider: p, Name: spec.Name}
		}
	}

	for _, spec := range providers.PROVIDERS {
		p := c.ProviderByName(spec.Name)
		if p != nil && p.APIKey != "" {
			return MatchResult{Provider: p, Name: spec.Name}
		}
	}

	return MatchResult{}
}

// GetAPIBase returns the user-configured API base for model, or "" to let the
// SDK use its own endpoint.
func (c *Config) GetAPIBase(model string) string {
	if p := c.MatchProvider(model).Provider; p != nil {
		return p.APIBase
	}
	return ""
}

// GetAPIKey returns the API key for model (or "").
func (c *Config) GetAPIKey(model string) string {
	if p := c.MatchProvider(model).Provider; p != nil {
		return p.APIKey
	}
	return ""
}
