// Package config defines the configuration schema for waypoint.
//
// Keys use camelCase in both the JSON and YAML forms.
package config

import (
	"fmt"
	"time"

	"github.com/crystaldolphin/waypoint/internal/config/agent"
	"github.com/crystaldolphin/waypoint/internal/config/provider"
	"github.com/crystaldolphin/waypoint/internal/config/server"
	"github.com/crystaldolphin/waypoint/internal/config/tool"
)

// ConversationsConfig controls in-memory conversation retention.
type ConversationsConfig struct {
	TTL string `json:"ttl" yaml:"ttl"` // Go duration, e.g. "30m"
}

func defaultConversationsConfig() ConversationsConfig {
	return ConversationsConfig{TTL: "30m"}
}

// Duration parses TTL. An empty value means the default of 30 minutes.
func (c ConversationsConfig) Duration() (time.Duration, error) {
	if c.TTL == "" {
		return 30 * time.Minute, nil
	}
	d, err := time.ParseDuration(c.TTL)
	if err != nil {
		return 0, fmt.Errorf("conversations.ttl %q: %w", c.TTL, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("conversations.ttl %q: must be positive", c.TTL)
	}
	return d, nil
}

// Config is the root configuration object, loaded from ~/.waypoint/config.json.
type Config struct {
	Agent         agent.AgentConfig        `json:"agent" yaml:"agent"`
	Providers     provider.ProvidersConfig `json:"providers" yaml:"providers"`
	Server        server.ServerConfig      `json:"server" yaml:"server"`
	Conversations ConversationsConfig      `json:"conversations" yaml:"conversations"`
	Tools         tool.ToolsConfig         `json:"tools" yaml:"tools"`
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() Config {
	return Config{
		Agent:         agent.DefaultAgentConfig(),
		Providers:     provider.DefaultProvidersConfig(),
		Server:        server.DefaultServerConfig(),
		Conversations: defaultConversationsConfig(),
		Tools:         tool.DefaultToolConfigs(),
	}
}

// ProviderByName returns the ProviderConfig for the given registry name.
func (c *Config) ProviderByName(name string) *provider.ProviderConfig {
	return c.Providers.ByName(name)
}
