package tool

// ToolsConfig groups all tool-level settings.
type ToolsConfig struct {
	Jina JinaConfig `json:"jina" yaml:"jina"`
	Maps MapsConfig `json:"maps" yaml:"maps"`
}

func DefaultToolConfigs() ToolsConfig {
	return ToolsConfig{
		Jina: DefaultJinaConfig(),
		Maps: DefaultMapsConfig(),
	}
}
