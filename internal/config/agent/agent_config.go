package agent

// AgentConfig holds the model settings shared by every conversation.
type AgentConfig struct {
	Model       string  `json:"model" yaml:"model"`
	MaxTokens   int     `json:"maxTokens" yaml:"maxTokens"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
	MaxSteps    int     `json:"maxSteps" yaml:"maxSteps"`
}

func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		Model:     "anthropic/claude-3-5-sonnet-20240620",
		MaxTokens: 1024,
		MaxSteps:  10,
	}
}
