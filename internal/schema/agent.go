package schema

const (
	DefaultMaxSteps  = 10
	DefaultMaxTokens = 1024
)

type AgentSettings struct {
	Model       string
	MaxSteps    int
	Temperature float64
	MaxTokens   int
}

func NewAgentSettings(model string, maxSteps int, temperature float64, maxTokens int) AgentSettings {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return AgentSettings{
		Model:       model,
		MaxSteps:    maxSteps,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
}
