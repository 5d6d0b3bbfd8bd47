package schema

import "context"

// StopReason tells why the model stopped producing content.
type StopReason string

const (
	StopEndTurn   StopReason = "end_turn"
	StopToolUse   StopReason = "tool_use"
	StopMaxTokens StopReason = "max_tokens"
)

// ChatOptions configures a single LLM chat request.
type ChatOptions struct {
	Model       string
	System      string
	MaxTokens   int
	Temperature float64
}

func NewChatOptions(model, system string, maxTokens int, temperature float64) ChatOptions {
	return ChatOptions{
		Model:       model,
		System:      system,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
}

// Usage reports token accounting for one call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// LLMResponse is the normalised response from any LLM provider.
type LLMResponse struct {
	Model      string
	Content    []ContentBlock
	StopReason StopReason
	Usage      Usage
}

// HasToolUse reports whether the response requests at least one tool.
func (r LLMResponse) HasToolUse() bool {
	for _, b := range r.Content {
		if _, ok := b.(ToolUseBlock); ok {
			return true
		}
	}
	return false
}

// Message returns the response as an assistant history entry.
func (r LLMResponse) Message() Message {
	return Message{Role: RoleAssistant, Content: r.Content}
}

// LLMProvider is the interface every LLM backend must satisfy.
type LLMProvider interface {
	Chat(ctx context.Context, messages Messages, tools []ToolDefinition, opts ChatOptions) (LLMResponse, error)
	DefaultModel() string
}
