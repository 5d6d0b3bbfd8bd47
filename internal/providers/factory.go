package providers

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/crystaldolphin/waypoint/internal/schema"
)

// ErrNoAPIKey is returned when the selected provider has no API key.
var ErrNoAPIKey = errors.New("no API key configured")

const defaultMaxTokens = 4096

// Params are the raw values needed to construct any schema.LLMProvider.
// Extracted from config.Config by the caller to avoid an import cycle.
type Params struct {
	APIKey       string
	APIBase      string
	DefaultModel string
	ProviderName string // registry name, "anthropic" or "openai"
}

// New creates the schema.LLMProvider named by p.ProviderName.
func New(p Params) (schema.LLMProvider, error) {
	spec := FindByName(p.ProviderName)
	if spec == nil {
		return nil, fmt.Errorf("unknown provider %q", p.ProviderName)
	}
	if strings.TrimSpace(p.APIKey) == "" {
		return nil, fmt.Errorf("%s: %w (set %s)", spec.Label(), ErrNoAPIKey, spec.EnvKey)
	}
	model := p.DefaultModel
	if model == "" {
		model = spec.DefaultModel
	}

	slog.Info("LLM provider ready", "provider", spec.Name, "model", model)
	switch spec.Name {
	case "anthropic":
		return NewAnthropicProvider(p.APIKey, p.APIBase, model), nil
	default:
		return NewOpenAIProvider(p.APIKey, p.APIBase, model), nil
	}
}

// resolveModel picks the request model and strips a "provider/" prefix the
// SDKs would reject.
func resolveModel(requested, fallback, provider string) string {
	model := strings.TrimSpace(requested)
	if model == "" {
		model = fallback
	}
	if prefix, rest, ok := strings.Cut(model, "/"); ok && strings.EqualFold(prefix, provider) {
		return rest
	}
	return model
}

func maxTokensOrDefault(n int) int {
	if n <= 0 {
		return defaultMaxTokens
	}
	return n
}

// normalizeStopReason maps provider stop strings onto schema.StopReason.
// A response that carries tool calls is always a tool_use stop.
func normalizeStopReason(raw string, hasToolUse bool) schema.StopReason {
	if hasToolUse {
		return schema.StopToolUse
	}
	switch raw {
	case "max_tokens", "length":
		return schema.StopMaxTokens
	default:
		return schema.StopEndTurn
	}
}
