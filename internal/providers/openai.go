package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/crystaldolphin/waypoint/internal/schema"
)

type openaiCompletions interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAIProvider calls the Chat Completions API of OpenAI or any compatible
// endpoint set through apiBase.
type OpenAIProvider struct {
	completions  openaiCompletions
	defaultModel string
}

// NewOpenAIProvider creates a provider. apiBase may be empty.
func NewOpenAIProvider(apiKey, apiBase, defaultModel string) *OpenAIProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if apiBase != "" {
		opts = append(opts, option.WithBaseURL(apiBase))
	}
	client := openai.NewClient(opts...)
	return &OpenAIProvider{completions: &client.Chat.Completions, defaultModel: defaultModel}
}

func (p *OpenAIProvider) DefaultModel() string { return p.defaultModel }

func (p *OpenAIProvider) Chat(ctx context.Context, messages schema.Messages, tools []schema.ToolDefinition, opts schema.ChatOptions) (schema.LLMResponse, error) {
	params := p.buildParams(messages, tools, opts)

	completion, err := p.completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			slog.Error("OpenAI API error", "status", apiErr.StatusCode, "model", params.Model)
		}
		return schema.LLMResponse{}, fmt.Errorf("openai: %w", err)
	}
	return convertOpenAIResponse(completion)
}

func (p *OpenAIProvider) buildParams(messages schema.Messages, tools []schema.ToolDefinition, opts schema.ChatOptions) openai.ChatCompletionNewParams {
	model := resolveModel(opts.Model, p.defaultModel, "openai")
	params := openai.ChatCompletionNewParams{
		Model:               shared.ChatModel(model),
		Messages:            convertOpenAIMessages(opts.System, messages),
		MaxCompletionTokens: openai.Int(int64(maxTokensOrDefault(opts.MaxTokens))),
	}
	if opts.Temperature > 0 {
		params.Temperature = openai.Float(opts.Temperature)
	}
	if len(tools) > 0 {
		params.Tools = convertOpenAITools(tools)
	}
	return params
}

// convertOpenAIMessages flattens block messages into the chat format: tool
// results become one tool message each, images become data-URL parts.
func convertOpenAIMessages(system string, messages schema.Messages) []openai.ChatCompletionMessageParamUnion {
	var out []openai.ChatCompletionMessageParamUnion
	if sys := strings.TrimSpace(system); sys != "" {
		out = append(out, openai.SystemMessage(sys))
	}

	for _, msg := range messages.Messages {
		if msg.Role == schema.RoleAssistant {
			out = append(out, openaiAssistantMessage(msg))
			continue
		}

		var parts []openai.ChatCompletionContentPartUnionParam
		for _, b := range msg.Content {
			switch v := b.(type) {
			case schema.ToolResultBlock:
				content := v.Content
				if v.IsError {
					content = "Error: " + content
				}
				out = append(out, openai.ToolMessage(content, v.ToolUseID))
			case schema.ImageBlock:
				parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: "data:" + v.MediaType + ";base64," + v.Data,
				}))
			case schema.TextBlock:
				parts = append(parts, openai.TextContentPart(v.Text))
			}
		}
		if len(parts) > 0 {
			out = append(out, openai.UserMessage(parts))
		}
	}
	return out
}

func openaiAssistantMessage(msg schema.Message) openai.ChatCompletionMessageParamUnion {
	assistant := openai.ChatCompletionAssistantMessageParam{}
	if text := msg.Text(); text != "" {
		assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
			OfString: openai.String(text),
		}
	}
	for _, call := range msg.ToolUses() {
		args, err := json.Marshal(call.Input)
		if err != nil || call.Input == nil {
			args = []byte("{}")
		}
		assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
			ID: call.ID,
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      call.Name,
				Arguments: string(args),
			},
		})
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant}
}

func convertOpenAITools(tools []schema.ToolDefinition) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, def := range tools {
		params := make(shared.FunctionParameters, len(def.InputSchema)+1)
		for k, v := range def.InputSchema {
			params[k] = v
		}
		if _, ok := params["type"]; !ok {
			params["type"] = "object"
		}
		tool := openai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:       def.Name,
				Parameters: params,
			},
		}
		if def.Description != "" {
			tool.Function.Description = openai.String(def.Description)
		}
		out = append(out, tool)
	}
	return out
}

func convertOpenAIResponse(completion *openai.ChatCompletion) (schema.LLMResponse, error) {
	if completion == nil || len(completion.Choices) == 0 {
		return schema.LLMResponse{}, errors.New("openai: response has no choices")
	}
	choice := completion.Choices[0]
	resp := schema.LLMResponse{
		Model: completion.Model,
		Usage: schema.Usage{
			InputTokens:  int(completion.Usage.PromptTokens),
			OutputTokens: int(completion.Usage.CompletionTokens),
		},
	}
	if text := choice.Message.Content; text != "" {
		resp.Content = append(resp.Content, schema.TextBlock{Text: text})
	}
	for _, tc := range choice.Message.ToolCalls {
		input := map[string]any{}
		if args := strings.TrimSpace(tc.Function.Arguments); args != "" {
			if err := json.Unmarshal([]byte(args), &input); err != nil {
				slog.Warn("Malformed tool arguments from model", "tool", tc.Function.Name, "err", err)
				input = map[string]any{"raw": args}
			}
		}
		resp.Content = append(resp.Content, schema.ToolUseBlock{ID: tc.ID, Name: tc.Function.Name, Input: input})
	}
	resp.StopReason = normalizeStopReason(choice.FinishReason, resp.HasToolUse())
	return resp, nil
}
