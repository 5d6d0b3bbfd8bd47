package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"

	"github.com/crystaldolphin/waypoint/internal/schema"
)

// anthropicMessages is the subset of the SDK's message service we use.
type anthropicMessages interface {
	New(ctx context.Context, params anthropicsdk.MessageNewParams, opts ...option.RequestOption) (*anthropicsdk.Message, error)
}

// AnthropicProvider calls the Anthropic Messages API through the official SDK.
type AnthropicProvider struct {
	messages     anthropicMessages
	defaultModel string
}

// NewAnthropicProvider creates a provider. apiBase may be empty.
func NewAnthropicProvider(apiKey, apiBase, defaultModel string) *AnthropicProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if apiBase != "" {
		opts = append(opts, option.WithBaseURL(apiBase))
	}
	client := anthropicsdk.NewClient(opts...)
	return &AnthropicProvider{messages: &client.Messages, defaultModel: defaultModel}
}

func (p *AnthropicProvider) DefaultModel() string { return p.defaultModel }

func (p *AnthropicProvider) Chat(ctx context.Context, messages schema.Messages, tools []schema.ToolDefinition, opts schema.ChatOptions) (schema.LLMResponse, error) {
	params, err := p.buildParams(messages, tools, opts)
	if err != nil {
		return schema.LLMResponse{}, err
	}

	msg, err := p.messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropicsdk.Error
		if errors.As(err, &apiErr) {
			slog.Error("Anthropic API error", "status", apiErr.StatusCode, "model", params.Model)
		}
		return schema.LLMResponse{}, fmt.Errorf("anthropic: %w", err)
	}
	return convertAnthropicResponse(msg)
}

func (p *AnthropicProvider) buildParams(messages schema.Messages, tools []schema.ToolDefinition, opts schema.ChatOptions) (anthropicsdk.MessageNewParams, error) {
	model := resolveModel(opts.Model, p.defaultModel, "anthropic")
	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(model),
		MaxTokens: int64(maxTokensOrDefault(opts.MaxTokens)),
		Messages:  convertAnthropicMessages(messages),
	}
	if sys := strings.TrimSpace(opts.System); sys != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: sys}}
	}
	if opts.Temperature > 0 {
		params.Temperature = param.NewOpt(opts.Temperature)
	}
	if len(tools) > 0 {
		converted, err := convertAnthropicTools(tools)
		if err != nil {
			return anthropicsdk.MessageNewParams{}, err
		}
		params.Tools = converted
	}
	return params, nil
}

func convertAnthropicMessages(messages schema.Messages) []anthropicsdk.MessageParam {
	out := make([]anthropicsdk.MessageParam, 0, messages.Len())
	for _, msg := range messages.Messages {
		blocks := make([]anthropicsdk.ContentBlockParamUnion, 0, len(msg.Content))
		for _, b := range msg.Content {
			switch v := b.(type) {
			case schema.TextBlock:
				blocks = append(blocks, anthropicsdk.NewTextBlock(v.Text))
			case schema.ImageBlock:
				blocks = append(blocks, anthropicsdk.NewImageBlockBase64(v.MediaType, v.Data))
			case schema.ToolUseBlock:
				input := v.Input
				if input == nil {
					input = map[string]any{}
				}
				blocks = append(blocks, anthropicsdk.NewToolUseBlock(v.ID, input, v.Name))
			case schema.ToolResultBlock:
				blocks = append(blocks, anthropicsdk.NewToolResultBlock(v.ToolUseID, v.Content, v.IsError))
			}
		}
		role := anthropicsdk.MessageParamRoleUser
		if msg.Role == schema.RoleAssistant {
			role = anthropicsdk.MessageParamRoleAssistant
		}
		out = append(out, anthropicsdk.MessageParam{Role: role, Content: blocks})
	}
	return out
}

func convertAnthropicTools(tools []schema.ToolDefinition) ([]anthropicsdk.ToolUnionParam, error) {
	out := make([]anthropicsdk.ToolUnionParam, 0, len(tools))
	for _, def := range tools {
		inputSchema, err := encodeInputSchema(def.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("tool %s schema: %w", def.Name, err)
		}
		tool := anthropicsdk.ToolParam{
			Name:        def.Name,
			InputSchema: inputSchema,
		}
		if def.Description != "" {
			tool.Description = anthropicsdk.String(def.Description)
		}
		out = append(out, anthropicsdk.ToolUnionParam{OfTool: &tool})
	}
	return out, nil
}

func encodeInputSchema(raw map[string]any) (anthropicsdk.ToolInputSchemaParam, error) {
	if len(raw) == 0 {
		return anthropicsdk.ToolInputSchemaParam{}, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return anthropicsdk.ToolInputSchemaParam{}, err
	}
	var s anthropicsdk.ToolInputSchemaParam
	if err := json.Unmarshal(data, &s); err != nil {
		return anthropicsdk.ToolInputSchemaParam{}, err
	}
	return s, nil
}

func convertAnthropicResponse(msg *anthropicsdk.Message) (schema.LLMResponse, error) {
	if msg == nil {
		return schema.LLMResponse{}, errors.New("anthropic: empty response")
	}
	resp := schema.LLMResponse{
		Model: string(msg.Model),
		Usage: schema.Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			resp.Content = append(resp.Content, schema.TextBlock{Text: block.Text})
		case "tool_use":
			input := map[string]any{}
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &input); err != nil {
					slog.Warn("Malformed tool input from model", "tool", block.Name, "err", err)
					input = map[string]any{"raw": string(block.Input)}
				}
			}
			resp.Content = append(resp.Content, schema.ToolUseBlock{ID: block.ID, Name: block.Name, Input: input})
		}
	}
	resp.StopReason = normalizeStopReason(string(msg.StopReason), resp.HasToolUse())
	return resp, nil
}
