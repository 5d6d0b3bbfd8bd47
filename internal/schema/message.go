package schema

import (
	"encoding/json"
	"fmt"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// BlockType discriminates the variants of ContentBlock.
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockImage      BlockType = "image"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
)

// ContentBlock is one element of a message body. The set of implementations
// is closed: TextBlock, ImageBlock, ToolUseBlock and ToolResultBlock.
type ContentBlock interface {
	BlockType() BlockType
	contentBlock()
}

// TextBlock is plain text authored by the user or the model.
type TextBlock struct {
	Text string `json:"text"`
}

// ImageBlock is an inline image. Data is base64 encoded.
type ImageBlock struct {
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// ToolUseBlock is a model request to invoke a tool.
type ToolUseBlock struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// ToolResultBlock answers the ToolUseBlock with the same ID.
type ToolResultBlock struct {
	ToolUseID string `json:"tool_use_id"`
	Content   string `json:"content"`
	IsError   bool   `json:"is_error"`
}

func (TextBlock) BlockType() BlockType       { return BlockText }
func (ImageBlock) BlockType() BlockType      { return BlockImage }
func (ToolUseBlock) BlockType() BlockType    { return BlockToolUse }
func (ToolResultBlock) BlockType() BlockType { return BlockToolResult }

func (TextBlock) contentBlock()       {}
func (ImageBlock) contentBlock()      {}
func (ToolUseBlock) contentBlock()    {}
func (ToolResultBlock) contentBlock() {}

// Message is one entry in the conversation history. Messages are treated as
// immutable once appended to a Messages list.
type Message struct {
	Role    Role
	Content []ContentBlock
}

// Text concatenates all text blocks of the message.
func (m Message) Text() string {
	var out string
	for _, b := range m.Content {
		if t, ok := b.(TextBlock); ok {
			out += t.Text
		}
	}
	return out
}

// ToolUses returns the tool_use blocks of the message in order.
func (m Message) ToolUses() []ToolUseBlock {
	var out []ToolUseBlock
	for _, b := range m.Content {
		if tu, ok := b.(ToolUseBlock); ok {
			out = append(out, tu)
		}
	}
	return out
}

type wireMessage struct {
	Role    Role              `json:"role"`
	Content []json.RawMessage `json:"content"`
}

// MarshalJSON encodes each block with its "type" discriminator.
func (m Message) MarshalJSON() ([]byte, error) {
	w := wireMessage{Role: m.Role, Content: make([]json.RawMessage, 0, len(m.Content))}
	for _, b := range m.Content {
		raw, err := marshalBlock(b)
		if err != nil {
			return nil, err
		}
		w.Content = append(w.Content, raw)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes blocks by their "type" discriminator.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	m.Role = w.Role
	m.Content = make([]ContentBlock, 0, len(w.Content))
	for _, raw := range w.Content {
		b, err := unmarshalBlock(raw)
		if err != nil {
			return err
		}
		m.Content = append(m.Content, b)
	}
	return nil
}

func marshalBlock(b ContentBlock) ([]byte, error) {
	switch v := b.(type) {
	case TextBlock:
		return json.Marshal(struct {
			Type BlockType `json:"type"`
			TextBlock
		}{BlockText, v})
	case ImageBlock:
		return json.Marshal(struct {
			Type BlockType `json:"type"`
			ImageBlock
		}{BlockImage, v})
	case ToolUseBlock:
		return json.Marshal(struct {
			Type BlockType `json:"type"`
			ToolUseBlock
		}{BlockToolUse, v})
	case ToolResultBlock:
		return json.Marshal(struct {
			Type BlockType `json:"type"`
			ToolResultBlock
		}{BlockToolResult, v})
	}
	return nil, fmt.Errorf("unknown content block %T", b)
}

func unmarshalBlock(raw json.RawMessage) (ContentBlock, error) {
	var head struct {
		Type BlockType `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, err
	}
	switch head.Type {
	case BlockText:
		var b TextBlock
		err := json.Unmarshal(raw, &b)
		return b, err
	case BlockImage:
		var b ImageBlock
		err := json.Unmarshal(raw, &b)
		return b, err
	case BlockToolUse:
		var b ToolUseBlock
		err := json.Unmarshal(raw, &b)
		return b, err
	case BlockToolResult:
		var b ToolResultBlock
		err := json.Unmarshal(raw, &b)
		return b, err
	}
	return nil, fmt.Errorf("unknown content block type %q", head.Type)
}
