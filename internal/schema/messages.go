package schema

// Messages is the ordered, append-only history exchanged with the LLM.
// It owns typed append methods so callers never assemble raw blocks.
type Messages struct {
	Messages []Message
}

// NewMessages returns a Messages initialised with the given messages.
// Called with no arguments it returns an empty Messages ready for use.
func NewMessages(msgs ...Message) Messages {
	if len(msgs) == 0 {
		return Messages{Messages: make([]Message, 0)}
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return Messages{Messages: out}
}

// AddUser appends a user message made of the prompt text followed by images.
// An empty prompt with no images is a no-op.
func (mh *Messages) AddUser(text string, images ...ImageBlock) {
	if text == "" && len(images) == 0 {
		return
	}
	content := make([]ContentBlock, 0, len(images)+1)
	for _, img := range images {
		content = append(content, img)
	}
	if text != "" {
		content = append(content, TextBlock{Text: text})
	}
	mh.Messages = append(mh.Messages, Message{Role: RoleUser, Content: content})
}

// AddAssistant appends the model's response blocks.
func (mh *Messages) AddAssistant(content []ContentBlock) {
	mh.Messages = append(mh.Messages, Message{Role: RoleAssistant, Content: content})
}

// AddToolResults appends a single user message carrying every result of one
// model turn.
func (mh *Messages) AddToolResults(results []ToolResultBlock) {
	if len(results) == 0 {
		return
	}
	content := make([]ContentBlock, 0, len(results))
	for _, r := range results {
		content = append(content, r)
	}
	mh.Messages = append(mh.Messages, Message{Role: RoleUser, Content: content})
}

// Len returns the number of messages.
func (mh Messages) Len() int { return len(mh.Messages) }

// Last returns the most recent message, or false when empty.
func (mh Messages) Last() (Message, bool) {
	if len(mh.Messages) == 0 {
		return Message{}, false
	}
	return mh.Messages[len(mh.Messages)-1], true
}

// Clone returns a copy whose slice can be appended to independently.
// Messages themselves are shared since they are never mutated in place.
func (mh Messages) Clone() Messages {
	return NewMessages(mh.Messages...)
}
