package prompt

import (
	"ai-therapist-be/pkg/llm"
)

// Builder assembles the generation request for one exchange: the fixed
// therapist persona, a bounded window of prior conversation, and the new
// user message.
type Builder struct {
	systemPrompt  string
	history       []llm.Message
	userMessage   string
	historyWindow int
}

func NewBuilder(systemPrompt string, historyWindow int) *Builder {
	if historyWindow <= 0 {
		historyWindow = 5
	}
	return &Builder{
		systemPrompt:  systemPrompt,
		historyWindow: historyWindow,
	}
}

// WithHistory sets prior messages, oldest first. Only the last
// historyWindow entries are kept.
func (b *Builder) WithHistory(history []llm.Message) *Builder {
	if len(history) > b.historyWindow {
		history = history[len(history)-b.historyWindow:]
	}
	b.history = history
	return b
}

func (b *Builder) WithUserMessage(text string) *Builder {
	b.userMessage = text
	return b
}

// Build returns the provider-ready message sequence:
// system persona, trimmed context, then the new user message.
func (b *Builder) Build() []llm.Message {
	messages := make([]llm.Message, 0, len(b.history)+2)

	messages = append(messages, llm.Message{
		Role:    "system",
		Content: b.systemPrompt,
	})

	messages = append(messages, b.history...)

	messages = append(messages, llm.Message{
		Role:    "user",
		Content: b.userMessage,
	})

	return messages
}
