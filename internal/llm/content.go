package llm

import (
	"encoding/json"
	"strings"

	"github.com/temirov/llm-prompter/internal/failure"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatMessageResponse is the assistant message of ollama /api/chat and of
// OpenAI-compatible proxies in front of it. Both send content as a string.
type chatMessageResponse struct {
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	ToolCalls json.RawMessage `json:"tool_calls,omitempty"`
}

type chatCompletionChoice struct {
	Message      chatMessageResponse `json:"message"`
	FinishReason string              `json:"finish_reason"`
}

// chatMessages builds the message list, omitting empty roles.
func chatMessages(system string, user string) []chatMessage {
	var messages []chatMessage
	if strings.TrimSpace(system) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	if strings.TrimSpace(user) != "" {
		messages = append(messages, chatMessage{Role: "user", Content: user})
	}
	return messages
}

// messageContent returns the answer text. A model that answers with tool
// calls instead of text is a backend error; prompts never offer tools.
func messageContent(backendName string, message chatMessageResponse) (string, error) {
	if calls := strings.TrimSpace(string(message.ToolCalls)); calls != "" && calls != "null" && calls != "[]" {
		return "", failure.Newf(failure.ErrBackend, "%s: model answered with tool_calls: %s", backendName, failure.Preview(calls, toolCallsPreviewLimit))
	}
	if strings.TrimSpace(message.Content) == "" {
		return "", failure.Newf(failure.ErrBackend, "%s: chat response has empty content", backendName)
	}
	return message.Content, nil
}
