package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/temirov/llm-prompter/internal/config"
	"github.com/temirov/llm-prompter/internal/failure"
	"github.com/temirov/llm-prompter/internal/schema"
)

const ollamaChatPath = "/api/chat"

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []chatMessage   `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *ollamaOptions  `json:"options,omitempty"`
	Format   json.RawMessage `json:"format,omitempty"`
}

type ollamaOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	TopK        *int     `json:"top_k,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	NumPredict  *int     `json:"num_predict,omitempty"`
	NumCtx      int      `json:"num_ctx,omitempty"`
}

// ollamaChatResponse accepts the native shape and the OpenAI-compatible one
// returned by some proxies.
type ollamaChatResponse struct {
	Message *chatMessageResponse   `json:"message"`
	Choices []chatCompletionChoice `json:"choices"`
	Error   string                 `json:"error"`
}

type ollamaBackend struct {
	configuration config.Backend
	transport     transport
}

func (b ollamaBackend) Name() string { return b.configuration.Name }
func (b ollamaBackend) Kind() string { return config.KindOllama }

func (b ollamaBackend) ValidateSchema(schemaText string) error {
	return schema.Validate(schemaText)
}

func (b ollamaBackend) Send(ctx context.Context, request Request) (string, error) {
	chatRequest := ollamaChatRequest{
		Model:    b.configuration.Model,
		Messages: chatMessages(request.System, request.User),
		Options:  b.options(request),
	}
	if request.JSONSchema != "" {
		chatRequest.Format = json.RawMessage(strings.TrimSpace(request.JSONSchema))
	}
	return b.transport.call(ctx, func(requestContext context.Context) (string, error) {
		body, err := b.transport.postJSON(requestContext, b.configuration.URL+ollamaChatPath, chatRequest)
		if err != nil {
			return "", err
		}
		return b.decode(body)
	})
}

func (b ollamaBackend) options(request Request) *ollamaOptions {
	merged := sampling(b.configuration, request.Options)
	options := ollamaOptions{
		Temperature: merged.Temperature,
		TopK:        merged.TopK,
		TopP:        merged.TopP,
		NumPredict:  merged.MaxTokens,
		NumCtx:      contextWindow(b.configuration.NumCtx, b.configuration.NumCtxDynamic, request.System, request.User),
	}
	if options == (ollamaOptions{}) {
		return nil
	}
	return &options
}

func (b ollamaBackend) decode(body []byte) (string, error) {
	preview := failure.Preview(string(body), bodyPreviewLimit)
	var response ollamaChatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", failure.Wrap(failure.ErrBackend, err, "%s: decode chat response (body=%s)", b.configuration.Name, preview)
	}
	if strings.TrimSpace(response.Error) != "" {
		return "", failure.Newf(failure.ErrBackend, "%s: %s", b.configuration.Name, response.Error)
	}
	var message chatMessageResponse
	switch {
	case response.Message != nil:
		message = *response.Message
	case len(response.Choices) > 0:
		message = response.Choices[0].Message
	default:
		return "", failure.Newf(failure.ErrBackend, "%s: chat response has no message (body=%s)", b.configuration.Name, preview)
	}
	return messageContent(b.configuration.Name, message)
}
