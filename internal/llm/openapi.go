package llm

import (
	"context"
	"encoding/json"
	"math"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/temirov/llm-prompter/internal/config"
	"github.com/temirov/llm-prompter/internal/failure"
	"github.com/temirov/llm-prompter/internal/schema"
)

const (
	openAPIPathPrefix      = "/v1"
	openAPIResponseSchema  = "answer"
	openAPINoChoicesFormat = "%s: chat completion returned no choices"
	openAPIEmptyFormat     = "%s: chat completion returned empty message (finish_reason=%s)"
)

// openAPIBackend talks to any OpenAI-compatible chat completions endpoint.
type openAPIBackend struct {
	configuration config.Backend
	transport     transport
	api           *openai.Client
}

func newOpenAPIBackend(configuration config.Backend, shared transport) openAPIBackend {
	clientConfig := openai.DefaultConfig(shared.apiKey)
	clientConfig.BaseURL = configuration.URL + openAPIPathPrefix
	clientConfig.HTTPClient = shared.httpClient
	return openAPIBackend{
		configuration: configuration,
		transport:     shared,
		api:           openai.NewClientWithConfig(clientConfig),
	}
}

func (b openAPIBackend) Name() string { return b.configuration.Name }
func (b openAPIBackend) Kind() string { return config.KindOpenAPI }

func (b openAPIBackend) ValidateSchema(schemaText string) error {
	return schema.Validate(schemaText)
}

func (b openAPIBackend) Send(ctx context.Context, request Request) (string, error) {
	completionRequest := b.completionRequest(request)
	return b.transport.call(ctx, func(requestContext context.Context) (string, error) {
		response, err := b.api.CreateChatCompletion(requestContext, completionRequest)
		if err != nil {
			return "", failure.Wrap(failure.ErrBackend, err, "%s: chat completion", b.configuration.Name)
		}
		if len(response.Choices) == 0 {
			return "", failure.Newf(failure.ErrBackend, openAPINoChoicesFormat, b.configuration.Name)
		}
		choice := response.Choices[0]
		if strings.TrimSpace(choice.Message.Content) == "" {
			return "", failure.Newf(failure.ErrBackend, openAPIEmptyFormat, b.configuration.Name, choice.FinishReason)
		}
		return choice.Message.Content, nil
	})
}

func (b openAPIBackend) completionRequest(request Request) openai.ChatCompletionRequest {
	messages := chatMessages(request.System, request.User)
	completionRequest := openai.ChatCompletionRequest{
		Model:    b.configuration.Model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, message := range messages {
		completionRequest.Messages = append(completionRequest.Messages, openai.ChatCompletionMessage{
			Role:    message.Role,
			Content: message.Content,
		})
	}

	options := sampling(b.configuration, request.Options)
	if options.Temperature != nil {
		completionRequest.Temperature = float32(*options.Temperature)
		if completionRequest.Temperature == 0 {
			// The field is omitempty; a zero would fall back to the server default.
			completionRequest.Temperature = math.SmallestNonzeroFloat32
		}
	}
	if options.TopP != nil {
		completionRequest.TopP = float32(*options.TopP)
	}
	if options.MaxTokens != nil {
		completionRequest.MaxTokens = *options.MaxTokens
	}

	if request.JSONSchema != "" {
		completionRequest.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   openAPIResponseSchema,
				Schema: json.RawMessage(strings.TrimSpace(request.JSONSchema)),
			},
		}
	}
	return completionRequest
}
