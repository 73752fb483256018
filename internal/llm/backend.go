package llm

import (
	"context"
	"net/http"

	"github.com/temirov/llm-prompter/internal/config"
	"github.com/temirov/llm-prompter/internal/failure"
	"github.com/temirov/llm-prompter/internal/prompts"
)

// Request is the canonical prompt sent to every backend kind.
type Request struct {
	System     string
	User       string
	JSONSchema string
	Options    prompts.SamplingOptions
}

// Backend sends one prompt to one configured AI server and returns the
// answer text. Implementations make exactly one HTTP call per Send.
type Backend interface {
	Name() string
	Kind() string
	// ValidateSchema reports failure.ErrSchema when the backend cannot use schema.
	ValidateSchema(schema string) error
	Send(ctx context.Context, request Request) (string, error)
}

// New builds the backend variant for configuration.
func New(configuration config.Backend) (Backend, error) {
	return newWithClient(configuration, &http.Client{})
}

func newWithClient(configuration config.Backend, httpClient *http.Client) (Backend, error) {
	shared := newTransport(configuration, httpClient)
	switch configuration.Kind {
	case config.KindOpenAPI:
		return newOpenAPIBackend(configuration, shared), nil
	case config.KindOllama:
		return ollamaBackend{configuration: configuration, transport: shared}, nil
	case config.KindMentator:
		return mentatorBackend{configuration: configuration, transport: shared}, nil
	default:
		return nil, failure.Newf(failure.ErrConfig, "backend %s: unknown kind %q", configuration.Name, configuration.Kind)
	}
}

// sampling merges per-prompt overrides over the backend defaults.
func sampling(configuration config.Backend, override prompts.SamplingOptions) prompts.SamplingOptions {
	merged := prompts.SamplingOptions{
		Temperature: configuration.Temperature,
		TopK:        configuration.TopK,
		TopP:        configuration.TopP,
		MaxTokens:   configuration.MaxTokens,
	}
	if override.Temperature != nil {
		merged.Temperature = override.Temperature
	}
	if override.TopK != nil {
		merged.TopK = override.TopK
	}
	if override.TopP != nil {
		merged.TopP = override.TopP
	}
	if override.MaxTokens != nil {
		merged.MaxTokens = override.MaxTokens
	}
	if merged.MaxTokens != nil && *merged.MaxTokens <= 0 {
		merged.MaxTokens = nil
	}
	return merged
}
