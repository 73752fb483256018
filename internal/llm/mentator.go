package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/temirov/llm-prompter/internal/config"
	"github.com/temirov/llm-prompter/internal/failure"
	"github.com/temirov/llm-prompter/internal/schema"
)

const (
	mentatorPromptPath       = "/prompt"
	mentatorLegacyPromptPath = "/promt"
)

type mentatorRequest struct {
	Model        string          `json:"model"`
	Message      mentatorMessage `json:"message"`
	DurationMsec int             `json:"durationMsec"`
	Options      mentatorOptions `json:"options"`
	Format       *mentatorFormat `json:"format,omitempty"`
}

type mentatorMessage struct {
	User   string `json:"user"`
	System string `json:"system,omitempty"`
}

type mentatorOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	TopK        *int     `json:"topK,omitempty"`
	TopP        *float64 `json:"topP,omitempty"`
	MaxTokens   *int     `json:"maxTokens,omitempty"`
}

type mentatorFormat struct {
	UseGrammar bool            `json:"useGrammar"`
	JSONSchema json.RawMessage `json:"jsonSchema"`
}

type mentatorResponse struct {
	Result *struct {
		Data json.RawMessage `json:"data"`
	} `json:"result"`
	Error json.RawMessage `json:"error"`
}

// mentatorBackend talks to a mentator server, which decodes under a grammar
// derived from the JSON schema.
type mentatorBackend struct {
	configuration config.Backend
	transport     transport
}

func (b mentatorBackend) Name() string { return b.configuration.Name }
func (b mentatorBackend) Kind() string { return config.KindMentator }

func (b mentatorBackend) ValidateSchema(schemaText string) error {
	if err := schema.Validate(schemaText); err != nil {
		return err
	}
	if _, err := schema.Grammar(schemaText); err != nil {
		return failure.Wrap(failure.ErrSchema, err, "%s: convert json schema to grammar", b.configuration.Name)
	}
	return nil
}

func (b mentatorBackend) Send(ctx context.Context, request Request) (string, error) {
	merged := sampling(b.configuration, request.Options)
	promptRequest := mentatorRequest{
		Model:        b.configuration.Model,
		Message:      mentatorMessage{User: request.User, System: request.System},
		DurationMsec: b.configuration.TimeoutMs,
		Options: mentatorOptions{
			Temperature: merged.Temperature,
			TopK:        merged.TopK,
			TopP:        merged.TopP,
			MaxTokens:   merged.MaxTokens,
		},
	}
	if request.JSONSchema != "" {
		promptRequest.Format = &mentatorFormat{UseGrammar: true, JSONSchema: json.RawMessage(strings.TrimSpace(request.JSONSchema))}
	}
	return b.transport.call(ctx, func(requestContext context.Context) (string, error) {
		body, err := b.transport.postJSON(requestContext, b.configuration.URL+b.path(), promptRequest)
		if err != nil {
			return "", err
		}
		return b.decode(body)
	})
}

func (b mentatorBackend) path() string {
	if b.configuration.LegacyEndpoint {
		return mentatorLegacyPromptPath
	}
	return mentatorPromptPath
}

// decode returns result.data, compacting it to JSON text when it is not a
// string.
func (b mentatorBackend) decode(body []byte) (string, error) {
	preview := failure.Preview(string(body), bodyPreviewLimit)
	var response mentatorResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", failure.Wrap(failure.ErrBackend, err, "%s: decode prompt response (body=%s)", b.configuration.Name, preview)
	}
	if message := errorText(response.Error); message != "" {
		return "", failure.Newf(failure.ErrBackend, "%s: %s", b.configuration.Name, message)
	}
	if response.Result == nil || isNullJSON(response.Result.Data) {
		return "", failure.Newf(failure.ErrBackend, "%s: prompt response has no result.data (body=%s)", b.configuration.Name, preview)
	}
	var text string
	if err := json.Unmarshal(response.Result.Data, &text); err != nil {
		var compacted bytes.Buffer
		if compactErr := json.Compact(&compacted, response.Result.Data); compactErr != nil {
			return "", failure.Wrap(failure.ErrBackend, compactErr, "%s: result.data", b.configuration.Name)
		}
		text = compacted.String()
	}
	if strings.TrimSpace(text) == "" {
		return "", failure.Newf(failure.ErrBackend, "%s: prompt response has empty result.data", b.configuration.Name)
	}
	return text, nil
}

func isNullJSON(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}

func errorText(raw json.RawMessage) string {
	if isNullJSON(raw) {
		return ""
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return strings.TrimSpace(asString)
	}
	switch strings.TrimSpace(string(raw)) {
	case "{}", "[]", "false":
		return ""
	}
	return failure.Preview(string(raw), bodyPreviewLimit)
}
