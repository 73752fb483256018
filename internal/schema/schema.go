// Package schema checks JSON Schemas attached to prompts and converts them to
// GBNF grammars for backends that decode under a formal grammar.
package schema

import (
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/temirov/llm-prompter/internal/failure"
)

const schemaResourceURL = "mem://prompt/schema.json"

// Validate reports a failure.ErrSchema error when text is not a well-formed
// JSON Schema.
func Validate(text string) error {
	if strings.TrimSpace(text) == "" {
		return failure.Newf(failure.ErrSchema, "empty json schema")
	}
	if !json.Valid([]byte(text)) {
		return failure.Newf(failure.ErrSchema, "json schema is not valid json")
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(schemaResourceURL, strings.NewReader(text)); err != nil {
		return failure.Wrap(failure.ErrSchema, err, "load json schema")
	}
	if _, err := compiler.Compile(schemaResourceURL); err != nil {
		return failure.Wrap(failure.ErrSchema, err, "compile json schema")
	}
	return nil
}
