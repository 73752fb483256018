// Package prompts loads ordered prompt stages from prompt documents.
//
// Each template file is one stage. A file holds one or more candidate prompts
// written as blocks:
//
//	$$begin
//	$$options
//	temperature: 0.1
//	$$system
//	You are a database expert.
//	$$user
//	Describe {{code}} given {{json}}
//	$$jsonresponse
//	{"type": "object"}
//	$$segment=convert
//	fence
//	json
//	$$end
//
// Text outside blocks is ignored. A file with no $$begin line is a single
// candidate whose user text is the whole file.
package prompts

import (
	"github.com/temirov/llm-prompter/internal/failure"
	"github.com/temirov/llm-prompter/internal/fsops"
)

const (
	mixedSchemaErrorFormat     = "prompt %s (stage %d, candidate %d) %s a json schema but prompt %s (stage %d, candidate %d) %s"
	missingTemplateErrorFormat = "template file for stage %d (%s) does not exist"
)

// Mode is the pipeline mode implied by the shape of a stage list.
type Mode string

const (
	ModeBasic    Mode = "basic"
	ModeTemplate Mode = "template"
	ModeJSONPipe Mode = "json-pipe"
)

// SamplingOptions overrides backend sampling parameters for one prompt.
type SamplingOptions struct {
	Temperature *float64 `yaml:"temperature"`
	TopK        *int     `yaml:"top_k"`
	TopP        *float64 `yaml:"top_p"`
	MaxTokens   *int     `yaml:"max_tokens"`
}

// Prompt is one candidate prompt of a stage.
type Prompt struct {
	StageIndex      int
	PositionInStage int
	System          string
	User            string
	JSONSchema      string
	Options         SamplingOptions
	Convert         []string
	Source          string
}

// StageList is the ordered, validated set of prompts for a run.
type StageList struct {
	prompts []Prompt
}

// NewStageList validates that either every prompt carries a JSON schema or
// none does.
func NewStageList(prompts []Prompt) (StageList, error) {
	for index := 1; index < len(prompts); index++ {
		first, current := prompts[0], prompts[index]
		if (first.JSONSchema != "") != (current.JSONSchema != "") {
			return StageList{}, failure.Newf(failure.ErrConfig, mixedSchemaErrorFormat,
				first.Source, first.StageIndex, first.PositionInStage, declares(first),
				current.Source, current.StageIndex, current.PositionInStage, declares(current))
		}
	}
	return StageList{prompts: append([]Prompt(nil), prompts...)}, nil
}

func declares(prompt Prompt) string {
	if prompt.JSONSchema != "" {
		return "declares"
	}
	return "does not declare"
}

// Load reads files in order; the file position becomes the stage index. Any
// failure aborts the whole load.
func Load(store fsops.Store, files []string) (StageList, error) {
	var loaded []Prompt
	for stageIndex, file := range files {
		if !store.FileExists(file) {
			return StageList{}, failure.Newf(failure.ErrConfig, missingTemplateErrorFormat, stageIndex, file)
		}
		content, err := store.ReadText(file)
		if err != nil {
			return StageList{}, err
		}
		parsed, err := Parse(file, content, stageIndex)
		if err != nil {
			return StageList{}, err
		}
		loaded = append(loaded, parsed...)
	}
	return NewStageList(loaded)
}

func (l StageList) Len() int { return len(l.prompts) }

// Prompts returns a copy of all prompts in stage, candidate order.
func (l StageList) Prompts() []Prompt { return append([]Prompt(nil), l.prompts...) }

// Groups returns the prompts split by stage, in stage order.
func (l StageList) Groups() [][]Prompt {
	var groups [][]Prompt
	for _, prompt := range l.prompts {
		last := len(groups) - 1
		if last < 0 || groups[last][0].StageIndex != prompt.StageIndex {
			groups = append(groups, []Prompt{prompt})
			continue
		}
		groups[last] = append(groups[last], prompt)
	}
	return groups
}

func (l StageList) Mode() Mode {
	switch {
	case len(l.prompts) == 0:
		return ModeBasic
	case l.prompts[0].JSONSchema != "":
		return ModeJSONPipe
	default:
		return ModeTemplate
	}
}

// WithSchema returns the prompts that carry a JSON schema.
func (l StageList) WithSchema() []Prompt {
	var withSchema []Prompt
	for _, prompt := range l.prompts {
		if prompt.JSONSchema != "" {
			withSchema = append(withSchema, prompt)
		}
	}
	return withSchema
}
