package pipeline

import (
	"github.com/temirov/llm-prompter/internal/llm"
)

// Options locates payloads and answers and names the placeholder tokens.
type Options struct {
	PayloadDir         string
	AnswerDir          string
	PayloadPlaceholder string
	JSONPlaceholder    string
}

// Payload is one input file, named relative to the payload directory.
type Payload struct {
	Name string
	Text string
}

// Summary counts payload outcomes of one run.
type Summary struct {
	Total   int
	Success int
	Skipped int
	Error   int
}

// Backend is the model endpoint contract the engine drives.
type Backend = llm.Backend
