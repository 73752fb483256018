package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/llm-prompter/internal/answer"
	"github.com/temirov/llm-prompter/internal/failure"
	"github.com/temirov/llm-prompter/internal/fsops"
	"github.com/temirov/llm-prompter/internal/hashgate"
	"github.com/temirov/llm-prompter/internal/llm"
	"github.com/temirov/llm-prompter/internal/placeholder"
	"github.com/temirov/llm-prompter/internal/prompts"
)

const (
	answerFileExtension  = ".json"
	templateAnswerFormat = "answer-%03d-%03d.txt"
	jsonIndent           = "    "
	emptyAccumulator     = "{}"
	answerPreviewLimit   = 200

	emptyPayloadErrorFormat = "payload %s is empty"
	noBackendsErrorMessage  = "no backends configured"
	missingPayloadDirFormat = "payload dir %s does not exist"
	schemaCheckErrorFormat  = "backend %s: prompt %s (stage %d, candidate %d)"
	stageErrorFormat        = "stage %d candidate %d"
	noCandidatesErrorFormat = "stage %d has no candidates"
)

// Engine processes every payload of a run against every backend. The mode is
// fixed by the shape of Stages.
type Engine struct {
	Store    fsops.Store
	Backends []Backend
	Stages   prompts.StageList
	Gate     hashgate.Gate
	Options  Options
	Logger   *zap.Logger
}

func (e Engine) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// CheckSchemas compiles every prompt schema for every backend before any
// payload is touched.
func (e Engine) CheckSchemas() error {
	for _, backend := range e.Backends {
		checked := map[string]bool{}
		for _, prompt := range e.Stages.WithSchema() {
			if checked[prompt.JSONSchema] {
				continue
			}
			if err := backend.ValidateSchema(prompt.JSONSchema); err != nil {
				return failure.Wrap(failure.ErrSchema, err, schemaCheckErrorFormat, backend.Name(), prompt.Source, prompt.StageIndex, prompt.PositionInStage)
			}
			checked[prompt.JSONSchema] = true
		}
	}
	return nil
}

// Run processes all payloads. Per-payload failures are logged and counted;
// the returned error is reserved for problems that stop the whole run.
func (e Engine) Run(ctx context.Context) (Summary, error) {
	var summary Summary
	logger := e.logger()
	if len(e.Backends) == 0 {
		return summary, failure.Newf(failure.ErrConfig, noBackendsErrorMessage)
	}
	if err := e.CheckSchemas(); err != nil {
		return summary, err
	}
	if !e.Store.DirExists(e.Options.PayloadDir) {
		return summary, failure.Newf(failure.ErrConfig, missingPayloadDirFormat, e.Options.PayloadDir)
	}
	payloadNames, err := e.Store.ListFiles(e.Options.PayloadDir)
	if err != nil {
		return summary, err
	}
	mode := e.Stages.Mode()
	logger.Debug("prompt mode", zap.String("mode", string(mode)), zap.Int("payloads", len(payloadNames)), zap.Int("prompts", e.Stages.Len()))

	for _, payloadName := range payloadNames {
		if ctx.Err() != nil {
			break
		}
		summary.Total++
		payloadLogger := logger.With(zap.String("payload", payloadName))

		text, readErr := e.Store.ReadText(filepath.Join(e.Options.PayloadDir, filepath.FromSlash(payloadName)))
		if readErr != nil {
			summary.Error++
			payloadLogger.Error("read payload", zap.Error(readErr))
			continue
		}
		if text == "" {
			summary.Error++
			payloadLogger.Error("skip payload", zap.Error(failure.Newf(failure.ErrIO, emptyPayloadErrorFormat, payloadName)))
			continue
		}

		decision, gateErr := e.Gate.Check(payloadName, text)
		if gateErr != nil {
			summary.Error++
			payloadLogger.Error("check hash", zap.Error(gateErr))
			continue
		}
		if !decision.Process {
			summary.Skipped++
			payloadLogger.Debug("hash not changed, skip")
			continue
		}

		if processErr := e.processPayload(ctx, Payload{Name: payloadName, Text: text}, payloadLogger); processErr != nil {
			summary.Error++
			payloadLogger.Error("payload failed", zap.String("kind", failure.Kind(processErr)), zap.Error(processErr))
			continue
		}
		if commitErr := e.Gate.Commit(payloadName, decision.CurrentHash); commitErr != nil {
			summary.Error++
			payloadLogger.Error("write hash", zap.Error(commitErr))
			continue
		}
		summary.Success++
		payloadLogger.Debug("answer saved")
	}

	logger.Info("run finished",
		zap.Int("total", summary.Total),
		zap.Int("success", summary.Success),
		zap.Int("skipped", summary.Skipped),
		zap.Int("error", summary.Error))
	return summary, ctx.Err()
}

// processPayload fans the payload out to every backend. Each backend gets its
// own answer directory when there is more than one.
func (e Engine) processPayload(ctx context.Context, payload Payload, logger *zap.Logger) error {
	var failures []error
	for _, backend := range e.Backends {
		if ctx.Err() != nil {
			failures = append(failures, ctx.Err())
			break
		}
		backendLogger := logger.With(zap.String("backend", backend.Name()))
		answerDir := e.answerDir(backend)
		var err error
		switch e.Stages.Mode() {
		case prompts.ModeBasic:
			err = e.runBasic(ctx, backend, payload, answerDir)
		case prompts.ModeTemplate:
			err = e.runTemplates(ctx, backend, payload, answerDir, backendLogger)
		case prompts.ModeJSONPipe:
			err = e.runJSONPipe(ctx, backend, payload, answerDir, backendLogger)
		}
		if err != nil {
			failures = append(failures, fmt.Errorf("backend %s: %w", backend.Name(), err))
		}
	}
	return errors.Join(failures...)
}

func (e Engine) answerDir(backend Backend) string {
	if len(e.Backends) > 1 {
		return filepath.Join(e.Options.AnswerDir, backend.Name())
	}
	return e.Options.AnswerDir
}

func answerPath(answerDir string, payloadName string) string {
	return filepath.Join(answerDir, filepath.FromSlash(payloadName)+answerFileExtension)
}

// runBasic sends the payload verbatim and writes the raw answer.
func (e Engine) runBasic(ctx context.Context, backend Backend, payload Payload, answerDir string) error {
	text, err := backend.Send(ctx, llm.Request{User: payload.Text})
	if err != nil {
		return err
	}
	return e.Store.WriteText(answerPath(answerDir, payload.Name), text)
}

// runTemplates sends every prompt independently and writes one answer file
// per prompt. A failing prompt does not stop the others; succeeded answers
// are kept even though the payload is reported as failed.
func (e Engine) runTemplates(ctx context.Context, backend Backend, payload Payload, answerDir string, logger *zap.Logger) error {
	replacement := placeholder.Replacement{Find: e.Options.PayloadPlaceholder, Replace: payload.Text}
	var failures []error
	for _, prompt := range e.Stages.Prompts() {
		if ctx.Err() != nil {
			return errors.Join(append(failures, ctx.Err())...)
		}
		promptLogger := logger.With(zap.Int("stage", prompt.StageIndex), zap.Int("candidate", prompt.PositionInStage))
		text, err := backend.Send(ctx, llm.Request{
			System:  placeholder.Substitute(prompt.System, replacement),
			User:    placeholder.Substitute(prompt.User, replacement),
			Options: prompt.Options,
		})
		if err == nil {
			fileName := fmt.Sprintf(templateAnswerFormat, prompt.StageIndex, prompt.PositionInStage)
			err = e.Store.WriteText(filepath.Join(answerDir, filepath.FromSlash(payload.Name), fileName), text)
		}
		if err != nil {
			promptLogger.Error("template failed", zap.String("kind", failure.Kind(err)), zap.Error(err))
			failures = append(failures, fmt.Errorf(stageErrorFormat+": %w", prompt.StageIndex, prompt.PositionInStage, err))
			continue
		}
		promptLogger.Debug("template answer saved")
	}
	return errors.Join(failures...)
}

// runJSONPipe chains stages through an accumulated JSON value and writes the
// final value. A failed stage stops the payload and nothing is written.
func (e Engine) runJSONPipe(ctx context.Context, backend Backend, payload Payload, answerDir string, logger *zap.Logger) error {
	accumulated := json.RawMessage(emptyAccumulator)
	for _, stage := range e.Stages.Groups() {
		next, err := e.runStage(ctx, backend, payload, stage, accumulated, logger)
		if err != nil {
			return err
		}
		accumulated = next
	}
	return e.Store.WriteText(answerPath(answerDir, payload.Name), indentJSON(accumulated))
}

// runStage tries the candidates of one stage in order. The first non-empty
// object or array wins. When every candidate fails but at least one produced
// an empty value the stage yields {}.
func (e Engine) runStage(ctx context.Context, backend Backend, payload Payload, stage []prompts.Prompt, accumulated json.RawMessage, logger *zap.Logger) (json.RawMessage, error) {
	replacements := []placeholder.Replacement{
		{Find: e.Options.PayloadPlaceholder, Replace: payload.Text},
		{Find: e.Options.JSONPlaceholder, Replace: indentJSON(accumulated)},
	}
	var (
		sawEmpty bool
		lastErr  error
	)
	for _, candidate := range stage {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		candidateLogger := logger.With(zap.Int("stage", candidate.StageIndex), zap.Int("candidate", candidate.PositionInStage))
		value, empty, err := e.runCandidate(ctx, backend, candidate, replacements)
		switch {
		case err != nil:
			lastErr = fmt.Errorf(stageErrorFormat+": %w", candidate.StageIndex, candidate.PositionInStage, err)
			candidateLogger.Error("candidate failed", zap.String("kind", failure.Kind(err)), zap.Error(err))
		case empty:
			sawEmpty = true
			candidateLogger.Debug("candidate returned no data")
		default:
			candidateLogger.Debug("candidate accepted")
			return value, nil
		}
	}
	if sawEmpty {
		return json.RawMessage(emptyAccumulator), nil
	}
	if lastErr == nil && len(stage) > 0 {
		lastErr = failure.Newf(failure.ErrParse, noCandidatesErrorFormat, stage[0].StageIndex)
	}
	return nil, lastErr
}

func (e Engine) runCandidate(ctx context.Context, backend Backend, candidate prompts.Prompt, replacements []placeholder.Replacement) (json.RawMessage, bool, error) {
	raw, err := backend.Send(ctx, llm.Request{
		System:     placeholder.Substitute(candidate.System, replacements...),
		User:       placeholder.Substitute(candidate.User, replacements...),
		JSONSchema: candidate.JSONSchema,
		Options:    candidate.Options,
	})
	if err != nil {
		return nil, false, err
	}
	converted, err := answer.Convert(raw, candidate.Convert)
	if err != nil {
		return nil, false, err
	}
	return parseAnswer(converted)
}

// parseAnswer validates JSON text and reports whether it carries no data: an
// empty object or array, or a scalar.
func parseAnswer(text string) (json.RawMessage, bool, error) {
	trimmed := strings.TrimSpace(text)
	if !json.Valid([]byte(trimmed)) {
		return nil, false, failure.Newf(failure.ErrParse, "answer is not valid json: %s", failure.Preview(trimmed, answerPreviewLimit))
	}
	value := json.RawMessage(trimmed)
	switch trimmed[0] {
	case '{':
		var members map[string]json.RawMessage
		if err := json.Unmarshal(value, &members); err != nil {
			return nil, false, failure.Wrap(failure.ErrParse, err, "decode answer object")
		}
		return value, len(members) == 0, nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(value, &items); err != nil {
			return nil, false, failure.Wrap(failure.ErrParse, err, "decode answer array")
		}
		return value, len(items) == 0, nil
	default:
		return value, true, nil
	}
}

// indentJSON pretty-prints JSON text keeping member order.
func indentJSON(value json.RawMessage) string {
	var out bytes.Buffer
	if err := json.Indent(&out, value, "", jsonIndent); err != nil {
		return string(value)
	}
	return out.String()
}
