package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/temirov/llm-prompter/internal/failure"
)

// Backend kinds.
const (
	KindOpenAPI  = "openapi"
	KindOllama   = "ollama"
	KindMentator = "mentator"
)

// Log modes.
const (
	LogModeRewrite = "rewrite"
	LogModeAppend  = "append"
)

const (
	defaultBackendNameFormat   = "ai-%d"
	defaultTimeoutMilliseconds = 600000
	defaultNumCtx              = 32768

	emptyBackendsErrorMessage         = "config.ai is empty"
	unknownKindErrorFormat            = "ai[%d] (%s): unknown kind %q (expected openapi, ollama or mentator)"
	missingURLErrorFormat             = "ai[%d] (%s): url is empty"
	missingModelErrorFormat           = "ai[%d] (%s): model is empty"
	nonPositiveTimeoutErrorFormat     = "ai[%d] (%s): timeout_ms must be positive"
	negativeRateErrorFormat           = "ai[%d] (%s): requests_per_minute must not be negative"
	duplicateBackendErrorFormat       = "ai[%d]: duplicate backend name %q"
	invalidBackendNameErrorFormat     = "ai[%d]: backend name %q must be usable as a directory name"
	missingPayloadDirErrorMessage     = "prompt.dir is empty"
	missingAnswerDirErrorMessage      = "answer.dir is empty"
	samePlaceholdersErrorFormat       = "prompt.payload_placeholder and prompt.json_placeholder are both %q"
	missingPayloadPlaceholderErrorMsg = "prompt.payload_placeholder is empty but templates are configured"
	unknownLogModeErrorFormat         = "log.mode %q is not rewrite or append"
	unknownLogFormatErrorFormat       = "log.format %q is not console or json"
)

// Root is the whole configuration document.
type Root struct {
	Log    Log       `mapstructure:"log" yaml:"log"`
	AI     []Backend `mapstructure:"ai" yaml:"ai"`
	Prompt Prompt    `mapstructure:"prompt" yaml:"prompt"`
	Answer Answer    `mapstructure:"answer" yaml:"answer"`
}

type Log struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Dir    string `mapstructure:"dir" yaml:"dir"`
	Mode   string `mapstructure:"mode" yaml:"mode"`
}

// Backend describes one AI backend. Sampling fields are optional; nil means
// the server default.
type Backend struct {
	Name              string   `mapstructure:"name" yaml:"name"`
	Kind              string   `mapstructure:"kind" yaml:"kind"`
	URL               string   `mapstructure:"url" yaml:"url"`
	APIKey            string   `mapstructure:"api_key" yaml:"api_key"`
	APIKeyEnv         string   `mapstructure:"api_key_env" yaml:"api_key_env"`
	Model             string   `mapstructure:"model" yaml:"model"`
	TimeoutMs         int      `mapstructure:"timeout_ms" yaml:"timeout_ms"`
	NumCtx            int      `mapstructure:"num_ctx" yaml:"num_ctx"`
	NumCtxDynamic     bool     `mapstructure:"num_ctx_dynamic" yaml:"num_ctx_dynamic"`
	Temperature       *float64 `mapstructure:"temperature" yaml:"temperature"`
	TopK              *int     `mapstructure:"top_k" yaml:"top_k"`
	TopP              *float64 `mapstructure:"top_p" yaml:"top_p"`
	MaxTokens         *int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	RequestsPerMinute int      `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
	LegacyEndpoint    bool     `mapstructure:"legacy_endpoint" yaml:"legacy_endpoint"`
}

type Prompt struct {
	Dir                string   `mapstructure:"dir" yaml:"dir"`
	TemplateDir        string   `mapstructure:"template_dir" yaml:"template_dir"`
	TemplateFiles      []string `mapstructure:"template_files" yaml:"template_files"`
	PayloadPlaceholder string   `mapstructure:"payload_placeholder" yaml:"payload_placeholder"`
	JSONPlaceholder    string   `mapstructure:"json_placeholder" yaml:"json_placeholder"`
}

type Answer struct {
	Dir     string `mapstructure:"dir" yaml:"dir"`
	HashDir string `mapstructure:"hash_dir" yaml:"hash_dir"`
}

// Timeout returns the per-request timeout.
func (b Backend) Timeout() time.Duration {
	return time.Duration(b.TimeoutMs) * time.Millisecond
}

// ResolvedAPIKey returns api_key, or the value of the environment variable
// named by api_key_env.
func (b Backend) ResolvedAPIKey() string {
	if b.APIKey != "" {
		return b.APIKey
	}
	if b.APIKeyEnv != "" {
		return os.Getenv(b.APIKeyEnv)
	}
	return ""
}

// TemplatePaths resolves template files against prompt.template_dir.
func (p Prompt) TemplatePaths() []string {
	resolved := make([]string, 0, len(p.TemplateFiles))
	for _, file := range p.TemplateFiles {
		if file = strings.TrimSpace(file); file == "" {
			continue
		}
		if !filepath.IsAbs(file) && p.TemplateDir != "" {
			file = filepath.Join(p.TemplateDir, file)
		}
		resolved = append(resolved, file)
	}
	return resolved
}

// ApplyDefaults fills in backend names and numeric defaults left unset.
func (root *Root) ApplyDefaults() {
	for index := range root.AI {
		backend := &root.AI[index]
		backend.Kind = strings.ToLower(strings.TrimSpace(backend.Kind))
		backend.URL = strings.TrimRight(strings.TrimSpace(backend.URL), "/")
		if strings.TrimSpace(backend.Name) == "" {
			backend.Name = fmt.Sprintf(defaultBackendNameFormat, index)
		}
		if backend.TimeoutMs == 0 {
			backend.TimeoutMs = defaultTimeoutMilliseconds
		}
		if backend.NumCtx == 0 {
			backend.NumCtx = defaultNumCtx
		}
	}
	root.Log.Mode = strings.ToLower(strings.TrimSpace(root.Log.Mode))
	if root.Log.Mode == "" {
		root.Log.Mode = LogModeRewrite
	}
	root.Log.Format = strings.ToLower(strings.TrimSpace(root.Log.Format))
}

// Validate reports the first problem as a failure.ErrConfig error.
func (root Root) Validate() error {
	if len(root.AI) == 0 {
		return failure.Newf(failure.ErrConfig, emptyBackendsErrorMessage)
	}
	seenNames := make(map[string]bool, len(root.AI))
	for index, backend := range root.AI {
		switch backend.Kind {
		case KindOpenAPI, KindOllama, KindMentator:
		default:
			return failure.Newf(failure.ErrConfig, unknownKindErrorFormat, index, backend.Name, backend.Kind)
		}
		if backend.URL == "" {
			return failure.Newf(failure.ErrConfig, missingURLErrorFormat, index, backend.Name)
		}
		if strings.TrimSpace(backend.Model) == "" {
			return failure.Newf(failure.ErrConfig, missingModelErrorFormat, index, backend.Name)
		}
		if backend.TimeoutMs <= 0 {
			return failure.Newf(failure.ErrConfig, nonPositiveTimeoutErrorFormat, index, backend.Name)
		}
		if backend.RequestsPerMinute < 0 {
			return failure.Newf(failure.ErrConfig, negativeRateErrorFormat, index, backend.Name)
		}
		if strings.ContainsAny(backend.Name, `/\`) || backend.Name == "." || backend.Name == ".." {
			return failure.Newf(failure.ErrConfig, invalidBackendNameErrorFormat, index, backend.Name)
		}
		if seenNames[backend.Name] {
			return failure.Newf(failure.ErrConfig, duplicateBackendErrorFormat, index, backend.Name)
		}
		seenNames[backend.Name] = true
	}
	if strings.TrimSpace(root.Prompt.Dir) == "" {
		return failure.Newf(failure.ErrConfig, missingPayloadDirErrorMessage)
	}
	if strings.TrimSpace(root.Answer.Dir) == "" {
		return failure.Newf(failure.ErrConfig, missingAnswerDirErrorMessage)
	}
	if root.Prompt.PayloadPlaceholder != "" && root.Prompt.PayloadPlaceholder == root.Prompt.JSONPlaceholder {
		return failure.Newf(failure.ErrConfig, samePlaceholdersErrorFormat, root.Prompt.PayloadPlaceholder)
	}
	if len(root.Prompt.TemplatePaths()) > 0 && root.Prompt.PayloadPlaceholder == "" {
		return failure.Newf(failure.ErrConfig, missingPayloadPlaceholderErrorMsg)
	}
	switch root.Log.Mode {
	case LogModeRewrite, LogModeAppend:
	default:
		return failure.Newf(failure.ErrConfig, unknownLogModeErrorFormat, root.Log.Mode)
	}
	switch root.Log.Format {
	case "", "console", "json":
	default:
		return failure.Newf(failure.ErrConfig, unknownLogFormatErrorFormat, root.Log.Format)
	}
	return nil
}
