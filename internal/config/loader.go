package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/temirov/llm-prompter/internal/failure"
	"github.com/temirov/llm-prompter/internal/fsops"
)

const (
	embeddedConfigurationReference = "embedded default configuration"
	// EmbeddedConfigurationReference identifies the embedded fallback configuration source.
	EmbeddedConfigurationReference              = embeddedConfigurationReference
	explicitConfigurationReadErrorFormat        = "read explicit configuration %s"
	loaderInitializationWorkingDirectoryError   = "determine working directory"
	loaderHomeEnvironmentVariableName           = "HOME"
	workingDirectoryConfigurationFileName       = "llm-prompter.yaml"
	homeDirectoryConfigurationRelativeDirectory = ".llm-prompter"
	homeDirectoryConfigurationFileName          = "config.yaml"
	configurationEmptyContentErrorFormat        = "configuration %s is empty"
	configurationParseErrorFormat               = "parse configuration %s"
	configurationDecodeErrorFormat              = "decode configuration %s"
	configurationInvalidErrorFormat             = "configuration %s"
	environmentVariablePrefix                   = "LLM_PROMPTER"
	// TemplateFileName is the file written by WriteTemplate.
	TemplateFileName = "llm-prompter.TEMPLATE.yaml"
)

var (
	//go:embed default_configuration.yaml
	embeddedConfigurationBytes []byte
)

// Source holds the raw configuration data and its origin.
type Source struct {
	Reference string
	Content   []byte
}

// Loader locates configuration files across supported search paths.
type Loader struct {
	workingDirectory string
	homeDirectory    string
	fileReader       func(string) ([]byte, error)
}

// NewLoader constructs a loader with the provided directories.
func NewLoader(workingDirectory string, homeDirectory string) Loader {
	return Loader{
		workingDirectory: workingDirectory,
		homeDirectory:    homeDirectory,
		fileReader:       os.ReadFile,
	}
}

// NewDefaultLoader builds a loader using the process working directory and HOME.
func NewDefaultLoader() (Loader, error) {
	workingDirectory, workingDirectoryError := os.Getwd()
	if workingDirectoryError != nil {
		return Loader{}, failure.Wrap(failure.ErrIO, workingDirectoryError, loaderInitializationWorkingDirectoryError)
	}
	homeDirectory := os.Getenv(loaderHomeEnvironmentVariableName)
	return NewLoader(workingDirectory, homeDirectory), nil
}

type configurationCandidate struct {
	path       string
	isExplicit bool
}

// Locate resolves the configuration source using the preferred search order:
// explicit path, working directory, home directory, embedded default.
func (loader Loader) Locate(explicitPath string) (Source, error) {
	for _, candidate := range loader.candidates(explicitPath) {
		if candidate.path == "" {
			continue
		}
		content, readError := loader.fileReader(candidate.path)
		if readError != nil {
			if candidate.isExplicit && !errors.Is(readError, fs.ErrNotExist) && !errors.Is(readError, fs.ErrPermission) {
				return Source{}, failure.Wrap(failure.ErrConfig, readError, explicitConfigurationReadErrorFormat, candidate.path)
			}
			continue
		}
		return Source{Reference: candidate.path, Content: content}, nil
	}
	return Source{Reference: embeddedConfigurationReference, Content: embeddedConfigurationBytes}, nil
}

// Load locates, decodes, defaults and validates the configuration.
func (loader Loader) Load(explicitPath string) (Root, Source, error) {
	source, err := loader.Locate(explicitPath)
	if err != nil {
		return Root{}, Source{}, err
	}
	root, err := Parse(source)
	if err != nil {
		return Root{}, source, err
	}
	return root, source, nil
}

// Parse decodes a configuration source with environment overrides
// (LLM_PROMPTER_ANSWER_DIR overrides answer.dir), then applies defaults and
// validates the result.
func Parse(source Source) (Root, error) {
	if len(bytes.TrimSpace(source.Content)) == 0 {
		return Root{}, failure.Newf(failure.ErrConfig, configurationEmptyContentErrorFormat, source.Reference)
	}
	configurationReader := newViper()
	if err := configurationReader.ReadConfig(bytes.NewReader(source.Content)); err != nil {
		return Root{}, failure.Wrap(failure.ErrConfig, err, configurationParseErrorFormat, source.Reference)
	}
	var root Root
	if err := configurationReader.Unmarshal(&root); err != nil {
		return Root{}, failure.Wrap(failure.ErrConfig, err, configurationDecodeErrorFormat, source.Reference)
	}
	root.ApplyDefaults()
	if err := root.Validate(); err != nil {
		return Root{}, failure.Wrap(failure.ErrConfig, err, configurationInvalidErrorFormat, source.Reference)
	}
	return root, nil
}

func newViper() *viper.Viper {
	configurationReader := viper.New()
	configurationReader.SetConfigType("yaml")
	configurationReader.SetEnvPrefix(environmentVariablePrefix)
	configurationReader.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configurationReader.AutomaticEnv()
	setDefaults(configurationReader)
	return configurationReader
}

// setDefaults registers every scalar key so AutomaticEnv can override it.
func setDefaults(configurationReader *viper.Viper) {
	configurationReader.SetDefault("log.level", "info")
	configurationReader.SetDefault("log.format", "console")
	configurationReader.SetDefault("log.dir", "")
	configurationReader.SetDefault("log.mode", LogModeRewrite)
	configurationReader.SetDefault("prompt.dir", "")
	configurationReader.SetDefault("prompt.template_dir", "")
	configurationReader.SetDefault("prompt.template_files", []string{})
	configurationReader.SetDefault("prompt.payload_placeholder", "{{code}}")
	configurationReader.SetDefault("prompt.json_placeholder", "{{json}}")
	configurationReader.SetDefault("answer.dir", "")
	configurationReader.SetDefault("answer.hash_dir", "")
}

// WriteTemplate writes the embedded default configuration into directory and
// returns the written path.
func WriteTemplate(store fsops.Store, directory string) (string, error) {
	templatePath := filepath.Join(directory, TemplateFileName)
	if err := store.WriteText(templatePath, string(embeddedConfigurationBytes)); err != nil {
		return "", fmt.Errorf("create configuration template: %w", err)
	}
	return templatePath, nil
}

func (loader Loader) candidates(explicitPath string) []configurationCandidate {
	homeDirectoryCandidate := loader.homeDirectoryCandidate()
	workingDirectoryCandidate := loader.workingDirectoryCandidate()
	explicitCandidate := configurationCandidate{path: explicitPath, isExplicit: explicitPath != ""}
	return []configurationCandidate{explicitCandidate, workingDirectoryCandidate, homeDirectoryCandidate}
}

func (loader Loader) workingDirectoryCandidate() configurationCandidate {
	if loader.workingDirectory == "" {
		return configurationCandidate{}
	}
	workingDirectoryPath := filepath.Join(loader.workingDirectory, workingDirectoryConfigurationFileName)
	return configurationCandidate{path: workingDirectoryPath}
}

func (loader Loader) homeDirectoryCandidate() configurationCandidate {
	if loader.homeDirectory == "" {
		return configurationCandidate{}
	}
	configurationDirectory := filepath.Join(loader.homeDirectory, homeDirectoryConfigurationRelativeDirectory)
	configurationPath := filepath.Join(configurationDirectory, homeDirectoryConfigurationFileName)
	return configurationCandidate{path: configurationPath}
}
