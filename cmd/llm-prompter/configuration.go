package llmprompter

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/temirov/llm-prompter/internal/config"
	"github.com/temirov/llm-prompter/internal/fsops"
	"github.com/temirov/llm-prompter/internal/hashgate"
	"github.com/temirov/llm-prompter/internal/llm"
	"github.com/temirov/llm-prompter/internal/pipeline"
	"github.com/temirov/llm-prompter/internal/prompts"
)

func loadConfiguration(configurationPath string) (config.Root, config.Source, error) {
	configurationLoader, loaderErr := config.NewDefaultLoader()
	if loaderErr != nil {
		return config.Root{}, config.Source{}, fmt.Errorf(configurationLoaderInitializationErrorFormat, loaderErr)
	}
	rootConfiguration, source, loadErr := configurationLoader.Load(configurationPath)
	if loadErr != nil {
		return config.Root{}, source, fmt.Errorf(configurationLoadErrorFormat, loadErr)
	}
	return rootConfiguration, source, nil
}

func loadStages(store fsops.Store, rootConfiguration config.Root) (prompts.StageList, error) {
	stages, err := prompts.Load(store, rootConfiguration.Prompt.TemplatePaths())
	if err != nil {
		return prompts.StageList{}, fmt.Errorf(loadPromptsErrorFormat, err)
	}
	return stages, nil
}

func buildEngine(store fsops.Store, rootConfiguration config.Root, options runCommandOptions, logger *zap.Logger) (pipeline.Engine, error) {
	stages, err := loadStages(store, rootConfiguration)
	if err != nil {
		return pipeline.Engine{}, err
	}
	backends := make([]pipeline.Backend, 0, len(rootConfiguration.AI))
	for _, backendConfiguration := range rootConfiguration.AI {
		backend, buildErr := llm.New(backendConfiguration)
		if buildErr != nil {
			return pipeline.Engine{}, fmt.Errorf(backendBuildErrorFormat, backendConfiguration.Name, buildErr)
		}
		backends = append(backends, backend)
	}
	gate := hashgate.Gate{Store: store, Force: options.force}
	if options.verifyHash {
		gate.Dir = rootConfiguration.Answer.HashDir
	}
	return pipeline.Engine{
		Store:    store,
		Backends: backends,
		Stages:   stages,
		Gate:     gate,
		Options: pipeline.Options{
			PayloadDir:         rootConfiguration.Prompt.Dir,
			AnswerDir:          rootConfiguration.Answer.Dir,
			PayloadPlaceholder: rootConfiguration.Prompt.PayloadPlaceholder,
			JSONPlaceholder:    rootConfiguration.Prompt.JSONPlaceholder,
		},
		Logger: logger,
	}, nil
}
