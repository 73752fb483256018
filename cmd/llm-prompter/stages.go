package llmprompter

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/temirov/llm-prompter/internal/fsops"
)

type stagesCommandOptions struct {
	configPath string
}

func newStagesCommand() *cobra.Command {
	options := &stagesCommandOptions{}

	command := &cobra.Command{
		Use:   stagesCommandUse,
		Short: stagesCommandShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStagesCommand(cmd, *options)
		},
	}
	command.Flags().StringVar(&options.configPath, configFlagName, "", configFlagUsage)
	return command
}

func runStagesCommand(command *cobra.Command, options stagesCommandOptions) error {
	rootConfiguration, _, err := loadConfiguration(options.configPath)
	if err != nil {
		return err
	}
	stages, err := loadStages(fsops.NewOS(), rootConfiguration)
	if err != nil {
		return err
	}

	outputWriter := command.OutOrStdout()
	if _, err := fmt.Fprintf(outputWriter, modeOutputFormat, stages.Mode()); err != nil {
		return fmt.Errorf("write stages: %w", err)
	}
	for _, prompt := range stages.Prompts() {
		schemaLabel := schemaNoLabel
		if prompt.JSONSchema != "" {
			schemaLabel = schemaYesLabel
		}
		if _, err := fmt.Fprintf(outputWriter, promptOutputFormat, prompt.StageIndex, prompt.PositionInStage, prompt.Source, schemaLabel); err != nil {
			return fmt.Errorf("write stages: %w", err)
		}
	}
	return nil
}
