package llmprompter

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/llm-prompter/internal/fsops"
	"github.com/temirov/llm-prompter/internal/logging"
)

type runCommandOptions struct {
	configPath string
	force      bool
	verifyHash bool
}

func newRunCommand() *cobra.Command {
	options := &runCommandOptions{verifyHash: true}

	command := &cobra.Command{
		Use:   runCommandUse,
		Short: runCommandShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipelineCommand(cmd, *options)
		},
	}

	command.Flags().StringVar(&options.configPath, configFlagName, "", configFlagUsage)
	command.Flags().BoolVar(&options.force, forceFlagName, false, forceFlagUsage)
	command.Flags().Var(newBoolChoiceValue(&options.verifyHash), verifyHashFlagName, verifyHashFlagUsage)
	if verifyHashFlag := command.Flags().Lookup(verifyHashFlagName); verifyHashFlag != nil {
		verifyHashFlag.NoOptDefVal = "true"
		verifyHashFlag.DefValue = "true"
	}
	return command
}

func runPipelineCommand(command *cobra.Command, options runCommandOptions) (runErr error) {
	rootConfiguration, source, err := loadConfiguration(options.configPath)
	if err != nil {
		return err
	}
	store := fsops.NewOS()
	logger, closeLogger, err := logging.New(rootConfiguration.Log, logging.Options{Store: store})
	if err != nil {
		return err
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Error("run panicked", zap.Any("panic", recovered), zap.Stack("stack"))
			runErr = fmt.Errorf(runPanicErrorFormat, recovered)
		}
		if closeErr := closeLogger(); closeErr != nil && runErr == nil {
			runErr = closeErr
		}
	}()
	logger.Debug("configuration loaded",
		zap.String("source", source.Reference),
		zap.Int("backends", len(rootConfiguration.AI)),
		zap.Bool("verify_hash", options.verifyHash),
		zap.Bool("force", options.force))

	engine, err := buildEngine(store, rootConfiguration, options, logger)
	if err != nil {
		return err
	}
	summary, err := engine.Run(command.Context())
	if _, writeErr := fmt.Fprintf(command.OutOrStdout(), summaryOutputFormat, summary.Total, summary.Success, summary.Skipped, summary.Error); writeErr != nil && err == nil {
		err = writeErr
	}
	if err != nil {
		return fmt.Errorf(runErrorFormat, err)
	}
	return nil
}
