package llmprompter

import (
	"context"

	"github.com/spf13/cobra"
)

// NewRootCommand assembles the llm-prompter command tree.
func NewRootCommand() *cobra.Command {
	rootCommand := &cobra.Command{
		Use:           rootCommandUse,
		Short:         rootCommandShort,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCommand.AddCommand(newRunCommand(), newStagesCommand(), newInitCommand())
	return rootCommand
}

// Execute runs the command line under ctx.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}
