package llmprompter

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/temirov/llm-prompter/internal/config"
	"github.com/temirov/llm-prompter/internal/fsops"
)

func newInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   initCommandUse,
		Short: initCommandShort,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			templatePath, err := config.WriteTemplate(fsops.NewOS(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), templateOutputFormat, templatePath)
			return err
		},
	}
}
