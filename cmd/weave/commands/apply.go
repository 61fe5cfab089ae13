package commands

import (
	"github.com/spf13/cobra"

	"github.com/cloudweave/cloudweave/pkg/engine"
)

func newApplyCommand() *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply changes for every enabled cell",
		Long: `Run init, validate and apply for every enabled (cloud, module) cell of
the environment. Apply runs non-interactively with auto-approve; use plan
first to review changes. A failed cell never stops the remaining cells.`,
		Example: `  # Apply everything enabled in dev
  weave apply -e dev

  # Apply only aws, skipping other clouds as filtered
  weave apply -e prod -c aws`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd.Context(), engine.ActionApply, flags)
		},
	}

	flags.register(cmd)
	return cmd
}
