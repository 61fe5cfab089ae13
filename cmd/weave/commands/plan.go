package commands

import (
	"github.com/spf13/cobra"

	"github.com/cloudweave/cloudweave/pkg/engine"
)

func newPlanCommand() *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan changes for every enabled cell",
		Long: `Run init, validate and plan for every enabled (cloud, module) cell of
the environment. Plan never mutates infrastructure; the generated tfplan
file is left in each module directory for inspection.`,
		Example: `  # Plan everything enabled in dev
  weave plan -e dev

  # Plan only the aws network module
  weave plan -e dev -c aws -m network`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd.Context(), engine.ActionPlan, flags)
		},
	}

	flags.register(cmd)
	return cmd
}
