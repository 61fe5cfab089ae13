package commands

import (
	"github.com/spf13/cobra"

	"github.com/cloudweave/cloudweave/pkg/engine"
)

func newDestroyCommand() *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Destroy managed infrastructure for every enabled cell",
		Long: `Run init, validate and destroy for every enabled (cloud, module) cell of
the environment. Destroy runs non-interactively with auto-approve; narrow
the blast radius with the cloud and module filters.`,
		Example: `  # Tear down the dev environment
  weave destroy -e dev

  # Destroy a single module
  weave destroy -e dev -c aws -m compute`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd.Context(), engine.ActionDestroy, flags)
		},
	}

	flags.register(cmd)
	return cmd
}
