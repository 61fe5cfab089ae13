package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/cloudweave/cloudweave/pkg/config"
)

func newValidateCommand() *cobra.Command {
	var environment string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the parameters document",
		Long: `Parse and validate the parameters document against the schema without
touching any infrastructure, then list the environments it defines. With
-e the named environment must also exist.`,
		Example: `  # Validate the default parameters.yaml
  weave validate

  # Validate and require the prod environment
  weave validate -e prod`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := buildLogger()

			loader, err := config.NewLoader(logger)
			if err != nil {
				return err
			}
			doc, err := loader.Load(paramsPath)
			if err != nil {
				return err
			}
			if environment != "" {
				if _, err := doc.Environment(environment); err != nil {
					return err
				}
			}

			type envInfo struct {
				Name   string   `json:"name"`
				Clouds []string `json:"clouds"`
			}

			infos := make([]envInfo, 0, len(doc.Environments))
			for name, env := range doc.Environments {
				clouds := make([]string, 0, len(env.Clouds))
				for cloud := range env.Clouds {
					clouds = append(clouds, cloud)
				}
				sort.Strings(clouds)
				infos = append(infos, envInfo{Name: name, Clouds: clouds})
			}
			sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(infos)
			}

			fmt.Printf("%s is valid\n", paramsPath)
			for _, info := range infos {
				fmt.Printf("  %s:", info.Name)
				for _, cloud := range info.Clouds {
					fmt.Printf(" %s", cloud)
				}
				fmt.Println()
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&environment, "environment", "e", "", "require this environment to exist")

	return cmd
}
