package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cloudweave/cloudweave/pkg/stores"
)

func newHistoryCommand() *cobra.Command {
	var (
		historyDB string
		limit     int
		runID     string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs",
		Long: `List recorded orchestration runs, newest first, or show the cell
outcomes of one run by ID.`,
		Example: `  # Last ten runs
  weave history

  # Cells of one run
  weave history --run 4f7c2c1e-...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := stores.NewSQLiteStore(stores.Config{Path: historyDB})
			if err != nil {
				return err
			}
			if err := store.Init(ctx); err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			if err := store.Migrate(ctx); err != nil {
				return err
			}

			if runID != "" {
				return showRun(cmd, store, runID)
			}

			runs, err := store.ListRuns(ctx, limit, 0)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			}

			if len(runs) == 0 {
				fmt.Println("no runs recorded")
				return nil
			}
			fmt.Printf("%-36s  %-10s  %-7s  %-20s  %s\n", "RUN", "ENV", "ACTION", "STARTED", "RESULT")
			for _, run := range runs {
				fmt.Printf("%-36s  %-10s  %-7s  %-20s  %d ok / %d failed / %d skipped\n",
					run.ID, run.Environment, run.Action,
					run.StartedAt.Format("2006-01-02 15:04:05"),
					run.Succeeded, run.Failed, run.Skipped)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&historyDB, "history-db", filepath.Join(".weave", "history.db"), "run history database path")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum runs to list")
	cmd.Flags().StringVar(&runID, "run", "", "show the cells of one run")

	return cmd
}

func showRun(cmd *cobra.Command, store stores.Store, runID string) error {
	run, cells, err := store.GetRun(cmd.Context(), runID)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Run   *stores.Run         `json:"run"`
			Cells []stores.CellRecord `json:"cells"`
		}{run, cells})
	}

	fmt.Printf("%s run %s on %s (%d ok / %d failed / %d skipped)\n",
		run.Action, run.ID, run.Environment, run.Succeeded, run.Failed, run.Skipped)
	for _, c := range cells {
		label := c.Cloud
		if c.Module != "" {
			label = c.Cloud + "/" + c.Module
		}
		switch c.Status {
		case "skipped":
			fmt.Printf("  skip    %-28s (%s)\n", label, c.SkipReason)
		case "failed":
			fmt.Printf("  FAILED  %-28s stage=%s %s\n", label, c.Stage, c.Error)
		default:
			fmt.Printf("  ok      %-28s %dms\n", label, c.DurationMS)
		}
	}
	return nil
}
