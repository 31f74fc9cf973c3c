package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/me/webextools/internal/store"
	"github.com/me/webextools/pkg/model"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past disable-users runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.NewSQLiteStore(flagDBPath, logger)
			if err != nil {
				return fmt.Errorf("open run history: %w", err)
			}
			defer st.Close()
			if err := st.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrate run history: %w", err)
			}

			runs, total, err := st.ListRuns(cmd.Context(), model.ListOptions{Limit: limit})
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}

			if len(runs) == 0 {
				fmt.Println("No runs recorded.")
				return nil
			}

			fmt.Printf("%-36s  %-16s  %-24s  %-4s  %4s  %4s  %4s  %s\n", "ID", "COMMAND", "FILE", "DRY", "OK", "FAIL", "SKIP", "CREATED")
			fmt.Printf("%-36s  %-16s  %-24s  %-4s  %4s  %4s  %4s  %s\n", "----", "-------", "----", "---", "--", "----", "----", "-------")
			for _, run := range runs {
				dry := "no"
				if run.DryRun {
					dry = "yes"
				}
				fmt.Printf("%-36s  %-16s  %-24s  %-4s  %4d  %4d  %4d  %s\n",
					run.ID, run.Command, run.File, dry,
					run.Succeeded, run.Failed, run.Skipped,
					run.CreatedAt.Local().Format(time.RFC3339),
				)
			}

			if total > len(runs) {
				fmt.Printf("\n(%d of %d shown)\n", len(runs), total)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")
	return cmd
}
