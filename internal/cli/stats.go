package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"autoflow/workshop-service/internal/models"
	"autoflow/workshop-service/internal/stats"
	"autoflow/workshop-service/internal/store"
)

func statsCmd(opts *rootOptions) *cobra.Command {
	var branch string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print queue figures for one branch or all branches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			st, err := opts.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			jobs, err := st.ListJobs(ctx, store.JobFilter{})
			if err != nil {
				return err
			}
			summary := stats.ForBranch(jobs, branch)

			out := cmd.OutOrStdout()
			scope := branch
			if models.IsAllBranches(scope) {
				scope = models.AllBranches
			}
			fmt.Fprintf(out, "Branch: %s\n", scope)
			fmt.Fprintf(out, "Total: %d  Priority: %d  In queue: %d\n\n", summary.Total, summary.Priority, summary.InQueue)

			counts := summary.AllStatusCounts()
			for _, status := range models.Statuses {
				fmt.Fprintf(out, "  %-20s %d\n", statusLabel(status), counts[status])
			}

			if len(summary.ByBranch) > 1 {
				fmt.Fprintln(out)
				names := make([]string, 0, len(summary.ByBranch))
				for name := range summary.ByBranch {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Fprintf(out, "  %-30s %d\n", name, summary.ByBranch[name])
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&branch, "branch", "", "Branch to summarise (default: all branches)")
	return cmd
}
