package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"autoflow/workshop-service/internal/auth"
	"autoflow/workshop-service/internal/models"
	"autoflow/workshop-service/internal/store"
)

func statusesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "statuses",
		Short: "Print the job status workflow",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			policy := opts.cfg.TransitionPolicy()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Transitions: %s\n\n", policy)

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ORDER\tSLUG\tLABEL\tNEXT")
			for _, status := range models.Statuses {
				next := store.NextStatuses(policy, status)
				names := make([]string, 0, len(next))
				for _, n := range next {
					names = append(names, string(n))
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", status.Order(), status, statusLabel(status), strings.Join(names, ", "))
			}
			return w.Flush()
		},
	}
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print a bcrypt hash for a seed fixture password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
