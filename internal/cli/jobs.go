package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"autoflow/workshop-service/internal/models"
	"autoflow/workshop-service/internal/store"
	"autoflow/workshop-service/internal/validation"
)

func jobsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List and edit service jobs in the configured store",
	}
	cmd.AddCommand(jobsListCmd(opts))
	cmd.AddCommand(jobsAddCmd(opts))
	cmd.AddCommand(jobsSetStatusCmd(opts))
	cmd.AddCommand(jobsDeleteCmd(opts))
	return cmd
}

func jobsListCmd(opts *rootOptions) *cobra.Command {
	var (
		branch   string
		status   string
		priority bool
		search   string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs in queue order",
		Example: `  workshop-service jobs list
  workshop-service jobs list --branch "CFAO Airport Workshop" --status in-diagnostics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := store.JobFilter{Branch: branch, Search: search}
			if status != "" {
				parsed, ok := models.ParseStatus(status)
				if !ok {
					return fmt.Errorf("unknown status %q", status)
				}
				filter.Status = parsed
			}
			if cmd.Flags().Changed("priority") {
				filter.Priority = &priority
			}

			ctx := commandContext(cmd)
			st, err := opts.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			jobs, err := st.ListJobs(ctx, filter)
			if err != nil {
				return err
			}
			printJobs(cmd.OutOrStdout(), jobs)
			return nil
		},
	}
	cmd.Flags().StringVar(&branch, "branch", "", "Only jobs at this branch")
	cmd.Flags().StringVar(&status, "status", "", "Only jobs in this status (slug or label)")
	cmd.Flags().BoolVar(&priority, "priority", false, "Only priority (or, with =false, non-priority) jobs")
	cmd.Flags().StringVar(&search, "search", "", "Match registration, customer or service type")
	return cmd
}

func jobsAddCmd(opts *rootOptions) *cobra.Command {
	var (
		input    store.CreateJobInput
		status   string
		priority bool
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Check a vehicle in",
		Example: `  workshop-service jobs add --reg GT-1234-22 --customer "Aminu S." \
    --service "Full Service" --brand Toyota --branch "CFAO Airport Workshop"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input.Status = models.Status(status)
			input.IsPriority = &priority
			if err := validation.ValidateCreate(&input); err != nil {
				return err
			}

			ctx := commandContext(cmd)
			st, err := opts.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			job, err := st.CreateJob(ctx, input)
			if err != nil {
				return err
			}
			printJob(cmd.OutOrStdout(), job)
			return nil
		},
	}
	cmd.Flags().IntVar(&input.QueueNumber, "queue", 0, "Queue number (default: next for the branch)")
	cmd.Flags().StringVar(&input.RegNumber, "reg", "", "Vehicle registration number")
	cmd.Flags().StringVar(&input.CustomerName, "customer", "", "Customer name")
	cmd.Flags().StringVar(&input.ServiceType, "service", "", "Service type (e.g. "+strings.Join(validation.ServiceTypes, ", ")+")")
	cmd.Flags().StringVar(&input.Brand, "brand", "", "Vehicle brand (e.g. "+strings.Join(validation.Brands, ", ")+")")
	cmd.Flags().StringVar(&status, "status", string(models.StatusCheckedIn), "Initial status")
	cmd.Flags().StringVar(&input.Branch, "branch", "", "Branch name")
	cmd.Flags().BoolVar(&priority, "priority", false, "Mark as priority")
	return cmd
}

func jobsSetStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "set-status <id> <status>",
		Short:   "Move a job to another status",
		Example: `  workshop-service jobs set-status 12 work-in-progress`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			status := models.Status(args[1])
			patch := store.JobPatch{Status: &status}
			if err := validation.ValidatePatch(&patch, false); err != nil {
				return err
			}

			ctx := commandContext(cmd)
			st, err := opts.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			job, err := st.UpdateJob(ctx, id, patch)
			if err != nil {
				return err
			}
			printJob(cmd.OutOrStdout(), job)
			return nil
		},
	}
}

func jobsDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}

			ctx := commandContext(cmd)
			st, err := opts.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.DeleteJob(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted job %d\n", id)
			return nil
		},
	}
}

func parseJobID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid job id %q", raw)
	}
	return id, nil
}
