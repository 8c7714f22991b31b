package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskq-dev/taskq/job"
)

func newListCmd(a *app) *cobra.Command {
	var state string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, optionally filtered by state",
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := a.store.List(context.Background(), job.State(state))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(jobs) == 0 {
				fmt.Fprintln(out, "no jobs found")
				return nil
			}
			fmt.Fprintln(out, "ID\tSTATE\tPRIORITY\tATTEMPTS\tCOMMAND")
			for _, j := range jobs {
				fmt.Fprintf(out, "%s\t%s\t%d\t%d/%d\t%s\n", j.ID, j.State, j.Priority, j.Attempts, j.MaxRetries, j.Command)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&state, "state", "", "filter by state (pending, processing, failed, completed, dead, cancelled)")
	return cmd
}

func newCancelCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel JOB_ID",
		Short: "Cancel a pending, failed, or dead job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.Cancel(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cancelled job %s\n", args[0])
			return nil
		},
	}
}
