package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newDLQCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dlq",
		Short: "Manage the dead letter queue",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List jobs in the dead letter queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := a.dlq.List(context.Background())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(jobs) == 0 {
				fmt.Fprintln(out, "the dead letter queue is empty")
				return nil
			}
			fmt.Fprintln(out, "ID\tATTEMPTS\tERROR\tCOMMAND")
			for _, j := range jobs {
				msg := ""
				if j.Error != nil {
					msg = *j.Error
				}
				fmt.Fprintf(out, "%s\t%d/%d\t%s\t%s\n", j.ID, j.Attempts, j.MaxRetries, msg, j.Command)
			}
			return nil
		},
	}

	retry := &cobra.Command{
		Use:   "retry JOB_ID",
		Short: "Revive a job from the dead letter queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.dlq.Retry(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "job %s moved back to pending\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, retry)
	return cmd
}
